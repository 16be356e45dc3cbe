package pdp

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/ipfs/go-cid"
	"golang.org/x/xerrors"

	"github.com/filecoin-project/foc-uploader/api"
	"github.com/filecoin-project/foc-uploader/chain/types/ethtypes"
)

type pieceCheck struct {
	Name string `json:"name"`
	Hash string `json:"hash"`
	Size uint64 `json:"size"`
}

type createPieceRequest struct {
	Check pieceCheck `json:"check"`
}

type pieceResponse struct {
	PieceCID string `json:"pieceCID"`
}

type subPiece struct {
	SubPieceCID string `json:"subPieceCid"`
}

type addPiece struct {
	PieceCID  string     `json:"pieceCid"`
	SubPieces []subPiece `json:"subPieces"`
}

type addPiecesRequest struct {
	Pieces    []addPiece `json:"pieces"`
	ExtraData string     `json:"extraData"`
}

// PieceAdditionStatus is the provider's view of an add-pieces transaction.
type PieceAdditionStatus struct {
	TxHash            string   `json:"txHash"`
	TxStatus          string   `json:"txStatus"`
	DataSetID         uint64   `json:"dataSetId"`
	PieceCount        int      `json:"pieceCount"`
	AddMessageOK      *bool    `json:"addMessageOk"`
	ConfirmedPieceIDs []uint64 `json:"confirmedPieceIds,omitempty"`
	PiecesAdded       bool     `json:"piecesAdded"`
}

// Upload sends data to the provider, adds the resulting piece to the data
// set and waits a bounded number of polls for the addition to confirm.
func (t *Transport) Upload(ctx context.Context, container api.ContainerRef, data []byte, cb api.UploadCallbacks) (api.UploadResult, error) {
	piece, err := PreparePiece(data)
	if err != nil {
		return api.UploadResult{}, err
	}
	log.Infow("prepared piece", "piece", piece.CID, "size", len(data), "paddedSize", piece.PaddedSize)

	if err := t.uploadPiece(ctx, piece); err != nil {
		return api.UploadResult{}, err
	}
	if cb.OnUploadComplete != nil {
		cb.OnUploadComplete(piece.CID)
	}
	res := api.UploadResult{PieceCID: piece.CID}

	if err := t.waitParked(ctx, piece); err != nil {
		return res, err
	}

	tx, err := t.addPieces(ctx, container.DataSetID, piece.CID)
	if err != nil {
		return res, err
	}
	if cb.OnPieceAdded != nil {
		cb.OnPieceAdded(tx)
	}

	ids, err := t.waitPiecesAdded(ctx, container.DataSetID, tx)
	if err != nil {
		return res, err
	}
	if ids != nil && cb.OnPieceConfirmed != nil {
		cb.OnPieceConfirmed(ids)
	}

	return res, nil
}

func (t *Transport) uploadPiece(ctx context.Context, piece *Piece) error {
	code, loc, err := t.postJSON(ctx, "/pdp/piece", createPieceRequest{Check: pieceCheck{
		Name: CommPHashName,
		Hash: piece.CheckHash(),
		Size: uint64(len(piece.Payload)),
	}}, nil, http.StatusOK, http.StatusCreated)
	if err != nil {
		return xerrors.Errorf("announcing piece %s: %w", piece.CID, err)
	}
	if code == http.StatusOK {
		log.Infow("provider already has piece", "piece", piece.CID)
		return nil
	}
	if loc == "" {
		return xerrors.Errorf("announcing piece %s: provider returned no upload location", piece.CID)
	}

	total := int64(len(piece.Payload))
	body := newProgressReader(bytes.NewReader(piece.Payload), total, func(written, total int64) {
		log.Debugw("upload progress", "piece", piece.CID, "written", written, "total", total)
	})
	if _, _, err := t.do(ctx, http.MethodPut, loc, body, total, "application/octet-stream", nil, http.StatusOK, http.StatusNoContent); err != nil {
		return xerrors.Errorf("uploading piece %s: %w", piece.CID, err)
	}
	return nil
}

// waitParked polls until the provider can serve the uploaded piece.
func (t *Transport) waitParked(ctx context.Context, piece *Piece) error {
	q := url.Values{}
	q.Set("name", CommPHashName)
	q.Set("hash", piece.CheckHash())
	q.Set("size", fmt.Sprint(len(piece.Payload)))

	b := t.newBackoff()
	for {
		var pr pieceResponse
		code, err := t.getJSON(ctx, "/pdp/piece/?"+q.Encode(), &pr)
		switch {
		case ctx.Err() != nil:
			return ctx.Err()
		case err == nil:
			if pr.PieceCID != "" && pr.PieceCID != piece.CID.String() {
				return xerrors.Errorf("provider parked piece as %s, expected %s", pr.PieceCID, piece.CID)
			}
			return nil
		case code == http.StatusNotFound:
			log.Debugw("piece not yet parked", "piece", piece.CID, "attempts", b.Attempt())
		default:
			log.Warnw("Failed to look up piece; retrying after backoff", "piece", piece.CID, "backoff", b.ForAttempt(b.Attempt()), "err", err)
		}

		if err := t.sleep(ctx, b); err != nil {
			return err
		}
	}
}

func (t *Transport) addPieces(ctx context.Context, dataSetID uint64, piece cid.Cid) (ethtypes.EthHash, error) {
	signed, err := t.signer.SignAddPieces(ctx, api.AddPiecesRequest{DataSetID: dataSetID, Pieces: []cid.Cid{piece}})
	if err != nil {
		return ethtypes.EthHash{}, xerrors.Errorf("signing piece addition: %w", err)
	}

	_, loc, err := t.postJSON(ctx, fmt.Sprintf("/pdp/data-sets/%d/pieces", dataSetID), addPiecesRequest{
		Pieces: []addPiece{{
			PieceCID:  piece.String(),
			SubPieces: []subPiece{{SubPieceCID: piece.String()}},
		}},
		ExtraData: signed.ExtraData.String(),
	}, nil, http.StatusCreated, http.StatusAccepted)
	if err != nil {
		return ethtypes.EthHash{}, xerrors.Errorf("adding piece %s to data set %d: %w", piece, dataSetID, err)
	}

	tx, err := txFromLocation(loc)
	if err != nil {
		return ethtypes.EthHash{}, err
	}
	log.Infow("piece addition submitted", "piece", piece, "dataSet", dataSetID, "tx", tx)
	return tx, nil
}

// waitPiecesAdded returns the confirmed piece ids, or nil when the provider
// did not confirm within the configured number of polls.
func (t *Transport) waitPiecesAdded(ctx context.Context, dataSetID uint64, tx ethtypes.EthHash) ([]uint64, error) {
	b := t.newBackoff()
	p := fmt.Sprintf("/pdp/data-sets/%d/pieces/added/%s", dataSetID, tx)

	for attempt := 0; attempt < t.cfg.ConfirmationPolls; attempt++ {
		var st PieceAdditionStatus
		code, err := t.getJSON(ctx, p, &st)
		switch {
		case ctx.Err() != nil:
			return nil, ctx.Err()
		case code == http.StatusNotFound:
		case err != nil:
			log.Warnw("Failed to get piece addition status; retrying after backoff", "tx", tx, "backoff", b.ForAttempt(b.Attempt()), "err", err)
		case st.TxStatus == TxStatusFailed || (st.AddMessageOK != nil && !*st.AddMessageOK):
			return nil, xerrors.Errorf("piece addition transaction %s failed", tx)
		case st.PiecesAdded:
			if st.ConfirmedPieceIDs == nil {
				st.ConfirmedPieceIDs = []uint64{}
			}
			log.Infow("piece addition confirmed", "tx", tx, "dataSet", dataSetID, "pieceIds", st.ConfirmedPieceIDs)
			return st.ConfirmedPieceIDs, nil
		}

		if err := t.sleep(ctx, b); err != nil {
			return nil, err
		}
	}

	log.Warnw("piece addition not confirmed, giving up waiting", "tx", tx, "polls", t.cfg.ConfirmationPolls)
	return nil, nil
}
