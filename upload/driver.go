package upload

import (
	"context"
	"fmt"
	"sync"

	"github.com/ipfs/go-cid"
	logging "github.com/ipfs/go-log/v2"
	"golang.org/x/xerrors"

	"github.com/filecoin-project/foc-uploader/api"
	"github.com/filecoin-project/foc-uploader/chain/types/ethtypes"
)

var log = logging.Logger("upload")

const (
	PercentStarted   = 80
	PercentUploaded  = 90
	PercentAdded     = 95
	PercentConfirmed = 100
)

// Driver pushes a payload into a data set and collects the outcome from the
// transport's checkpoints.
type Driver struct {
	transport api.StorageTransport
}

func NewDriver(transport api.StorageTransport) *Driver {
	return &Driver{transport: transport}
}

// Upload stores data in the data set. Once the transport has reported a piece
// CID the outcome is returned even if a later step fails; confirmation is
// best effort. Failures before that are *api.UploadFailedError.
func (d *Driver) Upload(ctx context.Context, handle api.DatasetHandle, data []byte, progress api.ProgressFunc) (*api.UploadOutcome, error) {
	if progress == nil {
		progress = func(int, string) {}
	}

	var (
		lk  sync.Mutex
		out api.UploadOutcome
	)

	progress(PercentStarted, fmt.Sprintf("Uploading %d bytes to data set %d", len(data), handle.DataSetID))

	res, err := d.transport.Upload(ctx, api.ContainerRef{
		DataSetID:  handle.DataSetID,
		ProviderID: handle.ProviderID,
		Live:       true,
	}, data, api.UploadCallbacks{
		OnUploadComplete: func(piece cid.Cid) {
			lk.Lock()
			out.PieceCID = piece
			lk.Unlock()
			progress(PercentUploaded, fmt.Sprintf("Upload complete, piece %s", piece))
		},
		OnPieceAdded: func(tx ethtypes.EthHash) {
			lk.Lock()
			out.TxHash = &tx
			lk.Unlock()
			progress(PercentAdded, fmt.Sprintf("Piece add submitted (%s)", tx))
		},
		OnPieceConfirmed: func(ids []uint64) {
			lk.Lock()
			out.Confirmed = true
			out.PieceIDs = ids
			lk.Unlock()
			progress(PercentConfirmed, "Piece confirmed on chain")
		},
	})

	lk.Lock()
	defer lk.Unlock()

	if !out.PieceCID.Defined() && err == nil {
		out.PieceCID = res.PieceCID
	}

	if err != nil {
		if !out.PieceCID.Defined() {
			return nil, &api.UploadFailedError{Cause: err}
		}
		log.Warnw("upload step failed after the piece was stored, keeping partial outcome",
			"piece", out.PieceCID, "tx", out.TxHash, "error", err)
		return &out, nil
	}

	if !out.PieceCID.Defined() {
		return nil, &api.UploadFailedError{Cause: xerrors.New("transport returned no piece CID")}
	}
	if !out.Confirmed {
		log.Infow("piece stored without confirmation", "piece", out.PieceCID, "tx", out.TxHash)
	}

	return &out, nil
}
