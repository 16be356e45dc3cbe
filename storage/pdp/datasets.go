package pdp

import (
	"context"
	"net/http"

	"golang.org/x/xerrors"

	"github.com/filecoin-project/foc-uploader/api"
	"github.com/filecoin-project/foc-uploader/chain/types/ethtypes"
)

type createDataSetRequest struct {
	RecordKeeper string `json:"recordKeeper"`
	ExtraData    string `json:"extraData"`
}

// DataSetCreationStatus is the provider's view of a data set creation
// transaction.
type DataSetCreationStatus struct {
	CreateMessageHash string  `json:"createMessageHash"`
	DataSetCreated    bool    `json:"dataSetCreated"`
	Service           string  `json:"service"`
	TxStatus          string  `json:"txStatus"`
	OK                *bool   `json:"ok"`
	DataSetID         *uint64 `json:"dataSetId,omitempty"`
}

const (
	TxStatusPending   = "pending"
	TxStatusConfirmed = "confirmed"
	TxStatusFailed    = "failed"
)

// CreateContainer asks the provider to create a data set for the payer and
// waits until the provider reports it live.
func (t *Transport) CreateContainer(ctx context.Context, cb api.CreateCallbacks) (api.ContainerRef, error) {
	signed, err := t.signer.SignCreateDataSet(ctx, api.CreateDataSetRequest{
		Payer:      t.cfg.Payer,
		ProviderID: t.cfg.ProviderID,
		WithCDN:    t.cfg.WithCDN,
	})
	if err != nil {
		return api.ContainerRef{}, xerrors.Errorf("signing data set creation: %w", err)
	}

	_, loc, err := t.postJSON(ctx, "/pdp/data-sets", createDataSetRequest{
		RecordKeeper: signed.RecordKeeper.String(),
		ExtraData:    signed.ExtraData.String(),
	}, nil, http.StatusCreated, http.StatusAccepted)
	if err != nil {
		return api.ContainerRef{}, xerrors.Errorf("submitting data set creation: %w", err)
	}
	tx, err := txFromLocation(loc)
	if err != nil {
		return api.ContainerRef{}, err
	}
	log.Infow("data set creation submitted", "provider", t.cfg.ProviderID, "tx", tx)
	if cb.OnSubmitted != nil {
		cb.OnSubmitted(tx)
	}

	id, err := t.waitDataSetCreated(ctx, tx, cb)
	if err != nil {
		return api.ContainerRef{}, err
	}

	if cb.OnProviderSelected != nil {
		cb.OnProviderSelected(t.cfg.ProviderID)
	}

	return api.ContainerRef{DataSetID: id, ProviderID: t.cfg.ProviderID, Live: true, WithCDN: t.cfg.WithCDN}, nil
}

func (t *Transport) waitDataSetCreated(ctx context.Context, tx ethtypes.EthHash, cb api.CreateCallbacks) (uint64, error) {
	b := t.newBackoff()
	chainConfirmed := false

	for {
		var st DataSetCreationStatus
		code, err := t.getJSON(ctx, "/pdp/data-sets/created/"+tx.String(), &st)
		switch {
		case ctx.Err() != nil:
			return 0, ctx.Err()
		case code == http.StatusNotFound:
			log.Debugw("data set creation not yet visible to provider", "tx", tx, "attempts", b.Attempt())
		case err != nil:
			log.Warnw("Failed to get data set creation status; retrying after backoff", "tx", tx, "backoff", b.ForAttempt(b.Attempt()), "err", err)
		case st.TxStatus == TxStatusFailed || (st.OK != nil && !*st.OK):
			return 0, xerrors.Errorf("data set creation transaction %s failed", tx)
		case st.DataSetID == nil:
			// chain confirmation is only reported once the id is known
			log.Debugw("data set id not yet known", "tx", tx, "txStatus", st.TxStatus, "attempts", b.Attempt())
		default:
			if !chainConfirmed && (st.TxStatus == TxStatusConfirmed || st.DataSetCreated) {
				chainConfirmed = true
				if cb.OnChainConfirmed != nil {
					cb.OnChainConfirmed(*st.DataSetID)
				}
			}
			if st.DataSetCreated {
				if cb.OnServerConfirmed != nil {
					cb.OnServerConfirmed(*st.DataSetID)
				}
				log.Infow("data set created", "tx", tx, "dataSet", *st.DataSetID)
				return *st.DataSetID, nil
			}
		}

		if err := t.sleep(ctx, b); err != nil {
			return 0, err
		}
	}
}
