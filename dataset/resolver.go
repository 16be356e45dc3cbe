package dataset

import (
	"context"
	"fmt"
	"sync"

	logging "github.com/ipfs/go-log/v2"
	"github.com/samber/lo"
	"golang.org/x/xerrors"

	"github.com/filecoin-project/foc-uploader/api"
	"github.com/filecoin-project/foc-uploader/chain/types/ethtypes"
	"github.com/filecoin-project/foc-uploader/metrics"
)

var log = logging.Logger("dataset")

// Progress milestones while resolving a data set.
const (
	PercentCreationSubmitted = 40
	PercentChainConfirmed    = 50
	PercentServerConfirmed   = 60
	PercentResolved          = 70
)

// Resolver finds the data set an upload goes into, creating one when the
// account has none. A resolver belongs to a single session: the listing is
// fetched once and the resolved handle is kept.
type Resolver struct {
	transport api.StorageTransport
	account   ethtypes.EthAddress

	lk     sync.Mutex
	listed bool
	live   []api.ContainerRef
	handle *api.DatasetHandle
}

func NewResolver(transport api.StorageTransport, account ethtypes.EthAddress) *Resolver {
	return &Resolver{transport: transport, account: account}
}

// Reusable returns the data set that Resolve would pick without creating
// anything, or nil when a new one is needed.
func (r *Resolver) Reusable(ctx context.Context) (*api.ContainerRef, error) {
	r.lk.Lock()
	defer r.lk.Unlock()

	if err := r.list(ctx); err != nil {
		return nil, err
	}
	if len(r.live) == 0 {
		return nil, nil
	}
	ref := r.live[0]
	return &ref, nil
}

func (r *Resolver) list(ctx context.Context) error {
	if r.listed {
		return nil
	}
	refs, err := r.transport.ListContainers(ctx, r.account)
	if err != nil {
		return xerrors.Errorf("listing data sets of %s: %w", r.account, err)
	}
	r.live = lo.Filter(refs, func(c api.ContainerRef, _ int) bool { return c.Live })
	r.listed = true

	log.Debugw("listed data sets", "account", r.account, "total", len(refs), "live", len(r.live))
	return nil
}

// Resolve returns the data set to upload into. Existing data sets are always
// preferred. Errors are returned as *api.DatasetResolutionError.
func (r *Resolver) Resolve(ctx context.Context, progress api.ProgressFunc) (api.DatasetHandle, error) {
	r.lk.Lock()
	defer r.lk.Unlock()

	if progress == nil {
		progress = func(int, string) {}
	}

	if r.handle != nil {
		return *r.handle, nil
	}

	if err := r.list(ctx); err != nil {
		return api.DatasetHandle{}, &api.DatasetResolutionError{Cause: err}
	}

	if len(r.live) > 0 {
		ref := r.live[0]
		r.handle = &api.DatasetHandle{DataSetID: ref.DataSetID, ProviderID: ref.ProviderID}
		log.Infow("reusing data set", "dataSet", ref.DataSetID, "provider", ref.ProviderID)
		progress(PercentResolved, fmt.Sprintf("Using existing data set %d", ref.DataSetID))
		return *r.handle, nil
	}

	log.Infow("no data set found, creating one", "account", r.account)
	ref, err := r.transport.CreateContainer(ctx, api.CreateCallbacks{
		OnSubmitted: func(tx ethtypes.EthHash) {
			progress(PercentCreationSubmitted, fmt.Sprintf("Data set creation submitted (%s)", tx))
		},
		OnChainConfirmed: func(id uint64) {
			progress(PercentChainConfirmed, fmt.Sprintf("Data set %d confirmed on chain", id))
		},
		OnServerConfirmed: func(id uint64) {
			progress(PercentServerConfirmed, fmt.Sprintf("Data set %d confirmed by provider", id))
		},
		OnProviderSelected: func(provider uint64) {
			progress(PercentResolved, fmt.Sprintf("Provider %d selected", provider))
		},
	})
	if err != nil {
		return api.DatasetHandle{}, &api.DatasetResolutionError{Cause: xerrors.Errorf("creating data set: %w", err)}
	}
	metrics.Record(ctx, metrics.DataSetCreated.M(1))

	r.handle = &api.DatasetHandle{DataSetID: ref.DataSetID, ProviderID: ref.ProviderID, IsNew: true}
	r.live = append(r.live, ref)
	log.Infow("created data set", "dataSet", ref.DataSetID, "provider", ref.ProviderID)
	return *r.handle, nil
}
