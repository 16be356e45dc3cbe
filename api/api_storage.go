package api

import (
	"context"

	"github.com/ipfs/go-cid"

	"github.com/filecoin-project/foc-uploader/chain/types/ethtypes"
)

// StorageTransport moves data sets and pieces between the client and a
// storage provider.
type StorageTransport interface {
	ListContainers(ctx context.Context, account ethtypes.EthAddress) ([]ContainerRef, error)
	CreateContainer(ctx context.Context, cb CreateCallbacks) (ContainerRef, error)
	Upload(ctx context.Context, container ContainerRef, data []byte, cb UploadCallbacks) (UploadResult, error)
}

// DataSetLister lists an account's data sets from chain state.
type DataSetLister interface {
	ListDataSets(ctx context.Context, account ethtypes.EthAddress) ([]ContainerRef, error)
}

type CreateDataSetRequest struct {
	Payer      ethtypes.EthAddress
	ProviderID uint64
	WithCDN    bool
}

type AddPiecesRequest struct {
	DataSetID uint64
	Pieces    []cid.Cid
}

// SignedRequest is what the provider needs to submit a request on the
// client's behalf.
type SignedRequest struct {
	RecordKeeper ethtypes.EthAddress
	ExtraData    ethtypes.EthBytes
}

// Signer produces the opaque authorization blobs the provider relays on chain.
type Signer interface {
	SignCreateDataSet(ctx context.Context, req CreateDataSetRequest) (SignedRequest, error)
	SignAddPieces(ctx context.Context, req AddPiecesRequest) (SignedRequest, error)
}
