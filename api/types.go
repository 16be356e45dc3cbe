package api

import (
	"time"

	"github.com/ipfs/go-cid"

	"github.com/filecoin-project/go-state-types/abi"

	"github.com/filecoin-project/foc-uploader/chain/types/ethtypes"
)

// StorageQuote is the shortfall and allowance requirement for one upload.
type StorageQuote struct {
	DepositAmountNeeded   abi.TokenAmount
	LockupAllowanceNeeded abi.TokenAmount
	RateAllowanceNeeded   abi.TokenAmount
}

// DatasetHandle identifies the data set an upload goes into.
type DatasetHandle struct {
	DataSetID  uint64
	ProviderID uint64
	IsNew      bool
}

// ContainerRef is a data set as reported by the storage network.
type ContainerRef struct {
	DataSetID  uint64
	ProviderID uint64
	Live       bool
	WithCDN    bool
}

type UploadOutcome struct {
	PieceCID cid.Cid
	// TxHash is the add-pieces transaction, when the provider reported it.
	TxHash    *ethtypes.EthHash `json:",omitempty"`
	Confirmed bool
	PieceIDs  []uint64 `json:",omitempty"`
}

type UploadResult struct {
	PieceCID cid.Cid
}

// Stage names a step of an upload session.
type Stage string

const (
	StageIdle             Stage = "idle"
	StagePreflighting     Stage = "preflighting"
	StageAuthorizing      Stage = "authorizing"
	StageResolvingDataset Stage = "resolving-dataset"
	StageUploading        Stage = "uploading"
	StageSucceeded        Stage = "succeeded"
	StageFailed           Stage = "failed"
)

// ProgressState is one observation in a session's progress stream.
type ProgressState struct {
	Stage   Stage
	Percent int
	Message string
	Time    time.Time
}

// ProgressFunc reports progress within the current stage.
type ProgressFunc func(percent int, message string)

type CreateCallbacks struct {
	OnSubmitted        func(tx ethtypes.EthHash)
	OnChainConfirmed   func(dataSetID uint64)
	OnServerConfirmed  func(dataSetID uint64)
	OnProviderSelected func(providerID uint64)
}

type UploadCallbacks struct {
	OnUploadComplete func(piece cid.Cid)
	OnPieceAdded     func(tx ethtypes.EthHash)
	OnPieceConfirmed func(pieceIDs []uint64)
}
