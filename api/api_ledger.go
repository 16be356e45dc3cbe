package api

import (
	"context"

	"github.com/filecoin-project/go-state-types/abi"

	"github.com/filecoin-project/foc-uploader/chain/types"
	"github.com/filecoin-project/foc-uploader/chain/types/ethtypes"
)

// Ledger is the payments ledger as seen by the uploader. Adapters may
// additionally implement any of the optional interfaces below; their presence
// is probed, never assumed.
type Ledger interface {
	// Balance is the account's token balance as the ledger reports it.
	Balance(ctx context.Context) (types.TokenBalance, error)
	QuoteStorage(ctx context.Context, size uint64, withCDN bool, epochs abi.ChainEpoch) (StorageQuote, error)
	// Deposit submits a single deposit transaction and returns its hash.
	Deposit(ctx context.Context, params DepositParams) (ethtypes.EthHash, error)
}

type DepositParams struct {
	Amount          abi.TokenAmount
	LockupAllowance abi.TokenAmount
	RateAllowance   abi.TokenAmount
	// Token is left out for adapters that only know one asset.
	Token *ethtypes.EthAddress `json:",omitempty"`
}

type ServiceApproval struct {
	// Operator nil lets the ledger use its configured storage service.
	Operator        *ethtypes.EthAddress `json:",omitempty"`
	RateAllowance   abi.TokenAmount
	LockupAllowance abi.TokenAmount
	MaxLockupPeriod abi.ChainEpoch
}

type TokenReporter interface {
	Token(ctx context.Context) (ethtypes.EthAddress, error)
}

type TokenConfigurer interface {
	ConfigureToken(ctx context.Context, token ethtypes.EthAddress) error
}

type TokenSetter interface {
	SetToken(ctx context.Context, token ethtypes.EthAddress) error
}

type ServiceApprover interface {
	ApproveService(ctx context.Context, approval ServiceApproval) (ethtypes.EthHash, error)
}

type OperatorApprover interface {
	ApproveOperator(ctx context.Context, approval ServiceApproval) (ethtypes.EthHash, error)
}

type SpendApprover interface {
	Approve(ctx context.Context, spender *ethtypes.EthAddress, amount abi.TokenAmount) (ethtypes.EthHash, error)
}

// CapabilityReporter is implemented by adapters whose method surface is only
// known at runtime, such as RPC clients.
type CapabilityReporter interface {
	Supports(method string) bool
}

// LedgerGateway is the remote service fronting the payments ledger, the
// signer and data set listings for one account.
type LedgerGateway interface {
	Ledger
	TokenReporter
	TokenConfigurer
	TokenSetter
	ServiceApprover
	OperatorApprover
	SpendApprover
	DataSetLister
	Signer

	// Capabilities lists the optional method names the gateway implements.
	Capabilities(ctx context.Context) ([]string, error)
}
