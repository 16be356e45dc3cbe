package apistruct

import (
	"context"

	"github.com/filecoin-project/go-state-types/abi"

	"github.com/filecoin-project/foc-uploader/api"
	"github.com/filecoin-project/foc-uploader/chain/types"
	"github.com/filecoin-project/foc-uploader/chain/types/ethtypes"
)

type LedgerStruct struct {
	Internal struct {
		Balance      func(p0 context.Context) (types.TokenBalance, error)                                      `perm:"read"`
		QuoteStorage func(p0 context.Context, p1 uint64, p2 bool, p3 abi.ChainEpoch) (api.StorageQuote, error) `perm:"read"`
		Deposit      func(p0 context.Context, p1 api.DepositParams) (ethtypes.EthHash, error)                  `perm:"sign"`

		Token          func(p0 context.Context) (ethtypes.EthAddress, error)      `perm:"read"`
		ConfigureToken func(p0 context.Context, p1 ethtypes.EthAddress) error      `perm:"admin"`
		SetToken       func(p0 context.Context, p1 ethtypes.EthAddress) error      `perm:"admin"`
		Capabilities   func(p0 context.Context) ([]string, error)                 `perm:"read"`

		ApproveService  func(p0 context.Context, p1 api.ServiceApproval) (ethtypes.EthHash, error)                      `perm:"sign"`
		ApproveOperator func(p0 context.Context, p1 api.ServiceApproval) (ethtypes.EthHash, error)                      `perm:"sign"`
		Approve         func(p0 context.Context, p1 *ethtypes.EthAddress, p2 abi.TokenAmount) (ethtypes.EthHash, error) `perm:"sign"`

		ListDataSets func(p0 context.Context, p1 ethtypes.EthAddress) ([]api.ContainerRef, error) `perm:"read"`

		SignCreateDataSet func(p0 context.Context, p1 api.CreateDataSetRequest) (api.SignedRequest, error) `perm:"sign"`
		SignAddPieces     func(p0 context.Context, p1 api.AddPiecesRequest) (api.SignedRequest, error)     `perm:"sign"`
	}
}

func (s *LedgerStruct) Balance(p0 context.Context) (types.TokenBalance, error) {
	if s.Internal.Balance == nil {
		return *new(types.TokenBalance), api.ErrNotSupported
	}
	return s.Internal.Balance(p0)
}

func (s *LedgerStruct) QuoteStorage(p0 context.Context, p1 uint64, p2 bool, p3 abi.ChainEpoch) (api.StorageQuote, error) {
	if s.Internal.QuoteStorage == nil {
		return *new(api.StorageQuote), api.ErrNotSupported
	}
	return s.Internal.QuoteStorage(p0, p1, p2, p3)
}

func (s *LedgerStruct) Deposit(p0 context.Context, p1 api.DepositParams) (ethtypes.EthHash, error) {
	if s.Internal.Deposit == nil {
		return *new(ethtypes.EthHash), api.ErrNotSupported
	}
	return s.Internal.Deposit(p0, p1)
}

func (s *LedgerStruct) Token(p0 context.Context) (ethtypes.EthAddress, error) {
	if s.Internal.Token == nil {
		return *new(ethtypes.EthAddress), api.ErrNotSupported
	}
	return s.Internal.Token(p0)
}

func (s *LedgerStruct) ConfigureToken(p0 context.Context, p1 ethtypes.EthAddress) error {
	if s.Internal.ConfigureToken == nil {
		return api.ErrNotSupported
	}
	return s.Internal.ConfigureToken(p0, p1)
}

func (s *LedgerStruct) SetToken(p0 context.Context, p1 ethtypes.EthAddress) error {
	if s.Internal.SetToken == nil {
		return api.ErrNotSupported
	}
	return s.Internal.SetToken(p0, p1)
}

func (s *LedgerStruct) Capabilities(p0 context.Context) ([]string, error) {
	if s.Internal.Capabilities == nil {
		return nil, api.ErrNotSupported
	}
	return s.Internal.Capabilities(p0)
}

func (s *LedgerStruct) ApproveService(p0 context.Context, p1 api.ServiceApproval) (ethtypes.EthHash, error) {
	if s.Internal.ApproveService == nil {
		return *new(ethtypes.EthHash), api.ErrNotSupported
	}
	return s.Internal.ApproveService(p0, p1)
}

func (s *LedgerStruct) ApproveOperator(p0 context.Context, p1 api.ServiceApproval) (ethtypes.EthHash, error) {
	if s.Internal.ApproveOperator == nil {
		return *new(ethtypes.EthHash), api.ErrNotSupported
	}
	return s.Internal.ApproveOperator(p0, p1)
}

func (s *LedgerStruct) Approve(p0 context.Context, p1 *ethtypes.EthAddress, p2 abi.TokenAmount) (ethtypes.EthHash, error) {
	if s.Internal.Approve == nil {
		return *new(ethtypes.EthHash), api.ErrNotSupported
	}
	return s.Internal.Approve(p0, p1, p2)
}

func (s *LedgerStruct) ListDataSets(p0 context.Context, p1 ethtypes.EthAddress) ([]api.ContainerRef, error) {
	if s.Internal.ListDataSets == nil {
		return nil, api.ErrNotSupported
	}
	return s.Internal.ListDataSets(p0, p1)
}

func (s *LedgerStruct) SignCreateDataSet(p0 context.Context, p1 api.CreateDataSetRequest) (api.SignedRequest, error) {
	if s.Internal.SignCreateDataSet == nil {
		return *new(api.SignedRequest), api.ErrNotSupported
	}
	return s.Internal.SignCreateDataSet(p0, p1)
}

func (s *LedgerStruct) SignAddPieces(p0 context.Context, p1 api.AddPiecesRequest) (api.SignedRequest, error) {
	if s.Internal.SignAddPieces == nil {
		return *new(api.SignedRequest), api.ErrNotSupported
	}
	return s.Internal.SignAddPieces(p0, p1)
}

type EthStruct struct {
	Internal struct {
		EthChainId               func(p0 context.Context) (ethtypes.EthUint64, error)                                                      `perm:"read"`
		EthCall                  func(p0 context.Context, p1 ethtypes.EthCall, p2 ethtypes.EthBlockNumberOrHash) (ethtypes.EthBytes, error)     `perm:"read"`
		EthGetBalance            func(p0 context.Context, p1 ethtypes.EthAddress, p2 ethtypes.EthBlockNumberOrHash) (ethtypes.EthBigInt, error) `perm:"read"`
		EthGetTransactionReceipt func(p0 context.Context, p1 ethtypes.EthHash) (*ethtypes.EthTxReceipt, error)                                  `perm:"read"`
	}
}

func (s *EthStruct) EthChainId(p0 context.Context) (ethtypes.EthUint64, error) {
	if s.Internal.EthChainId == nil {
		return *new(ethtypes.EthUint64), api.ErrNotSupported
	}
	return s.Internal.EthChainId(p0)
}

func (s *EthStruct) EthCall(p0 context.Context, p1 ethtypes.EthCall, p2 ethtypes.EthBlockNumberOrHash) (ethtypes.EthBytes, error) {
	if s.Internal.EthCall == nil {
		return *new(ethtypes.EthBytes), api.ErrNotSupported
	}
	return s.Internal.EthCall(p0, p1, p2)
}

func (s *EthStruct) EthGetBalance(p0 context.Context, p1 ethtypes.EthAddress, p2 ethtypes.EthBlockNumberOrHash) (ethtypes.EthBigInt, error) {
	if s.Internal.EthGetBalance == nil {
		return *new(ethtypes.EthBigInt), api.ErrNotSupported
	}
	return s.Internal.EthGetBalance(p0, p1, p2)
}

func (s *EthStruct) EthGetTransactionReceipt(p0 context.Context, p1 ethtypes.EthHash) (*ethtypes.EthTxReceipt, error) {
	if s.Internal.EthGetTransactionReceipt == nil {
		return nil, api.ErrNotSupported
	}
	return s.Internal.EthGetTransactionReceipt(p0, p1)
}

var _ api.LedgerGateway = new(LedgerStruct)
var _ api.EthNode = new(EthStruct)
