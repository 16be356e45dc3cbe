package api

import (
	"context"

	"github.com/filecoin-project/foc-uploader/chain/types"
	"github.com/filecoin-project/foc-uploader/chain/types/ethtypes"
)

// ChainBalanceSource reads token balances directly from chain state.
type ChainBalanceSource interface {
	BalanceOf(ctx context.Context, account, asset ethtypes.EthAddress) (types.TokenBalance, error)
}

type NetworkIdentity interface {
	ChainID(ctx context.Context) (uint64, error)
}

// TxWaiter blocks until a transaction has a receipt.
type TxWaiter interface {
	WaitTx(ctx context.Context, tx ethtypes.EthHash) (*ethtypes.EthTxReceipt, error)
}

// EthNode is the subset of the Filecoin Eth JSON-RPC API the uploader uses.
type EthNode interface {
	EthChainId(ctx context.Context) (ethtypes.EthUint64, error)
	EthCall(ctx context.Context, tx ethtypes.EthCall, blkParam ethtypes.EthBlockNumberOrHash) (ethtypes.EthBytes, error)
	EthGetBalance(ctx context.Context, addr ethtypes.EthAddress, blkParam ethtypes.EthBlockNumberOrHash) (ethtypes.EthBigInt, error)
	EthGetTransactionReceipt(ctx context.Context, txHash ethtypes.EthHash) (*ethtypes.EthTxReceipt, error)
}
