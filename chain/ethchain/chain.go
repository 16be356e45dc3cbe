package ethchain

import (
	"context"
	"sync"
	"time"

	logging "github.com/ipfs/go-log/v2"
	"github.com/jpillora/backoff"
	"golang.org/x/xerrors"

	"github.com/filecoin-project/go-state-types/big"

	"github.com/filecoin-project/foc-uploader/api"
	"github.com/filecoin-project/foc-uploader/chain/types"
	"github.com/filecoin-project/foc-uploader/chain/types/ethtypes"
)

var log = logging.Logger("ethchain")

// NativeDecimals is the scale of FIL balances reported by EthGetBalance.
const NativeDecimals = 18

var (
	balanceOfSelector = ethtypes.EthFunctionSelector("balanceOf(address)")
	decimalsSelector  = ethtypes.EthFunctionSelector("decimals()")
)

// Chain reads balances, the chain id and transaction receipts through the
// Filecoin Eth JSON-RPC API.
type Chain struct {
	node api.EthNode

	minBackoff time.Duration
	maxBackoff time.Duration

	lk       sync.Mutex
	decimals map[ethtypes.EthAddress]uint8
}

var (
	_ api.ChainBalanceSource = (*Chain)(nil)
	_ api.NetworkIdentity    = (*Chain)(nil)
	_ api.TxWaiter           = (*Chain)(nil)
)

func New(node api.EthNode, minBackoff, maxBackoff time.Duration) *Chain {
	return &Chain{
		node:       node,
		minBackoff: minBackoff,
		maxBackoff: maxBackoff,
		decimals:   map[ethtypes.EthAddress]uint8{},
	}
}

func latest() ethtypes.EthBlockNumberOrHash {
	return ethtypes.NewEthBlockNumberOrHashFromPredefined(ethtypes.BlockTagLatest)
}

// BalanceOf returns the ERC-20 balance of account in asset. The zero asset
// address means the native FIL balance.
func (c *Chain) BalanceOf(ctx context.Context, account, asset ethtypes.EthAddress) (types.TokenBalance, error) {
	if asset == (ethtypes.EthAddress{}) {
		bal, err := c.node.EthGetBalance(ctx, account, latest())
		if err != nil {
			return types.TokenBalance{}, xerrors.Errorf("getting native balance of %s: %w", account, err)
		}
		return types.NewTokenBalance(big.Int(bal), NativeDecimals), nil
	}

	decimals, err := c.tokenDecimals(ctx, asset)
	if err != nil {
		return types.TokenBalance{}, err
	}

	data := append(append([]byte{}, balanceOfSelector...), ethtypes.EthAddressWord(account)...)
	word, err := c.call(ctx, asset, data)
	if err != nil {
		return types.TokenBalance{}, xerrors.Errorf("calling balanceOf(%s) on %s: %w", account, asset, err)
	}
	v, err := ethtypes.EthBigIntFromWord(word)
	if err != nil {
		return types.TokenBalance{}, xerrors.Errorf("decoding balanceOf result: %w", err)
	}

	return types.NewTokenBalance(big.Int(v), decimals), nil
}

func (c *Chain) tokenDecimals(ctx context.Context, asset ethtypes.EthAddress) (uint8, error) {
	c.lk.Lock()
	d, ok := c.decimals[asset]
	c.lk.Unlock()
	if ok {
		return d, nil
	}

	word, err := c.call(ctx, asset, decimalsSelector)
	if err != nil {
		return 0, xerrors.Errorf("calling decimals() on %s: %w", asset, err)
	}
	v, err := ethtypes.EthUint64FromBytes(word)
	if err != nil {
		return 0, xerrors.Errorf("decoding decimals result: %w", err)
	}
	if v > 77 {
		return 0, xerrors.Errorf("token %s reports implausible decimals %d", asset, v)
	}

	c.lk.Lock()
	c.decimals[asset] = uint8(v)
	c.lk.Unlock()
	return uint8(v), nil
}

// call performs an eth_call expected to return a single 32 byte word.
func (c *Chain) call(ctx context.Context, to ethtypes.EthAddress, data []byte) ([]byte, error) {
	ret, err := c.node.EthCall(ctx, ethtypes.EthCall{
		To:   &to,
		Data: data,
	}, latest())
	if err != nil {
		return nil, err
	}
	if len(ret) < 32 {
		return nil, xerrors.Errorf("short return data: %d bytes", len(ret))
	}
	return ret[:32], nil
}

func (c *Chain) ChainID(ctx context.Context) (uint64, error) {
	id, err := c.node.EthChainId(ctx)
	if err != nil {
		return 0, xerrors.Errorf("getting chain id: %w", err)
	}
	return uint64(id), nil
}

// WaitTx polls for the receipt of tx until it exists or ctx is done. A
// reverted transaction is returned together with an error.
func (c *Chain) WaitTx(ctx context.Context, tx ethtypes.EthHash) (*ethtypes.EthTxReceipt, error) {
	b := &backoff.Backoff{
		Min:    c.minBackoff,
		Max:    c.maxBackoff,
		Factor: 1.5,
		Jitter: true,
	}

	for ctx.Err() == nil {
		switch receipt, err := c.node.EthGetTransactionReceipt(ctx, tx); {
		case ctx.Err() != nil:
			return nil, ctx.Err()
		case err != nil:
			log.Warnw("Failed to get transaction receipt; retrying after backoff", "tx", tx, "backoff", b.ForAttempt(b.Attempt()), "err", err)
		case receipt == nil:
			log.Debugw("Transaction not yet included", "tx", tx, "attempts", b.Attempt())
		case !receipt.Succeeded():
			return receipt, xerrors.Errorf("transaction %s reverted in block %d", tx, receipt.BlockNumber)
		default:
			log.Infow("Transaction confirmed", "tx", tx, "block", receipt.BlockNumber)
			return receipt, nil
		}

		timer := time.NewTimer(b.Duration())
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	return nil, ctx.Err()
}
