package session

import (
	"context"
	"errors"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	ds "github.com/ipfs/go-datastore"
	ds_sync "github.com/ipfs/go-datastore/sync"
	"github.com/stretchr/testify/require"

	"github.com/filecoin-project/go-state-types/abi"
	"github.com/filecoin-project/go-state-types/big"

	"github.com/filecoin-project/foc-uploader/api"
	"github.com/filecoin-project/foc-uploader/chain/types"
	"github.com/filecoin-project/foc-uploader/chain/types/ethtypes"
	"github.com/filecoin-project/foc-uploader/funds"
	"github.com/filecoin-project/foc-uploader/paymentmgr"
	"github.com/filecoin-project/foc-uploader/storage/pdp"
	"github.com/filecoin-project/foc-uploader/storage/pdp/pdptest"
)

var (
	account = ethtypes.EthAddress{0x01, 0x18, 0x4f, 0x79}
	usdfc   = ethtypes.EthAddress{0xb3, 0x04, 0x27}
)

func tokens(s string) abi.TokenAmount {
	return types.MustParseTokenAmount(s, 18)
}

type fakeLedger struct {
	lk       sync.Mutex
	balance  abi.TokenAmount
	deposit  abi.TokenAmount
	deposits []api.DepositParams

	// quoteEntered and quoteBlock hold QuoteStorage until released
	quoteEntered chan struct{}
	quoteBlock   chan struct{}
}

func (f *fakeLedger) Balance(ctx context.Context) (types.TokenBalance, error) {
	return types.NewTokenBalance(f.balance, 18), nil
}

func (f *fakeLedger) QuoteStorage(ctx context.Context, size uint64, withCDN bool, epochs abi.ChainEpoch) (api.StorageQuote, error) {
	if f.quoteEntered != nil {
		close(f.quoteEntered)
		<-f.quoteBlock
	}
	return api.StorageQuote{
		DepositAmountNeeded:   f.deposit,
		LockupAllowanceNeeded: f.deposit,
		RateAllowanceNeeded:   big.NewInt(1000),
	}, nil
}

func (f *fakeLedger) Deposit(ctx context.Context, p api.DepositParams) (ethtypes.EthHash, error) {
	f.lk.Lock()
	defer f.lk.Unlock()
	f.deposits = append(f.deposits, p)
	return ethtypes.EthHash{0xde, byte(len(f.deposits))}, nil
}

type fakeWaiter struct{}

func (fakeWaiter) WaitTx(ctx context.Context, hash ethtypes.EthHash) (*ethtypes.EthTxReceipt, error) {
	return &ethtypes.EthTxReceipt{TransactionHash: hash, Status: 1}, nil
}

type fakeIdentity uint64

func (f fakeIdentity) ChainID(ctx context.Context) (uint64, error) {
	if f == 0 {
		return 0, errors.New("rpc down")
	}
	return uint64(f), nil
}

type harness struct {
	ledger    *fakeLedger
	provider  *pdptest.Provider
	transport *pdp.Transport
	deps      Deps
	cfg       Config
}

func newHarness(t *testing.T) *harness {
	prov := pdptest.NewProvider()
	srv := httptest.NewServer(prov)
	t.Cleanup(srv.Close)

	gw := &pdptest.Gateway{Provider: prov, ProviderID: 3}
	tr := pdp.NewTransport(pdp.Config{
		ServiceURL:        srv.URL,
		ProviderID:        3,
		Payer:             account,
		MinBackoff:        time.Millisecond,
		MaxBackoff:        5 * time.Millisecond,
		ConfirmationPolls: 5,
	}, gw, gw)

	ledger := &fakeLedger{balance: tokens("10"), deposit: tokens("1")}

	return &harness{
		ledger:    ledger,
		provider:  prov,
		transport: tr,
		deps: Deps{
			Ledger:    ledger,
			Identity:  fakeIdentity(314159),
			Waiter:    fakeWaiter{},
			Transport: tr,
			Store:     NewStore(ds_sync.MutexWrap(ds.NewMapDatastore())),
		},
		cfg: Config{
			Account:  account,
			ChainID:  314159,
			Duration: funds.DurationForDays(30, false),
			Preflight: funds.PreflightConfig{
				Asset:       usdfc,
				Decimals:    18,
				CreationFee: tokens("0.1"),
			},
			Payment: paymentmgr.Config{Token: usdfc},
		},
	}
}

func stages(h []api.ProgressState) []api.Stage {
	var out []api.Stage
	for _, st := range h {
		if len(out) == 0 || out[len(out)-1] != st.Stage {
			out = append(out, st.Stage)
		}
	}
	return out
}

func requireMonotonic(t *testing.T, h []api.ProgressState) {
	for i := 1; i < len(h); i++ {
		require.GreaterOrEqual(t, h[i].Percent, h[i-1].Percent, "progress went from %v to %v", h[i-1], h[i])
	}
}

func TestUploadHello(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	s := New(h.deps, h.cfg)
	out, err := s.Run(ctx, []byte("hello"))
	require.NoError(t, err)
	require.True(t, out.PieceCID.Defined())
	require.NotEmpty(t, out.PieceCID.String())
	require.True(t, out.Confirmed)
	require.NotNil(t, out.TxHash)

	hist := s.History()
	require.Equal(t, []api.Stage{
		api.StagePreflighting,
		api.StageAuthorizing,
		api.StageResolvingDataset,
		api.StageUploading,
		api.StageSucceeded,
	}, stages(hist))
	requireMonotonic(t, hist)
	require.Equal(t, 100, hist[len(hist)-1].Percent)
	require.Equal(t, api.StageSucceeded, s.State())

	// first data set, so the creation fee is part of the single deposit
	require.Len(t, h.ledger.deposits, 1)
	require.Equal(t, tokens("1.1"), h.ledger.deposits[0].Amount)
	require.Equal(t, usdfc, *h.ledger.deposits[0].Token)

	require.Equal(t, []string{out.PieceCID.String()}, h.provider.DataSets[1])

	rec, err := h.deps.Store.Get(ctx, s.ID)
	require.NoError(t, err)
	require.Equal(t, api.StageSucceeded, rec.State)
	require.Equal(t, 5, rec.PayloadSize)
	require.Equal(t, out.PieceCID, rec.Outcome.PieceCID)
	require.Len(t, rec.Progress, len(hist))
	require.Empty(t, rec.Error)
}

func TestUploadNoPaymentNeeded(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	_, err := h.transport.CreateContainer(ctx, api.CreateCallbacks{})
	require.NoError(t, err)
	h.ledger.deposit = big.Zero()

	s := New(h.deps, h.cfg)
	out, err := s.Run(ctx, []byte("hello again"))
	require.NoError(t, err)
	require.True(t, out.PieceCID.Defined())

	require.Equal(t, []api.Stage{
		api.StagePreflighting,
		api.StageResolvingDataset,
		api.StageUploading,
		api.StageSucceeded,
	}, stages(s.History()))
	require.Empty(t, h.ledger.deposits)

	// the existing data set was reused
	require.Len(t, h.provider.DataSets, 1)
	require.Len(t, h.provider.DataSets[1], 1)
}

func TestUploadInsufficientFunds(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.ledger.balance = tokens("0.5")

	s := New(h.deps, h.cfg)
	out, err := s.Run(ctx, []byte("hello"))
	require.Nil(t, out)

	var se *StageError
	require.ErrorAs(t, err, &se)
	require.Equal(t, api.StagePreflighting, se.State)

	var ife *api.InsufficientFundsError
	require.ErrorAs(t, err, &ife)
	require.Equal(t, tokens("1.1"), ife.Required)

	require.Empty(t, h.ledger.deposits)
	require.Empty(t, h.provider.DataSets)
	require.Equal(t, api.StageFailed, s.State())
	requireMonotonic(t, s.History())

	rec, err := h.deps.Store.Get(ctx, s.ID)
	require.NoError(t, err)
	require.Equal(t, api.StageFailed, rec.State)
	require.NotEmpty(t, rec.Error)
}

func TestUploadNetworkMismatch(t *testing.T) {
	h := newHarness(t)
	h.deps.Identity = fakeIdentity(314)

	_, err := New(h.deps, h.cfg).Run(context.Background(), []byte("hello"))
	var nme *api.NetworkMismatchError
	require.ErrorAs(t, err, &nme)
	require.EqualValues(t, 314159, nme.Expected)
	require.EqualValues(t, 314, nme.Actual)
}

func TestUploadChainIDUnavailable(t *testing.T) {
	h := newHarness(t)
	h.deps.Identity = fakeIdentity(0)

	_, err := New(h.deps, h.cfg).Run(context.Background(), []byte("hello"))
	require.NoError(t, err)
}

func TestUploadPartialOutcome(t *testing.T) {
	h := newHarness(t)
	h.provider.FailAddPieces = true

	s := New(h.deps, h.cfg)
	out, err := s.Run(context.Background(), []byte("hello"))
	require.NoError(t, err)
	require.True(t, out.PieceCID.Defined())
	require.False(t, out.Confirmed)
	require.Nil(t, out.TxHash)
	require.Equal(t, api.StageSucceeded, s.State())
}

func TestUploadTransferFails(t *testing.T) {
	h := newHarness(t)
	h.provider.FailUploads = true

	s := New(h.deps, h.cfg)
	out, err := s.Run(context.Background(), []byte("hello"))
	require.Nil(t, out)

	var se *StageError
	require.ErrorAs(t, err, &se)
	require.Equal(t, api.StageUploading, se.State)
	var ufe *api.UploadFailedError
	require.ErrorAs(t, err, &ufe)
}

func TestRunOnce(t *testing.T) {
	h := newHarness(t)
	s := New(h.deps, h.cfg)

	_, err := s.Run(context.Background(), nil)
	require.ErrorIs(t, err, ErrEmptyPayload)
	require.Equal(t, api.StageIdle, s.State())

	_, err = s.Run(context.Background(), []byte("hello"))
	require.NoError(t, err)

	_, err = s.Run(context.Background(), []byte("hello"))
	require.ErrorIs(t, err, ErrAlreadyRun)
}

func TestUploaderReset(t *testing.T) {
	h := newHarness(t)
	h.ledger.quoteEntered = make(chan struct{})
	h.ledger.quoteBlock = make(chan struct{})

	u := NewUploader(h.deps, h.cfg)

	var (
		lk   sync.Mutex
		seen []api.ProgressState
	)
	unsub := u.Subscribe(func(st api.ProgressState) {
		lk.Lock()
		seen = append(seen, st)
		lk.Unlock()
	})
	defer unsub()

	done := make(chan error, 1)
	go func() {
		_, err := u.Upload(context.Background(), "hello")
		done <- err
	}()

	<-h.ledger.quoteEntered
	require.ErrorIs(t, u.Reset(), ErrSessionInFlight)
	_, err := u.Upload(context.Background(), "other")
	require.ErrorIs(t, err, ErrSessionInFlight)

	pct, msg := u.Progress()
	require.Equal(t, PercentPreflightStarted, pct)
	require.Equal(t, "Checking funds", msg)

	close(h.ledger.quoteBlock)
	require.NoError(t, <-done)

	pct, _ = u.Progress()
	require.Equal(t, 100, pct)

	lk.Lock()
	require.NotEmpty(t, seen)
	require.Equal(t, 100, seen[len(seen)-1].Percent)
	requireMonotonic(t, seen)
	lk.Unlock()

	require.NoError(t, u.Reset())
	pct, msg = u.Progress()
	require.Zero(t, pct)
	require.Empty(t, msg)
	require.Nil(t, u.Session())
}
