package paymentmgr

import (
	"context"
	"sync"

	logging "github.com/ipfs/go-log/v2"
	"go.uber.org/multierr"
	"golang.org/x/xerrors"

	"github.com/filecoin-project/go-state-types/abi"

	"github.com/filecoin-project/foc-uploader/api"
	"github.com/filecoin-project/foc-uploader/chain/types/ethtypes"
	"github.com/filecoin-project/foc-uploader/metrics"
)

var log = logging.Logger("paymentmgr")

var ErrAuthorizationInFlight = xerrors.New("a payment authorization is already in flight")

type Config struct {
	// Token is the asset deposits are made in.
	Token ethtypes.EthAddress
	// Operator is the storage service allowed to draw on the deposit; nil
	// leaves the choice to the ledger.
	Operator        *ethtypes.EthAddress
	MaxLockupPeriod abi.ChainEpoch
}

// Authorizer performs the ledger steps that cover a preflight shortfall:
// asset configuration, spending approval, a single deposit, and waiting for
// that deposit to land.
type Authorizer struct {
	ledger api.Ledger
	waiter api.TxWaiter
	cfg    Config

	// one authorization in flight
	lk sync.Mutex
}

// Receipt records what an authorization submitted.
type Receipt struct {
	Approval *ethtypes.EthHash
	Deposit  ethtypes.EthHash
	// Retried is set when the deposit went through without the asset argument.
	Retried bool
}

func NewAuthorizer(ledger api.Ledger, waiter api.TxWaiter, cfg Config) *Authorizer {
	return &Authorizer{ledger: ledger, waiter: waiter, cfg: cfg}
}

// Authorize deposits amount into the ledger with the allowances in quote.
// Every failure is returned as *api.PaymentFailedError, except
// ErrAuthorizationInFlight.
func (a *Authorizer) Authorize(ctx context.Context, quote api.StorageQuote, amount abi.TokenAmount, progress api.ProgressFunc) (*Receipt, error) {
	if !a.lk.TryLock() {
		return nil, ErrAuthorizationInFlight
	}
	defer a.lk.Unlock()

	if progress == nil {
		progress = func(int, string) {}
	}

	if err := a.ensureToken(ctx); err != nil {
		return nil, &api.PaymentFailedError{Cause: err}
	}
	progress(15, "Payment ledger configured")

	rcpt := &Receipt{}

	approvalTx, err := a.approve(ctx, quote, amount, progress)
	if err != nil {
		return nil, &api.PaymentFailedError{Cause: err}
	}
	if approvalTx != nil {
		rcpt.Approval = approvalTx
		progress(20, "Spending approved")
	}

	progress(25, "Submitting deposit")
	tx, retried, err := a.deposit(ctx, api.DepositParams{
		Amount:          amount,
		LockupAllowance: quote.LockupAllowanceNeeded,
		RateAllowance:   quote.RateAllowanceNeeded,
	})
	if err != nil {
		return nil, &api.PaymentFailedError{Cause: err}
	}
	rcpt.Deposit = tx
	rcpt.Retried = retried
	metrics.Record(ctx, metrics.DepositSubmitted.M(1))

	progress(28, "Waiting for deposit confirmation")
	if _, err := a.waiter.WaitTx(ctx, tx); err != nil {
		return nil, &api.PaymentFailedError{Cause: xerrors.Errorf("waiting for deposit %s: %w", tx, err)}
	}
	progress(30, "Deposit confirmed")

	log.Infow("deposit confirmed", "tx", tx, "amount", amount, "retried", retried)
	return rcpt, nil
}

// approve submits a spending approval through the first entry point the
// ledger actually implements and waits for it. It returns nil when the ledger
// has no approval entry point, which means none is needed.
func (a *Authorizer) approve(ctx context.Context, quote api.StorageQuote, amount abi.TokenAmount, progress api.ProgressFunc) (*ethtypes.EthHash, error) {
	req := approval{
		ServiceApproval: api.ServiceApproval{
			Operator:        a.cfg.Operator,
			RateAllowance:   quote.RateAllowanceNeeded,
			LockupAllowance: quote.LockupAllowanceNeeded,
			MaxLockupPeriod: a.cfg.MaxLockupPeriod,
		},
		Amount: amount,
	}

	for _, ap := range findApprovers(a.ledger) {
		progress(18, "Approving storage service spending")
		tx, err := ap.fn(ctx, req)
		if api.IsNotSupported(err) {
			log.Debugw("ledger does not implement approval method, trying next", "method", ap.method, "error", err)
			continue
		}
		if err != nil {
			return nil, xerrors.Errorf("%s: %w", ap.method, err)
		}
		log.Infow("spending approval submitted", "method", ap.method, "tx", tx)
		if _, err := a.waiter.WaitTx(ctx, tx); err != nil {
			return nil, xerrors.Errorf("waiting for approval %s: %w", tx, err)
		}
		return &tx, nil
	}

	log.Debugw("ledger exposes no approval entry point, assuming none is needed")
	return nil, nil
}

// ensureToken makes sure the ledger deposits in the configured asset.
func (a *Authorizer) ensureToken(ctx context.Context) error {
	if r, ok := tokenReporter(a.ledger); ok {
		cur, err := r.Token(ctx)
		switch {
		case err != nil:
			log.Warnw("could not read ledger asset, reconfiguring", "error", err)
		case cur == a.cfg.Token:
			return nil
		default:
			log.Infow("ledger asset differs, reconfiguring", "current", cur, "expected", a.cfg.Token)
		}
	}

	cs := findConfigurers(a.ledger)
	if len(cs) == 0 {
		return nil
	}

	var errs error
	for _, c := range cs {
		err := c.fn(ctx, a.cfg.Token)
		switch {
		case err == nil:
			log.Infow("ledger asset configured", "method", c.method, "token", a.cfg.Token)
			return nil
		case api.IsNotSupported(err):
			log.Debugw("ledger does not implement asset configuration method", "method", c.method, "error", err)
		default:
			log.Warnw("ledger asset configuration failed", "method", c.method, "error", err)
			errs = multierr.Append(errs, xerrors.Errorf("%s: %w", c.method, err))
		}
	}
	if errs == nil {
		// every configurer turned out to be absent
		return nil
	}
	return xerrors.Errorf("configuring ledger asset %s: %w", a.cfg.Token, errs)
}

// deposit submits the deposit with the asset argument, and once more without
// it if the ledger rejected the argument shape. Rejected calls submit
// nothing, so at most one deposit transaction exists afterwards.
func (a *Authorizer) deposit(ctx context.Context, params api.DepositParams) (ethtypes.EthHash, bool, error) {
	token := a.cfg.Token
	params.Token = &token

	tx, err := a.ledger.Deposit(ctx, params)
	if err == nil {
		return tx, false, nil
	}
	if !api.IsArgumentRejection(err) {
		return ethtypes.EthHash{}, false, xerrors.Errorf("deposit: %w", err)
	}

	log.Warnw("ledger rejected deposit with asset argument, retrying without it", "error", err)
	metrics.Record(ctx, metrics.DepositRetried.M(1))

	params.Token = nil
	tx, err = a.ledger.Deposit(ctx, params)
	if err != nil {
		return ethtypes.EthHash{}, true, xerrors.Errorf("deposit without asset argument: %w", err)
	}
	return tx, true, nil
}
