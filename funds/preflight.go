package funds

import (
	"context"
	mathbig "math/big"

	logging "github.com/ipfs/go-log/v2"
	"go.opencensus.io/tag"
	"golang.org/x/sync/errgroup"
	"golang.org/x/xerrors"

	"github.com/filecoin-project/go-state-types/abi"
	"github.com/filecoin-project/go-state-types/big"

	"github.com/filecoin-project/foc-uploader/api"
	"github.com/filecoin-project/foc-uploader/build"
	"github.com/filecoin-project/foc-uploader/chain/types"
	"github.com/filecoin-project/foc-uploader/chain/types/ethtypes"
	"github.com/filecoin-project/foc-uploader/metrics"
)

var log = logging.Logger("funds")

// ScaleAnomalyPolicy says what to do with a balance that is implausibly small
// for the requirement, which usually means one source reported it at the
// wrong decimal scale.
type ScaleAnomalyPolicy string

const (
	// ScaleAnomalyBypass logs the anomaly and lets the upload proceed to
	// payment, where the ledger has the final word.
	ScaleAnomalyBypass ScaleAnomalyPolicy = "bypass"
	// ScaleAnomalyReject treats the balance at face value.
	ScaleAnomalyReject ScaleAnomalyPolicy = "reject"
)

func ParseScaleAnomalyPolicy(s string) (ScaleAnomalyPolicy, error) {
	switch p := ScaleAnomalyPolicy(s); p {
	case ScaleAnomalyBypass, ScaleAnomalyReject:
		return p, nil
	case "":
		return ScaleAnomalyBypass, nil
	default:
		return "", xerrors.Errorf("unknown scale anomaly policy %q", s)
	}
}

// preflightLedger is the part of the ledger preflight reads from.
type preflightLedger interface {
	Balance(ctx context.Context) (types.TokenBalance, error)
	QuoteStorage(ctx context.Context, size uint64, withCDN bool, epochs abi.ChainEpoch) (api.StorageQuote, error)
}

// DurationPolicy is how long, and how, an upload is stored.
type DurationPolicy struct {
	Epochs  abi.ChainEpoch
	WithCDN bool
}

func DurationForDays(days int, withCDN bool) DurationPolicy {
	return DurationPolicy{Epochs: abi.ChainEpoch(days) * build.EpochsPerDay, WithCDN: withCDN}
}

type PreflightConfig struct {
	Account ethtypes.EthAddress
	Asset   ethtypes.EthAddress
	// Decimals is the scale of quote amounts and of CreationFee.
	Decimals     uint8
	CreationFee  abi.TokenAmount
	Tolerance    *mathbig.Rat
	ScaleAnomaly ScaleAnomalyPolicy
}

// Decision is the outcome of a preflight check.
type Decision struct {
	RequiresPayment    bool
	Quote              api.StorageQuote
	TotalDepositNeeded abi.TokenAmount
	// Balance is the reading the decision was based on; nil when no balance
	// had to be read.
	Balance      *types.BalanceReading
	ScaleAnomaly bool
}

type PreflightEvaluator struct {
	ledger preflightLedger
	chain  api.ChainBalanceSource
	cfg    PreflightConfig
}

// NewPreflightEvaluator creates an evaluator. chain may be nil, in which case
// only the ledger balance is consulted.
func NewPreflightEvaluator(ledger preflightLedger, chain api.ChainBalanceSource, cfg PreflightConfig) *PreflightEvaluator {
	if cfg.Tolerance == nil {
		cfg.Tolerance = new(mathbig.Rat)
		cfg.Tolerance.SetString(build.BalanceTolerance)
	}
	if cfg.CreationFee.Nil() {
		cfg.CreationFee = big.Zero()
	}
	if cfg.ScaleAnomaly == "" {
		cfg.ScaleAnomaly = ScaleAnomalyBypass
	}
	return &PreflightEvaluator{ledger: ledger, chain: chain, cfg: cfg}
}

// Evaluate decides whether an upload of size bytes needs a payment first.
// firstContainer adds the one time data set creation fee.
func (p *PreflightEvaluator) Evaluate(ctx context.Context, size uint64, policy DurationPolicy, firstContainer bool) (*Decision, error) {
	quote, err := p.ledger.QuoteStorage(ctx, size, policy.WithCDN, policy.Epochs)
	if err != nil {
		return nil, xerrors.Errorf("quoting storage for %d bytes: %w", size, err)
	}

	total := quote.DepositAmountNeeded
	if total.Nil() {
		total = big.Zero()
	}
	if firstContainer {
		total = big.Add(total, p.cfg.CreationFee)
	}

	d := &Decision{Quote: quote, TotalDepositNeeded: total}
	if total.IsZero() {
		log.Infow("no deposit needed", "size", size, "epochs", policy.Epochs)
		return d, nil
	}

	bal, err := p.balance(ctx)
	if err != nil {
		return nil, err
	}
	d.Balance = &bal
	metrics.Record(ctx, metrics.BalanceSelected.M(1), tag.Upsert(metrics.Source, bal.Source.String()))

	scale := bal.Decimals
	if p.cfg.Decimals > scale {
		scale = p.cfg.Decimals
	}
	required := types.Rescale(total, p.cfg.Decimals, scale)
	available := types.Rescale(bal.Value, bal.Decimals, scale)

	if available.GreaterThan(big.Zero()) &&
		big.Mul(available, big.NewInt(build.ScaleAnomalyFactor)).LessThan(required) &&
		p.cfg.ScaleAnomaly == ScaleAnomalyBypass {
		log.Warnw("balance is implausibly small for the requirement, assuming a unit scaling defect and proceeding",
			"required", types.FormatTokenAmount(required, scale),
			"available", types.FormatTokenAmount(available, scale),
			"source", bal.Source.String())
		metrics.Record(ctx, metrics.ScaleAnomaly.M(1))
		d.ScaleAnomaly = true
		d.RequiresPayment = true
		return d, nil
	}

	if available.LessThan(required) {
		return nil, &api.InsufficientFundsError{Required: required, Available: available, Decimals: scale}
	}

	d.RequiresPayment = true
	log.Infow("deposit needed",
		"total", types.FormatTokenAmount(total, p.cfg.Decimals),
		"balance", bal.String(), "source", bal.Source.String(), "firstContainer", firstContainer)
	return d, nil
}

// balance reads both sources concurrently and reconciles them. A source that
// fails is treated as having no reading.
func (p *PreflightEvaluator) balance(ctx context.Context) (types.BalanceReading, error) {
	var ledgerReading, chainReading *types.BalanceReading

	var eg errgroup.Group
	eg.Go(func() error {
		b, err := p.ledger.Balance(ctx)
		if err != nil {
			log.Warnw("ledger balance unavailable", "error", err)
			return nil
		}
		ledgerReading = &types.BalanceReading{Source: types.SourceLedger, TokenBalance: b}
		return nil
	})
	if p.chain != nil {
		eg.Go(func() error {
			b, err := p.chain.BalanceOf(ctx, p.cfg.Account, p.cfg.Asset)
			if err != nil {
				log.Warnw("chain balance unavailable", "account", p.cfg.Account, "error", err)
				return nil
			}
			chainReading = &types.BalanceReading{Source: types.SourceChainNative, TokenBalance: b}
			return nil
		})
	}
	_ = eg.Wait()

	return Reconcile(ledgerReading, chainReading, p.cfg.Tolerance)
}
