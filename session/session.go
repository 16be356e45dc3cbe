package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	logging "github.com/ipfs/go-log/v2"
	"go.opencensus.io/tag"
	"golang.org/x/xerrors"

	"github.com/filecoin-project/foc-uploader/api"
	"github.com/filecoin-project/foc-uploader/chain/types/ethtypes"
	"github.com/filecoin-project/foc-uploader/dataset"
	"github.com/filecoin-project/foc-uploader/funds"
	"github.com/filecoin-project/foc-uploader/metrics"
	"github.com/filecoin-project/foc-uploader/paymentmgr"
	"github.com/filecoin-project/foc-uploader/upload"
)

var log = logging.Logger("session")

var (
	ErrEmptyPayload = xerrors.New("payload is empty")
	ErrAlreadyRun   = xerrors.New("session has already been run")
)

// Progress milestones owned by the session itself.
const (
	PercentPreflightStarted = 5
	PercentPreflightDone    = 10
	PercentSucceeded        = 100
)

// StageError is a session failure together with the state it happened in.
type StageError struct {
	State api.Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("upload failed while %s: %s", e.State, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Deps are the collaborators a session talks to.
type Deps struct {
	Ledger api.Ledger
	// Chain is optional; without it only the ledger balance is read.
	Chain api.ChainBalanceSource
	// Identity is optional; without it the chain id is not checked.
	Identity  api.NetworkIdentity
	Waiter    api.TxWaiter
	Transport api.StorageTransport
	// Store is optional.
	Store *Store
}

type Config struct {
	Account ethtypes.EthAddress
	// ChainID is the expected chain; zero skips the check.
	ChainID   uint64
	Duration  funds.DurationPolicy
	Preflight funds.PreflightConfig
	Payment   paymentmgr.Config
}

// Session drives one upload through preflight, payment, data set resolution
// and transfer. A session runs at most once.
type Session struct {
	ID uuid.UUID

	deps Deps
	cfg  Config

	preflight  *funds.PreflightEvaluator
	authorizer *paymentmgr.Authorizer
	resolver   *dataset.Resolver
	driver     *upload.Driver

	progress *progressStream

	lk         sync.Mutex
	state      api.Stage
	ran        bool
	stageStart time.Time
	record     Record
}

func New(deps Deps, cfg Config) *Session {
	cfg.Preflight.Account = cfg.Account
	return &Session{
		ID:         uuid.New(),
		deps:       deps,
		cfg:        cfg,
		preflight:  funds.NewPreflightEvaluator(deps.Ledger, deps.Chain, cfg.Preflight),
		authorizer: paymentmgr.NewAuthorizer(deps.Ledger, deps.Waiter, cfg.Payment),
		resolver:   dataset.NewResolver(deps.Transport, cfg.Account),
		driver:     upload.NewDriver(deps.Transport),
		progress:   newProgressStream(),
		state:      api.StageIdle,
	}
}

func (s *Session) State() api.Stage {
	s.lk.Lock()
	defer s.lk.Unlock()
	return s.state
}

// Progress returns the latest progress state.
func (s *Session) Progress() api.ProgressState {
	st, ok := s.progress.latest()
	if !ok {
		return api.ProgressState{Stage: s.State()}
	}
	return st
}

// History returns every progress state reported so far.
func (s *Session) History() []api.ProgressState {
	return s.progress.snapshot()
}

// Subscribe calls fn for every progress state reported after the call. The
// returned function unsubscribes.
func (s *Session) Subscribe(fn func(api.ProgressState)) func() {
	return s.progress.feed.subscribe(fn)
}

func (s *Session) report(percent int, message string) {
	s.progress.report(s.State(), percent, message)
}

func (s *Session) transition(ctx context.Context, to api.Stage) error {
	s.lk.Lock()
	from := s.state
	if err := checkTransition(from, to); err != nil {
		s.lk.Unlock()
		return err
	}
	now := time.Now()
	if !s.stageStart.IsZero() {
		metrics.Record(ctx, metrics.StageDuration.M(float64(now.Sub(s.stageStart).Nanoseconds())/1e6),
			tag.Upsert(metrics.Stage, string(from)))
	}
	s.state = to
	s.stageStart = now
	s.record.State = to
	s.lk.Unlock()

	log.Debugw("session transition", "session", s.ID, "from", from, "to", to)
	return nil
}

// Run uploads payload. On failure the returned error is a *StageError, except
// for ErrEmptyPayload and ErrAlreadyRun. A non-nil outcome may accompany an
// error once the piece is stored.
func (s *Session) Run(ctx context.Context, payload []byte) (*api.UploadOutcome, error) {
	if len(payload) == 0 {
		return nil, ErrEmptyPayload
	}

	s.lk.Lock()
	if s.ran {
		s.lk.Unlock()
		return nil, ErrAlreadyRun
	}
	s.ran = true
	s.record = Record{ID: s.ID, State: s.state, PayloadSize: len(payload), Started: time.Now()}
	s.lk.Unlock()

	metrics.Record(ctx, metrics.SessionStarted.M(1))
	metrics.Record(ctx, metrics.PayloadSize.M(int64(len(payload))))
	log.Infow("starting upload session", "session", s.ID, "size", len(payload), "account", s.cfg.Account)

	out, err := s.run(ctx, payload)
	s.finish(ctx, out, err)
	return out, err
}

func (s *Session) run(ctx context.Context, payload []byte) (*api.UploadOutcome, error) {
	if err := s.transition(ctx, api.StagePreflighting); err != nil {
		return nil, err
	}
	s.report(PercentPreflightStarted, "Checking funds")

	if err := s.checkNetwork(ctx); err != nil {
		return nil, s.fail(ctx, err)
	}

	existing, err := s.resolver.Reusable(ctx)
	if err != nil {
		return nil, s.fail(ctx, &api.DatasetResolutionError{Cause: err})
	}

	decision, err := s.preflight.Evaluate(ctx, uint64(len(payload)), s.cfg.Duration, existing == nil)
	if err != nil {
		return nil, s.fail(ctx, err)
	}

	if decision.RequiresPayment {
		s.report(PercentPreflightDone, "Deposit required")
		if err := s.transition(ctx, api.StageAuthorizing); err != nil {
			return nil, err
		}
		if _, err := s.authorizer.Authorize(ctx, decision.Quote, decision.TotalDepositNeeded, s.report); err != nil {
			return nil, s.fail(ctx, err)
		}
	} else {
		s.report(PercentPreflightDone, "Sufficient funds available")
	}

	if err := s.transition(ctx, api.StageResolvingDataset); err != nil {
		return nil, err
	}
	handle, err := s.resolver.Resolve(ctx, s.report)
	if err != nil {
		return nil, s.fail(ctx, err)
	}

	if err := s.transition(ctx, api.StageUploading); err != nil {
		return nil, err
	}
	out, err := s.driver.Upload(ctx, handle, payload, s.report)
	if err != nil {
		return nil, s.fail(ctx, err)
	}

	if err := s.transition(ctx, api.StageSucceeded); err != nil {
		return out, err
	}
	s.report(PercentSucceeded, fmt.Sprintf("Upload complete: %s", out.PieceCID))
	return out, nil
}

func (s *Session) checkNetwork(ctx context.Context) error {
	if s.deps.Identity == nil || s.cfg.ChainID == 0 {
		return nil
	}
	id, err := s.deps.Identity.ChainID(ctx)
	if err != nil {
		log.Warnw("could not determine chain id, continuing", "expected", s.cfg.ChainID, "error", err)
		return nil
	}
	if id != s.cfg.ChainID {
		return &api.NetworkMismatchError{Expected: s.cfg.ChainID, Actual: id}
	}
	return nil
}

func (s *Session) fail(ctx context.Context, err error) error {
	st := s.State()
	if terr := s.transition(ctx, api.StageFailed); terr != nil {
		log.Errorw("failing session", "session", s.ID, "state", st, "error", terr)
	}
	s.progress.report(api.StageFailed, 0, err.Error())
	return &StageError{State: st, Err: err}
}

func (s *Session) finish(ctx context.Context, out *api.UploadOutcome, err error) {
	s.lk.Lock()
	s.record.Finished = time.Now()
	s.record.Outcome = out
	if err != nil {
		s.record.Error = err.Error()
	}
	rec := s.record
	state := s.state
	s.lk.Unlock()
	rec.Progress = s.progress.snapshot()

	outcome := "success"
	if err != nil {
		outcome = "failure"
		log.Errorw("upload session failed", "session", s.ID, "state", state, "error", err)
	} else {
		log.Infow("upload session succeeded", "session", s.ID, "piece", out.PieceCID, "confirmed", out.Confirmed)
	}
	metrics.Record(ctx, metrics.SessionFinished.M(1), tag.Upsert(metrics.Outcome, outcome), tag.Upsert(metrics.Stage, string(state)))
	metrics.Record(ctx, metrics.SessionDuration.M(metrics.SinceInMilliseconds(rec.Started)), tag.Upsert(metrics.Outcome, outcome))

	if s.deps.Store == nil {
		return
	}
	// the caller's context may already be cancelled
	if perr := s.deps.Store.Put(context.WithoutCancel(ctx), &rec); perr != nil {
		log.Warnw("failed to persist session record", "session", s.ID, "error", perr)
	}
}
