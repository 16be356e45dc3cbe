package session

import (
	"context"
	"sync"

	"golang.org/x/xerrors"

	"github.com/filecoin-project/foc-uploader/api"
)

var ErrSessionInFlight = xerrors.New("an upload session is in flight")

// Uploader is the caller facing entry point. Every Upload runs a fresh
// Session; the latest session's progress stays observable until Reset.
type Uploader struct {
	deps Deps
	cfg  Config
	feed progressFeed

	lk      sync.Mutex
	current *Session
	running bool
}

func NewUploader(deps Deps, cfg Config) *Uploader {
	return &Uploader{deps: deps, cfg: cfg, feed: newProgressFeed()}
}

// Upload stores text and returns the resulting outcome.
func (u *Uploader) Upload(ctx context.Context, text string) (*api.UploadOutcome, error) {
	u.lk.Lock()
	if u.running {
		u.lk.Unlock()
		return nil, ErrSessionInFlight
	}
	s := New(u.deps, u.cfg)
	u.current = s
	u.running = true
	u.lk.Unlock()

	unsub := s.Subscribe(u.feed.publish)
	defer func() {
		unsub()
		u.lk.Lock()
		u.running = false
		u.lk.Unlock()
	}()

	return s.Run(ctx, []byte(text))
}

// Progress returns the latest percent and status message, or zero values
// when no session has run since the last Reset.
func (u *Uploader) Progress() (int, string) {
	u.lk.Lock()
	s := u.current
	u.lk.Unlock()
	if s == nil {
		return 0, ""
	}
	st := s.Progress()
	return st.Percent, st.Message
}

// Session returns the latest session, if any.
func (u *Uploader) Session() *Session {
	u.lk.Lock()
	defer u.lk.Unlock()
	return u.current
}

// Subscribe calls fn with the progress of every session this uploader runs.
func (u *Uploader) Subscribe(fn func(api.ProgressState)) func() {
	return u.feed.subscribe(fn)
}

// Reset clears the latest session. It fails while a session is running.
func (u *Uploader) Reset() error {
	u.lk.Lock()
	defer u.lk.Unlock()
	if u.running {
		return ErrSessionInFlight
	}
	u.current = nil
	return nil
}
