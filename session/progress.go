package session

import (
	"sync"
	"time"

	"github.com/hannahhoward/go-pubsub"
	"golang.org/x/xerrors"

	"github.com/filecoin-project/foc-uploader/api"
)

type subscriberFn func(api.ProgressState)

// progressFeed fans progress states out to subscribers.
type progressFeed struct {
	ps *pubsub.PubSub
}

func newProgressFeed() progressFeed {
	ps := pubsub.New(func(event pubsub.Event, subFn pubsub.SubscriberFn) error {
		evt, ok := event.(api.ProgressState)
		if !ok {
			return xerrors.Errorf("wrong type of event")
		}
		sub, ok := subFn.(subscriberFn)
		if !ok {
			return xerrors.Errorf("wrong type of subscriber")
		}
		sub(evt)
		return nil
	})
	return progressFeed{ps: ps}
}

func (f progressFeed) subscribe(fn func(api.ProgressState)) func() {
	unsub := f.ps.Subscribe(subscriberFn(fn))
	return func() { unsub() }
}

func (f progressFeed) publish(st api.ProgressState) {
	if err := f.ps.Publish(st); err != nil {
		log.Errorf("unexpected error publishing progress: %s", err)
	}
}

// progressStream is the append-only progress history of one session.
// Percent never decreases.
type progressStream struct {
	feed progressFeed
	// pubLk keeps subscribers seeing states in history order
	pubLk sync.Mutex

	lk      sync.RWMutex
	history []api.ProgressState
}

func newProgressStream() *progressStream {
	return &progressStream{feed: newProgressFeed()}
}

func (p *progressStream) report(stage api.Stage, percent int, message string) api.ProgressState {
	p.pubLk.Lock()
	defer p.pubLk.Unlock()

	p.lk.Lock()
	if percent > 100 {
		percent = 100
	}
	if percent < 0 {
		percent = 0
	}
	if n := len(p.history); n > 0 && percent < p.history[n-1].Percent {
		percent = p.history[n-1].Percent
	}
	st := api.ProgressState{Stage: stage, Percent: percent, Message: message, Time: time.Now()}
	p.history = append(p.history, st)
	p.lk.Unlock()

	p.feed.publish(st)

	log.Debugw("progress", "stage", stage, "percent", percent, "message", message)
	return st
}

func (p *progressStream) latest() (api.ProgressState, bool) {
	p.lk.RLock()
	defer p.lk.RUnlock()
	if len(p.history) == 0 {
		return api.ProgressState{}, false
	}
	return p.history[len(p.history)-1], true
}

func (p *progressStream) snapshot() []api.ProgressState {
	p.lk.RLock()
	defer p.lk.RUnlock()
	out := make([]api.ProgressState, len(p.history))
	copy(out, p.history)
	return out
}
