// Package bot runs respondent sessions behind any chat transport. Each user
// id is served by one actor so that messages of a session are applied in
// order while different users proceed in parallel.
package bot

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/abhisek/profilebot/internal/logging"
	"github.com/abhisek/profilebot/internal/metrics"
	"github.com/abhisek/profilebot/internal/report"
	"github.com/abhisek/profilebot/internal/session"
	"github.com/abhisek/profilebot/internal/synth"
)

// DefaultSessionTTL is how long an idle session is kept.
const DefaultSessionTTL = 24 * time.Hour

// Notifier delivers replies that are not answers to an inbound message,
// such as the finished report.
type Notifier interface {
	Notify(ctx context.Context, userID string, r session.Reply) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, userID string, r session.Reply) error

func (f NotifierFunc) Notify(ctx context.Context, userID string, r session.Reply) error {
	return f(ctx, userID, r)
}

// Options configures a Runtime.
type Options struct {
	Machine   *session.Machine
	Synth     *synth.Synthesiser
	Composer  *report.Composer
	Publisher *report.Publisher
	// Notifier may be set later with SetNotifier.
	Notifier Notifier
	Metrics  *metrics.Metrics

	SessionTTL time.Duration
	// MaxSessions caps the registry; 0 means no cap.
	MaxSessions int
	// NotifyTimeout bounds delivery of the final reply. Default 30s.
	NotifyTimeout time.Duration
}

// actor owns one user's session. mu serialises everything that reads or
// replaces sess.
type actor struct {
	mu     sync.Mutex
	sess   *session.Session
	gen    uint64
	cancel context.CancelFunc
}

// stop invalidates any running completion job. Caller holds a.mu.
func (a *actor) stop() {
	a.gen++
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
}

// Runtime is the single entry point of every transport.
type Runtime struct {
	machine   *session.Machine
	synth     *synth.Synthesiser
	composer  *report.Composer
	publisher *report.Publisher
	metrics   *metrics.Metrics
	notifyTTL time.Duration
	log       *slog.Logger

	notifyMu sync.RWMutex
	notifier Notifier

	mu     sync.Mutex
	actors *expirable.LRU[string, *actor]

	base    context.Context
	stopAll context.CancelFunc
	jobs    sync.WaitGroup
}

// New validates options and returns a Runtime.
func New(opts Options) (*Runtime, error) {
	switch {
	case opts.Machine == nil:
		return nil, errors.New("bot: state machine is required")
	case opts.Synth == nil:
		return nil, errors.New("bot: synthesiser is required")
	case opts.Composer == nil:
		return nil, errors.New("bot: composer is required")
	case opts.Publisher == nil:
		return nil, errors.New("bot: publisher is required")
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = DefaultSessionTTL
	}
	if opts.NotifyTimeout <= 0 {
		opts.NotifyTimeout = 30 * time.Second
	}
	base, cancel := context.WithCancel(context.Background())
	return &Runtime{
		machine:   opts.Machine,
		synth:     opts.Synth,
		composer:  opts.Composer,
		publisher: opts.Publisher,
		metrics:   opts.Metrics,
		notifyTTL: opts.NotifyTimeout,
		notifier:  opts.Notifier,
		log:       logging.New("bot"),
		actors:    expirable.NewLRU[string, *actor](opts.MaxSessions, nil, opts.SessionTTL),
		base:      base,
		stopAll:   cancel,
	}, nil
}

// SetNotifier replaces the notifier. Transports that are built after the
// runtime register themselves here.
func (r *Runtime) SetNotifier(n Notifier) {
	r.notifyMu.Lock()
	defer r.notifyMu.Unlock()
	r.notifier = n
}

func (r *Runtime) currentNotifier() Notifier {
	r.notifyMu.RLock()
	defer r.notifyMu.RUnlock()
	return r.notifier
}

// actor returns the user's actor and refreshes its expiry.
func (r *Runtime) actor(userID string) *actor {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.actors.Get(userID)
	if !ok {
		a = &actor{}
	}
	r.actors.Add(userID, a)
	r.metrics.SetActiveSessions(r.actors.Len())
	return a
}

// OnMessage applies one inbound message and returns the immediate reply.
// A user without a session is greeted whatever they sent.
func (r *Runtime) OnMessage(ctx context.Context, userID, text string) session.Reply {
	a := r.actor(userID)
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.sess == nil {
		a.sess = r.machine.New(userID)
		r.metrics.SessionStarted()
		r.log.Info("session started", "session", a.sess.ID, "user", userID)
		return r.machine.Greeting()
	}

	prev := a.sess
	next, reply, effect := r.machine.Handle(prev, text)
	r.observeAnswer(prev, next, text)

	switch effect {
	case session.EffectReset:
		a.stop()
		if !prev.Stage.Terminal() || prev.Pending {
			r.metrics.SessionFinished("reset")
		}
		r.metrics.SessionStarted()
		r.log.Info("session restarted", "session", next.ID, "previous", prev.ID, "user", userID)
	case session.EffectAborted:
		a.stop()
		r.metrics.SessionFinished("aborted")
	case session.EffectCompleted:
		r.start(a, next)
	}
	a.sess = next
	return reply
}

func (r *Runtime) observeAnswer(prev, next *session.Session, text string) {
	inst, ok := prev.Stage.Instrument()
	if !ok || session.IsCommand(text) {
		return
	}
	r.metrics.Answer(string(inst), len(next.Responses) > len(prev.Responses))
}

// Session returns a copy of the user's session.
func (r *Runtime) Session(userID string) (*session.Session, bool) {
	r.mu.Lock()
	a, ok := r.actors.Peek(userID)
	r.mu.Unlock()
	if !ok {
		return nil, false
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.sess == nil {
		return nil, false
	}
	return a.sess.Clone(), true
}

// Shutdown waits for running completion jobs until ctx is done, then
// cancels the rest.
func (r *Runtime) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.jobs.Wait()
		close(done)
	}()
	select {
	case <-done:
		r.stopAll()
		return nil
	case <-ctx.Done():
		r.stopAll()
		<-done
		return ctx.Err()
	}
}
