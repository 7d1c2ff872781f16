package cmd

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/abhisek/profilebot/internal/bot"
	"github.com/abhisek/profilebot/internal/session"
)

// notifyRouter sends a finished report back through the transport the
// user last wrote from.
type notifyRouter struct {
	mu         sync.RWMutex
	transports map[string]bot.Notifier
	via        *expirable.LRU[string, string]
}

func newNotifyRouter(ttl time.Duration) *notifyRouter {
	return &notifyRouter{
		transports: make(map[string]bot.Notifier),
		via:        expirable.NewLRU[string, string](0, nil, ttl),
	}
}

func (r *notifyRouter) register(name string, n bot.Notifier) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transports[name] = n
}

// handler wraps next so that messages arriving through it are remembered
// as coming from transport name.
func (r *notifyRouter) handler(next handler, name string) handler {
	return handlerFunc(func(ctx context.Context, userID, text string) session.Reply {
		r.via.Add(userID, name)
		return next.OnMessage(ctx, userID, text)
	})
}

func (r *notifyRouter) Notify(ctx context.Context, userID string, reply session.Reply) error {
	name, ok := r.via.Get(userID)
	if !ok {
		return fmt.Errorf("no transport known for user %s", userID)
	}
	r.mu.RLock()
	n, ok := r.transports[name]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("transport %s is not registered", name)
	}
	return n.Notify(ctx, userID, reply)
}

type handler interface {
	OnMessage(ctx context.Context, userID, text string) session.Reply
}

type handlerFunc func(ctx context.Context, userID, text string) session.Reply

func (f handlerFunc) OnMessage(ctx context.Context, userID, text string) session.Reply {
	return f(ctx, userID, text)
}
