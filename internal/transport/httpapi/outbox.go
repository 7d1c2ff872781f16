package httpapi

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/abhisek/profilebot/internal/session"
)

// maxQueued caps undelivered replies per user; the oldest are dropped.
const maxQueued = 32

// Download links stay valid for fileTTL; past maxFiles the oldest go first.
const (
	maxFiles = 1024
	fileTTL  = 24 * time.Hour
)

// Outbox holds asynchronous replies until the client polls for them. It
// implements bot.Notifier.
type Outbox struct {
	mu      sync.Mutex
	pending map[string][]session.Reply
	files   *expirable.LRU[string, session.Attachment]
}

func NewOutbox() *Outbox {
	return newOutbox(maxFiles, fileTTL)
}

func newOutbox(files int, ttl time.Duration) *Outbox {
	return &Outbox{
		pending: make(map[string][]session.Reply),
		files:   expirable.NewLRU[string, session.Attachment](files, nil, ttl),
	}
}

func (o *Outbox) Notify(_ context.Context, userID string, r session.Reply) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	q := append(o.pending[userID], r)
	if len(q) > maxQueued {
		q = q[len(q)-maxQueued:]
	}
	o.pending[userID] = q
	return nil
}

// Drain returns and forgets the user's queued replies.
func (o *Outbox) Drain(userID string) []session.Reply {
	o.mu.Lock()
	defer o.mu.Unlock()
	q := o.pending[userID]
	delete(o.pending, userID)
	return q
}

// Register makes an attachment downloadable and returns its id.
func (o *Outbox) Register(a session.Attachment) string {
	id := uuid.NewString()
	o.files.Add(id, a)
	return id
}

// File looks up a registered attachment. Expired links report false.
func (o *Outbox) File(id string) (session.Attachment, bool) {
	return o.files.Get(id)
}
