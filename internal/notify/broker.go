package notify

import (
	"context"
	"log/slog"
	"sync"

	"github.com/garnizeh/marketplace/pkg/models"
)

// Broker fans notifications out to in-process subscribers keyed by user id.
// A subscriber whose buffer is full misses the message; the persisted feed
// remains the source of truth.
type Broker struct {
	mu     sync.RWMutex
	subs   map[string]map[chan models.Notification]struct{}
	buffer int
	logger *slog.Logger
}

var _ Publisher = (*Broker)(nil)

func NewBroker(buffer int, logger *slog.Logger) *Broker {
	if buffer <= 0 {
		buffer = 16
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Broker{subs: make(map[string]map[chan models.Notification]struct{}), buffer: buffer, logger: logger}
}

// Subscribe registers a channel for userID. The returned cancel func
// unregisters and closes it; it is safe to call more than once.
func (b *Broker) Subscribe(userID string) (<-chan models.Notification, func()) {
	ch := make(chan models.Notification, b.buffer)

	b.mu.Lock()
	if b.subs[userID] == nil {
		b.subs[userID] = make(map[chan models.Notification]struct{})
	}
	b.subs[userID][ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs[userID], ch)
			if len(b.subs[userID]) == 0 {
				delete(b.subs, userID)
			}
			b.mu.Unlock()
			close(ch)
		})
	}
}

func (b *Broker) Publish(ctx context.Context, n models.Notification) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for ch := range b.subs[n.UserID] {
		select {
		case ch <- n:
		default:
			b.logger.Warn("subscriber slow, notification dropped", "user_id", n.UserID, "notification_id", n.ID)
		}
	}
}

// Subscribers returns the number of live subscriptions for userID.
func (b *Broker) Subscribers(userID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[userID])
}
