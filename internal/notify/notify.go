// Package notify persists lifecycle notifications into capped per-user feeds
// and echoes them to live subscribers.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/garnizeh/marketplace/pkg/models"
	"github.com/garnizeh/marketplace/pkg/repository"
)

const DefaultFeedCap = 8

// Publisher receives every persisted notification. Delivery is best-effort.
type Publisher interface {
	Publish(ctx context.Context, n models.Notification)
}

// Meta carries optional deep-link ids.
type Meta struct {
	JobID   string
	QuoteID string
}

type Dispatcher struct {
	store  repository.NotificationRepo
	pub    Publisher
	cap    int
	clock  func() time.Time
	logger *slog.Logger
}

type Option func(*Dispatcher)

// WithClock injects the time source used for created_at.
func WithClock(clock func() time.Time) Option {
	return func(d *Dispatcher) { d.clock = clock }
}

// WithPublisher attaches a live publisher.
func WithPublisher(p Publisher) Option {
	return func(d *Dispatcher) { d.pub = p }
}

// WithCap overrides the per-user feed size.
func WithCap(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.cap = n
		}
	}
}

func NewDispatcher(store repository.NotificationRepo, logger *slog.Logger, opts ...Option) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Dispatcher{store: store, cap: DefaultFeedCap, clock: time.Now, logger: logger}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Dispatcher) Cap() int { return d.cap }

// Notify inserts a notification and trims the recipient's feed to the cap.
// The row is the record of the event; publishing never fails the call.
func (d *Dispatcher) Notify(ctx context.Context, userID string, typ models.NotificationType, title, message string, meta Meta) (*models.Notification, error) {
	if userID == "" {
		return nil, &models.ValidationError{Field: "user_id", Message: "required"}
	}
	// v7 ids are monotonic within the process and break created_at ties in
	// insertion order.
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("notification id: %w", err)
	}
	n := &models.Notification{
		ID:      id.String(),
		UserID:  userID,
		Type:    typ,
		Title:   title,
		Message: message,
		Created: d.clock().UTC().UnixMilli(),
	}
	if meta.JobID != "" {
		n.JobID = &meta.JobID
	}
	if meta.QuoteID != "" {
		n.QuoteID = &meta.QuoteID
	}

	if err := d.store.InsertNotification(ctx, n); err != nil {
		return nil, fmt.Errorf("insert notification: %w", err)
	}
	if trimmed, err := d.store.TrimNotifications(ctx, userID, d.cap); err != nil {
		// the next insert for this user trims again
		d.logger.Warn("trim notifications", "user_id", userID, "err", err)
	} else if trimmed > 0 {
		d.logger.Debug("notifications trimmed", "user_id", userID, "deleted", trimmed)
	}

	if d.pub != nil {
		d.pub.Publish(ctx, *n)
	}
	return n, nil
}

// List returns the user's feed, newest first, never more than the cap.
func (d *Dispatcher) List(ctx context.Context, userID string) ([]models.Notification, error) {
	out, err := d.store.ListNotifications(ctx, userID, d.cap)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []models.Notification{}
	}
	return out, nil
}

func (d *Dispatcher) UnreadCount(ctx context.Context, userID string) (int, error) {
	return d.store.CountUnread(ctx, userID)
}

func (d *Dispatcher) MarkRead(ctx context.Context, notificationID, userID string) error {
	return d.store.MarkRead(ctx, notificationID, userID)
}

func (d *Dispatcher) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	return d.store.MarkAllRead(ctx, userID)
}
