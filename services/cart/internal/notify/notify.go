// Package notify delivers human-readable acknowledgements of cart and
// wishlist changes. Delivery is fire-and-forget: sinks never report errors
// back to the caller.
package notify

import (
	"context"
	"log/slog"
	"sync"
)

// Kind classifies a notification.
type Kind string

const (
	KindCartItemAdded       Kind = "cart.item_added"
	KindCartItemRemoved     Kind = "cart.item_removed"
	KindWishlistItemAdded   Kind = "wishlist.item_added"
	KindWishlistItemRemoved Kind = "wishlist.item_removed"
)

// Notification is a transient acknowledgement shown to the shopper.
type Notification struct {
	Kind        Kind   `json:"kind"`
	Owner       string `json:"owner,omitempty"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	ProductID   string `json:"product_id,omitempty"`
}

// Notifier receives notifications.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(ctx context.Context, n Notification)

// Notify calls f(ctx, n).
func (f NotifierFunc) Notify(ctx context.Context, n Notification) {
	f(ctx, n)
}

// Nop discards every notification.
var Nop Notifier = NotifierFunc(func(context.Context, Notification) {})

// Multi fans a notification out to every sink in order.
func Multi(sinks ...Notifier) Notifier {
	return NotifierFunc(func(ctx context.Context, n Notification) {
		for _, s := range sinks {
			if s != nil {
				s.Notify(ctx, n)
			}
		}
	})
}

// LogNotifier writes notifications to a structured logger.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a notifier that logs at info level.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify logs the notification.
func (l *LogNotifier) Notify(ctx context.Context, n Notification) {
	l.logger.InfoContext(ctx, "notification",
		slog.String("kind", string(n.Kind)),
		slog.String("owner", n.Owner),
		slog.String("title", n.Title),
		slog.String("description", n.Description),
	)
}

// Recorder keeps every notification it receives. Safe for concurrent use.
type Recorder struct {
	mu   sync.Mutex
	seen []Notification
}

// Notify records n.
func (r *Recorder) Notify(_ context.Context, n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, n)
}

// All returns a copy of the recorded notifications in arrival order.
func (r *Recorder) All() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notification, len(r.seen))
	copy(out, r.seen)
	return out
}

// Reset forgets all recorded notifications.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = nil
}
