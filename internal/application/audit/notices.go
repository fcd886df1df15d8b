package audit

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bryanwahyu/automaton-audit/internal/application"
	domain "github.com/bryanwahyu/automaton-audit/internal/domain/audit"
)

const maxNotices = 20

// Notifier receives user-facing status messages.
type Notifier interface {
	Notify(title, description string, variant domain.Variant, d time.Duration)
}

// Notices is a bounded feed of transient notifications for one session.
type Notices struct {
	mu    sync.Mutex
	clock application.Clock
	items []domain.Notification
}

func NewNotices(clock application.Clock) *Notices {
	if clock == nil {
		clock = application.SystemClock{}
	}
	return &Notices{clock: clock}
}

func (n *Notices) Notify(title, description string, variant domain.Variant, d time.Duration) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.items = append(n.items, domain.Notification{
		ID:          uuid.NewString(),
		Title:       title,
		Description: description,
		Variant:     variant,
		DurationMS:  d.Milliseconds(),
		CreatedAt:   n.clock.Now(),
	})
	if len(n.items) > maxNotices {
		n.items = append([]domain.Notification(nil), n.items[len(n.items)-maxNotices:]...)
	}
}

// Active prunes expired notifications and returns the rest, oldest first.
func (n *Notices) Active() []domain.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()

	now := n.clock.Now()
	kept := n.items[:0]
	for _, it := range n.items {
		if !it.Expired(now) {
			kept = append(kept, it)
		}
	}
	n.items = kept
	return append([]domain.Notification(nil), kept...)
}

// Dismiss removes a notification by id and reports whether it was present.
func (n *Notices) Dismiss(id string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	for i, it := range n.items {
		if it.ID == id {
			n.items = append(n.items[:i], n.items[i+1:]...)
			return true
		}
	}
	return false
}
