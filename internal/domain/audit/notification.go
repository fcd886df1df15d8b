package audit

import "time"

// Variant enum
type Variant string

const (
	VariantDefault     Variant = "default"
	VariantDestructive Variant = "destructive"
)

// Notification is a transient, dismissable status message.
type Notification struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Variant     Variant   `json:"variant"`
	DurationMS  int64     `json:"durationMs"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Expired reports whether the notification has outlived its duration.
func (n Notification) Expired(now time.Time) bool {
	return now.Sub(n.CreatedAt) > time.Duration(n.DurationMS)*time.Millisecond
}
