package domain

import "time"

// NotificationKind distinguishes success and failure notices.
type NotificationKind string

const (
	NotificationSuccess NotificationKind = "success"
	NotificationError   NotificationKind = "error"
)

// Notification is a terminal-state message delivered to a job's owner.
// Exactly one is created per job, on its transition into a terminal status.
type Notification struct {
	ID        string
	UserID    string
	Title     string
	Body      string
	Kind      NotificationKind
	Read      bool
	CreatedAt time.Time
}
