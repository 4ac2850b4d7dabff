package domain

import "time"

// CreditTransaction is one append-only entry in a user's credit log.
// Delta is negative for consumption and positive for grants. Replaying the
// log for a user never yields a negative balance.
type CreditTransaction struct {
	ID           int64
	UserID       string
	Delta        int
	Reason       string
	JobReference string
	CreatedAt    time.Time
}
