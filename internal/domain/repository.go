package domain

import "context"

// JobRepository defines persistence for generation jobs. Implementations
// must never let a job regress out of a terminal status: the mutation
// methods apply only to jobs still in processing and report ErrNotFound
// when no such job matched, which callers treat as "abandon silently".
type JobRepository interface {
	Create(ctx context.Context, job *Job) error
	GetByID(ctx context.Context, jobID string) (*Job, error)
	ListByOwner(ctx context.Context, ownerID string, limit int) ([]Job, error)
	// ListProcessing returns every job left in processing, used by the
	// startup recovery scan.
	ListProcessing(ctx context.Context) ([]Job, error)
	// SetExternalTask records the upstream task id after a confirmed submission.
	SetExternalTask(ctx context.Context, jobID, taskID string) error
	// UpdateProgress persists a poll tick's progress and message. Progress
	// never decreases.
	UpdateProgress(ctx context.Context, jobID string, progress int, message string) error
	MarkSucceeded(ctx context.Context, jobID, audioURL string) error
	MarkFailed(ctx context.Context, jobID, errorCode, reason string) error
}

// CreditLedger maintains per-user integer balances with an append-only
// transaction log.
type CreditLedger interface {
	Balance(ctx context.Context, userID string) (int, error)
	// Consume atomically decrements the balance, guarded against going
	// negative, and appends a consumption transaction. Returns
	// ErrInsufficientCredits when the balance cannot cover the amount.
	Consume(ctx context.Context, userID string, amount int, reason, jobRef string) error
	Grant(ctx context.Context, userID string, amount int, reason string) error
	History(ctx context.Context, userID string, limit int) ([]CreditTransaction, error)
}

// NotificationRepository persists terminal-state notifications.
type NotificationRepository interface {
	Create(ctx context.Context, n *Notification) error
	ListByUser(ctx context.Context, userID string, limit int) ([]Notification, error)
	MarkRead(ctx context.Context, id, userID string) error
}
