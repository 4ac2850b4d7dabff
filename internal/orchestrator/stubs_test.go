package orchestrator

import (
	"context"
	"sync"

	"server/internal/domain"
	"server/internal/provider/musicgen"
)

// memJobs is an in-memory domain.JobRepository with the same terminal-state
// guarantees as the SQL implementation: mutations apply only to processing
// jobs and progress never decreases. It additionally records every progress
// value it accepted, so tests can assert monotonicity.
type memJobs struct {
	mu          sync.Mutex
	jobs        map[string]*domain.Job
	progressLog map[string][]int
}

func newMemJobs() *memJobs {
	return &memJobs{
		jobs:        make(map[string]*domain.Job),
		progressLog: make(map[string][]int),
	}
}

func (m *memJobs) Create(ctx context.Context, job *domain.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *job
	m.jobs[job.ID] = &clone
	return nil
}

func (m *memJobs) GetByID(ctx context.Context, jobID string) (*domain.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[jobID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *job
	return &clone, nil
}

func (m *memJobs) ListByOwner(ctx context.Context, ownerID string, limit int) ([]domain.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Job
	for _, job := range m.jobs {
		if job.OwnerID == ownerID {
			out = append(out, *job)
		}
	}
	return out, nil
}

func (m *memJobs) ListProcessing(ctx context.Context) ([]domain.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Job
	for _, job := range m.jobs {
		if job.Status == domain.JobStatusProcessing {
			out = append(out, *job)
		}
	}
	return out, nil
}

func (m *memJobs) SetExternalTask(ctx context.Context, jobID, taskID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[jobID]
	if !ok || job.Status != domain.JobStatusProcessing {
		return domain.ErrNotFound
	}
	job.ExternalTaskID = taskID
	return nil
}

func (m *memJobs) UpdateProgress(ctx context.Context, jobID string, progress int, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[jobID]
	if !ok || job.Status != domain.JobStatusProcessing {
		return domain.ErrNotFound
	}
	if progress > job.Progress {
		job.Progress = progress
	}
	job.StatusMessage = message
	m.progressLog[jobID] = append(m.progressLog[jobID], job.Progress)
	return nil
}

func (m *memJobs) MarkSucceeded(ctx context.Context, jobID, audioURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[jobID]
	if !ok || job.Status != domain.JobStatusProcessing {
		return domain.ErrNotFound
	}
	job.Status = domain.JobStatusSucceeded
	job.Progress = 100
	job.StatusMessage = "done"
	job.ResultAudioURL = audioURL
	m.progressLog[jobID] = append(m.progressLog[jobID], 100)
	return nil
}

func (m *memJobs) MarkFailed(ctx context.Context, jobID, errorCode, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[jobID]
	if !ok || job.Status != domain.JobStatusProcessing {
		return domain.ErrNotFound
	}
	job.Status = domain.JobStatusFailed
	job.Progress = 100
	job.StatusMessage = reason
	job.ErrorCode = errorCode
	job.ErrorDetail = reason
	m.progressLog[jobID] = append(m.progressLog[jobID], 100)
	return nil
}

func (m *memJobs) delete(jobID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.jobs, jobID)
}

func (m *memJobs) snapshot(jobID string) domain.Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[jobID]
	if !ok {
		return domain.Job{}
	}
	return *job
}

func (m *memJobs) progressHistory(jobID string) []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int(nil), m.progressLog[jobID]...)
}

// memLedger is an in-memory domain.CreditLedger with the guarded-decrement
// semantics of the SQL implementation.
type memLedger struct {
	mu       sync.Mutex
	balances map[string]int
	txs      []domain.CreditTransaction
}

func newMemLedger() *memLedger {
	return &memLedger{balances: make(map[string]int)}
}

func (m *memLedger) Balance(ctx context.Context, userID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balances[userID], nil
}

func (m *memLedger) Consume(ctx context.Context, userID string, amount int, reason, jobRef string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.balances[userID] < amount {
		return domain.ErrInsufficientCredits
	}
	m.balances[userID] -= amount
	m.txs = append(m.txs, domain.CreditTransaction{
		UserID:       userID,
		Delta:        -amount,
		Reason:       reason,
		JobReference: jobRef,
	})
	return nil
}

func (m *memLedger) Grant(ctx context.Context, userID string, amount int, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[userID] += amount
	m.txs = append(m.txs, domain.CreditTransaction{UserID: userID, Delta: amount, Reason: reason})
	return nil
}

func (m *memLedger) History(ctx context.Context, userID string, limit int) ([]domain.CreditTransaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.CreditTransaction
	for _, tx := range m.txs {
		if tx.UserID == userID {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (m *memLedger) transactionsFor(jobRef string) []domain.CreditTransaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.CreditTransaction
	for _, tx := range m.txs {
		if tx.JobReference == jobRef {
			out = append(out, tx)
		}
	}
	return out
}

// memNotifications is an in-memory domain.NotificationRepository.
type memNotifications struct {
	mu         sync.Mutex
	items      []domain.Notification
	failCreate bool
}

func (m *memNotifications) Create(ctx context.Context, n *domain.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failCreate {
		return context.DeadlineExceeded
	}
	m.items = append(m.items, *n)
	return nil
}

func (m *memNotifications) ListByUser(ctx context.Context, userID string, limit int) ([]domain.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Notification
	for _, n := range m.items {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (m *memNotifications) MarkRead(ctx context.Context, id, userID string) error {
	return nil
}

func (m *memNotifications) all() []domain.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Notification(nil), m.items...)
}

// stubQuerier scripts status query responses and counts calls per task.
type stubQuerier struct {
	mu      sync.Mutex
	calls   map[string]int
	respond func(call int, taskID string) (musicgen.TaskStatus, error)
}

func newStubQuerier(respond func(call int, taskID string) (musicgen.TaskStatus, error)) *stubQuerier {
	return &stubQuerier{calls: make(map[string]int), respond: respond}
}

func (s *stubQuerier) QueryTask(ctx context.Context, route, taskID string) (musicgen.TaskStatus, error) {
	s.mu.Lock()
	s.calls[taskID]++
	call := s.calls[taskID]
	s.mu.Unlock()
	return s.respond(call, taskID)
}

func (s *stubQuerier) callCount(taskID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[taskID]
}

// stubTaskSubmitter fakes the provider's submission endpoint.
type stubTaskSubmitter struct {
	mu         sync.Mutex
	configured bool
	taskID     string
	err        error
	calls      int
}

func (s *stubTaskSubmitter) Configured() bool { return s.configured }

func (s *stubTaskSubmitter) SubmitTask(ctx context.Context, route string, req musicgen.SubmitRequest) (string, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	return s.taskID, nil
}

// stubRegistrar records schedule handoffs.
type stubRegistrar struct {
	mu        sync.Mutex
	scheduled []domain.Job
}

func (s *stubRegistrar) Schedule(ctx context.Context, job *domain.Job, locale string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scheduled = append(s.scheduled, *job)
	return true
}

func (s *stubRegistrar) scheduledJobs() []domain.Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Job(nil), s.scheduled...)
}

// stubPublisher captures published events.
type stubPublisher struct {
	mu        sync.Mutex
	published []string
	err       error
}

func (s *stubPublisher) Publish(subject string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.published = append(s.published, subject+" "+string(data))
	return nil
}

func (s *stubPublisher) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.published)
}
