package orchestrator

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"server/internal/domain"
	"server/internal/provider/musicgen"
)

// StatusQuerier is the slice of the provider client the scheduler needs.
type StatusQuerier interface {
	QueryTask(ctx context.Context, route, taskID string) (musicgen.TaskStatus, error)
}

const (
	DefaultPollInterval    = 10 * time.Second
	DefaultPollMaxAttempts = 30
)

// pollEntry tracks one active polling loop. Entries live only in memory;
// after a restart the registry is rebuilt by Resume from jobs still in
// processing.
type pollEntry struct {
	jobID           string
	taskID          string
	route           string
	ownerID         string
	title           string
	locale          string
	attempts        int
	lastScheduledAt time.Time
}

// Scheduler owns the per-task polling loops: scheduling, deduplication,
// timeout and terminal-state finalization. Each active external task runs
// one goroutine; the mutex around the registry is the only synchronization
// point and is never held across a network call.
//
// Loops run on the base context given at construction, not on the context
// of the call that scheduled them: a submission request finishing must not
// tear down its poll loop. Process shutdown cancels the base context.
//
// Single-instance design: running multiple processes against the same store
// requires replacing the registry with a distributed lease keyed by task id.
type Scheduler struct {
	baseCtx     context.Context
	jobs        domain.JobRepository
	provider    StatusQuerier
	notifier    *Notifier
	logger      zerolog.Logger
	interval    time.Duration
	maxAttempts int

	mu     sync.Mutex
	active map[string]*pollEntry
}

func NewScheduler(ctx context.Context, jobs domain.JobRepository, provider StatusQuerier, notifier *Notifier, logger zerolog.Logger, interval time.Duration, maxAttempts int) *Scheduler {
	if ctx == nil {
		ctx = context.Background()
	}
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultPollMaxAttempts
	}
	return &Scheduler{
		baseCtx:     ctx,
		jobs:        jobs,
		provider:    provider,
		notifier:    notifier,
		logger:      logger,
		interval:    interval,
		maxAttempts: maxAttempts,
		active:      make(map[string]*pollEntry),
	}
}

// Schedule registers the job's external task for polling and starts its
// loop. A second call for the same task id while a loop is active is a
// no-op, so concurrent schedule calls (fresh submission racing the startup
// recovery scan) yield exactly one loop.
func (s *Scheduler) Schedule(ctx context.Context, job *domain.Job, locale string) bool {
	if job == nil || job.ExternalTaskID == "" {
		return false
	}
	entry := &pollEntry{
		jobID:           job.ID,
		taskID:          job.ExternalTaskID,
		route:           routeForKind(job.Kind),
		ownerID:         job.OwnerID,
		title:           job.Title,
		locale:          locale,
		lastScheduledAt: time.Now(),
	}

	s.mu.Lock()
	if _, exists := s.active[entry.taskID]; exists {
		s.mu.Unlock()
		return false
	}
	s.active[entry.taskID] = entry
	s.mu.Unlock()

	go s.run(entry)
	return true
}

// ActiveLoops reports how many polling loops are currently registered.
func (s *Scheduler) ActiveLoops() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.active)
}

// Resume rebuilds the poll registry after a restart. Jobs still processing
// with a task id get a fresh loop; jobs that never reached the provider are
// closed out (no credit was charged for them).
func (s *Scheduler) Resume(ctx context.Context) error {
	jobs, err := s.jobs.ListProcessing(ctx)
	if err != nil {
		return err
	}
	for i := range jobs {
		job := &jobs[i]
		locale := job.Locale
		if locale == "" {
			locale = "en"
		}
		if job.ExternalTaskID == "" {
			s.logger.Warn().Str("job_id", job.ID).Msg("scheduler: job interrupted before dispatch")
			if err := s.jobs.MarkFailed(ctx, job.ID, string(FailUnknown), "interrupted before dispatch"); err == nil {
				job.Status = domain.JobStatusFailed
				s.notifier.JobFailed(ctx, job, locale, "interrupted before dispatch")
			}
			continue
		}
		if s.Schedule(ctx, job, locale) {
			s.logger.Info().Str("job_id", job.ID).Str("task_id", job.ExternalTaskID).Msg("scheduler: resumed polling")
		}
	}
	return nil
}

func (s *Scheduler) drop(taskID string) {
	s.mu.Lock()
	delete(s.active, taskID)
	s.mu.Unlock()
}

func (s *Scheduler) run(e *pollEntry) {
	defer s.drop(e.taskID)

	ctx := s.baseCtx
	timer := time.NewTimer(s.interval)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
		if s.tick(ctx, e) {
			return
		}
		e.lastScheduledAt = time.Now()
		timer.Reset(s.interval)
	}
}

// tick performs one status check. It returns true when the loop must stop:
// terminal state reached, attempt ceiling hit, or the job is no longer
// eligible to continue.
func (s *Scheduler) tick(ctx context.Context, e *pollEntry) bool {
	ts, err := s.provider.QueryTask(ctx, e.route, e.taskID)
	if err != nil {
		if ctx.Err() != nil {
			return true
		}
		// Transport and parse failures finalize immediately. Retrying them
		// would leave the worst case unbounded.
		classified := Classify(err)
		s.logger.Error().Err(err).Str("job_id", e.jobID).Str("task_id", e.taskID).Msg("scheduler: status query failed")
		s.fail(ctx, e, classified.Code, classified.Reason)
		return true
	}

	mapped := MapUpstreamStatus(ts)
	if mapped.Status == domain.JobStatusProcessing {
		if err := s.jobs.UpdateProgress(ctx, e.jobID, mapped.Progress, mapped.Message); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				// Deleted or already finalized elsewhere; walk away without
				// touching anything else.
				return true
			}
			s.logger.Error().Err(err).Str("job_id", e.jobID).Msg("scheduler: progress update failed")
		}
		e.attempts++
		if e.attempts >= s.maxAttempts {
			s.fail(ctx, e, FailTimeout, "timeout")
			return true
		}
		return false
	}

	s.finalize(ctx, e, ts, mapped)
	return true
}

// finalize is the terminal path: persist the final state, notify the owner
// exactly once, and let the registry entry drop.
func (s *Scheduler) finalize(ctx context.Context, e *pollEntry, ts musicgen.TaskStatus, mapped MappedStatus) {
	if mapped.Status == domain.JobStatusSucceeded {
		audioURL := firstAudioURL(ts.Choices)
		if audioURL == "" {
			// Upstream claims success without a result. Treating that as
			// success would hand the user a dead link.
			s.fail(ctx, e, FailMalformedResponse, "succeeded but no audio URL returned")
			return
		}
		if err := s.jobs.MarkSucceeded(ctx, e.jobID, audioURL); err != nil {
			if !errors.Is(err, domain.ErrNotFound) {
				s.logger.Error().Err(err).Str("job_id", e.jobID).Msg("scheduler: persist success failed")
			}
			return
		}
		s.logger.Info().Str("job_id", e.jobID).Str("task_id", e.taskID).Msg("scheduler: job succeeded")
		s.notifier.JobSucceeded(ctx, e.jobView(domain.JobStatusSucceeded), e.locale)
		return
	}

	s.fail(ctx, e, FailUpstreamCall, mapped.Message)
}

func (s *Scheduler) fail(ctx context.Context, e *pollEntry, code FailureCode, reason string) {
	if err := s.jobs.MarkFailed(ctx, e.jobID, string(code), reason); err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.Error().Err(err).Str("job_id", e.jobID).Msg("scheduler: persist failure failed")
		}
		return
	}
	s.logger.Info().Str("job_id", e.jobID).Str("task_id", e.taskID).Str("reason", reason).Msg("scheduler: job failed")
	s.notifier.JobFailed(ctx, e.jobView(domain.JobStatusFailed), e.locale, reason)
}

func (e *pollEntry) jobView(status domain.JobStatus) *domain.Job {
	return &domain.Job{
		ID:             e.jobID,
		OwnerID:        e.ownerID,
		Title:          e.title,
		Status:         status,
		ExternalTaskID: e.taskID,
	}
}

func firstAudioURL(choices []musicgen.Choice) string {
	for _, choice := range choices {
		if choice.URL != "" {
			return choice.URL
		}
		if choice.FlacURL != "" {
			return choice.FlacURL
		}
	}
	return ""
}

func routeForKind(kind domain.JobKind) string {
	if kind == domain.JobKindVoiceClone {
		return musicgen.RouteVoice
	}
	return musicgen.RouteMusic
}
