package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"server/internal/domain"
	"server/internal/provider/musicgen"
)

// TaskSubmitter is the slice of the provider client the submitter needs.
type TaskSubmitter interface {
	Configured() bool
	SubmitTask(ctx context.Context, route string, req musicgen.SubmitRequest) (string, error)
}

// PollRegistrar hands confirmed submissions off to the polling loops.
type PollRegistrar interface {
	Schedule(ctx context.Context, job *domain.Job, locale string) bool
}

// SubmitInput is the caller-supplied payload of one generation request.
type SubmitInput struct {
	Kind            domain.JobKind
	Title           string
	Prompt          string
	Lyrics          string
	Visibility      domain.Visibility
	SourceReference string
	Locale          string
}

// Submitter validates preconditions, creates the job record, dispatches the
// external generation call, charges credits and registers the job for
// polling. Side effects are strictly ordered: the external task id is
// persisted before any credit is consumed, and credits are consumed before
// the poll loop starts.
type Submitter struct {
	jobs          domain.JobRepository
	credits       domain.CreditLedger
	notifier      *Notifier
	provider      TaskSubmitter
	scheduler     PollRegistrar
	logger        zerolog.Logger
	creditsPerJob int
}

func NewSubmitter(jobs domain.JobRepository, credits domain.CreditLedger, notifier *Notifier, provider TaskSubmitter, scheduler PollRegistrar, logger zerolog.Logger, creditsPerJob int) *Submitter {
	if creditsPerJob <= 0 {
		creditsPerJob = 1
	}
	return &Submitter{
		jobs:          jobs,
		credits:       credits,
		notifier:      notifier,
		provider:      provider,
		scheduler:     scheduler,
		logger:        logger,
		creditsPerJob: creditsPerJob,
	}
}

// Submit runs the submission flow. Precondition failures (missing owner,
// unconfigured backend, invalid payload) are returned to the caller before
// any record exists. Once a job record has been created, failures are
// recorded on the job instead: the returned job carries the terminal failed
// state and the caller sees a nil error.
func (s *Submitter) Submit(ctx context.Context, ownerID string, in SubmitInput) (*domain.Job, error) {
	if ownerID == "" {
		return nil, domain.ErrUnauthorized
	}
	if s.provider == nil || !s.provider.Configured() {
		return nil, domain.ErrNotConfigured
	}
	if err := validateInput(in); err != nil {
		return nil, err
	}

	visibility := in.Visibility
	if visibility == "" {
		visibility = domain.VisibilityPrivate
	}
	locale := in.Locale
	if locale == "" {
		locale = "en"
	}
	job := &domain.Job{
		ID:              uuid.NewString(),
		OwnerID:         ownerID,
		Kind:            in.Kind,
		Title:           in.Title,
		Prompt:          in.Prompt,
		Lyrics:          in.Lyrics,
		Visibility:      visibility,
		Locale:          locale,
		Status:          domain.JobStatusProcessing,
		Progress:        0,
		StatusMessage:   "submitting request",
		SourceReference: in.SourceReference,
		CreatedAt:       time.Now().UTC(),
	}
	if err := s.jobs.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("create job record: %w", err)
	}

	taskID, err := s.provider.SubmitTask(ctx, routeForKind(in.Kind), buildSubmitRequest(in))
	if err != nil {
		classified := Classify(err)
		s.logger.Error().Err(err).Str("job_id", job.ID).Msg("submitter: provider submission failed")
		s.failJob(ctx, job, locale, classified.Code, classified.Reason)
		return job, nil
	}

	if err := s.jobs.SetExternalTask(ctx, job.ID, taskID); err != nil {
		s.logger.Error().Err(err).Str("job_id", job.ID).Msg("submitter: persist task id failed")
		s.failJob(ctx, job, locale, FailUnknown, "could not record upstream task")
		return job, nil
	}
	job.ExternalTaskID = taskID

	// Charged only after the task id is confirmed, and never retried.
	if err := s.credits.Consume(ctx, ownerID, s.creditsPerJob, "generation", job.ID); err != nil {
		reason := "could not charge credits"
		if errors.Is(err, domain.ErrInsufficientCredits) {
			reason = "insufficient credits"
		}
		s.logger.Warn().Err(err).Str("job_id", job.ID).Msg("submitter: credit consumption failed")
		s.failJob(ctx, job, locale, FailUnknown, reason)
		return job, nil
	}

	s.scheduler.Schedule(ctx, job, locale)
	s.logger.Info().Str("job_id", job.ID).Str("task_id", taskID).Str("kind", string(in.Kind)).Msg("submitter: job dispatched")
	return job, nil
}

func (s *Submitter) failJob(ctx context.Context, job *domain.Job, locale string, code FailureCode, reason string) {
	if err := s.jobs.MarkFailed(ctx, job.ID, string(code), reason); err != nil {
		s.logger.Error().Err(err).Str("job_id", job.ID).Msg("submitter: persist failure failed")
	}
	job.Status = domain.JobStatusFailed
	job.Progress = 100
	job.ErrorCode = string(code)
	job.ErrorDetail = reason
	job.StatusMessage = reason
	s.notifier.JobFailed(ctx, job, locale, reason)
}

func validateInput(in SubmitInput) error {
	if !domain.ValidJobKind(in.Kind) {
		return fmt.Errorf("%w: unsupported kind %q", domain.ErrInvalidPayload, in.Kind)
	}
	switch in.Kind {
	case domain.JobKindSong, domain.JobKindInstrumental, domain.JobKindVoiceClone:
		if in.Prompt == "" {
			return fmt.Errorf("%w: prompt is required for %s jobs", domain.ErrInvalidPayload, in.Kind)
		}
	case domain.JobKindExtend, domain.JobKindUploadDerived, domain.JobKindYoutubeDerived:
		if in.SourceReference == "" {
			return fmt.Errorf("%w: source reference is required for %s jobs", domain.ErrInvalidPayload, in.Kind)
		}
	}
	return nil
}

func buildSubmitRequest(in SubmitInput) musicgen.SubmitRequest {
	req := musicgen.SubmitRequest{N: 1}
	switch in.Kind {
	case domain.JobKindSong:
		req.Prompt = in.Prompt
		req.Lyrics = in.Lyrics
	case domain.JobKindInstrumental, domain.JobKindVoiceClone:
		req.Prompt = in.Prompt
	case domain.JobKindExtend, domain.JobKindUploadDerived, domain.JobKindYoutubeDerived:
		req.FileID = in.SourceReference
		req.Prompt = in.Prompt
	}
	return req
}
