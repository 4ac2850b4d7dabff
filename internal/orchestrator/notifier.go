package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"server/internal/domain"
)

// EventPublisher pushes completion events to real-time consumers.
// *nats.Conn satisfies it.
type EventPublisher interface {
	Publish(subject string, data []byte) error
}

// EventSubjectCompleted is the subject completion events are published on.
const EventSubjectCompleted = "jobs.completed"

// Notifier persists exactly one terminal-state notification per job and,
// when an event publisher is configured, announces the completion on the
// bus. Both paths are best-effort: a delivery failure never rolls back the
// job's terminal state.
type Notifier struct {
	store  domain.NotificationRepository
	events EventPublisher
	logger zerolog.Logger
}

func NewNotifier(store domain.NotificationRepository, events EventPublisher, logger zerolog.Logger) *Notifier {
	return &Notifier{store: store, events: events, logger: logger}
}

// JobSucceeded emits the success notification for a finished job.
func (n *Notifier) JobSucceeded(ctx context.Context, job *domain.Job, locale string) {
	title, body := successText(locale, job.Title)
	n.notify(ctx, job, title, body, domain.NotificationSuccess)
}

// JobFailed emits the failure notification, carrying the classified reason.
func (n *Notifier) JobFailed(ctx context.Context, job *domain.Job, locale, reason string) {
	title, body := failureText(locale, job.Title, reason)
	n.notify(ctx, job, title, body, domain.NotificationError)
}

func (n *Notifier) notify(ctx context.Context, job *domain.Job, title, body string, kind domain.NotificationKind) {
	if n == nil {
		return
	}
	record := &domain.Notification{
		ID:        uuid.NewString(),
		UserID:    job.OwnerID,
		Title:     title,
		Body:      body,
		Kind:      kind,
		CreatedAt: time.Now().UTC(),
	}
	if n.store != nil {
		if err := n.store.Create(ctx, record); err != nil {
			n.logger.Error().Err(err).Str("job_id", job.ID).Msg("notifier: persist notification failed")
		}
	}
	n.publish(job, kind)
}

func (n *Notifier) publish(job *domain.Job, kind domain.NotificationKind) {
	if n.events == nil {
		return
	}
	payload, err := json.Marshal(map[string]string{
		"job_id":  job.ID,
		"user_id": job.OwnerID,
		"status":  string(job.Status),
		"kind":    string(kind),
	})
	if err != nil {
		return
	}
	if err := n.events.Publish(EventSubjectCompleted, payload); err != nil {
		n.logger.Warn().Err(err).Str("job_id", job.ID).Msg("notifier: event publish failed")
	}
}

func successText(locale, jobTitle string) (string, string) {
	if jobTitle == "" {
		jobTitle = "your track"
	}
	if locale == "id" {
		return "Lagu kamu sudah jadi", fmt.Sprintf("%q selesai dibuat dan siap diputar.", jobTitle)
	}
	return "Your track is ready", fmt.Sprintf("%q finished generating and is ready to play.", jobTitle)
}

func failureText(locale, jobTitle, reason string) (string, string) {
	if jobTitle == "" {
		jobTitle = "your track"
	}
	if reason == "" {
		reason = defaultFailureReason
	}
	if locale == "id" {
		return "Pembuatan lagu gagal", fmt.Sprintf("%q gagal dibuat: %s", jobTitle, reason)
	}
	return "Track generation failed", fmt.Sprintf("%q could not be generated: %s", jobTitle, reason)
}
