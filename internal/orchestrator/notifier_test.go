package orchestrator

import (
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"server/internal/domain"
)

func TestNotifierPersistsAndPublishes(t *testing.T) {
	notes := &memNotifications{}
	events := &stubPublisher{}
	n := NewNotifier(notes, events, zerolog.Nop())

	job := &domain.Job{ID: "job-1", OwnerID: "user-1", Title: "My Song", Status: domain.JobStatusSucceeded}
	n.JobSucceeded(context.Background(), job, "en")

	all := notes.all()
	require.Len(t, all, 1)
	assert.Equal(t, domain.NotificationSuccess, all[0].Kind)
	assert.Equal(t, "Your track is ready", all[0].Title)
	assert.Contains(t, all[0].Body, "My Song")
	assert.NotEmpty(t, all[0].ID)

	require.Equal(t, 1, events.count())
	assert.True(t, strings.HasPrefix(events.published[0], EventSubjectCompleted+" "))
	assert.Contains(t, events.published[0], `"job_id":"job-1"`)
}

func TestNotifierLocalizedFailure(t *testing.T) {
	notes := &memNotifications{}
	n := NewNotifier(notes, nil, zerolog.Nop())

	job := &domain.Job{ID: "job-2", OwnerID: "user-1", Status: domain.JobStatusFailed}
	n.JobFailed(context.Background(), job, "id", "timeout")

	all := notes.all()
	require.Len(t, all, 1)
	assert.Equal(t, domain.NotificationError, all[0].Kind)
	assert.Equal(t, "Pembuatan lagu gagal", all[0].Title)
	assert.Contains(t, all[0].Body, "timeout")
}

func TestNotifierStillPublishesWhenStoreFails(t *testing.T) {
	notes := &memNotifications{failCreate: true}
	events := &stubPublisher{}
	n := NewNotifier(notes, events, zerolog.Nop())

	job := &domain.Job{ID: "job-3", OwnerID: "user-1", Status: domain.JobStatusFailed}
	n.JobFailed(context.Background(), job, "en", "network failure")

	assert.Empty(t, notes.all())
	assert.Equal(t, 1, events.count())
}

func TestNotifierToleratesNilPublisher(t *testing.T) {
	notes := &memNotifications{}
	n := NewNotifier(notes, nil, zerolog.Nop())

	job := &domain.Job{ID: "job-4", OwnerID: "user-1", Status: domain.JobStatusSucceeded}
	n.JobSucceeded(context.Background(), job, "en")

	require.Len(t, notes.all(), 1)
}
