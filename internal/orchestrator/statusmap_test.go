package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"server/internal/domain"
	"server/internal/provider/musicgen"
)

func TestMapUpstreamStatus(t *testing.T) {
	cases := []struct {
		name string
		in   musicgen.TaskStatus
		want MappedStatus
	}{
		{
			"preparing",
			musicgen.TaskStatus{Status: musicgen.TaskPreparing},
			MappedStatus{domain.JobStatusProcessing, 15, "preparing resources"},
		},
		{
			"queued",
			musicgen.TaskStatus{Status: musicgen.TaskQueued},
			MappedStatus{domain.JobStatusProcessing, 30, "queued"},
		},
		{
			"running without progress",
			musicgen.TaskStatus{Status: musicgen.TaskRunning},
			MappedStatus{domain.JobStatusProcessing, 60, "generating audio"},
		},
		{
			"running scales into band",
			musicgen.TaskStatus{Status: musicgen.TaskRunning, Progress: intPtr(40)},
			MappedStatus{domain.JobStatusProcessing, 50, "generating audio"},
		},
		{
			"running clamps low",
			musicgen.TaskStatus{Status: musicgen.TaskRunning, Progress: intPtr(-10)},
			MappedStatus{domain.JobStatusProcessing, 30, "generating audio"},
		},
		{
			"running clamps high",
			musicgen.TaskStatus{Status: musicgen.TaskRunning, Progress: intPtr(150)},
			MappedStatus{domain.JobStatusProcessing, 80, "generating audio"},
		},
		{
			"streaming",
			musicgen.TaskStatus{Status: musicgen.TaskStreaming},
			MappedStatus{domain.JobStatusProcessing, 85, "finalizing"},
		},
		{
			"succeeded",
			musicgen.TaskStatus{Status: musicgen.TaskSucceeded},
			MappedStatus{domain.JobStatusSucceeded, 100, "done"},
		},
		{
			"failed with reason",
			musicgen.TaskStatus{Status: musicgen.TaskFailed, FailedReason: "content policy"},
			MappedStatus{domain.JobStatusFailed, 100, "content policy"},
		},
		{
			"failed without reason",
			musicgen.TaskStatus{Status: musicgen.TaskFailed},
			MappedStatus{domain.JobStatusFailed, 100, "generation failed"},
		},
		{
			"timeouted",
			musicgen.TaskStatus{Status: musicgen.TaskTimeouted},
			MappedStatus{domain.JobStatusFailed, 100, "generation failed"},
		},
		{
			"cancelled",
			musicgen.TaskStatus{Status: musicgen.TaskCancelled},
			MappedStatus{domain.JobStatusFailed, 100, "generation failed"},
		},
		{
			"unknown status stays in flight",
			musicgen.TaskStatus{Status: "warming_up"},
			MappedStatus{domain.JobStatusProcessing, 30, "upstream status: warming_up"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, MapUpstreamStatus(tc.in))
		})
	}
}
