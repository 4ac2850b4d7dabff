package orchestrator

import (
	"fmt"

	"server/internal/domain"
	"server/internal/provider/musicgen"
)

// MappedStatus is the internal view of one upstream status report.
type MappedStatus struct {
	Status   domain.JobStatus
	Progress int
	Message  string
}

const defaultFailureReason = "generation failed"

// MapUpstreamStatus translates the provider's status vocabulary into job
// state plus progress and a human-readable message. Pure function.
//
// Running tasks map into the 30..80 progress band based on upstream
// progress; an unreported upstream progress lands at 60. Statuses outside
// the known vocabulary are treated as still in flight so the attempt
// ceiling, not a guess, decides their fate.
func MapUpstreamStatus(ts musicgen.TaskStatus) MappedStatus {
	switch ts.Status {
	case musicgen.TaskPreparing:
		return MappedStatus{Status: domain.JobStatusProcessing, Progress: 15, Message: "preparing resources"}
	case musicgen.TaskQueued:
		return MappedStatus{Status: domain.JobStatusProcessing, Progress: 30, Message: "queued"}
	case musicgen.TaskRunning:
		progress := 60
		if ts.Progress != nil {
			progress = 30 + *ts.Progress/2
			if progress < 30 {
				progress = 30
			}
			if progress > 80 {
				progress = 80
			}
		}
		return MappedStatus{Status: domain.JobStatusProcessing, Progress: progress, Message: "generating audio"}
	case musicgen.TaskStreaming:
		return MappedStatus{Status: domain.JobStatusProcessing, Progress: 85, Message: "finalizing"}
	case musicgen.TaskSucceeded:
		return MappedStatus{Status: domain.JobStatusSucceeded, Progress: 100, Message: "done"}
	case musicgen.TaskFailed, musicgen.TaskTimeouted, musicgen.TaskCancelled:
		reason := ts.FailedReason
		if reason == "" {
			reason = defaultFailureReason
		}
		return MappedStatus{Status: domain.JobStatusFailed, Progress: 100, Message: reason}
	default:
		return MappedStatus{
			Status:   domain.JobStatusProcessing,
			Progress: 30,
			Message:  fmt.Sprintf("upstream status: %s", ts.Status),
		}
	}
}
