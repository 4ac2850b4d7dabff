package domain

import "time"

// JobKind enumerates supported generation job categories.
type JobKind string

const (
	JobKindSong           JobKind = "song"
	JobKindInstrumental   JobKind = "instrumental"
	JobKindVoiceClone     JobKind = "voice_clone"
	JobKindExtend         JobKind = "extend"
	JobKindUploadDerived  JobKind = "upload_derived"
	JobKindYoutubeDerived JobKind = "youtube_derived"
)

// ValidJobKind reports whether the given kind is one of the supported categories.
func ValidJobKind(kind JobKind) bool {
	switch kind {
	case JobKindSong, JobKindInstrumental, JobKindVoiceClone,
		JobKindExtend, JobKindUploadDerived, JobKindYoutubeDerived:
		return true
	}
	return false
}

// JobStatus enumerates job lifecycle states. Succeeded and failed are
// terminal; a job never transitions out of them.
type JobStatus string

const (
	JobStatusProcessing JobStatus = "processing"
	JobStatusSucceeded  JobStatus = "succeeded"
	JobStatusFailed     JobStatus = "failed"
)

// Visibility controls whether a finished track is publicly listable.
type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

// Job encapsulates the lifecycle of one audio generation request.
type Job struct {
	ID             string
	OwnerID        string
	Kind           JobKind
	Title          string
	Prompt         string
	Lyrics         string
	Visibility     Visibility
	// Locale captures the submitter's locale so completion notifications
	// keep their language across restarts.
	Locale         string
	Status         JobStatus
	ExternalTaskID string
	Progress       int
	StatusMessage  string
	ResultAudioURL string
	ErrorCode      string
	ErrorDetail    string
	// SourceReference holds the original job id for extend jobs, or the
	// uploaded/provider file id for derived jobs.
	SourceReference string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Terminal reports whether the job has reached a final state.
func (j *Job) Terminal() bool {
	return j.Status == JobStatusSucceeded || j.Status == JobStatusFailed
}
