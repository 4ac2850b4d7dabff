package musicgen

// Route segments for the provider's kind-specific endpoints.
const (
	RouteMusic = "music"
	RouteVoice = "voice"
)

// Upstream task status vocabulary.
const (
	TaskPreparing = "preparing"
	TaskQueued    = "queued"
	TaskRunning   = "running"
	TaskStreaming = "streaming"
	TaskSucceeded = "succeeded"
	TaskFailed    = "failed"
	TaskTimeouted = "timeouted"
	TaskCancelled = "cancelled"
)

// SubmitRequest carries the kind-specific fields of a generation submission.
// Exactly one of Prompt, Lyrics or FileID drives the request; N is the
// number of candidates the provider should produce.
type SubmitRequest struct {
	Prompt string `json:"prompt,omitempty"`
	Lyrics string `json:"lyrics,omitempty"`
	FileID string `json:"file_id,omitempty"`
	Model  string `json:"model"`
	N      int    `json:"n"`
}

// Choice is one candidate result of a finished task.
type Choice struct {
	URL      string  `json:"url"`
	FlacURL  string  `json:"flac_url,omitempty"`
	Duration float64 `json:"duration,omitempty"`
	ID       string  `json:"id,omitempty"`
}

// TaskStatus is the normalized shape of a status query. Raw upstream JSON
// never travels past this package.
type TaskStatus struct {
	Status       string
	FailedReason string
	// Progress is nil when upstream omitted it.
	Progress *int
	FileID   string
	Choices  []Choice
}
