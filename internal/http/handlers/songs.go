package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"server/internal/domain"
	"server/internal/middleware"
	"server/internal/orchestrator"
)

type songGenerateRequest struct {
	Kind            string `json:"kind"`
	Title           string `json:"title"`
	Prompt          string `json:"prompt"`
	Lyrics          string `json:"lyrics"`
	Visibility      string `json:"visibility"`
	SourceReference string `json:"source_reference"`
}

type jobResponse struct {
	ID              string    `json:"id"`
	OwnerID         string    `json:"owner_id"`
	Kind            string    `json:"kind"`
	Title           string    `json:"title"`
	Visibility      string    `json:"visibility"`
	Status          string    `json:"status"`
	Progress        int       `json:"progress"`
	StatusMessage   string    `json:"status_message"`
	ResultAudioURL  string    `json:"result_audio_url,omitempty"`
	ErrorCode       string    `json:"error_code,omitempty"`
	ErrorDetail     string    `json:"error_detail,omitempty"`
	SourceReference string    `json:"source_reference,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

func toJobResponse(job *domain.Job) jobResponse {
	return jobResponse{
		ID:              job.ID,
		OwnerID:         job.OwnerID,
		Kind:            string(job.Kind),
		Title:           job.Title,
		Visibility:      string(job.Visibility),
		Status:          string(job.Status),
		Progress:        job.Progress,
		StatusMessage:   job.StatusMessage,
		ResultAudioURL:  job.ResultAudioURL,
		ErrorCode:       job.ErrorCode,
		ErrorDetail:     job.ErrorDetail,
		SourceReference: job.SourceReference,
		CreatedAt:       job.CreatedAt,
	}
}

// SongsGenerate accepts a generation request and returns the created job.
// The job is returned in whatever state submission left it: processing when
// dispatch succeeded, failed when the provider call was rejected.
func (a *App) SongsGenerate(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	var req songGenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	kind := domain.JobKind(req.Kind)
	if req.Kind == "" {
		kind = domain.JobKindSong
	}

	job, err := a.Submitter.Submit(r.Context(), userID, orchestrator.SubmitInput{
		Kind:            kind,
		Title:           req.Title,
		Prompt:          req.Prompt,
		Lyrics:          req.Lyrics,
		Visibility:      domain.Visibility(req.Visibility),
		SourceReference: req.SourceReference,
		Locale:          middleware.LocaleFromContext(r.Context()),
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUnauthorized):
			a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		case errors.Is(err, domain.ErrNotConfigured):
			a.error(w, http.StatusServiceUnavailable, "not_configured", "generation backend is not configured")
		case errors.Is(err, domain.ErrInvalidPayload):
			a.error(w, http.StatusBadRequest, "bad_request", err.Error())
		default:
			a.Logger.Error().Err(err).Msg("songs: submission failed")
			a.error(w, http.StatusInternalServerError, "internal", "failed to create job")
		}
		return
	}
	a.json(w, http.StatusAccepted, toJobResponse(job))
}
