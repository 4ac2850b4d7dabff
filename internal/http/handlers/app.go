package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"server/internal/domain"
	"server/internal/infra"
	"server/internal/middleware"
	"server/internal/orchestrator"
	"server/internal/storage"
)

// JobSubmitter is the submission entrypoint the handlers depend on.
type JobSubmitter interface {
	Submit(ctx context.Context, ownerID string, in orchestrator.SubmitInput) (*domain.Job, error)
}

// FileUploader pushes uploaded source audio to the generation provider.
type FileUploader interface {
	UploadFile(ctx context.Context, filename string, data []byte, purpose string) (string, error)
}

// App bundles the dependencies of the HTTP surface.
type App struct {
	Config        *infra.Config
	Logger        zerolog.Logger
	Jobs          domain.JobRepository
	Credits       domain.CreditLedger
	Notifications domain.NotificationRepository
	Submitter     JobSubmitter
	Uploader      FileUploader
	Store         *storage.FileStore
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, slug, message string) {
	a.json(w, code, map[string]string{"error": slug, "message": message})
}

func (a *App) currentUserID(r *http.Request) string {
	return middleware.UserIDFromContext(r.Context())
}
