package handlers

import (
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const maxUploadBytes = 32 << 20

// UploadAudio accepts source audio for derived jobs. The file lands on the
// local store for later reference and is forwarded to the provider; the
// returned file_id is what a derived submission passes as source_reference.
func (a *App) UploadAudio(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	if a.Uploader == nil {
		a.error(w, http.StatusServiceUnavailable, "not_configured", "generation backend is not configured")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid multipart payload")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "file field required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "could not read file")
		return
	}
	if len(data) == 0 {
		a.error(w, http.StatusBadRequest, "bad_request", "file is empty")
		return
	}

	purpose := r.FormValue("purpose")
	if purpose == "" {
		purpose = "upload_derived"
	}

	filename := filepath.Base(header.Filename)
	if filename == "" || filename == "." {
		filename = "upload.bin"
	}

	var storageKey string
	if a.Store != nil {
		key := fmt.Sprintf("uploads/%s/%s%s", userID, uuid.NewString(), strings.ToLower(filepath.Ext(filename)))
		saved, err := a.Store.Write(r.Context(), key, data)
		if err != nil {
			a.Logger.Warn().Err(err).Str("user_id", userID).Msg("uploads: persist source audio failed")
		} else {
			storageKey = saved
		}
	}

	fileID, err := a.Uploader.UploadFile(r.Context(), filename, data, purpose)
	if err != nil {
		a.Logger.Error().Err(err).Str("user_id", userID).Msg("uploads: provider upload failed")
		a.error(w, http.StatusBadGateway, "upstream_call_failed", "could not upload file to generation backend")
		return
	}

	a.json(w, http.StatusCreated, map[string]string{
		"file_id":     fileID,
		"storage_key": storageKey,
	})
}
