package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"server/internal/domain"
)

type notificationResponse struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Kind      string    `json:"kind"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

// NotificationsList returns the caller's notifications, newest first.
func (a *App) NotificationsList(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	items, err := a.Notifications.ListByUser(r.Context(), userID, limit)
	if err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to load notifications")
		return
	}
	out := make([]notificationResponse, 0, len(items))
	for _, n := range items {
		out = append(out, notificationResponse{
			ID:        n.ID,
			Title:     n.Title,
			Body:      n.Body,
			Kind:      string(n.Kind),
			Read:      n.Read,
			CreatedAt: n.CreatedAt,
		})
	}
	a.json(w, http.StatusOK, map[string]any{"items": out})
}

// NotificationRead marks one of the caller's notifications as read.
func (a *App) NotificationRead(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	id := chi.URLParam(r, "notification_id")
	if id == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "notification_id required")
		return
	}
	if err := a.Notifications.MarkRead(r.Context(), id, userID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "notification not found")
			return
		}
		a.error(w, http.StatusInternalServerError, "internal", "failed to update notification")
		return
	}
	a.json(w, http.StatusOK, map[string]string{"status": "ok"})
}
