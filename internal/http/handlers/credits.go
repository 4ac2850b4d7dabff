package handlers

import (
	"net/http"
	"strconv"
	"time"
)

type creditTransactionResponse struct {
	Delta        int       `json:"delta"`
	Reason       string    `json:"reason"`
	JobReference string    `json:"job_reference,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// CreditsBalance returns the caller's current balance.
func (a *App) CreditsBalance(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	balance, err := a.Credits.Balance(r.Context(), userID)
	if err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to load balance")
		return
	}
	a.json(w, http.StatusOK, map[string]int{"balance": balance})
}

// CreditsHistory returns the caller's transaction log, newest first.
func (a *App) CreditsHistory(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	txs, err := a.Credits.History(r.Context(), userID, limit)
	if err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to load history")
		return
	}
	items := make([]creditTransactionResponse, 0, len(txs))
	for _, tx := range txs {
		items = append(items, creditTransactionResponse{
			Delta:        tx.Delta,
			Reason:       tx.Reason,
			JobReference: tx.JobReference,
			CreatedAt:    tx.CreatedAt,
		})
	}
	a.json(w, http.StatusOK, map[string]any{"items": items})
}
