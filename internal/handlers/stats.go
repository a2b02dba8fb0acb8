package handlers

import (
	"net/http"
)

// StatsResponse represents the response from the public stats endpoint.
type StatsResponse struct {
	TotalUsers    int64 `json:"total_users"`
	TotalThreads  int64 `json:"total_threads"`
	TotalMessages int64 `json:"total_messages"`
}

// Stats returns aggregate platform statistics.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	totalUsers, err := h.db.CountUsers(ctx)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to count users")
		return
	}

	totalThreads, err := h.db.CountThreads(ctx)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to count threads")
		return
	}

	totalMessages, err := h.db.CountMessages(ctx)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to count messages")
		return
	}

	h.JSON(w, http.StatusOK, StatsResponse{
		TotalUsers:    totalUsers,
		TotalThreads:  totalThreads,
		TotalMessages: totalMessages,
	})
}
