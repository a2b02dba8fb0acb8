package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/banterlabs/banter/internal/api/middleware"
	"github.com/banterlabs/banter/internal/metrics"
	"github.com/banterlabs/banter/internal/models"
)

// CreateThreadRequest represents the thread creation request body.
type CreateThreadRequest struct {
	Title string `json:"title"`
}

// CreateThreadResponse represents the thread creation response.
type CreateThreadResponse struct {
	Success  bool   `json:"success"`
	ThreadID string `json:"threadId"`
}

// ThreadsResponse represents the thread listing response.
type ThreadsResponse struct {
	Success bool            `json:"success"`
	Threads []models.Thread `json:"threads"`
}

// CreateThread handles explicit thread creation.
func (h *Handler) CreateThread(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())

	var req CreateThreadRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.Error(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
	}

	thread, err := h.db.CreateThread(r.Context(), user.ID, sanitizeTitle(req.Title))
	if err != nil {
		h.logger.Error().Err(err).Msg("thread creation failed")
		h.Error(w, http.StatusInternalServerError, "failed to create thread")
		return
	}

	metrics.ThreadsCreated.WithLabelValues("explicit").Inc()

	h.JSON(w, http.StatusCreated, CreateThreadResponse{Success: true, ThreadID: thread.ID})
}

// ListThreads handles listing the caller's threads.
func (h *Handler) ListThreads(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())

	threads, err := h.db.ListThreads(r.Context(), user.ID)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to list threads")
		return
	}
	if threads == nil {
		threads = []models.Thread{}
	}

	h.JSON(w, http.StatusOK, ThreadsResponse{Success: true, Threads: threads})
}

// GetThread handles fetching a single thread. Used by clients to verify
// that a remembered thread ID still exists.
func (h *Handler) GetThread(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	threadID := chi.URLParam(r, "id")

	thread, err := h.db.GetThread(r.Context(), user.ID, threadID)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to load thread")
		return
	}
	if thread == nil {
		h.Error(w, http.StatusNotFound, "thread not found")
		return
	}

	h.JSON(w, http.StatusOK, thread)
}

// DeleteThread handles deleting a thread and its messages.
func (h *Handler) DeleteThread(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	threadID := chi.URLParam(r, "id")

	deleted, err := h.db.DeleteThread(r.Context(), user.ID, threadID)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to delete thread")
		return
	}
	if !deleted {
		h.Error(w, http.StatusNotFound, "thread not found")
		return
	}

	h.JSON(w, http.StatusOK, map[string]bool{"success": true})
}
