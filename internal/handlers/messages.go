package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/banterlabs/banter/internal/api/middleware"
)

// WireMessage is one message as sent to clients.
type WireMessage struct {
	ID        string `json:"id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	ImageType string `json:"imageType,omitempty"`
	Timestamp string `json:"timestamp"`
}

// MessagesResponse represents the message history response.
type MessagesResponse struct {
	Success  bool          `json:"success"`
	Messages []WireMessage `json:"messages"`
}

// GetMessages handles fetching a thread's message history.
// Returns 404 when the thread does not exist or belongs to another user.
func (h *Handler) GetMessages(w http.ResponseWriter, r *http.Request) {
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

	messages, err := h.db.ListMessages(r.Context(), threadID)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to load messages")
		return
	}

	wire := make([]WireMessage, 0, len(messages))
	for _, msg := range messages {
		wire = append(wire, WireMessage{
			ID:        msg.ID,
			Role:      msg.Role,
			Content:   msg.Content,
			ImageType: msg.ImageType,
			Timestamp: msg.Timestamp.UTC().Format(time.RFC3339Nano),
		})
	}

	h.JSON(w, http.StatusOK, MessagesResponse{Success: true, Messages: wire})
}
