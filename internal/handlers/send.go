package handlers

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/banterlabs/banter/internal/api/middleware"
	"github.com/banterlabs/banter/internal/metrics"
	"github.com/banterlabs/banter/internal/models"
)

// maxImageBytes caps decoded screenshot size at 20 MiB.
const maxImageBytes = 20 << 20

// SendRequest represents the send request body. ThreadID is optional;
// the first message of a conversation creates its thread.
type SendRequest struct {
	Message     string `json:"message"`
	Style       string `json:"style"`
	ThreadID    string `json:"threadId"`
	ImageBase64 string `json:"imageBase64"`
	ImageType   string `json:"imageType"`
}

// AssistantReply is the confirmed assistant turn inside a send response.
type AssistantReply struct {
	ID        string `json:"id"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

// SendResponse represents the send response. ThreadID echoes the thread the
// turn landed in, which differs from the request when a thread was created.
type SendResponse struct {
	Success  bool           `json:"success"`
	Response AssistantReply `json:"response"`
	ThreadID string         `json:"threadId"`
}

// Send handles posting a user turn and generating the assistant reply.
func (h *Handler) Send(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())

	var req SendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" && req.ImageBase64 == "" {
		h.Error(w, http.StatusBadRequest, "message is required")
		return
	}

	if req.ImageBase64 != "" {
		if !strings.HasPrefix(req.ImageType, "image/") {
			h.Error(w, http.StatusBadRequest, "only image attachments are supported")
			return
		}
		payload, err := base64.StdEncoding.DecodeString(req.ImageBase64)
		if err != nil {
			h.Error(w, http.StatusBadRequest, "invalid image encoding")
			return
		}
		if len(payload) > maxImageBytes {
			h.Error(w, http.StatusRequestEntityTooLarge, "image exceeds 20MB limit")
			return
		}
	}

	// Resolve the target thread. A missing or stale thread ID starts a
	// fresh thread rather than failing the send.
	threadID := req.ThreadID
	if threadID != "" {
		thread, err := h.db.GetThread(r.Context(), user.ID, threadID)
		if err != nil {
			h.Error(w, http.StatusInternalServerError, "failed to load thread")
			return
		}
		if thread == nil {
			threadID = ""
		}
	}
	if threadID == "" {
		thread, err := h.db.CreateThread(r.Context(), user.ID, sanitizeTitle(req.Message))
		if err != nil {
			h.logger.Error().Err(err).Msg("thread creation failed")
			h.Error(w, http.StatusInternalServerError, "failed to create thread")
			return
		}
		threadID = thread.ID
		metrics.ThreadsCreated.WithLabelValues("first_message").Inc()
	}

	now := time.Now().UTC()

	userMsg := &models.Message{
		ThreadID:  threadID,
		Role:      "user",
		Content:   req.Message,
		ImageType: req.ImageType,
		Timestamp: now,
	}
	if err := h.db.AddMessage(r.Context(), userMsg); err != nil {
		h.logger.Error().Err(err).Str("thread_id", threadID).Msg("message store failed")
		h.Error(w, http.StatusInternalServerError, "failed to store message")
		return
	}

	reply := h.generateReply(r, threadID, &req)

	assistantMsg := &models.Message{
		ThreadID:  threadID,
		Role:      "assistant",
		Content:   reply,
		Timestamp: time.Now().UTC(),
	}
	if err := h.db.AddMessage(r.Context(), assistantMsg); err != nil {
		h.logger.Error().Err(err).Str("thread_id", threadID).Msg("reply store failed")
		h.Error(w, http.StatusInternalServerError, "failed to store reply")
		return
	}

	if err := h.db.TouchThread(r.Context(), threadID); err != nil {
		h.logger.Debug().Err(err).Str("thread_id", threadID).Msg("thread touch failed")
	}

	h.events.PublishTurn(userMsg)
	h.events.PublishTurn(assistantMsg)

	hasImage := "false"
	if req.ImageBase64 != "" {
		hasImage = "true"
	}
	metrics.MessagesSent.WithLabelValues(styleOrDefault(req.Style), hasImage).Inc()

	h.JSON(w, http.StatusOK, SendResponse{
		Success: true,
		Response: AssistantReply{
			ID:        assistantMsg.ID,
			Content:   assistantMsg.Content,
			Timestamp: assistantMsg.Timestamp.Format(time.RFC3339Nano),
		},
		ThreadID: threadID,
	})
}

// generateReply produces the assistant reply, consulting the Redis reply
// cache so an identical resend gets the same answer back.
func (h *Handler) generateReply(r *http.Request, threadID string, req *SendRequest) string {
	style := styleOrDefault(req.Style)

	if h.redis != nil {
		if cached, err := h.redis.GetCachedReply(r.Context(), threadID, req.Message, style); err == nil && cached != nil {
			return cached.Content
		}
	}

	var recent []string
	if h.redis != nil {
		recent = h.redis.RecentReplies(r.Context(), threadID, 5)
	}

	reply := h.responder.Reply(style, req.ImageBase64 != "", recent)

	if h.redis != nil {
		h.redis.RememberReply(r.Context(), threadID, reply)
		_ = h.redis.SetCachedReply(r.Context(), threadID, req.Message, style, &models.Message{Content: reply})
	}

	return reply
}

func styleOrDefault(style string) string {
	switch style {
	case "confident", "flirty", "funny", "smooth":
		return style
	default:
		return "confident"
	}
}
