package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/banterlabs/banter/internal/events"
	"github.com/banterlabs/banter/internal/responder"
	"github.com/banterlabs/banter/internal/store"
)

// Handler contains shared dependencies for all HTTP handlers.
type Handler struct {
	db        store.DataStore
	redis     *store.RedisStore
	responder *responder.Responder
	events    *events.Publisher
	logger    zerolog.Logger
}

// NewHandler creates a new Handler with the given dependencies.
// redis and events may be nil; the relevant features degrade gracefully.
func NewHandler(db store.DataStore, redis *store.RedisStore, rsp *responder.Responder, ev *events.Publisher, logger zerolog.Logger) *Handler {
	return &Handler{db: db, redis: redis, responder: rsp, events: ev, logger: logger}
}

// JSON sends a JSON response with the given status code.
func (h *Handler) JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Error sends a JSON error response with the given status code.
func (h *Handler) Error(w http.ResponseWriter, status int, message string) {
	h.JSON(w, status, map[string]string{"error": message})
}

// sanitizeTitle trims and limits a thread title to 100 characters,
// removing control characters.
func sanitizeTitle(title string) string {
	title = strings.TrimSpace(title)

	// Remove control characters
	title = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, title)

	// Limit to 100 characters, counting runes so a multibyte character is
	// never split.
	if utf8.RuneCountInString(title) > 100 {
		title = string([]rune(title)[:100])
	}

	return title
}
