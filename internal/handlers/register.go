package handlers

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"github.com/banterlabs/banter/internal/metrics"
)

// RegisterResponse represents the registration response. The token is
// returned exactly once; only its bcrypt hash is stored.
type RegisterResponse struct {
	UserID string `json:"userId"`
	Token  string `json:"token"`
}

// Register handles user registration. No request body is required; the
// server mints an anonymous identity and a bearer token of the form
// "<userID>.<secret>".
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	secret := make([]byte, 24)
	if _, err := rand.Read(secret); err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to generate token")
		return
	}
	secretHex := hex.EncodeToString(secret)

	hash, err := bcrypt.GenerateFromPassword([]byte(secretHex), bcrypt.DefaultCost)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to generate token")
		return
	}

	user, err := h.db.CreateUser(r.Context(), string(hash))
	if err != nil {
		h.logger.Error().Err(err).Msg("user creation failed")
		h.Error(w, http.StatusInternalServerError, "failed to create user")
		return
	}

	metrics.UsersRegistered.Inc()

	h.JSON(w, http.StatusCreated, RegisterResponse{
		UserID: user.ID,
		Token:  user.ID + "." + secretHex,
	})
}
