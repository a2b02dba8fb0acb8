package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/banterlabs/banter/internal/metrics"
	"github.com/banterlabs/banter/internal/models"
	"github.com/banterlabs/banter/internal/store"
)

type contextKey string

const UserContextKey contextKey = "user"

// AuthMiddleware verifies bearer tokens on authenticated endpoints.
// Tokens have the form "<userID>.<secret>"; only a bcrypt hash of the
// secret is stored server side.
type AuthMiddleware struct {
	db store.DataStore
}

// NewAuthMiddleware creates a new auth middleware.
func NewAuthMiddleware(db store.DataStore) *AuthMiddleware {
	return &AuthMiddleware{db: db}
}

// RequireAuth verifies the Authorization header and puts the user on the
// request context.
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			jsonError(w, http.StatusUnauthorized, "missing authorization header")
			return
		}

		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			jsonError(w, http.StatusUnauthorized, "authorization header must use bearer scheme")
			return
		}

		userID, secret, ok := strings.Cut(token, ".")
		if !ok || userID == "" || secret == "" {
			jsonError(w, http.StatusUnauthorized, "malformed token")
			return
		}

		start := time.Now()
		user, err := m.db.GetUser(r.Context(), userID)
		metrics.StoreLatency.Observe(time.Since(start).Seconds())
		if err != nil {
			jsonError(w, http.StatusInternalServerError, "auth lookup failed")
			return
		}
		if user == nil {
			jsonError(w, http.StatusUnauthorized, "unknown user")
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(user.TokenHash), []byte(secret)); err != nil {
			jsonError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), UserContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func jsonError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// GetUserFromContext retrieves the authenticated user from the request context.
func GetUserFromContext(ctx context.Context) *models.User {
	user, ok := ctx.Value(UserContextKey).(*models.User)
	if !ok {
		return nil
	}
	return user
}
