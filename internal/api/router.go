package api

import (
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/banterlabs/banter/internal/api/middleware"
	"github.com/banterlabs/banter/internal/config"
	"github.com/banterlabs/banter/internal/events"
	"github.com/banterlabs/banter/internal/handlers"
	"github.com/banterlabs/banter/internal/responder"
	"github.com/banterlabs/banter/internal/store"
)

// NewRouter creates and configures the HTTP router.
// redisStore and publisher may be nil.
func NewRouter(cfg *config.Config, logger zerolog.Logger, db store.DataStore, redisStore *store.RedisStore, rsp *responder.Responder, publisher *events.Publisher) *chi.Mux {
	r := chi.NewRouter()

	// Metrics middleware (first to capture all requests)
	r.Use(middleware.Metrics)

	// Security middleware (order matters!)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.MaxBodySize(32 << 20)) // fits a base64-encoded 20MB screenshot
	r.Use(middleware.ValidateRequest)

	// Standard middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(chimw.Recoverer)

	// Rate limiting requires Redis; without it the limiter is skipped
	if redisStore != nil {
		limiter := middleware.NewRateLimiter(redisStore.Client(), logger, middleware.RateLimiterConfig{
			Whitelist:        cfg.RateLimitWhitelist,
			AutoBlockEnabled: cfg.AutoBlockEnabled,
		})
		r.Use(limiter.Middleware)
	}

	// CORS - clients call from anywhere
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Create handler and auth middleware
	h := handlers.NewHandler(db, redisStore, rsp, publisher, logger)
	auth := middleware.NewAuthMiddleware(db)

	// Metrics endpoint (for Prometheus scraping)
	r.Handle("/metrics", promhttp.Handler())

	// Public routes (no auth required)
	r.Get("/", h.Root)
	r.Get("/health", h.Health)
	r.Get("/stats", h.Stats)
	r.Post("/auth/register", h.Register)

	// Authenticated routes (require bearer token)
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth)

		r.Post("/chat/send", h.Send)
		r.Post("/chat/threads", h.CreateThread)
		r.Get("/chat/threads", h.ListThreads)
		r.Get("/chat/threads/{id}", h.GetThread)
		r.Delete("/chat/threads/{id}", h.DeleteThread)
		r.Get("/chat/threads/{id}/messages", h.GetMessages)

		r.Get("/referrals/stats", h.ReferralStats)
		r.Get("/stripe/status", h.ConnectStatus)
		r.Post("/payouts", h.RequestPayout)
		r.Get("/payouts", h.ListPayouts)
	})

	return r
}
