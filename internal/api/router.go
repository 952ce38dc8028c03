package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Rate limit defaults used when the configured value is zero.
const (
	defaultRequestsPerMinute = 300
	defaultLoginPerMinute    = 10
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		if s.secCfg.RateLimit.Enabled {
			r.Use(s.rateLimit(s.secCfg.RateLimit.RequestsPerMinute, defaultRequestsPerMinute))
		}

		// Health check (no auth required)
		r.Get("/health", s.handleHealth)

		// Auth endpoints (no auth required)
		r.Post("/auth/register", s.handleRegister)
		r.Group(func(r chi.Router) {
			if s.secCfg.RateLimit.Enabled {
				r.Use(s.rateLimit(s.secCfg.RateLimit.LoginPerMinute, defaultLoginPerMinute))
			}
			r.Post("/auth/login", s.handleLogin)
		})

		// WebSocket (auth via ticket, validated in handler)
		r.Get("/ws", s.handleWebSocket)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.Post("/auth/ws-ticket", s.handleWSTicket)
			r.Get("/auth/me", s.handleMe)
			r.Patch("/auth/me", s.handleUpdateProfile)

			r.Route("/devices", func(r chi.Router) {
				r.Get("/", s.handleListDevices)
				r.Post("/", s.handleAddDevice)
				r.Get("/pending", s.handleListPendingDevices)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", s.handleGetDevice)
					r.Delete("/", s.handleDeleteDevice)
					r.Put("/toggle", s.handleToggleDevice)
					r.Put("/temperature", s.handleSetTemperature)
					r.Put("/brightness", s.handleSetBrightness)
					r.Put("/color", s.handleSetColor)
					r.Put("/speed", s.handleSetSpeed)
					r.Put("/approve", s.handleApproveDevice)
					r.Get("/activity", s.handleDeviceActivity)
				})
			})

			r.Route("/rooms", func(r chi.Router) {
				r.Get("/", s.handleListRooms)
				r.Post("/", s.handleCreateRoom)
				r.Get("/moods", s.handleListMoods)
				r.Post("/{id}/apply-mood", s.handleApplyMood)
				r.Delete("/{id}", s.handleDeleteRoom)
			})

			r.Route("/members", func(r chi.Router) {
				r.Get("/", s.handleListMembers)
				r.Post("/", s.handleAddMember)
				r.Put("/{id}/authorize", s.handleAuthorizeMember)
				r.Put("/{id}/role", s.handleChangeRole)
				r.Put("/{id}/photo", s.handleUpdatePhoto)
				r.Delete("/{id}", s.handleDeleteMember)
			})

			r.Get("/logs", s.handleListLogs)
			r.Get("/logs/security", s.handleListSecurityLogs)
		})
	})

	return r
}

// rateLimit returns a per-IP limiter allowing perMinute requests, or
// fallback when perMinute is not set.
func (s *Server) rateLimit(perMinute, fallback int) func(http.Handler) http.Handler {
	if perMinute <= 0 {
		perMinute = fallback
	}
	return httprate.Limit(
		perMinute,
		time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, _ *http.Request) {
			writeError(w, http.StatusTooManyRequests, ErrCodeRateLimited, "too many requests")
		}),
	)
}
