package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	mw "github.com/lorrc/community-hub/internal/adapters/primary/http/middleware"
	"github.com/lorrc/community-hub/internal/auth"
	"github.com/lorrc/community-hub/internal/core/domain"
	"github.com/lorrc/community-hub/internal/core/ports"
)

// RouterDeps carries everything the HTTP surface is built from.
// Limiters, Health, Metrics and WebSocket are optional.
type RouterDeps struct {
	TokenManager       *auth.TokenManager
	AuthService        ports.AuthService
	ChatService        ports.ChatService
	MaintenanceService ports.MaintenanceService
	MembershipService  ports.MembershipService
	Realtime           RealtimeStats

	WebSocket http.Handler
	Health    *HealthHandler
	Metrics   http.Handler

	CORSOrigins    []string
	GeneralLimiter *mw.RateLimiter
	AuthLimiter    *mw.RateLimiter
	PostLimiter    *mw.RateLimiter

	Logger *slog.Logger
}

// NewRouter assembles the chi router: probes and metrics at the root,
// the REST API and the websocket endpoint under /api/v1.
func NewRouter(deps RouterDeps) chi.Router {
	logger := deps.Logger
	errorHandler := NewErrorHandler(logger)

	authHandler := NewAuthHandler(deps.AuthService, deps.TokenManager, errorHandler, logger)
	meHandler := NewMeHandler(deps.AuthService, errorHandler, logger)
	membershipHandler := NewMembershipHandler(deps.MembershipService, errorHandler, logger)
	maintenanceHandler := NewMaintenanceHandler(deps.MaintenanceService, errorHandler, logger)

	var postLimiter func(http.Handler) http.Handler
	if deps.PostLimiter != nil {
		postLimiter = deps.PostLimiter.PerUser
	}
	chatHandler := NewChatHandler(deps.ChatService, errorHandler, postLimiter, logger)

	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.RequestID)
	r.Use(mw.RequestLogger(logger))
	r.Use(mw.RecoveryLogger(logger))

	if deps.GeneralLimiter != nil {
		r.Use(deps.GeneralLimiter.Middleware)
	}

	// Probe paths stay outside /api/v1
	if deps.Health != nil {
		deps.Health.RegisterRoutes(r)
	}
	if deps.Metrics != nil {
		r.Handle("/metrics", deps.Metrics)
	}

	r.Route("/api/v1", func(r chi.Router) {
		// Authentication for /ws happens inside the controller
		if deps.WebSocket != nil {
			r.Handle("/ws", deps.WebSocket)
		}

		r.Group(func(r chi.Router) {
			r.Use(cors.Handler(cors.Options{
				AllowedOrigins: deps.CORSOrigins,
				AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions},
				AllowedHeaders: []string{"Authorization", "Content-Type", mw.RequestIDHeader},
				ExposedHeaders: []string{mw.RequestIDHeader},
				MaxAge:         300,
			}))

			// Public auth routes with stricter rate limiting
			r.Group(func(r chi.Router) {
				if deps.AuthLimiter != nil {
					r.Use(deps.AuthLimiter.Middleware)
				}
				r.Route("/auth", authHandler.RegisterRoutes)
			})

			// Protected REST routes
			r.Group(func(r chi.Router) {
				r.Use(mw.JWTMiddleware(deps.TokenManager))

				r.Route("/me", meHandler.RegisterRoutes)
				r.Route("/communities/{communityID}", func(r chi.Router) {
					r.Route("/members", membershipHandler.RegisterRoutes)
					r.Route("/messages", chatHandler.RegisterRoutes)
					r.Route("/maintenance", maintenanceHandler.RegisterRoutes)
				})

				if deps.Realtime != nil {
					r.Group(func(r chi.Router) {
						r.Use(mw.RequireRole(domain.RoleAdmin))
						r.Route("/realtime", NewRealtimeHandler(deps.Realtime).RegisterRoutes)
					})
				}
			})
		})
	})

	return r
}
