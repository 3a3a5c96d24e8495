package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"eventcal-backend/internal/logging"
	"eventcal-backend/internal/server/config"
	"eventcal-backend/internal/server/models"
	"eventcal-backend/internal/server/notify"
	"eventcal-backend/internal/server/services"
)

// The server depends on the service layer through these interfaces so the
// handlers can be exercised against fakes.

type authService interface {
	Register(ctx context.Context, username, email, password string) (*models.User, error)
	Login(ctx context.Context, login, password string) (*services.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*services.TokenPair, error)
	Logout(ctx context.Context, accessToken, refreshToken string) error
	CurrentUser(ctx context.Context, accessToken string) (*models.User, error)
}

type eventService interface {
	Create(ctx context.Context, ownerID string, in services.EventInput) (*models.Event, error)
	CreateBatch(ctx context.Context, ownerID string, inputs []services.EventInput) ([]*models.Event, error)
	Get(ctx context.Context, actorID, eventID string) (*models.Event, error)
	List(ctx context.Context, actorID string, skip, limit int) ([]*models.Event, error)
	Update(ctx context.Context, actorID, eventID string, upd services.EventUpdate) (*models.Event, error)
	Delete(ctx context.Context, actorID, eventID string) error
}

type permissionService interface {
	Grant(ctx context.Context, actorID, eventID string, grants []services.PermissionGrant) ([]*models.Permission, error)
	List(ctx context.Context, actorID, eventID string) ([]*models.Permission, error)
	Update(ctx context.Context, actorID, eventID, userID string, role models.PermissionRole) error
	Delete(ctx context.Context, actorID, eventID, userID string) error
}

type historyService interface {
	List(ctx context.Context, actorID, eventID string) ([]*models.History, error)
	GetVersion(ctx context.Context, actorID, eventID, versionID string) (*models.History, error)
	Rollback(ctx context.Context, actorID, eventID, versionID string) (*models.Event, error)
	Diff(ctx context.Context, actorID, eventID, fromID, toID string) (*models.SnapshotDiff, error)
}

// Server wires the HTTP surface to the service layer and the local
// connection registry.
type Server struct {
	auth            authService
	events          eventService
	permissions     permissionService
	history         historyService
	registry        *notify.Registry
	logger          logging.Logger
	refreshValidity time.Duration
	allowedOrigins  []string
}

func NewServer(
	auth authService,
	events eventService,
	permissions permissionService,
	history historyService,
	registry *notify.Registry,
	cfg *config.Config,
	logger logging.Logger,
) *Server {
	return &Server{
		auth:            auth,
		events:          events,
		permissions:     permissions,
		history:         history,
		registry:        registry,
		logger:          logger,
		refreshValidity: cfg.RefreshTokenValidityDuration,
		allowedOrigins:  strings.Split(cfg.CORSAllowedOrigins, ","),
	}
}

// Router builds the chi router with the full route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", s.handleRegister)
			r.Post("/login", s.handleLogin)
			r.Post("/refresh", s.handleRefresh)
			r.Post("/logout", s.handleLogout)
		})

		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Use(middleware.Timeout(30 * time.Second))

			r.Route("/events", func(r chi.Router) {
				r.Post("/", s.handleEventCreate)
				r.Get("/", s.handleEventList)
				r.Post("/batch", s.handleEventCreateBatch)

				r.Route("/{eventID}", func(r chi.Router) {
					r.Get("/", s.handleEventGet)
					r.Put("/", s.handleEventUpdate)
					r.Delete("/", s.handleEventDelete)

					r.Post("/share", s.handleShare)
					r.Route("/permissions", func(r chi.Router) {
						r.Get("/", s.handlePermissionList)
						r.Put("/{userID}", s.handlePermissionUpdate)
						r.Delete("/{userID}", s.handlePermissionDelete)
					})

					r.Get("/history", s.handleHistoryList)
					r.Get("/history/{versionID}", s.handleHistoryGetVersion)
					r.Post("/rollback/{versionID}", s.handleRollback)
					r.Get("/diff/{fromID}/{toID}", s.handleDiff)
				})
			})
		})

		// The WebSocket endpoint authenticates via query parameter because
		// browser WebSocket clients cannot set headers.
		r.Get("/ws/notifications", s.handleNotificationsWS)
	})

	return r
}
