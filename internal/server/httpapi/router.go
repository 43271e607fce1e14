package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/pkg/errors"

	"medequip/internal/server/service"
	"medequip/internal/shared/apperr"
	"medequip/internal/shared/logs"
)

// Pinger reports whether the database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Router struct {
	services        *service.Services
	db              Pinger
	logger          *slog.Logger
	maxRequestBytes int64
}

// NewRouter mounts the API under /api.
func NewRouter(services *service.Services, db Pinger, logger *slog.Logger, maxRequestBytes int64) http.Handler {
	if logger == nil {
		logger = logs.Discard()
	}
	r := &Router{services: services, db: db, logger: logger, maxRequestBytes: maxRequestBytes}
	mux := chi.NewRouter()
	mux.Use(middleware.RequestID)
	mux.Use(r.requestLogger)
	mux.Use(middleware.Recoverer)
	mux.Use(r.limitBody)

	mux.Route("/api", func(api chi.Router) {
		api.Get("/health", r.handleHealth)
		api.Get("/openapi.yaml", r.handleSwagger)
		api.Post("/login", r.handleLogin)

		api.Group(func(pr chi.Router) {
			pr.Use(r.authMiddleware)
			pr.Get("/me", r.handleMe)
			pr.Get("/equipamentos", r.handleListEquipment)
			pr.Post("/equipamentos", r.handleCreateEquipment)
			pr.Get("/manutencoes", r.handleListMaintenance)
			pr.Post("/manutencoes", r.handleCreateMaintenance)
			pr.Get("/relatorios", r.handleReport)
			pr.Get("/notificacoes", r.handleNotifications)
		})
	})

	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

// writeError maps service errors to status codes. Unexpected errors are
// logged and reported as a bare 500.
func (r *Router) writeError(w http.ResponseWriter, req *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials), errors.Is(err, service.ErrInvalidToken):
		w.Header().Set("WWW-Authenticate", "Bearer")
		writeDetail(w, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, service.ErrUserDisabled):
		writeDetail(w, http.StatusBadRequest, "inactive user")
	case apperr.IsValidation(err):
		writeDetail(w, http.StatusUnprocessableEntity, apperr.UserMessage(err, "invalid request"))
	default:
		r.logger.Error("request failed",
			slog.String("method", req.Method),
			slog.String("path", req.URL.Path),
			slog.Any("error", err))
		writeDetail(w, http.StatusInternalServerError, "internal server error")
	}
}
