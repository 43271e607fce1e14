package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"medequip/internal/server/models"
)

type contextKey string

const userContextKey contextKey = "user"

func (r *Router) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		authz := req.Header.Get("Authorization")
		if authz == "" || !strings.HasPrefix(authz, "Bearer ") {
			w.Header().Set("WWW-Authenticate", "Bearer")
			writeDetail(w, http.StatusUnauthorized, "not authenticated")
			return
		}
		token := strings.TrimPrefix(authz, "Bearer ")
		user, err := r.services.Auth.Authenticate(req.Context(), token)
		if err != nil {
			r.writeError(w, req, err)
			return
		}
		ctx := context.WithValue(req.Context(), userContextKey, user)
		next.ServeHTTP(w, req.WithContext(ctx))
	})
}

func currentUser(ctx context.Context) models.User {
	u, _ := ctx.Value(userContextKey).(models.User)
	return u
}

func (r *Router) limitBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if r.maxRequestBytes > 0 && req.Body != nil {
			req.Body = http.MaxBytesReader(w, req.Body, r.maxRequestBytes)
		}
		next.ServeHTTP(w, req)
	})
}

func (r *Router) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, req.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, req)
		r.logger.Debug("http request",
			slog.String("id", middleware.GetReqID(req.Context())),
			slog.String("method", req.Method),
			slog.String("path", req.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Duration("elapsed", time.Since(start)))
	})
}
