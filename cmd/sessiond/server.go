package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/metrics/export/prometheus"
	"github.com/MrEthical07/goSession/middleware"
	"github.com/MrEthical07/goSession/oauth"
)

const cspDirective = "default-src 'none'; connect-src 'self'; font-src 'self'; img-src 'self'; " +
	"media-src 'self'; script-src 'self'; style-src 'self'; frame-ancestors 'none'; " +
	"base-uri 'none'; form-action 'self'"

type server struct {
	manager *goSession.Manager
	google  *oauth.Google
	baseURL string
	logger  *slog.Logger
	redis   redis.UniversalClient
}

func newHandler(s *server, trustProxy bool) http.Handler {
	withSession := middleware.Session(s.manager, middleware.WithTrustedProxyHeaders(trustProxy))
	requireUser := middleware.RequireUser(s.manager)

	mux := http.NewServeMux()
	mux.Handle("GET /{$}", withSession(http.HandlerFunc(s.index)))
	mux.Handle("GET /auth/google", withSession(http.HandlerFunc(s.authGoogle)))
	mux.Handle("GET /auth/google/return", withSession(http.HandlerFunc(s.authGoogleReturn)))
	mux.Handle("GET /auth/logout", withSession(http.HandlerFunc(s.logout)))
	mux.Handle("GET /api/users/current", withSession(requireUser(http.HandlerFunc(s.currentUser))))
	mux.Handle("GET /metrics", prometheus.NewExporter(s.manager).Handler())
	mux.HandleFunc("GET /healthz", s.healthz)

	return securityHeaders(s.logRequests(mux))
}

func (s *server) index(w http.ResponseWriter, r *http.Request) {
	store, _ := middleware.StoreFromContext(r.Context())
	user, err := s.manager.ResolveUser(r.Context(), store)
	if err != nil {
		user = nil
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}

func (s *server) authGoogle(w http.ResponseWriter, r *http.Request) {
	store, _ := middleware.StoreFromContext(r.Context())
	target, err := s.google.Begin(store)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "oauth begin failed", "err", err)
		writeError(w, goSession.StatusCode(err))
		return
	}
	noCache(w)
	http.Redirect(w, r, target, http.StatusTemporaryRedirect)
}

func (s *server) authGoogleReturn(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	store, _ := middleware.StoreFromContext(ctx)
	q := r.URL.Query()

	claims, err := s.google.Complete(ctx, store, q.Get("state"), q.Get("code"))
	if err != nil {
		s.logger.WarnContext(ctx, "oauth callback rejected", "err", err)
		writeError(w, goSession.StatusCode(err))
		return
	}

	if _, err := s.manager.ResolveUser(ctx, store); errors.Is(err, goSession.ErrNoUser) {
		user := goSession.User{ID: uuid.NewString(), Name: claims.Name}
		if err := s.manager.LinkUser(ctx, claims.Handle(), user); err != nil {
			writeError(w, goSession.StatusCode(err))
			return
		}
		s.logger.InfoContext(ctx, "user linked", "user_id", user.ID)
	}

	noCache(w)
	http.Redirect(w, r, s.baseURL, http.StatusTemporaryRedirect)
}

func (s *server) logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	store, _ := middleware.StoreFromContext(ctx)

	_ = s.manager.DestroyStore(ctx, store)
	middleware.Forget(ctx)

	http.SetCookie(w, s.manager.ClearCookie())
	noCache(w)
	http.Redirect(w, r, s.baseURL, http.StatusTemporaryRedirect)
}

// healthz reports whether Redis answers. Sessions keep working without it,
// but only as anonymous, unpersisted ones.
func (s *server) healthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), time.Second)
	defer cancel()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "redis": "unreachable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) currentUser(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFromContext(r.Context())
	writeJSON(w, http.StatusOK, user)
}

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Content-Security-Policy", cspDirective)
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("Referrer-Policy", "same-origin")
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }

func (s *server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)
		if rec.status == 0 {
			rec.status = http.StatusOK
		}
		s.logger.InfoContext(r.Context(), "request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}

func noCache(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int) {
	writeJSON(w, status, map[string]string{"error": http.StatusText(status)})
}
