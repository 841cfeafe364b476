package middleware

import (
	"context"
	"net/http"
	"sync"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/session"
)

// Option customizes Session.
type Option func(*options)

type options struct {
	trustProxyHeaders bool
}

// WithTrustedProxyHeaders derives the client address from X-Forwarded-For or
// X-Real-IP. Enable it only behind a proxy that overwrites those headers.
func WithTrustedProxyHeaders(enabled bool) Option {
	return func(o *options) { o.trustProxyHeaders = enabled }
}

type requestStateContextKey struct{}

type requestState struct {
	mu     sync.Mutex
	forget bool
}

// Session resolves the request's session before next runs and commits it
// when the response starts. A minted or modified Store re-sends its unchanged
// sid cookie so the browser expiry follows activity, and an existing or
// modified Store is persisted. Cache write failures are logged by the Manager
// and never change the response.
func Session(manager *goSession.Manager, opts ...Option) func(http.Handler) http.Handler {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			addr, ok := ClientAddr(r, o.trustProxyHeaders)
			if !ok {
				writeError(w, http.StatusBadRequest, goSession.ErrMissingAddress)
				return
			}

			var token string
			if c, err := r.Cookie(manager.CookieName()); err == nil {
				token = c.Value
			}

			ctx := goSession.WithClientAddr(r.Context(), addr)
			store, err := manager.GetStore(ctx, addr, token)
			if err != nil {
				writeError(w, goSession.StatusCode(err), err)
				return
			}

			state := &requestState{}
			ctx = goSession.WithStore(ctx, store)
			ctx = context.WithValue(ctx, requestStateContextKey{}, state)
			r = r.WithContext(ctx)

			cw := &commitWriter{ResponseWriter: w}
			cw.commit = func() {
				state.mu.Lock()
				forget := state.forget
				state.mu.Unlock()
				if forget {
					return
				}
				if store.IsNew() || store.Modified() {
					http.SetCookie(w, manager.Cookie(store))
				}
				if !store.IsNew() || store.Modified() {
					_ = manager.SetStore(ctx, store)
				}
			}

			next.ServeHTTP(cw, r)
			cw.commitOnce()
		})
	}
}

// StoreFromContext returns the Store resolved by Session.
func StoreFromContext(ctx context.Context) (*session.Store, bool) {
	store := goSession.StoreFromContext(ctx)
	return store, store != nil
}

// Forget stops Session from persisting the Store or emitting a cookie for
// this request. Logout handlers call it after DestroyStore.
func Forget(ctx context.Context) {
	state, ok := ctx.Value(requestStateContextKey{}).(*requestState)
	if !ok {
		return
	}
	state.mu.Lock()
	state.forget = true
	state.mu.Unlock()
}

// commitWriter runs commit exactly once before the first header is written.
type commitWriter struct {
	http.ResponseWriter
	commit func()
	once   sync.Once
}

func (w *commitWriter) commitOnce() {
	w.once.Do(w.commit)
}

func (w *commitWriter) WriteHeader(code int) {
	w.commitOnce()
	w.ResponseWriter.WriteHeader(code)
}

func (w *commitWriter) Write(b []byte) (int, error) {
	w.commitOnce()
	return w.ResponseWriter.Write(b)
}

func (w *commitWriter) Flush() {
	w.commitOnce()
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (w *commitWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
