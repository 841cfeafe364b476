package middleware

import (
	"context"
	"encoding/json"
	"net/http"

	goSession "github.com/MrEthical07/goSession"
)

type userContextKey struct{}

// UserFromContext returns the user resolved by RequireUser.
func UserFromContext(ctx context.Context) (*goSession.User, bool) {
	user, ok := ctx.Value(userContextKey{}).(*goSession.User)
	return user, ok
}

// RequireUser rejects requests whose session has no resolvable user with a
// JSON 401. It must run inside Session. A cache failure during the user
// lookup is logged at error level and answered as 401 as well.
func RequireUser(manager *goSession.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			store, ok := StoreFromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, goSession.ErrNoUser)
				return
			}

			user, err := manager.ResolveUser(r.Context(), store)
			if err != nil {
				if goSession.KindOf(err) == goSession.KindCache {
					manager.Logger().ErrorContext(r.Context(), "user lookup unavailable, treating request as anonymous", "err", err)
					writeError(w, http.StatusUnauthorized, goSession.ErrNoUser)
					return
				}
				writeError(w, goSession.StatusCode(err), err)
				return
			}

			ctx := context.WithValue(r.Context(), userContextKey{}, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

type errorBody struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, err error) {
	msg := http.StatusText(status)
	if status < http.StatusInternalServerError && err != nil {
		msg = err.Error()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{Error: msg})
}
