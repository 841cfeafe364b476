package goSession

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/MrEthical07/goSession/session"
)

func TestErrorMatchesKindSentinelAndCause(t *testing.T) {
	cause := fmt.Errorf("%w: dial refused", session.ErrRedisUnavailable)
	err := newError(KindCache, "set_store", cause)

	if !errors.Is(err, ErrCacheUnavailable) {
		t.Fatal("expected kind sentinel to match")
	}
	if !errors.Is(err, session.ErrRedisUnavailable) {
		t.Fatal("expected wrapped cause to match")
	}
	if errors.Is(err, ErrUnauthorized) {
		t.Fatal("unexpected match against another kind")
	}
	if got := err.Error(); got != "set_store: session cache unavailable: redis unavailable: dial refused" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestErrorMessageDoesNotRepeatSentinel(t *testing.T) {
	err := newError(KindNoUser, "resolve_user", ErrNoUser)
	if got := err.Error(); got != "resolve_user: no user bound to session" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestErrorPropagationAndStatus(t *testing.T) {
	tests := []struct {
		kind       ErrorKind
		propagates bool
		status     int
	}{
		{KindRejected, false, http.StatusInternalServerError},
		{KindCache, false, http.StatusServiceUnavailable},
		{KindUnauthorized, true, http.StatusUnauthorized},
		{KindNoUser, true, http.StatusUnauthorized},
		{KindInvalidRequest, true, http.StatusBadRequest},
		{KindConfig, true, http.StatusInternalServerError},
		{KindInternal, true, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		err := newError(tt.kind, "op", nil)
		if err.Propagates() != tt.propagates {
			t.Fatalf("%s: expected Propagates=%v", tt.kind, tt.propagates)
		}
		if err.StatusCode() != tt.status {
			t.Fatalf("%s: expected status %d, got %d", tt.kind, tt.status, err.StatusCode())
		}
		if StatusCode(fmt.Errorf("wrapped: %w", err)) != tt.status {
			t.Fatalf("%s: StatusCode must unwrap", tt.kind)
		}
	}
}

func TestKindOfForeignError(t *testing.T) {
	if KindOf(errors.New("plain")) != KindInternal {
		t.Fatal("expected foreign errors to be internal")
	}
	if StatusCode(errors.New("plain")) != http.StatusInternalServerError {
		t.Fatal("expected foreign errors to map to 500")
	}
}
