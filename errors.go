package goSession

import (
	"errors"
	"net/http"
)

var (
	// ErrTokenRejected is matched by every error of KindRejected.
	ErrTokenRejected = errors.New("session token rejected")
	// ErrCacheUnavailable is matched by every error of KindCache.
	ErrCacheUnavailable = errors.New("session cache unavailable")
	// ErrUnauthorized is returned when an OAuth callback state does not match the issued nonce.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNoUser is returned when a request needs a resolved user and the session has none.
	ErrNoUser = errors.New("no user bound to session")
	// ErrMissingAddress is returned when the client network address is unavailable.
	ErrMissingAddress = errors.New("client address unavailable")
	// ErrInvalidConfig is matched by every build-time configuration error.
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrInternal is matched by failures of the random source or cipher.
	ErrInternal = errors.New("internal session error")
)

// ErrorKind classifies a session error by how callers must react to it.
type ErrorKind uint8

const (
	// KindInternal covers entropy and cipher failures.
	KindInternal ErrorKind = iota
	// KindRejected covers malformed, forged and address-mismatched tokens.
	// It is recovered locally into a new anonymous session.
	KindRejected
	// KindCache covers cache reads and writes that failed or timed out.
	// It is logged and recovered.
	KindCache
	// KindUnauthorized is an OAuth state mismatch.
	KindUnauthorized
	// KindNoUser means no user is bound to the session.
	KindNoUser
	// KindInvalidRequest means the request cannot carry a session at all.
	KindInvalidRequest
	// KindConfig is returned by Builder.Build.
	KindConfig
)

var kindSentinels = [...]error{
	KindInternal:       ErrInternal,
	KindRejected:       ErrTokenRejected,
	KindCache:          ErrCacheUnavailable,
	KindUnauthorized:   ErrUnauthorized,
	KindNoUser:         ErrNoUser,
	KindInvalidRequest: ErrMissingAddress,
	KindConfig:         ErrInvalidConfig,
}

// String returns the lowercase kind name used in logs and audit events.
func (k ErrorKind) String() string {
	switch k {
	case KindRejected:
		return "rejected"
	case KindCache:
		return "cache"
	case KindUnauthorized:
		return "unauthorized"
	case KindNoUser:
		return "no_user"
	case KindInvalidRequest:
		return "invalid_request"
	case KindConfig:
		return "config"
	default:
		return "internal"
	}
}

// Error is the single error type returned by Manager operations.
//
// errors.Is matches both the wrapped cause and the sentinel of the Kind, so
// callers may test either errors.Is(err, ErrNoUser) or
// errors.Is(err, session.ErrRedisUnavailable).
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func newError(kind ErrorKind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Error implements error.
func (e *Error) Error() string {
	msg := kindSentinels[e.Kind].Error()
	if e.Err != nil && e.Err != kindSentinels[e.Kind] {
		msg += ": " + e.Err.Error()
	}
	if e.Op == "" {
		return msg
	}
	return e.Op + ": " + msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is the sentinel for e.Kind.
func (e *Error) Is(target error) bool {
	return int(e.Kind) < len(kindSentinels) && kindSentinels[e.Kind] == target
}

// Propagates reports whether the error is meant to reach the HTTP caller.
// Rejected tokens and cache failures are absorbed by the Manager.
func (e *Error) Propagates() bool {
	return e.Kind != KindRejected && e.Kind != KindCache
}

// StatusCode maps the error to an HTTP status.
func (e *Error) StatusCode() int {
	switch e.Kind {
	case KindUnauthorized, KindNoUser:
		return http.StatusUnauthorized
	case KindInvalidRequest:
		return http.StatusBadRequest
	case KindCache:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// KindOf returns the Kind of err, or KindInternal if err is not an *Error.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// StatusCode returns the HTTP status for err.
func StatusCode(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.StatusCode()
	}
	return http.StatusInternalServerError
}
