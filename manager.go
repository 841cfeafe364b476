package goSession

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/netip"
	"time"

	"github.com/MrEthical07/goSession/codec"
	"github.com/MrEthical07/goSession/internal"
	"github.com/MrEthical07/goSession/session"
)

// Manager resolves request sessions from tokens and persists them to the
// cache. It is immutable after Build and safe for concurrent use.
type Manager struct {
	config  Config
	codec   *codec.Codec
	random  internal.Random
	cache   session.Cache
	logger  *slog.Logger
	metrics *Metrics
	audit   *auditDispatcher
}

// GetStore returns the session for a request from addr presenting token.
//
// A token that decodes and verifies yields a Store with its persisted values
// (empty on cache miss, error or timeout). An empty, malformed, forged or
// address-mismatched token yields a new empty Store with a freshly minted
// token. The only error is a zero addr, or an entropy failure while minting.
func (m *Manager) GetStore(ctx context.Context, addr netip.Addr, token string) (*session.Store, error) {
	start := time.Now()
	defer func() { m.metrics.Observe(MetricGetStoreLatency, time.Since(start)) }()

	if !addr.IsValid() {
		return nil, newError(KindInvalidRequest, "get_store", ErrMissingAddress)
	}

	if token != "" {
		key, err := m.codec.Decode(token, addr)
		if err == nil {
			return m.load(ctx, key, token), nil
		}
		m.rejected(ctx, addr, err)
	}

	return m.mint(ctx, addr)
}

func (m *Manager) load(ctx context.Context, key, token string) *session.Store {
	m.metrics.Inc(MetricSessionResolved)

	ctx, cancel := context.WithTimeout(ctx, m.config.Cache.Timeout)
	defer cancel()

	values, err := m.cache.HGetAll(ctx, m.cacheKey(key))
	if err != nil {
		m.metrics.Inc(MetricCacheReadError)
		m.logger.ErrorContext(ctx, "session load failed",
			"op", "get_store",
			"cache_key_prefix", m.config.Session.CachePrefix,
			"err", err,
		)
		m.emitAudit(ctx, newAuditEvent(AuditSessionCacheError, clientIPFromContext(ctx), false, "read"))
		return session.Empty(key, token)
	}
	if len(values) == 0 {
		m.metrics.Inc(MetricSessionCacheMiss)
		return session.Empty(key, token)
	}
	return session.New(key, token, values)
}

func (m *Manager) mint(ctx context.Context, addr netip.Addr) (*session.Store, error) {
	key, err := m.random.NewSessionKey(m.config.Session.KeySize)
	if err != nil {
		m.logger.ErrorContext(ctx, "session key generation failed", "err", err)
		return nil, newError(KindInternal, "get_store", err)
	}
	sid, err := m.codec.Encode(key, addr)
	if err != nil {
		m.logger.ErrorContext(ctx, "session token encoding failed", "err", err)
		return nil, newError(KindInternal, "get_store", err)
	}

	m.metrics.Inc(MetricSessionMinted)
	m.emitAudit(ctx, newAuditEvent(AuditSessionMinted, addr.String(), true, ""))
	return session.Fresh(key, sid), nil
}

func (m *Manager) rejected(ctx context.Context, addr netip.Addr, err error) {
	reason := rejectReason(err)
	switch reason {
	case "address_mismatch":
		m.metrics.Inc(MetricTokenAddressMismatch)
	case "authentication":
		m.metrics.Inc(MetricTokenForged)
	default:
		m.metrics.Inc(MetricTokenMalformed)
	}

	rerr := newError(KindRejected, "get_store", err)
	m.logger.DebugContext(ctx, "session token rejected", "reason", reason, "err", rerr)
	m.emitAudit(ctx, newAuditEvent(AuditSessionRejected, addr.String(), false, reason))
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, codec.ErrAddressMismatch):
		return "address_mismatch"
	case errors.Is(err, codec.ErrAuthentication):
		return "authentication"
	default:
		return "malformed"
	}
}

// SetStore writes the Store's values, applies pending deletions and resets
// the entry's expiry. Failures are logged and returned as KindCache; callers
// on the response path may ignore them. Persisting an unchanged Store is a
// no-op apart from the expiry refresh.
func (m *Manager) SetStore(ctx context.Context, store *session.Store) error {
	if store == nil {
		return nil
	}

	values, removed := store.Snapshot()

	ctx, cancel := context.WithTimeout(ctx, m.config.Cache.Timeout)
	defer cancel()

	if err := m.cache.Persist(ctx, m.cacheKey(store.Key()), values, removed, m.config.Session.Expiry); err != nil {
		m.metrics.Inc(MetricCacheWriteError)
		m.logger.ErrorContext(ctx, "session persist failed",
			"op", "set_store",
			"cache_key_prefix", m.config.Session.CachePrefix,
			"err", err,
		)
		m.emitAudit(ctx, newAuditEvent(AuditSessionCacheError, clientIPFromContext(ctx), false, "write"))
		return newError(KindCache, "set_store", err)
	}

	m.metrics.Inc(MetricSessionPersisted)
	return nil
}

// DestroyStore removes the Store's cache entry. The Store itself stays usable
// for the rest of the request.
func (m *Manager) DestroyStore(ctx context.Context, store *session.Store) error {
	if store == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, m.config.Cache.Timeout)
	defer cancel()

	if err := m.cache.Del(ctx, m.cacheKey(store.Key())); err != nil {
		m.metrics.Inc(MetricCacheWriteError)
		m.logger.ErrorContext(ctx, "session destroy failed",
			"op", "destroy_store",
			"cache_key_prefix", m.config.Session.CachePrefix,
			"err", err,
		)
		return newError(KindCache, "destroy_store", err)
	}

	m.metrics.Inc(MetricSessionDestroyed)
	m.emitAudit(ctx, newAuditEvent(AuditSessionDestroyed, clientIPFromContext(ctx), true, ""))
	return nil
}

// CreateNonce returns 12 random bytes as a 16-character base64url string for
// use as OAuth state. It is unrelated to any session identity.
func (m *Manager) CreateNonce() (string, error) {
	nonce, err := m.random.NewStateNonce()
	if err != nil {
		return "", newError(KindInternal, "create_nonce", err)
	}
	m.metrics.Inc(MetricNonceIssued)
	return nonce, nil
}

// Cookie returns the cookie carrying store's token.
func (m *Manager) Cookie(store *session.Store) *http.Cookie {
	c := m.config.Cookie
	return &http.Cookie{
		Name:     c.Name,
		Value:    store.SID(),
		Path:     c.Path,
		Domain:   c.Domain,
		MaxAge:   int(c.MaxAge / time.Second),
		Secure:   c.Secure,
		HttpOnly: c.HTTPOnly,
		SameSite: c.SameSite,
	}
}

// ClearCookie returns an expired session cookie.
func (m *Manager) ClearCookie() *http.Cookie {
	c := m.config.Cookie
	return &http.Cookie{
		Name:     c.Name,
		Value:    "",
		Path:     c.Path,
		Domain:   c.Domain,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		Secure:   c.Secure,
		HttpOnly: c.HTTPOnly,
		SameSite: c.SameSite,
	}
}

// CookieName returns the configured session cookie name.
func (m *Manager) CookieName() string { return m.config.Cookie.Name }

// ObserveOAuth records the outcome of an OAuth callback. reason is empty on
// success and names the failure otherwise ("state_mismatch",
// "exchange_failed", "invalid_id_token").
func (m *Manager) ObserveOAuth(ctx context.Context, userID, reason string) {
	eventType := AuditOAuthLogin
	switch reason {
	case "":
		m.metrics.Inc(MetricOAuthLoginSuccess)
	case "state_mismatch":
		m.metrics.Inc(MetricOAuthStateMismatch)
		eventType = AuditOAuthStateMismatch
	default:
		m.metrics.Inc(MetricOAuthExchangeFailure)
	}

	event := newAuditEvent(eventType, clientIPFromContext(ctx), reason == "", reason)
	event.UserID = userID
	m.emitAudit(ctx, event)
}

// Logger returns the Manager's logger for use by HTTP adapters.
func (m *Manager) Logger() *slog.Logger { return m.logger }

// MetricsSnapshot returns a copy of the in-process counters.
func (m *Manager) MetricsSnapshot() MetricsSnapshot {
	return m.metrics.Snapshot()
}

// AuditDropped returns the number of audit events dropped on a full buffer.
func (m *Manager) AuditDropped() uint64 {
	return m.audit.Dropped()
}

// Close flushes and stops the audit dispatcher. It does not close the cache.
func (m *Manager) Close() {
	m.audit.Close()
}

func (m *Manager) emitAudit(ctx context.Context, event AuditEvent) {
	m.audit.Emit(ctx, event)
}

func (m *Manager) cacheKey(key string) string {
	return m.config.Session.CachePrefix + ":" + key
}
