package goSession

import (
	"context"
	"errors"

	"github.com/MrEthical07/goSession/session"
)

// User is the record a social-login handle resolves to. ID is an opaque
// string; sessiond mints uuids for new users rather than numeric ids, and any
// string that is a valid cache key suffix works.
type User struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ResolveUser follows the store's socialUser handle to a user record:
// GET "<SocialUserPrefix>:<handle>" yields the user id, and
// HGETALL "<UserPrefix>:<id>" yields the profile.
func (m *Manager) ResolveUser(ctx context.Context, store *session.Store) (*User, error) {
	if store == nil {
		return nil, newError(KindNoUser, "resolve_user", ErrNoUser)
	}
	handle, ok := store.Get(session.SocialUserKey)
	if !ok || handle == "" {
		m.metrics.Inc(MetricUserMissing)
		return nil, newError(KindNoUser, "resolve_user", ErrNoUser)
	}

	ctx, cancel := context.WithTimeout(ctx, m.config.Cache.Timeout)
	defer cancel()

	id, err := m.cache.Get(ctx, m.config.Session.SocialUserPrefix+":"+handle)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			m.metrics.Inc(MetricUserMissing)
			return nil, newError(KindNoUser, "resolve_user", ErrNoUser)
		}
		m.metrics.Inc(MetricCacheReadError)
		m.logger.ErrorContext(ctx, "user handle lookup failed", "op", "resolve_user", "err", err)
		return nil, newError(KindCache, "resolve_user", err)
	}

	fields, err := m.cache.HGetAll(ctx, m.config.Session.UserPrefix+":"+id)
	if err != nil {
		m.metrics.Inc(MetricCacheReadError)
		m.logger.ErrorContext(ctx, "user record lookup failed", "op", "resolve_user", "err", err)
		return nil, newError(KindCache, "resolve_user", err)
	}
	if len(fields) == 0 {
		m.metrics.Inc(MetricUserMissing)
		return nil, newError(KindNoUser, "resolve_user", ErrNoUser)
	}

	m.metrics.Inc(MetricUserResolved)
	return &User{ID: id, Name: fields["name"]}, nil
}

// LinkUser records that handle belongs to user and stores the profile.
// Both records are long-lived and carry no expiry.
func (m *Manager) LinkUser(ctx context.Context, handle string, user User) error {
	if handle == "" || user.ID == "" {
		return newError(KindInternal, "link_user", errors.New("handle and user id are required"))
	}

	ctx, cancel := context.WithTimeout(ctx, m.config.Cache.Timeout)
	defer cancel()

	if err := m.cache.HSet(ctx, m.config.Session.UserPrefix+":"+user.ID, map[string]string{"name": user.Name}); err != nil {
		m.logger.ErrorContext(ctx, "user record write failed", "op", "link_user", "err", err)
		return newError(KindCache, "link_user", err)
	}
	if err := m.cache.Set(ctx, m.config.Session.SocialUserPrefix+":"+handle, user.ID, 0); err != nil {
		m.logger.ErrorContext(ctx, "user handle write failed", "op", "link_user", "err", err)
		return newError(KindCache, "link_user", err)
	}
	return nil
}
