package goSession

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MrEthical07/goSession/session"
)

func TestResolveUserFollowsHandle(t *testing.T) {
	m, mr := newTestManager(t, testConfig())
	ctx := context.Background()

	if err := m.LinkUser(ctx, "google:1001", User{ID: "7", Name: "Ada Lovelace"}); err != nil {
		t.Fatalf("LinkUser failed: %v", err)
	}
	if got, _ := mr.Get("socialUser:google:1001"); got != "7" {
		t.Fatalf("expected handle record, got %q", got)
	}
	if got := mr.HGet("user:7", "name"); got != "Ada Lovelace" {
		t.Fatalf("expected user record, got %q", got)
	}

	store, _ := m.GetStore(ctx, clientA, "")
	store.Set(session.SocialUserKey, "google:1001")

	user, err := m.ResolveUser(ctx, store)
	if err != nil {
		t.Fatalf("ResolveUser failed: %v", err)
	}
	if user.ID != "7" || user.Name != "Ada Lovelace" {
		t.Fatalf("unexpected user %+v", user)
	}
}

func TestResolveUserMissing(t *testing.T) {
	m, mr := newTestManager(t, testConfig())
	ctx := context.Background()

	store, _ := m.GetStore(ctx, clientA, "")
	if _, err := m.ResolveUser(ctx, store); !errors.Is(err, ErrNoUser) {
		t.Fatalf("expected ErrNoUser without handle, got %v", err)
	}

	store.Set(session.SocialUserKey, "google:404")
	if _, err := m.ResolveUser(ctx, store); !errors.Is(err, ErrNoUser) {
		t.Fatalf("expected ErrNoUser for unknown handle, got %v", err)
	}

	_ = mr.Set("socialUser:google:404", "99")
	if _, err := m.ResolveUser(ctx, store); !errors.Is(err, ErrNoUser) {
		t.Fatalf("expected ErrNoUser for missing user record, got %v", err)
	}

	if _, err := m.ResolveUser(ctx, nil); KindOf(err) != KindNoUser {
		t.Fatalf("expected KindNoUser for nil store, got %v", err)
	}
	if got := m.MetricsSnapshot().Counters[MetricUserMissing]; got != 3 {
		t.Fatalf("expected 3 missing users, got %d", got)
	}
}

func TestResolveUserCacheFailure(t *testing.T) {
	cfg := testConfig()
	cfg.Cache.Timeout = 200 * time.Millisecond
	m, mr := newTestManager(t, cfg)
	ctx := context.Background()

	store, _ := m.GetStore(ctx, clientA, "")
	store.Set(session.SocialUserKey, "google:1")
	mr.Close()

	if _, err := m.ResolveUser(ctx, store); KindOf(err) != KindCache {
		t.Fatalf("expected KindCache, got %v", err)
	}
	if err := m.LinkUser(ctx, "google:1", User{ID: "1"}); KindOf(err) != KindCache {
		t.Fatalf("expected KindCache from LinkUser, got %v", err)
	}
}

func TestLinkUserValidatesInput(t *testing.T) {
	m, _ := newTestManager(t, testConfig())

	if err := m.LinkUser(context.Background(), "", User{ID: "1"}); err == nil {
		t.Fatal("expected empty handle to fail")
	}
	if err := m.LinkUser(context.Background(), "google:1", User{}); err == nil {
		t.Fatal("expected empty user id to fail")
	}
}
