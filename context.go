package goSession

import (
	"context"
	"net/netip"

	"github.com/MrEthical07/goSession/session"
)

type storeContextKey struct{}
type clientAddrContextKey struct{}

// WithStore attaches the request's session Store to ctx.
func WithStore(ctx context.Context, store *session.Store) context.Context {
	return context.WithValue(ctx, storeContextKey{}, store)
}

// StoreFromContext returns the Store attached by WithStore, or nil.
func StoreFromContext(ctx context.Context) *session.Store {
	if ctx == nil {
		return nil
	}

	store, _ := ctx.Value(storeContextKey{}).(*session.Store)
	return store
}

// WithClientAddr attaches the resolved client address to ctx. Audit events
// emitted from handlers read it back.
func WithClientAddr(ctx context.Context, addr netip.Addr) context.Context {
	return context.WithValue(ctx, clientAddrContextKey{}, addr)
}

// ClientAddrFromContext returns the address attached by WithClientAddr.
func ClientAddrFromContext(ctx context.Context) (netip.Addr, bool) {
	if ctx == nil {
		return netip.Addr{}, false
	}

	addr, ok := ctx.Value(clientAddrContextKey{}).(netip.Addr)
	return addr, ok && addr.IsValid()
}

func clientIPFromContext(ctx context.Context) string {
	addr, ok := ClientAddrFromContext(ctx)
	if !ok {
		return ""
	}
	return addr.String()
}
