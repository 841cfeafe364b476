// Package goSession issues and verifies address-bound session tokens backed
// by a key/value cache.
//
// A session token is base64url(nonce) "." base64url(AEAD(key "." address)).
// It is unguessable, tamper-evident and only valid from the client address
// it was minted for. The server-side payload lives in a cache hash keyed by
// the session key, which never leaves the server.
//
// Build one [Manager] with [Builder] and inject it; there is no global state.
//
//	m, err := goSession.New().
//		WithKey(key).
//		WithRedis(rdb).
//		Build()
//
// # Failure policy
//
// Token rejection and cache failure never reach the client. A rejected token
// is replaced by a fresh anonymous session; a cache failure yields an empty
// session that keeps its identity. Only a missing client address, an OAuth
// state mismatch and a missing user propagate, see [Error.Propagates].
//
// # Concurrent requests
//
// Two requests carrying the same token each load their own Store. The last
// SetStore wins per field; there is no optimistic concurrency control.
//
// # What this package must NOT do
//
//   - Log or audit the session key or the session token.
//   - Re-issue a token for an identity that already has one.
package goSession
