// Package session holds the per-request session [Store] and the [Cache]
// contract that persists it between requests.
//
// # Store
//
// A Store pairs a server-internal key with the client-facing token (SID) and
// carries a flat string map. Key and SID never change after construction;
// handlers only change the map. Pending deletions are tracked so the next
// persist can remove fields from the backing hash.
//
// # Cache
//
// [RedisCache] maps a session to one Redis hash at "<prefix>:<key>". A missing
// hash is an empty session, not an error. Every transport failure is wrapped
// in [ErrRedisUnavailable].
//
// # What this package must NOT do
//
//   - Import goSession, codec or aead (no upward imports).
//   - Decide whether a token is valid. That belongs to the Manager.
package session
