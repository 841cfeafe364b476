// Package middleware adapts goSession.Manager to net/http.
//
//   - [Session] reads the session cookie, resolves the Store and commits it
//     when the response starts.
//   - [RequireUser] rejects requests without a resolved user.
//   - [ClientAddr] derives the address a token is bound to.
//
// # What this package must NOT do
//
//   - Decode or encode tokens itself (delegates to the Manager).
//   - Surface token rejection or cache failure to the client.
package middleware
