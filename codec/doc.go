// Package codec builds and parses the client-visible session token (the "sid").
//
// # Wire format
//
//	base64url(nonce) "." base64url(AEAD(key "." address))
//
// Both segments use unpadded base64url, so the token is cookie-safe and the
// single '.' separator is unambiguous. The decoder requires the nonce segment to
// decode to exactly the cipher's nonce size.
//
// The client address is sealed inside the plaintext rather than passed as
// associated data; a token replayed from another address opens correctly but
// fails the address comparison.
//
// # What this package must NOT do
//
//   - Touch the cache or any I/O besides the injected random source.
//   - Distinguish failure reasons to clients. The typed errors exist for metrics.
package codec
