// Package aead wraps one fixed symmetric key in an authenticated-encryption
// context used to seal session tokens.
//
// Two constructions are supported: AES-256-GCM (the default, 12-byte nonce)
// and XChaCha20-Poly1305 (24-byte nonce). Both use a 16-byte tag. No additional
// authenticated data is used; callers bind context such as the client address
// inside the plaintext instead.
//
// # What this package must NOT do
//
//   - Generate nonces. Nonce freshness is the caller's job.
//   - Return partial plaintext when authentication fails.
package aead
