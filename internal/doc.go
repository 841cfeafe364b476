// Package internal contains helper utilities that are intentionally private to goSession,
// chiefly the secure random source used for session keys and anti-CSRF state values.
//
// # What this package must NOT do
//
//   - Export types that appear in the public goSession API.
//   - Be imported by any package outside the goSession module.
package internal
