package codec

import (
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"io"
	"net/netip"
	"strings"

	"github.com/MrEthical07/goSession/aead"
)

const separator = "."

// strict rejects non-zero trailing bits so every token has exactly one spelling.
var strict = base64.RawURLEncoding.Strict()

var (
	// ErrMalformed is returned when a token cannot be parsed into nonce and ciphertext.
	ErrMalformed = errors.New("codec: malformed token")
	// ErrAuthentication is returned when the token does not authenticate under the key.
	ErrAuthentication = errors.New("codec: token authentication failed")
	// ErrAddressMismatch is returned when the token was issued to another client address.
	ErrAddressMismatch = errors.New("codec: client address mismatch")
	// ErrInvalidKey is returned by Encode for an empty key or one containing '.'.
	ErrInvalidKey = errors.New("codec: invalid session key")
	// ErrInvalidAddress is returned for a zero netip.Addr.
	ErrInvalidAddress = errors.New("codec: invalid client address")
)

// Codec turns (session key, client address) pairs into opaque tokens and back.
// It is safe for concurrent use.
type Codec struct {
	cipher *aead.Cipher
	random io.Reader
}

// New returns a Codec sealing with c and drawing nonces from random.
func New(c *aead.Cipher, random io.Reader) *Codec {
	return &Codec{cipher: c, random: random}
}

// Canonical returns the address form bound into tokens. IPv4-mapped IPv6
// addresses collapse to their IPv4 form so one client never has two spellings.
func Canonical(addr netip.Addr) string {
	return addr.Unmap().WithZone("").String()
}

// Encode seals key for addr under a fresh random nonce and returns
// base64url(nonce) "." base64url(ciphertext||tag).
func (c *Codec) Encode(key string, addr netip.Addr) (string, error) {
	if key == "" || strings.Contains(key, separator) {
		return "", ErrInvalidKey
	}
	if !addr.IsValid() {
		return "", ErrInvalidAddress
	}

	nonce := make([]byte, c.cipher.NonceSize())
	if _, err := io.ReadFull(c.random, nonce); err != nil {
		return "", err
	}

	sealed, err := c.cipher.Seal(nonce, []byte(key+separator+Canonical(addr)))
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.Grow(base64.RawURLEncoding.EncodedLen(len(nonce)) + 1 + base64.RawURLEncoding.EncodedLen(len(sealed)))
	b.WriteString(base64.RawURLEncoding.EncodeToString(nonce))
	b.WriteString(separator)
	b.WriteString(base64.RawURLEncoding.EncodeToString(sealed))
	return b.String(), nil
}

// Decode reverses Encode and returns the session key. It fails with
// ErrMalformed, ErrAuthentication or ErrAddressMismatch; callers are expected
// to treat all three identically.
func (c *Codec) Decode(token string, addr netip.Addr) (string, error) {
	if !addr.IsValid() {
		return "", ErrInvalidAddress
	}

	// The base64 decoder skips CR and LF; refuse them so tampering cannot hide there.
	if strings.ContainsAny(token, "\r\n") {
		return "", ErrMalformed
	}

	noncePart, sealedPart, ok := strings.Cut(token, separator)
	if !ok || noncePart == "" || sealedPart == "" || strings.Contains(sealedPart, separator) {
		return "", ErrMalformed
	}

	nonce, err := strict.DecodeString(noncePart)
	if err != nil || len(nonce) != c.cipher.NonceSize() {
		return "", ErrMalformed
	}
	sealed, err := strict.DecodeString(sealedPart)
	if err != nil || len(sealed) <= c.cipher.Overhead() {
		return "", ErrMalformed
	}

	plaintext, err := c.cipher.Open(nonce, sealed)
	if err != nil {
		return "", ErrAuthentication
	}

	// Keys are base64url and never contain '.', so the first separator ends the key.
	key, bound, ok := strings.Cut(string(plaintext), separator)
	if !ok || key == "" {
		return "", ErrAuthentication
	}
	if subtle.ConstantTimeCompare([]byte(bound), []byte(Canonical(addr))) != 1 {
		return "", ErrAddressMismatch
	}

	return key, nil
}
