package internal

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"io"
)

const (
	// MinSessionKeySize is the smallest accepted session key entropy in bytes.
	MinSessionKeySize = 32
	// StateNonceSize is the decoded length of values returned by NewStateNonce.
	StateNonceSize = 12
)

// Random is the secure random source shared by the codec and the manager.
// A nil Reader means crypto/rand.
type Random struct {
	Reader io.Reader
}

func (r Random) reader() io.Reader {
	if r.Reader == nil {
		return rand.Reader
	}
	return r.Reader
}

// Fill reads len(b) random bytes into b.
func (r Random) Fill(b []byte) error {
	_, err := io.ReadFull(r.reader(), b)
	return err
}

// Read implements io.Reader so a Random can be handed to the codec.
func (r Random) Read(b []byte) (int, error) {
	return io.ReadFull(r.reader(), b)
}

// NewSessionKey returns size random bytes as an unpadded base64url string.
// The alphabet never contains '.', which the token plaintext relies on.
func (r Random) NewSessionKey(size int) (string, error) {
	if size < MinSessionKeySize {
		return "", errors.New("session key size below minimum")
	}

	raw := make([]byte, size)
	if err := r.Fill(raw); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// NewStateNonce returns StateNonceSize random bytes, base64url encoded.
// It carries no relation to any session identity.
func (r Random) NewStateNonce() (string, error) {
	var raw [StateNonceSize]byte
	if err := r.Fill(raw[:]); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw[:]), nil
}
