package aead

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// Algorithm selects the AEAD construction behind a [Cipher].
type Algorithm string

const (
	// AES256GCM uses a 96-bit random nonce and a 128-bit tag.
	AES256GCM Algorithm = "aes-256-gcm"
	// XChaCha20Poly1305 uses a 192-bit random nonce, which makes random
	// nonce collisions negligible even at very high issuance volume.
	XChaCha20Poly1305 Algorithm = "xchacha20-poly1305"
)

// KeySize is the required key length for every supported algorithm.
const KeySize = 32

var (
	// ErrKeySize is returned when the key is not exactly KeySize bytes.
	ErrKeySize = errors.New("aead: key must be 32 bytes")
	// ErrUnsupportedAlgorithm is returned for an unknown Algorithm.
	ErrUnsupportedAlgorithm = errors.New("aead: unsupported algorithm")
	// ErrNonceSize is returned when a nonce does not match NonceSize.
	ErrNonceSize = errors.New("aead: invalid nonce size")
	// ErrAuthentication is returned by Open when the ciphertext, tag or nonce
	// does not authenticate under the key.
	ErrAuthentication = errors.New("aead: message authentication failed")
)

// Cipher holds one long-lived symmetric key. It is immutable after New
// and safe for concurrent use.
type Cipher struct {
	algorithm Algorithm
	aead      cipher.AEAD
}

// New builds a Cipher for algorithm with key. An empty algorithm selects AES256GCM.
func New(algorithm Algorithm, key []byte) (*Cipher, error) {
	if len(key) != KeySize {
		return nil, ErrKeySize
	}
	if algorithm == "" {
		algorithm = AES256GCM
	}

	var (
		a   cipher.AEAD
		err error
	)
	switch algorithm {
	case AES256GCM:
		var block cipher.Block
		block, err = aes.NewCipher(key)
		if err != nil {
			return nil, err
		}
		a, err = cipher.NewGCM(block)
	case XChaCha20Poly1305:
		a, err = chacha20poly1305.NewX(key)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, algorithm)
	}
	if err != nil {
		return nil, err
	}

	return &Cipher{algorithm: algorithm, aead: a}, nil
}

// Algorithm returns the configured construction.
func (c *Cipher) Algorithm() Algorithm { return c.algorithm }

// NonceSize returns the nonce length Seal and Open expect.
func (c *Cipher) NonceSize() int { return c.aead.NonceSize() }

// Overhead returns the authentication tag length appended by Seal.
func (c *Cipher) Overhead() int { return c.aead.Overhead() }

// Seal encrypts and authenticates plaintext under nonce. The output is
// ciphertext||tag. A nonce must never be reused with the same key.
func (c *Cipher) Seal(nonce, plaintext []byte) ([]byte, error) {
	if len(nonce) != c.aead.NonceSize() {
		return nil, ErrNonceSize
	}
	return c.aead.Seal(nil, nonce, plaintext, nil), nil
}

// Open authenticates and decrypts ciphertext||tag. Any tampering yields
// ErrAuthentication and no plaintext.
func (c *Cipher) Open(nonce, ciphertext []byte) ([]byte, error) {
	if len(nonce) != c.aead.NonceSize() {
		return nil, ErrNonceSize
	}
	if len(ciphertext) < c.aead.Overhead() {
		return nil, ErrAuthentication
	}

	plaintext, err := c.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrAuthentication
	}
	return plaintext, nil
}

// DeriveKey expands an operator secret of any length into a KeySize key
// with HKDF-SHA256. info domain-separates keys derived from one secret.
func DeriveKey(secret []byte, info string) ([]byte, error) {
	if len(secret) == 0 {
		return nil, errors.New("aead: empty secret")
	}

	key := make([]byte, KeySize)
	r := hkdf.New(sha256.New, secret, nil, []byte(info))
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, err
	}
	return key, nil
}
