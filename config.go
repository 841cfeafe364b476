package goSession

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/MrEthical07/goSession/aead"
	"github.com/MrEthical07/goSession/internal"
)

// Config holds every tunable of a Manager.
//
// Config values are copied by Builder.WithConfig and treated as immutable
// once Build returns.
type Config struct {
	Cipher  CipherConfig
	Session SessionConfig
	Cache   CacheConfig
	Cookie  CookieConfig
	Audit   AuditConfig
	Metrics MetricsConfig
}

/*
====================================
CIPHER CONFIG
====================================
*/

// CipherConfig selects the AEAD sealing session tokens.
type CipherConfig struct {
	Algorithm aead.Algorithm // "aes-256-gcm" (default) or "xchacha20-poly1305"
	Key       []byte         // exactly 32 bytes
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig controls session keys and their cache entries.
type SessionConfig struct {
	KeySize          int           // random bytes per session key, >= 32
	CachePrefix      string        // cache key is "<CachePrefix>:<key>"
	Expiry           time.Duration // refreshed on every SetStore
	UserPrefix       string        // user records live at "<UserPrefix>:<id>"
	SocialUserPrefix string        // handle lookups live at "<SocialUserPrefix>:<handle>"
}

/*
====================================
CACHE CONFIG
====================================
*/

// CacheConfig bounds every cache round-trip.
type CacheConfig struct {
	Timeout time.Duration
}

/*
====================================
COOKIE CONFIG
====================================
*/

// CookieConfig shapes the cookie carrying the session token.
type CookieConfig struct {
	Name     string
	Path     string
	Domain   string
	MaxAge   time.Duration
	Secure   bool
	HTTPOnly bool
	SameSite http.SameSite
}

/*
====================================
AUDIT / METRICS CONFIG
====================================
*/

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls in-process counters and the latency histogram.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the production defaults. The cipher key is left empty
// and must be supplied by the caller.
func DefaultConfig() Config {
	return Config{
		Cipher: CipherConfig{
			Algorithm: aead.AES256GCM,
		},
		Session: SessionConfig{
			KeySize:          internal.MinSessionKeySize,
			CachePrefix:      "session",
			Expiry:           90 * 24 * time.Hour,
			UserPrefix:       "user",
			SocialUserPrefix: "socialUser",
		},
		Cache: CacheConfig{
			Timeout: 2 * time.Second,
		},
		Cookie: CookieConfig{
			Name:     "sid",
			Path:     "/",
			MaxAge:   30 * 24 * time.Hour,
			Secure:   false,
			HTTPOnly: true,
			SameSite: http.SameSiteLaxMode,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Cipher.Key = cloneBytes(cfg.Cipher.Key)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first invalid setting in c.
func (c *Config) Validate() error {
	// Cipher
	switch c.Cipher.Algorithm {
	case "", aead.AES256GCM, aead.XChaCha20Poly1305:
	default:
		return errors.New("unsupported Cipher Algorithm")
	}
	if len(c.Cipher.Key) != aead.KeySize {
		return errors.New("Cipher Key must be exactly 32 bytes")
	}

	// Session
	if c.Session.KeySize < internal.MinSessionKeySize {
		return errors.New("Session KeySize must be >= 32")
	}
	if err := validatePrefix("Session CachePrefix", c.Session.CachePrefix); err != nil {
		return err
	}
	if err := validatePrefix("Session UserPrefix", c.Session.UserPrefix); err != nil {
		return err
	}
	if err := validatePrefix("Session SocialUserPrefix", c.Session.SocialUserPrefix); err != nil {
		return err
	}
	if c.Session.CachePrefix == c.Session.UserPrefix || c.Session.CachePrefix == c.Session.SocialUserPrefix {
		return errors.New("Session CachePrefix must differ from user prefixes")
	}
	if c.Session.Expiry < time.Second {
		return errors.New("Session Expiry must be >= 1s")
	}

	// Cache
	if c.Cache.Timeout <= 0 {
		return errors.New("Cache Timeout must be > 0")
	}

	// Cookie
	if c.Cookie.Name == "" || strings.ContainsAny(c.Cookie.Name, " \t\r\n;,=\"") {
		return errors.New("Cookie Name must be a non-empty cookie token")
	}
	if c.Cookie.Path == "" || c.Cookie.Path[0] != '/' {
		return errors.New("Cookie Path must start with /")
	}
	if c.Cookie.MaxAge < 0 {
		return errors.New("Cookie MaxAge must be >= 0")
	}
	if c.Cookie.SameSite == http.SameSiteNoneMode && !c.Cookie.Secure {
		return errors.New("Cookie SameSite=None requires Secure")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when enabled")
	}

	return nil
}

func validatePrefix(name, prefix string) error {
	if prefix == "" {
		return errors.New(name + " must not be empty")
	}
	if strings.Contains(prefix, ":") {
		return errors.New(name + " must not contain ':'")
	}
	return nil
}
