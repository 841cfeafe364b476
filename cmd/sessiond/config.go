package main

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/aead"
	"github.com/MrEthical07/goSession/oauth"
)

const keyDerivationInfo = "gosession cookie key v1"

type config struct {
	ListenAddr string `env:"LISTEN_ADDR" envDefault:":8080"`
	BaseURL    string `env:"BASE_URL" envDefault:"http://localhost:8080/"`
	RedisURL   string `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`

	SessionKey       string        `env:"SESSION_KEY,required"`
	SessionKeyDerive bool          `env:"SESSION_KEY_DERIVE"`
	SessionCipher    string        `env:"SESSION_CIPHER" envDefault:"aes-256-gcm"`
	CacheTimeout     time.Duration `env:"CACHE_TIMEOUT" envDefault:"2s"`

	OAuthClientID     string `env:"OAUTH_CLIENT_ID,required"`
	OAuthClientSecret string `env:"OAUTH_CLIENT_SECRET,required"`
	OAuthAuthURL      string `env:"OAUTH_AUTH_URL"`
	OAuthTokenURL     string `env:"OAUTH_TOKEN_URL"`

	CookieSecure      bool `env:"COOKIE_SECURE"`
	TrustProxyHeaders bool `env:"TRUST_PROXY_HEADERS"`

	MetricsEnabled bool       `env:"METRICS_ENABLED" envDefault:"true"`
	AuditEnabled   bool       `env:"AUDIT_ENABLED"`
	LogLevel       slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`
}

func loadConfig(opts env.Options) (config, error) {
	var cfg config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return config{}, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}

// sessionKey decodes SESSION_KEY as standard base64, or runs it through HKDF
// when SESSION_KEY_DERIVE is set.
func (c config) sessionKey() ([]byte, error) {
	if c.SessionKeyDerive {
		return aead.DeriveKey([]byte(c.SessionKey), keyDerivationInfo)
	}
	key, err := base64.StdEncoding.DecodeString(c.SessionKey)
	if err != nil {
		return nil, fmt.Errorf("SESSION_KEY is not base64: %w", err)
	}
	if len(key) != aead.KeySize {
		return nil, errors.New("SESSION_KEY must decode to 32 bytes")
	}
	return key, nil
}

func (c config) sessionConfig() (goSession.Config, error) {
	key, err := c.sessionKey()
	if err != nil {
		return goSession.Config{}, err
	}

	cfg := goSession.DefaultConfig()
	cfg.Cipher.Algorithm = aead.Algorithm(c.SessionCipher)
	cfg.Cipher.Key = key
	cfg.Cache.Timeout = c.CacheTimeout
	cfg.Cookie.Secure = c.CookieSecure
	cfg.Metrics.Enabled = c.MetricsEnabled
	cfg.Metrics.EnableLatencyHistograms = c.MetricsEnabled
	cfg.Audit.Enabled = c.AuditEnabled
	return cfg, nil
}

func (c config) oauthConfig() oauth.Config {
	return oauth.Config{
		ClientID:     c.OAuthClientID,
		ClientSecret: c.OAuthClientSecret,
		BaseURL:      c.BaseURL,
		AuthURL:      c.OAuthAuthURL,
		TokenURL:     c.OAuthTokenURL,
	}
}

// writeExampleEnv prints a .env template with a freshly generated key.
func writeExampleEnv(w io.Writer) error {
	key := make([]byte, aead.KeySize)
	if _, err := rand.Read(key); err != nil {
		return err
	}

	_, err := fmt.Fprintf(w, `# sessiond configuration
LISTEN_ADDR=:8080
BASE_URL=http://localhost:8080/
REDIS_URL=redis://localhost:6379/0

SESSION_KEY=%s
SESSION_CIPHER=aes-256-gcm
CACHE_TIMEOUT=2s

OAUTH_CLIENT_ID=your-client-id.apps.googleusercontent.com
OAUTH_CLIENT_SECRET=your-client-secret
OAUTH_AUTH_URL=%s
OAUTH_TOKEN_URL=%s

COOKIE_SECURE=false
TRUST_PROXY_HEADERS=false
METRICS_ENABLED=true
AUDIT_ENABLED=false
LOG_LEVEL=INFO
`, base64.StdEncoding.EncodeToString(key), oauth.GoogleAuthURL, oauth.GoogleTokenURL)
	return err
}
