package goSession

import (
	"errors"
	"io"
	"log/slog"

	"github.com/MrEthical07/goSession/aead"
	"github.com/MrEthical07/goSession/codec"
	"github.com/MrEthical07/goSession/internal"
	"github.com/MrEthical07/goSession/session"
	"github.com/redis/go-redis/v9"
)

// Builder assembles a Manager. Configure it during initialization, call
// Build once, and inject the returned Manager where it is needed.
type Builder struct {
	config Config
	redis  redis.UniversalClient
	cache  session.Cache
	random io.Reader
	logger *slog.Logger

	auditSink AuditSink

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithKey sets the 32-byte cipher key.
func (b *Builder) WithKey(key []byte) *Builder {
	b.config.Cipher.Key = cloneBytes(key)
	return b
}

// WithRedis backs sessions with a Redis client or cluster.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithCache backs sessions with an arbitrary Cache implementation. It takes
// precedence over WithRedis.
func (b *Builder) WithCache(cache session.Cache) *Builder {
	b.cache = cache
	return b
}

// WithRandom overrides the entropy source. Tests use it to inject failures.
func (b *Builder) WithRandom(r io.Reader) *Builder {
	b.random = r
	return b
}

// WithLogger sets the structured logger. Default discards output.
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithAuditSink sets the destination for audit events.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithMetricsEnabled toggles in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the GetStore latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and returns a ready Manager. It performs
// no I/O. A Builder can be built only once.
func (b *Builder) Build() (*Manager, error) {
	if b.built {
		return nil, newError(KindConfig, "build", errors.New("builder already used"))
	}

	cfg := cloneConfig(b.config)

	cache := b.cache
	if cache == nil {
		if b.redis == nil {
			return nil, newError(KindConfig, "build", errors.New("cache or redis client required"))
		}
		cache = session.NewRedisCache(b.redis)
	}

	if err := cfg.Validate(); err != nil {
		return nil, newError(KindConfig, "build", err)
	}

	// -------- CIPHER / CODEC --------
	cipher, err := aead.New(cfg.Cipher.Algorithm, cfg.Cipher.Key)
	if err != nil {
		return nil, newError(KindConfig, "build", err)
	}

	random := internal.Random{Reader: b.random}

	logger := b.logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	m := &Manager{
		config:  cfg,
		codec:   codec.New(cipher, random),
		random:  random,
		cache:   cache,
		logger:  logger.With("component", "session"),
		metrics: NewMetrics(cfg.Metrics),
		audit:   newAuditDispatcher(cfg.Audit, b.auditSink),
	}

	b.built = true

	return m, nil
}
