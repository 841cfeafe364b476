// Command sessiond serves Google sign-in on top of address-bound session
// cookies stored in Redis.
//
// Usage:
//
//	sessiond          # run the server, configured from the environment or .env
//	sessiond config   # print an example .env with a fresh SESSION_KEY
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/oauth"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "sessiond:", err)
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) error {
	if len(args) > 0 {
		switch args[0] {
		case "config":
			return writeExampleEnv(stdout)
		default:
			return fmt.Errorf("unknown command %q", args[0])
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	cfg, err := loadConfig(env.Options{})
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewJSONHandler(stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("parse REDIS_URL: %w", err)
	}
	rdb := redis.NewClient(redisOpts)
	defer rdb.Close()

	pingCtx, cancel := context.WithTimeout(context.Background(), cfg.CacheTimeout)
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis unreachable at startup; sessions will be anonymous until it recovers", "err", err)
	}
	cancel()

	handler, manager, err := build(cfg, rdb, logger)
	if err != nil {
		return err
	}
	defer manager.Close()

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		logger.Info("listening", "addr", cfg.ListenAddr, "base_url", cfg.BaseURL)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	eg.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return eg.Wait()
}

func build(cfg config, rdb redis.UniversalClient, logger *slog.Logger) (http.Handler, *goSession.Manager, error) {
	sessionCfg, err := cfg.sessionConfig()
	if err != nil {
		return nil, nil, err
	}

	builder := goSession.New().
		WithConfig(sessionCfg).
		WithRedis(rdb).
		WithLogger(logger)
	if cfg.AuditEnabled {
		builder = builder.WithAuditSink(goSession.NewJSONWriterSink(os.Stderr))
	}
	manager, err := builder.Build()
	if err != nil {
		return nil, nil, err
	}

	google, err := oauth.NewGoogle(manager, cfg.oauthConfig())
	if err != nil {
		manager.Close()
		return nil, nil, err
	}

	s := &server{
		manager: manager,
		google:  google,
		baseURL: cfg.BaseURL,
		logger:  logger,
		redis:   rdb,
	}
	return newHandler(s, cfg.TrustProxyHeaders), manager, nil
}
