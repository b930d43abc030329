// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Admission logic lives in internal/gate packages.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"analytics-gateway/internal/gate/auth"
	"analytics-gateway/internal/gate/policy"
	"analytics-gateway/internal/gate/ratelimit"
	"analytics-gateway/internal/gate/validate"
	"analytics-gateway/internal/platform/config"
	"analytics-gateway/internal/platform/health"
	"analytics-gateway/internal/platform/logger"
	"analytics-gateway/internal/platform/metrics"
	platformredis "analytics-gateway/internal/platform/redis"
	httptransport "analytics-gateway/internal/transport/http"
	"analytics-gateway/internal/upstream"
)

const (
	shutdownTimeout   = 10 * time.Second
	poolStatsInterval = 15 * time.Second
)

func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel)

	log.Info("initializing analytics-gateway",
		"addr", cfg.Addr,
		"environment", cfg.Mode.String(),
		"rate_limit_quota", cfg.RateLimitQuota,
		"rate_limit_window", cfg.RateLimitWindow.String(),
	)

	if !cfg.ModeRecognized {
		log.Warn("unrecognized ENVIRONMENT value, falling back to development mode")
	}

	pol := policy.New(cfg)
	if pol.Mode() == config.Development && !pol.CredentialsConfigured() {
		log.Warn("no API keys configured, development mode admits all requests")
	}
	if pol.Mode() == config.Production && !pol.CredentialsConfigured() {
		log.Warn("no API keys configured in production, every request will be rejected")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	redisClient, err := platformredis.New(ctx, cfg.RedisURL)
	if err != nil {
		log.Error("redis initialization failed", "error", err)
		os.Exit(1)
	}

	var store ratelimit.Store
	var sweeper *ratelimit.Sweeper
	if redisClient != nil {
		log.Info("using redis rate-limit store")
		store = ratelimit.NewRedisStore(redisClient.Client, pol.Quota(), pol.Window())
	} else {
		log.Info("using in-process rate-limit store")
		memStore := ratelimit.NewMemoryStore(pol.Quota(), pol.Window())
		store = memStore
		sweeper = ratelimit.NewSweeper(memStore,
			ratelimit.WithLogger(log),
			ratelimit.WithMetrics(m),
		)
	}

	processor := upstream.NewEngineClient(cfg.EngineURL, cfg.EngineTimeout, log)
	handler := httptransport.NewHandler(processor, validate.NewDenylist(), log, m, cfg.Mode.String())

	healthHandler := health.New(cfg.Mode.String(), config.MissingEngineEnv)
	healthHandler.RegisterCheck("environment", func() error {
		if missing := config.MissingEngineEnv(); len(missing) > 0 {
			return errors.New("missing required environment variables")
		}
		return nil
	})
	if redisClient != nil {
		healthHandler.RegisterCheck("redis", func() error {
			checkCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return redisClient.Health(checkCtx)
		})
	}

	router := httptransport.NewRouter(httptransport.RouterDeps{
		Policy:         pol,
		Store:          store,
		Authenticator:  auth.New(pol),
		Handler:        handler,
		Health:         healthHandler,
		Logger:         log,
		Metrics:        m,
		StaticDir:      cfg.StaticDir,
		TrustedProxies: cfg.TrustedProxies,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		// Engine queries can run multi-step plans, so the write timeout must
		// exceed the engine timeout.
		WriteTimeout: cfg.EngineTimeout + 30*time.Second,
		IdleTimeout:  2 * time.Minute,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("starting http server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if sweeper != nil {
		g.Go(func() error {
			if err := sweeper.Start(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	if redisClient != nil {
		g.Go(func() error {
			ticker := time.NewTicker(poolStatsInterval)
			defer ticker.Stop()
			for {
				select {
				case <-gctx.Done():
					return redisClient.Close()
				case <-ticker.C:
					redisClient.RecordPoolStats()
				}
			}
		})
	}

	if err := g.Wait(); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped")
}
