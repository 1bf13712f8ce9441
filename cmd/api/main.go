package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/replyforge/event-relay/internal/config"
	eventHandler "github.com/replyforge/event-relay/internal/handler/event"
	healthHandler "github.com/replyforge/event-relay/internal/handler/health"
	"github.com/replyforge/event-relay/internal/middleware"
	"github.com/replyforge/event-relay/internal/router"
	"github.com/replyforge/event-relay/internal/service/dedup"
	"github.com/replyforge/event-relay/internal/service/forwarder"
	"github.com/replyforge/event-relay/internal/service/scheduler"
	"github.com/replyforge/event-relay/internal/service/snapshot"
	"github.com/replyforge/event-relay/internal/service/trialtoken"
	"github.com/replyforge/event-relay/pkg/logger"
	"github.com/replyforge/event-relay/pkg/metrics"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	l := logger.NewLogger(nil)
	m := metrics.NewMetrics("event_relay")

	if cfg.Sink.URL == "" {
		l.Warn("sink URL not configured, events will be accepted but never delivered")
	}

	guard := newDedupGuard(cfg, l)

	snapshots := snapshot.NewClient(snapshot.Config{
		BaseURL: cfg.Internal.BaseURL,
		APIKey:  cfg.Internal.APIKey,
		Timeout: cfg.Internal.Timeout,
	}, m)

	fwd := forwarder.New(snapshots, forwarder.Config{
		SinkURL:    cfg.Sink.URL,
		SinkSecret: cfg.Sink.Secret,
		Timeout:    cfg.Sink.Timeout,
	}, l, m)

	sched := scheduler.New(fwd, scheduler.Config{
		MaxAttempts: cfg.Pipeline.MaxAttempts,
		BackoffBase: cfg.Pipeline.BackoffBase,
	}, l, m)

	issuer := trialtoken.NewClient(trialtoken.Config{
		BaseURL: cfg.Internal.BaseURL,
		APIKey:  cfg.Internal.APIKey,
		Timeout: cfg.Internal.Timeout,
	})

	eventH := eventHandler.NewHandler(guard, sched, issuer, eventHandler.Config{
		Enabled:        cfg.Pipeline.Enabled,
		SinkConfigured: cfg.Sink.URL != "",
		TokenTimeout:   cfg.Internal.Timeout,
	}, l, m)

	r := router.NewRouter(router.Config{
		RateLimitEnabled: cfg.RateLimit.Enabled,
		RateLimit:        rate.Limit(cfg.RateLimit.RPS),
		RateBurst:        cfg.RateLimit.Burst,
		CORSConfig:       middleware.DefaultCORSConfig(),
		MetricsPrefix:    "event_relay_http",
	}, eventH, healthHandler.NewHandler())

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		l.Info("starting event relay", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			l.Fatal(err, "failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	l.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		l.Fatal(err, "server forced to shutdown")
	}

	// Pending retries are dropped on shutdown; the queue is volatile
	// by design.
	sched.Shutdown()

	l.Info("server exited properly")
}

func newDedupGuard(cfg *config.Config, l *logger.Logger) dedup.Guard {
	if cfg.Redis.URL != "" {
		guard, err := dedup.NewRedisGuard(cfg.Redis.URL, cfg.Pipeline.DedupWindow)
		if err != nil {
			l.Fatal(err, "failed to connect to Redis for dedup guard")
		}
		l.Info("using Redis dedup guard")
		return guard
	}
	return dedup.NewMemoryGuard(cfg.Pipeline.DedupWindow, cfg.Pipeline.DedupCleanup)
}
