package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/riskibarqy/livescore/external/cricketfeed"
	"github.com/riskibarqy/livescore/internal/config"
	"github.com/riskibarqy/livescore/internal/interfaces/httpapi"
	"github.com/riskibarqy/livescore/internal/observability"
	"github.com/riskibarqy/livescore/internal/platform/logging"
	"github.com/riskibarqy/livescore/internal/platform/resilience"
	"github.com/riskibarqy/livescore/internal/usecase"
)

// App owns the long-lived pieces of the service: the HTTP server, the shared
// watch sessions and the provider fetch pool.
type App struct {
	Server   *http.Server
	Registry *usecase.WatchRegistry
	Matches  *usecase.MatchService
	Metrics  *observability.PollMetrics

	feed   *usecase.PooledFeed
	logger *logging.Logger
}

func New(cfg config.Config, logger *logging.Logger) (*App, error) {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.HTTPAddr == "" {
		return nil, fmt.Errorf("http server addr cannot be empty")
	}

	var metrics *observability.PollMetrics
	if cfg.MetricsEnabled {
		m, err := observability.NewPollMetrics()
		if err != nil {
			return nil, fmt.Errorf("init poll metrics: %w", err)
		}
		metrics = m
	}

	feed, err := NewFeed(cfg, logger, metrics)
	if err != nil {
		return nil, err
	}

	var observer usecase.PollObserver
	if metrics != nil {
		observer = metrics
	}
	registry := usecase.NewWatchRegistry(usecase.WatchRegistryConfig{
		Feed:         feed,
		Cadence:      usecase.NewCadence(CadenceConfig(cfg)),
		FetchTimeout: cfg.FetchTimeout,
		IdleTimeout:  cfg.SessionIdleTimeout,
		Observer:     observer,
		Logger:       logger,
	})
	matches := usecase.NewMatchService(feed, registry, usecase.MatchServiceConfig{
		ListingTTL: cfg.ListingCacheTTL,
	}, logger)

	var metricsHandler http.Handler
	if metrics != nil {
		if err := metrics.RegisterGaugeFunc("feed_pool_running", "Provider fetches currently running.", func() float64 {
			return float64(feed.Running())
		}); err != nil {
			feed.Release()
			return nil, err
		}
		metricsHandler = metrics.Handler()
	}

	handler := httpapi.NewHandler(matches, registry, httpapi.StreamConfig{
		WriteTimeout:   cfg.StreamWriteTimeout,
		PingInterval:   cfg.StreamPingInterval,
		AllowedOrigins: cfg.CORSAllowedOrigins,
	}, logger)
	router := httpapi.NewRouter(handler, logger, cfg.CORSAllowedOrigins, metricsHandler)

	return &App{
		Server: &http.Server{
			Addr:         cfg.HTTPAddr,
			Handler:      router,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
		Registry: registry,
		Matches:  matches,
		Metrics:  metrics,
		feed:     feed,
		logger:   logger,
	}, nil
}

// NewFeed builds the provider client behind the shared fetch pool. metrics
// may be nil.
func NewFeed(cfg config.Config, logger *logging.Logger, metrics *observability.PollMetrics) (*usecase.PooledFeed, error) {
	feedLogger := logger.Named("cricketfeed")
	client := cricketfeed.NewClient(cricketfeed.ClientConfig{
		BaseURL:      cfg.FeedBaseURL,
		APIKey:       cfg.FeedAPIKey,
		Timeout:      cfg.FeedTimeout,
		MaxRetries:   cfg.FeedMaxRetries,
		RetryBackoff: cfg.FeedRetryBackoff,
		Logger:       logger,
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          cfg.FeedCircuitEnabled,
			FailureThreshold: cfg.FeedCircuitFailureCount,
			OpenTimeout:      cfg.FeedCircuitOpenTimeout,
			HalfOpenMaxReq:   cfg.FeedCircuitHalfOpenMaxReq,
			OnStateChange: func(from, to resilience.CircuitState) {
				feedLogger.Warn("cricket feed circuit breaker state changed", "from", from, "to", to)
				if metrics != nil {
					metrics.ObserveCircuitState(from, to)
				}
			},
		},
	})

	feed, err := usecase.NewPooledFeed(client, cfg.FeedConcurrency)
	if err != nil {
		return nil, fmt.Errorf("build feed: %w", err)
	}
	return feed, nil
}

func CadenceConfig(cfg config.Config) usecase.CadenceConfig {
	return usecase.CadenceConfig{
		Live:       cfg.PollLiveInterval,
		Break:      cfg.PollBreakInterval,
		PreInnings: cfg.PollPreInningsInterval,
		Upcoming:   cfg.PollUpcomingInterval,
		Complete:   cfg.PollCompleteInterval,
	}
}

// Shutdown stops accepting requests, closes every watch session (which ends
// open streams) and releases the fetch pool.
func (a *App) Shutdown(ctx context.Context) error {
	var errs []error
	if err := a.Server.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("shutdown http server: %w", err))
	}
	if err := a.Registry.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	a.feed.Release()
	a.logger.Info("app stopped", "active_sessions", a.Registry.ActiveSessions())
	return errors.Join(errs...)
}
