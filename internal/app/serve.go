package app

import (
	"context"
	"errors"
	"net/http"
	"os"

	"github.com/riskibarqy/livescore/internal/config"
	"github.com/riskibarqy/livescore/internal/observability"
	"github.com/riskibarqy/livescore/internal/platform/logging"
)

// NewLogger builds the process logger from LOG_FORMAT and LOG_LEVEL.
func NewLogger(cfg config.Config) *logging.Logger {
	var logger *logging.Logger
	if cfg.LogFormat == config.LogFormatConsole {
		logger = logging.NewConsole(os.Stdout, cfg.LogLevel)
	} else {
		logger = logging.NewJSON(cfg.LogLevel)
	}
	return logger.With("service", cfg.ServiceName, "version", cfg.ServiceVersion, "env", cfg.AppEnv)
}

// Serve runs the API until ctx is cancelled or the listener fails, then
// shuts everything down within cfg.ShutdownTimeout.
func Serve(ctx context.Context, cfg config.Config, logger *logging.Logger) error {
	shutdownTracing, err := observability.InitUptrace(cfg, logger)
	if err != nil {
		return err
	}
	stopProfiler, err := observability.InitPyroscope(cfg, logger)
	if err != nil {
		return err
	}
	pprofServer, err := observability.StartPprofServer(cfg, logger)
	if err != nil {
		return err
	}

	application, err := New(cfg, logger)
	if err != nil {
		return err
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("http server starting", "addr", cfg.HTTPAddr)
		if err := application.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	var errs []error
	select {
	case <-ctx.Done():
	case err, ok := <-serverErr:
		if ok {
			errs = append(errs, err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := application.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, err)
	}
	if err := observability.StopPprofServer(pprofServer, logger, cfg.ShutdownTimeout); err != nil {
		errs = append(errs, err)
	}
	if err := stopProfiler(); err != nil {
		errs = append(errs, err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		errs = append(errs, err)
	}

	logger.Info("http server stopped")
	return errors.Join(errs...)
}
