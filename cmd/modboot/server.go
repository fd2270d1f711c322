package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/vyrodovalexey/modboot/internal/application"
	"github.com/vyrodovalexey/modboot/internal/health"
	"github.com/vyrodovalexey/modboot/internal/observability"
)

// Server timeouts.
const (
	serverReadTimeout       = 10 * time.Second
	serverReadHeaderTimeout = 5 * time.Second
	serverWriteTimeout      = 10 * time.Second
	serverShutdownTimeout   = 30 * time.Second
)

// newServeMux builds the handler serving /metrics and the probe endpoints
// for app. metrics may be nil, in which case /metrics is not mounted.
func newServeMux(
	app *application.Application,
	metrics *observability.Metrics,
	logger observability.Logger,
	ready func() bool,
) (*http.ServeMux, error) {
	var opts []health.Option
	if metrics != nil {
		hm, err := health.NewMetrics(app.Config().Metrics.Namespace, metrics)
		if err != nil {
			return nil, fmt.Errorf("failed to register health metrics: %w", err)
		}
		opts = append(opts, health.WithMetrics(hm))
	}

	checker := health.NewChecker(version, logger, opts...)
	checker.RegisterCheck("pipeline", health.PipelineCheck(app.State))
	checker.RegisterCheck("application", health.FlagCheck(ready, "application is shutting down"))

	mux := http.NewServeMux()
	if metrics != nil {
		mux.Handle("/metrics", metrics.Handler())
	}
	checker.Register(mux)
	return mux, nil
}

// serve runs the metrics and probe server until ctx is done.
func serve(
	ctx context.Context,
	addr string,
	app *application.Application,
	metrics *observability.Metrics,
	logger observability.Logger,
) error {
	stopping := make(chan struct{})
	mux, err := newServeMux(app, metrics, logger, func() bool {
		select {
		case <-stopping:
			return false
		default:
			return true
		}
	})
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadTimeout:       serverReadTimeout,
		ReadHeaderTimeout: serverReadHeaderTimeout,
		WriteTimeout:      serverWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting metrics server", observability.String("address", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("metrics server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("received shutdown signal")
	close(stopping)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), serverShutdownTimeout)
	defer cancel()

	logger.Info("stopping metrics server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to stop metrics server gracefully", observability.Error(err))
		return err
	}
	return nil
}
