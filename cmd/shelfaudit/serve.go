package main

import (
	"context"
	"errors"
	"net/http"

	"github.com/spf13/cobra"

	"shelfaudit/internal/compliance/handler"
	"shelfaudit/internal/platform/config"
	"shelfaudit/internal/platform/httpserver"
	"shelfaudit/internal/platform/logger"
	"shelfaudit/internal/platform/metrics"
	httptransport "shelfaudit/internal/transport/http"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the evaluation API until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(ctx context.Context) error {
	cfg := config.FromEnv()
	if err := cfg.Validate(); err != nil {
		return err
	}
	log := logger.New(cfg.Log)

	a, err := buildApp(ctx, cfg, log, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	h := handler.New(a.service, log, metrics.New())
	srv := httpserver.New(cfg.Server, httptransport.NewRouter(a.checks, h))

	errCh := make(chan error, 1)
	go func() {
		log.InfoContext(ctx, "starting shelfaudit", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.InfoContext(ctx, "shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
