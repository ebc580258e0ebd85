package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/wolfman30/trading-academy/internal/app/bootstrap"
	appconfig "github.com/wolfman30/trading-academy/internal/config"
	"github.com/wolfman30/trading-academy/pkg/logging"
)

func main() {
	// .env is optional; real deployments inject the environment.
	_ = godotenv.Load()

	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting trading-academy API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
	fmt.Println("Server exited gracefully")
}

func run(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) error {
	app, err := bootstrap.Build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer app.Close()
	go app.RunMaintenance(ctx)

	srv := newServer(cfg.Port, app.Handler)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
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

	logger.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

// newServer sets the timeouts. WriteTimeout stays generous for the chatbot
// LLM round trip and the guide PDF.
func newServer(port string, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              ":" + port,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
