// Package bootstrap wires configuration, logging, the sanitizer, and the
// HTTP surface into a runnable service.
package bootstrap

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"scrub/api"
	"scrub/config"
	"scrub/sanitize"
)

// App is the sanitize service with all its components.
type App struct {
	Config    *config.Config
	Logger    *zap.Logger
	Sugar     *zap.SugaredLogger
	Sanitizer *sanitize.Sanitizer
	APIServer *api.API
}

// NewApp creates a new application instance and initializes all components.
func NewApp(ctx context.Context) (*App, error) {
	app := &App{}

	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	app.Config = cfg

	logger, sugar, err := InitLogger(cfg.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	app.Logger = logger
	app.Sugar = sugar

	sugar.Info("scrub starting...")

	if err := EnsureDataDirectories(cfg); err != nil {
		return nil, fmt.Errorf("pre-flight check failed: %w", err)
	}

	sanitizer, err := BuildSanitizer(cfg, sugar)
	if err != nil {
		return nil, err
	}
	app.Sanitizer = sanitizer

	app.APIServer = api.New(cfg, sanitizer, sugar)

	return app, nil
}

// Start starts all services.
func (a *App) Start(ctx context.Context) error {
	a.APIServer.Start()
	return nil
}

// WaitForShutdown blocks until SIGINT or SIGTERM.
func (a *App) WaitForShutdown() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	a.Sugar.Infow("Shutdown signal received", "signal", sig.String())
}

// Shutdown stops all services gracefully.
func (a *App) Shutdown() {
	if a.APIServer != nil {
		a.APIServer.Stop()
	}
	a.Sugar.Info("scrub stopped")
	_ = a.Logger.Sync()
}
