// Package cli provides the initialization shared by cmd/contas and
// cmd/contas-worker.
package cli

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"contas/internal/backend"
	"contas/internal/cache"
	"contas/internal/config"
	"contas/internal/log"
	"contas/internal/services"
	"contas/internal/statement"
)

// SetupLogger builds the process logger from the config and installs it as
// the default one.
func SetupLogger(cfg *config.Config, out io.Writer) (*log.Logger, error) {
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = os.Stderr
	}
	logger := log.New(log.Config{
		Level:     level,
		Format:    cfg.LogFormat,
		Component: log.ComponentApp,
		Output:    out,
	})
	log.SetDefault(logger)
	return logger, nil
}

// LoadAndValidateConfig loads .env, then the environment, and validates it.
func LoadAndValidateConfig() (*config.Config, error) {
	config.LoadEnvFile()
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// App bundles what a command needs to run against the ledger.
type App struct {
	Config  *config.Config
	Logger  *log.Logger
	Backend *backend.BackendResult
	Ledger  *services.LedgerService
	Caches  *cache.Manager
}

// Open wires the backend selected by cfg into a ledger service.
func Open(ctx context.Context, cfg *config.Config, logger *log.Logger, pipelineOpts ...statement.PipelineOption) (*App, error) {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(logger.WithComponent(log.ComponentApp)).CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, err
	}

	pages := cache.NewPageCache(cfg.CacheMaxPages, cfg.CacheTTL)
	opts := []services.Option{
		services.WithPageCache(pages),
		services.WithPageSize(cfg.PageSize),
		services.WithLogger(logger.WithComponent(log.ComponentLedger)),
	}
	// A nil *amqp.Client must not reach the interface.
	if res.Publisher != nil {
		opts = append(opts, services.WithPublisher(res.Publisher))
	}
	pipelineOpts = append([]statement.PipelineOption{
		statement.WithLogger(logger.WithComponent(log.ComponentStatement)),
	}, pipelineOpts...)
	pipeline := statement.NewPipeline(statement.NewFormatReader(), pipelineOpts...)

	caches := cache.NewManager()
	caches.Register(pages)
	if cfg.CacheTTL > 0 {
		caches.StartCleanup(cfg.CacheTTL)
	}

	return &App{
		Config:  cfg,
		Logger:  logger,
		Backend: res,
		Ledger:  services.NewLedgerService(res.Store, pipeline, opts...),
		Caches:  caches,
	}, nil
}

// Close stops the cache sweeper and releases the backend.
func (a *App) Close() error {
	a.Caches.Stop()
	return a.Backend.Cleanup()
}

// GracefulShutdown returns a context cancelled on SIGINT or SIGTERM. The
// cleanup runs once the signal arrives, bounded by timeout.
func GracefulShutdown(logger *log.Logger, timeout time.Duration, cleanup func()) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		defer close(done)
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
		case <-ctx.Done():
			return
		}
		cancel()

		if cleanup == nil {
			return
		}
		finished := make(chan struct{})
		go func() {
			cleanup()
			close(finished)
		}()
		select {
		case <-finished:
			logger.Info("Shutdown complete")
		case <-time.After(timeout):
			logger.Warn("Shutdown timeout reached")
		}
	}()

	return ctx, done
}
