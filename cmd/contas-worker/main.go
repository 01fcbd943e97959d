// Command contas-worker publishes bill reports to the configured sink. It
// consumes report-sync messages and re-publishes the current year on an
// interval to recover lost ones.
package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"contas/internal/cli"
	"contas/internal/log"
	"contas/internal/worker"
)

func main() {
	if err := run(); err != nil {
		log.Default(log.ComponentWorker).Error("Worker stopped", log.FieldError, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		return err
	}
	logger, err := cli.SetupLogger(cfg, os.Stdout)
	if err != nil {
		return err
	}
	logger = logger.WithComponent(log.ComponentWorker)
	logger.Info("Starting contas-worker")

	ctx, done := cli.GracefulShutdown(logger, 10*time.Second, nil)

	app, err := cli.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Warn("Failed to close backend", log.FieldError, err)
		}
	}()

	if app.Backend.Sink == nil {
		return errors.New("REPORT_SINK is none: nothing to publish to")
	}
	w := worker.NewReportSyncWorker(app.Ledger, app.Backend.Sink, app.Backend.Totals)

	g, gctx := errgroup.WithContext(ctx)
	if app.Backend.Publisher != nil {
		g.Go(func() error {
			return app.Backend.Publisher.ConsumeReportSync(gctx, w.HandleSyncMessage)
		})
	} else {
		logger.Info("AMQP disabled, relying on periodic sync only")
	}
	g.Go(func() error {
		return w.RunPeriodic(gctx, cfg.SyncInterval, time.Now)
	})

	err = g.Wait()
	if ctx.Err() != nil {
		<-done
	}
	if errors.Is(err, context.Canceled) {
		logger.Info("contas-worker stopped")
		return nil
	}
	return err
}
