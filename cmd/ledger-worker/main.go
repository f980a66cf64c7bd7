package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"shopledger/internal/amqp"
	"shopledger/internal/backend"
	"shopledger/internal/backup"
	"shopledger/internal/cli"
	applog "shopledger/internal/log"
	"shopledger/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	logger.Info("Starting ledger-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	if !cfg.AMQPEnabled() {
		logger.Error("AMQP_URL is required for the worker")
		os.Exit(1)
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", applog.FieldError, err)
		os.Exit(1)
	}
	// the worker only reads; its store must not publish events of its own
	bcfg.AMQPURL = ""
	res, err := backend.NewFactory(logger.WithComponent(applog.ComponentBackend)).CreateBackend(ctx, bcfg)
	if err != nil {
		logger.Error("Failed to initialize ledger backend", applog.FieldError, err)
		os.Exit(1)
	}
	defer res.Cleanup()

	sink, closeSink, err := backup.Open(ctx, cfg.BackupDir, cfg.BackupBucket, cfg.BackupPrefix)
	if err != nil {
		logger.Error("Failed to open backup destination", applog.FieldError, err)
		os.Exit(1)
	}
	defer closeSink()

	amqpClient, err := amqp.NewClient(ctx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
		os.Exit(1)
	}

	backupWorker := worker.NewBackupWorker(res.Store, sink,
		worker.WithLogger(logger.WithComponent(applog.ComponentWorker)))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return amqpClient.ConsumeEvents(gctx, backupWorker.HandleEvent)
	})
	g.Go(func() error {
		<-gctx.Done()
		return amqpClient.Close()
	})

	err = g.Wait()
	if ctx.Err() == nil {
		// consumption ended on its own, not through a signal
		logger.Error("Worker stopped", applog.FieldError, err)
		closeSink()
		res.Cleanup()
		os.Exit(1)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Warn("Worker stopped with error", applog.FieldError, err)
	}
	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker shutdown complete")
}
