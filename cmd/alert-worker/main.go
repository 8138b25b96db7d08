package main

import (
	"context"
	"os"
	"time"

	"spendwatch/internal/amqp"
	"spendwatch/internal/backend"
	"spendwatch/internal/cli"
	applog "spendwatch/internal/log"
	"spendwatch/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentWorker)
	cfg := cli.LoadAndValidateConfig(logger)

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the alert worker")
		os.Exit(1)
	}

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	factory := backend.NewFactory(logger.Logger)
	state := cli.InitStateStore(context.Background(), logger, factory, backendCfg)
	notifier := cli.InitNotifier(context.Background(), logger, factory, backendCfg, backend.NotifierKind(cfg.WorkerNotifier))

	amqpClient, err := amqp.NewClient(context.Background(), cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}

	alertWorker := worker.NewAlertWorker(notifier.Notifier, state.Store, notifier.Channel)

	ctx, done := cli.GracefulShutdown(logger, 15*time.Second, func(context.Context) {
		cli.Close(logger, "amqp", amqpClient.Close)
		cli.Close(logger, "notifier", notifier.Cleanup)
		cli.Close(logger, "state_store", state.Cleanup)
	})

	logger.Info("Starting alert worker",
		"queue", cfg.AMQPQueue,
		"notifier", notifier.Channel)
	if err := amqpClient.ConsumeAlerts(ctx, alertWorker.HandleAlertMessage); err != nil && ctx.Err() == nil {
		logger.Error("Message consumption failed", "error", err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Alert worker stopped")
}
