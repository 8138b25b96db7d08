package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	_ "time/tzdata"

	"spendwatch/internal/alerting"
	"spendwatch/internal/api"
	"spendwatch/internal/backend"
	"spendwatch/internal/cache"
	"spendwatch/internal/cli"
	apphttp "spendwatch/internal/http"
	applog "spendwatch/internal/log"
	"spendwatch/internal/services"
	"spendwatch/internal/watch"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)
	ctx := context.Background()

	loc, _ := cfg.Location()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	factory := backend.NewFactory(logger.Logger)
	state := cli.InitStateStore(ctx, logger, factory, backendCfg)
	notifier := cli.InitNotifier(ctx, logger, factory, backendCfg, backend.NotifierKind(cfg.Notifier))

	client := api.NewClient(cfg.APIBaseURL, nil,
		api.WithTimeout(cfg.APITimeout),
		api.WithLogger(logger.WithComponent(applog.ComponentAPI).Logger))
	remote := services.ClientFactory(client)

	snapshotCache := cache.NewLRUCache[services.Snapshot](cfg.CacheSize, cfg.CacheTTL)
	cacheManager := cache.NewManager(logger.Logger)
	cacheManager.Register(snapshotCache)
	cacheManager.StartCleanup(time.Minute)

	snapshots := services.NewSnapshots(remote, snapshotCache)
	dispatcher := alerting.NewDispatcher(state.Store, notifier.Notifier, notifier.Channel)
	reports := services.NewReportService(snapshots, remote, dispatcher, loc)
	if err := reports.SetDefaultThreshold(cfg.Threshold()); err != nil {
		logger.Error("Invalid default threshold", "error", err)
		os.Exit(1)
	}
	ledger := services.NewLedgerService(snapshots, remote)

	var watcher *watch.Watcher
	if cfg.WatchEnabled() {
		watcher = watch.New(reports, watch.Config{
			Schedule: cfg.WatchSchedule,
			UserID:   cfg.WatchUserID,
			Token:    cfg.WatchToken,
			Timeout:  2 * cfg.APITimeout,
		})
		if err := watcher.Start(ctx); err != nil {
			logger.Error("Failed to start scheduled checks", "error", err)
			os.Exit(1)
		}
	}

	srv := apphttp.NewServer(apphttp.Config{
		Addr:         ":" + cfg.Port,
		RateLimitRPM: cfg.RateLimitRPM,
		Logger:       logger,
		Checks:       map[string]apphttp.Pinger{"state_store": state.Store},
	}, reports, ledger)

	shutdownCtx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		if watcher != nil {
			if err := watcher.Stop(ctx); err != nil {
				logger.Warn("Scheduled checks did not stop cleanly", "error", err)
			}
		}
		cacheManager.Stop()
		cli.Close(logger, "notifier", notifier.Cleanup)
		cli.Close(logger, "state_store", state.Cleanup)
	})

	logger.Info("Starting spendwatch server",
		"port", cfg.Port,
		"api", client.BaseURL(),
		"state_backend", cfg.StateBackend,
		"notifier", notifier.Channel,
		"watch", cfg.WatchEnabled())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(shutdownCtx, done)
	logger.Info("Server stopped gracefully")
}
