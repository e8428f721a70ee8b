package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/guildforge/craftledger/api/routes"
	"github.com/guildforge/craftledger/internal/catalog"
	croncfg "github.com/guildforge/craftledger/internal/cron"
	"github.com/guildforge/craftledger/internal/ledger"
	"github.com/guildforge/craftledger/internal/notify"
	"github.com/guildforge/craftledger/internal/scheduler"
	"github.com/guildforge/craftledger/internal/sweep"
	"github.com/guildforge/craftledger/pkg/config"
	"github.com/guildforge/craftledger/pkg/logger"
	"github.com/guildforge/craftledger/pkg/metrics"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "ledger-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		logg.Error(context.Background(), "invalid config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "ledger-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx := logg.WithField(context.Background(), "env", cfg.App.Env)

	cat, err := catalog.Open(cfg.Catalog.File, logg)
	if err != nil {
		logg.Error(ctx, "failed to load catalog", err)
		os.Exit(1)
	}
	snap := cat.Snapshot()

	loc := time.UTC
	if tz := snap.Sweep.Timezone; tz != "" {
		parsed, err := time.LoadLocation(tz)
		if err != nil {
			logg.Error(ctx, "invalid sweep timezone, falling back to UTC", err)
		} else {
			loc = parsed
		}
	}

	store, err := ledger.NewFileStore(cfg.Ledger.DataFile, logg)
	if err != nil {
		logg.Error(ctx, "failed to open ledger store", err)
		os.Exit(1)
	}

	var notifier notify.Notifier
	switch cfg.Notify.Transport {
	case "webhook":
		notifier = notify.NewWebhookNotifier(cfg.Notify.WebhookURL)
	default:
		notifier = notify.NewLogNotifier(logg)
	}

	timers := scheduler.New(logg)
	defer timers.Stop()

	ledgerMetrics := metrics.NewLedgerMetrics(prometheus.DefaultRegisterer)
	ledgerService, err := ledger.NewService(ledger.ServiceParams{
		Store:    store,
		Timers:   timers,
		Notifier: notifier,
		Catalog:  cat,
		Logger:   logg,
		Metrics:  ledgerMetrics,
		Location: loc,
	})
	if err != nil {
		logg.Error(ctx, "failed to build ledger service", err)
		os.Exit(1)
	}

	// Rehydration must complete before intake opens so no pending
	// transaction is ever left without a timer after a restart.
	ledgerService.Rehydrate(ctx)

	sweepJob, err := sweep.NewJob(sweep.JobParams{Logger: logg, Sweeper: ledgerService})
	if err != nil {
		logg.Error(ctx, "failed to build sweep job", err)
		os.Exit(1)
	}
	registry := croncfg.NewRegistry(croncfg.Entry{Expr: snap.Sweep.Cron, Job: sweepJob})
	cronService, err := croncfg.NewService(croncfg.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Metrics:  metrics.NewJobMetrics(prometheus.DefaultRegisterer),
		Location: loc,
	})
	if err != nil {
		logg.Error(ctx, "failed to build cron service", err)
		os.Exit(1)
	}
	cronService.Start()
	defer cronService.Stop()

	router := routes.NewRouter(cfg, logg, ledgerService, cat)
	server := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	shutdownCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logg.Info(logg.WithField(ctx, "port", cfg.App.Port), "ledger worker listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "http server stopped unexpectedly", err)
			stop()
		}
	}()

	<-shutdownCtx.Done()
	logg.Info(ctx, "shutting down")

	closeCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(closeCtx); err != nil {
		logg.Error(ctx, "http shutdown failed", err)
	}
	logg.Info(ctx, "ledger worker stopped")
}
