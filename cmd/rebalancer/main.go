// Package main is the local entry point for the symphony rebalancer.
// By default it schedules the rebalance run via cron shortly after market
// open on weekdays; with -once it runs a single pass and exits, which is
// the mode to use from an external scheduler like systemd timers.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joshwigginton/composer-signals-alpaca/internal/clients/alpaca"
	"github.com/joshwigginton/composer-signals-alpaca/internal/config"
	"github.com/joshwigginton/composer-signals-alpaca/internal/domain"
	"github.com/joshwigginton/composer-signals-alpaca/internal/journal"
	"github.com/joshwigginton/composer-signals-alpaca/internal/rebalance"
	"github.com/joshwigginton/composer-signals-alpaca/internal/scheduler"
	"github.com/joshwigginton/composer-signals-alpaca/internal/signals"
	"github.com/joshwigginton/composer-signals-alpaca/pkg/logger"
)

func main() {
	once := flag.Bool("once", false, "run a single rebalance pass and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:   cfg.LogLevel,
		Pretty:  cfg.DevMode,
		LogFile: filepath.Join(cfg.DataDir, "rebalancer.log"),
	})
	logger.SetGlobalLogger(log)

	var source domain.SignalSource
	if cfg.SignalFile != "" {
		source = &signals.FileSource{Path: cfg.SignalFile}
	} else {
		source = signals.NewS3Source(signals.S3SourceConfig{
			Bucket:          cfg.SignalBucket,
			Key:             cfg.SignalKey,
			Region:          cfg.SignalRegion,
			CredentialsFile: cfg.CredentialsFile,
			AccessKeyID:     cfg.SignalAccessKey,
			SecretAccessKey: cfg.SignalSecretKey,
		}, log)
	}

	broker := alpaca.NewClient(alpaca.Config{
		BaseURL:   cfg.AlpacaBaseURL,
		DataURL:   cfg.AlpacaDataURL,
		APIKey:    cfg.AlpacaAPIKey,
		APISecret: cfg.AlpacaAPISecret,
		Timeout:   cfg.Timeout,
	}, log)

	jnl, err := journal.Open(filepath.Join(cfg.DataDir, "runs.db"), log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open run journal")
	}
	defer jnl.Close()

	service := rebalance.NewService(rebalance.ServiceConfig{
		Symphony:    cfg.SymphonyName,
		CashWeight:  cfg.CashWeight,
		MinOrderQty: cfg.MinOrderQty,
		FillTimeout: cfg.Timeout,
	}, source, broker, jnl, log)

	if *once {
		// A run with order rejections still completed; only fatal
		// errors (auth, signal, account reads) exit non-zero.
		report, err := service.Run(context.Background())
		if err != nil {
			log.Error().Err(err).Msg("Rebalance run failed")
			jnl.Close()
			os.Exit(1)
		}
		log.Info().
			Str("status", report.Status).
			Int("orders", len(report.Orders)).
			Int("rejections", report.Rejections()).
			Msg("Rebalance run finished")
		return
	}

	sched := scheduler.New(log)
	if err := sched.AddJob(cfg.Schedule, scheduler.NewRebalanceJob(service)); err != nil {
		log.Fatal().Err(err).Str("schedule", cfg.Schedule).Msg("Failed to register rebalance job")
	}
	sched.Start()

	log.Info().Str("schedule", cfg.Schedule).Msg("Rebalancer running")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down...")
	sched.Stop()
}
