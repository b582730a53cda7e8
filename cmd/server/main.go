// Package main is the cloud entry point for the symphony rebalancer.
// It serves an HTTP trigger endpoint: a message-topic push (or a manual
// POST) starts one rebalance run. State lives at the broker; each run is
// complete in itself, so the server holds nothing between requests beyond
// the optional run journal.
package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joshwigginton/composer-signals-alpaca/internal/clients/alpaca"
	"github.com/joshwigginton/composer-signals-alpaca/internal/config"
	"github.com/joshwigginton/composer-signals-alpaca/internal/domain"
	"github.com/joshwigginton/composer-signals-alpaca/internal/journal"
	"github.com/joshwigginton/composer-signals-alpaca/internal/rebalance"
	"github.com/joshwigginton/composer-signals-alpaca/internal/server"
	"github.com/joshwigginton/composer-signals-alpaca/internal/signals"
	"github.com/joshwigginton/composer-signals-alpaca/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	log.Info().Str("symphony", cfg.SymphonyName).Msg("Starting rebalancer server")

	// Local file overrides the bucket, mainly for development
	var source domain.SignalSource
	if cfg.SignalFile != "" {
		source = &signals.FileSource{Path: cfg.SignalFile}
		log.Info().Str("path", cfg.SignalFile).Msg("Reading signal from local file")
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

	srv := server.New(server.Config{
		Port:    cfg.Port,
		Service: service,
		Journal: jnl,
		Log:     log,
	})

	go func() {
		if err := srv.Start(); err != nil {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
