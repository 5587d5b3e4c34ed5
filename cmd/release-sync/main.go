package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"releasewatch/database"
	"releasewatch/internal/bootstrap"
	"releasewatch/internal/catalog"
	"releasewatch/internal/config"
	"releasewatch/internal/logging"
	"releasewatch/internal/metrics"
)

func main() {
	once := flag.Bool("once", false, "run a single discovery and release-day pass, then exit")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		l := logging.New(logging.Config{Level: "info", Format: "text"})
		l.Fatal().Err(err).Msg("could not load config")
	}
	logger := bootstrap.Logger(cfg, "release-sync")
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}
	if err := cfg.ValidateMail(); err != nil {
		logger.Fatal().Err(err).Msg("invalid mail configuration")
	}

	db, err := database.ConnectDB(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	m := metrics.New(prometheus.DefaultRegisterer)
	source, err := bootstrap.CatalogSource(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create catalog client")
	}
	if cfg.MailDryRun {
		logger.Warn().Msg("MAIL_DRY_RUN is set, notifications are only logged")
	}
	job := bootstrap.DiscoveryJob(cfg, db, source, bootstrap.Mailer(cfg, logger), m, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info().Msg("received shutdown signal, stopping")
		cancel()
	}()

	if *once {
		if _, err := job.Run(ctx); err != nil {
			logger.Error().Err(err).Msg("discovery run failed")
			os.Exit(1)
		}
		if _, err := job.RunReleaseDay(ctx); err != nil {
			logger.Error().Err(err).Msg("release day run failed")
			os.Exit(1)
		}
		return
	}

	// keep the cached lists warm when redis is reachable
	if _, rs, err := bootstrap.Cache(cfg); err != nil {
		logger.Warn().Err(err).Msg("redis unavailable, cached lists are built on demand by the api server")
	} else {
		defer rs.Close()
		svc := bootstrap.CatalogService(cfg, source, rs, m, logger)
		go warmLists(ctx, svc, cfg.CacheTTLDuration()/2, logger)
	}

	job.Start(ctx)
	logger.Info().Msg("service stopped")
}

// warmLists rebuilds every list now and then every interval.
func warmLists(ctx context.Context, svc *catalog.Service, interval time.Duration, logger zerolog.Logger) {
	if interval < time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if err := svc.RefreshAll(ctx); err != nil {
			logger.Error().Err(err).Msg("failed to refresh cached lists")
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
