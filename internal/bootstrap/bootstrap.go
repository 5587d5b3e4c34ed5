// Package bootstrap wires the components shared by the binaries from a
// loaded Config.
package bootstrap

import (
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"releasewatch/internal/cache"
	"releasewatch/internal/catalog"
	"releasewatch/internal/config"
	"releasewatch/internal/discovery"
	"releasewatch/internal/ingestion/tmdb"
	"releasewatch/internal/logging"
	"releasewatch/internal/metrics"
	"releasewatch/internal/notify"
	"releasewatch/internal/repository"
)

const cachePrefix = "releasewatch:"

// Logger builds the process logger tagged with the binary name.
func Logger(cfg *config.Config, name string) zerolog.Logger {
	return logging.Component(logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat}), name)
}

// CatalogSource returns the rate-limited TMDB client behind a circuit breaker.
func CatalogSource(cfg *config.Config, logger zerolog.Logger) (*tmdb.BreakerClient, error) {
	tmdbLogger := logging.Component(logger, "tmdb")
	client, err := tmdb.New(cfg.TMDBAPIKey, cfg.TMDBAPIURL,
		tmdb.WithRateLimit(cfg.TMDBRateLimit, cfg.TMDBRateBurst),
		tmdb.WithLanguage(cfg.TMDBLanguage),
		tmdb.WithLogger(tmdbLogger),
	)
	if err != nil {
		return nil, err
	}
	return tmdb.NewBreakerClient(client, tmdb.DefaultBreakerConfig(), tmdbLogger), nil
}

// Mailer returns the SMTP mailer, or the logging one when MAIL_DRY_RUN is set.
func Mailer(cfg *config.Config, logger zerolog.Logger) notify.Mailer {
	if cfg.MailDryRun {
		return notify.NewLogMailer(logging.Component(logger, "mailer"))
	}
	return notify.NewSMTPMailer(notify.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUser,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
		FromName: cfg.SMTPFromName,
		UseTLS:   cfg.SMTPTLS,
		Timeout:  30 * time.Second,
	})
}

// DiscoveryJob assembles the discovery job over db.
func DiscoveryJob(cfg *config.Config, db *gorm.DB, source discovery.Source, mailer notify.Mailer, m *metrics.Metrics, logger zerolog.Logger) *discovery.Job {
	return discovery.NewJob(discovery.Config{
		Country:      cfg.HomeCountry,
		BatchSize:    cfg.DiscoveryBatchSize,
		HorizonDays:  cfg.DiscoveryHorizonDays,
		StaleAfter:   cfg.DiscoveryStaleAfter,
		RequestDelay: cfg.DiscoveryRequestDelay,
		Interval:     cfg.DiscoveryInterval,
	}, discovery.Deps{
		Source:     source,
		Follows:    repository.NewFollowRepository(db),
		Releases:   repository.NewReleaseRepository(db),
		Movies:     repository.NewMovieRepository(db),
		Pending:    repository.NewPendingNotificationRepository(db),
		SyncState:  repository.NewSyncStateRepository(db),
		Dedup:      notify.NewDeduplicator(repository.NewNotificationRepository(db), logging.Component(logger, "dedup")),
		Dispatcher: notify.NewDispatcher(mailer, m, logging.Component(logger, "dispatcher")),
		Metrics:    m,
	}, logging.Component(logger, "discovery"))
}

// Cache connects to redis. When redis is unreachable it falls back to an
// in-process store and returns the connection error alongside it.
func Cache(cfg *config.Config) (cache.Store, *cache.RedisStore, error) {
	rs, err := cache.NewRedisStore(cfg.RedisURL, cfg.RedisPassword, cachePrefix)
	if err != nil {
		return cache.NewMemoryStore(), nil, err
	}
	return rs, rs, nil
}

// CatalogService assembles the cached list service.
func CatalogService(cfg *config.Config, source catalog.Source, store cache.Store, m *metrics.Metrics, logger zerolog.Logger) *catalog.Service {
	catalogLogger := logging.Component(logger, "catalog")
	builder := catalog.NewBuilder(source, catalog.BuilderConfig{
		Country:           cfg.HomeCountry,
		TargetCount:       cfg.CacheTargetCount,
		MaxPages:          cfg.CacheMaxPages,
		EnrichConcurrency: cfg.EnrichConcurrency,
		EnrichBatchDelay:  cfg.EnrichBatchDelay,
	}, catalogLogger)
	return catalog.NewService(builder, store, catalog.DefaultLists(cfg.CacheWindowDays), cfg.CacheTTLDuration(), m, catalogLogger)
}
