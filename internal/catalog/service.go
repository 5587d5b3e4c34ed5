package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"releasewatch/internal/cache"
	"releasewatch/internal/metrics"
)

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100

	// upper bound for a shared build once the caller that started it is gone
	buildTimeout = 5 * time.Minute
)

// Service serves list pages read-through from the cache store. A miss builds
// the list synchronously; concurrent builds of one key are collapsed.
type Service struct {
	builder *Builder
	store   cache.Store
	lists   map[string]Filter
	ttl     time.Duration
	metrics *metrics.Metrics
	logger  zerolog.Logger
	group   singleflight.Group
}

func NewService(builder *Builder, store cache.Store, lists map[string]Filter, ttl time.Duration, m *metrics.Metrics, logger zerolog.Logger) *Service {
	if m == nil {
		m = metrics.New(nil)
	}
	return &Service{
		builder: builder,
		store:   store,
		lists:   lists,
		ttl:     ttl,
		metrics: m,
		logger:  logger,
	}
}

// Lists returns the names of the served lists.
func (s *Service) Lists() []string {
	names := make([]string, 0, len(s.lists))
	for name := range s.lists {
		names = append(names, name)
	}
	return names
}

// GetPage returns page (1-based) of list. Out-of-range values are clamped.
func (s *Service) GetPage(ctx context.Context, list string, page, limit int) (*Page, error) {
	f, ok := s.lists[list]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownList, list)
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}

	key := s.builder.CacheKey(f.List)
	if entry, ok := s.load(ctx, key); ok {
		s.metrics.CacheReads.WithLabelValues(f.List, "hit").Inc()
		return entry.Slice(page, limit), nil
	}
	s.metrics.CacheReads.WithLabelValues(f.List, "miss").Inc()

	entry, err := s.build(ctx, f, false)
	if err != nil {
		return nil, err
	}
	return entry.Slice(page, limit), nil
}

// Refresh rebuilds list regardless of what is cached. On failure the
// previous entry stays in place until its TTL expires.
func (s *Service) Refresh(ctx context.Context, list string) (*Entry, error) {
	f, ok := s.lists[list]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownList, list)
	}
	return s.build(ctx, f, true)
}

// RefreshAll rebuilds every list, continuing past failures.
func (s *Service) RefreshAll(ctx context.Context) error {
	var errs []error
	for name := range s.lists {
		if _, err := s.Refresh(ctx, name); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Service) build(ctx context.Context, f Filter, force bool) (*Entry, error) {
	key := s.builder.CacheKey(f.List)
	ch := s.group.DoChan(key, func() (interface{}, error) {
		// the build is shared, so it must outlive any single caller
		bctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), buildTimeout)
		defer cancel()

		// another caller may have stored the entry while we waited
		if !force {
			if entry, ok := s.load(bctx, key); ok {
				return entry, nil
			}
		}

		start := time.Now()
		entry, err := s.builder.Build(bctx, f)
		if err != nil {
			s.metrics.CacheBuilds.WithLabelValues(f.List, "error").Inc()
			s.logger.Error().Err(err).Str("cache_key", key).Msg("list build failed")
			return nil, err
		}
		s.metrics.CacheBuilds.WithLabelValues(f.List, "success").Inc()
		s.metrics.CacheBuildPages.WithLabelValues(f.List).Observe(float64(entry.Stats.PagesConsumed))
		s.logger.Info().
			Str("cache_key", key).
			Int("movies", entry.TotalCount).
			Int("pages", entry.Stats.PagesConsumed).
			Int("enriched", entry.Stats.Enriched).
			Dur("took", time.Since(start)).
			Msg("list built")

		s.save(bctx, entry)
		return entry, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Entry), nil
	}
}

// load treats store failures and undecodable payloads as misses.
func (s *Service) load(ctx context.Context, key string) (*Entry, bool) {
	data, err := s.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			s.logger.Warn().Err(err).Str("cache_key", key).Msg("cache read failed")
		}
		return nil, false
	}
	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		s.logger.Warn().Err(err).Str("cache_key", key).Msg("discarding undecodable cache entry")
		return nil, false
	}
	return &entry, true
}

func (s *Service) save(ctx context.Context, entry *Entry) {
	data, err := json.Marshal(entry)
	if err != nil {
		s.logger.Error().Err(err).Str("cache_key", entry.CacheKey).Msg("encode cache entry")
		return
	}
	if err := s.store.Set(ctx, entry.CacheKey, data, s.ttl); err != nil {
		s.logger.Warn().Err(err).Str("cache_key", entry.CacheKey).Msg("cache write failed")
	}
}
