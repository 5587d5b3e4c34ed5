// Package catalog builds and serves cached movie lists backed by the
// upstream catalog.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"releasewatch/internal/ingestion/tmdb"
	"releasewatch/internal/release"
	"releasewatch/internal/worker"
)

var (
	// ErrInvariant reports an impossible build state.
	ErrInvariant = errors.New("catalog: invariant violated")
	// ErrUnknownList is returned for a list name with no filter.
	ErrUnknownList = errors.New("catalog: unknown list")
)

// Source is the upstream catalog.
type Source interface {
	CandidatePage(ctx context.Context, q tmdb.CandidateQuery, page int) ([]tmdb.Movie, error)
	ReleaseDates(ctx context.Context, movieID int64) ([]tmdb.ReleaseDate, error)
}

type BuilderConfig struct {
	Country           string
	TargetCount       int
	MaxPages          int
	EnrichConcurrency int
	EnrichBatchDelay  time.Duration
}

// Builder runs the bounded page-fetch/enrich/filter loop for one list.
type Builder struct {
	source Source
	cfg    BuilderConfig
	logger zerolog.Logger
	now    func() time.Time
	sleep  func(ctx context.Context, d time.Duration) error
}

func NewBuilder(source Source, cfg BuilderConfig, logger zerolog.Logger) *Builder {
	if cfg.Country == "" {
		cfg.Country = release.HomeCountry
	}
	if cfg.TargetCount < 1 {
		cfg.TargetCount = 60
	}
	if cfg.MaxPages < 1 {
		cfg.MaxPages = 10
	}
	if cfg.EnrichConcurrency < 1 {
		cfg.EnrichConcurrency = 5
	}
	return &Builder{
		source: source,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
		sleep:  sleepContext,
	}
}

// CacheKey is the store key for a list in the builder's country.
func (b *Builder) CacheKey(list string) string {
	return fmt.Sprintf("list:%s:%s", b.cfg.Country, list)
}

// Build fetches candidate pages until the filter yields TargetCount movies,
// the catalog runs dry, or MaxPages pages were consumed. Each unique movie is
// enriched at most once per build. Any fetch or enrichment error fails the
// whole build.
func (b *Builder) Build(ctx context.Context, f Filter) (*Entry, error) {
	today := release.Day(b.now())
	from, to := f.Range(today)
	query := tmdb.CandidateQuery{
		Region: b.cfg.Country,
		Kinds:  f.Kinds,
		From:   from,
		To:     to,
	}

	var (
		stats    Stats
		order    []int64
		seen     = make(map[int64]tmdb.Movie)
		enriched = make(map[int64]release.Summary)
		matched  = make(map[int64]time.Time)
	)

	for page := 1; page <= b.cfg.MaxPages; page++ {
		movies, err := b.source.CandidatePage(ctx, query, page)
		if err != nil {
			return nil, fmt.Errorf("build %s: %w", f.List, err)
		}
		stats.PagesConsumed++
		if len(movies) == 0 {
			break
		}
		stats.TotalFetched += len(movies)

		for _, m := range movies {
			if m.Adult || m.ID <= 0 {
				continue
			}
			if _, ok := seen[m.ID]; ok {
				continue
			}
			seen[m.ID] = m
			order = append(order, m.ID)
		}

		var pending []int64
		for _, id := range order {
			if _, ok := enriched[id]; !ok {
				pending = append(pending, id)
			}
		}
		if err := b.enrich(ctx, pending, enriched); err != nil {
			return nil, fmt.Errorf("build %s: %w", f.List, err)
		}

		for _, id := range order {
			if day, ok := f.Match(enriched[id], today); ok {
				matched[id] = day
			}
		}
		stats.UniqueMovies = len(order)
		stats.Enriched = len(enriched)
		stats.Filtered = len(matched)

		b.logger.Debug().
			Str("list", f.List).
			Int("page", page).
			Int("unique", stats.UniqueMovies).
			Int("filtered", stats.Filtered).
			Msg("candidate page processed")

		if stats.Filtered >= b.cfg.TargetCount {
			break
		}
	}

	if err := stats.validate(); err != nil {
		return nil, err
	}

	movies := make([]MovieEntry, 0, len(matched))
	for _, id := range order {
		day, ok := matched[id]
		if !ok {
			continue
		}
		m := seen[id]
		movies = append(movies, MovieEntry{
			ID:          m.ID,
			Title:       m.Title,
			PosterPath:  m.PosterPath,
			Popularity:  m.Popularity,
			ReleaseDate: release.FormatDate(day),
			Releases:    enriched[id],
			sortDay:     day,
		})
	}
	sort.SliceStable(movies, func(i, j int) bool {
		return f.less(movies[i], movies[j])
	})

	return &Entry{
		CacheKey:   b.CacheKey(f.List),
		Country:    b.cfg.Country,
		Filter:     f,
		Movies:     movies,
		TotalCount: len(movies),
		BuiltAt:    b.now().UTC(),
		Stats:      stats,
	}, nil
}

// enrich unifies the release dates of ids in windows of EnrichConcurrency,
// pausing EnrichBatchDelay between windows.
func (b *Builder) enrich(ctx context.Context, ids []int64, into map[int64]release.Summary) error {
	var mu sync.Mutex
	size := b.cfg.EnrichConcurrency

	for start := 0; start < len(ids); start += size {
		if start > 0 && b.cfg.EnrichBatchDelay > 0 {
			if err := b.sleep(ctx, b.cfg.EnrichBatchDelay); err != nil {
				return err
			}
		}
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}

		pool := worker.NewWorkerPool(ctx, end-start, b.logger)
		pool.Start()
		for _, id := range ids[start:end] {
			id := id
			err := pool.Submit(func(ctx context.Context) error {
				dates, err := b.source.ReleaseDates(ctx, id)
				if err != nil {
					return fmt.Errorf("enrich movie %d: %w", id, err)
				}
				summary := release.UnifyCountry(tmdb.ToFacts(id, dates), b.cfg.Country)
				mu.Lock()
				into[id] = summary
				mu.Unlock()
				return nil
			})
			if err != nil {
				break
			}
		}
		if err := pool.Wait(); err != nil {
			return err
		}
	}
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
