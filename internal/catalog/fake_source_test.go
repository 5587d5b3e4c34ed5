package catalog

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"releasewatch/internal/ingestion/tmdb"
	"releasewatch/internal/release"
)

var testToday = time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC)

type fakeSource struct {
	mu        sync.Mutex
	pages     func(page int) []tmdb.Movie
	dates     map[int64][]tmdb.ReleaseDate
	pageErr   error
	datesErr  map[int64]error
	pageCalls int
	dateCalls map[int64]int

	// when set, CandidatePage signals started and waits for release
	started chan struct{}
	release chan struct{}
}

func newFakeSource(pages [][]tmdb.Movie) *fakeSource {
	return &fakeSource{
		pages: func(page int) []tmdb.Movie {
			if page-1 < len(pages) {
				return pages[page-1]
			}
			return nil
		},
		dates:     make(map[int64][]tmdb.ReleaseDate),
		datesErr:  make(map[int64]error),
		dateCalls: make(map[int64]int),
	}
}

func (f *fakeSource) CandidatePage(ctx context.Context, q tmdb.CandidateQuery, page int) ([]tmdb.Movie, error) {
	if f.started != nil {
		f.started <- struct{}{}
		<-f.release
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pageCalls++
	if f.pageErr != nil {
		return nil, f.pageErr
	}
	return f.pages(page), nil
}

func (f *fakeSource) ReleaseDates(ctx context.Context, movieID int64) ([]tmdb.ReleaseDate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dateCalls[movieID]++
	if err := f.datesErr[movieID]; err != nil {
		return nil, err
	}
	return f.dates[movieID], nil
}

func (f *fakeSource) setDigital(id int64, offsetDays int) {
	f.dates[id] = append(f.dates[id], tmdb.ReleaseDate{
		Country: "US",
		Type:    int(release.KindDigital),
		Date:    release.FormatDate(release.AddDays(testToday, offsetDays)),
	})
}

func (f *fakeSource) setTheatrical(id int64, offsetDays int) {
	f.dates[id] = append(f.dates[id], tmdb.ReleaseDate{
		Country: "US",
		Type:    int(release.KindTheatricalWide),
		Date:    release.FormatDate(release.AddDays(testToday, offsetDays)),
	})
}

func (f *fakeSource) totalDateCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.dateCalls {
		n += c
	}
	return n
}

func (f *fakeSource) pageCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pageCalls
}

func movies(ids ...int64) []tmdb.Movie {
	out := make([]tmdb.Movie, 0, len(ids))
	for _, id := range ids {
		out = append(out, tmdb.Movie{ID: id, Title: "Movie"})
	}
	return out
}

func newTestBuilder(src Source, cfg BuilderConfig) *Builder {
	b := NewBuilder(src, cfg, zerolog.Nop())
	b.now = func() time.Time { return testToday }
	b.sleep = func(context.Context, time.Duration) error { return nil }
	return b
}
