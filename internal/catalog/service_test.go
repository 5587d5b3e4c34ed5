package catalog

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"releasewatch/internal/cache"
	"releasewatch/internal/ingestion/tmdb"
	"releasewatch/internal/metrics"
)

type failingStore struct{}

func (failingStore) Get(context.Context, string) ([]byte, error) {
	return nil, errors.New("connection refused")
}
func (failingStore) Set(context.Context, string, []byte, time.Duration) error {
	return errors.New("connection refused")
}
func (failingStore) Del(context.Context, string) error { return nil }

func newTestService(src Source, store cache.Store, m *metrics.Metrics) *Service {
	b := newTestBuilder(src, BuilderConfig{TargetCount: 50, MaxPages: 3, EnrichConcurrency: 4})
	return NewService(b, store, DefaultLists(30), time.Hour, m, zerolog.Nop())
}

func recentSource(n int64) *fakeSource {
	var ids []int64
	for id := int64(1); id <= n; id++ {
		ids = append(ids, id)
	}
	src := newFakeSource([][]tmdb.Movie{movies(ids...)})
	for id := int64(1); id <= n; id++ {
		src.setDigital(id, -int(id))
	}
	return src
}

func TestGetPageReadThrough(t *testing.T) {
	src := recentSource(5)
	m := metrics.New(prometheus.NewRegistry())
	svc := newTestService(src, cache.NewMemoryStore(), m)
	ctx := context.Background()

	page, err := svc.GetPage(ctx, ListRecentDigital, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 5, page.TotalCount)
	assert.Equal(t, 3, page.TotalPages)
	require.Len(t, page.Movies, 2)
	assert.Equal(t, int64(1), page.Movies[0].ID)
	calls := src.pageCallCount()

	page, err = svc.GetPage(ctx, ListRecentDigital, 3, 2)
	require.NoError(t, err)
	require.Len(t, page.Movies, 1)
	assert.Equal(t, int64(5), page.Movies[0].ID)
	assert.Equal(t, calls, src.pageCallCount(), "second read must be served from cache")

	assert.Equal(t, 1.0, promtestutil.ToFloat64(m.CacheReads.WithLabelValues(ListRecentDigital, "miss")))
	assert.Equal(t, 1.0, promtestutil.ToFloat64(m.CacheReads.WithLabelValues(ListRecentDigital, "hit")))
	assert.Equal(t, 1.0, promtestutil.ToFloat64(m.CacheBuilds.WithLabelValues(ListRecentDigital, "success")))
}

func TestGetPageClampsArguments(t *testing.T) {
	svc := newTestService(recentSource(3), cache.NewMemoryStore(), nil)

	page, err := svc.GetPage(context.Background(), ListRecentDigital, 0, 1000)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, MaxPageLimit, page.Limit)
	assert.Len(t, page.Movies, 3)
}

func TestGetPageUnknownList(t *testing.T) {
	svc := newTestService(recentSource(1), cache.NewMemoryStore(), nil)
	_, err := svc.GetPage(context.Background(), "popular", 1, 10)
	assert.ErrorIs(t, err, ErrUnknownList)
	_, err = svc.Refresh(context.Background(), "popular")
	assert.ErrorIs(t, err, ErrUnknownList)
}

func TestFailedRefreshKeepsPreviousEntry(t *testing.T) {
	src := recentSource(2)
	store := cache.NewMemoryStore()
	svc := newTestService(src, store, nil)
	ctx := context.Background()

	_, err := svc.GetPage(ctx, ListRecentDigital, 1, 10)
	require.NoError(t, err)
	before, err := store.Get(ctx, svc.builder.CacheKey(ListRecentDigital))
	require.NoError(t, err)

	src.pageErr = errors.New("upstream down")
	_, err = svc.Refresh(ctx, ListRecentDigital)
	require.Error(t, err)

	after, err := store.Get(ctx, svc.builder.CacheKey(ListRecentDigital))
	require.NoError(t, err)
	assert.Equal(t, before, after)

	page, err := svc.GetPage(ctx, ListRecentDigital, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, page.TotalCount)
}

func TestFailedBuildWritesNothing(t *testing.T) {
	src := recentSource(2)
	src.datesErr[2] = errors.New("boom")
	store := cache.NewMemoryStore()
	svc := newTestService(src, store, nil)

	_, err := svc.GetPage(context.Background(), ListRecentDigital, 1, 10)
	require.Error(t, err)
	assert.Equal(t, 0, store.Len())
}

func TestConcurrentMissesShareOneBuild(t *testing.T) {
	src := recentSource(3)
	src.started = make(chan struct{}, 16)
	src.release = make(chan struct{})
	svc := newTestService(src, cache.NewMemoryStore(), nil)

	const callers = 8
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.GetPage(context.Background(), ListRecentDigital, 1, 10)
			errs <- err
		}()
	}

	<-src.started
	time.Sleep(20 * time.Millisecond)
	close(src.release)
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	// one build: page 1 plus the terminating empty page
	assert.Equal(t, 2, src.pageCallCount())
	assert.Equal(t, 3, src.totalDateCalls())
}

func TestCancelledCallerDoesNotFailSharedBuild(t *testing.T) {
	src := recentSource(3)
	src.started = make(chan struct{}, 16)
	src.release = make(chan struct{})
	store := cache.NewMemoryStore()
	svc := newTestService(src, store, nil)

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := svc.GetPage(firstCtx, ListRecentDigital, 1, 10)
		firstErr <- err
	}()
	<-src.started

	type result struct {
		page *Page
		err  error
	}
	second := make(chan result, 1)
	go func() {
		page, err := svc.GetPage(context.Background(), ListRecentDigital, 1, 10)
		second <- result{page, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancelFirst()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	close(src.release)
	res := <-second
	require.NoError(t, res.err)
	assert.Equal(t, 3, res.page.TotalCount)
	assert.Equal(t, 1, store.Len())
	// page 1 plus the terminating empty page
	assert.Equal(t, 2, src.pageCallCount())
}

func TestCacheStoreErrorsAreNotReturned(t *testing.T) {
	svc := newTestService(recentSource(2), failingStore{}, nil)
	page, err := svc.GetPage(context.Background(), ListRecentDigital, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, page.TotalCount)
}

func TestUndecodableEntryIsRebuilt(t *testing.T) {
	src := recentSource(1)
	store := cache.NewMemoryStore()
	svc := newTestService(src, store, nil)
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, svc.builder.CacheKey(ListRecentDigital), []byte("{not json"), time.Hour))

	page, err := svc.GetPage(ctx, ListRecentDigital, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, page.TotalCount)
}

func TestRefreshAllContinuesPastFailures(t *testing.T) {
	src := recentSource(1)
	src.pageErr = errors.New("down")
	svc := newTestService(src, cache.NewMemoryStore(), nil)

	err := svc.RefreshAll(context.Background())
	require.Error(t, err)
	assert.Equal(t, 2, src.pageCallCount())
}
