package discovery

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"releasewatch/internal/ingestion/tmdb"
	"releasewatch/internal/models"
	"releasewatch/internal/notify"
	"releasewatch/internal/release"
	"releasewatch/internal/repository"
	"releasewatch/internal/testutil"
)

var testNow = time.Date(2024, 5, 15, 10, 0, 0, 0, time.UTC)

type fakeSource struct {
	mu    sync.Mutex
	dates map[int64][]tmdb.ReleaseDate
	errs  map[int64]error
	calls []int64
}

func (f *fakeSource) ReleaseDates(ctx context.Context, movieID int64) ([]tmdb.ReleaseDate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, movieID)
	if err := f.errs[movieID]; err != nil {
		return nil, err
	}
	return f.dates[movieID], nil
}

func (f *fakeSource) set(movieID int64, kind release.Kind, offsetDays int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dates[movieID] = append(f.dates[movieID], tmdb.ReleaseDate{
		Country: "US",
		Type:    int(kind),
		Date:    release.FormatDate(release.AddDays(testNow, offsetDays)) + "T00:00:00.000Z",
	})
}

type sentMail struct {
	to    notify.Recipient
	items []notify.Item
}

type recordingMailer struct {
	mu      sync.Mutex
	sent    []sentMail
	singles int
	batches int
	failFor map[string]error
}

func (m *recordingMailer) SendSingle(ctx context.Context, to notify.Recipient, item notify.Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failFor[to.Email]; err != nil {
		return err
	}
	m.singles++
	m.sent = append(m.sent, sentMail{to: to, items: []notify.Item{item}})
	return nil
}

func (m *recordingMailer) SendBatch(ctx context.Context, to notify.Recipient, items []notify.Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failFor[to.Email]; err != nil {
		return err
	}
	m.batches++
	m.sent = append(m.sent, sentMail{to: to, items: items})
	return nil
}

func (m *recordingMailer) recipients() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, s := range m.sent {
		out = append(out, s.to.Email)
	}
	return out
}

type failingFollows struct {
	repository.FollowRepository
}

func (failingFollows) ListFollowRows(context.Context) ([]repository.FollowRow, error) {
	return nil, errors.New("relation \"follows\" does not exist")
}

type failingNotifications struct {
	repository.NotificationRepository
}

func (failingNotifications) FindSent(context.Context, string, []string, []int64, string) ([]models.NotificationLog, error) {
	return nil, errors.New("connection reset by peer")
}

type fixture struct {
	t      *testing.T
	db     *gorm.DB
	now    time.Time
	source *fakeSource
	mailer *recordingMailer
	job    *Job
	slept  []time.Duration
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	f := &fixture{
		t:      t,
		db:     db,
		now:    testNow,
		source: &fakeSource{dates: make(map[int64][]tmdb.ReleaseDate), errs: make(map[int64]error)},
		mailer: &recordingMailer{failFor: make(map[string]error)},
	}
	clock := func() time.Time { return f.now }

	dedup := notify.NewDeduplicator(repository.NewNotificationRepository(db), zerolog.Nop()).WithClock(clock)
	f.job = NewJob(cfg, Deps{
		Source:     f.source,
		Follows:    repository.NewFollowRepository(db),
		Releases:   repository.NewReleaseRepository(db),
		Movies:     repository.NewMovieRepository(db),
		Pending:    repository.NewPendingNotificationRepository(db),
		SyncState:  repository.NewSyncStateRepository(db),
		Dedup:      dedup,
		Dispatcher: notify.NewDispatcher(f.mailer, nil, zerolog.Nop()),
	}, zerolog.Nop())
	f.job.now = clock
	f.job.sleep = func(_ context.Context, d time.Duration) error {
		f.slept = append(f.slept, d)
		return nil
	}
	return f
}

func (f *fixture) user(email string) string {
	return testutil.SeedUser(f.t, f.db, email)
}

func (f *fixture) movie(id int64, title string) {
	testutil.SeedMovie(f.t, f.db, id, title)
}

func (f *fixture) follow(userID string, movieID int64, kind release.FollowKind) {
	testutil.SeedFollow(f.t, f.db, userID, movieID, string(kind))
}

// storeFact writes a known fact last validated validatedAgo before now.
func (f *fixture) storeFact(movieID int64, kind release.Kind, offsetDays int, validatedAgo time.Duration) {
	f.t.Helper()
	repo := repository.NewReleaseRepository(f.db)
	fact := release.Fact{MovieID: movieID, Country: "US", Kind: kind, Date: release.AddDays(f.now, offsetDays)}
	require.NoError(f.t, repo.Upsert(context.Background(), fact, f.now.Add(-validatedAgo)))
}

func (f *fixture) storedDate(movieID int64, kind release.Kind) (models.ReleaseDate, bool) {
	var row models.ReleaseDate
	err := f.db.Where("movie_id = ? AND country = ? AND release_type = ?", movieID, "US", int(kind)).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return row, false
	}
	require.NoError(f.t, err)
	return row, true
}

func (f *fixture) logRows() []models.NotificationLog {
	var rows []models.NotificationLog
	require.NoError(f.t, f.db.Order("movie_id, user_id, kind").Find(&rows).Error)
	return rows
}

func (f *fixture) pendingRows() []models.PendingNotification {
	rows, err := repository.NewPendingNotificationRepository(f.db).List(context.Background())
	require.NoError(f.t, err)
	return rows
}

// breakDedup makes notification log lookups fail until the returned func runs.
func (f *fixture) breakDedup() (restore func()) {
	working := f.job.Dedup
	f.job.Dedup = notify.NewDeduplicator(failingNotifications{}, zerolog.Nop())
	return func() { f.job.Dedup = working }
}

func day(offset int) string {
	return release.FormatDate(release.AddDays(testNow, offset))
}
