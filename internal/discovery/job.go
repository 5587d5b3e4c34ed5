// Package discovery keeps the release dates of followed movies fresh and
// tells followers about new or moved dates.
package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"releasewatch/internal/ingestion/tmdb"
	"releasewatch/internal/metrics"
	"releasewatch/internal/models"
	"releasewatch/internal/notify"
	"releasewatch/internal/release"
	"releasewatch/internal/repository"
)

const (
	SyncTypeDiscovery  = "release_date_discovery"
	SyncTypeReleaseDay = "release_day_reminders"
)

// Source fetches every known release date of a movie.
type Source interface {
	ReleaseDates(ctx context.Context, movieID int64) ([]tmdb.ReleaseDate, error)
}

type Config struct {
	Country      string
	BatchSize    int
	HorizonDays  int
	StaleAfter   time.Duration
	RequestDelay time.Duration
	Interval     time.Duration
}

// Deps are the collaborators of a Job.
type Deps struct {
	Source     Source
	Follows    repository.FollowRepository
	Releases   repository.ReleaseRepository
	Movies     repository.MovieRepository
	Pending    repository.PendingNotificationRepository
	SyncState  repository.SyncStateRepository
	Dedup      *notify.Deduplicator
	Dispatcher *notify.Dispatcher
	Metrics    *metrics.Metrics
}

// Result summarizes one run.
type Result struct {
	RunID        string `json:"run_id"`
	Selected     int    `json:"selected"`
	Deferred     int    `json:"deferred"`
	Refreshed    int    `json:"refreshed"`
	Failed       int    `json:"failed"`
	Discovered   int    `json:"discovered"`
	Changed      int    `json:"changed"`
	Unchanged    int    `json:"unchanged"`
	Eligible     int    `json:"eligible"`
	Suppressed   int    `json:"suppressed"`
	Emails       int    `json:"emails"`
	Notified     int    `json:"notified"`
	MailFailures int    `json:"mail_failures"`
}

type Job struct {
	Deps
	cfg    Config
	logger zerolog.Logger
	now    func() time.Time
	sleep  func(ctx context.Context, d time.Duration) error
}

func NewJob(cfg Config, deps Deps, logger zerolog.Logger) *Job {
	if cfg.Country == "" {
		cfg.Country = release.HomeCountry
	}
	if cfg.BatchSize < 1 {
		cfg.BatchSize = 50
	}
	if cfg.HorizonDays < 1 {
		cfg.HorizonDays = 90
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = 24 * time.Hour
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 24 * time.Hour
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.New(nil)
	}
	return &Job{
		Deps:   deps,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
		sleep:  sleepContext,
	}
}

// followedMovie is one movie with everybody following it.
type followedMovie struct {
	id        int64
	title     string
	checkedAt *time.Time
	follows   []repository.FollowRow
	known     map[release.Kind]release.Fact
}

func (m *followedMovie) wants(k release.Kind) bool {
	for _, f := range m.follows {
		if kind, ok := release.ParseFollowKind(f.Kind); ok && kind.Wants(k) {
			return true
		}
	}
	return false
}

// candidate is one follower eligible for one refreshed fact.
type candidate struct {
	follow   repository.FollowRow
	kind     release.Kind
	class    Classification
	date     time.Time
	previous *time.Time

	// outbox row this candidate was loaded from
	pendingID int64
}

// Run executes one discovery pass: select movies needing attention, refresh
// them one at a time, persist, and email eligible followers not yet told
// about the movie.
func (j *Job) Run(ctx context.Context) (*Result, error) {
	now := j.now().UTC()
	today := release.Day(now)
	result := &Result{RunID: uuid.NewString()}
	logger := j.logger.With().Str("run_id", result.RunID).Logger()

	if err := j.SyncState.MarkRunning(ctx, SyncTypeDiscovery, result.RunID, now); err != nil {
		logger.Warn().Err(err).Msg("failed to update sync state")
	}

	runErr := j.run(ctx, logger, now, today, result)
	j.finish(ctx, logger, SyncTypeDiscovery, result, runErr)
	if runErr != nil {
		j.Metrics.DiscoveryRuns.WithLabelValues(SyncTypeDiscovery, "error").Inc()
		return result, runErr
	}
	j.Metrics.DiscoveryRuns.WithLabelValues(SyncTypeDiscovery, "success").Inc()

	logger.Info().
		Int("selected", result.Selected).
		Int("deferred", result.Deferred).
		Int("discovered", result.Discovered).
		Int("changed", result.Changed).
		Int("failed", result.Failed).
		Int("emails", result.Emails).
		Msg("discovery run completed")
	return result, nil
}

func (j *Job) run(ctx context.Context, logger zerolog.Logger, now, today time.Time, result *Result) error {
	selected, err := j.selectMovies(ctx, now, today, result)
	if err != nil {
		return err
	}

	var candidates []candidate
	for i, movie := range selected {
		if err := ctx.Err(); err != nil {
			return err
		}
		if i > 0 && j.cfg.RequestDelay > 0 {
			if err := j.sleep(ctx, j.cfg.RequestDelay); err != nil {
				return err
			}
		}
		found, err := j.refresh(ctx, logger, movie, now, today, result)
		if err != nil {
			result.Failed++
			j.Metrics.CatalogRequestError.WithLabelValues("release_dates").Inc()
			logger.Error().Err(err).Int64("movie_id", movie.id).Msg("failed to refresh release dates")
		} else {
			result.Refreshed++
			candidates = append(candidates, found...)
		}
		if err := j.Movies.MarkChecked(ctx, movie.id, now); err != nil {
			logger.Warn().Err(err).Int64("movie_id", movie.id).Msg("failed to stamp release date check")
		}
	}

	return j.notifyDiscovered(ctx, logger, today, candidates, result)
}

// selectMovies returns followed movies missing a tracked date, or holding an
// upcoming date inside the horizon that has not been validated recently.
// Never-checked movies go first, then the longest unchecked; overflow past
// BatchSize waits for a later run.
func (j *Job) selectMovies(ctx context.Context, now, today time.Time, result *Result) ([]*followedMovie, error) {
	rows, err := j.Follows.ListFollowRows(ctx)
	if err != nil {
		return nil, fmt.Errorf("list followed movies: %w", err)
	}

	byID := make(map[int64]*followedMovie)
	var ids []int64
	for _, row := range rows {
		m, ok := byID[row.MovieID]
		if !ok {
			m = &followedMovie{
				id:        row.MovieID,
				title:     row.Title,
				checkedAt: row.ReleaseDatesCheckedAt,
				known:     make(map[release.Kind]release.Fact),
			}
			byID[row.MovieID] = m
			ids = append(ids, row.MovieID)
		}
		m.follows = append(m.follows, row)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	facts, err := j.Releases.ListForMovies(ctx, j.cfg.Country, ids)
	if err != nil {
		return nil, fmt.Errorf("list stored release dates: %w", err)
	}
	for _, f := range facts {
		if m, ok := byID[f.MovieID]; ok {
			m.known[f.Kind] = f
		}
	}

	horizon := release.AddDays(today, j.cfg.HorizonDays)
	staleBefore := now.Add(-j.cfg.StaleAfter)
	var selected []*followedMovie
	for _, id := range ids {
		m := byID[id]
		if j.needsAttention(m, today, horizon, staleBefore) {
			selected = append(selected, m)
		}
	}

	sort.SliceStable(selected, func(a, b int) bool {
		ca, cb := selected[a].checkedAt, selected[b].checkedAt
		switch {
		case ca == nil && cb != nil:
			return true
		case ca != nil && cb == nil:
			return false
		case ca != nil && cb != nil && !ca.Equal(*cb):
			return ca.Before(*cb)
		}
		return selected[a].id < selected[b].id
	})

	if len(selected) > j.cfg.BatchSize {
		result.Deferred = len(selected) - j.cfg.BatchSize
		j.Metrics.DiscoveryDeferred.Add(float64(result.Deferred))
		selected = selected[:j.cfg.BatchSize]
	}
	result.Selected = len(selected)
	return selected, nil
}

func (j *Job) needsAttention(m *followedMovie, today, horizon, staleBefore time.Time) bool {
	for _, kind := range release.TrackedKinds {
		if !m.wants(kind) {
			continue
		}
		fact, ok := m.known[kind]
		if !ok {
			return true
		}
		upcoming := fact.Date.After(today) && !fact.Date.After(horizon)
		stale := fact.LastValidatedAt == nil || fact.LastValidatedAt.Before(staleBefore)
		if upcoming && stale {
			return true
		}
	}
	return false
}

// refresh fetches one movie, persists every tracked fact the catalog has and
// returns the followers eligible for a notification.
func (j *Job) refresh(ctx context.Context, logger zerolog.Logger, m *followedMovie, now, today time.Time, result *Result) ([]candidate, error) {
	raw, err := j.Source.ReleaseDates(ctx, m.id)
	if err != nil {
		return nil, err
	}
	facts := tmdb.ToFacts(m.id, raw)

	var out []candidate
	for _, kind := range release.TrackedKinds {
		date, ok := release.Latest(facts, j.cfg.Country, kind)
		if !ok {
			continue
		}

		var previous *time.Time
		if known, ok := m.known[kind]; ok {
			d := known.Date
			previous = &d
		}
		class := classify(previous, date)
		switch class {
		case Discovered:
			result.Discovered++
		case Changed:
			result.Changed++
		default:
			result.Unchanged++
		}
		j.Metrics.DiscoveryFacts.WithLabelValues(class.String()).Inc()

		fact := release.Fact{MovieID: m.id, Country: j.cfg.Country, Kind: kind, Date: date}
		if err := j.Releases.Upsert(ctx, fact, now); err != nil {
			// without a stored fact the next run rediscovers it; notify then
			logger.Error().Err(err).Int64("movie_id", m.id).Str("kind", kind.String()).Msg("failed to persist release date")
			continue
		}

		if class != Unchanged {
			logger.Info().
				Int64("movie_id", m.id).
				Str("kind", kind.String()).
				Str("classification", class.String()).
				Str("date", release.FormatDate(date)).
				Msg("release date refreshed")
		}

		if !eligible(class, previous, date, today) {
			continue
		}
		for _, follow := range m.follows {
			fk, ok := release.ParseFollowKind(follow.Kind)
			if !ok || !fk.Wants(kind) {
				continue
			}
			out = append(out, candidate{follow: follow, kind: kind, class: class, date: date, previous: previous})
		}
	}
	return out, nil
}

// notifyDiscovered queues this run's candidates in the outbox, then works
// the whole outbox: pairs already in the log are dropped, the rest are sent
// and logged with one row per (user, movie) actually delivered. Undelivered
// rows stay queued for the next run.
func (j *Job) notifyDiscovered(ctx context.Context, logger zerolog.Logger, today time.Time, candidates []candidate, result *Result) error {
	if err := j.Pending.Enqueue(ctx, toPending(candidates)); err != nil {
		logger.Error().Err(err).Msg("failed to queue discovery notifications")
	} else if queued, err := j.pendingCandidates(ctx, logger, today); err != nil {
		logger.Error().Err(err).Msg("failed to load queued discovery notifications")
	} else {
		candidates = queued
	}
	if len(candidates) == 0 {
		return nil
	}

	pairs := uniquePairs(candidates)
	result.Eligible = len(pairs)
	sent, err := j.Dedup.AlreadyNotified(ctx, models.NotificationDateDiscovered, pairs)
	if err != nil {
		return fmt.Errorf("check notification log: %w", err)
	}

	var (
		items []notify.Item
		done  []int64
	)
	for _, c := range candidates {
		if sent[pairOf(c)] {
			done = append(done, c.pendingID)
			continue
		}
		items = append(items, toItem(c))
	}
	result.Suppressed = len(pairs) - len(uniquePairsOfItems(items))

	report := j.Dispatcher.Dispatch(ctx, items)
	result.Emails = report.Emails
	result.MailFailures = len(report.Failed)

	delivered := uniquePairsOfItems(report.Sent)
	for _, c := range candidates {
		if delivered[pairOf(c)] {
			done = append(done, c.pendingID)
		}
	}
	if err := j.Pending.Delete(ctx, done); err != nil {
		logger.Error().Err(err).Msg("failed to clear delivered notifications")
	}

	var records []notify.Record
	for _, item := range report.Sent {
		records = append(records, notify.Record{
			Pair: notify.Pair{UserID: item.Recipient.UserID, MovieID: item.MovieID},
			Kind: models.NotificationDateDiscovered,
			Metadata: map[string]any{
				"reason":     string(item.Reason),
				"theatrical": formatPtr(item.Theatrical),
				"streaming":  formatPtr(item.Streaming),
				"run_id":     result.RunID,
			},
		})
	}
	written, err := j.Dedup.Record(ctx, records)
	result.Notified = written
	j.Metrics.NotificationsSent.WithLabelValues(models.NotificationDateDiscovered).Add(float64(written))
	if err != nil {
		logger.Error().Err(err).Msg("failed to record sent notifications")
	}
	return nil
}

// pendingCandidates rebuilds candidates from the outbox against the current
// follows and stored dates. Rows whose follow is gone or whose date no longer
// qualifies are deleted.
func (j *Job) pendingCandidates(ctx context.Context, logger zerolog.Logger, today time.Time) ([]candidate, error) {
	rows, err := j.Pending.List(ctx)
	if err != nil || len(rows) == 0 {
		return nil, err
	}

	seen := make(map[int64]bool)
	var ids []int64
	for _, row := range rows {
		if !seen[row.MovieID] {
			seen[row.MovieID] = true
			ids = append(ids, row.MovieID)
		}
	}
	follows, err := j.Follows.ListForMovies(ctx, ids)
	if err != nil {
		return nil, err
	}
	facts, err := j.Releases.ListForMovies(ctx, j.cfg.Country, ids)
	if err != nil {
		return nil, err
	}

	type factKey struct {
		movieID int64
		kind    release.Kind
	}
	dates := make(map[factKey]time.Time, len(facts))
	for _, f := range facts {
		dates[factKey{f.MovieID, f.Kind}] = f.Date
	}
	byPair := make(map[notify.Pair][]repository.FollowRow)
	for _, f := range follows {
		p := notify.Pair{UserID: f.UserID, MovieID: f.MovieID}
		byPair[p] = append(byPair[p], f)
	}

	var (
		out   []candidate
		stale []int64
	)
	for _, row := range rows {
		kind := release.Kind(row.ReleaseType)
		c := candidate{kind: kind, class: Discovered, pendingID: row.ID}
		if row.Changed {
			c.class = Changed
		}
		if row.PreviousDate != nil {
			if d, ok := release.ParseDate(*row.PreviousDate); ok {
				c.previous = &d
			}
		}
		date, hasDate := dates[factKey{row.MovieID, kind}]
		follow, following := followFor(byPair[notify.Pair{UserID: row.UserID, MovieID: row.MovieID}], kind)
		if !hasDate || !following || !eligible(c.class, c.previous, date, today) {
			stale = append(stale, row.ID)
			continue
		}
		c.date = date
		c.follow = follow
		out = append(out, c)
	}
	if err := j.Pending.Delete(ctx, stale); err != nil {
		logger.Warn().Err(err).Msg("failed to drop stale queued notifications")
	}
	return out, nil
}

func followFor(rows []repository.FollowRow, kind release.Kind) (repository.FollowRow, bool) {
	for _, f := range rows {
		if fk, ok := release.ParseFollowKind(f.Kind); ok && fk.Wants(kind) {
			return f, true
		}
	}
	return repository.FollowRow{}, false
}

func toPending(candidates []candidate) []models.PendingNotification {
	rows := make([]models.PendingNotification, 0, len(candidates))
	for _, c := range candidates {
		row := models.PendingNotification{
			UserID:      c.follow.UserID,
			MovieID:     c.follow.MovieID,
			ReleaseType: int(c.kind),
			Changed:     c.class == Changed,
		}
		if c.previous != nil {
			prev := release.FormatDate(*c.previous)
			row.PreviousDate = &prev
		}
		rows = append(rows, row)
	}
	return rows
}

func (j *Job) finish(ctx context.Context, logger zerolog.Logger, syncType string, result *Result, runErr error) {
	metadata, err := json.Marshal(result)
	if err != nil {
		metadata = []byte("{}")
	}
	if err := j.SyncState.MarkFinished(ctx, syncType, j.now(), runErr, string(metadata)); err != nil {
		logger.Warn().Err(err).Msg("failed to update sync state")
	}
}

// Start runs discovery and release-day reminders now and then every
// Interval until ctx is cancelled.
func (j *Job) Start(ctx context.Context) {
	j.logger.Info().Dur("interval", j.cfg.Interval).Msg("starting release date poller")
	j.RunAll(ctx)

	ticker := time.NewTicker(j.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			j.logger.Info().Msg("release date poller stopped")
			return
		case <-ticker.C:
			j.RunAll(ctx)
		}
	}
}

// RunAll runs both passes once, logging failures.
func (j *Job) RunAll(ctx context.Context) {
	if _, err := j.Run(ctx); err != nil {
		j.logger.Error().Err(err).Msg("discovery run failed")
	}
	if _, err := j.RunReleaseDay(ctx); err != nil {
		j.logger.Error().Err(err).Msg("release day run failed")
	}
}

func pairOf(c candidate) notify.Pair {
	return notify.Pair{UserID: c.follow.UserID, MovieID: c.follow.MovieID}
}

func uniquePairs(candidates []candidate) []notify.Pair {
	seen := make(map[notify.Pair]bool)
	var out []notify.Pair
	for _, c := range candidates {
		p := pairOf(c)
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	return out
}

func uniquePairsOfItems(items []notify.Item) map[notify.Pair]bool {
	out := make(map[notify.Pair]bool)
	for _, it := range items {
		out[notify.Pair{UserID: it.Recipient.UserID, MovieID: it.MovieID}] = true
	}
	return out
}

func toItem(c candidate) notify.Item {
	item := notify.Item{
		Recipient: notify.Recipient{UserID: c.follow.UserID, Email: c.follow.Email, Name: c.follow.Username},
		MovieID:   c.follow.MovieID,
		Title:     c.follow.Title,
		Reason:    notify.ReasonDiscovered,
	}
	if c.class == Changed {
		item.Reason = notify.ReasonChanged
	}
	date := c.date
	switch c.kind {
	case release.KindTheatricalWide:
		item.Theatrical = &date
		item.PreviousTheatrical = c.previous
	case release.KindDigital:
		item.Streaming = &date
		item.PreviousStreaming = c.previous
	}
	return item
}

func formatPtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return release.FormatDate(*t)
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
