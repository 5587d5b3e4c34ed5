package discovery

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"releasewatch/internal/models"
	"releasewatch/internal/notify"
	"releasewatch/internal/release"
)

// releaseDayKinds maps a tracked release kind to its reminder log kind.
var releaseDayKinds = map[release.Kind]string{
	release.KindTheatricalWide: models.NotificationTheatricalRelease,
	release.KindDigital:        models.NotificationStreamingRelease,
}

// RunReleaseDay reminds followers of movies released today. Each (user,
// movie, kind) is reminded at most once per calendar day.
func (j *Job) RunReleaseDay(ctx context.Context) (*Result, error) {
	now := j.now().UTC()
	today := release.Day(now)
	result := &Result{RunID: uuid.NewString()}
	logger := j.logger.With().Str("run_id", result.RunID).Str("job", SyncTypeReleaseDay).Logger()

	if err := j.SyncState.MarkRunning(ctx, SyncTypeReleaseDay, result.RunID, now); err != nil {
		logger.Warn().Err(err).Msg("failed to update sync state")
	}

	err := j.runReleaseDay(ctx, today, result)
	j.finish(ctx, logger, SyncTypeReleaseDay, result, err)
	if err != nil {
		j.Metrics.DiscoveryRuns.WithLabelValues(SyncTypeReleaseDay, "error").Inc()
		return result, err
	}
	j.Metrics.DiscoveryRuns.WithLabelValues(SyncTypeReleaseDay, "success").Inc()
	logger.Info().Int("selected", result.Selected).Int("emails", result.Emails).Msg("release day run completed")
	return result, nil
}

func (j *Job) runReleaseDay(ctx context.Context, today time.Time, result *Result) error {
	facts, err := j.Releases.ListOnDay(ctx, j.cfg.Country, today, release.TrackedKinds)
	if err != nil {
		return fmt.Errorf("list releases for today: %w", err)
	}
	if len(facts) == 0 {
		return nil
	}

	var movieIDs []int64
	seenMovie := make(map[int64]bool)
	for _, f := range facts {
		if !seenMovie[f.MovieID] {
			seenMovie[f.MovieID] = true
			movieIDs = append(movieIDs, f.MovieID)
		}
	}
	result.Selected = len(movieIDs)

	follows, err := j.Follows.ListForMovies(ctx, movieIDs)
	if err != nil {
		return fmt.Errorf("list followers: %w", err)
	}

	// candidate pairs per reminder kind
	byKind := make(map[string][]candidate)
	for _, f := range facts {
		logKind, ok := releaseDayKinds[f.Kind]
		if !ok {
			continue
		}
		for _, follow := range follows {
			if follow.MovieID != f.MovieID {
				continue
			}
			fk, ok := release.ParseFollowKind(follow.Kind)
			if !ok || !fk.Wants(f.Kind) {
				continue
			}
			byKind[logKind] = append(byKind[logKind], candidate{follow: follow, kind: f.Kind, date: f.Date})
		}
	}

	var items []notify.Item
	// kinds each delivered (user, movie) stands for, to log after sending
	pending := make(map[notify.Pair][]string)
	for _, logKind := range []string{models.NotificationTheatricalRelease, models.NotificationStreamingRelease} {
		cands := byKind[logKind]
		if len(cands) == 0 {
			continue
		}
		pairs := uniquePairs(cands)
		result.Eligible += len(pairs)
		sent, err := j.Dedup.NotifiedOn(ctx, logKind, pairs, today)
		if err != nil {
			return fmt.Errorf("check notification log: %w", err)
		}
		queued := make(map[notify.Pair]bool)
		for _, c := range cands {
			p := pairOf(c)
			if sent[p] {
				continue
			}
			if queued[p] {
				continue
			}
			queued[p] = true
			item := toItem(c)
			item.Reason = notify.ReasonReleaseDay
			items = append(items, item)
			pending[p] = append(pending[p], logKind)
		}
		result.Suppressed += len(pairs) - len(queued)
	}

	report := j.Dispatcher.Dispatch(ctx, items)
	result.Emails = report.Emails
	result.MailFailures = len(report.Failed)

	var records []notify.Record
	for _, item := range report.Sent {
		p := notify.Pair{UserID: item.Recipient.UserID, MovieID: item.MovieID}
		for _, logKind := range pending[p] {
			records = append(records, notify.Record{
				Pair:     p,
				Kind:     logKind,
				Metadata: map[string]any{"run_id": result.RunID},
			})
		}
		delete(pending, p)
	}
	written, err := j.Dedup.Record(ctx, records)
	result.Notified = written
	for _, r := range records {
		j.Metrics.NotificationsSent.WithLabelValues(r.Kind).Inc()
	}
	if err != nil {
		j.logger.Error().Err(err).Msg("failed to record sent reminders")
	}
	return nil
}
