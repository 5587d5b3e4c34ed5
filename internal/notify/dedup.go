// Package notify decides who still needs an email and sends it.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"releasewatch/internal/models"
	"releasewatch/internal/release"
	"releasewatch/internal/repository"
)

// Pair identifies one user's interest in one movie.
type Pair struct {
	UserID  string
	MovieID int64
}

// Record is one notification about to be written to the log.
type Record struct {
	Pair
	Kind     string
	Metadata map[string]any
}

// Deduplicator answers "was this already sent" against the notification log
// with one query per candidate set.
type Deduplicator struct {
	repo   repository.NotificationRepository
	logger zerolog.Logger
	now    func() time.Time
}

func NewDeduplicator(repo repository.NotificationRepository, logger zerolog.Logger) *Deduplicator {
	return &Deduplicator{repo: repo, logger: logger, now: time.Now}
}

// WithClock replaces the time source used to stamp recorded rows.
func (d *Deduplicator) WithClock(now func() time.Time) *Deduplicator {
	d.now = now
	return d
}

// AlreadyNotified returns the pairs that have any log row of kind.
func (d *Deduplicator) AlreadyNotified(ctx context.Context, kind string, pairs []Pair) (map[Pair]bool, error) {
	return d.lookup(ctx, kind, pairs, "")
}

// NotifiedOn returns the pairs that have a log row of kind sent on day.
func (d *Deduplicator) NotifiedOn(ctx context.Context, kind string, pairs []Pair, day time.Time) (map[Pair]bool, error) {
	return d.lookup(ctx, kind, pairs, release.FormatDate(day))
}

func (d *Deduplicator) lookup(ctx context.Context, kind string, pairs []Pair, sentOn string) (map[Pair]bool, error) {
	found := make(map[Pair]bool)
	if len(pairs) == 0 {
		return found, nil
	}

	wanted := make(map[Pair]bool, len(pairs))
	userSet := make(map[string]struct{})
	movieSet := make(map[int64]struct{})
	for _, p := range pairs {
		wanted[p] = true
		userSet[p.UserID] = struct{}{}
		movieSet[p.MovieID] = struct{}{}
	}
	userIDs := make([]string, 0, len(userSet))
	for id := range userSet {
		userIDs = append(userIDs, id)
	}
	sort.Strings(userIDs)
	movieIDs := make([]int64, 0, len(movieSet))
	for id := range movieSet {
		movieIDs = append(movieIDs, id)
	}
	sort.Slice(movieIDs, func(i, j int) bool { return movieIDs[i] < movieIDs[j] })

	rows, err := d.repo.FindSent(ctx, kind, userIDs, movieIDs, sentOn)
	if err != nil {
		return nil, err
	}
	// the IN x IN query over-selects cross pairs; keep exact matches only
	for _, row := range rows {
		p := Pair{UserID: row.UserID, MovieID: row.MovieID}
		if wanted[p] {
			found[p] = true
		}
	}
	return found, nil
}

// Record appends one log row per record, stamped with the current time and
// day; once-per-pair kinds are keyed by models.SentOnce instead of the day.
// Rows that already exist are skipped. It returns how many rows were
// written and every non-duplicate failure.
func (d *Deduplicator) Record(ctx context.Context, records []Record) (int, error) {
	now := d.now().UTC()
	sentOn := release.FormatDate(now)

	var (
		written int
		errs    []error
	)
	for _, r := range records {
		metadata := "{}"
		if len(r.Metadata) > 0 {
			b, err := json.Marshal(r.Metadata)
			if err != nil {
				errs = append(errs, fmt.Errorf("encode metadata for user %s movie %d: %w", r.UserID, r.MovieID, err))
				continue
			}
			metadata = string(b)
		}

		err := d.repo.Insert(ctx, &models.NotificationLog{
			UserID:   r.UserID,
			MovieID:  r.MovieID,
			Kind:     r.Kind,
			SentOn:   models.SentOnFor(r.Kind, sentOn),
			SentAt:   now,
			Metadata: metadata,
		})
		switch {
		case err == nil:
			written++
		case errors.Is(err, repository.ErrAlreadyRecorded):
			d.logger.Debug().Str("user_id", r.UserID).Int64("movie_id", r.MovieID).Str("kind", r.Kind).
				Msg("notification already recorded")
		default:
			errs = append(errs, err)
		}
	}
	return written, errors.Join(errs...)
}
