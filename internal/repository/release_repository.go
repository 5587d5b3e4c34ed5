package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"releasewatch/internal/models"
	"releasewatch/internal/release"
)

type ReleaseRepository interface {
	Upsert(ctx context.Context, fact release.Fact, validatedAt time.Time) error
	ListForMovies(ctx context.Context, country string, movieIDs []int64) ([]release.Fact, error)
	ListOnDay(ctx context.Context, country string, day time.Time, kinds []release.Kind) ([]release.Fact, error)
}

type releaseRepository struct {
	db *gorm.DB
}

func NewReleaseRepository(db *gorm.DB) ReleaseRepository {
	return &releaseRepository{db: db}
}

// Upsert writes a fact keyed by (movie_id, country, release_type). An existing
// row gets the new date and a fresh last_validated_at.
func (r *releaseRepository) Upsert(ctx context.Context, fact release.Fact, validatedAt time.Time) error {
	if !fact.Kind.Valid() {
		return fmt.Errorf("upsert release date for movie %d: invalid kind %d", fact.MovieID, int(fact.Kind))
	}
	if fact.Date.IsZero() {
		return fmt.Errorf("upsert release date for movie %d: empty date", fact.MovieID)
	}

	validated := validatedAt.UTC()
	row := models.ReleaseDate{
		MovieID:         fact.MovieID,
		Country:         strings.ToUpper(fact.Country),
		ReleaseType:     int(fact.Kind),
		ReleaseDate:     release.FormatDate(fact.Date),
		LastValidatedAt: &validated,
	}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "movie_id"}, {Name: "country"}, {Name: "release_type"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"release_date", "last_validated_at", "updated_at",
			}),
		}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("upsert release date for movie %d: %w", fact.MovieID, err)
	}
	return nil
}

// ListForMovies returns every stored fact for the given movies in one country.
func (r *releaseRepository) ListForMovies(ctx context.Context, country string, movieIDs []int64) ([]release.Fact, error) {
	if len(movieIDs) == 0 {
		return nil, nil
	}
	var rows []models.ReleaseDate
	err := r.db.WithContext(ctx).
		Where("country = ? AND movie_id IN ?", strings.ToUpper(country), movieIDs).
		Order("movie_id, release_type").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list release dates: %w", err)
	}
	return toFacts(rows), nil
}

// ListOnDay returns the facts of the given kinds dated exactly on day.
func (r *releaseRepository) ListOnDay(ctx context.Context, country string, day time.Time, kinds []release.Kind) ([]release.Fact, error) {
	types := make([]int, 0, len(kinds))
	for _, k := range kinds {
		types = append(types, int(k))
	}
	var rows []models.ReleaseDate
	err := r.db.WithContext(ctx).
		Where("country = ? AND release_date = ? AND release_type IN ?",
			strings.ToUpper(country), release.FormatDate(day), types).
		Order("movie_id, release_type").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list release dates on %s: %w", release.FormatDate(day), err)
	}
	return toFacts(rows), nil
}

// toFacts skips rows whose stored date no longer parses.
func toFacts(rows []models.ReleaseDate) []release.Fact {
	facts := make([]release.Fact, 0, len(rows))
	for _, row := range rows {
		d, ok := release.ParseDate(row.ReleaseDate)
		if !ok {
			continue
		}
		facts = append(facts, release.Fact{
			MovieID:         row.MovieID,
			Country:         row.Country,
			Kind:            release.Kind(row.ReleaseType),
			Date:            d,
			LastValidatedAt: row.LastValidatedAt,
		})
	}
	return facts
}
