package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"releasewatch/internal/models"
)

var ErrMovieNotFound = errors.New("movie not found")

type MovieRepository interface {
	GetByID(ctx context.Context, id int64) (*models.Movie, error)
	Save(ctx context.Context, movie *models.Movie) error
	MarkChecked(ctx context.Context, id int64, at time.Time) error
}

type movieRepository struct {
	db *gorm.DB
}

func NewMovieRepository(db *gorm.DB) MovieRepository {
	return &movieRepository{db: db}
}

func (r *movieRepository) GetByID(ctx context.Context, id int64) (*models.Movie, error) {
	var movie models.Movie
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&movie).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrMovieNotFound
	}
	if err != nil {
		return nil, err
	}
	return &movie, nil
}

// Save inserts a movie or refreshes its catalog metadata.
func (r *movieRepository) Save(ctx context.Context, movie *models.Movie) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"title", "original_title", "poster_path", "updated_at"}),
		}).
		Create(movie).Error
}

// MarkChecked stamps the time of the latest release-date refresh attempt.
func (r *movieRepository) MarkChecked(ctx context.Context, id int64, at time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&models.Movie{}).
		Where("id = ?", id).
		Update("release_dates_checked_at", at.UTC())
	if result.Error != nil {
		return fmt.Errorf("mark movie %d checked: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrMovieNotFound
	}
	return nil
}
