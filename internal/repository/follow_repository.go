package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"releasewatch/internal/models"
)

// FollowRow is a follow joined with its recipient and movie.
type FollowRow struct {
	UserID                string
	Email                 string
	Username              string
	MovieID               int64
	Title                 string
	Kind                  string
	ReleaseDatesCheckedAt *time.Time
}

type FollowRepository interface {
	// ListFollowRows returns every follow of a movie, in one query.
	ListFollowRows(ctx context.Context) ([]FollowRow, error)
	ListForMovies(ctx context.Context, movieIDs []int64) ([]FollowRow, error)
	Create(ctx context.Context, follow *models.Follow) error
}

type followRepository struct {
	db *gorm.DB
}

func NewFollowRepository(db *gorm.DB) FollowRepository {
	return &followRepository{db: db}
}

func (r *followRepository) baseQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("follows").
		Select("follows.user_id, users.email, users.username, follows.movie_id, movies.title, " +
			"follows.kind, movies.release_dates_checked_at").
		Joins("JOIN users ON users.id = follows.user_id").
		Joins("JOIN movies ON movies.id = follows.movie_id")
}

func (r *followRepository) ListFollowRows(ctx context.Context) ([]FollowRow, error) {
	var rows []FollowRow
	err := r.baseQuery(ctx).
		Order("follows.movie_id, follows.user_id, follows.kind").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list follows: %w", err)
	}
	return rows, nil
}

func (r *followRepository) ListForMovies(ctx context.Context, movieIDs []int64) ([]FollowRow, error) {
	if len(movieIDs) == 0 {
		return nil, nil
	}
	var rows []FollowRow
	err := r.baseQuery(ctx).
		Where("follows.movie_id IN ?", movieIDs).
		Order("follows.movie_id, follows.user_id, follows.kind").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list follows for movies: %w", err)
	}
	return rows, nil
}

func (r *followRepository) Create(ctx context.Context, follow *models.Follow) error {
	return r.db.WithContext(ctx).Create(follow).Error
}
