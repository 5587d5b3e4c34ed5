package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"releasewatch/internal/models"
)

// PendingNotificationRepository is the outbox of discovery notifications.
// A row stays until its pair is delivered or no longer qualifies, so a
// failed send is retried by the next run.
type PendingNotificationRepository interface {
	// Enqueue adds rows; a row whose (user, movie, release type) is already
	// pending keeps its original reason.
	Enqueue(ctx context.Context, rows []models.PendingNotification) error
	List(ctx context.Context) ([]models.PendingNotification, error)
	Delete(ctx context.Context, ids []int64) error
}

type pendingNotificationRepository struct {
	db *gorm.DB
}

func NewPendingNotificationRepository(db *gorm.DB) PendingNotificationRepository {
	return &pendingNotificationRepository{db: db}
}

func (r *pendingNotificationRepository) Enqueue(ctx context.Context, rows []models.PendingNotification) error {
	if len(rows) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "movie_id"}, {Name: "release_type"}},
			DoNothing: true,
		}).
		Create(&rows).Error
	if err != nil {
		return fmt.Errorf("enqueue pending notifications: %w", err)
	}
	return nil
}

func (r *pendingNotificationRepository) List(ctx context.Context) ([]models.PendingNotification, error) {
	var rows []models.PendingNotification
	if err := r.db.WithContext(ctx).Order("movie_id, user_id, release_type").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list pending notifications: %w", err)
	}
	return rows, nil
}

func (r *pendingNotificationRepository) Delete(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Delete(&models.PendingNotification{}, ids).Error; err != nil {
		return fmt.Errorf("delete pending notifications: %w", err)
	}
	return nil
}
