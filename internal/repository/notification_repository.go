package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"releasewatch/internal/models"
)

// ErrAlreadyRecorded is returned by Insert when the log already holds the row.
var ErrAlreadyRecorded = errors.New("notification already recorded")

type NotificationRepository interface {
	// FindSent returns log rows of one kind whose user and movie are in the
	// given sets. A non-empty sentOn restricts rows to that calendar day.
	FindSent(ctx context.Context, kind string, userIDs []string, movieIDs []int64, sentOn string) ([]models.NotificationLog, error)
	Insert(ctx context.Context, entry *models.NotificationLog) error
}

type notificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) FindSent(ctx context.Context, kind string, userIDs []string, movieIDs []int64, sentOn string) ([]models.NotificationLog, error) {
	if len(userIDs) == 0 || len(movieIDs) == 0 {
		return nil, nil
	}
	q := r.db.WithContext(ctx).
		Select("user_id", "movie_id", "kind", "sent_on").
		Where("kind = ? AND user_id IN ? AND movie_id IN ?", kind, userIDs, movieIDs)
	if sentOn != "" {
		q = q.Where("sent_on = ?", sentOn)
	}
	var rows []models.NotificationLog
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("find sent notifications: %w", err)
	}
	return rows, nil
}

// Insert appends a row. Rows are never updated; a duplicate key yields
// ErrAlreadyRecorded.
func (r *notificationRepository) Insert(ctx context.Context, entry *models.NotificationLog) error {
	err := r.db.WithContext(ctx).Create(entry).Error
	if err == nil {
		return nil
	}
	if isUniqueViolation(err) {
		return ErrAlreadyRecorded
	}
	return fmt.Errorf("insert notification log: %w", err)
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	// sqlite without error translation
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
