package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"releasewatch/internal/models"
)

const (
	SyncStatusRunning   = "running"
	SyncStatusCompleted = "completed"
	SyncStatusError     = "error"
)

type SyncStateRepository interface {
	Get(ctx context.Context, syncType string) (*models.SyncState, error)
	MarkRunning(ctx context.Context, syncType, runID string, at time.Time) error
	MarkFinished(ctx context.Context, syncType string, at time.Time, runErr error, metadata string) error
}

type syncStateRepository struct {
	db *gorm.DB
}

func NewSyncStateRepository(db *gorm.DB) SyncStateRepository {
	return &syncStateRepository{db: db}
}

func (r *syncStateRepository) Get(ctx context.Context, syncType string) (*models.SyncState, error) {
	var state models.SyncState
	err := r.db.WithContext(ctx).Where("sync_type = ?", syncType).First(&state).Error
	if err != nil {
		return nil, err
	}
	return &state, nil
}

// MarkRunning creates the state row on first use.
func (r *syncStateRepository) MarkRunning(ctx context.Context, syncType, runID string, at time.Time) error {
	at = at.UTC()
	state := models.SyncState{SyncType: syncType}
	err := r.db.WithContext(ctx).Where("sync_type = ?", syncType).FirstOrCreate(&state).Error
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).
		Model(&models.SyncState{}).
		Where("sync_type = ?", syncType).
		Updates(map[string]interface{}{
			"last_run_at": &at,
			"last_run_id": runID,
			"status":      SyncStatusRunning,
		}).Error
}

func (r *syncStateRepository) MarkFinished(ctx context.Context, syncType string, at time.Time, runErr error, metadata string) error {
	at = at.UTC()
	update := map[string]interface{}{
		"status":   SyncStatusCompleted,
		"metadata": metadata,
	}
	if runErr != nil {
		update["status"] = SyncStatusError
		update["error_message"] = runErr.Error()
	} else {
		update["last_success_at"] = &at
		update["error_message"] = ""
	}

	result := r.db.WithContext(ctx).
		Model(&models.SyncState{}).
		Where("sync_type = ?", syncType).
		Updates(update)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errors.New("sync state not found: " + syncType)
	}
	return nil
}
