package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"releasewatch/internal/models"
	"releasewatch/internal/testutil"
)

func TestNotificationRepositoryInsertIsAppendOnly(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewNotificationRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	entry := func() *models.NotificationLog {
		return &models.NotificationLog{
			UserID: "u1", MovieID: 1, Kind: models.NotificationDateDiscovered,
			SentOn: "2024-05-01", SentAt: now, Metadata: `{"first":true}`,
		}
	}
	require.NoError(t, repo.Insert(ctx, entry()))

	dup := entry()
	dup.Metadata = `{"first":false}`
	assert.ErrorIs(t, repo.Insert(ctx, dup), ErrAlreadyRecorded)

	var rows []models.NotificationLog
	require.NoError(t, db.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, `{"first":true}`, rows[0].Metadata)
}

func TestNotificationRepositoryFindSent(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewNotificationRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	for _, e := range []models.NotificationLog{
		{UserID: "u1", MovieID: 1, Kind: models.NotificationDateDiscovered, SentOn: "2024-05-01"},
		{UserID: "u1", MovieID: 2, Kind: models.NotificationTheatricalRelease, SentOn: "2024-05-01"},
		{UserID: "u2", MovieID: 2, Kind: models.NotificationTheatricalRelease, SentOn: "2024-04-30"},
	} {
		e.SentAt = now
		require.NoError(t, repo.Insert(ctx, &e))
	}

	rows, err := repo.FindSent(ctx, models.NotificationDateDiscovered, []string{"u1", "u2"}, []int64{1, 2}, "")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(1), rows[0].MovieID)

	rows, err = repo.FindSent(ctx, models.NotificationTheatricalRelease, []string{"u1", "u2"}, []int64{2}, "2024-05-01")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "u1", rows[0].UserID)

	rows, err = repo.FindSent(ctx, models.NotificationTheatricalRelease, nil, []int64{2}, "")
	require.NoError(t, err)
	assert.Empty(t, rows)
}
