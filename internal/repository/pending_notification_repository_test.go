package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"releasewatch/internal/models"
	"releasewatch/internal/testutil"
)

func TestPendingNotificationEnqueueKeepsFirstReason(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewPendingNotificationRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Enqueue(ctx, []models.PendingNotification{
		{UserID: "u1", MovieID: 1, ReleaseType: 3},
		{UserID: "u1", MovieID: 1, ReleaseType: 4},
	}))
	prev := "2024-05-01"
	require.NoError(t, repo.Enqueue(ctx, []models.PendingNotification{
		{UserID: "u1", MovieID: 1, ReleaseType: 3, Changed: true, PreviousDate: &prev},
		{UserID: "u2", MovieID: 1, ReleaseType: 3},
	}))

	rows, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "u1", rows[0].UserID)
	assert.Equal(t, 3, rows[0].ReleaseType)
	assert.False(t, rows[0].Changed)
	assert.Nil(t, rows[0].PreviousDate)
}

func TestPendingNotificationDelete(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewPendingNotificationRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Enqueue(ctx, []models.PendingNotification{
		{UserID: "u1", MovieID: 1, ReleaseType: 3},
		{UserID: "u1", MovieID: 1, ReleaseType: 4},
		{UserID: "u1", MovieID: 2, ReleaseType: 3},
	}))
	rows, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	require.NoError(t, repo.Delete(ctx, []int64{rows[0].ID, rows[1].ID}))
	// unknown ids and an empty set are not errors
	require.NoError(t, repo.Delete(ctx, []int64{9999}))
	require.NoError(t, repo.Delete(ctx, nil))

	rows, err = repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(2), rows[0].MovieID)
}
