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

func TestMovieRepositorySaveAndMarkChecked(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewMovieRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, &models.Movie{ID: 7, Title: "Old title"}))
	require.NoError(t, repo.Save(ctx, &models.Movie{ID: 7, Title: "New title"}))

	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, repo.MarkChecked(ctx, 7, at))

	movie, err := repo.GetByID(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, "New title", movie.Title)
	require.NotNil(t, movie.ReleaseDatesCheckedAt)
	assert.True(t, at.Equal(*movie.ReleaseDatesCheckedAt))
}

func TestMovieRepositoryNotFound(t *testing.T) {
	repo := NewMovieRepository(testutil.NewDB(t))
	ctx := context.Background()

	_, err := repo.GetByID(ctx, 99)
	assert.ErrorIs(t, err, ErrMovieNotFound)
	assert.ErrorIs(t, repo.MarkChecked(ctx, 99, time.Now()), ErrMovieNotFound)
}
