// Package testutil provides an in-memory database for package tests.
package testutil

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"releasewatch/database"
	"releasewatch/internal/models"
)

// NewDB returns a migrated in-memory sqlite database that lives as long as t.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// every connection to ":memory:" is a separate database
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

// SeedUser inserts a user with the given email and returns its id.
func SeedUser(t testing.TB, db *gorm.DB, email string) string {
	t.Helper()
	u := models.User{Username: email, Email: email}
	require.NoError(t, db.Create(&u).Error)
	return u.ID
}

// SeedMovie inserts a movie.
func SeedMovie(t testing.TB, db *gorm.DB, id int64, title string) {
	t.Helper()
	require.NoError(t, db.Create(&models.Movie{ID: id, Title: title}).Error)
}

// SeedFollow subscribes a user to a movie.
func SeedFollow(t testing.TB, db *gorm.DB, userID string, movieID int64, kind string) {
	t.Helper()
	require.NoError(t, db.Create(&models.Follow{UserID: userID, MovieID: movieID, Kind: kind}).Error)
}
