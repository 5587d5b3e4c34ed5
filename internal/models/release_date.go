package models

import "time"

// ReleaseDate is one persisted release fact, unique per (movie, country, release type).
// ReleaseDate holds a YYYY-MM-DD calendar day.
type ReleaseDate struct {
	ID              int64      `json:"-" gorm:"primaryKey;autoIncrement"`
	MovieID         int64      `json:"movie_id" gorm:"not null;uniqueIndex:ux_release_dates_movie_country_type,priority:1"`
	Country         string     `json:"country" gorm:"size:2;not null;uniqueIndex:ux_release_dates_movie_country_type,priority:2"`
	ReleaseType     int        `json:"release_type" gorm:"not null;uniqueIndex:ux_release_dates_movie_country_type,priority:3"`
	ReleaseDate     string     `json:"release_date" gorm:"size:10;not null;index"`
	LastValidatedAt *time.Time `json:"last_validated_at"`
	CreatedAt       time.Time  `json:"-" gorm:"autoCreateTime"`
	UpdatedAt       time.Time  `json:"-" gorm:"autoUpdateTime"`
}

func (ReleaseDate) TableName() string {
	return "release_dates"
}
