package models

import "time"

// Movie is a catalog movie that at least one user follows.
// ID is the upstream catalog (TMDB) id.
type Movie struct {
	ID                    int64      `json:"id" gorm:"primaryKey;autoIncrement:false"`
	Title                 string     `json:"title" gorm:"not null"`
	OriginalTitle         *string    `json:"original_title,omitempty"`
	PosterPath            *string    `json:"poster_path,omitempty"`
	ReleaseDatesCheckedAt *time.Time `json:"release_dates_checked_at,omitempty" gorm:"index"`
	CreatedAt             time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt             time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
}

func (Movie) TableName() string {
	return "movies"
}
