package models

import "time"

// Follow subscribes a user to a movie. A user may hold one row per kind.
type Follow struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    string    `gorm:"type:uuid;not null;uniqueIndex:ux_follows_user_movie_kind,priority:1" json:"user_id"`
	MovieID   int64     `gorm:"not null;index;uniqueIndex:ux_follows_user_movie_kind,priority:2" json:"movie_id"`
	Kind      string    `gorm:"size:16;not null;uniqueIndex:ux_follows_user_movie_kind,priority:3" json:"kind"` // theatrical, streaming, both
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`

	// Associations
	User  *User  `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Movie *Movie `gorm:"foreignKey:MovieID" json:"movie,omitempty"`
}

func (Follow) TableName() string {
	return "follows"
}
