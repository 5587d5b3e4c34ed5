package models

import "time"

// PendingNotification is a discovery notification that has been decided but
// not yet delivered. Rows are removed once the pair is in the notification
// log or no longer qualifies.
type PendingNotification struct {
	ID           int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID       string    `gorm:"type:uuid;not null;uniqueIndex:ux_pending_notification_key,priority:1" json:"user_id"`
	MovieID      int64     `gorm:"not null;uniqueIndex:ux_pending_notification_key,priority:2" json:"movie_id"`
	ReleaseType  int       `gorm:"not null;uniqueIndex:ux_pending_notification_key,priority:3" json:"release_type"`
	Changed      bool      `gorm:"not null;default:false" json:"changed"`
	PreviousDate *string   `gorm:"size:10" json:"previous_date,omitempty"` // YYYY-MM-DD
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (PendingNotification) TableName() string {
	return "pending_notifications"
}
