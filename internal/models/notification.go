package models

import "time"

// Notification kinds stored in the notification log.
const (
	NotificationTheatricalRelease = "theatrical_release"
	NotificationStreamingRelease  = "streaming_release"
	NotificationDateDiscovered    = "date_discovered"
)

// SentOnce is the sent_on value of kinds that are sent at most once per
// (user, movie), so the unique key covers the pair rather than the day.
const SentOnce = "once"

// SentOnFor returns the sent_on value of a row of kind written on day.
func SentOnFor(kind, day string) string {
	if kind == NotificationDateDiscovered {
		return SentOnce
	}
	return day
}

// NotificationLog is an append-only record of a sent notification.
// Rows are never updated or deleted; their existence suppresses resends.
type NotificationLog struct {
	ID       int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID   string    `gorm:"type:uuid;not null;uniqueIndex:ux_notification_log_key,priority:1" json:"user_id"`
	MovieID  int64     `gorm:"not null;index;uniqueIndex:ux_notification_log_key,priority:2" json:"movie_id"`
	Kind     string    `gorm:"size:32;not null;uniqueIndex:ux_notification_log_key,priority:3" json:"kind"`
	SentOn   string    `gorm:"size:10;not null;uniqueIndex:ux_notification_log_key,priority:4" json:"sent_on"` // YYYY-MM-DD or SentOnce
	SentAt   time.Time `gorm:"not null" json:"sent_at"`
	Metadata string    `gorm:"type:text" json:"metadata"`
}

func (NotificationLog) TableName() string {
	return "notification_log"
}
