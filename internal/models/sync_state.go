package models

import "time"

// SyncState tracks the last run of each scheduled job.
type SyncState struct {
	ID            int    `gorm:"primaryKey"`
	SyncType      string `gorm:"unique;not null"`
	LastRunAt     *time.Time
	LastSuccessAt *time.Time
	LastRunID     string
	Status        string
	ErrorMessage  string
	Metadata      string `gorm:"type:text"`
	UpdatedAt     time.Time
}

func (SyncState) TableName() string {
	return "sync_state"
}

// All returns every model managed by AutoMigrate, in dependency order.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Movie{},
		&Follow{},
		&ReleaseDate{},
		&NotificationLog{},
		&PendingNotification{},
		&SyncState{},
	}
}
