package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	SyncSuccess   = "success"
	SyncError     = "error"
	SyncCancelled = "cancelled"
)

// SyncLog records the outcome of one provider sync.
type SyncLog struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID           uuid.UUID `gorm:"type:uuid;not null;index:idx_sync_logs_user_created,priority:1" json:"user_id"`
	Provider         string    `gorm:"size:20;not null" json:"provider"`
	Status           string    `gorm:"size:20;not null" json:"status"`
	Message          string    `gorm:"type:text" json:"message"`
	AssignmentsCount int       `json:"assignments_count"`
	CreatedAt        time.Time `gorm:"index:idx_sync_logs_user_created,priority:2" json:"created_at"`
}

func (l *SyncLog) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}
