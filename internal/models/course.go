package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const DefaultCourseColor = "#6366f1"

type Course struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	Name       string    `gorm:"size:255;not null" json:"name"`
	ExternalID string    `gorm:"size:128" json:"external_id,omitempty"`
	Provider   string    `gorm:"size:20;not null;default:'custom';index" json:"provider"`
	Color      string    `gorm:"size:7;default:'#6366f1'" json:"color"`
	Active     bool      `gorm:"not null;default:true" json:"active"`
	CreatedAt  time.Time `json:"created_at"`
}

func (c *Course) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.Color == "" {
		c.Color = DefaultCourseColor
	}
	return nil
}
