package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// UserSettings is stored as JSON on the user row.
type UserSettings struct {
	Theme string `json:"theme"`
}

// User owns assignments, courses and provider credentials. Token columns hold
// values sealed by the secrets vault, never plaintext.
type User struct {
	ID                 uuid.UUID                        `gorm:"type:uuid;primaryKey" json:"id"`
	Email              *string                          `gorm:"size:255;uniqueIndex" json:"email"`
	Name               string                           `gorm:"size:255" json:"name"`
	Provider           string                           `gorm:"size:50;default:'custom'" json:"provider"`
	CanvasURL          string                           `gorm:"size:512" json:"canvas_url"`
	CanvasToken        string                           `gorm:"type:text" json:"-"`
	GoogleToken        string                           `gorm:"type:text" json:"-"`
	GoogleRefreshToken string                           `gorm:"type:text" json:"-"`
	Settings           datatypes.JSONType[UserSettings] `json:"settings"`
	CreatedAt          time.Time                        `json:"created_at"`
	UpdatedAt          time.Time                        `json:"updated_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
