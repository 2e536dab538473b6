package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/ahmetcoskunkizilkaya/assignment-tracker/internal/tracker"
)

// Assignment is the persisted form of tracker.Assignment. Timestamps are owned
// by the in-memory store, so GORM must not touch them.
type Assignment struct {
	ID          string    `gorm:"primaryKey;size:128"`
	UserID      uuid.UUID `gorm:"type:uuid;primaryKey"`
	ExternalID  string    `gorm:"size:128;index"`
	Title       string    `gorm:"size:500;not null"`
	Description string    `gorm:"type:text"`
	Course      string    `gorm:"size:255;not null;index"`
	CourseID    string    `gorm:"size:128"`
	DueDate     time.Time `gorm:"not null;index"`
	Completed   bool      `gorm:"not null"`
	CompletedAt *time.Time
	Source      string `gorm:"size:20;not null;index"`
	Tags        datatypes.JSONSlice[string]
	Priority    int       `gorm:"not null;default:1"`
	CreatedAt   time.Time `gorm:"autoCreateTime:false"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime:false"`
}

func AssignmentFromTracker(userID uuid.UUID, a tracker.Assignment) Assignment {
	tags := datatypes.JSONSlice[string](a.Tags)
	if tags == nil {
		tags = datatypes.JSONSlice[string]{}
	}
	return Assignment{
		ID:          a.ID,
		UserID:      userID,
		ExternalID:  a.ExternalID,
		Title:       a.Title,
		Description: a.Description,
		Course:      a.Course,
		CourseID:    a.CourseID,
		DueDate:     a.DueDate,
		Completed:   a.Completed,
		CompletedAt: a.CompletedAt,
		Source:      string(a.Source),
		Tags:        tags,
		Priority:    a.Priority,
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
}

// Tracker converts a row back into the domain type. Rows written before
// completed_at was tracked get their last update time as completion time.
func (m Assignment) Tracker() tracker.Assignment {
	a := tracker.Assignment{
		ID:          m.ID,
		Title:       m.Title,
		Course:      m.Course,
		CourseID:    m.CourseID,
		DueDate:     m.DueDate,
		Description: m.Description,
		Tags:        append([]string{}, m.Tags...),
		Priority:    m.Priority,
		Completed:   m.Completed,
		CompletedAt: m.CompletedAt,
		Source:      tracker.Source(m.Source),
		ExternalID:  m.ExternalID,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
	if a.Completed && a.CompletedAt == nil {
		t := m.UpdatedAt
		a.CompletedAt = &t
	}
	if !a.Completed {
		a.CompletedAt = nil
	}
	if a.Priority == 0 {
		a.Priority = tracker.DefaultPriority
	}
	return a
}
