package dto

import (
	"time"

	"github.com/ahmetcoskunkizilkaya/assignment-tracker/internal/entitlement"
	"github.com/ahmetcoskunkizilkaya/assignment-tracker/internal/tracker"
)

type UpdateSubscriptionRequest struct {
	Tier string `json:"tier" validate:"required,notblank"`
}

type SubscriptionResponse struct {
	Tier           entitlement.Tier `json:"tier"`
	Status         string           `json:"status"`
	SubscriptionID string           `json:"subscription_id,omitempty"`
	StartDate      *time.Time       `json:"start_date,omitempty"`
	Message        string           `json:"message,omitempty"`
}

type EntitlementsResponse struct {
	Tier   string                      `json:"tier"`
	Flags  map[entitlement.Action]bool `json:"flags"`
	Usage  entitlement.Usage           `json:"usage"`
	Limits entitlement.Limits          `json:"limits"`
}

type ExportResponse struct {
	ExportedAt   time.Time            `json:"exported_at"`
	User         UserResponse         `json:"user"`
	Subscription SubscriptionResponse `json:"subscription"`
	Assignments  []tracker.Assignment `json:"assignments"`
	Courses      []CourseResponse     `json:"courses"`
}

type CourseResponse struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	ExternalID string    `json:"external_id,omitempty"`
	Provider   string    `json:"provider"`
	Color      string    `json:"color"`
	Active     bool      `json:"active"`
	CreatedAt  time.Time `json:"created_at"`
}
