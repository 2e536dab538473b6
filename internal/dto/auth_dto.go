package dto

import (
	"time"

	"github.com/google/uuid"
)

// ProviderTokens are optional provider credentials sent at login.
type ProviderTokens struct {
	CanvasToken        string `json:"canvas_token"`
	CanvasURL          string `json:"canvas_url" validate:"omitempty,url"`
	GoogleToken        string `json:"google_token"`
	GoogleRefreshToken string `json:"google_refresh_token"`
}

type LoginRequest struct {
	Email    string          `json:"email" validate:"omitempty,email"`
	Name     string          `json:"name" validate:"max=200"`
	Provider string          `json:"provider" validate:"omitempty,oneof=custom canvas google"`
	Tokens   *ProviderTokens `json:"tokens"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type LogoutRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type AuthResponse struct {
	Token        string       `json:"token"`
	RefreshToken string       `json:"refresh_token"`
	User         UserResponse `json:"user"`
}

type UserResponse struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email,omitempty"`
	Name      string    `json:"name"`
	Provider  string    `json:"provider"`
	Theme     string    `json:"theme"`
	HasCanvas bool      `json:"has_canvas"`
	HasGoogle bool      `json:"has_google"`
	CreatedAt time.Time `json:"created_at"`
}

// UpdateCredentialsRequest overwrites only the fields that are present.
type UpdateCredentialsRequest struct {
	CanvasToken        *string `json:"canvas_token"`
	CanvasURL          *string `json:"canvas_url" validate:"omitempty,url"`
	GoogleToken        *string `json:"google_token"`
	GoogleRefreshToken *string `json:"google_refresh_token"`
}

type UpdateSettingsRequest struct {
	Theme string `json:"theme" validate:"required,notblank,max=50"`
}

type ErrorResponse struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
}

// UpgradeResponse is the 402 body for plan limits.
type UpgradeResponse struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
	Upgrade string `json:"upgrade"`
	Tier    string `json:"tier"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	DB        string `json:"db"`
}
