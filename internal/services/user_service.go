package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/ahmetcoskunkizilkaya/assignment-tracker/internal/dto"
	"github.com/ahmetcoskunkizilkaya/assignment-tracker/internal/entitlement"
	"github.com/ahmetcoskunkizilkaya/assignment-tracker/internal/models"
	"github.com/ahmetcoskunkizilkaya/assignment-tracker/internal/secrets"
)

// Credentials are a user's decrypted provider credentials.
type Credentials struct {
	CanvasURL          string
	CanvasToken        string
	GoogleToken        string
	GoogleRefreshToken string
}

type UserService struct {
	db    *gorm.DB
	vault *secrets.Vault
	subs  *SubscriptionService
	gate  *entitlement.Gate
}

func NewUserService(db *gorm.DB, vault *secrets.Vault, subs *SubscriptionService, gate *entitlement.Gate) *UserService {
	return &UserService{db: db, vault: vault, subs: subs, gate: gate}
}

func (s *UserService) find(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return &user, nil
}

func (s *UserService) Me(ctx context.Context, userID uuid.UUID) (*dto.UserResponse, error) {
	user, err := s.find(ctx, userID)
	if err != nil {
		return nil, err
	}
	resp := userResponse(user)
	return &resp, nil
}

// UpdateCredentials overwrites the fields present in req and keeps the rest.
func (s *UserService) UpdateCredentials(ctx context.Context, userID uuid.UUID, req *dto.UpdateCredentialsRequest) error {
	user, err := s.find(ctx, userID)
	if err != nil {
		return err
	}
	if err := sealInto(s.vault, user, credentialPatch{
		CanvasToken:        req.CanvasToken,
		CanvasURL:          req.CanvasURL,
		GoogleToken:        req.GoogleToken,
		GoogleRefreshToken: req.GoogleRefreshToken,
	}); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Model(user).Select(
		"canvas_url", "canvas_token", "google_token", "google_refresh_token",
	).Updates(user).Error
}

// Credentials returns the user's provider credentials in plaintext.
func (s *UserService) Credentials(ctx context.Context, userID uuid.UUID) (Credentials, error) {
	user, err := s.find(ctx, userID)
	if err != nil {
		return Credentials{}, err
	}

	var creds Credentials
	creds.CanvasURL = user.CanvasURL
	for _, f := range []struct {
		dst    *string
		sealed string
	}{
		{&creds.CanvasToken, user.CanvasToken},
		{&creds.GoogleToken, user.GoogleToken},
		{&creds.GoogleRefreshToken, user.GoogleRefreshToken},
	} {
		plain, err := s.vault.Open(f.sealed)
		if err != nil {
			return Credentials{}, fmt.Errorf("failed to open credential: %w", err)
		}
		*f.dst = plain
	}
	return creds, nil
}

// UpdateSettings stores the theme after checking the tier allows it.
func (s *UserService) UpdateSettings(ctx context.Context, userID uuid.UUID, req *dto.UpdateSettingsRequest) (*dto.UserResponse, error) {
	user, err := s.find(ctx, userID)
	if err != nil {
		return nil, err
	}
	tier, err := s.subs.CurrentTier(ctx, userID)
	if err != nil {
		return nil, err
	}
	theme := strings.ToLower(strings.TrimSpace(req.Theme))
	if err := s.gate.CheckTheme(theme, tier); err != nil {
		return nil, err
	}

	settings := user.Settings.Data()
	settings.Theme = theme
	user.Settings = datatypes.NewJSONType(settings)
	if err := s.db.WithContext(ctx).Model(user).Update("settings", user.Settings).Error; err != nil {
		return nil, fmt.Errorf("failed to save settings: %w", err)
	}

	resp := userResponse(user)
	return &resp, nil
}
