package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ahmetcoskunkizilkaya/assignment-tracker/internal/account"
	"github.com/ahmetcoskunkizilkaya/assignment-tracker/internal/config"
	"github.com/ahmetcoskunkizilkaya/assignment-tracker/internal/dto"
	"github.com/ahmetcoskunkizilkaya/assignment-tracker/internal/models"
	"github.com/ahmetcoskunkizilkaya/assignment-tracker/internal/secrets"
)

type AuthService struct {
	db    *gorm.DB
	cfg   *config.Config
	vault *secrets.Vault
	now   func() time.Time
}

func NewAuthService(db *gorm.DB, cfg *config.Config, vault *secrets.Vault) *AuthService {
	return &AuthService{db: db, cfg: cfg, vault: vault, now: time.Now}
}

// Login upserts the user by email and stores any provider tokens sent along.
// A request without an email always creates a new user.
func (s *AuthService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	provider := req.Provider
	if provider == "" {
		provider = "custom"
	}

	var user models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		found := false
		if email != "" {
			err := tx.Where("email = ?", email).First(&user).Error
			switch {
			case err == nil:
				found = true
			case !errors.Is(err, gorm.ErrRecordNotFound):
				return err
			}
		}

		if !found {
			user = models.User{Name: req.Name, Provider: provider}
			if email != "" {
				user.Email = &email
			}
		} else {
			user.Name = req.Name
			user.Provider = provider
		}

		if req.Tokens != nil {
			if err := sealInto(s.vault, &user, credentialPatch{
				CanvasToken:        nonEmpty(req.Tokens.CanvasToken),
				CanvasURL:          nonEmpty(req.Tokens.CanvasURL),
				GoogleToken:        nonEmpty(req.Tokens.GoogleToken),
				GoogleRefreshToken: nonEmpty(req.Tokens.GoogleRefreshToken),
			}); err != nil {
				return err
			}
		}

		if !found {
			return tx.Create(&user).Error
		}
		return tx.Save(&user).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to log in: %w", err)
	}

	return s.generateTokenPair(ctx, &user)
}

func (s *AuthService) Refresh(ctx context.Context, req *dto.RefreshRequest) (*dto.AuthResponse, error) {
	tokenHash := hashToken(req.RefreshToken)
	db := s.db.WithContext(ctx)

	var stored models.RefreshToken
	if err := db.Where("token_hash = ? AND revoked = ?", tokenHash, false).First(&stored).Error; err != nil {
		return nil, ErrInvalidToken
	}

	db.Model(&stored).Update("revoked", true)
	if s.now().After(stored.ExpiresAt) {
		return nil, ErrInvalidToken
	}

	var user models.User
	if err := db.First(&user, "id = ?", stored.UserID).Error; err != nil {
		return nil, ErrUserNotFound
	}

	return s.generateTokenPair(ctx, &user)
}

func (s *AuthService) Logout(ctx context.Context, req *dto.LogoutRequest) error {
	return s.db.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("token_hash = ?", hashToken(req.RefreshToken)).
		Update("revoked", true).Error
}

// DeleteAccount removes the user and everything they own.
func (s *AuthService) DeleteAccount(ctx context.Context, userID uuid.UUID) error {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		return ErrUserNotFound
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		owned := []interface{}{
			&models.RefreshToken{},
			&models.Subscription{},
			&models.Assignment{},
			&models.Course{},
			&models.SyncLog{},
		}
		for _, m := range owned {
			if err := tx.Scopes(account.ForUser(userID)).Delete(m).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&user).Error
	})
}

func (s *AuthService) generateTokenPair(ctx context.Context, user *models.User) (*dto.AuthResponse, error) {
	accessToken, err := s.generateAccessToken(user)
	if err != nil {
		return nil, err
	}

	refreshToken, err := s.generateRefreshToken(ctx, user)
	if err != nil {
		return nil, err
	}

	return &dto.AuthResponse{
		Token:        accessToken,
		RefreshToken: refreshToken,
		User:         userResponse(user),
	}, nil
}

func (s *AuthService) generateAccessToken(user *models.User) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"sub":   user.ID.String(),
		"email": stringValue(user.Email),
		"iat":   now.Unix(),
		"exp":   now.Add(s.cfg.JWTAccessExpiry).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.JWTSecret))
}

func (s *AuthService) generateRefreshToken(ctx context.Context, user *models.User) (string, error) {
	rawBytes := make([]byte, 32)
	if _, err := rand.Read(rawBytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	rawToken := base64.URLEncoding.EncodeToString(rawBytes)

	record := models.RefreshToken{
		UserID:    user.ID,
		TokenHash: hashToken(rawToken),
		ExpiresAt: s.now().Add(s.cfg.JWTRefreshExpiry),
	}

	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		return "", fmt.Errorf("failed to store refresh token: %w", err)
	}

	return rawToken, nil
}

// credentialPatch carries the credential fields to overwrite. Nil means keep.
type credentialPatch struct {
	CanvasToken        *string
	CanvasURL          *string
	GoogleToken        *string
	GoogleRefreshToken *string
}

func sealInto(vault *secrets.Vault, user *models.User, p credentialPatch) error {
	seal := func(dst *string, v *string) error {
		if v == nil {
			return nil
		}
		sealed, err := vault.Seal(*v)
		if err != nil {
			return fmt.Errorf("failed to seal credential: %w", err)
		}
		*dst = sealed
		return nil
	}

	if p.CanvasURL != nil {
		user.CanvasURL = strings.TrimRight(strings.TrimSpace(*p.CanvasURL), "/")
	}
	if err := seal(&user.CanvasToken, p.CanvasToken); err != nil {
		return err
	}
	if err := seal(&user.GoogleToken, p.GoogleToken); err != nil {
		return err
	}
	return seal(&user.GoogleRefreshToken, p.GoogleRefreshToken)
}

func userResponse(user *models.User) dto.UserResponse {
	return dto.UserResponse{
		ID:        user.ID,
		Email:     stringValue(user.Email),
		Name:      user.Name,
		Provider:  user.Provider,
		Theme:     user.Settings.Data().Theme,
		HasCanvas: user.CanvasToken != "" && user.CanvasURL != "",
		HasGoogle: user.GoogleToken != "",
		CreatedAt: user.CreatedAt,
	}
}

func hashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return fmt.Sprintf("%x", h)
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func stringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
