package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ahmetcoskunkizilkaya/assignment-tracker/internal/account"
	"github.com/ahmetcoskunkizilkaya/assignment-tracker/internal/dto"
	"github.com/ahmetcoskunkizilkaya/assignment-tracker/internal/entitlement"
	"github.com/ahmetcoskunkizilkaya/assignment-tracker/internal/models"
)

// SubscriptionService tracks which tier each user is on. Checkout is mocked:
// switching tier only writes a subscription row.
type SubscriptionService struct {
	db          *gorm.DB
	catalog     *entitlement.Catalog
	defaultTier string
	now         func() time.Time
}

func NewSubscriptionService(db *gorm.DB, catalog *entitlement.Catalog, defaultTier string) *SubscriptionService {
	if defaultTier == "" || !catalog.Exists(defaultTier) {
		defaultTier = entitlement.DefaultTierName
	}
	return &SubscriptionService{db: db, catalog: catalog, defaultTier: defaultTier, now: time.Now}
}

func (s *SubscriptionService) Catalog() *entitlement.Catalog {
	return s.catalog
}

func (s *SubscriptionService) DefaultTier() entitlement.Tier {
	t, _ := s.catalog.Get(s.defaultTier)
	return t
}

func (s *SubscriptionService) active(ctx context.Context, userID uuid.UUID) (*models.Subscription, error) {
	var sub models.Subscription
	err := s.db.WithContext(ctx).Scopes(account.ForUser(userID)).
		Where("status = ?", models.SubscriptionActive).
		Order("start_date desc").
		First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load subscription: %w", err)
	}
	return &sub, nil
}

// CurrentTier returns the tier of the user's active subscription, or the default tier.
func (s *SubscriptionService) CurrentTier(ctx context.Context, userID uuid.UUID) (entitlement.Tier, error) {
	sub, err := s.active(ctx, userID)
	if err != nil {
		return entitlement.Tier{}, err
	}
	if sub == nil {
		return s.DefaultTier(), nil
	}
	tier, ok := s.catalog.Get(sub.Tier)
	if !ok {
		slog.Warn("subscription references unknown tier", "user_id", userID.String(), "tier", sub.Tier)
		return s.DefaultTier(), nil
	}
	return tier, nil
}

func (s *SubscriptionService) Current(ctx context.Context, userID uuid.UUID) (*dto.SubscriptionResponse, error) {
	sub, err := s.active(ctx, userID)
	if err != nil {
		return nil, err
	}
	tier, err := s.CurrentTier(ctx, userID)
	if err != nil {
		return nil, err
	}
	resp := &dto.SubscriptionResponse{Tier: tier, Status: models.SubscriptionActive}
	if sub != nil {
		start := sub.StartDate
		resp.SubscriptionID = sub.SubscriptionID
		resp.StartDate = &start
	}
	return resp, nil
}

// Checkout moves the user onto tierName. Choosing the default tier cancels any
// active subscription instead of writing a new one.
func (s *SubscriptionService) Checkout(ctx context.Context, userID uuid.UUID, tierName string) (*dto.SubscriptionResponse, error) {
	tier, ok := s.catalog.Get(tierName)
	if !ok {
		return nil, ErrUnknownTier
	}

	now := s.now()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := cancelActive(tx, userID, now); err != nil {
			return err
		}
		if tier.Name == s.defaultTier {
			return nil
		}
		sub := models.Subscription{
			UserID:         userID,
			Tier:           tier.Name,
			SubscriptionID: "sub_mock_" + uuid.NewString(),
			Status:         models.SubscriptionActive,
			StartDate:      now,
		}
		return tx.Create(&sub).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to change subscription: %w", err)
	}

	slog.Info("subscription changed", "user_id", userID.String(), "tier", tier.Name)
	resp, err := s.Current(ctx, userID)
	if err != nil {
		return nil, err
	}
	resp.Message = "Subscribed to " + tier.DisplayName
	return resp, nil
}

// Cancel ends the active subscription, returning the user to the default tier.
func (s *SubscriptionService) Cancel(ctx context.Context, userID uuid.UUID) (*dto.SubscriptionResponse, error) {
	sub, err := s.active(ctx, userID)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, ErrNoSubscription
	}
	if err := cancelActive(s.db.WithContext(ctx), userID, s.now()); err != nil {
		return nil, fmt.Errorf("failed to cancel subscription: %w", err)
	}

	slog.Info("subscription cancelled", "user_id", userID.String(), "tier", sub.Tier)
	resp, err := s.Current(ctx, userID)
	if err != nil {
		return nil, err
	}
	resp.Message = "Subscription cancelled successfully."
	return resp, nil
}

func cancelActive(tx *gorm.DB, userID uuid.UUID, now time.Time) error {
	return tx.Model(&models.Subscription{}).
		Scopes(account.ForUser(userID)).
		Where("status = ?", models.SubscriptionActive).
		Updates(map[string]interface{}{
			"status":       models.SubscriptionCancelled,
			"cancelled_at": now,
		}).Error
}
