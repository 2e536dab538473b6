package middleware

import (
	"context"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/ahmetcoskunkizilkaya/assignment-tracker/internal/account"
	"github.com/ahmetcoskunkizilkaya/assignment-tracker/internal/dto"
	"github.com/ahmetcoskunkizilkaya/assignment-tracker/internal/entitlement"
)

// TierResolver returns the tier a user is currently on.
type TierResolver interface {
	CurrentTier(ctx context.Context, userID uuid.UUID) (entitlement.Tier, error)
}

// RequireFeature lets the request through only when the user's tier permits action.
// Denials answer 402 with the upgrade message.
func RequireFeature(gate *entitlement.Gate, tiers TierResolver, action entitlement.Action) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := account.GetUserID(c)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error: true, Message: "Unauthorized",
			})
		}

		tier, err := tiers.CurrentTier(c.UserContext(), userID)
		if err != nil {
			slog.Error("tier lookup failed", "user_id", userID.String(), "error", err)
			return fiber.ErrInternalServerError
		}

		if !gate.CanPerform(action, tier, entitlement.Usage{}) {
			return c.Status(fiber.StatusPaymentRequired).JSON(dto.UpgradeResponse{
				Error:   true,
				Message: "Your plan does not include " + string(action),
				Upgrade: gate.DescribeUpgrade(action, tier),
				Tier:    tier.Name,
			})
		}
		return c.Next()
	}
}
