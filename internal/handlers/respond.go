package handlers

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/ahmetcoskunkizilkaya/assignment-tracker/internal/dto"
	"github.com/ahmetcoskunkizilkaya/assignment-tracker/internal/entitlement"
	"github.com/ahmetcoskunkizilkaya/assignment-tracker/internal/reconcile"
	"github.com/ahmetcoskunkizilkaya/assignment-tracker/internal/services"
	"github.com/ahmetcoskunkizilkaya/assignment-tracker/internal/tracker"
	"github.com/ahmetcoskunkizilkaya/assignment-tracker/internal/validation"
)

func fail(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(dto.ErrorResponse{Error: true, Message: message})
}

// parseBody decodes and validates a JSON body into req.
func parseBody(c *fiber.Ctx, req any) error {
	if err := c.BodyParser(req); err != nil {
		return &tracker.ValidationError{Field: "body", Message: "Invalid request body"}
	}
	return validation.Struct(req)
}

// respond maps service errors onto HTTP statuses. Unknown errors are logged and
// become a bare 500.
func respond(c *fiber.Ctx, err error) error {
	var validationErr *tracker.ValidationError
	var entitlementErr *entitlement.EntitlementError
	var credentialsErr *services.CredentialsError
	var syncErr *reconcile.SyncError

	switch {
	case errors.As(err, &validationErr):
		return fail(c, fiber.StatusBadRequest, validationErr.Message)
	case errors.As(err, &entitlementErr):
		return c.Status(fiber.StatusPaymentRequired).JSON(dto.UpgradeResponse{
			Error:   true,
			Message: "Plan limit reached",
			Upgrade: entitlementErr.Message,
			Tier:    entitlementErr.Tier,
		})
	case errors.As(err, &credentialsErr):
		return fail(c, fiber.StatusBadRequest, credentialsErr.Error())
	case errors.As(err, &syncErr):
		return fail(c, fiber.StatusBadGateway, syncErr.Provider+" sync failed")
	case errors.Is(err, reconcile.ErrCancelled):
		return fail(c, fiber.StatusConflict, "Sync cancelled")
	case errors.Is(err, tracker.ErrNotFound):
		return fail(c, fiber.StatusNotFound, "Assignment not found")
	case errors.Is(err, tracker.ErrForbidden):
		return fail(c, fiber.StatusForbidden, "Only custom assignments can be changed this way")
	case errors.Is(err, services.ErrUserNotFound):
		return fail(c, fiber.StatusNotFound, "User not found")
	case errors.Is(err, services.ErrCourseNotFound):
		return fail(c, fiber.StatusNotFound, "Course not found or cannot be deleted")
	case errors.Is(err, services.ErrNoSubscription):
		return fail(c, fiber.StatusNotFound, "No active subscription")
	case errors.Is(err, services.ErrUnknownTier):
		return fail(c, fiber.StatusBadRequest, "Unknown subscription tier")
	case errors.Is(err, services.ErrUnknownProvider):
		return fail(c, fiber.StatusBadRequest, "Unknown sync provider")
	case errors.Is(err, services.ErrInvalidToken):
		return fail(c, fiber.StatusUnauthorized, err.Error())
	}

	slog.Error("request failed",
		"request_id", c.GetRespHeader(fiber.HeaderXRequestID),
		"action", c.Method()+" "+c.Route().Path,
		"error", err,
	)
	return fail(c, fiber.StatusInternalServerError, "Internal server error")
}
