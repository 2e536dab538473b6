package middleware

import (
	"errors"

	jwtware "github.com/gofiber/contrib/jwt"
	"github.com/gofiber/fiber/v2"

	"github.com/ahmetcoskunkizilkaya/assignment-tracker/internal/account"
	"github.com/ahmetcoskunkizilkaya/assignment-tracker/internal/config"
	"github.com/ahmetcoskunkizilkaya/assignment-tracker/internal/dto"
)

// JWTProtected rejects requests without a valid HS256 token: 401 when the
// header is missing or malformed, 403 when the token is invalid or expired.
func JWTProtected(cfg *config.Config) fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey: jwtware.SigningKey{JWTAlg: jwtware.HS256, Key: []byte(cfg.JWTSecret)},
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if errors.Is(err, jwtware.ErrJWTMissingOrMalformed) {
				return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
					Error:   true,
					Message: "Access token required",
				})
			}
			return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
				Error:   true,
				Message: "Invalid or expired token",
			})
		},
	})
}

// RequireUser resolves the sub claim once so handlers can read it with account.GetUserID.
func RequireUser() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := account.GetUserID(c)
		if err != nil {
			return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
				Error:   true,
				Message: "Invalid or expired token",
			})
		}
		account.SetUserID(c, id)
		return c.Next()
	}
}
