package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ahmetcoskunkizilkaya/assignment-tracker/internal/account"
	"github.com/ahmetcoskunkizilkaya/assignment-tracker/internal/dto"
	"github.com/ahmetcoskunkizilkaya/assignment-tracker/internal/services"
)

type UserHandler struct {
	users *services.UserService
}

func NewUserHandler(users *services.UserService) *UserHandler {
	return &UserHandler{users: users}
}

func (h *UserHandler) Me(c *fiber.Ctx) error {
	userID, err := account.GetUserID(c)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	user, err := h.users.Me(c.UserContext(), userID)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(user)
}

func (h *UserHandler) UpdateCredentials(c *fiber.Ctx) error {
	userID, err := account.GetUserID(c)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	var req dto.UpdateCredentialsRequest
	if err := parseBody(c, &req); err != nil {
		return respond(c, err)
	}

	if err := h.users.UpdateCredentials(c.UserContext(), userID, &req); err != nil {
		return respond(c, err)
	}
	return c.JSON(dto.MessageResponse{Message: "Credentials updated successfully"})
}

func (h *UserHandler) UpdateSettings(c *fiber.Ctx) error {
	userID, err := account.GetUserID(c)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	var req dto.UpdateSettingsRequest
	if err := parseBody(c, &req); err != nil {
		return respond(c, err)
	}

	user, err := h.users.UpdateSettings(c.UserContext(), userID, &req)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(user)
}
