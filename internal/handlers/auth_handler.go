package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ahmetcoskunkizilkaya/assignment-tracker/internal/account"
	"github.com/ahmetcoskunkizilkaya/assignment-tracker/internal/dto"
	"github.com/ahmetcoskunkizilkaya/assignment-tracker/internal/services"
)

type AuthHandler struct {
	authService *services.AuthService
	assignments *services.AssignmentService
}

func NewAuthHandler(authService *services.AuthService, assignments *services.AssignmentService) *AuthHandler {
	return &AuthHandler{authService: authService, assignments: assignments}
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := parseBody(c, &req); err != nil {
		return respond(c, err)
	}

	resp, err := h.authService.Login(c.UserContext(), &req)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(resp)
}

func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	var req dto.RefreshRequest
	if err := parseBody(c, &req); err != nil {
		return respond(c, err)
	}

	resp, err := h.authService.Refresh(c.UserContext(), &req)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(resp)
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	var req dto.LogoutRequest
	if err := parseBody(c, &req); err != nil {
		return respond(c, err)
	}

	if err := h.authService.Logout(c.UserContext(), &req); err != nil {
		return fail(c, fiber.StatusInternalServerError, "Failed to logout")
	}
	return c.JSON(dto.MessageResponse{Message: "Logged out successfully"})
}

func (h *AuthHandler) DeleteAccount(c *fiber.Ctx) error {
	userID, err := account.GetUserID(c)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	// pending writes must land before the rows are deleted
	h.assignments.Drop(userID)
	if err := h.authService.DeleteAccount(c.UserContext(), userID); err != nil {
		return respond(c, err)
	}
	return c.JSON(dto.MessageResponse{Message: "Account deleted successfully"})
}
