package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/ahmetcoskunkizilkaya/assignment-tracker/internal/account"
	"github.com/ahmetcoskunkizilkaya/assignment-tracker/internal/dto"
	"github.com/ahmetcoskunkizilkaya/assignment-tracker/internal/services"
)

type SubscriptionHandler struct {
	subs        *services.SubscriptionService
	reports     *services.ReportService
	assignments *services.AssignmentService
}

func NewSubscriptionHandler(subs *services.SubscriptionService, reports *services.ReportService, assignments *services.AssignmentService) *SubscriptionHandler {
	return &SubscriptionHandler{subs: subs, reports: reports, assignments: assignments}
}

// Plans lists the tier catalog. It needs no authentication.
func (h *SubscriptionHandler) Plans(c *fiber.Ctx) error {
	return c.JSON(h.subs.Catalog().All())
}

func (h *SubscriptionHandler) Current(c *fiber.Ctx) error {
	userID, err := account.GetUserID(c)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	sub, err := h.subs.Current(c.UserContext(), userID)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(sub)
}

// Checkout is the mock payment flow: it switches the tier immediately.
func (h *SubscriptionHandler) Checkout(c *fiber.Ctx) error {
	userID, err := account.GetUserID(c)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	var req dto.UpdateSubscriptionRequest
	if err := parseBody(c, &req); err != nil {
		return respond(c, err)
	}

	sub, err := h.subs.Checkout(c.UserContext(), userID, req.Tier)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(sub)
}

func (h *SubscriptionHandler) Cancel(c *fiber.Ctx) error {
	userID, err := account.GetUserID(c)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	sub, err := h.subs.Cancel(c.UserContext(), userID)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(sub)
}

func (h *SubscriptionHandler) Entitlements(c *fiber.Ctx) error {
	userID, err := account.GetUserID(c)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	resp, err := h.reports.Entitlements(c.UserContext(), userID)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(resp)
}

func (h *SubscriptionHandler) Analytics(c *fiber.Ctx) error {
	userID, err := account.GetUserID(c)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	resp, err := h.assignments.Analytics(c.UserContext(), userID, time.Now())
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(resp)
}

func (h *SubscriptionHandler) Export(c *fiber.Ctx) error {
	userID, err := account.GetUserID(c)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	resp, err := h.reports.Export(c.UserContext(), userID)
	if err != nil {
		return respond(c, err)
	}
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="assignments-export.json"`)
	return c.JSON(resp)
}
