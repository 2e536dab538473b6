package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ahmetcoskunkizilkaya/assignment-tracker/internal/account"
	"github.com/ahmetcoskunkizilkaya/assignment-tracker/internal/dto"
	"github.com/ahmetcoskunkizilkaya/assignment-tracker/internal/services"
	"github.com/ahmetcoskunkizilkaya/assignment-tracker/internal/tracker"
)

type SyncHandler struct {
	syncService *services.SyncService
}

func NewSyncHandler(syncService *services.SyncService) *SyncHandler {
	return &SyncHandler{syncService: syncService}
}

// Sync returns a handler that syncs source for the caller.
func (h *SyncHandler) Sync(source tracker.Source) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := account.GetUserID(c)
		if err != nil {
			return fail(c, fiber.StatusUnauthorized, "Unauthorized")
		}

		res, err := h.syncService.Sync(c.UserContext(), userID, source)
		if err != nil {
			return respond(c, err)
		}
		return c.JSON(dto.SyncResponse{Message: res.Message, Count: res.Count})
	}
}

func (h *SyncHandler) Cancel(c *fiber.Ctx) error {
	userID, err := account.GetUserID(c)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	source, ok := tracker.ParseSource(c.Params("provider"))
	if !ok || !source.External() {
		return fail(c, fiber.StatusBadRequest, "Unknown sync provider")
	}

	if !h.syncService.Cancel(userID, source) {
		return fail(c, fiber.StatusNotFound, "No sync in progress")
	}
	return c.JSON(dto.MessageResponse{Message: "Sync cancelled"})
}

func (h *SyncHandler) Logs(c *fiber.Ctx) error {
	userID, err := account.GetUserID(c)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	logs, err := h.syncService.Logs(c.UserContext(), userID, c.QueryInt("limit", 20))
	if err != nil {
		return respond(c, err)
	}

	out := make([]dto.SyncLogResponse, len(logs))
	for i, l := range logs {
		out[i] = dto.SyncLogResponse{
			ID:               l.ID.String(),
			Provider:         l.Provider,
			Status:           l.Status,
			Message:          l.Message,
			AssignmentsCount: l.AssignmentsCount,
			CreatedAt:        l.CreatedAt,
		}
	}
	return c.JSON(out)
}
