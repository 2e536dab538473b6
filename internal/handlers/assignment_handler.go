package handlers

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/ahmetcoskunkizilkaya/assignment-tracker/internal/account"
	"github.com/ahmetcoskunkizilkaya/assignment-tracker/internal/dto"
	"github.com/ahmetcoskunkizilkaya/assignment-tracker/internal/services"
	"github.com/ahmetcoskunkizilkaya/assignment-tracker/internal/tracker"
)

type AssignmentHandler struct {
	assignments *services.AssignmentService
	loc         *time.Location
	now         func() time.Time
}

func NewAssignmentHandler(assignments *services.AssignmentService, loc *time.Location) *AssignmentHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &AssignmentHandler{assignments: assignments, loc: loc, now: time.Now}
}

func (h *AssignmentHandler) List(c *fiber.Ctx) error {
	userID, err := account.GetUserID(c)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	filter := tracker.Filter{Course: c.Query("course")}
	if raw := c.Query("completed"); raw != "" {
		completed, err := strconv.ParseBool(raw)
		if err != nil {
			return fail(c, fiber.StatusBadRequest, "completed must be true or false")
		}
		filter.Completed = &completed
	}
	if raw := c.Query("source"); raw != "" {
		source, ok := tracker.ParseSource(raw)
		if !ok {
			return fail(c, fiber.StatusBadRequest, "Unknown source "+raw)
		}
		filter.Source = source
	}

	list, err := h.assignments.List(c.UserContext(), userID, filter)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(list)
}

func (h *AssignmentHandler) Get(c *fiber.Ctx) error {
	userID, err := account.GetUserID(c)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	a, err := h.assignments.Get(c.UserContext(), userID, c.Params("id"))
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(a)
}

func (h *AssignmentHandler) Create(c *fiber.Ctx) error {
	userID, err := account.GetUserID(c)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	var req dto.CreateAssignmentRequest
	if err := parseBody(c, &req); err != nil {
		return respond(c, err)
	}
	due, err := tracker.ParseDueDate(req.Due(), h.loc)
	if err != nil {
		return respond(c, err)
	}

	in := tracker.NewAssignment{
		Title:       req.Title,
		Course:      req.Course,
		DueDate:     due,
		Description: req.Description,
		Tags:        req.Tags,
	}
	if req.Priority != nil {
		in.Priority = *req.Priority
	}

	a, err := h.assignments.Create(c.UserContext(), userID, in)
	if err != nil {
		return respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.CreateAssignmentResponse{
		ID:         a.ID,
		Message:    "Assignment created successfully",
		Assignment: a,
	})
}

func (h *AssignmentHandler) Update(c *fiber.Ctx) error {
	userID, err := account.GetUserID(c)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	var req dto.UpdateAssignmentRequest
	if err := parseBody(c, &req); err != nil {
		return respond(c, err)
	}

	patch := tracker.Patch{
		Title:       req.Title,
		Description: req.Description,
		Course:      req.Course,
		Tags:        req.Tags,
		Priority:    req.Priority,
		Completed:   req.Completed,
	}
	if raw := req.Due(); raw != nil {
		due, err := tracker.ParseDueDate(*raw, h.loc)
		if err != nil {
			return respond(c, err)
		}
		patch.DueDate = &due
	}

	a, err := h.assignments.Update(c.UserContext(), userID, c.Params("id"), patch)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(fiber.Map{"message": "Assignment updated successfully", "assignment": a})
}

func (h *AssignmentHandler) Delete(c *fiber.Ctx) error {
	userID, err := account.GetUserID(c)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	err = h.assignments.Delete(c.UserContext(), userID, c.Params("id"))
	if errors.Is(err, tracker.ErrNotFound) || errors.Is(err, tracker.ErrForbidden) {
		return fail(c, fiber.StatusNotFound, "Assignment not found or cannot be deleted")
	}
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(dto.MessageResponse{Message: "Assignment deleted successfully"})
}

func (h *AssignmentHandler) Toggle(c *fiber.Ctx) error {
	userID, err := account.GetUserID(c)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	a, err := h.assignments.Toggle(c.UserContext(), userID, c.Params("id"))
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(a)
}

func (h *AssignmentHandler) Categorized(c *fiber.Ctx) error {
	userID, err := account.GetUserID(c)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	now := h.now()
	buckets, err := h.assignments.Categorized(c.UserContext(), userID, now)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(dto.NewCategorizedResponse(buckets, now))
}

// Month lists every day of ?month=YYYY-MM, defaulting to the current month.
func (h *AssignmentHandler) Month(c *fiber.Ctx) error {
	userID, err := account.GetUserID(c)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	raw := c.Query("month", h.now().In(h.loc).Format(tracker.MonthLayout))
	month, err := tracker.ParseMonth(raw, h.loc)
	if err != nil {
		return respond(c, err)
	}

	view, err := h.assignments.Month(c.UserContext(), userID, month, h.loc)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(view)
}

func (h *AssignmentHandler) Day(c *fiber.Ctx) error {
	userID, err := account.GetUserID(c)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	raw := c.Query("date", h.now().In(h.loc).Format(tracker.DateLayout))
	day, err := tracker.ParseDay(raw, h.loc)
	if err != nil {
		return respond(c, err)
	}

	list, err := h.assignments.Day(c.UserContext(), userID, day, h.loc)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(tracker.Day{Date: day.Format(tracker.DateLayout), Assignments: list})
}
