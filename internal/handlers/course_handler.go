package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ahmetcoskunkizilkaya/assignment-tracker/internal/account"
	"github.com/ahmetcoskunkizilkaya/assignment-tracker/internal/dto"
	"github.com/ahmetcoskunkizilkaya/assignment-tracker/internal/services"
)

type CourseHandler struct {
	courses *services.CourseService
}

func NewCourseHandler(courses *services.CourseService) *CourseHandler {
	return &CourseHandler{courses: courses}
}

func (h *CourseHandler) List(c *fiber.Ctx) error {
	userID, err := account.GetUserID(c)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	list, err := h.courses.List(c.UserContext(), userID)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(list)
}

func (h *CourseHandler) Create(c *fiber.Ctx) error {
	userID, err := account.GetUserID(c)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	var req dto.CreateCourseRequest
	if err := parseBody(c, &req); err != nil {
		return respond(c, err)
	}

	course, err := h.courses.Create(c.UserContext(), userID, &req)
	if err != nil {
		return respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(course)
}

func (h *CourseHandler) Delete(c *fiber.Ctx) error {
	userID, err := account.GetUserID(c)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	if err := h.courses.Delete(c.UserContext(), userID, c.Params("id")); err != nil {
		return respond(c, err)
	}
	return c.JSON(dto.MessageResponse{Message: "Course deleted successfully"})
}
