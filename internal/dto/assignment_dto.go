package dto

import (
	"time"

	"github.com/ahmetcoskunkizilkaya/assignment-tracker/internal/tracker"
)

// CreateAssignmentRequest accepts the due date as due_date or dueDate.
type CreateAssignmentRequest struct {
	Title       string   `json:"title" validate:"required,notblank,max=300"`
	Course      string   `json:"course" validate:"required,notblank,max=200"`
	DueDate     string   `json:"due_date"`
	DueDateAlt  string   `json:"dueDate"`
	Description string   `json:"description" validate:"max=10000"`
	Tags        []string `json:"tags" validate:"max=50,dive,max=50"`
	Priority    *int     `json:"priority" validate:"omitempty,min=1,max=5"`
}

func (r CreateAssignmentRequest) Due() string {
	if r.DueDate != "" {
		return r.DueDate
	}
	return r.DueDateAlt
}

// UpdateAssignmentRequest lists the only fields a client may change.
type UpdateAssignmentRequest struct {
	Title       *string   `json:"title" validate:"omitempty,notblank,max=300"`
	Description *string   `json:"description" validate:"omitempty,max=10000"`
	Course      *string   `json:"course" validate:"omitempty,notblank,max=200"`
	DueDate     *string   `json:"due_date"`
	DueDateAlt  *string   `json:"dueDate"`
	Tags        *[]string `json:"tags" validate:"omitempty,max=50,dive,max=50"`
	Priority    *int      `json:"priority" validate:"omitempty,min=1,max=5"`
	Completed   *bool     `json:"completed"`
}

func (r UpdateAssignmentRequest) Due() *string {
	if r.DueDate != nil {
		return r.DueDate
	}
	return r.DueDateAlt
}

type CreateAssignmentResponse struct {
	ID         string             `json:"id"`
	Message    string             `json:"message"`
	Assignment tracker.Assignment `json:"assignment"`
}

// AssignmentItem is an assignment decorated for the categorized view.
type AssignmentItem struct {
	tracker.Assignment
	DaysUntil int    `json:"days_until"`
	DueLabel  string `json:"due_label"`
}

type CategorizedResponse struct {
	Completed    []AssignmentItem `json:"completed"`
	HighPriority []AssignmentItem `json:"high_priority"`
	ComingUp     []AssignmentItem `json:"coming_up"`
	WorryLater   []AssignmentItem `json:"worry_later"`
	GeneratedAt  time.Time        `json:"generated_at"`
}

// NewCategorizedResponse decorates every bucket relative to now.
func NewCategorizedResponse(b tracker.Buckets, now time.Time) CategorizedResponse {
	return CategorizedResponse{
		Completed:    decorate(b.Completed, now),
		HighPriority: decorate(b.HighPriority, now),
		ComingUp:     decorate(b.ComingUp, now),
		WorryLater:   decorate(b.WorryLater, now),
		GeneratedAt:  now,
	}
}

func decorate(in []tracker.Assignment, now time.Time) []AssignmentItem {
	out := make([]AssignmentItem, 0, len(in))
	for _, a := range in {
		days := tracker.DaysUntil(a.DueDate, now)
		out = append(out, AssignmentItem{Assignment: a, DaysUntil: days, DueLabel: tracker.DueLabel(days)})
	}
	return out
}

type SyncResponse struct {
	Message string `json:"message"`
	Count   int    `json:"count"`
}

type SyncLogResponse struct {
	ID               string    `json:"id"`
	Provider         string    `json:"provider"`
	Status           string    `json:"status"`
	Message          string    `json:"message"`
	AssignmentsCount int       `json:"assignments_count"`
	CreatedAt        time.Time `json:"created_at"`
}

type CreateCourseRequest struct {
	Name  string `json:"name" validate:"required,notblank,max=100"`
	Color string `json:"color" validate:"omitempty,hexcolor"`
}

type CourseStats struct {
	Course         string  `json:"course"`
	Total          int     `json:"total"`
	Completed      int     `json:"completed"`
	Overdue        int     `json:"overdue"`
	CompletionRate float64 `json:"completion_rate"`
}

type AnalyticsResponse struct {
	Total          int                    `json:"total"`
	Completed      int                    `json:"completed"`
	Overdue        int                    `json:"overdue"`
	CompletionRate float64                `json:"completion_rate"`
	BySource       map[tracker.Source]int `json:"by_source"`
	Courses        []CourseStats          `json:"courses"`
}
