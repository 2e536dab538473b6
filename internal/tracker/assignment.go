package tracker

import (
	"slices"
	"strings"
	"time"
)

// Source identifies which system produced an assignment.
type Source string

const (
	SourceCustom Source = "custom"
	SourceCanvas Source = "canvas"
	SourceGoogle Source = "google"
)

// Sources lists every known source.
var Sources = []Source{SourceCustom, SourceCanvas, SourceGoogle}

func (s Source) Valid() bool {
	switch s {
	case SourceCustom, SourceCanvas, SourceGoogle:
		return true
	}
	return false
}

// External reports whether records of this source come from a provider sync.
func (s Source) External() bool {
	return s == SourceCanvas || s == SourceGoogle
}

// ParseSource accepts the lowercase source names used on the wire.
func ParseSource(raw string) (Source, bool) {
	s := Source(strings.ToLower(strings.TrimSpace(raw)))
	return s, s.Valid()
}

const DefaultPriority = 1

// Assignment is a single tracked piece of work.
type Assignment struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Course      string     `json:"course"`
	CourseID    string     `json:"course_id,omitempty"`
	DueDate     time.Time  `json:"due_date"`
	Description string     `json:"description"`
	Tags        []string   `json:"tags"`
	Priority    int        `json:"priority"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completed_at"`
	Source      Source     `json:"source"`
	ExternalID  string     `json:"external_id,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Deletable reports whether a user may delete the assignment.
func (a Assignment) Deletable() bool {
	return a.Source == SourceCustom
}

// Clone returns a copy that shares no mutable state with a.
func (a Assignment) Clone() Assignment {
	c := a
	c.Tags = slices.Clone(a.Tags)
	if a.CompletedAt != nil {
		t := *a.CompletedAt
		c.CompletedAt = &t
	}
	return c
}

// Validate checks the record invariants.
func (a Assignment) Validate() error {
	if a.ID == "" {
		return &ValidationError{Field: "id", Message: "id is required"}
	}
	if strings.TrimSpace(a.Title) == "" {
		return &ValidationError{Field: "title", Message: "title is required"}
	}
	if strings.TrimSpace(a.Course) == "" {
		return &ValidationError{Field: "course", Message: "course is required"}
	}
	if a.DueDate.IsZero() {
		return &ValidationError{Field: "due_date", Message: "due date is required"}
	}
	if !a.Source.Valid() {
		return &ValidationError{Field: "source", Message: "unknown source " + string(a.Source)}
	}
	if a.Source == SourceCustom && a.ExternalID != "" {
		return &ValidationError{Field: "external_id", Message: "custom assignments cannot carry an external id"}
	}
	if a.Source.External() && a.ExternalID == "" {
		return &ValidationError{Field: "external_id", Message: "synced assignments need an external id"}
	}
	if a.Completed != (a.CompletedAt != nil) {
		return &ValidationError{Field: "completed_at", Message: "completed_at must be set exactly when completed"}
	}
	return nil
}

// NewAssignment is the input for creating a custom assignment.
type NewAssignment struct {
	Title       string
	Course      string
	DueDate     time.Time
	Description string
	Tags        []string
	Priority    int
}

func (n NewAssignment) validate() error {
	if strings.TrimSpace(n.Title) == "" {
		return &ValidationError{Field: "title", Message: "title is required"}
	}
	if strings.TrimSpace(n.Course) == "" {
		return &ValidationError{Field: "course", Message: "course is required"}
	}
	if n.DueDate.IsZero() {
		return &ValidationError{Field: "due_date", Message: "due date is required"}
	}
	return nil
}

// Patch holds the editable fields of an assignment. Nil fields are left untouched.
type Patch struct {
	Title       *string
	Description *string
	Course      *string
	DueDate     *time.Time
	Tags        *[]string
	Priority    *int
	Completed   *bool
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Course == nil && p.DueDate == nil &&
		p.Tags == nil && p.Priority == nil && p.Completed == nil
}

func (p Patch) apply(a Assignment, now time.Time) (Assignment, error) {
	if p.Title != nil {
		title := strings.TrimSpace(*p.Title)
		if title == "" {
			return a, &ValidationError{Field: "title", Message: "title cannot be empty"}
		}
		a.Title = title
	}
	if p.Course != nil {
		course := strings.TrimSpace(*p.Course)
		if course == "" {
			return a, &ValidationError{Field: "course", Message: "course cannot be empty"}
		}
		a.Course = course
	}
	if p.DueDate != nil {
		if p.DueDate.IsZero() {
			return a, &ValidationError{Field: "due_date", Message: "due date cannot be empty"}
		}
		a.DueDate = *p.DueDate
	}
	if p.Description != nil {
		a.Description = *p.Description
	}
	if p.Tags != nil {
		a.Tags = NormalizeTags(*p.Tags)
	}
	if p.Priority != nil {
		a.Priority = *p.Priority
	}
	if p.Completed != nil && *p.Completed != a.Completed {
		a = setCompleted(a, *p.Completed, now)
	}
	return a, nil
}

func setCompleted(a Assignment, completed bool, now time.Time) Assignment {
	a.Completed = completed
	if completed {
		t := now
		a.CompletedAt = &t
	} else {
		a.CompletedAt = nil
	}
	return a
}

// NormalizeTags trims, drops empty entries and removes duplicates keeping the first occurrence.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
