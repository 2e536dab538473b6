package reconcile

import (
	"context"
	"time"

	"github.com/ahmetcoskunkizilkaya/assignment-tracker/internal/tracker"
)

// Course is a course as reported by a provider.
type Course struct {
	ID   string
	Name string
}

// Item is one provider assignment. DueDate is nil when the provider has none.
type Item struct {
	ExternalID  string
	Title       string
	Description string
	DueDate     *time.Time
}

// Provider fetches courses and their assignments from an external system.
type Provider interface {
	Source() tracker.Source
	// Name is the human readable provider name, e.g. "Canvas".
	Name() string
	Courses(ctx context.Context) ([]Course, error)
	Items(ctx context.Context, course Course) ([]Item, error)
}

// Target is the store a sync writes into.
type Target interface {
	All() []tracker.Assignment
	ReplaceBySource(source tracker.Source, records []tracker.Assignment) error
}
