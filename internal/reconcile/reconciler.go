package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ahmetcoskunkizilkaya/assignment-tracker/internal/tracker"
)

// DefaultTargetCourses are the course name fragments synced when none are configured.
var DefaultTargetCourses = []string{"physics", "band", "english", "math"}

const defaultConcurrency = 4

// Result describes a successful sync.
type Result struct {
	Source  tracker.Source `json:"source"`
	Count   int            `json:"count"`
	Empty   bool           `json:"empty"`
	Message string         `json:"message"`
	Courses []Course       `json:"-"`
}

type Reconciler struct {
	targets     []string
	concurrency int
	now         func() time.Time
}

type Option func(*Reconciler)

// WithConcurrency bounds the number of courses fetched at once.
func WithConcurrency(n int) Option {
	return func(r *Reconciler) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) { r.now = now }
}

// New builds a reconciler that keeps provider courses whose name contains one of
// targets, compared case-insensitively. Empty targets fall back to DefaultTargetCourses.
func New(targets []string, opts ...Option) *Reconciler {
	normalized := make([]string, 0, len(targets))
	for _, t := range targets {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			normalized = append(normalized, t)
		}
	}
	if len(normalized) == 0 {
		normalized = append(normalized, DefaultTargetCourses...)
	}
	r := &Reconciler{
		targets:     normalized,
		concurrency: defaultConcurrency,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Reconciler) Targets() []string {
	return append([]string(nil), r.targets...)
}

func (r *Reconciler) wanted(c Course) bool {
	name := strings.ToLower(c.Name)
	for _, t := range r.targets {
		if strings.Contains(name, t) {
			return true
		}
	}
	return false
}

// Sync fetches everything from p and replaces the store's records of p's source.
// Nothing is written unless every fetch succeeded and ctx is still live.
func (r *Reconciler) Sync(ctx context.Context, store Target, p Provider) (Result, error) {
	source := p.Source()

	all, err := p.Courses(ctx)
	if err != nil {
		return Result{}, r.fail(ctx, p, fmt.Errorf("list courses: %w", err))
	}
	var courses []Course
	for _, c := range all {
		if r.wanted(c) {
			courses = append(courses, c)
		}
	}

	perCourse := make([][]Item, len(courses))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i, c := range courses {
		i, c := i, c
		g.Go(func() error {
			items, err := p.Items(gctx, c)
			if err != nil {
				return fmt.Errorf("course %s: %w", c.ID, err)
			}
			perCourse[i] = items
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, r.fail(ctx, p, err)
	}

	records := r.normalize(store.All(), source, courses, perCourse)

	if ctx.Err() != nil {
		return Result{}, ErrCancelled
	}
	if err := store.ReplaceBySource(source, records); err != nil {
		return Result{}, fmt.Errorf("replace %s records: %w", source, err)
	}

	res := Result{Source: source, Count: len(records), Courses: courses}
	if len(records) == 0 {
		res.Empty = true
		res.Message = fmt.Sprintf("No assignments found in your %s courses", p.Name())
	} else {
		res.Message = fmt.Sprintf("Synced %d assignments from %s", len(records), p.Name())
	}
	return res, nil
}

// fail reports cancellation as ErrCancelled and everything else as a *SyncError.
func (r *Reconciler) fail(ctx context.Context, p Provider, err error) error {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return ErrCancelled
	}
	return &SyncError{Provider: p.Name(), Err: err}
}

func (r *Reconciler) normalize(existing []tracker.Assignment, source tracker.Source, courses []Course, perCourse [][]Item) []tracker.Assignment {
	// Keyed by course and external id rather than record id, so local state
	// survives a change in how ids are derived.
	type itemKey struct{ course, external string }
	previous := make(map[itemKey]tracker.Assignment)
	for _, a := range existing {
		if a.Source == source {
			previous[itemKey{a.CourseID, a.ExternalID}] = a
		}
	}

	now := r.now()
	seen := make(map[string]struct{})
	var records []tracker.Assignment
	for i, c := range courses {
		for _, item := range perCourse[i] {
			if item.DueDate == nil || item.DueDate.IsZero() || item.ExternalID == "" {
				continue
			}
			title := strings.TrimSpace(item.Title)
			if title == "" {
				title = "Untitled assignment"
			}
			course := strings.TrimSpace(c.Name)
			if course == "" {
				course = c.ID
			}

			rec := tracker.Assignment{
				ID:          RecordID(source, c.ID, item.ExternalID),
				Title:       title,
				Course:      course,
				CourseID:    c.ID,
				DueDate:     *item.DueDate,
				Description: item.Description,
				Tags:        []string{},
				Priority:    tracker.DefaultPriority,
				Source:      source,
				ExternalID:  item.ExternalID,
				CreatedAt:   now,
				UpdatedAt:   now,
			}
			if _, dup := seen[rec.ID]; dup {
				continue
			}
			seen[rec.ID] = struct{}{}
			if prev, ok := previous[itemKey{c.ID, item.ExternalID}]; ok {
				rec.Completed = prev.Completed
				rec.CompletedAt = prev.CompletedAt
				rec.Tags = prev.Tags
				rec.Priority = prev.Priority
				rec.CreatedAt = prev.CreatedAt
			}
			records = append(records, rec)
		}
	}
	return records
}

// RecordID is the stable local id of a synced provider item. Providers only
// promise external ids unique within a course, so the course is part of it.
func RecordID(source tracker.Source, courseID, externalID string) string {
	return string(source) + "_" + courseID + "_" + externalID
}
