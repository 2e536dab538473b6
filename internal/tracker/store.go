package tracker

import (
	"fmt"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// ChangeKind tells a Journal what kind of mutation was committed.
type ChangeKind int

const (
	ChangeAdded ChangeKind = iota + 1
	ChangeUpdated
	ChangeRemoved
	ChangeReplaced
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeAdded:
		return "added"
	case ChangeUpdated:
		return "updated"
	case ChangeRemoved:
		return "removed"
	case ChangeReplaced:
		return "replaced"
	}
	return "unknown"
}

// Change describes one committed mutation.
type Change struct {
	Kind       ChangeKind
	Assignment Assignment   // added, updated
	ID         string       // removed
	Source     Source       // replaced
	Records    []Assignment // replaced
}

// Journal receives committed changes in commit order. Record is called with the
// store's writer lock held and must not block on the store.
type Journal interface {
	Record(Change)
}

// Filter narrows List results. Zero values match everything.
type Filter struct {
	Course    string
	Completed *bool
	Source    Source
}

func (f Filter) match(a Assignment) bool {
	if f.Course != "" && !strings.EqualFold(a.Course, f.Course) {
		return false
	}
	if f.Completed != nil && a.Completed != *f.Completed {
		return false
	}
	if f.Source != "" && a.Source != f.Source {
		return false
	}
	return true
}

type snapshot struct {
	items []Assignment
	index map[string]int
}

func newSnapshot(items []Assignment) *snapshot {
	index := make(map[string]int, len(items))
	for i, a := range items {
		index[a.ID] = i
	}
	return &snapshot{items: items, index: index}
}

// Store holds one user's assignments. Writers build a new snapshot and swap it in,
// so a reader sees either the state before a mutation or the state after it.
type Store struct {
	mu      sync.Mutex
	current atomic.Pointer[snapshot]
	journal Journal
	now     func() time.Time
	newID   func() string
}

type Option func(*Store)

func WithJournal(j Journal) Option {
	return func(s *Store) { s.journal = j }
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func WithIDGenerator(gen func() string) Option {
	return func(s *Store) { s.newID = gen }
}

// NewStore builds a store from already persisted records.
func NewStore(initial []Assignment, opts ...Option) (*Store, error) {
	s := &Store{
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}

	items := make([]Assignment, 0, len(initial))
	seen := make(map[string]struct{}, len(initial))
	for _, a := range initial {
		if err := a.Validate(); err != nil {
			return nil, fmt.Errorf("assignment %q: %w", a.ID, err)
		}
		if _, dup := seen[a.ID]; dup {
			return nil, fmt.Errorf("duplicate assignment id %q", a.ID)
		}
		seen[a.ID] = struct{}{}
		items = append(items, a.Clone())
	}
	s.current.Store(newSnapshot(items))
	return s, nil
}

// publish must be called with s.mu held.
func (s *Store) publish(items []Assignment, change Change) {
	s.current.Store(newSnapshot(items))
	if s.journal != nil {
		s.journal.Record(change)
	}
}

func (s *Store) Add(in NewAssignment) (Assignment, error) {
	if err := in.validate(); err != nil {
		return Assignment{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	a := Assignment{
		ID:          s.newID(),
		Title:       strings.TrimSpace(in.Title),
		Course:      strings.TrimSpace(in.Course),
		DueDate:     in.DueDate,
		Description: in.Description,
		Tags:        NormalizeTags(in.Tags),
		Priority:    in.Priority,
		Source:      SourceCustom,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if a.Priority == 0 {
		a.Priority = DefaultPriority
	}

	snap := s.current.Load()
	if _, exists := snap.index[a.ID]; exists {
		return Assignment{}, fmt.Errorf("duplicate assignment id %q", a.ID)
	}

	items := make([]Assignment, len(snap.items), len(snap.items)+1)
	copy(items, snap.items)
	items = append(items, a)
	s.publish(items, Change{Kind: ChangeAdded, Assignment: a.Clone()})
	return a.Clone(), nil
}

func (s *Store) Update(id string, patch Patch) (Assignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.current.Load()
	idx, ok := snap.index[id]
	if !ok {
		return Assignment{}, ErrNotFound
	}
	if patch.Empty() {
		return snap.items[idx].Clone(), nil
	}

	now := s.now()
	updated, err := patch.apply(snap.items[idx].Clone(), now)
	if err != nil {
		return Assignment{}, err
	}
	updated.UpdatedAt = now

	items := slices.Clone(snap.items)
	items[idx] = updated
	s.publish(items, Change{Kind: ChangeUpdated, Assignment: updated.Clone()})
	return updated.Clone(), nil
}

func (s *Store) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.current.Load()
	idx, ok := snap.index[id]
	if !ok {
		return ErrNotFound
	}
	if !snap.items[idx].Deletable() {
		return ErrForbidden
	}

	items := make([]Assignment, 0, len(snap.items)-1)
	items = append(items, snap.items[:idx]...)
	items = append(items, snap.items[idx+1:]...)
	s.publish(items, Change{Kind: ChangeRemoved, ID: id})
	return nil
}

func (s *Store) ToggleCompletion(id string) (Assignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.current.Load()
	idx, ok := snap.index[id]
	if !ok {
		return Assignment{}, ErrNotFound
	}

	now := s.now()
	toggled := setCompleted(snap.items[idx].Clone(), !snap.items[idx].Completed, now)
	toggled.UpdatedAt = now

	items := slices.Clone(snap.items)
	items[idx] = toggled
	s.publish(items, Change{Kind: ChangeUpdated, Assignment: toggled.Clone()})
	return toggled.Clone(), nil
}

// ReplaceBySource drops every record of source and inserts records in their place.
// Either the whole replacement is applied or the store is left as it was.
// Only synced sources can be replaced; custom records are never bulk-dropped.
func (s *Store) ReplaceBySource(source Source, records []Assignment) error {
	if !source.External() {
		return &ValidationError{Field: "source", Message: "cannot replace records of source " + string(source)}
	}

	incoming := make([]Assignment, 0, len(records))
	seen := make(map[string]struct{}, len(records))
	for _, r := range records {
		if _, dup := seen[r.ID]; dup {
			continue
		}
		if r.Source != source {
			return &ValidationError{
				Field:   "source",
				Message: fmt.Sprintf("record %q has source %s, expected %s", r.ID, r.Source, source),
			}
		}
		if err := r.Validate(); err != nil {
			return err
		}
		seen[r.ID] = struct{}{}
		incoming = append(incoming, r.Clone())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.current.Load()
	items := make([]Assignment, 0, len(snap.items)+len(incoming))
	for _, a := range snap.items {
		if a.Source == source {
			continue
		}
		if _, clash := seen[a.ID]; clash {
			return &ValidationError{
				Field:   "id",
				Message: fmt.Sprintf("record %q already exists with source %s", a.ID, a.Source),
			}
		}
		items = append(items, a)
	}
	items = append(items, incoming...)

	journaled := make([]Assignment, len(incoming))
	for i, a := range incoming {
		journaled[i] = a.Clone()
	}
	s.publish(items, Change{Kind: ChangeReplaced, Source: source, Records: journaled})
	return nil
}

func (s *Store) Get(id string) (Assignment, error) {
	snap := s.current.Load()
	idx, ok := snap.index[id]
	if !ok {
		return Assignment{}, ErrNotFound
	}
	return snap.items[idx].Clone(), nil
}

// All returns every record in insertion order.
func (s *Store) All() []Assignment {
	snap := s.current.Load()
	out := make([]Assignment, len(snap.items))
	for i, a := range snap.items {
		out[i] = a.Clone()
	}
	return out
}

// List returns the records matching f sorted by due date.
func (s *Store) List(f Filter) []Assignment {
	snap := s.current.Load()
	out := make([]Assignment, 0, len(snap.items))
	for _, a := range snap.items {
		if f.match(a) {
			out = append(out, a.Clone())
		}
	}
	SortByDueDate(out)
	return out
}

func (s *Store) Len() int {
	return len(s.current.Load().items)
}

func (s *Store) CountBySource() map[Source]int {
	counts := make(map[Source]int, len(Sources))
	for _, a := range s.current.Load().items {
		counts[a.Source]++
	}
	return counts
}

// Courses returns the distinct course names in first-seen order.
func (s *Store) Courses() []string {
	var out []string
	seen := make(map[string]struct{})
	for _, a := range s.current.Load().items {
		key := strings.ToLower(a.Course)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, a.Course)
	}
	return out
}

// SortByDueDate sorts in place, earliest due first. Ties keep their order.
func SortByDueDate(items []Assignment) {
	slices.SortStableFunc(items, func(a, b Assignment) int {
		return a.DueDate.Compare(b.DueDate)
	})
}
