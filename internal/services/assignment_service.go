package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"

	"github.com/ahmetcoskunkizilkaya/assignment-tracker/internal/account"
	"github.com/ahmetcoskunkizilkaya/assignment-tracker/internal/dto"
	"github.com/ahmetcoskunkizilkaya/assignment-tracker/internal/entitlement"
	"github.com/ahmetcoskunkizilkaya/assignment-tracker/internal/models"
	"github.com/ahmetcoskunkizilkaya/assignment-tracker/internal/tracker"
)

// session is one user's in-memory store plus the writer that persists it.
// refs counts callers holding the store. An evicted session stays live until
// the last of them releases it; only then is its writer drained and closed.
type session struct {
	store  *tracker.Store
	writer *writer

	refs    int
	evicted bool
	closing bool
	gone    chan struct{}
}

// AssignmentService keeps a bounded set of per-user stores loaded from the
// database. Reads and writes go to the store; the database follows behind.
type AssignmentService struct {
	db       *gorm.DB
	subs     *SubscriptionService
	gate     *entitlement.Gate
	sessions *lru.Cache[uuid.UUID, *session]
	loads    singleflight.Group
	now      func() time.Time

	// live holds every session that is cached or still held after eviction,
	// so a user never has two stores at once.
	mu   sync.Mutex
	live map[uuid.UUID]*session
}

func NewAssignmentService(db *gorm.DB, subs *SubscriptionService, gate *entitlement.Gate, cacheSize int) (*AssignmentService, error) {
	if cacheSize <= 0 {
		cacheSize = 1024
	}
	s := &AssignmentService{
		db:   db,
		subs: subs,
		gate: gate,
		now:  time.Now,
		live: make(map[uuid.UUID]*session),
	}
	cache, err := lru.NewWithEvict(cacheSize, s.evict)
	if err != nil {
		return nil, fmt.Errorf("session cache: %w", err)
	}
	s.sessions = cache
	return s, nil
}

func (s *AssignmentService) evict(userID uuid.UUID, sess *session) {
	s.mu.Lock()
	sess.evicted = true
	idle := sess.refs == 0 && !sess.closing
	if idle {
		sess.closing = true
	}
	s.mu.Unlock()

	if idle {
		s.shut(userID, sess)
	}
	slog.Debug("session evicted", "user_id", userID.String(), "held", !idle)
}

// shut drains the writer, then forgets the session. The caller must have set closing.
func (s *AssignmentService) shut(userID uuid.UUID, sess *session) {
	sess.writer.Close()
	s.mu.Lock()
	if s.live[userID] == sess {
		delete(s.live, userID)
	}
	s.mu.Unlock()
	close(sess.gone)
}

func (s *AssignmentService) release(userID uuid.UUID, sess *session) {
	s.mu.Lock()
	sess.refs--
	idle := sess.refs == 0 && sess.evicted && !sess.closing
	if idle {
		sess.closing = true
	}
	s.mu.Unlock()

	if idle {
		s.shut(userID, sess)
	}
}

// acquire returns the user's session with a reference taken. A session that is
// being closed is waited out so the reload sees everything it wrote.
func (s *AssignmentService) acquire(ctx context.Context, userID uuid.UUID) (*session, error) {
	for {
		s.mu.Lock()
		sess, ok := s.live[userID]
		if ok && sess.closing {
			gone := sess.gone
			s.mu.Unlock()
			select {
			case <-gone:
				continue
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		if ok {
			sess.refs++
			readd := sess.evicted
			sess.evicted = false
			s.mu.Unlock()
			if readd {
				s.sessions.Add(userID, sess)
			} else {
				s.sessions.Get(userID)
			}
			return sess, nil
		}
		s.mu.Unlock()

		_, err, _ := s.loads.Do(userID.String(), func() (any, error) {
			s.mu.Lock()
			_, ok := s.live[userID]
			s.mu.Unlock()
			if ok {
				return nil, nil
			}
			sess, err := s.load(ctx, userID)
			if err != nil {
				return nil, err
			}
			s.mu.Lock()
			s.live[userID] = sess
			s.mu.Unlock()
			s.sessions.Add(userID, sess)
			return nil, nil
		})
		if err != nil {
			return nil, err
		}
	}
}

func (s *AssignmentService) load(ctx context.Context, userID uuid.UUID) (*session, error) {
	var rows []models.Assignment
	if err := s.db.WithContext(ctx).Scopes(account.ForUser(userID)).
		Order("created_at asc").Order("id asc").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load assignments: %w", err)
	}

	records := make([]tracker.Assignment, 0, len(rows))
	for _, row := range rows {
		a := row.Tracker()
		if err := a.Validate(); err != nil {
			slog.Warn("skipping invalid assignment row", "user_id", userID.String(), "id", row.ID, "error", err)
			continue
		}
		records = append(records, a)
	}

	w := newWriter(s.db, userID)
	store, err := tracker.NewStore(records, tracker.WithJournal(w), tracker.WithClock(s.now))
	if err != nil {
		w.Close()
		return nil, fmt.Errorf("failed to build store: %w", err)
	}
	return &session{store: store, writer: w, gone: make(chan struct{})}, nil
}

// Acquire returns the user's live store, loading it on first use. The store
// stays loaded, and its changes keep being persisted, until release is called.
func (s *AssignmentService) Acquire(ctx context.Context, userID uuid.UUID) (*tracker.Store, func(), error) {
	sess, err := s.acquire(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	var once sync.Once
	return sess.store, func() { once.Do(func() { s.release(userID, sess) }) }, nil
}

func (s *AssignmentService) List(ctx context.Context, userID uuid.UUID, f tracker.Filter) ([]tracker.Assignment, error) {
	store, release, err := s.Acquire(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer release()
	return store.List(f), nil
}

func (s *AssignmentService) Get(ctx context.Context, userID uuid.UUID, id string) (tracker.Assignment, error) {
	store, release, err := s.Acquire(ctx, userID)
	if err != nil {
		return tracker.Assignment{}, err
	}
	defer release()
	return store.Get(id)
}

// Create adds a custom assignment after checking the plan's assignment cap.
func (s *AssignmentService) Create(ctx context.Context, userID uuid.UUID, in tracker.NewAssignment) (tracker.Assignment, error) {
	store, release, err := s.Acquire(ctx, userID)
	if err != nil {
		return tracker.Assignment{}, err
	}
	defer release()
	tier, err := s.subs.CurrentTier(ctx, userID)
	if err != nil {
		return tracker.Assignment{}, err
	}
	usage := entitlement.Usage{Assignments: store.Len()}
	if err := s.gate.Check(entitlement.ActionAssignmentCreation, tier, usage); err != nil {
		return tracker.Assignment{}, err
	}
	return store.Add(in)
}

func (s *AssignmentService) Update(ctx context.Context, userID uuid.UUID, id string, patch tracker.Patch) (tracker.Assignment, error) {
	store, release, err := s.Acquire(ctx, userID)
	if err != nil {
		return tracker.Assignment{}, err
	}
	defer release()
	return store.Update(id, patch)
}

func (s *AssignmentService) Delete(ctx context.Context, userID uuid.UUID, id string) error {
	store, release, err := s.Acquire(ctx, userID)
	if err != nil {
		return err
	}
	defer release()
	return store.Remove(id)
}

func (s *AssignmentService) Toggle(ctx context.Context, userID uuid.UUID, id string) (tracker.Assignment, error) {
	store, release, err := s.Acquire(ctx, userID)
	if err != nil {
		return tracker.Assignment{}, err
	}
	defer release()
	return store.ToggleCompletion(id)
}

func (s *AssignmentService) Categorized(ctx context.Context, userID uuid.UUID, now time.Time) (tracker.Buckets, error) {
	store, release, err := s.Acquire(ctx, userID)
	if err != nil {
		return tracker.Buckets{}, err
	}
	defer release()
	return tracker.Categorize(store.All(), now), nil
}

func (s *AssignmentService) Month(ctx context.Context, userID uuid.UUID, month time.Time, loc *time.Location) (tracker.MonthView, error) {
	store, release, err := s.Acquire(ctx, userID)
	if err != nil {
		return tracker.MonthView{}, err
	}
	defer release()
	return tracker.Month(store.All(), month, loc), nil
}

func (s *AssignmentService) Day(ctx context.Context, userID uuid.UUID, day time.Time, loc *time.Location) ([]tracker.Assignment, error) {
	store, release, err := s.Acquire(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer release()
	return tracker.DueOn(store.All(), day, loc), nil
}

// Count is the number of assignments the user holds, loading the store if needed.
func (s *AssignmentService) Count(ctx context.Context, userID uuid.UUID) (int, error) {
	store, release, err := s.Acquire(ctx, userID)
	if err != nil {
		return 0, err
	}
	defer release()
	return store.Len(), nil
}

// CourseNames returns the distinct course names used by the user's assignments.
func (s *AssignmentService) CourseNames(ctx context.Context, userID uuid.UUID) ([]string, error) {
	store, release, err := s.Acquire(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer release()
	return store.Courses(), nil
}

// Flush waits until the user's pending changes are in the database. Users
// without a loaded session have nothing pending.
func (s *AssignmentService) Flush(userID uuid.UUID) {
	s.mu.Lock()
	sess, ok := s.live[userID]
	s.mu.Unlock()
	if ok {
		sess.writer.Flush()
	}
}

// Drop evicts the user's session. A session still held elsewhere is closed
// when its last holder releases it.
func (s *AssignmentService) Drop(userID uuid.UUID) {
	s.sessions.Remove(userID)
}

// Close flushes every session. Sessions still held are closed as well; their
// writers persist any later change synchronously. The service must not be
// used afterwards.
func (s *AssignmentService) Close() {
	s.sessions.Purge()

	s.mu.Lock()
	held := make(map[uuid.UUID]*session, len(s.live))
	for userID, sess := range s.live {
		if !sess.closing {
			sess.closing = true
			held[userID] = sess
		}
	}
	s.mu.Unlock()

	for userID, sess := range held {
		s.shut(userID, sess)
	}
}

func (s *AssignmentService) Analytics(ctx context.Context, userID uuid.UUID, now time.Time) (dto.AnalyticsResponse, error) {
	store, release, err := s.Acquire(ctx, userID)
	if err != nil {
		return dto.AnalyticsResponse{}, err
	}
	defer release()
	return summarize(store.All(), now), nil
}

func summarize(all []tracker.Assignment, now time.Time) dto.AnalyticsResponse {
	out := dto.AnalyticsResponse{
		BySource: make(map[tracker.Source]int, len(tracker.Sources)),
		Courses:  []dto.CourseStats{},
	}
	index := make(map[string]int)
	for _, a := range all {
		key := strings.ToLower(a.Course)
		i, ok := index[key]
		if !ok {
			i = len(out.Courses)
			index[key] = i
			out.Courses = append(out.Courses, dto.CourseStats{Course: a.Course})
		}
		c := &out.Courses[i]

		out.Total++
		c.Total++
		out.BySource[a.Source]++
		switch {
		case a.Completed:
			out.Completed++
			c.Completed++
		case a.DueDate.Before(now):
			out.Overdue++
			c.Overdue++
		}
	}

	out.CompletionRate = rate(out.Completed, out.Total)
	for i := range out.Courses {
		out.Courses[i].CompletionRate = rate(out.Courses[i].Completed, out.Courses[i].Total)
	}
	return out
}

func rate(done, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(done) / float64(total)
}
