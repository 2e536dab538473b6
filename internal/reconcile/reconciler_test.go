package reconcile

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahmetcoskunkizilkaya/assignment-tracker/internal/tracker"
)

var syncTime = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

type fakeProvider struct {
	source     tracker.Source
	name       string
	courses    []Course
	items      map[string][]Item
	coursesErr error
	itemsErr   map[string]error
	onItems    func(Course)

	mu      sync.Mutex
	fetched []string
}

func (p *fakeProvider) Source() tracker.Source { return p.source }
func (p *fakeProvider) Name() string           { return p.name }

func (p *fakeProvider) Courses(ctx context.Context) ([]Course, error) {
	if p.coursesErr != nil {
		return nil, p.coursesErr
	}
	return p.courses, nil
}

func (p *fakeProvider) Items(ctx context.Context, c Course) ([]Item, error) {
	p.mu.Lock()
	p.fetched = append(p.fetched, c.ID)
	p.mu.Unlock()
	if p.onItems != nil {
		p.onItems(c)
	}
	if err := p.itemsErr[c.ID]; err != nil {
		return nil, err
	}
	return p.items[c.ID], nil
}

func due(d time.Duration) *time.Time {
	t := syncTime.Add(d)
	return &t
}

func canvasProvider() *fakeProvider {
	return &fakeProvider{
		source: tracker.SourceCanvas,
		name:   "Canvas",
		courses: []Course{
			{ID: "10", Name: "AP Physics C"},
			{ID: "20", Name: "World History"},
			{ID: "30", Name: "Marching BAND"},
		},
		items: map[string][]Item{
			"10": {
				{ExternalID: "101", Title: "Lab 1", DueDate: due(24 * time.Hour)},
				{ExternalID: "102", Title: "Reading", DueDate: nil},
			},
			"20": {{ExternalID: "201", Title: "Essay", DueDate: due(time.Hour)}},
			"30": {{ExternalID: "301", Title: "Scales", Description: "all majors", DueDate: due(48 * time.Hour)}},
		},
	}
}

func newStore(t *testing.T, initial ...tracker.Assignment) *tracker.Store {
	t.Helper()
	s, err := tracker.NewStore(initial, tracker.WithClock(func() time.Time { return syncTime }))
	require.NoError(t, err)
	return s
}

func newReconciler() *Reconciler {
	return New(nil, WithClock(func() time.Time { return syncTime }))
}

func TestSyncFiltersAndNormalizes(t *testing.T) {
	store := newStore(t)
	p := canvasProvider()

	res, err := newReconciler().Sync(context.Background(), store, p)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Count)
	assert.False(t, res.Empty)
	assert.Equal(t, "Synced 2 assignments from Canvas", res.Message)
	assert.Len(t, res.Courses, 2)
	assert.ElementsMatch(t, []string{"10", "30"}, p.fetched)

	lab, err := store.Get("canvas_10_101")
	require.NoError(t, err)
	assert.Equal(t, "101", lab.ExternalID)
	assert.Equal(t, "AP Physics C", lab.Course)
	assert.Equal(t, "10", lab.CourseID)
	assert.Equal(t, tracker.SourceCanvas, lab.Source)
	assert.False(t, lab.Completed)

	scales, err := store.Get("canvas_30_301")
	require.NoError(t, err)
	assert.Equal(t, "all majors", scales.Description)

	_, err = store.Get("canvas_10_102")
	assert.ErrorIs(t, err, tracker.ErrNotFound)
}

func TestSyncIsIdempotentAndKeepsUserState(t *testing.T) {
	store := newStore(t)
	p := canvasProvider()
	r := newReconciler()

	_, err := r.Sync(context.Background(), store, p)
	require.NoError(t, err)
	_, err = store.ToggleCompletion("canvas_10_101")
	require.NoError(t, err)
	tags := []string{"lab"}
	_, err = store.Update("canvas_10_101", tracker.Patch{Tags: &tags})
	require.NoError(t, err)

	_, err = r.Sync(context.Background(), store, p)
	require.NoError(t, err)

	lab, err := store.Get("canvas_10_101")
	require.NoError(t, err)
	assert.True(t, lab.Completed)
	assert.NotNil(t, lab.CompletedAt)
	assert.Equal(t, []string{"lab"}, lab.Tags)
	assert.Equal(t, 2, store.Len())
}

func TestSyncKeepsSameExternalIDInDifferentCourses(t *testing.T) {
	store := newStore(t)
	p := &fakeProvider{
		source: tracker.SourceGoogle,
		name:   "Google Classroom",
		courses: []Course{
			{ID: "A", Name: "AP Physics C"},
			{ID: "B", Name: "Jazz Band"},
		},
		items: map[string][]Item{
			"A": {
				{ExternalID: "1", Title: "Lab", DueDate: due(time.Hour)},
				{ExternalID: "1", Title: "Lab (repeat)", DueDate: due(time.Hour)},
			},
			"B": {{ExternalID: "1", Title: "Etude", DueDate: due(2 * time.Hour)}},
		},
	}

	res, err := newReconciler().Sync(context.Background(), store, p)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Count)
	assert.Equal(t, "Synced 2 assignments from Google Classroom", res.Message)
	assert.Equal(t, 2, store.Len())

	lab, err := store.Get("google_A_1")
	require.NoError(t, err)
	assert.Equal(t, "Lab", lab.Title)
	etude, err := store.Get("google_B_1")
	require.NoError(t, err)
	assert.Equal(t, "Jazz Band", etude.Course)
}

func TestSyncCarriesStateAcrossIDFormats(t *testing.T) {
	done := syncTime.Add(-time.Hour)
	legacy := tracker.Assignment{
		ID: "canvas_101", Title: "Lab 1", Course: "AP Physics C", CourseID: "10",
		DueDate: *due(24 * time.Hour), Tags: []string{"lab"}, Priority: 3,
		Source: tracker.SourceCanvas, ExternalID: "101",
		Completed: true, CompletedAt: &done, CreatedAt: done, UpdatedAt: done,
	}
	store := newStore(t, legacy)

	_, err := newReconciler().Sync(context.Background(), store, canvasProvider())
	require.NoError(t, err)

	_, err = store.Get("canvas_101")
	assert.ErrorIs(t, err, tracker.ErrNotFound)
	lab, err := store.Get("canvas_10_101")
	require.NoError(t, err)
	assert.True(t, lab.Completed)
	assert.Equal(t, []string{"lab"}, lab.Tags)
	assert.Equal(t, 3, lab.Priority)
	assert.Equal(t, done, lab.CreatedAt)
}

func TestSyncLeavesOtherSourcesAlone(t *testing.T) {
	store := newStore(t)
	custom, err := store.Add(tracker.NewAssignment{Title: "Mine", Course: "Math", DueDate: syncTime})
	require.NoError(t, err)

	_, err = newReconciler().Sync(context.Background(), store, canvasProvider())
	require.NoError(t, err)

	got, err := store.Get(custom.ID)
	require.NoError(t, err)
	assert.Equal(t, custom, got)
}

func TestSyncWithNothingIsAnEmptySuccess(t *testing.T) {
	store := newStore(t)
	r := newReconciler()
	_, err := r.Sync(context.Background(), store, canvasProvider())
	require.NoError(t, err)

	empty := &fakeProvider{source: tracker.SourceCanvas, name: "Canvas", courses: []Course{{ID: "1", Name: "Math"}}}
	res, err := r.Sync(context.Background(), store, empty)
	require.NoError(t, err)
	assert.True(t, res.Empty)
	assert.Equal(t, 0, res.Count)
	assert.Equal(t, "No assignments found in your Canvas courses", res.Message)
	assert.Equal(t, 0, store.CountBySource()[tracker.SourceCanvas])
}

func TestSyncProviderFailureKeepsExistingRecords(t *testing.T) {
	boom := errors.New("connection reset")
	tests := []struct {
		name  string
		setup func(p *fakeProvider)
	}{
		{name: "courses fail", setup: func(p *fakeProvider) { p.coursesErr = boom }},
		{name: "one course fails", setup: func(p *fakeProvider) { p.itemsErr = map[string]error{"30": boom} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newStore(t)
			r := newReconciler()
			_, err := r.Sync(context.Background(), store, canvasProvider())
			require.NoError(t, err)
			before := store.All()

			p := canvasProvider()
			tt.setup(p)
			_, err = r.Sync(context.Background(), store, p)

			var serr *SyncError
			require.ErrorAs(t, err, &serr)
			assert.Equal(t, "Canvas", serr.Provider)
			assert.ErrorIs(t, err, boom)
			assert.Equal(t, before, store.All())
		})
	}
}

func TestSyncCancelledAfterFetchIsDiscarded(t *testing.T) {
	store := newStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := canvasProvider()
	p.onItems = func(Course) { cancel() }

	_, err := newReconciler().Sync(ctx, store, p)
	assert.ErrorIs(t, err, ErrCancelled)
	assert.Equal(t, 0, store.Len())
}

func TestNewTargets(t *testing.T) {
	assert.Equal(t, DefaultTargetCourses, New(nil).Targets())
	assert.Equal(t, []string{"chemistry", "art"}, New([]string{" Chemistry ", "", "ART"}).Targets())
}
