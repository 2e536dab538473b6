package services

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ahmetcoskunkizilkaya/assignment-tracker/internal/config"
	"github.com/ahmetcoskunkizilkaya/assignment-tracker/internal/entitlement"
	"github.com/ahmetcoskunkizilkaya/assignment-tracker/internal/models"
	"github.com/ahmetcoskunkizilkaya/assignment-tracker/internal/reconcile"
	"github.com/ahmetcoskunkizilkaya/assignment-tracker/internal/secrets"
	"github.com/ahmetcoskunkizilkaya/assignment-tracker/internal/tracker"
)

var baseTime = time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)

type testEnv struct {
	db          *gorm.DB
	cfg         *config.Config
	vault       *secrets.Vault
	gate        *entitlement.Gate
	subs        *SubscriptionService
	assignments *AssignmentService
	users       *UserService
	courses     *CourseService
	reports     *ReportService
	auth        *AuthService
	sync        *SyncService
	providers   map[tracker.Source]*fakeProvider
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")+"?_foreign_keys=on"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(models.All()...))
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := openTestDB(t)
	cfg := &config.Config{
		JWTSecret:        "test-secret",
		JWTAccessExpiry:  time.Hour,
		JWTRefreshExpiry: 24 * time.Hour,
		DefaultTier:      "free",
	}
	vault, err := secrets.NewVault("test-master-key")
	require.NoError(t, err)

	gate := entitlement.NewGate(entitlement.DefaultCatalog())
	subs := NewSubscriptionService(db, gate.Catalog(), cfg.DefaultTier)
	assignments, err := NewAssignmentService(db, subs, gate, 16)
	require.NoError(t, err)
	t.Cleanup(assignments.Close)

	users := NewUserService(db, vault, subs, gate)
	courses := NewCourseService(db, subs, gate)

	env := &testEnv{
		db:          db,
		cfg:         cfg,
		vault:       vault,
		gate:        gate,
		subs:        subs,
		assignments: assignments,
		users:       users,
		courses:     courses,
		reports:     NewReportService(users, subs, assignments, courses, gate),
		auth:        NewAuthService(db, cfg, vault),
		providers: map[tracker.Source]*fakeProvider{
			tracker.SourceCanvas: {source: tracker.SourceCanvas, name: "Canvas"},
			tracker.SourceGoogle: {source: tracker.SourceGoogle, name: "Google Classroom"},
		},
	}

	runner := reconcile.NewRunner(context.Background())
	t.Cleanup(func() { _ = runner.Shutdown(context.Background()) })
	factory := func(source tracker.Source, _ Credentials) (reconcile.Provider, error) {
		return env.providers[source], nil
	}
	env.sync = NewSyncService(db, users, assignments, courses, subs, gate, reconcile.New(nil), runner, factory)
	return env
}

// newUser creates a user row and returns its id.
func (e *testEnv) newUser(t *testing.T) uuid.UUID {
	t.Helper()
	email := uuid.NewString() + "@example.com"
	user := models.User{Email: &email, Name: "Test"}
	require.NoError(t, e.db.Create(&user).Error)
	return user.ID
}

type fakeProvider struct {
	source  tracker.Source
	name    string
	mu      sync.Mutex
	courses []reconcile.Course
	items   map[string][]reconcile.Item
	err     error
	calls   int

	// started, when set, is closed on the first Courses call, which then
	// blocks until its context ends.
	started chan struct{}
}

func (p *fakeProvider) Source() tracker.Source { return p.source }
func (p *fakeProvider) Name() string           { return p.name }

func (p *fakeProvider) Courses(ctx context.Context) ([]reconcile.Course, error) {
	p.mu.Lock()
	p.calls++
	started, courses, err := p.started, p.courses, p.err
	p.started = nil
	p.mu.Unlock()

	if started != nil {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err != nil {
		return nil, err
	}
	return courses, nil
}

func (p *fakeProvider) Items(ctx context.Context, c reconcile.Course) ([]reconcile.Item, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.items[c.ID], nil
}

func due(days int) *time.Time {
	t := time.Now().Add(time.Duration(days) * 24 * time.Hour).UTC().Truncate(time.Second)
	return &t
}

func newAssignment(title string, dueAt time.Time) tracker.NewAssignment {
	return tracker.NewAssignment{Title: title, Course: "Physics", DueDate: dueAt}
}

func ptr[T any](v T) *T { return &v }
