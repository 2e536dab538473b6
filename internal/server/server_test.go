package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahmetcoskunkizilkaya/assignment-tracker/internal/config"
	"github.com/ahmetcoskunkizilkaya/assignment-tracker/internal/database"
	"github.com/ahmetcoskunkizilkaya/assignment-tracker/internal/dto"
	"github.com/ahmetcoskunkizilkaya/assignment-tracker/internal/reconcile"
	"github.com/ahmetcoskunkizilkaya/assignment-tracker/internal/services"
	"github.com/ahmetcoskunkizilkaya/assignment-tracker/internal/tracker"
)

type stubProvider struct {
	source tracker.Source
	name   string
}

func (p stubProvider) Source() tracker.Source { return p.source }
func (p stubProvider) Name() string           { return p.name }

func (p stubProvider) Courses(context.Context) ([]reconcile.Course, error) {
	return []reconcile.Course{{ID: "7", Name: "Honors Math"}}, nil
}

func (p stubProvider) Items(_ context.Context, c reconcile.Course) ([]reconcile.Item, error) {
	due := time.Now().Add(72 * time.Hour).UTC()
	return []reconcile.Item{
		{ExternalID: "a", Title: "Worksheet", DueDate: &due},
		{ExternalID: "b", Title: "Quiz", DueDate: &due},
	}, nil
}

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		DBDriver:         "sqlite",
		SQLitePath:       filepath.Join(t.TempDir(), "server.db"),
		JWTSecret:        "server-test-secret",
		JWTAccessExpiry:  time.Hour,
		JWTRefreshExpiry: 24 * time.Hour,
		DefaultTier:      "free",
		SessionCacheSize: 8,
		SyncConcurrency:  2,
		CORSOrigins:      "*",
		RateLimit:        1000,
		Timezone:         "UTC",
	}
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := testConfig(t)
	db, err := database.Open(cfg)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { _ = database.Close(db) })

	factory := func(source tracker.Source, _ services.Credentials) (reconcile.Provider, error) {
		name := "Canvas"
		if source == tracker.SourceGoogle {
			name = "Google Classroom"
		}
		return stubProvider{source: source, name: name}, nil
	}
	srv, err := New(cfg, db, WithProviders(factory), WithoutRequestLog())
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv
}

func do(t *testing.T, app *fiber.App, method, path, token string, body any) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, raw
}

func login(t *testing.T, app *fiber.App, email string) string {
	t.Helper()
	resp, raw := do(t, app, http.MethodPost, "/api/auth/login", "", dto.LoginRequest{Email: email, Name: "Student"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
	var auth dto.AuthResponse
	require.NoError(t, json.Unmarshal(raw, &auth))
	return auth.Token
}

func TestPublicRoutes(t *testing.T) {
	srv := newTestServer(t)

	resp, raw := do(t, srv.App, http.MethodGet, "/api/health", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var health dto.HealthResponse
	require.NoError(t, json.Unmarshal(raw, &health))
	assert.Equal(t, "ok", health.DB)
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))

	resp, raw = do(t, srv.App, http.MethodGet, "/api/plans", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var plans []struct {
		Name string `json:"name"`
	}
	require.NoError(t, json.Unmarshal(raw, &plans))
	require.Len(t, plans, 3)
	assert.Equal(t, "free", plans[0].Name)
}

func TestAuthRequired(t *testing.T) {
	srv := newTestServer(t)

	resp, _ := do(t, srv.App, http.MethodGet, "/api/assignments", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = do(t, srv.App, http.MethodGet, "/api/assignments", "not.a.jwt", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestLoginValidation(t *testing.T) {
	srv := newTestServer(t)

	resp, raw := do(t, srv.App, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "nope"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(raw), "email")
}

func TestAssignmentLifecycle(t *testing.T) {
	srv := newTestServer(t)
	token := login(t, srv.App, "flow@example.com")

	due := time.Now().Add(48 * time.Hour).UTC().Format(time.RFC3339)
	resp, raw := do(t, srv.App, http.MethodPost, "/api/assignments", token, map[string]any{
		"title":    "Lab report",
		"course":   "AP Physics",
		"dueDate":  due,
		"priority": 4,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))
	var created dto.CreateAssignmentResponse
	require.NoError(t, json.Unmarshal(raw, &created))
	assert.Equal(t, "Assignment created successfully", created.Message)
	assert.Equal(t, tracker.SourceCustom, created.Assignment.Source)
	id := created.ID

	resp, raw = do(t, srv.App, http.MethodPost, "/api/assignments", token, map[string]any{"title": "No course", "due_date": due})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, string(raw))

	resp, raw = do(t, srv.App, http.MethodGet, "/api/assignments?course=ap%20physics", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list []tracker.Assignment
	require.NoError(t, json.Unmarshal(raw, &list))
	require.Len(t, list, 1)
	assert.Equal(t, id, list[0].ID)

	resp, raw = do(t, srv.App, http.MethodPost, "/api/assignments/"+id+"/toggle", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var toggled tracker.Assignment
	require.NoError(t, json.Unmarshal(raw, &toggled))
	assert.True(t, toggled.Completed)

	resp, _ = do(t, srv.App, http.MethodPut, "/api/assignments/"+id, token, map[string]any{"title": "Lab report v2"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, raw = do(t, srv.App, http.MethodGet, "/api/assignments/"+id, token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got tracker.Assignment
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, "Lab report v2", got.Title)

	resp, _ = do(t, srv.App, http.MethodDelete, "/api/assignments/"+id, token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp, raw = do(t, srv.App, http.MethodDelete, "/api/assignments/"+id, token, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, string(raw), "Assignment not found or cannot be deleted")
}

func TestFreeTierAssignmentLimit(t *testing.T) {
	srv := newTestServer(t)
	token := login(t, srv.App, "limit@example.com")
	due := time.Now().Add(24 * time.Hour).UTC().Format("2006-01-02")

	for i := 0; i < 10; i++ {
		resp, raw := do(t, srv.App, http.MethodPost, "/api/assignments", token, map[string]any{
			"title": fmt.Sprintf("Task %d", i), "course": "Math", "due_date": due,
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))
	}

	resp, raw := do(t, srv.App, http.MethodPost, "/api/assignments", token, map[string]any{
		"title": "One too many", "course": "Math", "due_date": due,
	})
	require.Equal(t, http.StatusPaymentRequired, resp.StatusCode)
	var upgrade dto.UpgradeResponse
	require.NoError(t, json.Unmarshal(raw, &upgrade))
	assert.Equal(t, "free", upgrade.Tier)
	assert.NotEmpty(t, upgrade.Upgrade)

	resp, _ = do(t, srv.App, http.MethodPut, "/api/subscription", token, map[string]string{"tier": "premium"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = do(t, srv.App, http.MethodPost, "/api/assignments", token, map[string]any{
		"title": "One too many", "course": "Math", "due_date": due,
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestCategorizedAndCalendar(t *testing.T) {
	srv := newTestServer(t)
	token := login(t, srv.App, "views@example.com")

	tomorrow := time.Now().Add(24 * time.Hour).UTC()
	resp, raw := do(t, srv.App, http.MethodPost, "/api/assignments", token, map[string]any{
		"title": "Essay", "course": "English", "due_date": tomorrow.Format(time.RFC3339),
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))

	resp, raw = do(t, srv.App, http.MethodGet, "/api/assignments/categorized", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var cat dto.CategorizedResponse
	require.NoError(t, json.Unmarshal(raw, &cat))
	assert.Len(t, cat.HighPriority, 1)
	assert.Empty(t, cat.Completed)

	resp, raw = do(t, srv.App, http.MethodGet, "/api/calendar?month="+tomorrow.Format("2006-01"), token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
	var month tracker.MonthView
	require.NoError(t, json.Unmarshal(raw, &month))
	assert.Equal(t, tomorrow.Format("2006-01"), month.Month)
	found := 0
	for _, d := range month.Days {
		found += len(d.Assignments)
	}
	assert.Equal(t, 1, found)

	resp, _ = do(t, srv.App, http.MethodGet, "/api/calendar?month=2025-13", token, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, raw = do(t, srv.App, http.MethodGet, "/api/calendar/day?date="+tomorrow.Format("2006-01-02"), token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var day tracker.Day
	require.NoError(t, json.Unmarshal(raw, &day))
	assert.Len(t, day.Assignments, 1)
}

func TestPremiumFeaturesGated(t *testing.T) {
	srv := newTestServer(t)
	token := login(t, srv.App, "gated@example.com")

	resp, _ := do(t, srv.App, http.MethodGet, "/api/analytics", token, nil)
	assert.Equal(t, http.StatusPaymentRequired, resp.StatusCode)

	resp, _ = do(t, srv.App, http.MethodPut, "/api/subscription", token, map[string]string{"tier": "pro"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, raw := do(t, srv.App, http.MethodGet, "/api/analytics", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
	var analytics dto.AnalyticsResponse
	require.NoError(t, json.Unmarshal(raw, &analytics))
	assert.Zero(t, analytics.Total)

	resp, _ = do(t, srv.App, http.MethodGet, "/api/export", token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get(fiber.HeaderContentDisposition), "attachment")

	resp, _ = do(t, srv.App, http.MethodPut, "/api/subscription", token, map[string]string{"tier": "gold"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSyncEndpoint(t *testing.T) {
	srv := newTestServer(t)
	token := login(t, srv.App, "sync@example.com")

	resp, raw := do(t, srv.App, http.MethodPost, "/api/canvas/sync", token, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(raw), "Canvas credentials not configured")

	resp, _ = do(t, srv.App, http.MethodPut, "/api/user/credentials", token, map[string]string{
		"canvas_token": "tok", "canvas_url": "https://school.instructure.com/",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, raw = do(t, srv.App, http.MethodPost, "/api/canvas/sync", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
	var synced dto.SyncResponse
	require.NoError(t, json.Unmarshal(raw, &synced))
	assert.Equal(t, 2, synced.Count)
	assert.Equal(t, "Synced 2 assignments from Canvas", synced.Message)

	resp, raw = do(t, srv.App, http.MethodGet, "/api/assignments?source=canvas", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list []tracker.Assignment
	require.NoError(t, json.Unmarshal(raw, &list))
	assert.Len(t, list, 2)

	// synced records can't be deleted
	resp, _ = do(t, srv.App, http.MethodDelete, "/api/assignments/"+list[0].ID, token, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = do(t, srv.App, http.MethodPost, "/api/canvas/sync", token, nil)
	assert.Equal(t, http.StatusPaymentRequired, resp.StatusCode)

	resp, _ = do(t, srv.App, http.MethodDelete, "/api/sync/canvas", token, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp, _ = do(t, srv.App, http.MethodDelete, "/api/sync/custom", token, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestThemeSettings(t *testing.T) {
	srv := newTestServer(t)
	token := login(t, srv.App, "theme@example.com")

	resp, _ := do(t, srv.App, http.MethodPut, "/api/user/settings", token, map[string]string{"theme": "dark"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = do(t, srv.App, http.MethodPut, "/api/user/settings", token, map[string]string{"theme": "sunset"})
	assert.Equal(t, http.StatusPaymentRequired, resp.StatusCode)

	resp, raw := do(t, srv.App, http.MethodGet, "/api/user", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var me dto.UserResponse
	require.NoError(t, json.Unmarshal(raw, &me))
	assert.Equal(t, "dark", me.Theme)
}

func TestDeleteAccount(t *testing.T) {
	srv := newTestServer(t)
	token := login(t, srv.App, "bye@example.com")

	resp, _ := do(t, srv.App, http.MethodPost, "/api/assignments", token, map[string]any{
		"title": "Last", "course": "Band", "due_date": "2030-01-01",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, _ = do(t, srv.App, http.MethodDelete, "/api/auth/account", token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = do(t, srv.App, http.MethodGet, "/api/user", token, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
