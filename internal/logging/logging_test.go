package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ahmetcoskunkizilkaya/assignment-tracker/internal/models"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "logs.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.SystemLog{}))
	return db
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"WARN", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"loud", slog.LevelInfo},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLevel(tt.in), tt.in)
	}
}

func TestMultiHandlerFansOutByLevel(t *testing.T) {
	var info, errs bytes.Buffer
	log := slog.New(NewMultiHandler(
		NewJSONHandler(&info, "info"),
		NewJSONHandler(&errs, "error"),
	))

	log.Info("sync started", "provider", "canvas")
	log.Error("sync failed", "provider", "canvas")

	assert.Contains(t, info.String(), "sync started")
	assert.Contains(t, info.String(), "sync failed")
	assert.NotContains(t, errs.String(), "sync started")
	assert.Contains(t, errs.String(), "sync failed")
}

type failingHandler struct{ slog.Handler }

func (failingHandler) Handle(context.Context, slog.Record) error { return errors.New("sink down") }

func TestMultiHandlerKeepsGoingAfterFailure(t *testing.T) {
	var out bytes.Buffer
	h := NewMultiHandler(
		failingHandler{NewJSONHandler(io.Discard, "info")},
		nil,
		NewJSONHandler(&out, "info"),
	)

	err := h.Handle(context.Background(), slog.NewRecord(time.Now(), slog.LevelError, "still logged", 0))
	assert.EqualError(t, err, "sink down")
	assert.Contains(t, out.String(), "still logged")
}

func TestDBHandlerPersistsErrors(t *testing.T) {
	db := openTestDB(t)
	h := newDBHandler(db, time.Hour)

	log := slog.New(h).With("request_id", "req-1")
	log.Info("ignored")
	log.Error("provider failed", "user_id", "u-1", "action", "canvas_sync", "error", "boom", "course", "physics")
	h.Stop()

	var rows []models.SystemLog
	require.NoError(t, db.Find(&rows).Error)
	require.Len(t, rows, 1)

	row := rows[0]
	assert.Equal(t, "ERROR", row.Level)
	assert.Equal(t, "provider failed", row.Message)
	assert.Equal(t, "req-1", row.RequestID)
	require.NotNil(t, row.UserID)
	assert.Equal(t, "u-1", *row.UserID)
	assert.Equal(t, "canvas_sync", row.Action)
	assert.Equal(t, "boom", row.Error)

	var extra map[string]any
	require.NoError(t, json.Unmarshal(row.Extra, &extra))
	assert.Equal(t, "physics", extra["course"])
}

func TestDBHandlerEnabled(t *testing.T) {
	h := newDBHandler(openTestDB(t), time.Hour)
	defer h.Stop()

	assert.False(t, h.Enabled(context.Background(), slog.LevelWarn))
	assert.True(t, h.Enabled(context.Background(), slog.LevelError))
}

func TestCleanupDeletesOldRows(t *testing.T) {
	db := openTestDB(t)
	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	old := models.SystemLog{ID: uuid.New(), Timestamp: now.AddDate(0, 0, -40), Level: "ERROR", Message: "old"}
	fresh := models.SystemLog{ID: uuid.New(), Timestamp: now.AddDate(0, 0, -2), Level: "ERROR", Message: "fresh"}
	require.NoError(t, db.Create(&old).Error)
	require.NoError(t, db.Create(&fresh).Error)

	deleted, err := Cleanup(db, 30*24*time.Hour, now)
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)

	var left []models.SystemLog
	require.NoError(t, db.Find(&left).Error)
	require.Len(t, left, 1)
	assert.Equal(t, "fresh", left[0].Message)
}
