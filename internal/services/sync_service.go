package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ahmetcoskunkizilkaya/assignment-tracker/internal/account"
	"github.com/ahmetcoskunkizilkaya/assignment-tracker/internal/config"
	"github.com/ahmetcoskunkizilkaya/assignment-tracker/internal/entitlement"
	"github.com/ahmetcoskunkizilkaya/assignment-tracker/internal/models"
	"github.com/ahmetcoskunkizilkaya/assignment-tracker/internal/providers/canvas"
	"github.com/ahmetcoskunkizilkaya/assignment-tracker/internal/providers/classroom"
	"github.com/ahmetcoskunkizilkaya/assignment-tracker/internal/reconcile"
	"github.com/ahmetcoskunkizilkaya/assignment-tracker/internal/tracker"
)

// ProviderFactory builds the provider client for source from a user's credentials.
type ProviderFactory func(source tracker.Source, creds Credentials) (reconcile.Provider, error)

// NewProviderFactory returns the HTTP-backed Canvas and Google Classroom clients.
func NewProviderFactory(cfg *config.Config) ProviderFactory {
	return func(source tracker.Source, creds Credentials) (reconcile.Provider, error) {
		switch source {
		case tracker.SourceCanvas:
			return canvas.New(creds.CanvasURL, creds.CanvasToken, cfg.ProviderTimeout), nil
		case tracker.SourceGoogle:
			return classroom.New(cfg.GoogleAPIURL, creds.GoogleToken, cfg.ProviderTimeout), nil
		}
		return nil, ErrUnknownProvider
	}
}

type SyncService struct {
	db          *gorm.DB
	users       *UserService
	assignments *AssignmentService
	courses     *CourseService
	subs        *SubscriptionService
	gate        *entitlement.Gate
	reconciler  *reconcile.Reconciler
	runner      *reconcile.Runner
	providers   ProviderFactory
	now         func() time.Time
}

func NewSyncService(
	db *gorm.DB,
	users *UserService,
	assignments *AssignmentService,
	courses *CourseService,
	subs *SubscriptionService,
	gate *entitlement.Gate,
	reconciler *reconcile.Reconciler,
	runner *reconcile.Runner,
	providers ProviderFactory,
) *SyncService {
	return &SyncService{
		db:          db,
		users:       users,
		assignments: assignments,
		courses:     courses,
		subs:        subs,
		gate:        gate,
		reconciler:  reconciler,
		runner:      runner,
		providers:   providers,
		now:         time.Now,
	}
}

func providerName(source tracker.Source) string {
	if source == tracker.SourceGoogle {
		return "Google Classroom"
	}
	return "Canvas"
}

func configured(source tracker.Source, creds Credentials) bool {
	switch source {
	case tracker.SourceCanvas:
		return creds.CanvasToken != "" && creds.CanvasURL != ""
	case tracker.SourceGoogle:
		return creds.GoogleToken != ""
	}
	return false
}

// Sync pulls source's assignments into the user's store. A newer sync of the
// same source cancels this one.
func (s *SyncService) Sync(ctx context.Context, userID uuid.UUID, source tracker.Source) (reconcile.Result, error) {
	if !source.External() {
		return reconcile.Result{}, ErrUnknownProvider
	}

	creds, err := s.users.Credentials(ctx, userID)
	if err != nil {
		return reconcile.Result{}, err
	}
	if !configured(source, creds) {
		return reconcile.Result{}, &CredentialsError{Provider: providerName(source)}
	}

	if err := s.checkFrequency(ctx, userID, source); err != nil {
		return reconcile.Result{}, err
	}

	provider, err := s.providers(source, creds)
	if err != nil {
		return reconcile.Result{}, err
	}

	key := reconcile.Key{UserID: userID.String(), Source: source}
	task := s.runner.Start(key, func(taskCtx context.Context) (reconcile.Result, error) {
		// Held until the log is written so eviction cannot close the store
		// between the fetch and the replace.
		store, release, err := s.assignments.Acquire(taskCtx, userID)
		if err != nil {
			if taskCtx.Err() != nil {
				err = reconcile.ErrCancelled
			}
			s.record(context.WithoutCancel(taskCtx), userID, source, reconcile.Result{}, err)
			return reconcile.Result{}, err
		}
		defer release()

		res, err := s.reconciler.Sync(taskCtx, store, provider)
		s.record(context.WithoutCancel(taskCtx), userID, source, res, err)
		return res, err
	})
	return task.Wait()
}

// checkFrequency enforces the tier's minimum time between successful syncs.
func (s *SyncService) checkFrequency(ctx context.Context, userID uuid.UUID, source tracker.Source) error {
	tier, err := s.subs.CurrentTier(ctx, userID)
	if err != nil {
		return err
	}
	interval := entitlement.SyncInterval(tier)
	if interval == 0 {
		return nil
	}

	var recent int64
	err = s.db.WithContext(ctx).Model(&models.SyncLog{}).Scopes(account.ForUser(userID)).
		Where("provider = ? AND status = ? AND created_at > ?", string(source), models.SyncSuccess, s.now().Add(-interval)).
		Count(&recent).Error
	if err != nil {
		return fmt.Errorf("failed to check sync history: %w", err)
	}
	if recent == 0 {
		return nil
	}
	return &entitlement.EntitlementError{
		Action:  entitlement.ActionRealtimeSync,
		Tier:    tier.Name,
		Message: s.gate.DescribeUpgrade(entitlement.ActionRealtimeSync, tier),
	}
}

func (s *SyncService) record(ctx context.Context, userID uuid.UUID, source tracker.Source, res reconcile.Result, syncErr error) {
	entry := models.SyncLog{
		UserID:    userID,
		Provider:  string(source),
		CreatedAt: s.now(),
	}
	switch {
	case syncErr == nil:
		entry.Status = models.SyncSuccess
		entry.Message = res.Message
		entry.AssignmentsCount = res.Count
		if err := s.courses.RecordSynced(ctx, userID, source, res.Courses); err != nil {
			slog.Error("failed to record synced courses", "user_id", userID.String(), "provider", string(source), "error", err)
		}
		slog.Info("sync completed", "user_id", userID.String(), "provider", string(source), "count", res.Count)
	case errors.Is(syncErr, reconcile.ErrCancelled):
		entry.Status = models.SyncCancelled
		entry.Message = syncErr.Error()
		slog.Info("sync cancelled", "user_id", userID.String(), "provider", string(source))
	default:
		entry.Status = models.SyncError
		entry.Message = syncErr.Error()
		slog.Error("sync failed", "user_id", userID.String(), "action", string(source)+"_sync", "error", syncErr)
	}

	if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
		slog.Error("failed to write sync log", "user_id", userID.String(), "error", err)
	}
}

// Cancel stops the user's in-flight sync of source. It reports whether one was running.
func (s *SyncService) Cancel(userID uuid.UUID, source tracker.Source) bool {
	return s.runner.Cancel(reconcile.Key{UserID: userID.String(), Source: source})
}

// Logs returns the user's most recent sync logs, newest first.
func (s *SyncService) Logs(ctx context.Context, userID uuid.UUID, limit int) ([]models.SyncLog, error) {
	if limit <= 0 {
		limit = 20
	}
	var logs []models.SyncLog
	err := s.db.WithContext(ctx).Scopes(account.ForUser(userID)).
		Order("created_at desc").Limit(limit).Find(&logs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch sync logs: %w", err)
	}
	return logs, nil
}
