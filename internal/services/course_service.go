package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ahmetcoskunkizilkaya/assignment-tracker/internal/account"
	"github.com/ahmetcoskunkizilkaya/assignment-tracker/internal/dto"
	"github.com/ahmetcoskunkizilkaya/assignment-tracker/internal/entitlement"
	"github.com/ahmetcoskunkizilkaya/assignment-tracker/internal/models"
	"github.com/ahmetcoskunkizilkaya/assignment-tracker/internal/reconcile"
	"github.com/ahmetcoskunkizilkaya/assignment-tracker/internal/tracker"
)

type CourseService struct {
	db   *gorm.DB
	subs *SubscriptionService
	gate *entitlement.Gate
}

func NewCourseService(db *gorm.DB, subs *SubscriptionService, gate *entitlement.Gate) *CourseService {
	return &CourseService{db: db, subs: subs, gate: gate}
}

func (s *CourseService) List(ctx context.Context, userID uuid.UUID) ([]dto.CourseResponse, error) {
	var rows []models.Course
	if err := s.db.WithContext(ctx).Scopes(account.ForUser(userID)).
		Order("created_at asc").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch courses: %w", err)
	}
	out := make([]dto.CourseResponse, len(rows))
	for i := range rows {
		out[i] = courseResponse(&rows[i])
	}
	return out, nil
}

// CustomCount is the number of courses the user created by hand.
func (s *CourseService) CustomCount(ctx context.Context, userID uuid.UUID) (int, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Course{}).Scopes(account.ForUser(userID)).
		Where("provider = ?", string(tracker.SourceCustom)).Count(&n).Error
	return int(n), err
}

// Create adds a custom course after checking the plan's course cap.
func (s *CourseService) Create(ctx context.Context, userID uuid.UUID, req *dto.CreateCourseRequest) (*dto.CourseResponse, error) {
	tier, err := s.subs.CurrentTier(ctx, userID)
	if err != nil {
		return nil, err
	}
	count, err := s.CustomCount(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count courses: %w", err)
	}
	if err := s.gate.Check(entitlement.ActionCourseCreation, tier, entitlement.Usage{Courses: count}); err != nil {
		return nil, err
	}

	course := models.Course{
		UserID:   userID,
		Name:     strings.TrimSpace(req.Name),
		Provider: string(tracker.SourceCustom),
		Color:    strings.ToLower(req.Color),
		Active:   true,
	}
	if err := s.db.WithContext(ctx).Create(&course).Error; err != nil {
		return nil, fmt.Errorf("failed to create course: %w", err)
	}
	resp := courseResponse(&course)
	return &resp, nil
}

// Delete removes a custom course. Synced courses are owned by their provider.
func (s *CourseService) Delete(ctx context.Context, userID uuid.UUID, id string) error {
	courseID, err := uuid.Parse(id)
	if err != nil {
		return ErrCourseNotFound
	}
	result := s.db.WithContext(ctx).Scopes(account.ForUser(userID)).
		Where("id = ? AND provider = ?", courseID, string(tracker.SourceCustom)).
		Delete(&models.Course{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete course: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrCourseNotFound
	}
	return nil
}

// RecordSynced upserts the provider courses a sync kept and deactivates the
// ones it no longer reports.
func (s *CourseService) RecordSynced(ctx context.Context, userID uuid.UUID, source tracker.Source, courses []reconcile.Course) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing []models.Course
		if err := tx.Scopes(account.ForUser(userID)).
			Where("provider = ?", string(source)).Find(&existing).Error; err != nil {
			return err
		}
		byExternal := make(map[string]*models.Course, len(existing))
		for i := range existing {
			byExternal[existing[i].ExternalID] = &existing[i]
		}

		seen := make(map[string]struct{}, len(courses))
		for _, c := range courses {
			seen[c.ID] = struct{}{}
			if row, ok := byExternal[c.ID]; ok {
				if err := tx.Model(row).Updates(map[string]interface{}{"name": c.Name, "active": true}).Error; err != nil {
					return err
				}
				continue
			}
			row := models.Course{
				UserID:     userID,
				Name:       c.Name,
				ExternalID: c.ID,
				Provider:   string(source),
				Active:     true,
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}

		for _, row := range existing {
			if _, ok := seen[row.ExternalID]; ok || !row.Active {
				continue
			}
			if err := tx.Model(&models.Course{}).Where("id = ?", row.ID).Update("active", false).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func courseResponse(c *models.Course) dto.CourseResponse {
	return dto.CourseResponse{
		ID:         c.ID.String(),
		Name:       c.Name,
		ExternalID: c.ExternalID,
		Provider:   c.Provider,
		Color:      c.Color,
		Active:     c.Active,
		CreatedAt:  c.CreatedAt,
	}
}
