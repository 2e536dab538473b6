package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ahmetcoskunkizilkaya/assignment-tracker/internal/dto"
	"github.com/ahmetcoskunkizilkaya/assignment-tracker/internal/entitlement"
	"github.com/ahmetcoskunkizilkaya/assignment-tracker/internal/tracker"
)

// ReportService builds the read-only views that span several services.
type ReportService struct {
	users       *UserService
	subs        *SubscriptionService
	assignments *AssignmentService
	courses     *CourseService
	gate        *entitlement.Gate
	now         func() time.Time
}

func NewReportService(users *UserService, subs *SubscriptionService, assignments *AssignmentService, courses *CourseService, gate *entitlement.Gate) *ReportService {
	return &ReportService{
		users:       users,
		subs:        subs,
		assignments: assignments,
		courses:     courses,
		gate:        gate,
		now:         time.Now,
	}
}

// Usage counts what the plan limits apply to.
func (s *ReportService) Usage(ctx context.Context, userID uuid.UUID) (entitlement.Usage, error) {
	assignments, err := s.assignments.Count(ctx, userID)
	if err != nil {
		return entitlement.Usage{}, err
	}
	courses, err := s.courses.CustomCount(ctx, userID)
	if err != nil {
		return entitlement.Usage{}, err
	}
	return entitlement.Usage{Assignments: assignments, Courses: courses}, nil
}

func (s *ReportService) Entitlements(ctx context.Context, userID uuid.UUID) (*dto.EntitlementsResponse, error) {
	tier, err := s.subs.CurrentTier(ctx, userID)
	if err != nil {
		return nil, err
	}
	usage, err := s.Usage(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &dto.EntitlementsResponse{
		Tier:   tier.Name,
		Flags:  s.gate.Flags(tier, usage),
		Usage:  usage,
		Limits: tier.Limits,
	}, nil
}

// Export returns everything stored for the user.
func (s *ReportService) Export(ctx context.Context, userID uuid.UUID) (*dto.ExportResponse, error) {
	user, err := s.users.Me(ctx, userID)
	if err != nil {
		return nil, err
	}
	sub, err := s.subs.Current(ctx, userID)
	if err != nil {
		return nil, err
	}
	assignments, err := s.assignments.List(ctx, userID, tracker.Filter{})
	if err != nil {
		return nil, err
	}
	courses, err := s.courses.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &dto.ExportResponse{
		ExportedAt:   s.now().UTC(),
		User:         *user,
		Subscription: *sub,
		Assignments:  assignments,
		Courses:      courses,
	}, nil
}
