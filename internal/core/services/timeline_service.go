package services

import (
	"context"

	"github.com/lorrc/case-collab-backend/internal/core/domain"
	"github.com/lorrc/case-collab-backend/internal/core/ports"
)

// TimelineService produces the reconciled, display-ready view of a case's
// history. It is a read-side transform: all the interesting logic lives in
// domain.Reconcile, which this service only feeds.
type TimelineService struct {
	events      ports.EventLogService
	caseRepo    ports.CaseRepository
	attachments ports.AttachmentRepository
}

var _ ports.TimelineService = (*TimelineService)(nil)

// NewTimelineService creates a new timeline service.
func NewTimelineService(
	events ports.EventLogService,
	caseRepo ports.CaseRepository,
	attachments ports.AttachmentRepository,
) ports.TimelineService {
	return &TimelineService{
		events:      events,
		caseRepo:    caseRepo,
		attachments: attachments,
	}
}

// GetTimeline merges the raw event log with attachment metadata into the
// ordered view consumed by history rendering. Used alongside, not instead
// of, live broadcasts.
func (s *TimelineService) GetTimeline(ctx context.Context, caseID int64) ([]domain.DisplayEvent, error) {
	c, err := s.caseRepo.GetByID(ctx, caseID)
	if err != nil {
		return nil, err
	}

	events, err := s.events.ListForCase(ctx, caseID)
	if err != nil {
		return nil, err
	}

	attachments, err := s.attachments.ListByCaseID(ctx, caseID)
	if err != nil {
		return nil, err
	}

	return domain.Reconcile(events, attachments, c.CreatedAt), nil
}
