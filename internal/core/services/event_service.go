package services

import (
	"context"
	"errors"

	"github.com/lorrc/case-collab-backend/internal/core/domain"
	apperrors "github.com/lorrc/case-collab-backend/internal/core/errors"
	"github.com/lorrc/case-collab-backend/internal/core/ports"
)

// EventLogService is the single write/read path for the case event log, so
// validation and ordering rules are enforced uniformly.
type EventLogService struct {
	eventRepo ports.EventRepository
	caseRepo  ports.CaseRepository
}

var _ ports.EventLogService = (*EventLogService)(nil)

// NewEventLogService creates a new event log service.
func NewEventLogService(
	eventRepo ports.EventRepository,
	caseRepo ports.CaseRepository,
) ports.EventLogService {
	return &EventLogService{
		eventRepo: eventRepo,
		caseRepo:  caseRepo,
	}
}

// Append validates and persists a new event. Validation failures are
// rejected before any write; an unknown case surfaces as ErrCaseNotFound,
// an unknown actor as ErrUserNotFound, and other store failures as
// PersistenceError.
func (s *EventLogService) Append(ctx context.Context, params ports.AppendEventParams) (*domain.Event, error) {
	event, err := domain.NewEvent(domain.EventParams{
		CaseID:      params.CaseID,
		ActorID:     params.ActorID,
		Kind:        params.Kind,
		Description: params.Description,
		OldValue:    params.OldValue,
		NewValue:    params.NewValue,
		Comment:     params.Comment,
	})
	if err != nil {
		return nil, err
	}

	created, err := s.eventRepo.Create(ctx, event)
	if err != nil {
		if errors.Is(err, apperrors.ErrCaseNotFound) || errors.Is(err, apperrors.ErrUserNotFound) {
			return nil, err
		}
		return nil, apperrors.NewPersistenceError("append event", err)
	}
	return created, nil
}

// ListForCase returns the full log for a case in canonical order, with view
// receipts attached. The case must exist.
func (s *EventLogService) ListForCase(ctx context.Context, caseID int64) ([]*domain.Event, error) {
	if _, err := s.caseRepo.GetByID(ctx, caseID); err != nil {
		return nil, err
	}
	return s.eventRepo.ListByCaseID(ctx, caseID)
}

// ListForCaseAfter returns a page of the log after the given cursor.
func (s *EventLogService) ListForCaseAfter(ctx context.Context, caseID, afterID int64, limit int) ([]*domain.Event, error) {
	if _, err := s.caseRepo.GetByID(ctx, caseID); err != nil {
		return nil, err
	}
	return s.eventRepo.ListByCaseIDAfter(ctx, caseID, afterID, limit)
}
