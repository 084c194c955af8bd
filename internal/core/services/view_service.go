package services

import (
	"context"
	"log/slog"

	"github.com/lorrc/case-collab-backend/internal/core/domain"
	apperrors "github.com/lorrc/case-collab-backend/internal/core/errors"
	"github.com/lorrc/case-collab-backend/internal/core/ports"
)

// ViewService records first-view receipts. Marking is idempotent: the
// store keeps at most one record per (event, viewer) and a conflict is
// reported to the caller as success.
type ViewService struct {
	viewRepo  ports.ViewRecordRepository
	directory ports.DirectoryRepository
	logger    *slog.Logger
}

var _ ports.ViewTracker = (*ViewService)(nil)

// NewViewService creates a new view tracker.
func NewViewService(
	viewRepo ports.ViewRecordRepository,
	directory ports.DirectoryRepository,
	logger *slog.Logger,
) ports.ViewTracker {
	return &ViewService{
		viewRepo:  viewRepo,
		directory: directory,
		logger:    logger.With("component", "view_tracker"),
	}
}

// MarkViewed upserts a receipt for the (event, viewer) pair. For internal
// viewers the department is snapshotted from their current assignment; the
// snapshot is not maintained afterwards.
func (s *ViewService) MarkViewed(ctx context.Context, params ports.MarkViewedParams) error {
	if !params.ViewerType.Valid() {
		return apperrors.ErrInvalidViewerType
	}

	department := ""
	if params.ViewerType == domain.ViewerInternal {
		dept, err := s.directory.GetDepartment(ctx, params.ViewerID)
		if err != nil {
			// The receipt matters more than the snapshot.
			s.logger.Warn("failed to snapshot viewer department",
				"viewer_id", params.ViewerID,
				"error", err,
			)
		} else {
			department = dept
		}
	}

	inserted, err := s.viewRepo.Upsert(ctx, &domain.ViewRecord{
		EventID:    params.EventID,
		ViewerID:   params.ViewerID,
		ViewerType: params.ViewerType,
		Department: department,
		Channel:    params.Channel,
	})
	if err != nil {
		return apperrors.NewPersistenceError("mark viewed", err)
	}

	if !inserted {
		s.logger.Debug("duplicate view ignored",
			"event_id", params.EventID,
			"viewer_id", params.ViewerID,
		)
	}
	return nil
}
