package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lorrc/case-collab-backend/internal/core/domain"
	apperrors "github.com/lorrc/case-collab-backend/internal/core/errors"
	"github.com/lorrc/case-collab-backend/internal/core/mocks"
	"github.com/lorrc/case-collab-backend/internal/core/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimelineService_GetTimeline(t *testing.T) {
	ctx := context.Background()
	createdAt := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	actorID := uuid.New()

	t.Run("merges log and attachments into display order", func(t *testing.T) {
		events := mocks.NewMockEventLogService()
		caseRepo := mocks.NewMockCaseRepository()
		attachments := mocks.NewMockAttachmentRepository()
		svc := services.NewTimelineService(events, caseRepo, attachments)

		caseRepo.On("GetByID", ctx, int64(7)).Return(&domain.Case{
			ID:        7,
			Subject:   "printer on fire",
			CreatedAt: createdAt,
		}, nil)
		events.On("ListForCase", ctx, int64(7)).Return([]*domain.Event{
			{
				ID:          1,
				CaseID:      7,
				ActorID:     &actorID,
				Kind:        domain.ActionMessage,
				Description: "Ada sent a message",
				NewValue:    "see attached",
				CreatedAt:   createdAt.Add(time.Minute),
			},
		}, nil)
		attachments.On("ListByCaseID", ctx, int64(7)).Return([]domain.Attachment{
			{ID: 10, CaseID: 7, FileName: "report.pdf", CreatedAt: createdAt.Add(90 * time.Second)},
		}, nil)

		timeline, err := svc.GetTimeline(ctx, 7)

		require.NoError(t, err)
		require.Len(t, timeline, 1)
		require.Len(t, timeline[0].Attachments, 1)
		assert.Equal(t, "report.pdf", timeline[0].Attachments[0].FileName)
	})

	t.Run("initial description echo is filtered out", func(t *testing.T) {
		events := mocks.NewMockEventLogService()
		caseRepo := mocks.NewMockCaseRepository()
		attachments := mocks.NewMockAttachmentRepository()
		svc := services.NewTimelineService(events, caseRepo, attachments)

		caseRepo.On("GetByID", ctx, int64(7)).Return(&domain.Case{
			ID:        7,
			CreatedAt: createdAt,
		}, nil)
		events.On("ListForCase", ctx, int64(7)).Return([]*domain.Event{
			{
				ID:          1,
				CaseID:      7,
				ActorID:     &actorID,
				Kind:        domain.ActionMessage,
				Description: "Ada opened the case with the description",
				NewValue:    "printer on fire",
				CreatedAt:   createdAt,
			},
			{
				ID:          2,
				CaseID:      7,
				ActorID:     &actorID,
				Kind:        domain.ActionMessage,
				Description: "Ada sent a message",
				NewValue:    "still burning",
				CreatedAt:   createdAt.Add(time.Hour),
			},
		}, nil)
		attachments.On("ListByCaseID", ctx, int64(7)).Return(nil, nil)

		timeline, err := svc.GetTimeline(ctx, 7)

		require.NoError(t, err)
		require.Len(t, timeline, 1)
		assert.Equal(t, int64(2), timeline[0].ID)
	})

	t.Run("unknown case surfaces not found", func(t *testing.T) {
		events := mocks.NewMockEventLogService()
		caseRepo := mocks.NewMockCaseRepository()
		attachments := mocks.NewMockAttachmentRepository()
		svc := services.NewTimelineService(events, caseRepo, attachments)

		caseRepo.On("GetByID", ctx, int64(404)).Return(nil, apperrors.ErrCaseNotFound)

		_, err := svc.GetTimeline(ctx, 404)

		assert.ErrorIs(t, err, apperrors.ErrCaseNotFound)
		events.AssertNotCalled(t, "ListForCase")
	})
}
