package services_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lorrc/case-collab-backend/internal/core/domain"
	apperrors "github.com/lorrc/case-collab-backend/internal/core/errors"
	"github.com/lorrc/case-collab-backend/internal/core/mocks"
	"github.com/lorrc/case-collab-backend/internal/core/ports"
	"github.com/lorrc/case-collab-backend/internal/core/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type messageServiceFixture struct {
	events      *mocks.MockEventLogService
	caseRepo    *mocks.MockCaseRepository
	presence    *mocks.MockPresenceRepository
	directory   *mocks.MockDirectoryRepository
	attachments *mocks.MockAttachmentRepository
	notifier    *mocks.MockContactNotifier
	broadcaster *mocks.MockRoomBroadcaster
	svc         ports.MessageService
}

func newMessageServiceFixture() *messageServiceFixture {
	f := &messageServiceFixture{
		events:      mocks.NewMockEventLogService(),
		caseRepo:    mocks.NewMockCaseRepository(),
		presence:    mocks.NewMockPresenceRepository(),
		directory:   mocks.NewMockDirectoryRepository(),
		attachments: mocks.NewMockAttachmentRepository(),
		notifier:    mocks.NewMockContactNotifier(),
		broadcaster: mocks.NewMockRoomBroadcaster(),
	}
	f.svc = services.NewMessageService(
		f.events, f.caseRepo, f.presence, f.directory, f.attachments,
		f.notifier, f.broadcaster, discardLogger(),
	)
	return f
}

func TestMessageService_SendMessage(t *testing.T) {
	ctx := context.Background()
	senderID := uuid.New()

	storedEvent := func(id, caseID int64) *domain.Event {
		return &domain.Event{
			ID:          id,
			CaseID:      caseID,
			ActorID:     &senderID,
			Kind:        domain.ActionMessage,
			Description: "Ada Lovelace sent a message",
			NewValue:    "hello there",
			CreatedAt:   time.Now().UTC(),
		}
	}

	t.Run("persists then broadcasts message and peer notification", func(t *testing.T) {
		f := newMessageServiceFixture()

		f.directory.On("GetDisplayName", ctx, senderID).Return("Ada Lovelace", nil)
		f.events.On("Append", ctx, mock.MatchedBy(func(p ports.AppendEventParams) bool {
			return p.CaseID == 7 && p.Kind == domain.ActionMessage && p.NewValue == "hello there"
		})).Return(storedEvent(99, 7), nil)
		f.caseRepo.On("TouchUpdatedAt", ctx, int64(7)).Return(nil)

		f.broadcaster.On("BroadcastToCase", int64(7), mock.MatchedBy(func(e domain.RoomEvent) bool {
			payload, ok := e.Payload.(domain.MessagePayload)
			return e.Type == domain.RoomNewMessage && ok &&
				payload.EventID == 99 &&
				payload.Content == "hello there" &&
				payload.SenderName == "Ada Lovelace"
		})).Return()
		f.broadcaster.On("BroadcastToCasePeers", int64(7), senderID, mock.MatchedBy(func(e domain.RoomEvent) bool {
			payload, ok := e.Payload.(domain.NotificationPayload)
			return e.Type == domain.RoomNewNotification && ok && payload.Preview == "hello there"
		})).Return()

		event, err := f.svc.SendMessage(ctx, ports.SendMessageParams{
			CaseID:     7,
			SenderID:   senderID,
			SenderRole: domain.RoleClient,
			Content:    "hello there",
		})

		require.NoError(t, err)
		assert.Equal(t, int64(99), event.ID)
		f.broadcaster.AssertExpectations(t)
		f.events.AssertExpectations(t)
	})

	t.Run("empty content rejected before any persistence", func(t *testing.T) {
		f := newMessageServiceFixture()

		_, err := f.svc.SendMessage(ctx, ports.SendMessageParams{
			CaseID:     7,
			SenderID:   senderID,
			SenderRole: domain.RoleClient,
			Content:    "   \n\t ",
		})

		assert.ErrorIs(t, err, domain.ErrContentRequired)
		f.events.AssertNotCalled(t, "Append")
		f.broadcaster.AssertNotCalled(t, "BroadcastToCase")
	})

	t.Run("oversized content rejected", func(t *testing.T) {
		f := newMessageServiceFixture()

		_, err := f.svc.SendMessage(ctx, ports.SendMessageParams{
			CaseID:     7,
			SenderID:   senderID,
			SenderRole: domain.RoleClient,
			Content:    strings.Repeat("x", domain.MaxContentLength+1),
		})

		assert.ErrorIs(t, err, domain.ErrContentTooLong)
		f.events.AssertNotCalled(t, "Append")
	})

	t.Run("append failure returns error and suppresses broadcast", func(t *testing.T) {
		f := newMessageServiceFixture()

		f.directory.On("GetDisplayName", ctx, senderID).Return("Ada Lovelace", nil)
		f.events.On("Append", ctx, mock.Anything).
			Return(nil, apperrors.NewPersistenceError("append event", errors.New("connection reset")))

		_, err := f.svc.SendMessage(ctx, ports.SendMessageParams{
			CaseID:     7,
			SenderID:   senderID,
			SenderRole: domain.RoleClient,
			Content:    "hello there",
		})

		var perr *apperrors.PersistenceError
		require.ErrorAs(t, err, &perr)
		f.broadcaster.AssertNotCalled(t, "BroadcastToCase")
		f.broadcaster.AssertNotCalled(t, "BroadcastToCasePeers")
		f.caseRepo.AssertNotCalled(t, "TouchUpdatedAt")
	})

	t.Run("touch failure is tolerated and broadcast proceeds", func(t *testing.T) {
		f := newMessageServiceFixture()

		f.directory.On("GetDisplayName", ctx, senderID).Return("Ada Lovelace", nil)
		f.events.On("Append", ctx, mock.Anything).Return(storedEvent(99, 7), nil)
		f.caseRepo.On("TouchUpdatedAt", ctx, int64(7)).Return(errors.New("lock timeout"))
		f.broadcaster.On("BroadcastToCase", int64(7), mock.Anything).Return()
		f.broadcaster.On("BroadcastToCasePeers", int64(7), senderID, mock.Anything).Return()

		event, err := f.svc.SendMessage(ctx, ports.SendMessageParams{
			CaseID:     7,
			SenderID:   senderID,
			SenderRole: domain.RoleClient,
			Content:    "hello there",
		})

		require.NoError(t, err)
		assert.Equal(t, int64(99), event.ID)
		f.broadcaster.AssertExpectations(t)
	})

	t.Run("notification preview truncated to fifty runes", func(t *testing.T) {
		f := newMessageServiceFixture()
		longContent := strings.Repeat("ё", 80)

		f.directory.On("GetDisplayName", ctx, senderID).Return("Ada Lovelace", nil)
		f.events.On("Append", ctx, mock.Anything).Return(storedEvent(99, 7), nil)
		f.caseRepo.On("TouchUpdatedAt", ctx, int64(7)).Return(nil)
		f.broadcaster.On("BroadcastToCase", int64(7), mock.Anything).Return()
		f.broadcaster.On("BroadcastToCasePeers", int64(7), senderID, mock.MatchedBy(func(e domain.RoomEvent) bool {
			payload, ok := e.Payload.(domain.NotificationPayload)
			return ok && payload.Preview == strings.Repeat("ё", 50)+"…"
		})).Return()

		_, err := f.svc.SendMessage(ctx, ports.SendMessageParams{
			CaseID:     7,
			SenderID:   senderID,
			SenderRole: domain.RoleClient,
			Content:    longContent,
		})

		require.NoError(t, err)
		f.broadcaster.AssertExpectations(t)
	})

	t.Run("directory failure falls back to role label", func(t *testing.T) {
		f := newMessageServiceFixture()

		f.directory.On("GetDisplayName", ctx, senderID).Return("", errors.New("directory down"))
		f.events.On("Append", ctx, mock.MatchedBy(func(p ports.AppendEventParams) bool {
			return p.Description == "client sent a message"
		})).Return(storedEvent(99, 7), nil)
		f.caseRepo.On("TouchUpdatedAt", ctx, int64(7)).Return(nil)
		f.broadcaster.On("BroadcastToCase", int64(7), mock.Anything).Return()
		f.broadcaster.On("BroadcastToCasePeers", int64(7), senderID, mock.Anything).Return()

		_, err := f.svc.SendMessage(ctx, ports.SendMessageParams{
			CaseID:     7,
			SenderID:   senderID,
			SenderRole: domain.RoleClient,
			Content:    "hello there",
		})

		require.NoError(t, err)
		f.events.AssertExpectations(t)
	})

	t.Run("internal flag selects internal message kind", func(t *testing.T) {
		f := newMessageServiceFixture()

		f.directory.On("GetDisplayName", ctx, senderID).Return("Grace Hopper", nil)
		f.events.On("Append", ctx, mock.MatchedBy(func(p ports.AppendEventParams) bool {
			return p.Kind == domain.ActionInternalMessage
		})).Return(&domain.Event{
			ID:        100,
			CaseID:    7,
			ActorID:   &senderID,
			Kind:      domain.ActionInternalMessage,
			NewValue:  "internal note",
			CreatedAt: time.Now().UTC(),
		}, nil)
		f.caseRepo.On("TouchUpdatedAt", ctx, int64(7)).Return(nil)
		f.broadcaster.On("BroadcastToCase", int64(7), mock.Anything).Return()
		f.broadcaster.On("BroadcastToCasePeers", int64(7), senderID, mock.Anything).Return()

		_, err := f.svc.SendMessage(ctx, ports.SendMessageParams{
			CaseID:     7,
			SenderID:   senderID,
			SenderRole: domain.RoleAgent,
			Content:    "internal note",
			IsInternal: true,
		})

		require.NoError(t, err)
		f.events.AssertExpectations(t)
	})

	t.Run("agent reply to offline client triggers email nudge", func(t *testing.T) {
		f := newMessageServiceFixture()

		f.directory.On("GetDisplayName", ctx, senderID).Return("Grace Hopper", nil)
		f.events.On("Append", ctx, mock.Anything).Return(storedEvent(99, 7), nil)
		f.caseRepo.On("TouchUpdatedAt", ctx, int64(7)).Return(nil)
		f.broadcaster.On("BroadcastToCase", int64(7), mock.Anything).Return()
		f.broadcaster.On("BroadcastToCasePeers", int64(7), senderID, mock.Anything).Return()
		f.presence.On("GetByCaseID", mock.Anything, int64(7)).Return(&domain.PresenceSession{
			CaseID:       7,
			ClientOnline: false,
		}, nil)
		f.notifier.On("Notify", mock.Anything, mock.MatchedBy(func(p ports.NotificationParams) bool {
			return p.CaseID == 7
		})).Return()

		_, err := f.svc.SendMessage(ctx, ports.SendMessageParams{
			CaseID:     7,
			SenderID:   senderID,
			SenderRole: domain.RoleAgent,
			Content:    "any update on your side?",
		})

		require.NoError(t, err)
		f.svc.Shutdown()
		f.notifier.AssertExpectations(t)
	})

	t.Run("no email nudge when client is online", func(t *testing.T) {
		f := newMessageServiceFixture()

		f.directory.On("GetDisplayName", ctx, senderID).Return("Grace Hopper", nil)
		f.events.On("Append", ctx, mock.Anything).Return(storedEvent(99, 7), nil)
		f.caseRepo.On("TouchUpdatedAt", ctx, int64(7)).Return(nil)
		f.broadcaster.On("BroadcastToCase", int64(7), mock.Anything).Return()
		f.broadcaster.On("BroadcastToCasePeers", int64(7), senderID, mock.Anything).Return()
		f.presence.On("GetByCaseID", mock.Anything, int64(7)).Return(&domain.PresenceSession{
			CaseID:       7,
			ClientOnline: true,
		}, nil)

		_, err := f.svc.SendMessage(ctx, ports.SendMessageParams{
			CaseID:     7,
			SenderID:   senderID,
			SenderRole: domain.RoleAgent,
			Content:    "any update on your side?",
		})

		require.NoError(t, err)
		f.svc.Shutdown()
		f.notifier.AssertNotCalled(t, "Notify")
	})
}
