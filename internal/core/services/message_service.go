package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/lorrc/case-collab-backend/internal/core/domain"
	"github.com/lorrc/case-collab-backend/internal/core/ports"
)

// notificationPreviewLength is how many runes of a message survive into the
// truncated new_notification hint.
const notificationPreviewLength = 50

// MessageService implements the message broadcaster: append the event,
// touch the parent case, then fan out to the room. Persistence failure
// means no broadcast; broadcast failure never rolls back persistence.
type MessageService struct {
	events      ports.EventLogService
	caseRepo    ports.CaseRepository
	presence    ports.PresenceRepository
	directory   ports.DirectoryRepository
	attachments ports.AttachmentRepository
	notifier    ports.ContactNotifier
	broadcaster ports.RoomBroadcaster
	logger      *slog.Logger
	wg          sync.WaitGroup
}

var _ ports.MessageService = (*MessageService)(nil)

// NewMessageService creates a new message service.
func NewMessageService(
	events ports.EventLogService,
	caseRepo ports.CaseRepository,
	presence ports.PresenceRepository,
	directory ports.DirectoryRepository,
	attachments ports.AttachmentRepository,
	notifier ports.ContactNotifier,
	broadcaster ports.RoomBroadcaster,
	logger *slog.Logger,
) ports.MessageService {
	return &MessageService{
		events:      events,
		caseRepo:    caseRepo,
		presence:    presence,
		directory:   directory,
		attachments: attachments,
		notifier:    notifier,
		broadcaster: broadcaster,
		logger:      logger.With("component", "message_service"),
	}
}

// SendMessage persists a chat message as an event and fans it out to the
// case's room: the hydrated payload to everyone, a truncated notification
// hint to peers other than the sender. Live delivery is best-effort; the
// persisted event is the ground truth receivers reconcile against.
func (s *MessageService) SendMessage(ctx context.Context, params ports.SendMessageParams) (*domain.Event, error) {
	content := strings.TrimSpace(params.Content)
	if content == "" {
		return nil, domain.ErrContentRequired
	}
	if utf8.RuneCountInString(content) > domain.MaxContentLength {
		return nil, domain.ErrContentTooLong
	}

	senderName := s.resolveSenderName(ctx, params)

	kind := domain.ActionMessage
	if params.IsInternal {
		kind = domain.ActionInternalMessage
	}

	// 1. Append the event. Failure here is the caller's problem: the
	// message did not happen and nothing is broadcast.
	senderID := params.SenderID
	event, err := s.events.Append(ctx, ports.AppendEventParams{
		CaseID:      params.CaseID,
		ActorID:     &senderID,
		Kind:        kind,
		Description: fmt.Sprintf("%s sent a message", senderName),
		NewValue:    content,
	})
	if err != nil {
		return nil, err
	}

	// 2. Bump the case's activity timestamp. This step tolerates
	// independent failure: the event is already durable.
	if err := s.caseRepo.TouchUpdatedAt(ctx, params.CaseID); err != nil {
		s.logger.Warn("failed to touch case after message",
			"case_id", params.CaseID,
			"event_id", event.ID,
			"error", err,
		)
	}

	// 3. Fan out the hydrated message to every room member.
	payload := domain.MessagePayload{
		EventID:     event.ID,
		CaseID:      event.CaseID,
		SenderID:    params.SenderID,
		SenderName:  senderName,
		SenderRole:  params.SenderRole,
		Content:     content,
		IsInternal:  params.IsInternal,
		Attachments: s.resolveAttachments(ctx, params),
		CreatedAt:   event.CreatedAt,
	}
	s.broadcaster.BroadcastToCase(params.CaseID, domain.RoomEvent{
		Type:    domain.RoomNewMessage,
		CaseID:  params.CaseID,
		Payload: payload,
	})

	// 4. Truncated toast/badge hint for everyone but the sender.
	s.broadcaster.BroadcastToCasePeers(params.CaseID, params.SenderID, domain.RoomEvent{
		Type:   domain.RoomNewNotification,
		CaseID: params.CaseID,
		Payload: domain.NotificationPayload{
			CaseID:     params.CaseID,
			EventID:    event.ID,
			SenderID:   params.SenderID,
			SenderName: senderName,
			Preview:    truncateContent(content, notificationPreviewLength),
		},
	})

	// 5. If an agent wrote to an offline requester, nudge them by email.
	if !params.IsInternal && params.SenderRole == domain.RoleAgent {
		s.notifyOfflineRequester(params.CaseID, senderName)
	}

	return event, nil
}

// Shutdown waits for in-flight background notifications to drain.
func (s *MessageService) Shutdown() {
	s.wg.Wait()
}

// resolveSenderName looks up the sender's display name. Directory failures
// must not block a send; the role label stands in.
func (s *MessageService) resolveSenderName(ctx context.Context, params ports.SendMessageParams) string {
	name, err := s.directory.GetDisplayName(ctx, params.SenderID)
	if err != nil || name == "" {
		s.logger.Warn("failed to resolve sender display name",
			"sender_id", params.SenderID,
			"error", err,
		)
		return string(params.SenderRole)
	}
	return name
}

// resolveAttachments hydrates the referenced attachments for the broadcast
// payload. A lookup failure degrades to an empty list; the references are
// still durable alongside the event.
func (s *MessageService) resolveAttachments(ctx context.Context, params ports.SendMessageParams) []domain.Attachment {
	if len(params.AttachmentIDs) == 0 {
		return nil
	}

	all, err := s.attachments.ListByCaseID(ctx, params.CaseID)
	if err != nil {
		s.logger.Warn("failed to hydrate attachments for broadcast",
			"case_id", params.CaseID,
			"error", err,
		)
		return nil
	}

	wanted := make(map[int64]bool, len(params.AttachmentIDs))
	for _, id := range params.AttachmentIDs {
		wanted[id] = true
	}

	var matched []domain.Attachment
	for _, attachment := range all {
		if wanted[attachment.ID] {
			matched = append(matched, attachment)
		}
	}
	return matched
}

// notifyOfflineRequester emails the case requester when no client transport
// is attached. Runs in the background; send already succeeded.
func (s *MessageService) notifyOfflineRequester(caseID int64, senderName string) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		// The originating request may already be done.
		ctx := context.Background()

		session, err := s.presence.GetByCaseID(ctx, caseID)
		if err == nil && session.ClientOnline {
			return // requester is watching the room live
		}

		s.notifier.Notify(ctx, ports.NotificationParams{
			CaseID:  caseID,
			Subject: fmt.Sprintf("New reply on your case #%d", caseID),
			Message: fmt.Sprintf("%s replied to your case while you were away.", senderName),
		})
	}()
}

// truncateContent shortens content to max runes for the notification hint.
func truncateContent(content string, max int) string {
	runes := []rune(content)
	if len(runes) <= max {
		return content
	}
	return string(runes[:max]) + "…"
}
