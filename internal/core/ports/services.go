package ports

import (
	"context"

	"github.com/google/uuid"
	"github.com/lorrc/case-collab-backend/internal/core/domain"
)

// AppendEventParams defines the input for appending to a case's event log.
type AppendEventParams struct {
	CaseID      int64
	ActorID     *uuid.UUID
	Kind        domain.ActionKind
	Description string
	OldValue    string
	NewValue    string
	Comment     string
}

// EventLogService defines the port for the append-only case event log.
type EventLogService interface {
	Append(ctx context.Context, params AppendEventParams) (*domain.Event, error)
	ListForCase(ctx context.Context, caseID int64) ([]*domain.Event, error)
	ListForCaseAfter(ctx context.Context, caseID, afterID int64, limit int) ([]*domain.Event, error)
}

// SendMessageParams defines the input for sending a chat message on a case.
type SendMessageParams struct {
	CaseID        int64
	SenderID      uuid.UUID
	SenderRole    domain.ViewerRole
	Content       string
	IsInternal    bool
	AttachmentIDs []int64
}

// MessageService defines the port for the message broadcaster: persist
// first, then fan out.
type MessageService interface {
	SendMessage(ctx context.Context, params SendMessageParams) (*domain.Event, error)
	Shutdown()
}

// PresenceService defines the port for durable presence mirroring and the
// case chat toggle. Join and Leave are best-effort: a storage failure is
// logged, never surfaced, so transport state is not blocked on storage.
type PresenceService interface {
	Join(ctx context.Context, caseID int64, viewerID uuid.UUID, role domain.ViewerRole)
	Leave(ctx context.Context, caseID int64, viewerID uuid.UUID, role domain.ViewerRole)
	ToggleChatActive(ctx context.Context, caseID int64, active bool, actorID uuid.UUID) error
	GetSession(ctx context.Context, caseID int64) (*domain.PresenceSession, error)
}

// MarkViewedParams defines the input for recording a view receipt.
type MarkViewedParams struct {
	EventID    int64
	ViewerID   uuid.UUID
	ViewerType domain.ViewerType
	Channel    string
}

// ViewTracker defines the port for first-view receipts. Marking is
// idempotent: a duplicate is success.
type ViewTracker interface {
	MarkViewed(ctx context.Context, params MarkViewedParams) error
}

// TimelineService defines the port for the reconciled, display-ready view
// of a case's history.
type TimelineService interface {
	GetTimeline(ctx context.Context, caseID int64) ([]domain.DisplayEvent, error)
}

// RoomBroadcaster defines the port for best-effort real-time fan-out to a
// case's room. Implementations must never block the caller on a slow peer.
type RoomBroadcaster interface {
	// BroadcastToCase delivers the event to every transport in the room.
	BroadcastToCase(caseID int64, event domain.RoomEvent)
	// BroadcastToCasePeers delivers the event to every transport in the
	// room except those belonging to exceptViewerID.
	BroadcastToCasePeers(caseID int64, exceptViewerID uuid.UUID, event domain.RoomEvent)
}

// NotificationParams defines the input for an out-of-band contact hint.
type NotificationParams struct {
	CaseID  int64
	Subject string
	Message string
}

// ContactNotifier defines the port for reaching the case requester outside
// the live room, e.g. when a message arrives while they are offline.
type ContactNotifier interface {
	Notify(ctx context.Context, params NotificationParams)
}

// TransactionManager defines the port for running atomic operations.
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
