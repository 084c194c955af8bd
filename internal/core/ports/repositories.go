package ports

import (
	"context"

	"github.com/google/uuid"
	"github.com/lorrc/case-collab-backend/internal/core/domain"
)

// EventRepository is the single choke point for appending and reading the
// append-only case event log.
type EventRepository interface {
	// Create inserts the event and returns it with the store-assigned id
	// and created_at.
	Create(ctx context.Context, event *domain.Event) (*domain.Event, error)

	// ListByCaseID returns all events for a case ordered by created_at
	// ascending (ties broken by id), with ViewRecords populated.
	ListByCaseID(ctx context.Context, caseID int64) ([]*domain.Event, error)

	// ListByCaseIDAfter returns up to limit events with id greater than
	// afterID, in the same order as ListByCaseID.
	ListByCaseIDAfter(ctx context.Context, caseID, afterID int64, limit int) ([]*domain.Event, error)
}

// ViewRecordRepository persists first-view receipts.
type ViewRecordRepository interface {
	// Upsert inserts the record unless one already exists for the
	// (event, viewer) pair. The returned bool reports whether a row was
	// inserted; a conflict is not an error and never moves viewed_at.
	Upsert(ctx context.Context, record *domain.ViewRecord) (bool, error)
}

// PresenceRepository mirrors room membership into durable sessions.
type PresenceRepository interface {
	// SetOnline flips the flag for the given side of the case, creating the
	// session row lazily on first use. Going online also marks the session
	// active; going offline leaves the status untouched. last_activity is
	// bumped on every transition.
	SetOnline(ctx context.Context, caseID int64, role domain.ViewerRole, online bool) (*domain.PresenceSession, error)

	// GetByCaseID returns the session row, or ErrSessionNotFound when no
	// join has ever happened for the case.
	GetByCaseID(ctx context.Context, caseID int64) (*domain.PresenceSession, error)
}

// CaseRepository is the narrow interface onto the externally-owned case
// record: reads for display plus the two writes this core is allowed.
type CaseRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Case, error)
	TouchUpdatedAt(ctx context.Context, id int64) error
	SetChatActive(ctx context.Context, id int64, active bool) error
}

// AttachmentRepository reads attachment metadata for timeline matching.
type AttachmentRepository interface {
	ListByCaseID(ctx context.Context, caseID int64) ([]domain.Attachment, error)
}

// DirectoryRepository resolves actor display data from the external actor
// directory.
type DirectoryRepository interface {
	GetDisplayName(ctx context.Context, actorID uuid.UUID) (string, error)
	// GetDepartment returns the actor's current organizational assignment,
	// used as a point-in-time snapshot on view receipts.
	GetDepartment(ctx context.Context, actorID uuid.UUID) (string, error)
}
