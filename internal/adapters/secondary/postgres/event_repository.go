package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lorrc/case-collab-backend/internal/core/domain"
	apperrors "github.com/lorrc/case-collab-backend/internal/core/errors"
	"github.com/lorrc/case-collab-backend/internal/core/ports"
	"github.com/lorrc/case-collab-backend/internal/core/utils"
)

// EventRepository is the secondary adapter for the append-only case event
// log. Rows are only ever inserted; the canonical read order is created_at
// ascending with id breaking ties.
type EventRepository struct {
	pool *pgxpool.Pool
}

var _ ports.EventRepository = (*EventRepository)(nil)

// NewEventRepository creates a new event repository.
func NewEventRepository(pool *pgxpool.Pool) ports.EventRepository {
	return &EventRepository{pool: pool}
}

const createEventQuery = `
INSERT INTO case_events (case_id, actor_id, kind, description, old_value, new_value, comment)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id, case_id, actor_id, kind, description, old_value, new_value, comment, created_at`

// Create inserts the event and returns it with the store-assigned id and
// created_at.
func (r *EventRepository) Create(ctx context.Context, event *domain.Event) (*domain.Event, error) {
	db := GetDBTX(ctx, r.pool)

	actorID := pgtype.UUID{}
	if event.ActorID != nil {
		actorID = pgtype.UUID{Bytes: *event.ActorID, Valid: true}
	}

	row := db.QueryRow(ctx, createEventQuery,
		event.CaseID,
		actorID,
		string(event.Kind),
		event.Description,
		utils.ToString(event.OldValue),
		utils.ToString(event.NewValue),
		utils.ToString(event.Comment),
	)
	created, err := scanEvent(row)
	if err != nil {
		// Foreign key violations: the table references both cases and
		// users, and the two are different failures to the caller.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			if pgErr.ConstraintName == "case_events_actor_id_fkey" {
				return nil, apperrors.ErrUserNotFound
			}
			return nil, apperrors.ErrCaseNotFound
		}
		return nil, err
	}
	return created, nil
}

const listEventsQuery = `
SELECT id, case_id, actor_id, kind, description, old_value, new_value, comment, created_at
FROM case_events
WHERE case_id = $1
ORDER BY created_at, id`

// ListByCaseID returns all events for a case in canonical order, with view
// receipts attached.
func (r *EventRepository) ListByCaseID(ctx context.Context, caseID int64) ([]*domain.Event, error) {
	db := GetDBTX(ctx, r.pool)

	rows, err := db.Query(ctx, listEventsQuery, caseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events, err := collectEvents(rows)
	if err != nil {
		return nil, err
	}
	if err := r.attachViews(ctx, caseID, events); err != nil {
		return nil, err
	}
	return events, nil
}

const listEventsAfterQuery = `
SELECT id, case_id, actor_id, kind, description, old_value, new_value, comment, created_at
FROM case_events
WHERE case_id = $1 AND id > $2
ORDER BY created_at, id
LIMIT $3`

// ListByCaseIDAfter returns up to limit events after the cursor.
func (r *EventRepository) ListByCaseIDAfter(ctx context.Context, caseID, afterID int64, limit int) ([]*domain.Event, error) {
	db := GetDBTX(ctx, r.pool)

	rows, err := db.Query(ctx, listEventsAfterQuery, caseID, afterID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events, err := collectEvents(rows)
	if err != nil {
		return nil, err
	}
	if err := r.attachViews(ctx, caseID, events); err != nil {
		return nil, err
	}
	return events, nil
}

const listViewsForCaseQuery = `
SELECT v.event_id, v.viewer_id, v.viewer_type, v.viewer_department, v.access_channel, v.viewed_at
FROM event_views v
JOIN case_events e ON e.id = v.event_id
WHERE e.case_id = $1
ORDER BY v.viewed_at`

// attachViews loads all receipts for the case in one query and distributes
// them onto the already-loaded events.
func (r *EventRepository) attachViews(ctx context.Context, caseID int64, events []*domain.Event) error {
	if len(events) == 0 {
		return nil
	}

	db := GetDBTX(ctx, r.pool)
	rows, err := db.Query(ctx, listViewsForCaseQuery, caseID)
	if err != nil {
		return err
	}
	defer rows.Close()

	byEvent := make(map[int64][]domain.ViewRecord)
	for rows.Next() {
		var (
			record     domain.ViewRecord
			viewerID   pgtype.UUID
			viewerType string
			department pgtype.Text
			viewedAt   pgtype.Timestamptz
		)
		if err := rows.Scan(&record.EventID, &viewerID, &viewerType, &department, &record.Channel, &viewedAt); err != nil {
			return err
		}
		record.ViewerID = viewerID.Bytes
		record.ViewerType = domain.ViewerType(viewerType)
		record.Department = utils.FromString(department)
		record.ViewedAt = viewedAt.Time
		byEvent[record.EventID] = append(byEvent[record.EventID], record)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, event := range events {
		event.Views = byEvent[event.ID]
	}
	return nil
}

// rowScanner matches both pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEvent(row rowScanner) (*domain.Event, error) {
	var (
		event     domain.Event
		actorID   pgtype.UUID
		kind      string
		oldValue  pgtype.Text
		newValue  pgtype.Text
		comment   pgtype.Text
		createdAt pgtype.Timestamptz
	)
	if err := row.Scan(
		&event.ID,
		&event.CaseID,
		&actorID,
		&kind,
		&event.Description,
		&oldValue,
		&newValue,
		&comment,
		&createdAt,
	); err != nil {
		return nil, err
	}

	if actorID.Valid {
		id := uuid.UUID(actorID.Bytes)
		event.ActorID = &id
	}
	event.Kind = domain.ActionKind(kind)
	event.OldValue = utils.FromString(oldValue)
	event.NewValue = utils.FromString(newValue)
	event.Comment = utils.FromString(comment)
	event.CreatedAt = createdAt.Time

	return &event, nil
}

func collectEvents(rows interface {
	rowScanner
	Next() bool
	Err() error
}) ([]*domain.Event, error) {
	var events []*domain.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}
