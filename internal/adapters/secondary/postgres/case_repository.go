package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lorrc/case-collab-backend/internal/core/domain"
	apperrors "github.com/lorrc/case-collab-backend/internal/core/errors"
	"github.com/lorrc/case-collab-backend/internal/core/ports"
	"github.com/lorrc/case-collab-backend/internal/core/utils"
)

// CaseRepository is the secondary adapter onto the case table. The case
// lifecycle is owned elsewhere; this adapter reads for display and writes
// only the activity timestamp and the chat flag.
type CaseRepository struct {
	pool *pgxpool.Pool
}

var _ ports.CaseRepository = (*CaseRepository)(nil)

// NewCaseRepository creates a new case repository.
func NewCaseRepository(pool *pgxpool.Pool) ports.CaseRepository {
	return &CaseRepository{pool: pool}
}

const getCaseQuery = `
SELECT c.id, c.subject, c.description, c.requester_id, u.full_name, u.email, c.chat_active, c.created_at, c.updated_at
FROM cases c
JOIN users u ON u.id = c.requester_id
WHERE c.id = $1`

// GetByID retrieves a single case with its requester's contact data.
func (r *CaseRepository) GetByID(ctx context.Context, id int64) (*domain.Case, error) {
	db := GetDBTX(ctx, r.pool)

	var (
		c           domain.Case
		description pgtype.Text
		requesterID pgtype.UUID
		createdAt   pgtype.Timestamptz
		updatedAt   pgtype.Timestamptz
	)
	err := db.QueryRow(ctx, getCaseQuery, id).Scan(
		&c.ID,
		&c.Subject,
		&description,
		&requesterID,
		&c.RequesterName,
		&c.RequesterEmail,
		&c.ChatActive,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrCaseNotFound
		}
		return nil, err
	}

	c.Description = utils.FromString(description)
	c.RequesterID = requesterID.Bytes
	c.CreatedAt = createdAt.Time
	if updatedAt.Valid {
		c.UpdatedAt = &updatedAt.Time
	}
	return &c, nil
}

const touchCaseQuery = `UPDATE cases SET updated_at = now() WHERE id = $1`

// TouchUpdatedAt bumps the case's activity timestamp.
func (r *CaseRepository) TouchUpdatedAt(ctx context.Context, id int64) error {
	db := GetDBTX(ctx, r.pool)

	tag, err := db.Exec(ctx, touchCaseQuery, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrCaseNotFound
	}
	return nil
}

const setChatActiveQuery = `UPDATE cases SET chat_active = $2, updated_at = now() WHERE id = $1`

// SetChatActive flips the case's live-chat flag.
func (r *CaseRepository) SetChatActive(ctx context.Context, id int64, active bool) error {
	db := GetDBTX(ctx, r.pool)

	tag, err := db.Exec(ctx, setChatActiveQuery, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrCaseNotFound
	}
	return nil
}
