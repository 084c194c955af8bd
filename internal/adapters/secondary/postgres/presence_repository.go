package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lorrc/case-collab-backend/internal/core/domain"
	apperrors "github.com/lorrc/case-collab-backend/internal/core/errors"
	"github.com/lorrc/case-collab-backend/internal/core/ports"
)

// PresenceRepository is the secondary adapter for durable presence
// sessions. One row per case, created lazily on the first transition.
type PresenceRepository struct {
	pool *pgxpool.Pool
}

var _ ports.PresenceRepository = (*PresenceRepository)(nil)

// NewPresenceRepository creates a new presence repository.
func NewPresenceRepository(pool *pgxpool.Pool) ports.PresenceRepository {
	return &PresenceRepository{pool: pool}
}

// setOnlineQuery flips one side's flag. Going online also promotes the
// session to active; going offline leaves the status as it was, so a
// session that ever went live stays marked that way.
const setOnlineQuery = `
INSERT INTO presence_sessions (case_id, %[1]s, status, last_activity)
VALUES ($1, $2, CASE WHEN $2 THEN 'active' ELSE 'inactive' END, now())
ON CONFLICT (case_id) DO UPDATE SET
    %[1]s = $2,
    status = CASE WHEN $2 THEN 'active' ELSE presence_sessions.status END,
    last_activity = now()
RETURNING case_id, client_online, agent_online, status, last_activity`

// SetOnline flips the flag for the given side of the case and bumps
// last_activity.
func (r *PresenceRepository) SetOnline(ctx context.Context, caseID int64, role domain.ViewerRole, online bool) (*domain.PresenceSession, error) {
	column := "client_online"
	if role == domain.RoleAgent {
		column = "agent_online"
	}

	db := GetDBTX(ctx, r.pool)
	row := db.QueryRow(ctx, fmt.Sprintf(setOnlineQuery, column), caseID, online)
	return scanPresenceSession(row)
}

const getSessionQuery = `
SELECT case_id, client_online, agent_online, status, last_activity
FROM presence_sessions
WHERE case_id = $1`

// GetByCaseID returns the session row, or ErrSessionNotFound when no join
// has ever happened for the case.
func (r *PresenceRepository) GetByCaseID(ctx context.Context, caseID int64) (*domain.PresenceSession, error) {
	db := GetDBTX(ctx, r.pool)

	session, err := scanPresenceSession(db.QueryRow(ctx, getSessionQuery, caseID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrSessionNotFound
		}
		return nil, err
	}
	return session, nil
}

func scanPresenceSession(row rowScanner) (*domain.PresenceSession, error) {
	var (
		session      domain.PresenceSession
		status       string
		lastActivity pgtype.Timestamptz
	)
	if err := row.Scan(
		&session.CaseID,
		&session.ClientOnline,
		&session.AgentOnline,
		&status,
		&lastActivity,
	); err != nil {
		return nil, err
	}
	session.Status = domain.SessionStatus(status)
	session.LastActivity = lastActivity.Time
	return &session, nil
}
