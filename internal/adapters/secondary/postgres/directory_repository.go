package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	apperrors "github.com/lorrc/case-collab-backend/internal/core/errors"
	"github.com/lorrc/case-collab-backend/internal/core/ports"
	"github.com/lorrc/case-collab-backend/internal/core/utils"
)

// DirectoryRepository resolves display data from the user directory. The
// directory itself is owned by the identity system; this adapter only reads.
type DirectoryRepository struct {
	pool *pgxpool.Pool
}

var _ ports.DirectoryRepository = (*DirectoryRepository)(nil)

// NewDirectoryRepository creates a new directory repository.
func NewDirectoryRepository(pool *pgxpool.Pool) ports.DirectoryRepository {
	return &DirectoryRepository{pool: pool}
}

const getDisplayNameQuery = `SELECT full_name FROM users WHERE id = $1`

// GetDisplayName returns the user's display name.
func (r *DirectoryRepository) GetDisplayName(ctx context.Context, actorID uuid.UUID) (string, error) {
	db := GetDBTX(ctx, r.pool)

	var name string
	err := db.QueryRow(ctx, getDisplayNameQuery, pgtype.UUID{Bytes: actorID, Valid: true}).Scan(&name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", apperrors.ErrUserNotFound
		}
		return "", err
	}
	return name, nil
}

const getDepartmentQuery = `SELECT department FROM users WHERE id = $1`

// GetDepartment returns the user's current organizational assignment.
func (r *DirectoryRepository) GetDepartment(ctx context.Context, actorID uuid.UUID) (string, error) {
	db := GetDBTX(ctx, r.pool)

	var department pgtype.Text
	err := db.QueryRow(ctx, getDepartmentQuery, pgtype.UUID{Bytes: actorID, Valid: true}).Scan(&department)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", apperrors.ErrUserNotFound
		}
		return "", err
	}
	return utils.FromString(department), nil
}
