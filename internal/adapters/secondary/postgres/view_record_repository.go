package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lorrc/case-collab-backend/internal/core/domain"
	"github.com/lorrc/case-collab-backend/internal/core/ports"
	"github.com/lorrc/case-collab-backend/internal/core/utils"
)

// ViewRecordRepository is the secondary adapter for first-view receipts.
type ViewRecordRepository struct {
	pool *pgxpool.Pool
}

var _ ports.ViewRecordRepository = (*ViewRecordRepository)(nil)

// NewViewRecordRepository creates a new view record repository.
func NewViewRecordRepository(pool *pgxpool.Pool) ports.ViewRecordRepository {
	return &ViewRecordRepository{pool: pool}
}

const upsertViewQuery = `
INSERT INTO event_views (event_id, viewer_id, viewer_type, viewer_department, access_channel)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (event_id, viewer_id) DO NOTHING`

// Upsert inserts the receipt unless one exists for the (event, viewer)
// pair. DO NOTHING keeps the original viewed_at; the returned bool reports
// whether a row was actually inserted.
func (r *ViewRecordRepository) Upsert(ctx context.Context, record *domain.ViewRecord) (bool, error) {
	db := GetDBTX(ctx, r.pool)

	tag, err := db.Exec(ctx, upsertViewQuery,
		record.EventID,
		pgtype.UUID{Bytes: record.ViewerID, Valid: true},
		string(record.ViewerType),
		utils.ToString(record.Department),
		record.Channel,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
