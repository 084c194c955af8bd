package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lorrc/case-collab-backend/internal/core/domain"
	"github.com/lorrc/case-collab-backend/internal/core/ports"
	"github.com/lorrc/case-collab-backend/internal/core/utils"
)

// AttachmentRepository is the secondary adapter for attachment metadata.
// Blobs live in an external store.
type AttachmentRepository struct {
	pool *pgxpool.Pool
}

var _ ports.AttachmentRepository = (*AttachmentRepository)(nil)

// NewAttachmentRepository creates a new attachment repository.
func NewAttachmentRepository(pool *pgxpool.Pool) ports.AttachmentRepository {
	return &AttachmentRepository{pool: pool}
}

const listAttachmentsQuery = `
SELECT id, case_id, file_name, content_type, byte_size, uploader_id, created_at
FROM attachments
WHERE case_id = $1
ORDER BY created_at, id`

// ListByCaseID returns all attachment metadata for a case in upload order.
func (r *AttachmentRepository) ListByCaseID(ctx context.Context, caseID int64) ([]domain.Attachment, error) {
	db := GetDBTX(ctx, r.pool)

	rows, err := db.Query(ctx, listAttachmentsQuery, caseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attachments []domain.Attachment
	for rows.Next() {
		var (
			a           domain.Attachment
			contentType pgtype.Text
			uploaderID  pgtype.UUID
			createdAt   pgtype.Timestamptz
		)
		if err := rows.Scan(&a.ID, &a.CaseID, &a.FileName, &contentType, &a.ByteSize, &uploaderID, &createdAt); err != nil {
			return nil, err
		}
		a.ContentType = utils.FromString(contentType)
		if uploaderID.Valid {
			id := uuid.UUID(uploaderID.Bytes)
			a.UploaderID = &id
		}
		a.CreatedAt = createdAt.Time
		attachments = append(attachments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return attachments, nil
}
