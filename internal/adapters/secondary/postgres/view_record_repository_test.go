package postgres

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/lorrc/case-collab-backend/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestViewRecordRepository_Upsert(t *testing.T) {
	ctx := context.Background()
	eventRepo := NewEventRepository(testPool)
	viewRepo := NewViewRecordRepository(testPool)

	requesterID := seedUser(t, "Receipt Requester", "", "client")
	agentID := seedUser(t, "Receipt Agent", "support", "agent")
	caseID := seedCase(t, requesterID, "receipt case")

	event, err := eventRepo.Create(ctx, &domain.Event{
		CaseID:      caseID,
		ActorID:     &requesterID,
		Kind:        domain.ActionMessage,
		Description: "Receipt Requester sent a message",
		NewValue:    "did you see this?",
	})
	require.NoError(t, err)

	// 1. First mark inserts a row
	inserted, err := viewRepo.Upsert(ctx, &domain.ViewRecord{
		EventID:    event.ID,
		ViewerID:   agentID,
		ViewerType: domain.ViewerInternal,
		Department: "support",
		Channel:    "web",
	})
	require.NoError(t, err)
	assert.True(t, inserted)

	var firstViewedAt pgtype.Timestamptz
	err = testPool.QueryRow(ctx,
		`SELECT viewed_at FROM event_views WHERE event_id = $1 AND viewer_id = $2`,
		event.ID, agentID,
	).Scan(&firstViewedAt)
	require.NoError(t, err)

	// 2. Re-marking is a silent no-op: no error, no new row, viewed_at frozen
	inserted, err = viewRepo.Upsert(ctx, &domain.ViewRecord{
		EventID:    event.ID,
		ViewerID:   agentID,
		ViewerType: domain.ViewerInternal,
		Department: "billing", // even with different attributes
		Channel:    "mobile",
	})
	require.NoError(t, err)
	assert.False(t, inserted)

	var (
		count          int
		secondViewedAt pgtype.Timestamptz
		department     pgtype.Text
	)
	err = testPool.QueryRow(ctx,
		`SELECT count(*), min(viewed_at), min(viewer_department)
		 FROM event_views WHERE event_id = $1 AND viewer_id = $2`,
		event.ID, agentID,
	).Scan(&count, &secondViewedAt, &department)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, firstViewedAt.Time, secondViewedAt.Time)
	assert.Equal(t, "support", department.String)

	// 3. A different viewer gets their own receipt on the same event
	inserted, err = viewRepo.Upsert(ctx, &domain.ViewRecord{
		EventID:    event.ID,
		ViewerID:   requesterID,
		ViewerType: domain.ViewerExternal,
		Channel:    "web",
	})
	require.NoError(t, err)
	assert.True(t, inserted)
}

func TestViewRecordRepository_UpsertUnknownEvent(t *testing.T) {
	ctx := context.Background()
	viewRepo := NewViewRecordRepository(testPool)

	agentID := seedUser(t, "Lost Agent", "support", "agent")

	_, err := viewRepo.Upsert(ctx, &domain.ViewRecord{
		EventID:    999999999,
		ViewerID:   agentID,
		ViewerType: domain.ViewerInternal,
		Channel:    "web",
	})
	assert.Error(t, err, "foreign key violation expected for unknown event")
}
