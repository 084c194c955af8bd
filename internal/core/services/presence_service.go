package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/lorrc/case-collab-backend/internal/core/domain"
	apperrors "github.com/lorrc/case-collab-backend/internal/core/errors"
	"github.com/lorrc/case-collab-backend/internal/core/ports"
)

// PresenceService mirrors room transitions into durable PresenceSession
// rows and owns the case chat toggle. Presence is an advisory signal, not a
// correctness-critical ledger: durable failures on join/leave are logged
// and the live room carries on.
type PresenceService struct {
	presenceRepo ports.PresenceRepository
	caseRepo     ports.CaseRepository
	broadcaster  ports.RoomBroadcaster
	logger       *slog.Logger
}

var _ ports.PresenceService = (*PresenceService)(nil)

// NewPresenceService creates a new presence service.
func NewPresenceService(
	presenceRepo ports.PresenceRepository,
	caseRepo ports.CaseRepository,
	broadcaster ports.RoomBroadcaster,
	logger *slog.Logger,
) ports.PresenceService {
	return &PresenceService{
		presenceRepo: presenceRepo,
		caseRepo:     caseRepo,
		broadcaster:  broadcaster,
		logger:       logger.With("component", "presence_service"),
	}
}

// Join marks the viewer's side of the case online. Best-effort: the room
// membership already took effect; a failed upsert is a stale indicator at
// worst and is retried naturally by the next transition.
func (s *PresenceService) Join(ctx context.Context, caseID int64, viewerID uuid.UUID, role domain.ViewerRole) {
	if _, err := s.presenceRepo.SetOnline(ctx, caseID, role, true); err != nil {
		s.logger.Warn("presence upsert failed on join",
			"case_id", caseID,
			"viewer_id", viewerID,
			"role", role,
			"error", err,
		)
	}
}

// Leave marks the viewer's side of the case offline. Best-effort, like Join.
func (s *PresenceService) Leave(ctx context.Context, caseID int64, viewerID uuid.UUID, role domain.ViewerRole) {
	if _, err := s.presenceRepo.SetOnline(ctx, caseID, role, false); err != nil {
		s.logger.Warn("presence upsert failed on leave",
			"case_id", caseID,
			"viewer_id", viewerID,
			"role", role,
			"error", err,
		)
	}
}

// ToggleChatActive flips the case's live-chat flag and announces the change
// to the whole room, including the actor's other tabs. Unlike join/leave,
// the durable write is the point here, so its failure is the caller's.
func (s *PresenceService) ToggleChatActive(ctx context.Context, caseID int64, active bool, actorID uuid.UUID) error {
	if err := s.caseRepo.SetChatActive(ctx, caseID, active); err != nil {
		if errors.Is(err, apperrors.ErrCaseNotFound) {
			return err
		}
		return apperrors.NewPersistenceError("toggle chat", err)
	}

	s.broadcaster.BroadcastToCase(caseID, domain.RoomEvent{
		Type:   domain.RoomChatStatusChanged,
		CaseID: caseID,
		Payload: domain.ChatStatusPayload{
			CaseID:  caseID,
			Active:  active,
			ActorID: actorID,
		},
	})
	return nil
}

// GetSession returns the persisted presence for a case. A case whose room
// was never joined has no row; that reads as an inactive session, not an
// error.
func (s *PresenceService) GetSession(ctx context.Context, caseID int64) (*domain.PresenceSession, error) {
	session, err := s.presenceRepo.GetByCaseID(ctx, caseID)
	if err != nil {
		if errors.Is(err, apperrors.ErrSessionNotFound) {
			return &domain.PresenceSession{
				CaseID: caseID,
				Status: domain.SessionInactive,
			}, nil
		}
		return nil, err
	}
	return session, nil
}
