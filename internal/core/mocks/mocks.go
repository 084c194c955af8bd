package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/lorrc/case-collab-backend/internal/core/domain"
	"github.com/lorrc/case-collab-backend/internal/core/ports"
	"github.com/stretchr/testify/mock"
)

// MockEventRepository is a mock implementation of ports.EventRepository
type MockEventRepository struct {
	mock.Mock
}

func NewMockEventRepository() *MockEventRepository {
	return &MockEventRepository{}
}

func (m *MockEventRepository) Create(ctx context.Context, event *domain.Event) (*domain.Event, error) {
	args := m.Called(ctx, event)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Event), args.Error(1)
}

func (m *MockEventRepository) ListByCaseID(ctx context.Context, caseID int64) ([]*domain.Event, error) {
	args := m.Called(ctx, caseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Event), args.Error(1)
}

func (m *MockEventRepository) ListByCaseIDAfter(ctx context.Context, caseID, afterID int64, limit int) ([]*domain.Event, error) {
	args := m.Called(ctx, caseID, afterID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Event), args.Error(1)
}

// MockViewRecordRepository is a mock implementation of ports.ViewRecordRepository
type MockViewRecordRepository struct {
	mock.Mock
}

func NewMockViewRecordRepository() *MockViewRecordRepository {
	return &MockViewRecordRepository{}
}

func (m *MockViewRecordRepository) Upsert(ctx context.Context, record *domain.ViewRecord) (bool, error) {
	args := m.Called(ctx, record)
	return args.Bool(0), args.Error(1)
}

// MockPresenceRepository is a mock implementation of ports.PresenceRepository
type MockPresenceRepository struct {
	mock.Mock
}

func NewMockPresenceRepository() *MockPresenceRepository {
	return &MockPresenceRepository{}
}

func (m *MockPresenceRepository) SetOnline(ctx context.Context, caseID int64, role domain.ViewerRole, online bool) (*domain.PresenceSession, error) {
	args := m.Called(ctx, caseID, role, online)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PresenceSession), args.Error(1)
}

func (m *MockPresenceRepository) GetByCaseID(ctx context.Context, caseID int64) (*domain.PresenceSession, error) {
	args := m.Called(ctx, caseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PresenceSession), args.Error(1)
}

// MockCaseRepository is a mock implementation of ports.CaseRepository
type MockCaseRepository struct {
	mock.Mock
}

func NewMockCaseRepository() *MockCaseRepository {
	return &MockCaseRepository{}
}

func (m *MockCaseRepository) GetByID(ctx context.Context, id int64) (*domain.Case, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Case), args.Error(1)
}

func (m *MockCaseRepository) TouchUpdatedAt(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockCaseRepository) SetChatActive(ctx context.Context, id int64, active bool) error {
	args := m.Called(ctx, id, active)
	return args.Error(0)
}

// MockAttachmentRepository is a mock implementation of ports.AttachmentRepository
type MockAttachmentRepository struct {
	mock.Mock
}

func NewMockAttachmentRepository() *MockAttachmentRepository {
	return &MockAttachmentRepository{}
}

func (m *MockAttachmentRepository) ListByCaseID(ctx context.Context, caseID int64) ([]domain.Attachment, error) {
	args := m.Called(ctx, caseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Attachment), args.Error(1)
}

// MockDirectoryRepository is a mock implementation of ports.DirectoryRepository
type MockDirectoryRepository struct {
	mock.Mock
}

func NewMockDirectoryRepository() *MockDirectoryRepository {
	return &MockDirectoryRepository{}
}

func (m *MockDirectoryRepository) GetDisplayName(ctx context.Context, actorID uuid.UUID) (string, error) {
	args := m.Called(ctx, actorID)
	return args.String(0), args.Error(1)
}

func (m *MockDirectoryRepository) GetDepartment(ctx context.Context, actorID uuid.UUID) (string, error) {
	args := m.Called(ctx, actorID)
	return args.String(0), args.Error(1)
}

// MockEventLogService is a mock implementation of ports.EventLogService
type MockEventLogService struct {
	mock.Mock
}

func NewMockEventLogService() *MockEventLogService {
	return &MockEventLogService{}
}

func (m *MockEventLogService) Append(ctx context.Context, params ports.AppendEventParams) (*domain.Event, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Event), args.Error(1)
}

func (m *MockEventLogService) ListForCase(ctx context.Context, caseID int64) ([]*domain.Event, error) {
	args := m.Called(ctx, caseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Event), args.Error(1)
}

func (m *MockEventLogService) ListForCaseAfter(ctx context.Context, caseID, afterID int64, limit int) ([]*domain.Event, error) {
	args := m.Called(ctx, caseID, afterID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Event), args.Error(1)
}

// MockRoomBroadcaster is a mock implementation of ports.RoomBroadcaster
type MockRoomBroadcaster struct {
	mock.Mock
}

func NewMockRoomBroadcaster() *MockRoomBroadcaster {
	return &MockRoomBroadcaster{}
}

func (m *MockRoomBroadcaster) BroadcastToCase(caseID int64, event domain.RoomEvent) {
	m.Called(caseID, event)
}

func (m *MockRoomBroadcaster) BroadcastToCasePeers(caseID int64, exceptViewerID uuid.UUID, event domain.RoomEvent) {
	m.Called(caseID, exceptViewerID, event)
}

// MockContactNotifier is a mock implementation of ports.ContactNotifier
type MockContactNotifier struct {
	mock.Mock
}

func NewMockContactNotifier() *MockContactNotifier {
	return &MockContactNotifier{}
}

func (m *MockContactNotifier) Notify(ctx context.Context, params ports.NotificationParams) {
	m.Called(ctx, params)
}

// MockPresenceService is a mock implementation of ports.PresenceService
type MockPresenceService struct {
	mock.Mock
}

func NewMockPresenceService() *MockPresenceService {
	return &MockPresenceService{}
}

func (m *MockPresenceService) Join(ctx context.Context, caseID int64, viewerID uuid.UUID, role domain.ViewerRole) {
	m.Called(ctx, caseID, viewerID, role)
}

func (m *MockPresenceService) Leave(ctx context.Context, caseID int64, viewerID uuid.UUID, role domain.ViewerRole) {
	m.Called(ctx, caseID, viewerID, role)
}

func (m *MockPresenceService) ToggleChatActive(ctx context.Context, caseID int64, active bool, actorID uuid.UUID) error {
	args := m.Called(ctx, caseID, active, actorID)
	return args.Error(0)
}

func (m *MockPresenceService) GetSession(ctx context.Context, caseID int64) (*domain.PresenceSession, error) {
	args := m.Called(ctx, caseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PresenceSession), args.Error(1)
}

// MockMessageService is a mock implementation of ports.MessageService
type MockMessageService struct {
	mock.Mock
}

func NewMockMessageService() *MockMessageService {
	return &MockMessageService{}
}

func (m *MockMessageService) SendMessage(ctx context.Context, params ports.SendMessageParams) (*domain.Event, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Event), args.Error(1)
}

func (m *MockMessageService) Shutdown() {
	m.Called()
}

// MockViewTracker is a mock implementation of ports.ViewTracker
type MockViewTracker struct {
	mock.Mock
}

func NewMockViewTracker() *MockViewTracker {
	return &MockViewTracker{}
}

func (m *MockViewTracker) MarkViewed(ctx context.Context, params ports.MarkViewedParams) error {
	args := m.Called(ctx, params)
	return args.Error(0)
}

// MockTimelineService is a mock implementation of ports.TimelineService
type MockTimelineService struct {
	mock.Mock
}

func NewMockTimelineService() *MockTimelineService {
	return &MockTimelineService{}
}

func (m *MockTimelineService) GetTimeline(ctx context.Context, caseID int64) ([]domain.DisplayEvent, error) {
	args := m.Called(ctx, caseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.DisplayEvent), args.Error(1)
}
