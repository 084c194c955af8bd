package websocket

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lorrc/case-collab-backend/internal/core/domain"
	"github.com/lorrc/case-collab-backend/internal/core/mocks"
	"github.com/lorrc/case-collab-backend/internal/core/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestHub() (*Hub, *mocks.MockPresenceService, *mocks.MockMessageService) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	hub := NewHub(logger)
	presence := mocks.NewMockPresenceService()
	messages := mocks.NewMockMessageService()
	hub.BindServices(presence, messages)
	return hub, presence, messages
}

func newTestClient(hub *Hub, viewerID uuid.UUID, role domain.ViewerRole) *Client {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewClient(hub, nil, viewerID, role, logger)
}

// drainEvents empties the client's send buffer and returns what was queued.
func drainEvents(c *Client) []domain.RoomEvent {
	var events []domain.RoomEvent
	for {
		select {
		case event := <-c.Send:
			events = append(events, event)
		default:
			return events
		}
	}
}

func eventsOfType(events []domain.RoomEvent, eventType domain.RoomEventType) []domain.RoomEvent {
	var matched []domain.RoomEvent
	for _, event := range events {
		if event.Type == eventType {
			matched = append(matched, event)
		}
	}
	return matched
}

func TestHub_JoinCase(t *testing.T) {
	t.Run("doubled join announces the viewer once", func(t *testing.T) {
		hub, presence, _ := newTestHub()
		presence.On("Join", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return().Maybe()

		agent := newTestClient(hub, uuid.New(), domain.RoleAgent)
		client := newTestClient(hub, uuid.New(), domain.RoleClient)
		hub.registerClient(agent)
		hub.registerClient(client)
		hub.JoinCase(agent, 1)
		drainEvents(agent)

		hub.JoinCase(client, 1)
		hub.JoinCase(client, 1)

		online := eventsOfType(drainEvents(agent), domain.RoomUserOnline)
		require.Len(t, online, 1)
		payload := online[0].Payload.(domain.PresencePayload)
		assert.Equal(t, client.ViewerID, payload.ViewerID)
		assert.Equal(t, domain.RoleClient, payload.Role)
	})

	t.Run("second tab of the same viewer does not re-announce", func(t *testing.T) {
		hub, presence, _ := newTestHub()
		presence.On("Join", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return().Maybe()

		viewerID := uuid.New()
		agent := newTestClient(hub, uuid.New(), domain.RoleAgent)
		tab1 := newTestClient(hub, viewerID, domain.RoleClient)
		tab2 := newTestClient(hub, viewerID, domain.RoleClient)
		hub.JoinCase(agent, 1)

		hub.JoinCase(tab1, 1)
		hub.JoinCase(tab2, 1)

		online := eventsOfType(drainEvents(agent), domain.RoomUserOnline)
		assert.Len(t, online, 1)
		assert.Equal(t, 3, hub.GetClientsInRoom(1))
	})

	t.Run("joining another case leaves the previous room", func(t *testing.T) {
		hub, presence, _ := newTestHub()
		presence.On("Join", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return().Maybe()
		presence.On("Leave", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return().Maybe()

		client := newTestClient(hub, uuid.New(), domain.RoleClient)
		hub.JoinCase(client, 1)
		hub.JoinCase(client, 2)

		assert.Equal(t, 0, hub.GetClientsInRoom(1))
		assert.Equal(t, 1, hub.GetClientsInRoom(2))
		assert.Equal(t, int64(2), client.CaseID())
	})

	t.Run("first join mirrors into durable presence", func(t *testing.T) {
		hub, presence, _ := newTestHub()
		joined := make(chan struct{})
		client := newTestClient(hub, uuid.New(), domain.RoleClient)
		presence.On("Join", mock.Anything, int64(1), client.ViewerID, domain.RoleClient).
			Run(func(mock.Arguments) { close(joined) }).Return()

		hub.JoinCase(client, 1)

		select {
		case <-joined:
		case <-time.After(time.Second):
			t.Fatal("durable presence join was never called")
		}
	})
}

func TestHub_LeaveCase(t *testing.T) {
	t.Run("leave without a prior join is a no-op", func(t *testing.T) {
		hub, presence, _ := newTestHub()

		client := newTestClient(hub, uuid.New(), domain.RoleClient)
		hub.LeaveCase(client)

		presence.AssertNotCalled(t, "Leave")
	})

	t.Run("last connection announces the viewer offline", func(t *testing.T) {
		hub, presence, _ := newTestHub()
		presence.On("Join", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return().Maybe()
		presence.On("Leave", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return().Maybe()

		agent := newTestClient(hub, uuid.New(), domain.RoleAgent)
		viewerID := uuid.New()
		tab1 := newTestClient(hub, viewerID, domain.RoleClient)
		tab2 := newTestClient(hub, viewerID, domain.RoleClient)
		hub.JoinCase(agent, 1)
		hub.JoinCase(tab1, 1)
		hub.JoinCase(tab2, 1)
		drainEvents(agent)

		hub.LeaveCase(tab1)
		assert.Empty(t, eventsOfType(drainEvents(agent), domain.RoomUserOffline))

		hub.LeaveCase(tab2)
		offline := eventsOfType(drainEvents(agent), domain.RoomUserOffline)
		require.Len(t, offline, 1)
		assert.Equal(t, viewerID, offline[0].Payload.(domain.PresencePayload).ViewerID)
	})

	t.Run("disconnect replays the leave", func(t *testing.T) {
		hub, presence, _ := newTestHub()
		presence.On("Join", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return().Maybe()
		left := make(chan struct{})

		agent := newTestClient(hub, uuid.New(), domain.RoleAgent)
		client := newTestClient(hub, uuid.New(), domain.RoleClient)
		presence.On("Leave", mock.Anything, int64(1), client.ViewerID, domain.RoleClient).
			Run(func(mock.Arguments) { close(left) }).Return()
		hub.registerClient(agent)
		hub.registerClient(client)
		hub.JoinCase(agent, 1)
		hub.JoinCase(client, 1)
		drainEvents(agent)

		hub.unregisterClient(client)

		offline := eventsOfType(drainEvents(agent), domain.RoomUserOffline)
		require.Len(t, offline, 1)
		assert.Equal(t, 1, hub.GetClientsInRoom(1))
		assert.False(t, hub.IsViewerConnected(client.ViewerID))

		select {
		case <-left:
		case <-time.After(time.Second):
			t.Fatal("durable presence leave was never called")
		}
	})
}

func TestHub_Broadcast(t *testing.T) {
	hub, presence, _ := newTestHub()
	presence.On("Join", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return().Maybe()

	senderID := uuid.New()
	sender := newTestClient(hub, senderID, domain.RoleClient)
	senderTab := newTestClient(hub, senderID, domain.RoleClient)
	peer := newTestClient(hub, uuid.New(), domain.RoleAgent)
	outsider := newTestClient(hub, uuid.New(), domain.RoleAgent)
	hub.JoinCase(sender, 1)
	hub.JoinCase(senderTab, 1)
	hub.JoinCase(peer, 1)
	hub.JoinCase(outsider, 2)
	drainEvents(sender)
	drainEvents(senderTab)
	drainEvents(peer)
	drainEvents(outsider)

	t.Run("to case reaches every connection in the room", func(t *testing.T) {
		hub.BroadcastToCase(1, domain.RoomEvent{Type: domain.RoomNewMessage, CaseID: 1})

		assert.Len(t, eventsOfType(drainEvents(sender), domain.RoomNewMessage), 1)
		assert.Len(t, eventsOfType(drainEvents(senderTab), domain.RoomNewMessage), 1)
		assert.Len(t, eventsOfType(drainEvents(peer), domain.RoomNewMessage), 1)
		assert.Empty(t, drainEvents(outsider))
	})

	t.Run("to peers skips every connection of the excluded viewer", func(t *testing.T) {
		hub.BroadcastToCasePeers(1, senderID, domain.RoomEvent{Type: domain.RoomNewNotification, CaseID: 1})

		assert.Empty(t, drainEvents(sender))
		assert.Empty(t, drainEvents(senderTab))
		assert.Len(t, eventsOfType(drainEvents(peer), domain.RoomNewNotification), 1)
	})

	t.Run("to an empty room is a no-op", func(t *testing.T) {
		assert.NotPanics(t, func() {
			hub.BroadcastToCase(99, domain.RoomEvent{Type: domain.RoomNewMessage, CaseID: 99})
		})
	})
}

func TestHub_SlowConsumerIsDropped(t *testing.T) {
	hub, presence, _ := newTestHub()
	presence.On("Join", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return().Maybe()
	presence.On("Leave", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return().Maybe()
	go hub.Run()

	slow := newTestClient(hub, uuid.New(), domain.RoleClient)
	hub.registerClient(slow)
	hub.JoinCase(slow, 1)

	// Fill the send buffer so the next fan-out cannot queue.
	for i := 0; i < cap(slow.Send); i++ {
		slow.Send <- domain.RoomEvent{Type: domain.RoomNewMessage, CaseID: 1}
	}

	hub.BroadcastToCase(1, domain.RoomEvent{Type: domain.RoomNewMessage, CaseID: 1})

	require.Eventually(t, func() bool {
		return !hub.IsViewerConnected(slow.ViewerID) && hub.GetClientsInRoom(1) == 0
	}, time.Second, 10*time.Millisecond)
}

func TestClient_TypingRelay(t *testing.T) {
	hub, presence, _ := newTestHub()
	presence.On("Join", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return().Maybe()

	typist := newTestClient(hub, uuid.New(), domain.RoleClient)
	peer := newTestClient(hub, uuid.New(), domain.RoleAgent)

	t.Run("ignored before joining a room", func(t *testing.T) {
		typist.handleIncomingMessage([]byte(`{"type":"typing_start"}`))
		assert.Empty(t, drainEvents(peer))
	})

	hub.JoinCase(typist, 1)
	hub.JoinCase(peer, 1)
	drainEvents(typist)
	drainEvents(peer)

	t.Run("relayed to peers only", func(t *testing.T) {
		typist.handleIncomingMessage([]byte(`{"type":"typing_start"}`))

		typing := eventsOfType(drainEvents(peer), domain.RoomUserTyping)
		require.Len(t, typing, 1)
		assert.Equal(t, typist.ViewerID, typing[0].Payload.(domain.TypingPayload).ViewerID)
		assert.Empty(t, drainEvents(typist))
	})

	t.Run("stop signal mirrors start", func(t *testing.T) {
		typist.handleIncomingMessage([]byte(`{"type":"typing_stop"}`))

		assert.Len(t, eventsOfType(drainEvents(peer), domain.RoomUserStopTyping), 1)
	})
}

func TestClient_SendMessageCommand(t *testing.T) {
	t.Run("persistence failure bounces to the issuing transport only", func(t *testing.T) {
		hub, presence, messages := newTestHub()
		presence.On("Join", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return().Maybe()

		sender := newTestClient(hub, uuid.New(), domain.RoleClient)
		peer := newTestClient(hub, uuid.New(), domain.RoleAgent)
		hub.JoinCase(sender, 1)
		hub.JoinCase(peer, 1)
		drainEvents(sender)
		drainEvents(peer)

		messages.On("SendMessage", mock.Anything, mock.Anything).
			Return(nil, domain.ErrContentRequired)

		sender.handleIncomingMessage([]byte(`{"type":"send_message","payload":{"caseId":1,"content":""}}`))

		errs := eventsOfType(drainEvents(sender), domain.RoomError)
		require.Len(t, errs, 1)
		assert.Equal(t, "validation_failed", errs[0].Payload.(domain.ErrorPayload).Code)
		assert.Empty(t, drainEvents(peer))
	})

	t.Run("internal flag is stripped for non-agents", func(t *testing.T) {
		hub, presence, messages := newTestHub()
		presence.On("Join", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return().Maybe()

		sender := newTestClient(hub, uuid.New(), domain.RoleClient)
		hub.JoinCase(sender, 1)

		messages.On("SendMessage", mock.Anything, mock.MatchedBy(func(p ports.SendMessageParams) bool {
			return !p.IsInternal && p.CaseID == 1
		})).Return(&domain.Event{ID: 1, CaseID: 1}, nil)

		sender.handleIncomingMessage([]byte(`{"type":"send_message","payload":{"caseId":1,"content":"hi","isInternal":true}}`))

		messages.AssertExpectations(t)
	})
}
