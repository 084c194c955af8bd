package websocket

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/lorrc/case-collab-backend/internal/core/domain"
	"github.com/lorrc/case-collab-backend/internal/core/ports"
)

// Hub maintains the set of active Clients and fans room events out to
// them. It is the live half of presence: membership here is authoritative
// for who receives broadcasts, while the durable PresenceSession mirror is
// written through the presence service and may lag.
type Hub struct {
	// clients maps viewer IDs to their active connections.
	// A single viewer can have multiple connections (multiple tabs/devices).
	clients map[uuid.UUID]map[*Client]bool

	// rooms maps case IDs to joined clients.
	rooms map[int64]map[*Client]bool

	// Register requests from clients
	Register chan *Client

	// Unregister requests from clients
	Unregister chan *Client

	// mu protects the clients and rooms maps
	mu sync.RWMutex

	// presence and messages are bound after construction; the message
	// service needs this hub as its broadcaster, so the dependency loop is
	// closed in main.
	presence ports.PresenceService
	messages ports.MessageService

	logger *slog.Logger
}

// Ensure Hub implements the RoomBroadcaster interface.
var _ ports.RoomBroadcaster = (*Hub)(nil)

// NewHub creates a new WebSocket hub
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[uuid.UUID]map[*Client]bool),
		rooms:      make(map[int64]map[*Client]bool),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		logger:     logger.With("component", "websocket_hub"),
	}
}

// BindServices wires the core services the hub dispatches client commands
// to. Must be called before Run.
func (h *Hub) BindServices(presence ports.PresenceService, messages ports.MessageService) {
	h.presence = presence
	h.messages = messages
}

// Run starts the hub's registration loop. This MUST be run as a goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.registerClient(client)

		case client := <-h.Unregister:
			h.unregisterClient(client)
		}
	}
}

// registerClient adds a connection to the hub. Room membership is separate
// and happens on an explicit join.
func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[client.ViewerID] == nil {
		h.clients[client.ViewerID] = make(map[*Client]bool)
	}
	h.clients[client.ViewerID][client] = true

	h.logger.Info("client registered",
		"viewer_id", client.ViewerID,
		"role", client.Role,
		"total_connections", len(h.clients[client.ViewerID]),
	)
}

// unregisterClient removes a connection from the hub. A disconnect is an
// implicit leave: the room membership captured at join time is replayed
// through the same leave path an explicit command would take.
func (h *Hub) unregisterClient(client *Client) {
	h.LeaveCase(client)

	h.mu.Lock()
	if viewerClients, ok := h.clients[client.ViewerID]; ok {
		if _, exists := viewerClients[client]; exists {
			delete(viewerClients, client)
			if len(viewerClients) == 0 {
				delete(h.clients, client.ViewerID)
			}
		}
	}
	h.mu.Unlock()

	client.CloseSend()

	h.logger.Info("client unregistered",
		"viewer_id", client.ViewerID,
	)
}

// JoinCase adds the connection to a case room. Joining the room it is
// already in is a no-op, so a doubled join command produces exactly one
// user_online. A connection holds at most one membership; joining a new
// case leaves the previous room first.
func (h *Hub) JoinCase(client *Client, caseID int64) {
	if client.CaseID() == caseID {
		return
	}
	if client.CaseID() != 0 {
		h.LeaveCase(client)
	}

	h.mu.Lock()
	if h.rooms[caseID] == nil {
		h.rooms[caseID] = make(map[*Client]bool)
	}
	h.rooms[caseID][client] = true
	client.setCase(caseID)
	firstOfViewer := h.viewerConnectionsInRoomLocked(caseID, client.ViewerID) == 1
	h.mu.Unlock()

	h.logger.Debug("client joined case room",
		"viewer_id", client.ViewerID,
		"case_id", caseID,
	)

	// A second tab of the same viewer does not re-announce them.
	if firstOfViewer {
		h.BroadcastToCasePeers(caseID, client.ViewerID, domain.RoomEvent{
			Type:   domain.RoomUserOnline,
			CaseID: caseID,
			Payload: domain.PresencePayload{
				ViewerID: client.ViewerID,
				Role:     client.Role,
			},
		})
		go h.presence.Join(context.Background(), caseID, client.ViewerID, client.Role)
	}
}

// LeaveCase removes the connection from its current room. A leave without
// a prior join is a no-op.
func (h *Hub) LeaveCase(client *Client) {
	caseID := client.CaseID()
	if caseID == 0 {
		return
	}

	h.mu.Lock()
	if room, ok := h.rooms[caseID]; ok {
		delete(room, client)
		if len(room) == 0 {
			delete(h.rooms, caseID)
		}
	}
	client.setCase(0)
	lastOfViewer := h.viewerConnectionsInRoomLocked(caseID, client.ViewerID) == 0
	h.mu.Unlock()

	h.logger.Debug("client left case room",
		"viewer_id", client.ViewerID,
		"case_id", caseID,
	)

	if lastOfViewer {
		h.BroadcastToCasePeers(caseID, client.ViewerID, domain.RoomEvent{
			Type:   domain.RoomUserOffline,
			CaseID: caseID,
			Payload: domain.PresencePayload{
				ViewerID: client.ViewerID,
				Role:     client.Role,
			},
		})
		go h.presence.Leave(context.Background(), caseID, client.ViewerID, client.Role)
	}
}

// viewerConnectionsInRoomLocked counts the viewer's connections currently in
// the room. Caller must hold mu.
func (h *Hub) viewerConnectionsInRoomLocked(caseID int64, viewerID uuid.UUID) int {
	count := 0
	for client := range h.rooms[caseID] {
		if client.ViewerID == viewerID {
			count++
		}
	}
	return count
}

// BroadcastToCase delivers the event to every connection in the case room.
func (h *Hub) BroadcastToCase(caseID int64, event domain.RoomEvent) {
	h.sendToRoom(caseID, event, nil)
}

// BroadcastToCasePeers delivers the event to every connection in the room
// except those belonging to exceptViewerID.
func (h *Hub) BroadcastToCasePeers(caseID int64, exceptViewerID uuid.UUID, event domain.RoomEvent) {
	h.sendToRoom(caseID, event, &exceptViewerID)
}

// sendToRoom fans an event out without blocking on any peer. A connection
// whose send buffer is full is dropped from the hub; delivery to the rest
// proceeds regardless.
func (h *Hub) sendToRoom(caseID int64, event domain.RoomEvent, exceptViewerID *uuid.UUID) {
	h.mu.RLock()
	room, ok := h.rooms[caseID]
	if !ok {
		h.mu.RUnlock()
		return
	}

	// Copy the client list to avoid holding the lock while sending
	clients := make([]*Client, 0, len(room))
	for client := range room {
		if exceptViewerID != nil && client.ViewerID == *exceptViewerID {
			continue
		}
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	h.logger.Debug("broadcasting room event",
		"event_type", event.Type,
		"case_id", caseID,
		"client_count", len(clients),
	)

	for _, client := range clients {
		select {
		case client.Send <- event:
			// Successfully queued
		default:
			// Client's send buffer is full, unregister them
			h.logger.Warn("client send buffer full, unregistering",
				"viewer_id", client.ViewerID,
				"case_id", caseID,
				"event_type", event.Type,
			)
			go func(c *Client) { h.Unregister <- c }(client)
		}
	}
}

// GetClientCount returns the total number of connected clients
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	count := 0
	for _, viewerClients := range h.clients {
		count += len(viewerClients)
	}
	return count
}

// GetClientsInRoom returns the number of connections in a case room
func (h *Hub) GetClientsInRoom(caseID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if room, ok := h.rooms[caseID]; ok {
		return len(room)
	}
	return 0
}

// IsViewerConnected checks if a viewer has any active connections
func (h *Hub) IsViewerConnected(viewerID uuid.UUID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	clients, ok := h.clients[viewerID]
	return ok && len(clients) > 0
}
