package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/lorrc/case-collab-backend/internal/core/domain"
	apperrors "github.com/lorrc/case-collab-backend/internal/core/errors"
	"github.com/lorrc/case-collab-backend/internal/core/ports"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. Sized to fit a maximum-length
	// chat message plus command framing.
	maxMessageSize = 16384

	// Deadline for a durable command dispatched from the socket.
	commandTimeout = 10 * time.Second
)

// Client is a middleman between the websocket connection and the hub. It
// holds at most one case room membership at a time, captured at join and
// replayed on disconnect.
type Client struct {
	Hub *Hub

	// The websocket connection.
	Conn *websocket.Conn

	// Buffered channel of outbound room events.
	Send chan domain.RoomEvent

	// Identity established at upgrade time.
	ViewerID uuid.UUID
	Role     domain.ViewerRole

	// caseID is the current room membership, 0 when not joined.
	caseID int64

	// closeOnce ensures the Send channel is only closed once
	closeOnce sync.Once

	// mu protects caseID
	mu sync.RWMutex

	logger *slog.Logger
}

// NewClient creates a new WebSocket client
func NewClient(hub *Hub, conn *websocket.Conn, viewerID uuid.UUID, role domain.ViewerRole, logger *slog.Logger) *Client {
	return &Client{
		Hub:      hub,
		Conn:     conn,
		Send:     make(chan domain.RoomEvent, 256),
		ViewerID: viewerID,
		Role:     role,
		logger:   logger.With("viewer_id", viewerID.String(), "role", string(role)),
	}
}

// CloseSend safely closes the Send channel exactly once
func (c *Client) CloseSend() {
	c.closeOnce.Do(func() {
		close(c.Send)
	})
}

// CaseID returns the current room membership, 0 when not joined.
func (c *Client) CaseID() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.caseID
}

func (c *Client) setCase(caseID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.caseID = caseID
}

// ReadPump pumps messages from the websocket connection to the hub.
// This method runs in its own goroutine.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Unregister <- c
		_ = c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	if err := c.Conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error("failed to set read deadline", "error", err)
		return
	}

	c.Conn.SetPongHandler(func(string) error {
		if err := c.Conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			c.logger.Error("failed to set read deadline in pong handler", "error", err)
		}
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.logger.Warn("websocket read error", "error", err)
			}
			break
		}

		c.handleIncomingMessage(message)
	}
}

// WritePump pumps room events from the hub to the websocket connection.
// This method runs in its own goroutine.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Conn.Close()
	}()

	for {
		select {
		case event, ok := <-c.Send:
			if err := c.Conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Error("failed to set write deadline", "error", err)
				return
			}

			if !ok {
				// The hub closed the channel. Send close message.
				if err := c.Conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
					c.logger.Debug("failed to send close message", "error", err)
				}
				return
			}

			if err := c.writeJSON(event); err != nil {
				c.logger.Error("failed to write message", "error", err)
				return
			}

		case <-ticker.C:
			if err := c.Conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Error("failed to set write deadline for ping", "error", err)
				return
			}

			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.Debug("failed to send ping", "error", err)
				return
			}
		}
	}
}

// writeJSON writes a JSON room event to the websocket connection
func (c *Client) writeJSON(event domain.RoomEvent) error {
	w, err := c.Conn.NextWriter(websocket.TextMessage)
	if err != nil {
		return err
	}

	if err := json.NewEncoder(w).Encode(event); err != nil {
		_ = w.Close()
		return err
	}

	return w.Close()
}

// --- Incoming Command Handling ---

// ClientCommand is the structure for commands sent from the client.
type ClientCommand struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// JoinPayload is the payload for join/leave and typing commands.
type JoinPayload struct {
	CaseID int64 `json:"caseId"`
}

// SendMessagePayload is the payload for sending a chat message over the
// socket. Mirrors the REST body.
type SendMessagePayload struct {
	CaseID        int64   `json:"caseId"`
	Content       string  `json:"content"`
	IsInternal    bool    `json:"isInternal"`
	AttachmentIDs []int64 `json:"attachmentIds"`
}

// ToggleChatPayload is the payload for flipping the case's live-chat flag.
type ToggleChatPayload struct {
	CaseID int64 `json:"caseId"`
	Active bool  `json:"active"`
}

// handleIncomingMessage processes commands received from the client
func (c *Client) handleIncomingMessage(message []byte) {
	var cmd ClientCommand
	if err := json.Unmarshal(message, &cmd); err != nil {
		c.logger.Warn("failed to unmarshal client command", "error", err)
		return
	}

	switch cmd.Type {
	case "join_case":
		c.handleJoin(cmd.Payload)

	case "leave_case":
		c.Hub.LeaveCase(c)

	case "send_message":
		c.handleSendMessage(cmd.Payload)

	case "typing_start":
		c.relayTyping(domain.RoomUserTyping)

	case "typing_stop":
		c.relayTyping(domain.RoomUserStopTyping)

	case "toggle_chat":
		c.handleToggleChat(cmd.Payload)

	default:
		c.logger.Debug("received unknown command type", "type", cmd.Type)
	}
}

func (c *Client) handleJoin(payload json.RawMessage) {
	var p JoinPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		c.logger.Warn("failed to unmarshal join payload", "error", err)
		return
	}

	if p.CaseID <= 0 {
		c.logger.Warn("invalid case ID in join command", "case_id", p.CaseID)
		return
	}

	c.Hub.JoinCase(c, p.CaseID)
}

func (c *Client) handleSendMessage(payload json.RawMessage) {
	var p SendMessagePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		c.logger.Warn("failed to unmarshal send_message payload", "error", err)
		return
	}
	if p.CaseID <= 0 {
		p.CaseID = c.CaseID()
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	_, err := c.Hub.messages.SendMessage(ctx, ports.SendMessageParams{
		CaseID:        p.CaseID,
		SenderID:      c.ViewerID,
		SenderRole:    c.Role,
		Content:       p.Content,
		IsInternal:    p.IsInternal && c.Role == domain.RoleAgent,
		AttachmentIDs: p.AttachmentIDs,
	})
	if err != nil {
		// The failure belongs to the issuing transport only; peers never
		// hear about a message that was not persisted.
		c.sendError(p.CaseID, err)
	}
}

// relayTyping fans the ephemeral typing signal out to room peers. Nothing
// is persisted and no delivery is guaranteed.
func (c *Client) relayTyping(eventType domain.RoomEventType) {
	caseID := c.CaseID()
	if caseID == 0 {
		return
	}

	c.Hub.BroadcastToCasePeers(caseID, c.ViewerID, domain.RoomEvent{
		Type:   eventType,
		CaseID: caseID,
		Payload: domain.TypingPayload{
			ViewerID: c.ViewerID,
			Role:     c.Role,
		},
	})
}

func (c *Client) handleToggleChat(payload json.RawMessage) {
	var p ToggleChatPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		c.logger.Warn("failed to unmarshal toggle_chat payload", "error", err)
		return
	}
	if p.CaseID <= 0 {
		p.CaseID = c.CaseID()
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	if err := c.Hub.presence.ToggleChatActive(ctx, p.CaseID, p.Active, c.ViewerID); err != nil {
		c.sendError(p.CaseID, err)
	}
}

// sendError pushes a command failure back to this transport only.
func (c *Client) sendError(caseID int64, err error) {
	code := "internal"
	var perr *apperrors.PersistenceError
	switch {
	case errors.As(err, &perr):
		code = "persistence_failed"
	case errors.Is(err, domain.ErrContentRequired),
		errors.Is(err, domain.ErrContentTooLong),
		errors.Is(err, domain.ErrUnknownActionKind),
		errors.Is(err, domain.ErrCaseIDRequired),
		errors.Is(err, domain.ErrActorRequired):
		code = "validation_failed"
	}

	event := domain.RoomEvent{
		Type:   domain.RoomError,
		CaseID: caseID,
		Payload: domain.ErrorPayload{
			Code:    code,
			Message: err.Error(),
		},
	}

	select {
	case c.Send <- event:
	default:
		c.logger.Warn("dropping error event, send buffer full", "case_id", caseID)
	}
}
