package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Pre-defined errors for domain-specific validation.
var (
	ErrUnknownActionKind = errors.New("unknown action kind")
	ErrCaseIDRequired    = errors.New("case ID is required")
	ErrActorRequired     = errors.New("actor ID is required for this action kind")
	ErrContentRequired   = errors.New("message content is required")
	ErrContentTooLong    = errors.New("message content exceeds maximum length")
)

// MaxContentLength bounds chat message content. Matches the socket frame
// limit so a message accepted over REST can still be relayed live.
const MaxContentLength = 8000

// ActionKind classifies what happened to a case. It is a closed set:
// unknown kinds are rejected at the boundary instead of falling through.
type ActionKind string

const (
	ActionStatusChange    ActionKind = "status_change"
	ActionAssignment      ActionKind = "assignment"
	ActionForward         ActionKind = "forward"
	ActionMessage         ActionKind = "message"
	ActionInternalMessage ActionKind = "internal_message"
	ActionAttachment      ActionKind = "attachment"
	ActionCreated         ActionKind = "created"
)

// Valid reports whether the kind is one of the known action kinds.
func (k ActionKind) Valid() bool {
	switch k {
	case ActionStatusChange, ActionAssignment, ActionForward,
		ActionMessage, ActionInternalMessage, ActionAttachment, ActionCreated:
		return true
	}
	return false
}

// IsMessage reports whether the kind carries chat content.
func (k ActionKind) IsMessage() bool {
	return k == ActionMessage || k == ActionInternalMessage
}

// Event is one immutable entry in a case's append-only log. Corrections are
// expressed as new events; rows are never updated or deleted.
type Event struct {
	ID          int64       `json:"id"`
	CaseID      int64       `json:"caseId"`
	ActorID     *uuid.UUID  `json:"actorId"` // nil only for system-generated events
	Kind        ActionKind  `json:"kind"`
	Description string      `json:"description"`
	OldValue    string      `json:"oldValue,omitempty"`
	NewValue    string      `json:"newValue,omitempty"`
	Comment     string      `json:"comment,omitempty"`
	CreatedAt   time.Time   `json:"createdAt"`
	Views       []ViewRecord `json:"views,omitempty"`
}

// EventParams defines the input for constructing a new event.
type EventParams struct {
	CaseID      int64
	ActorID     *uuid.UUID
	Kind        ActionKind
	Description string
	OldValue    string
	NewValue    string
	Comment     string
}

// NewEvent is a factory function that validates the event before it ever
// reaches the store. A system actor (nil ActorID) is permitted only for
// the "created" kind.
func NewEvent(params EventParams) (*Event, error) {
	if !params.Kind.Valid() {
		return nil, ErrUnknownActionKind
	}
	if params.CaseID <= 0 {
		return nil, ErrCaseIDRequired
	}
	if params.ActorID == nil && params.Kind != ActionCreated {
		return nil, ErrActorRequired
	}

	return &Event{
		CaseID:      params.CaseID,
		ActorID:     params.ActorID,
		Kind:        params.Kind,
		Description: params.Description,
		OldValue:    params.OldValue,
		NewValue:    params.NewValue,
		Comment:     params.Comment,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

// IsInternal reports whether the event is hidden from external viewers.
func (e *Event) IsInternal() bool {
	return e.Kind == ActionInternalMessage
}
