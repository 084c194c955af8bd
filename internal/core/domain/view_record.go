package domain

import (
	"time"

	"github.com/google/uuid"
)

// ViewerType distinguishes staff viewers from requesters.
type ViewerType string

const (
	ViewerInternal ViewerType = "internal"
	ViewerExternal ViewerType = "external"
)

// Valid reports whether the viewer type is known.
func (t ViewerType) Valid() bool {
	return t == ViewerInternal || t == ViewerExternal
}

// ViewRecord is proof that a specific viewer has seen a specific event.
// At most one record exists per (event, viewer); re-marking never moves
// the original ViewedAt.
type ViewRecord struct {
	EventID    int64      `json:"eventId"`
	ViewerID   uuid.UUID  `json:"viewerId"`
	ViewerType ViewerType `json:"viewerType"`
	// Department is a snapshot of the viewer's organizational assignment at
	// view time; it is not kept in sync with later re-assignment.
	Department string    `json:"department,omitempty"`
	Channel    string    `json:"channel"`
	ViewedAt   time.Time `json:"viewedAt"`
}
