package domain

import (
	"time"

	"github.com/google/uuid"
)

// Case is the parent entity owning events, presence and attachments. This
// core does not manage case lifecycle beyond bumping UpdatedAt on activity
// and flipping the live-chat flag; CRUD belongs to external collaborators.
type Case struct {
	ID             int64      `json:"id"`
	Subject        string     `json:"subject"`
	Description    string     `json:"description"`
	RequesterID    uuid.UUID  `json:"requesterId"`
	RequesterName  string     `json:"requesterName,omitempty"`
	RequesterEmail string     `json:"requesterEmail,omitempty"`
	ChatActive     bool       `json:"chatActive"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      *time.Time `json:"updatedAt,omitempty"`
}
