package domain

import "time"

// ViewerRole identifies which side of a case a viewer is on.
type ViewerRole string

const (
	RoleClient ViewerRole = "client"
	RoleAgent  ViewerRole = "agent"
)

// Valid reports whether the role is known.
func (r ViewerRole) Valid() bool {
	return r == RoleClient || r == RoleAgent
}

// ViewerType maps the role to the receipt tracker's viewer classification.
func (r ViewerRole) ViewerType() ViewerType {
	if r == RoleAgent {
		return ViewerInternal
	}
	return ViewerExternal
}

// SessionStatus marks whether a case's chat session has ever gone live.
type SessionStatus string

const (
	SessionInactive SessionStatus = "inactive"
	SessionActive   SessionStatus = "active"
)

// PresenceSession mirrors a case room's online flags in durable storage so
// presence survives reconnects and page loads. One row per case, created
// lazily on first join, never deleted. It reflects last-known state and may
// lag true transport state by a reconnect window.
type PresenceSession struct {
	CaseID       int64         `json:"caseId"`
	ClientOnline bool          `json:"clientOnline"`
	AgentOnline  bool          `json:"agentOnline"`
	Status       SessionStatus `json:"status"`
	LastActivity time.Time     `json:"lastActivity"`
}
