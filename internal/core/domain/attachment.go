package domain

import (
	"time"

	"github.com/google/uuid"
)

// Attachment is a reference to a stored file on a case. Blobs live in an
// external store; this core only tracks metadata. There is no foreign key
// from an attachment to the event that introduced it — association is done
// at read time by temporal proximity (see timeline.go).
type Attachment struct {
	ID          int64      `json:"id"`
	CaseID      int64      `json:"caseId"`
	FileName    string     `json:"fileName"`
	ContentType string     `json:"contentType,omitempty"`
	ByteSize    int64      `json:"byteSize"`
	UploaderID  *uuid.UUID `json:"uploaderId,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}
