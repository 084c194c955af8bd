package domain

import (
	"strings"
	"time"
)

// AttachmentMatchWindow is the tolerance used to associate an attachment
// with the message event that introduced it. There is no foreign key between
// the two, so the match is a documented heuristic: any attachment created
// within this window of a message event is shown under that event. Two
// messages landing within the window of the same attachment will both claim
// it; the ambiguity is preserved on purpose rather than guessed away.
const AttachmentMatchWindow = 60 * time.Second

// CreationPhrase is the literal text the system writes into the description
// of the message event that duplicates a case's initial description. The
// case-detail view already surfaces that text, so the timeline drops it.
const CreationPhrase = "opened the case with the description"

// actionMarkers distinguish action summaries from the duplicated initial
// description when the creation phrase appears inside quoted content.
var actionMarkers = []string{
	"changed the status",
	"assigned the case",
	"forwarded the case",
}

// DisplayEvent is a log event decorated for rendering: surviving events in
// chronological order with temporally-matched attachments.
type DisplayEvent struct {
	Event
	Attachments []Attachment `json:"attachments,omitempty"`
}

// Reconcile turns the raw event log into the display timeline. It is a pure
// function over its inputs: no storage access, no clock.
//
// Rules, in order:
//   - the case-creation description message is dropped (see CreationPhrase);
//   - every surviving message-kind event claims the attachments created
//     within AttachmentMatchWindow of it, ignoring attachments that predate
//     the case itself;
//   - input order (ascending created_at) is preserved, and ViewRecords
//     travel with their event unchanged.
func Reconcile(events []*Event, attachments []Attachment, caseCreatedAt time.Time) []DisplayEvent {
	timeline := make([]DisplayEvent, 0, len(events))

	for _, event := range events {
		if isInitialDescription(event) {
			continue
		}

		display := DisplayEvent{Event: *event}
		if event.Kind.IsMessage() {
			display.Attachments = matchAttachments(event, attachments, caseCreatedAt)
		}
		timeline = append(timeline, display)
	}

	return timeline
}

// isInitialDescription reports whether the event is the system message that
// repeats the case's opening description. The decision is purely textual:
// kind message, creation phrase in the description, and no action marker in
// the content.
func isInitialDescription(event *Event) bool {
	if event.Kind != ActionMessage {
		return false
	}
	if !strings.Contains(event.Description, CreationPhrase) {
		return false
	}
	for _, marker := range actionMarkers {
		if strings.Contains(event.NewValue, marker) {
			return false
		}
	}
	return true
}

// matchAttachments returns the attachments whose creation time lies within
// AttachmentMatchWindow of the event. Attachments created before the case
// are stray rows and never match.
func matchAttachments(event *Event, attachments []Attachment, caseCreatedAt time.Time) []Attachment {
	var matched []Attachment
	for _, attachment := range attachments {
		if attachment.CreatedAt.Before(caseCreatedAt) {
			continue
		}
		delta := event.CreatedAt.Sub(attachment.CreatedAt)
		if delta < 0 {
			delta = -delta
		}
		if delta <= AttachmentMatchWindow {
			matched = append(matched, attachment)
		}
	}
	return matched
}
