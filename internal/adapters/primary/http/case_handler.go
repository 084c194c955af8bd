package http

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	mw "github.com/lorrc/case-collab-backend/internal/adapters/primary/http/middleware"
	"github.com/lorrc/case-collab-backend/internal/adapters/primary/validation"
	"github.com/lorrc/case-collab-backend/internal/auth"
	"github.com/lorrc/case-collab-backend/internal/core/domain"
	apperrors "github.com/lorrc/case-collab-backend/internal/core/errors"
	"github.com/lorrc/case-collab-backend/internal/core/ports"
)

const (
	defaultEventsLimit = 50
	maxEventsLimit     = 200
)

// CaseHandler handles the HTTP surface of case collaboration: timeline
// reads, the event feed, message posting, the chat toggle, presence reads
// and view receipts. The live counterparts of these operations go through
// the websocket adapter; both paths end in the same core services.
type CaseHandler struct {
	timeline       ports.TimelineService
	events         ports.EventLogService
	messages       ports.MessageService
	views          ports.ViewTracker
	presence       ports.PresenceService
	messageLimiter *mw.RateLimitByKey
	errorHandler   *ErrorHandler
	logger         *slog.Logger
}

// NewCaseHandler creates a new case handler
func NewCaseHandler(
	timeline ports.TimelineService,
	events ports.EventLogService,
	messages ports.MessageService,
	views ports.ViewTracker,
	presence ports.PresenceService,
	messageLimiter *mw.RateLimitByKey,
	errorHandler *ErrorHandler,
	logger *slog.Logger,
) *CaseHandler {
	return &CaseHandler{
		timeline:       timeline,
		events:         events,
		messages:       messages,
		views:          views,
		presence:       presence,
		messageLimiter: messageLimiter,
		errorHandler:   errorHandler,
		logger:         logger.With("handler", "case"),
	}
}

// Router sets up a new chi Router for all case-related routes.
func (h *CaseHandler) Router() http.Handler {
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

// RegisterRoutes sets up the routing for all case collaboration endpoints.
func (h *CaseHandler) RegisterRoutes(r chi.Router) {
	r.Route("/{caseID}", func(r chi.Router) {
		r.Get("/timeline", h.HandleGetTimeline)
		r.Get("/events", h.HandleListEvents)
		r.Post("/messages", h.HandleSendMessage)
		r.Patch("/chat", h.HandleToggleChat)
		r.Get("/presence", h.HandleGetPresence)
		r.Post("/events/{eventID}/views", h.HandleMarkViewed)
	})
}

// --- Request/Response DTOs ---

// SendMessageRequest defines the expected JSON body for posting a message
type SendMessageRequest struct {
	Content       string  `json:"content"`
	IsInternal    bool    `json:"isInternal"`
	AttachmentIDs []int64 `json:"attachmentIds"`
}

// Validate validates the send message request
func (r *SendMessageRequest) Validate() error {
	v := validation.NewValidator()

	v.Required("content", r.Content).
		MaxRunes("content", r.Content, domain.MaxContentLength)

	if v.HasErrors() {
		return v.Errors()
	}
	return nil
}

// ToggleChatRequest defines the expected JSON body for the chat toggle
type ToggleChatRequest struct {
	Active *bool `json:"active"`
}

// Validate validates the toggle chat request
func (r *ToggleChatRequest) Validate() error {
	v := validation.NewValidator()

	v.Custom("active", r.Active != nil, "This field is required")

	if v.HasErrors() {
		return v.Errors()
	}
	return nil
}

// MarkViewedRequest defines the optional JSON body for a view receipt
type MarkViewedRequest struct {
	Channel string `json:"channel"`
}

// ViewDTO defines the JSON response for a view receipt
type ViewDTO struct {
	EventID    int64  `json:"eventId"`
	ViewerID   string `json:"viewerId"`
	ViewerType string `json:"viewerType"`
	Department string `json:"department,omitempty"`
	Channel    string `json:"channel,omitempty"`
	ViewedAt   string `json:"viewedAt"`
}

// EventDTO defines the JSON response for a log event
type EventDTO struct {
	ID          int64     `json:"id"`
	CaseID      int64     `json:"caseId"`
	ActorID     *string   `json:"actorId"`
	Kind        string    `json:"kind"`
	Description string    `json:"description"`
	OldValue    string    `json:"oldValue,omitempty"`
	NewValue    string    `json:"newValue,omitempty"`
	Comment     string    `json:"comment,omitempty"`
	CreatedAt   string    `json:"createdAt"`
	Views       []ViewDTO `json:"views,omitempty"`
}

// AttachmentDTO defines the JSON response for attachment metadata
type AttachmentDTO struct {
	ID          int64  `json:"id"`
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType,omitempty"`
	ByteSize    int64  `json:"byteSize"`
	CreatedAt   string `json:"createdAt"`
}

// TimelineEntryDTO defines the JSON response for a reconciled timeline entry
type TimelineEntryDTO struct {
	EventDTO
	Attachments []AttachmentDTO `json:"attachments,omitempty"`
}

// PresenceDTO defines the JSON response for a case's presence snapshot
type PresenceDTO struct {
	CaseID       int64  `json:"caseId"`
	ClientOnline bool   `json:"clientOnline"`
	AgentOnline  bool   `json:"agentOnline"`
	Status       string `json:"status"`
	LastActivity string `json:"lastActivity,omitempty"`
}

func toViewDTO(view domain.ViewRecord) ViewDTO {
	return ViewDTO{
		EventID:    view.EventID,
		ViewerID:   view.ViewerID.String(),
		ViewerType: string(view.ViewerType),
		Department: view.Department,
		Channel:    view.Channel,
		ViewedAt:   view.ViewedAt.Format(time.RFC3339),
	}
}

func toEventDTO(event *domain.Event) EventDTO {
	var actorID *string
	if event.ActorID != nil {
		value := event.ActorID.String()
		actorID = &value
	}

	views := make([]ViewDTO, 0, len(event.Views))
	for _, view := range event.Views {
		views = append(views, toViewDTO(view))
	}
	if len(views) == 0 {
		views = nil
	}

	return EventDTO{
		ID:          event.ID,
		CaseID:      event.CaseID,
		ActorID:     actorID,
		Kind:        string(event.Kind),
		Description: event.Description,
		OldValue:    event.OldValue,
		NewValue:    event.NewValue,
		Comment:     event.Comment,
		CreatedAt:   event.CreatedAt.Format(time.RFC3339),
		Views:       views,
	}
}

func toEventDTOs(events []*domain.Event) []EventDTO {
	response := make([]EventDTO, 0, len(events))
	for _, event := range events {
		response = append(response, toEventDTO(event))
	}
	return response
}

func toAttachmentDTO(attachment domain.Attachment) AttachmentDTO {
	return AttachmentDTO{
		ID:          attachment.ID,
		FileName:    attachment.FileName,
		ContentType: attachment.ContentType,
		ByteSize:    attachment.ByteSize,
		CreatedAt:   attachment.CreatedAt.Format(time.RFC3339),
	}
}

func toTimelineEntryDTO(entry domain.DisplayEvent) TimelineEntryDTO {
	attachments := make([]AttachmentDTO, 0, len(entry.Attachments))
	for _, attachment := range entry.Attachments {
		attachments = append(attachments, toAttachmentDTO(attachment))
	}
	if len(attachments) == 0 {
		attachments = nil
	}

	return TimelineEntryDTO{
		EventDTO:    toEventDTO(&entry.Event),
		Attachments: attachments,
	}
}

func toPresenceDTO(session *domain.PresenceSession) PresenceDTO {
	dto := PresenceDTO{
		CaseID:       session.CaseID,
		ClientOnline: session.ClientOnline,
		AgentOnline:  session.AgentOnline,
		Status:       string(session.Status),
	}
	if !session.LastActivity.IsZero() {
		dto.LastActivity = session.LastActivity.Format(time.RFC3339)
	}
	return dto
}

// --- Handlers ---

// HandleGetTimeline handles GET /cases/{caseID}/timeline
func (h *CaseHandler) HandleGetTimeline(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.getClaims(w, r); !ok {
		return
	}

	caseID, ok := h.parseCaseID(w, r)
	if !ok {
		return
	}

	entries, err := h.timeline.GetTimeline(r.Context(), caseID)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	response := make([]TimelineEntryDTO, 0, len(entries))
	for _, entry := range entries {
		response = append(response, toTimelineEntryDTO(entry))
	}

	WriteList(w, response)
}

// HandleListEvents handles GET /cases/{caseID}/events
func (h *CaseHandler) HandleListEvents(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.getClaims(w, r); !ok {
		return
	}

	caseID, ok := h.parseCaseID(w, r)
	if !ok {
		return
	}

	after := validation.ParseInt64QueryParam(r, "after", 0)
	limit := validation.ParseIntQueryParam(r, "limit", defaultEventsLimit)
	if limit > maxEventsLimit {
		limit = maxEventsLimit
	}

	// Fetch one extra row to decide whether more pages exist.
	events, err := h.events.ListForCaseAfter(r.Context(), caseID, after, limit+1)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	hasMore := len(events) > limit
	if hasMore {
		events = events[:limit]
	}

	var nextCursor int64
	if len(events) > 0 && hasMore {
		nextCursor = events[len(events)-1].ID
	}

	WriteJSON(w, http.StatusOK, CursorResponse[EventDTO]{
		Data:       toEventDTOs(events),
		NextCursor: nextCursor,
		HasMore:    hasMore,
	})
}

// HandleSendMessage handles POST /cases/{caseID}/messages
func (h *CaseHandler) HandleSendMessage(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	caseID, ok := h.parseCaseID(w, r)
	if !ok {
		return
	}

	if !h.messageLimiter.Allow(claims.UserID.String()) {
		h.errorHandler.Handle(w, r, apperrors.NewRateLimitError())
		return
	}

	req, err := validation.DecodeAndValidate[SendMessageRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if err := req.Validate(); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	event, err := h.messages.SendMessage(r.Context(), ports.SendMessageParams{
		CaseID:     caseID,
		SenderID:   claims.UserID,
		SenderRole: claims.Role,
		Content:    req.Content,
		// Only staff can write internal notes.
		IsInternal:    req.IsInternal && claims.Role == domain.RoleAgent,
		AttachmentIDs: req.AttachmentIDs,
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteCreated(w, toEventDTO(event))
}

// HandleToggleChat handles PATCH /cases/{caseID}/chat
func (h *CaseHandler) HandleToggleChat(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	caseID, ok := h.parseCaseID(w, r)
	if !ok {
		return
	}

	req, err := validation.DecodeAndValidate[ToggleChatRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if err := req.Validate(); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if err := h.presence.ToggleChatActive(r.Context(), caseID, *req.Active, claims.UserID); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteNoContent(w)
}

// HandleGetPresence handles GET /cases/{caseID}/presence
func (h *CaseHandler) HandleGetPresence(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.getClaims(w, r); !ok {
		return
	}

	caseID, ok := h.parseCaseID(w, r)
	if !ok {
		return
	}

	session, err := h.presence.GetSession(r.Context(), caseID)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteSuccess(w, toPresenceDTO(session))
}

// HandleMarkViewed handles POST /cases/{caseID}/events/{eventID}/views.
// Marking an already-viewed event succeeds without changing anything.
func (h *CaseHandler) HandleMarkViewed(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	eventIDStr := chi.URLParam(r, "eventID")
	eventID, err := strconv.ParseInt(eventIDStr, 10, 64)
	if err != nil || eventID <= 0 {
		h.errorHandler.Handle(w, r, apperrors.NewBadRequestError(err, "Invalid event ID"))
		return
	}

	// The body is optional; an empty one defaults the channel.
	channel := "web"
	if r.ContentLength > 0 {
		req, err := validation.DecodeAndValidate[MarkViewedRequest](r)
		if err != nil {
			h.errorHandler.Handle(w, r, err)
			return
		}
		if req.Channel != "" {
			channel = req.Channel
		}
	}

	err = h.views.MarkViewed(r.Context(), ports.MarkViewedParams{
		EventID:    eventID,
		ViewerID:   claims.UserID,
		ViewerType: claims.Role.ViewerType(),
		Channel:    channel,
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteNoContent(w)
}

// --- Helpers ---

func (h *CaseHandler) parseCaseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	caseIDStr := chi.URLParam(r, "caseID")
	caseID, err := strconv.ParseInt(caseIDStr, 10, 64)
	if err != nil || caseID <= 0 {
		h.errorHandler.Handle(w, r, apperrors.NewBadRequestError(err, "Invalid case ID"))
		return 0, false
	}
	return caseID, true
}

func (h *CaseHandler) getClaims(w http.ResponseWriter, r *http.Request) (*auth.Claims, bool) {
	claims := mw.GetClaims(r.Context())
	if claims == nil {
		h.errorHandler.Handle(w, r, apperrors.NewUnauthorizedError("Authentication required"))
		return nil, false
	}
	return claims, true
}
