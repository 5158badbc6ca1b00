package events

import (
	"time"

	"github.com/helpme/helpdesk/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventTicketStatusChanged EventType = "ticket_status_changed"
	EventTicketMessageAdded  EventType = "ticket_message_added"
	EventTicketFileUploaded  EventType = "ticket_file_uploaded"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	ActorID   string      `json:"actor_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	CreatorID string                `json:"creator_id"`
	Priority  domain.TicketPriority `json:"priority"`
	Title     string                `json:"title"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
}

// TicketMessageAddedPayload payload.
type TicketMessageAddedPayload struct {
	MessageID   string `json:"message_id"`
	AuthorID    string `json:"author_id"`
	CreatorID   string `json:"creator_id"`
	IsFile      bool   `json:"is_file"`
	BodyPreview string `json:"body_preview"`
}

// TicketFileUploadedPayload payload.
type TicketFileUploadedPayload struct {
	AttachmentID string `json:"attachment_id"`
	FileName     string `json:"file_name"`
	SizeBytes    int64  `json:"size_bytes"`
}
