package dto

import (
	"time"

	"github.com/helpme/helpdesk/internal/domain"
)

// CreateTicketRequest payload for ticket creation.
type CreateTicketRequest struct {
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Priority    domain.TicketPriority `json:"priority"`
}

// CreateMessageRequest payload for the REST message append path.
type CreateMessageRequest struct {
	Body string `json:"message"`
}

// TicketSummary is the listing shape.
type TicketSummary struct {
	ID        string                `json:"id"`
	Title     string                `json:"title"`
	Status    domain.TicketStatus   `json:"status"`
	Priority  domain.TicketPriority `json:"priority"`
	CreatorID string                `json:"creator_id"`
	CreatedAt time.Time             `json:"created_at"`
	UpdatedAt time.Time             `json:"updated_at"`
}

// TicketDetailResponse includes the conversation transcript.
type TicketDetailResponse struct {
	ID          string                `json:"id"`
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Status      domain.TicketStatus   `json:"status"`
	Priority    domain.TicketPriority `json:"priority"`
	CreatorID   string                `json:"creator_id"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
	ClosedAt    *time.Time            `json:"closed_at,omitempty"`
	Messages    []MessageResponse     `json:"messages"`
}

// MessageResponse is one transcript entry.
type MessageResponse struct {
	ID            string    `json:"id"`
	AuthorID      string    `json:"author_id"`
	Body          string    `json:"message"`
	IsFile        bool      `json:"is_file"`
	FileName      *string   `json:"file_name,omitempty"`
	FileURL       *string   `json:"file_url,omitempty"`
	FileSizeBytes *int64    `json:"file_size,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// AttachmentResponse is attachment metadata.
type AttachmentResponse struct {
	ID        string    `json:"id"`
	FileName  string    `json:"file_name"`
	MimeType  string    `json:"mime_type"`
	SizeBytes int64     `json:"size_bytes"`
	FileURL   string    `json:"file_url"`
	CreatedAt time.Time `json:"created_at"`
}

// NotificationResponse is one inbox entry.
type NotificationResponse struct {
	ID        string    `json:"id"`
	TicketID  string    `json:"ticket_id"`
	Body      string    `json:"body"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}
