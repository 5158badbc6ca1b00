package domain

import "time"

// Message is one entry in a ticket's conversation transcript. Rows are
// append-only and immutable once created; ordering follows CreatedAt,
// which is assigned at insert time.
type Message struct {
	ID            string
	TicketID      string
	AuthorID      string
	Body          string
	IsFile        bool
	FileName      *string
	FileURL       *string
	FileSizeBytes *int64
	CreatedAt     time.Time
}

// Attachment stores metadata for a file uploaded to a ticket. The bytes
// themselves live in the file store under StorageKey.
type Attachment struct {
	ID         string
	TicketID   string
	StorageKey string
	FileName   string
	MimeType   string
	SizeBytes  int64
	CreatedAt  time.Time
}
