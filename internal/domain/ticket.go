package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets. Progression is
// one-way: OPEN -> IN_PROGRESS -> CLOSED, with no reopen path.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "OPEN"
	TicketStatusInProgress TicketStatus = "IN_PROGRESS"
	TicketStatusClosed     TicketStatus = "CLOSED"
)

// TicketPriority enumerates urgency levels.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "LOW"
	TicketPriorityMedium TicketPriority = "MEDIUM"
	TicketPriorityHigh   TicketPriority = "HIGH"
)

// Ticket is the aggregate for support requests. CreatorID is immutable
// after creation.
type Ticket struct {
	ID          string
	Title       string
	Description string
	Status      TicketStatus
	Priority    TicketPriority
	CreatorID   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	ClosedAt    *time.Time
}
