package domain

import "time"

// Notification is an inbox entry produced from ticket activity.
type Notification struct {
	ID          string
	RecipientID string
	TicketID    string
	Body        string
	Read        bool
	CreatedAt   time.Time
}
