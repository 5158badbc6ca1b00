package domain

import "time"

// Organization groups requesters belonging to the same customer.
type Organization struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

// Profile carries contact details attached one-to-one to a user.
type Profile struct {
	ID          string
	UserID      string
	PhoneNumber *string
	Address     *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
