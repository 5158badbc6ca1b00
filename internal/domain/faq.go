package domain

import "time"

// FAQ is a knowledge-base entry authored by staff.
type FAQ struct {
	ID        string
	Question  string
	Answer    string
	Category  string
	CreatorID string
	CreatedAt time.Time
}
