package domain

import "time"

// Role enumerates account roles within the helpdesk.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAgent Role = "AGENT"
	RoleAdmin Role = "ADMIN"
)

// UserStatus represents lifecycle states for an account.
type UserStatus string

const (
	UserStatusActive    UserStatus = "ACTIVE"
	UserStatusSuspended UserStatus = "SUSPENDED"
)

// User is the domain model for everyone who signs in: requesters, agents and admins.
type User struct {
	ID             string
	Username       string
	Name           string
	Email          string
	PasswordHash   string
	Role           Role
	OrganizationID *string
	Status         UserStatus
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// IsAgent reports whether the user holds the support-agent role.
func (u *User) IsAgent() bool {
	return u != nil && u.Role == RoleAgent
}
