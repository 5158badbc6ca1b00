// Package access is the single authorization point for ticket
// conversations. Every entry point that exposes a ticket's transcript
// (websocket connect, uploads, REST reads) consults the same predicate,
// so the rules cannot drift between handlers.
package access

import (
	"github.com/helpme/helpdesk/internal/domain"
)

// Service decides conversation membership.
type Service struct{}

// NewService constructs the service.
func NewService() *Service {
	return &Service{}
}

// CanAccess reports whether the user may join the ticket's conversation:
// support agents and the ticket's creator only. Admins are deliberately
// not granted chat access by role; an admin who files a ticket still
// qualifies as its creator.
func (s *Service) CanAccess(user *domain.User, ticket *domain.Ticket) bool {
	if user == nil || ticket == nil {
		return false
	}
	if user.IsAgent() {
		return true
	}
	return user.ID == ticket.CreatorID
}

// CanClose reports whether the user may close the ticket. Closing is an
// agent action.
func (s *Service) CanClose(user *domain.User, ticket *domain.Ticket) bool {
	if user == nil || ticket == nil {
		return false
	}
	return user.Role == domain.RoleAgent || user.Role == domain.RoleAdmin
}

// CanViewAll reports whether the user sees every ticket in listings.
func (s *Service) CanViewAll(user *domain.User) bool {
	return user != nil && (user.Role == domain.RoleAgent || user.Role == domain.RoleAdmin)
}
