package access

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/helpme/helpdesk/internal/domain"
)

func TestCanAccess(t *testing.T) {
	svc := NewService()
	ticket := &domain.Ticket{ID: "t1", CreatorID: "creator"}

	tests := []struct {
		name string
		user *domain.User
		want bool
	}{
		{name: "agent", user: &domain.User{ID: "staff", Role: domain.RoleAgent}, want: true},
		{name: "creator", user: &domain.User{ID: "creator", Role: domain.RoleUser}, want: true},
		{name: "unrelated user", user: &domain.User{ID: "other", Role: domain.RoleUser}, want: false},
		{name: "admin without ownership", user: &domain.User{ID: "boss", Role: domain.RoleAdmin}, want: false},
		{name: "admin who created the ticket", user: &domain.User{ID: "creator", Role: domain.RoleAdmin}, want: true},
		{name: "nil user", user: nil, want: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, svc.CanAccess(tc.user, ticket))
		})
	}
}

func TestCanAccessNilTicket(t *testing.T) {
	svc := NewService()
	assert.False(t, svc.CanAccess(&domain.User{ID: "u", Role: domain.RoleAgent}, nil))
}

func TestCanClose(t *testing.T) {
	svc := NewService()
	ticket := &domain.Ticket{ID: "t1", CreatorID: "creator"}

	assert.True(t, svc.CanClose(&domain.User{ID: "a", Role: domain.RoleAgent}, ticket))
	assert.True(t, svc.CanClose(&domain.User{ID: "b", Role: domain.RoleAdmin}, ticket))
	assert.False(t, svc.CanClose(&domain.User{ID: "creator", Role: domain.RoleUser}, ticket))
}

func TestCanViewAll(t *testing.T) {
	svc := NewService()

	assert.True(t, svc.CanViewAll(&domain.User{Role: domain.RoleAgent}))
	assert.True(t, svc.CanViewAll(&domain.User{Role: domain.RoleAdmin}))
	assert.False(t, svc.CanViewAll(&domain.User{Role: domain.RoleUser}))
	assert.False(t, svc.CanViewAll(nil))
}
