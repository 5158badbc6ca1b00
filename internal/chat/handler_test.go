package chat

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/helpme/helpdesk/internal/access"
	"github.com/helpme/helpdesk/internal/auth"
	"github.com/helpme/helpdesk/internal/domain"
	"github.com/helpme/helpdesk/internal/repository"
	apperrors "github.com/helpme/helpdesk/pkg/util"
)

type gateTicketRepo struct {
	tickets map[string]*domain.Ticket
	err     error
}

func (f *gateTicketRepo) Create(context.Context, *domain.Ticket) error { return nil }
func (f *gateTicketRepo) Update(context.Context, *domain.Ticket) error { return nil }
func (f *gateTicketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	if f.err != nil {
		return nil, f.err
	}
	ticket, ok := f.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *ticket
	return &copied, nil
}
func (f *gateTicketRepo) ListWithFilter(context.Context, repository.TicketFilter) ([]domain.Ticket, error) {
	return nil, nil
}

type gateUserRepo struct {
	users map[string]*domain.User
}

func (f *gateUserRepo) Create(context.Context, *domain.User) error { return nil }
func (f *gateUserRepo) Update(context.Context, *domain.User) error { return nil }
func (f *gateUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	user, ok := f.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return user, nil
}
func (f *gateUserRepo) GetByEmail(context.Context, string) (*domain.User, error) {
	return nil, pgx.ErrNoRows
}
func (f *gateUserRepo) GetByUsername(context.Context, string) (*domain.User, error) {
	return nil, pgx.ErrNoRows
}
func (f *gateUserRepo) ListByRole(context.Context, domain.Role) ([]domain.User, error) {
	return nil, nil
}

type gateFixture struct {
	app     *fiber.App
	tokens  *auth.TokenManager
	reached *bool
}

func newGateFixture(tickets *gateTicketRepo, users *gateUserRepo) *gateFixture {
	tokens := auth.NewTokenManager("gate-secret", 60)
	authMW := auth.NewAuthMiddleware(tokens, users)
	handler := NewHandler(tickets, access.NewService(), NewHub(), &fakeStore{}, zap.NewNop(), 8)

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.SendStatus(apperrors.ToDomainError(err).HTTPStatus)
		},
	})

	reached := false
	app.Get("/ws/tickets/:id", authMW.Handle, handler.Gate, func(c *fiber.Ctx) error {
		reached = true
		return c.SendStatus(fiber.StatusOK)
	})
	return &gateFixture{app: app, tokens: tokens, reached: &reached}
}

func (fx *gateFixture) token(t *testing.T, userID string, role domain.Role) string {
	t.Helper()
	token, _, err := fx.tokens.GenerateToken(userID, role)
	require.NoError(t, err)
	return token
}

func wsConnectRequest(ticketID, token string) *http.Request {
	target := "/ws/tickets/" + ticketID
	if token != "" {
		target += "?token=" + token
	}
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req.Header.Set("Connection", "Upgrade")
	req.Header.Set("Upgrade", "websocket")
	req.Header.Set("Sec-WebSocket-Version", "13")
	req.Header.Set("Sec-WebSocket-Key", "dGhlIHNhbXBsZSBub25jZQ==")
	return req
}

func bodyOf(t *testing.T, resp *http.Response) string {
	t.Helper()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(data)
}

func TestGateRefusesUnauthenticatedConnect(t *testing.T) {
	fx := newGateFixture(
		&gateTicketRepo{tickets: map[string]*domain.Ticket{"t1": {ID: "t1", CreatorID: "u1"}}},
		&gateUserRepo{users: map[string]*domain.User{}},
	)

	resp, err := fx.app.Test(wsConnectRequest("t1", ""))
	require.NoError(t, err)

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.NotContains(t, bodyOf(t, resp), "{", "refusal must carry no structured payload")
	assert.False(t, *fx.reached)
}

func TestGateRefusesInvalidToken(t *testing.T) {
	fx := newGateFixture(
		&gateTicketRepo{tickets: map[string]*domain.Ticket{"t1": {ID: "t1", CreatorID: "u1"}}},
		&gateUserRepo{users: map[string]*domain.User{}},
	)

	resp, err := fx.app.Test(wsConnectRequest("t1", "not-a-jwt"))
	require.NoError(t, err)

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.False(t, *fx.reached)
}

func TestGateRefusesMissingTicket(t *testing.T) {
	creator := &domain.User{ID: "u1", Username: "alice", Role: domain.RoleUser, Status: domain.UserStatusActive}
	fx := newGateFixture(
		&gateTicketRepo{tickets: map[string]*domain.Ticket{}},
		&gateUserRepo{users: map[string]*domain.User{"u1": creator}},
	)

	resp, err := fx.app.Test(wsConnectRequest("absent", fx.token(t, "u1", domain.RoleUser)))
	require.NoError(t, err)

	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "Forbidden", bodyOf(t, resp), "missing ticket must be indistinguishable from denied access")
	assert.False(t, *fx.reached)
}

func TestGateRefusesNonMember(t *testing.T) {
	stranger := &domain.User{ID: "u2", Username: "mallory", Role: domain.RoleUser, Status: domain.UserStatusActive}
	fx := newGateFixture(
		&gateTicketRepo{tickets: map[string]*domain.Ticket{"t1": {ID: "t1", CreatorID: "u1"}}},
		&gateUserRepo{users: map[string]*domain.User{"u2": stranger}},
	)

	resp, err := fx.app.Test(wsConnectRequest("t1", fx.token(t, "u2", domain.RoleUser)))
	require.NoError(t, err)

	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "Forbidden", bodyOf(t, resp))
	assert.False(t, *fx.reached)
}

func TestGateRefusesOnTicketLookupFault(t *testing.T) {
	// A backend fault must refuse like any denial, never surface a 5xx.
	user := &domain.User{ID: "u1", Username: "alice", Role: domain.RoleUser, Status: domain.UserStatusActive}
	fx := newGateFixture(
		&gateTicketRepo{err: errors.New("db down")},
		&gateUserRepo{users: map[string]*domain.User{"u1": user}},
	)

	resp, err := fx.app.Test(wsConnectRequest("t1", fx.token(t, "u1", domain.RoleUser)))
	require.NoError(t, err)

	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.False(t, *fx.reached)
}

func TestGateAdmitsCreatorAndAgent(t *testing.T) {
	creator := &domain.User{ID: "u1", Username: "alice", Role: domain.RoleUser, Status: domain.UserStatusActive}
	agent := &domain.User{ID: "a1", Username: "support", Role: domain.RoleAgent, Status: domain.UserStatusActive}
	tickets := &gateTicketRepo{tickets: map[string]*domain.Ticket{"t1": {ID: "t1", CreatorID: "u1"}}}
	users := &gateUserRepo{users: map[string]*domain.User{"u1": creator, "a1": agent}}

	for _, tc := range []struct {
		name   string
		userID string
		role   domain.Role
	}{
		{name: "creator", userID: "u1", role: domain.RoleUser},
		{name: "agent", userID: "a1", role: domain.RoleAgent},
	} {
		t.Run(tc.name, func(t *testing.T) {
			fx := newGateFixture(tickets, users)

			resp, err := fx.app.Test(wsConnectRequest("t1", fx.token(t, tc.userID, tc.role)))
			require.NoError(t, err)

			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.True(t, *fx.reached)
		})
	}
}

func TestGateRequiresUpgradeHeaders(t *testing.T) {
	creator := &domain.User{ID: "u1", Username: "alice", Role: domain.RoleUser, Status: domain.UserStatusActive}
	fx := newGateFixture(
		&gateTicketRepo{tickets: map[string]*domain.Ticket{"t1": {ID: "t1", CreatorID: "u1"}}},
		&gateUserRepo{users: map[string]*domain.User{"u1": creator}},
	)

	req := httptest.NewRequest(http.MethodGet, "/ws/tickets/t1?token="+fx.token(t, "u1", domain.RoleUser), nil)
	resp, err := fx.app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, http.StatusUpgradeRequired, resp.StatusCode)
	assert.False(t, *fx.reached)
}
