package service

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helpme/helpdesk/internal/access"
	"github.com/helpme/helpdesk/internal/domain"
	"github.com/helpme/helpdesk/internal/events"
	"github.com/helpme/helpdesk/internal/repository"
	apperrors "github.com/helpme/helpdesk/pkg/util"
)

type fakeTicketRepo struct {
	tickets map[string]*domain.Ticket
	listed  *repository.TicketFilter
}

func newFakeTicketRepo(tickets ...*domain.Ticket) *fakeTicketRepo {
	repo := &fakeTicketRepo{tickets: make(map[string]*domain.Ticket)}
	for _, ticket := range tickets {
		repo.tickets[ticket.ID] = ticket
	}
	return repo
}

func (f *fakeTicketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	if ticket.ID == "" {
		ticket.ID = "generated"
	}
	ticket.CreatedAt = time.Now()
	ticket.UpdatedAt = ticket.CreatedAt
	f.tickets[ticket.ID] = ticket
	return nil
}

func (f *fakeTicketRepo) Update(_ context.Context, ticket *domain.Ticket) error {
	if _, ok := f.tickets[ticket.ID]; !ok {
		return pgx.ErrNoRows
	}
	ticket.UpdatedAt = time.Now()
	f.tickets[ticket.ID] = ticket
	return nil
}

func (f *fakeTicketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	ticket, ok := f.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *ticket
	return &copied, nil
}

func (f *fakeTicketRepo) ListWithFilter(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	f.listed = &filter
	var out []domain.Ticket
	for _, ticket := range f.tickets {
		if filter.CreatorID != nil && ticket.CreatorID != *filter.CreatorID {
			continue
		}
		out = append(out, *ticket)
	}
	return out, nil
}

type fakeMessageRepo struct {
	messages []domain.Message
	err      error
}

func (f *fakeMessageRepo) Create(_ context.Context, msg *domain.Message) error {
	if f.err != nil {
		return f.err
	}
	msg.ID = "msg-1"
	msg.CreatedAt = time.Now()
	f.messages = append(f.messages, *msg)
	return nil
}

func (f *fakeMessageRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.Message, error) {
	var out []domain.Message
	for _, msg := range f.messages {
		if msg.TicketID == ticketID {
			out = append(out, msg)
		}
	}
	return out, nil
}

type fakeAttachmentRepo struct {
	attachments map[string]*domain.Attachment
}

func newFakeAttachmentRepo() *fakeAttachmentRepo {
	return &fakeAttachmentRepo{attachments: make(map[string]*domain.Attachment)}
}

func (f *fakeAttachmentRepo) Create(_ context.Context, attachment *domain.Attachment) error {
	attachment.ID = "att-" + attachment.StorageKey
	attachment.CreatedAt = time.Now()
	f.attachments[attachment.StorageKey] = attachment
	return nil
}

func (f *fakeAttachmentRepo) GetByStorageKey(_ context.Context, key string) (*domain.Attachment, error) {
	attachment, ok := f.attachments[key]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return attachment, nil
}

func (f *fakeAttachmentRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.Attachment, error) {
	var out []domain.Attachment
	for _, attachment := range f.attachments {
		if attachment.TicketID == ticketID {
			out = append(out, *attachment)
		}
	}
	return out, nil
}

func newTicketServiceForTest(repo *fakeTicketRepo, msgs *fakeMessageRepo, dispatcher events.Dispatcher) *TicketService {
	return NewTicketService(TicketDependencies{
		TicketRepo:     repo,
		MessageRepo:    msgs,
		AttachmentRepo: newFakeAttachmentRepo(),
		Access:         access.NewService(),
		Dispatcher:     dispatcher,
	})
}

func requester(id string) *domain.User {
	return &domain.User{ID: id, Username: "user-" + id, Role: domain.RoleUser}
}

func agent() *domain.User {
	return &domain.User{ID: "agent-1", Username: "agent", Role: domain.RoleAgent}
}

func TestCreateTicketDefaultsAndEvent(t *testing.T) {
	repo := newFakeTicketRepo()
	dispatcher := events.NewInMemoryDispatcher()
	var published []events.Event
	dispatcher.Subscribe(events.EventTicketCreated, func(_ context.Context, e events.Event) error {
		published = append(published, e)
		return nil
	})
	svc := newTicketServiceForTest(repo, &fakeMessageRepo{}, dispatcher)

	ticket, err := svc.CreateTicket(context.Background(), requester("u1"), TicketCreateInput{
		Title:       "  Printer on fire  ",
		Description: "It is genuinely on fire.",
	})

	require.NoError(t, err)
	assert.Equal(t, "Printer on fire", ticket.Title)
	assert.Equal(t, domain.TicketStatusOpen, ticket.Status)
	assert.Equal(t, domain.TicketPriorityMedium, ticket.Priority)
	assert.Equal(t, "u1", ticket.CreatorID)
	require.Len(t, published, 1)
	assert.Equal(t, ticket.ID, published[0].TicketID)
}

func TestCreateTicketRequiresTitleAndDescription(t *testing.T) {
	svc := newTicketServiceForTest(newFakeTicketRepo(), &fakeMessageRepo{}, nil)

	_, err := svc.CreateTicket(context.Background(), requester("u1"), TicketCreateInput{Title: "   "})

	require.Error(t, err)
	domainErr := apperrors.ToDomainError(err)
	assert.Equal(t, "VALIDATION_FAILED", domainErr.Code)
}

func TestListTicketsScopesRequesterToOwn(t *testing.T) {
	repo := newFakeTicketRepo(
		&domain.Ticket{ID: "t1", CreatorID: "u1", Status: domain.TicketStatusOpen},
		&domain.Ticket{ID: "t2", CreatorID: "u2", Status: domain.TicketStatusOpen},
	)
	svc := newTicketServiceForTest(repo, &fakeMessageRepo{}, nil)

	own, err := svc.ListTickets(context.Background(), requester("u1"), TicketListFilter{})
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, "t1", own[0].ID)

	all, err := svc.ListTickets(context.Background(), agent(), TicketListFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Nil(t, repo.listed.CreatorID)
}

func TestGetTicketDeniesNonParticipant(t *testing.T) {
	repo := newFakeTicketRepo(&domain.Ticket{ID: "t1", CreatorID: "u1"})
	svc := newTicketServiceForTest(repo, &fakeMessageRepo{}, nil)

	_, _, err := svc.GetTicket(context.Background(), requester("u2"), "t1")

	require.Error(t, err)
	assert.Equal(t, "FORBIDDEN", apperrors.ToDomainError(err).Code)
}

func TestGetTicketIncludesTranscript(t *testing.T) {
	repo := newFakeTicketRepo(&domain.Ticket{ID: "t1", CreatorID: "u1"})
	msgs := &fakeMessageRepo{messages: []domain.Message{
		{ID: "m1", TicketID: "t1", Body: "hello"},
		{ID: "m2", TicketID: "other", Body: "not mine"},
	}}
	svc := newTicketServiceForTest(repo, msgs, nil)

	_, transcript, err := svc.GetTicket(context.Background(), requester("u1"), "t1")

	require.NoError(t, err)
	require.Len(t, transcript, 1)
	assert.Equal(t, "m1", transcript[0].ID)
}

func TestStatusTransitions(t *testing.T) {
	tests := []struct {
		name     string
		from     domain.TicketStatus
		progress bool
		wantCode string
	}{
		{name: "open to in_progress", from: domain.TicketStatusOpen, progress: true},
		{name: "open straight to closed", from: domain.TicketStatusOpen},
		{name: "in_progress to closed", from: domain.TicketStatusInProgress},
		{name: "closed is terminal", from: domain.TicketStatusClosed, wantCode: "CONFLICT"},
		{name: "in_progress cannot restart", from: domain.TicketStatusInProgress, progress: true, wantCode: "CONFLICT"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			repo := newFakeTicketRepo(&domain.Ticket{ID: "t1", CreatorID: "u1", Status: tc.from})
			svc := newTicketServiceForTest(repo, &fakeMessageRepo{}, nil)

			var err error
			var ticket *domain.Ticket
			if tc.progress {
				ticket, err = svc.StartProgress(context.Background(), agent(), "t1")
			} else {
				ticket, err = svc.CloseTicket(context.Background(), agent(), "t1")
			}

			if tc.wantCode != "" {
				require.Error(t, err)
				assert.Equal(t, tc.wantCode, apperrors.ToDomainError(err).Code)
				return
			}
			require.NoError(t, err)
			if tc.progress {
				assert.Equal(t, domain.TicketStatusInProgress, ticket.Status)
				assert.Nil(t, ticket.ClosedAt)
			} else {
				assert.Equal(t, domain.TicketStatusClosed, ticket.Status)
				require.NotNil(t, ticket.ClosedAt)
			}
		})
	}
}

func TestCloseTicketRequiresAgent(t *testing.T) {
	repo := newFakeTicketRepo(&domain.Ticket{ID: "t1", CreatorID: "u1", Status: domain.TicketStatusOpen})
	svc := newTicketServiceForTest(repo, &fakeMessageRepo{}, nil)

	_, err := svc.CloseTicket(context.Background(), requester("u1"), "t1")

	require.Error(t, err)
	assert.Equal(t, "FORBIDDEN", apperrors.ToDomainError(err).Code)
}

func TestTransitionMissingTicket(t *testing.T) {
	svc := newTicketServiceForTest(newFakeTicketRepo(), &fakeMessageRepo{}, nil)

	_, err := svc.CloseTicket(context.Background(), agent(), "absent")

	require.Error(t, err)
	assert.Equal(t, "NOT_FOUND", apperrors.ToDomainError(err).Code)
}
