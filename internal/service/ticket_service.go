package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/helpme/helpdesk/internal/access"
	"github.com/helpme/helpdesk/internal/domain"
	"github.com/helpme/helpdesk/internal/events"
	"github.com/helpme/helpdesk/internal/repository"
	apperrors "github.com/helpme/helpdesk/pkg/util"
)

// TicketService coordinates ticket workflows.
type TicketService struct {
	tickets     repository.TicketRepository
	messages    repository.MessageRepository
	attachments repository.AttachmentRepository
	access      *access.Service
	dispatcher  events.Dispatcher
}

// TicketDependencies bundles repositories for ticket service.
type TicketDependencies struct {
	TicketRepo     repository.TicketRepository
	MessageRepo    repository.MessageRepository
	AttachmentRepo repository.AttachmentRepository
	Access         *access.Service
	Dispatcher     events.Dispatcher
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Title       string
	Description string
	Priority    domain.TicketPriority
}

// TicketListFilter describes listing filters.
type TicketListFilter struct {
	Statuses    []domain.TicketStatus
	Priorities  []domain.TicketPriority
	SearchTerm  *string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Limit       int
	Offset      int
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets:     deps.TicketRepo,
		messages:    deps.MessageRepo,
		attachments: deps.AttachmentRepo,
		access:      deps.Access,
		dispatcher:  deps.Dispatcher,
	}
}

// CreateTicket creates a ticket owned by the caller.
func (s *TicketService) CreateTicket(ctx context.Context, user *domain.User, input TicketCreateInput) (*domain.Ticket, error) {
	title := strings.TrimSpace(input.Title)
	description := strings.TrimSpace(input.Description)
	if title == "" || description == "" {
		return nil, apperrors.NewValidationError("title and description required", nil)
	}

	ticket := &domain.Ticket{
		Title:       title,
		Description: description,
		Status:      domain.TicketStatusOpen,
		Priority:    input.Priority,
		CreatorID:   user.ID,
	}
	if ticket.Priority == "" {
		ticket.Priority = domain.TicketPriorityMedium
	}

	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, err
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		ActorID:  user.ID,
		Payload: events.TicketCreatedPayload{
			CreatorID: ticket.CreatorID,
			Priority:  ticket.Priority,
			Title:     ticket.Title,
		},
	})
	return ticket, nil
}

// ListTickets returns tickets visible to the caller: requesters see
// their own, agents and admins see everything.
func (s *TicketService) ListTickets(ctx context.Context, user *domain.User, filter TicketListFilter) ([]domain.Ticket, error) {
	repoFilter := repository.TicketFilter{
		Statuses:    filter.Statuses,
		Priorities:  filter.Priorities,
		SearchTerm:  filter.SearchTerm,
		CreatedFrom: filter.CreatedFrom,
		CreatedTo:   filter.CreatedTo,
		Limit:       filter.Limit,
		Offset:      filter.Offset,
	}
	if !s.access.CanViewAll(user) {
		repoFilter.CreatorID = &user.ID
	}
	return s.tickets.ListWithFilter(ctx, repoFilter)
}

// GetTicket fetches a ticket with its transcript, enforcing membership.
func (s *TicketService) GetTicket(ctx context.Context, user *domain.User, ticketID string) (*domain.Ticket, []domain.Message, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, nil, err
	}
	if !s.access.CanAccess(user, ticket) {
		return nil, nil, apperrors.NewForbidden("not a conversation participant")
	}
	msgs, err := s.messages.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, nil, err
	}
	return ticket, msgs, nil
}

// CloseTicket moves a ticket to CLOSED. Agents close tickets; the
// progression is one-way and closing twice is rejected.
func (s *TicketService) CloseTicket(ctx context.Context, user *domain.User, ticketID string) (*domain.Ticket, error) {
	return s.transition(ctx, user, ticketID, domain.TicketStatusClosed)
}

// StartProgress moves a ticket from OPEN to IN_PROGRESS.
func (s *TicketService) StartProgress(ctx context.Context, user *domain.User, ticketID string) (*domain.Ticket, error) {
	return s.transition(ctx, user, ticketID, domain.TicketStatusInProgress)
}

func (s *TicketService) transition(ctx context.Context, user *domain.User, ticketID string, next domain.TicketStatus) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, err
	}
	if !s.access.CanClose(user, ticket) {
		return nil, apperrors.NewForbidden("agent role required")
	}
	if !isValidTransition(ticket.Status, next) {
		return nil, apperrors.NewConflict("invalid status transition", map[string]any{
			"from": ticket.Status,
			"to":   next,
		})
	}

	oldStatus := ticket.Status
	ticket.Status = next
	if next == domain.TicketStatusClosed {
		now := time.Now()
		ticket.ClosedAt = &now
	}
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, err
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: ticket.ID,
		ActorID:  user.ID,
		Payload: events.TicketStatusChangedPayload{
			OldStatus: oldStatus,
			NewStatus: next,
		},
	})
	return ticket, nil
}

// ListAttachments returns attachment metadata for a ticket the caller
// may access.
func (s *TicketService) ListAttachments(ctx context.Context, user *domain.User, ticketID string) ([]domain.Attachment, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, err
	}
	if !s.access.CanAccess(user, ticket) {
		return nil, apperrors.NewForbidden("not a conversation participant")
	}
	return s.attachments.ListByTicket(ctx, ticket.ID)
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

// Status moves one way: OPEN -> IN_PROGRESS -> CLOSED. OPEN may close
// directly; CLOSED is terminal.
var allowedTransitions = map[domain.TicketStatus][]domain.TicketStatus{
	domain.TicketStatusOpen:       {domain.TicketStatusInProgress, domain.TicketStatusClosed},
	domain.TicketStatusInProgress: {domain.TicketStatusClosed},
	domain.TicketStatusClosed:     {},
}

func isValidTransition(current, next domain.TicketStatus) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}
