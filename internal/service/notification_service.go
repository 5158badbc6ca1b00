package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/helpme/helpdesk/internal/config"
	"github.com/helpme/helpdesk/internal/domain"
	"github.com/helpme/helpdesk/internal/events"
	"github.com/helpme/helpdesk/internal/repository"
)

// NotificationService turns domain events into inbox entries and serves
// the notification endpoints.
type NotificationService struct {
	notifications repository.NotificationRepository
	users         repository.UserRepository
	dispatcher    events.Dispatcher
	logger        *zap.Logger
	cfg           config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(notifications repository.NotificationRepository, users repository.UserRepository, dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	return &NotificationService{
		notifications: notifications,
		users:         users,
		dispatcher:    dispatcher,
		logger:        logger,
		cfg:           cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handleTicketCreated)
	n.dispatcher.Subscribe(events.EventTicketStatusChanged, n.handleTicketStatusChanged)
	n.dispatcher.Subscribe(events.EventTicketMessageAdded, n.handleTicketMessageAdded)
}

// List returns the caller's inbox.
func (n *NotificationService) List(ctx context.Context, userID string, unreadOnly bool, limit, offset int) ([]domain.Notification, error) {
	return n.notifications.ListByRecipient(ctx, userID, unreadOnly, limit, offset)
}

// MarkRead flags one notification as read for its recipient.
func (n *NotificationService) MarkRead(ctx context.Context, userID, notificationID string) error {
	return n.notifications.MarkRead(ctx, notificationID, userID)
}

func (n *NotificationService) handleTicketCreated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketCreatedPayload)
	if !ok {
		return nil
	}
	// New tickets land in every active agent's inbox.
	agents, err := n.users.ListByRole(ctx, domain.RoleAgent)
	if err != nil {
		n.logger.Warn("list agents for notification", zap.Error(err))
		return err
	}
	body := fmt.Sprintf("New ticket: %s", payload.Title)
	for i := range agents {
		n.create(ctx, agents[i].ID, event.TicketID, body)
	}
	n.sendEmailNotificationStub(ctx, event)
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleTicketStatusChanged(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketStatusChangedPayload)
	if !ok {
		return nil
	}
	n.logger.Info("TicketStatusChanged",
		zap.String("ticket_id", event.TicketID),
		zap.String("old_status", string(payload.OldStatus)),
		zap.String("new_status", string(payload.NewStatus)))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleTicketMessageAdded(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketMessageAddedPayload)
	if !ok {
		return nil
	}
	body := fmt.Sprintf("New reply: %s", payload.BodyPreview)
	if payload.IsFile {
		body = fmt.Sprintf("New file: %s", payload.BodyPreview)
	}

	if payload.AuthorID != payload.CreatorID {
		// An agent replied; notify the requester.
		n.create(ctx, payload.CreatorID, event.TicketID, body)
	} else {
		// The requester wrote; notify agents.
		agents, err := n.users.ListByRole(ctx, domain.RoleAgent)
		if err != nil {
			n.logger.Warn("list agents for notification", zap.Error(err))
			return err
		}
		for i := range agents {
			n.create(ctx, agents[i].ID, event.TicketID, body)
		}
	}
	n.sendEmailNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) create(ctx context.Context, recipientID, ticketID, body string) {
	notification := &domain.Notification{
		RecipientID: recipientID,
		TicketID:    ticketID,
		Body:        body,
	}
	if err := n.notifications.Create(ctx, notification); err != nil {
		n.logger.Warn("create notification",
			zap.String("recipient_id", recipientID),
			zap.String("ticket_id", ticketID),
			zap.Error(err))
	}
}

func (n *NotificationService) sendEmailNotificationStub(ctx context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" {
		return
	}
	n.logger.Debug("sendEmailNotificationStub",
		zap.String("from", n.cfg.EmailFrom),
		zap.String("ticket_id", event.TicketID),
		zap.String("event_type", string(event.Type)))
}

func (n *NotificationService) sendWebhookNotificationStub(ctx context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Debug("sendWebhookNotificationStub",
		zap.String("url", n.cfg.WebhookURL),
		zap.String("ticket_id", event.TicketID),
		zap.String("event_type", string(event.Type)))
}
