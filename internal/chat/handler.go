package chat

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/helpme/helpdesk/internal/access"
	"github.com/helpme/helpdesk/internal/auth"
	"github.com/helpme/helpdesk/internal/domain"
	"github.com/helpme/helpdesk/internal/repository"
)

const (
	ticketLocalsKey = "chat_ticket"
	userLocalsKey   = "chat_user"
)

// Handler serves the websocket chat endpoint for a ticket.
type Handler struct {
	tickets    repository.TicketRepository
	access     *access.Service
	relay      Relay
	store      MessageStore
	logger     *zap.Logger
	sendBuffer int
}

// NewHandler constructs the handler.
func NewHandler(tickets repository.TicketRepository, accessSvc *access.Service, relay Relay, store MessageStore, logger *zap.Logger, sendBuffer int) *Handler {
	return &Handler{
		tickets:    tickets,
		access:     accessSvc,
		relay:      relay,
		store:      store,
		logger:     logger,
		sendBuffer: sendBuffer,
	}
}

// Gate runs before the upgrade: it requires an authenticated principal
// and membership in the ticket's conversation. Failures refuse the
// connection with a bare status, no reason payload; a missing ticket is
// indistinguishable from a denied one.
func (h *Handler) Gate(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	user, ok := auth.UserFromContext(c)
	if !ok {
		return c.SendStatus(fiber.StatusUnauthorized)
	}

	ticket, err := h.tickets.GetByID(c.Context(), c.Params("id"))
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			h.logger.Error("load ticket for chat", zap.Error(err))
		}
		return c.SendStatus(fiber.StatusForbidden)
	}
	if !h.access.CanAccess(user, ticket) {
		return c.SendStatus(fiber.StatusForbidden)
	}

	c.Locals(ticketLocalsKey, ticket)
	c.Locals(userLocalsKey, user)
	return c.Next()
}

// Serve returns the upgraded connection handler. The session joins the
// ticket's group, a writer goroutine drains the outbox, and the read
// loop feeds frames to the session until the connection drops.
func (h *Handler) Serve() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		ticket, ok := conn.Locals(ticketLocalsKey).(*domain.Ticket)
		if !ok {
			_ = conn.Close()
			return
		}
		user, ok := conn.Locals(userLocalsKey).(*domain.User)
		if !ok {
			_ = conn.Close()
			return
		}

		session := NewSession(ticket.ID, user, h.relay, h.store, h.logger, h.sendBuffer)
		session.Join()
		defer session.Close()

		h.logger.Info("chat session opened",
			zap.String("ticket_id", ticket.ID),
			zap.String("user_id", user.ID))

		done := make(chan struct{})
		go func() {
			defer close(done)
			for frame := range session.Outbox() {
				if err := conn.WriteJSON(frame); err != nil {
					return
				}
			}
		}()

		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				break
			}
			session.HandleInbound(context.Background(), raw)
		}

		session.Close()
		<-done
		h.logger.Info("chat session closed",
			zap.String("ticket_id", ticket.ID),
			zap.String("user_id", user.ID))
	})
}
