package chat

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/helpme/helpdesk/internal/domain"
)

// MessageStore persists chat messages. The write is atomic: on success
// the returned message carries its server-assigned id and timestamp, on
// failure no row exists.
type MessageStore interface {
	SaveMessage(ctx context.Context, ticketID string, author *domain.User, body string) (*domain.Message, error)
}

// Session is one live connection scoped to a single ticket's
// conversation. It is created only after authentication and the access
// check have passed; authorization is not re-evaluated per message.
// Inbound frames are handled one at a time by the owning connection's
// read loop, so HandleInbound needs no internal ordering.
type Session struct {
	ticketID string
	user     *domain.User
	group    string
	relay    Relay
	store    MessageStore
	logger   *zap.Logger

	mu     sync.Mutex
	closed bool
	send   chan any
}

// NewSession builds a session for an authorized user on a ticket.
func NewSession(ticketID string, user *domain.User, relay Relay, store MessageStore, logger *zap.Logger, sendBuffer int) *Session {
	if sendBuffer <= 0 {
		sendBuffer = 32
	}
	return &Session{
		ticketID: ticketID,
		user:     user,
		group:    GroupForTicket(ticketID),
		relay:    relay,
		store:    store,
		logger:   logger,
		send:     make(chan any, sendBuffer),
	}
}

// Join registers the session in the ticket's broadcast group.
func (s *Session) Join() {
	s.relay.Join(s.group, s)
}

// Close deregisters the session and closes the outbox. Safe to call more
// than once, and safe on sessions that never joined.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.send)
	s.mu.Unlock()

	s.relay.Leave(s.group, s)
}

// Outbox exposes frames queued for the remote endpoint. The connection's
// writer goroutine drains it; it is closed by Close.
func (s *Session) Outbox() <-chan any {
	return s.send
}

// Deliver implements Member: queues a group event as an outbound frame.
func (s *Session) Deliver(event Event) {
	s.enqueue(event)
}

// HandleInbound processes one raw client frame. Receive faults never
// close the session; the caller keeps reading.
func (s *Session) HandleInbound(ctx context.Context, raw []byte) {
	kind, text := parseInbound(raw)
	switch kind {
	case inboundPing:
		// Keepalive echo only: no persistence, no broadcast.
		s.enqueue(newPongFrame())
	case inboundChat:
		s.handleChat(ctx, text)
	default:
		s.logger.Debug("rejecting unknown frame shape",
			zap.String("ticket_id", s.ticketID),
			zap.String("user_id", s.user.ID))
		s.enqueue(newErrorFrame())
	}
}

func (s *Session) handleChat(ctx context.Context, text string) {
	body := strings.TrimSpace(text)
	if body == "" {
		return
	}

	msg, err := s.store.SaveMessage(ctx, s.ticketID, s.user, body)
	if err != nil {
		s.logger.Warn("save chat message",
			zap.String("ticket_id", s.ticketID),
			zap.String("user_id", s.user.ID),
			zap.Error(err))
		s.enqueue(newErrorFrame())
		return
	}

	if err := s.relay.Publish(ctx, s.group, NewEvent(msg, s.user.Username)); err != nil {
		s.logger.Warn("publish chat event",
			zap.String("ticket_id", s.ticketID),
			zap.Error(err))
		s.enqueue(newErrorFrame())
	}
}

func (s *Session) enqueue(frame any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.send <- frame:
	default:
		// A stalled consumer drops frames rather than blocking the group.
		s.logger.Warn("outbox full, dropping frame",
			zap.String("ticket_id", s.ticketID),
			zap.String("user_id", s.user.ID))
	}
}
