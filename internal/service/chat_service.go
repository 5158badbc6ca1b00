package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/helpme/helpdesk/internal/access"
	"github.com/helpme/helpdesk/internal/chat"
	"github.com/helpme/helpdesk/internal/domain"
	"github.com/helpme/helpdesk/internal/events"
	"github.com/helpme/helpdesk/internal/repository"
	"github.com/helpme/helpdesk/internal/storage"
	apperrors "github.com/helpme/helpdesk/pkg/util"
)

// ChatService owns message persistence for the realtime conversation
// and the file-upload side channel. It implements chat.MessageStore for
// websocket sessions; sessions publish their own broadcast, while the
// REST and upload paths publish here so live viewers see the message
// without duplication.
type ChatService struct {
	tickets        repository.TicketRepository
	messages       repository.MessageRepository
	attachments    repository.AttachmentRepository
	access         *access.Service
	files          storage.FileStore
	relay          chat.Relay
	dispatcher     events.Dispatcher
	maxUploadBytes int64
}

// ChatDependencies bundles collaborators for the chat service.
type ChatDependencies struct {
	TicketRepo     repository.TicketRepository
	MessageRepo    repository.MessageRepository
	AttachmentRepo repository.AttachmentRepository
	Access         *access.Service
	Files          storage.FileStore
	Relay          chat.Relay
	Dispatcher     events.Dispatcher
	MaxUploadBytes int64
}

// FileUpload describes an incoming multipart file.
type FileUpload struct {
	FileName  string
	MimeType  string
	SizeBytes int64
	Reader    io.Reader
}

// NewChatService constructs the service.
func NewChatService(deps ChatDependencies) *ChatService {
	maxBytes := deps.MaxUploadBytes
	if maxBytes <= 0 {
		maxBytes = 10 << 20
	}
	return &ChatService{
		tickets:        deps.TicketRepo,
		messages:       deps.MessageRepo,
		attachments:    deps.AttachmentRepo,
		access:         deps.Access,
		files:          deps.Files,
		relay:          deps.Relay,
		dispatcher:     deps.Dispatcher,
		maxUploadBytes: maxBytes,
	}
}

// MaxUploadBytes reports the configured upload ceiling.
func (s *ChatService) MaxUploadBytes() int64 {
	return s.maxUploadBytes
}

// SaveMessage persists one text message after confirming the ticket
// still exists. The insert is a single row: either the message exists
// fully populated or not at all. Posting to a closed ticket is not
// blocked here; see DESIGN.md.
func (s *ChatService) SaveMessage(ctx context.Context, ticketID string, author *domain.User, body string) (*domain.Message, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, err
	}

	msg := &domain.Message{
		TicketID: ticketID,
		AuthorID: author.ID,
		Body:     body,
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, err
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketMessageAdded,
		TicketID: ticketID,
		ActorID:  author.ID,
		Payload: events.TicketMessageAddedPayload{
			MessageID:   msg.ID,
			AuthorID:    author.ID,
			CreatorID:   ticket.CreatorID,
			BodyPreview: bodyPreview(msg.Body, 120),
		},
	})
	return msg, nil
}

// PostMessage is the REST append path: membership check, persistence,
// then fan-out through the relay so connected sessions receive it.
func (s *ChatService) PostMessage(ctx context.Context, author *domain.User, ticketID, body string) (*domain.Message, error) {
	ticket, err := s.loadAuthorized(ctx, author, ticketID)
	if err != nil {
		return nil, err
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, apperrors.NewValidationError("message body required", nil)
	}

	msg, err := s.SaveMessage(ctx, ticket.ID, author, body)
	if err != nil {
		return nil, err
	}
	s.broadcast(ctx, ticket.ID, msg, author)
	return msg, nil
}

// SaveFileUpload stores the file, records the attachment and its
// file-tagged transcript message, then fans the event out. Files over
// the ceiling are rejected before any byte is written.
func (s *ChatService) SaveFileUpload(ctx context.Context, author *domain.User, ticketID string, upload FileUpload) (*domain.Message, *domain.Attachment, error) {
	ticket, err := s.loadAuthorized(ctx, author, ticketID)
	if err != nil {
		return nil, nil, err
	}
	if upload.SizeBytes > s.maxUploadBytes {
		return nil, nil, apperrors.NewPayloadTooLarge("file exceeds upload limit", map[string]any{
			"max_bytes":  s.maxUploadBytes,
			"size_bytes": upload.SizeBytes,
		})
	}
	if strings.TrimSpace(upload.FileName) == "" {
		return nil, nil, apperrors.NewValidationError("file name required", nil)
	}

	key := uuid.NewString()
	written, err := s.files.Save(ctx, key, io.LimitReader(upload.Reader, s.maxUploadBytes+1))
	if err != nil {
		return nil, nil, err
	}
	if written > s.maxUploadBytes {
		_ = s.files.Remove(ctx, key)
		return nil, nil, apperrors.NewPayloadTooLarge("file exceeds upload limit", map[string]any{
			"max_bytes": s.maxUploadBytes,
		})
	}

	attachment := &domain.Attachment{
		TicketID:   ticket.ID,
		StorageKey: key,
		FileName:   upload.FileName,
		MimeType:   upload.MimeType,
		SizeBytes:  written,
	}
	if err := s.attachments.Create(ctx, attachment); err != nil {
		_ = s.files.Remove(ctx, key)
		return nil, nil, err
	}

	fileURL := "/files/" + key
	msg := &domain.Message{
		TicketID:      ticket.ID,
		AuthorID:      author.ID,
		Body:          upload.FileName,
		IsFile:        true,
		FileName:      &attachment.FileName,
		FileURL:       &fileURL,
		FileSizeBytes: &attachment.SizeBytes,
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, nil, err
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketFileUploaded,
		TicketID: ticket.ID,
		ActorID:  author.ID,
		Payload: events.TicketFileUploadedPayload{
			AttachmentID: attachment.ID,
			FileName:     attachment.FileName,
			SizeBytes:    attachment.SizeBytes,
		},
	})
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketMessageAdded,
		TicketID: ticket.ID,
		ActorID:  author.ID,
		Payload: events.TicketMessageAddedPayload{
			MessageID:   msg.ID,
			AuthorID:    author.ID,
			CreatorID:   ticket.CreatorID,
			IsFile:      true,
			BodyPreview: bodyPreview(msg.Body, 120),
		},
	})
	s.broadcast(ctx, ticket.ID, msg, author)
	return msg, attachment, nil
}

// OpenAttachment resolves a storage key to its metadata and byte stream
// for a caller with conversation access.
func (s *ChatService) OpenAttachment(ctx context.Context, user *domain.User, storageKey string) (*domain.Attachment, io.ReadCloser, error) {
	attachment, err := s.attachments.GetByStorageKey(ctx, storageKey)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, apperrors.NewNotFound("attachment", nil)
		}
		return nil, nil, err
	}
	if _, err := s.loadAuthorized(ctx, user, attachment.TicketID); err != nil {
		return nil, nil, err
	}
	reader, err := s.files.Open(ctx, attachment.StorageKey)
	if err != nil {
		return nil, nil, err
	}
	return attachment, reader, nil
}

func (s *ChatService) loadAuthorized(ctx context.Context, user *domain.User, ticketID string) (*domain.Ticket, error) {
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
	return ticket, nil
}

func (s *ChatService) broadcast(ctx context.Context, ticketID string, msg *domain.Message, author *domain.User) {
	if s.relay == nil {
		return
	}
	_ = s.relay.Publish(ctx, chat.GroupForTicket(ticketID), chat.NewEvent(msg, author.Username))
}

func (s *ChatService) publishEvent(ctx context.Context, event events.Event) {
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

func bodyPreview(body string, max int) string {
	body = strings.TrimSpace(body)
	if len(body) <= max {
		return body
	}
	if max <= 3 {
		return body[:max]
	}
	return body[:max-3] + "..."
}
