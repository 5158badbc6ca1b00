package service

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helpme/helpdesk/internal/access"
	"github.com/helpme/helpdesk/internal/chat"
	"github.com/helpme/helpdesk/internal/domain"
	"github.com/helpme/helpdesk/internal/events"
	apperrors "github.com/helpme/helpdesk/pkg/util"
)

type fakeFileStore struct {
	files   map[string][]byte
	removed []string
}

func newFakeFileStore() *fakeFileStore {
	return &fakeFileStore{files: make(map[string][]byte)}
}

func (f *fakeFileStore) Save(_ context.Context, key string, r io.Reader) (int64, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, err
	}
	f.files[key] = data
	return int64(len(data)), nil
}

func (f *fakeFileStore) Open(_ context.Context, key string) (io.ReadCloser, error) {
	data, ok := f.files[key]
	if !ok {
		return nil, io.ErrUnexpectedEOF
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *fakeFileStore) Remove(_ context.Context, key string) error {
	delete(f.files, key)
	f.removed = append(f.removed, key)
	return nil
}

type capturingRelay struct {
	published []chat.Event
	groups    []string
}

func (r *capturingRelay) Join(string, chat.Member)  {}
func (r *capturingRelay) Leave(string, chat.Member) {}
func (r *capturingRelay) Publish(_ context.Context, group string, event chat.Event) error {
	r.groups = append(r.groups, group)
	r.published = append(r.published, event)
	return nil
}

type chatFixture struct {
	svc      *ChatService
	tickets  *fakeTicketRepo
	messages *fakeMessageRepo
	relay    *capturingRelay
	files    *fakeFileStore
}

func newChatFixture(maxUpload int64, tickets ...*domain.Ticket) *chatFixture {
	repo := newFakeTicketRepo(tickets...)
	msgs := &fakeMessageRepo{}
	relay := &capturingRelay{}
	files := newFakeFileStore()
	svc := NewChatService(ChatDependencies{
		TicketRepo:     repo,
		MessageRepo:    msgs,
		AttachmentRepo: newFakeAttachmentRepo(),
		Access:         access.NewService(),
		Files:          files,
		Relay:          relay,
		Dispatcher:     events.NewInMemoryDispatcher(),
		MaxUploadBytes: maxUpload,
	})
	return &chatFixture{svc: svc, tickets: repo, messages: msgs, relay: relay, files: files}
}

func TestMaxUploadBytes(t *testing.T) {
	assert.Equal(t, int64(1024), newChatFixture(1024).svc.MaxUploadBytes())
	// Unset config falls back to the 10 MiB ceiling.
	assert.Equal(t, int64(10<<20), newChatFixture(0).svc.MaxUploadBytes())
}

func TestPostMessagePersistsAndBroadcasts(t *testing.T) {
	fx := newChatFixture(1024, &domain.Ticket{ID: "t1", CreatorID: "u1"})

	msg, err := fx.svc.PostMessage(context.Background(), requester("u1"), "t1", "  hello there  ")

	require.NoError(t, err)
	assert.Equal(t, "hello there", msg.Body)
	require.Len(t, fx.relay.published, 1)
	assert.Equal(t, []string{"chat_t1"}, fx.relay.groups)
	assert.Equal(t, "hello there", fx.relay.published[0].Message)
	assert.Equal(t, "user-u1", fx.relay.published[0].Username)
}

func TestPostMessageRejectsWhitespaceOnly(t *testing.T) {
	fx := newChatFixture(1024, &domain.Ticket{ID: "t1", CreatorID: "u1"})

	_, err := fx.svc.PostMessage(context.Background(), requester("u1"), "t1", "   ")

	require.Error(t, err)
	assert.Equal(t, "VALIDATION_FAILED", apperrors.ToDomainError(err).Code)
	assert.Empty(t, fx.messages.messages)
	assert.Empty(t, fx.relay.published)
}

func TestPostMessageDeniedForNonParticipant(t *testing.T) {
	fx := newChatFixture(1024, &domain.Ticket{ID: "t1", CreatorID: "u1"})

	_, err := fx.svc.PostMessage(context.Background(), requester("u2"), "t1", "hi")

	require.Error(t, err)
	assert.Equal(t, "FORBIDDEN", apperrors.ToDomainError(err).Code)
}

func TestSaveMessageMissingTicket(t *testing.T) {
	fx := newChatFixture(1024)

	_, err := fx.svc.SaveMessage(context.Background(), "absent", requester("u1"), "hi")

	require.Error(t, err)
	assert.Equal(t, "NOT_FOUND", apperrors.ToDomainError(err).Code)
}

func TestSaveFileUploadStoresAndBroadcasts(t *testing.T) {
	fx := newChatFixture(1024, &domain.Ticket{ID: "t1", CreatorID: "u1"})

	msg, attachment, err := fx.svc.SaveFileUpload(context.Background(), requester("u1"), "t1", FileUpload{
		FileName:  "notes.txt",
		MimeType:  "text/plain",
		SizeBytes: 5,
		Reader:    strings.NewReader("hello"),
	})

	require.NoError(t, err)
	assert.Equal(t, int64(5), attachment.SizeBytes)
	assert.Equal(t, "notes.txt", attachment.FileName)
	assert.True(t, msg.IsFile)
	require.NotNil(t, msg.FileURL)
	assert.Equal(t, "/files/"+attachment.StorageKey, *msg.FileURL)

	require.Len(t, fx.relay.published, 1)
	event := fx.relay.published[0]
	assert.True(t, event.IsFile)
	require.NotNil(t, event.FileName)
	assert.Equal(t, "notes.txt", *event.FileName)
}

func TestSaveFileUploadRejectsOversizeDeclaration(t *testing.T) {
	fx := newChatFixture(10, &domain.Ticket{ID: "t1", CreatorID: "u1"})

	_, _, err := fx.svc.SaveFileUpload(context.Background(), requester("u1"), "t1", FileUpload{
		FileName:  "big.bin",
		SizeBytes: 11,
		Reader:    strings.NewReader("0123456789X"),
	})

	require.Error(t, err)
	assert.Equal(t, "PAYLOAD_TOO_LARGE", apperrors.ToDomainError(err).Code)
	assert.Empty(t, fx.files.files, "nothing may be written for an oversize upload")
	assert.Empty(t, fx.messages.messages)
}

func TestSaveFileUploadRejectsUnderdeclaredOversizeStream(t *testing.T) {
	// Declared size fits, actual stream does not; bytes written so far
	// must be cleaned up.
	fx := newChatFixture(10, &domain.Ticket{ID: "t1", CreatorID: "u1"})

	_, _, err := fx.svc.SaveFileUpload(context.Background(), requester("u1"), "t1", FileUpload{
		FileName:  "sneaky.bin",
		SizeBytes: 5,
		Reader:    strings.NewReader(strings.Repeat("x", 64)),
	})

	require.Error(t, err)
	assert.Equal(t, "PAYLOAD_TOO_LARGE", apperrors.ToDomainError(err).Code)
	assert.Empty(t, fx.files.files)
	assert.Len(t, fx.files.removed, 1)
	assert.Empty(t, fx.messages.messages)
}

func TestOpenAttachmentEnforcesTicketAccess(t *testing.T) {
	fx := newChatFixture(1024, &domain.Ticket{ID: "t1", CreatorID: "u1"})

	_, attachment, err := fx.svc.SaveFileUpload(context.Background(), requester("u1"), "t1", FileUpload{
		FileName:  "notes.txt",
		SizeBytes: 5,
		Reader:    strings.NewReader("hello"),
	})
	require.NoError(t, err)

	_, _, err = fx.svc.OpenAttachment(context.Background(), requester("u2"), attachment.StorageKey)
	require.Error(t, err)
	assert.Equal(t, "FORBIDDEN", apperrors.ToDomainError(err).Code)

	got, reader, err := fx.svc.OpenAttachment(context.Background(), agent(), attachment.StorageKey)
	require.NoError(t, err)
	defer reader.Close()
	data, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
	assert.Equal(t, attachment.ID, got.ID)
}
