package chat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/helpme/helpdesk/internal/domain"
)

func TestParseInbound(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		wantKind inboundKind
		wantText string
	}{
		{name: "ping", raw: `{"type":"ping"}`, wantKind: inboundPing},
		{name: "chat", raw: `{"message":"hello"}`, wantKind: inboundChat, wantText: "hello"},
		{name: "empty message is still chat", raw: `{"message":""}`, wantKind: inboundChat, wantText: ""},
		{name: "unknown type", raw: `{"type":"pong"}`, wantKind: inboundUnknown},
		{name: "type wins over message", raw: `{"type":"subscribe","message":"hi"}`, wantKind: inboundUnknown},
		{name: "neither field", raw: `{"foo":"bar"}`, wantKind: inboundUnknown},
		{name: "not json", raw: `hello`, wantKind: inboundUnknown},
		{name: "empty", raw: ``, wantKind: inboundUnknown},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			kind, text := parseInbound([]byte(tc.raw))
			assert.Equal(t, tc.wantKind, kind)
			assert.Equal(t, tc.wantText, text)
		})
	}
}

func TestNewEventTextMessage(t *testing.T) {
	created := time.Date(2024, 3, 1, 9, 30, 5, 0, time.UTC)
	msg := &domain.Message{Body: "hello", CreatedAt: created}

	event := NewEvent(msg, "alice")

	assert.Equal(t, "hello", event.Message)
	assert.Equal(t, "alice", event.Username)
	assert.Equal(t, "2024-03-01 09:30:05", event.Timestamp)
	assert.False(t, event.IsFile)
	assert.Nil(t, event.FileName)
	assert.Nil(t, event.FileURL)
	assert.Nil(t, event.FileSize)
}

func TestNewEventFileMessage(t *testing.T) {
	name := "report.pdf"
	url := "/files/abc"
	size := int64(2048)
	msg := &domain.Message{
		Body:          name,
		IsFile:        true,
		FileName:      &name,
		FileURL:       &url,
		FileSizeBytes: &size,
		CreatedAt:     time.Now(),
	}

	event := NewEvent(msg, "bob")

	assert.True(t, event.IsFile)
	assert.Equal(t, &name, event.FileName)
	assert.Equal(t, &url, event.FileURL)
	assert.Equal(t, &size, event.FileSize)
}

func TestGroupForTicket(t *testing.T) {
	assert.Equal(t, "chat_t-1", GroupForTicket("t-1"))
}
