package chat

import (
	"encoding/json"

	"github.com/helpme/helpdesk/internal/domain"
)

// timestampLayout is the display format carried on chat events.
const timestampLayout = "2006-01-02 15:04:05"

// inboundKind tags the parsed shape of a client frame.
type inboundKind int

const (
	inboundUnknown inboundKind = iota
	inboundPing
	inboundChat
)

// inboundFrame is the raw client payload. The two accepted shapes are
// {"type":"ping"} and {"message":"..."}; anything else is rejected at
// the boundary rather than silently ignored.
type inboundFrame struct {
	Type    *string `json:"type"`
	Message *string `json:"message"`
}

func parseInbound(raw []byte) (inboundKind, string) {
	var frame inboundFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		return inboundUnknown, ""
	}
	if frame.Type != nil {
		if *frame.Type == "ping" {
			return inboundPing, ""
		}
		return inboundUnknown, ""
	}
	if frame.Message != nil {
		return inboundChat, *frame.Message
	}
	return inboundUnknown, ""
}

// pongFrame is the liveness acknowledgment. It is written to the probing
// connection only and never persisted or broadcast.
type pongFrame struct {
	Type string `json:"type"`
}

func newPongFrame() pongFrame {
	return pongFrame{Type: "pong"}
}

// errorFrame is the only error shape surfaced to a remote caller.
type errorFrame struct {
	Error string `json:"error"`
}

func newErrorFrame() errorFrame {
	return errorFrame{Error: "Failed to process message"}
}

// Event is the chat payload fanned out to every member of a ticket's
// group. It doubles as the outbound wire frame.
type Event struct {
	Message   string  `json:"message"`
	Username  string  `json:"username"`
	Timestamp string  `json:"timestamp"`
	IsFile    bool    `json:"is_file"`
	FileName  *string `json:"file_name,omitempty"`
	FileURL   *string `json:"file_url,omitempty"`
	FileSize  *int64  `json:"file_size,omitempty"`
}

// NewEvent builds the broadcast payload for a persisted message.
func NewEvent(msg *domain.Message, username string) Event {
	event := Event{
		Message:   msg.Body,
		Username:  username,
		Timestamp: msg.CreatedAt.Format(timestampLayout),
		IsFile:    msg.IsFile,
	}
	if msg.IsFile {
		event.FileName = msg.FileName
		event.FileURL = msg.FileURL
		event.FileSize = msg.FileSizeBytes
	}
	return event
}
