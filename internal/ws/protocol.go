package ws

import "agent-arena/internal/chat"

const ProtocolVersion = "1.0"

// SpectateMessage switches the connection to a stream. Stream is "channel"
// (default) or "session".
type SpectateMessage struct {
	Type        string `json:"type"`
	Stream      string `json:"stream,omitempty"`
	LastEventID string `json:"last_event_id,omitempty"`
}

// SayMessage posts a human message on the shared channel.
type SayMessage struct {
	Type    string `json:"type"`
	Author  string `json:"author"`
	UserID  string `json:"user_id,omitempty"`
	Content string `json:"content"`
	ReplyTo string `json:"reply_to,omitempty"`
}

type SayResult struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Ok              bool   `json:"ok"`
	Error           string `json:"error,omitempty"`
	MessageID       string `json:"message_id,omitempty"`
}

type SpectateResult struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Ok              bool   `json:"ok"`
	Error           string `json:"error,omitempty"`
	Stream          string `json:"stream,omitempty"`
}

type EventMessage struct {
	Type            string           `json:"type"`
	ProtocolVersion string           `json:"protocol_version"`
	Event           chat.StreamEvent `json:"event"`
}
