package platforms

import "context"

type Field struct {
	Name   string
	Value  string
	Inline bool
}

// Message is one rendered session event. PanelKey, when set, names a
// message the adapter may edit in place instead of posting a new one.
type Message struct {
	SessionID   string
	Event       string
	PanelKey    string
	Title       string
	Content     string
	Description string
	Color       int
	Timestamp   string
	Footer      string
	Fields      []Field
}

type Adapter interface {
	Name() string
	Send(ctx context.Context, endpoint, secret string, msg Message) error
}
