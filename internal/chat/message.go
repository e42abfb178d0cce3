package chat

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"
)

var ErrTimedOut = errors.New("wait_timed_out")

type Message struct {
	ID        string    `json:"id"`
	Author    string    `json:"author"`
	AuthorID  string    `json:"author_id,omitempty"`
	Content   string    `json:"content"`
	ReplyTo   string    `json:"reply_to,omitempty"`
	UserID    string    `json:"user_id,omitempty"`
	IsAgent   bool      `json:"is_agent"`
	CreatedAt time.Time `json:"created_at"`
}

// Outgoing is a message before the channel assigns it an id.
type Outgoing struct {
	Author   string
	AuthorID string
	Content  string
	ReplyTo  string
	UserID   string
	IsAgent  bool
}

type Predicate func(Message) bool

// Transport is the shared channel as seen by the game core.
type Transport interface {
	Send(ctx context.Context, msg Outgoing) (string, error)
	WaitForNext(ctx context.Context, pred Predicate, timeout time.Duration) (Message, error)
}

var modelSuffix = regexp.MustCompile(`^(.*\S)\s*\([^()]*\)\s*$`)

// NormalizeAuthor drops a trailing "(...)" decoration such as a model tag:
// "The Redditor (gemini-2.5-flash)" becomes "The Redditor".
func NormalizeAuthor(name string) string {
	trimmed := strings.TrimSpace(name)
	if m := modelSuffix.FindStringSubmatch(trimmed); m != nil {
		return m[1]
	}
	return trimmed
}

type WaitFunc func(ctx context.Context, timeout time.Duration) (Message, error)

// Expecter is implemented by transports that can register a wait before
// the message that provokes the reply is sent.
type Expecter interface {
	Expect(pred Predicate) (WaitFunc, func())
}

// Follower is implemented by transports that can keep one wait registered
// across several replies.
type Follower interface {
	Follow(pred Predicate) (WaitFunc, func())
}
