package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"agent-arena/internal/ids"
)

var ErrEmptyMessage = errors.New("empty_message")

type waiter struct {
	pred Predicate
	ch   chan Message
	// follow waiters stay registered and queue every match.
	follow bool
}

const followQueue = 32

// Hub is the in-process shared channel every agent and the game core post into.
type Hub struct {
	mu      sync.Mutex
	max     int
	log     []Message
	waiters map[*waiter]struct{}
	subs    map[chan Message]struct{}
	public  *EventBuffer
	now     func() time.Time
}

func NewHub(maxLog int) *Hub {
	if maxLog <= 0 {
		maxLog = 1000
	}
	return &Hub{
		max:     maxLog,
		waiters: map[*waiter]struct{}{},
		subs:    map[chan Message]struct{}{},
		public:  NewEventBuffer("channel", maxLog),
		now:     time.Now,
	}
}

// Send normalizes the author, stores the message and wakes matching waiters.
// Predicates run under the hub lock and must not call back into the hub.
func (h *Hub) Send(_ context.Context, out Outgoing) (string, error) {
	content := strings.TrimSpace(out.Content)
	if content == "" {
		return "", ErrEmptyMessage
	}
	msg := Message{
		ID:        ids.New(),
		Author:    NormalizeAuthor(out.Author),
		AuthorID:  out.AuthorID,
		Content:   content,
		ReplyTo:   out.ReplyTo,
		UserID:    out.UserID,
		IsAgent:   out.IsAgent,
		CreatedAt: h.now(),
	}

	h.mu.Lock()
	h.log = append(h.log, msg)
	if len(h.log) > h.max {
		h.log = h.log[len(h.log)-h.max:]
	}
	for w := range h.waiters {
		if w.pred != nil && !w.pred(msg) {
			continue
		}
		if w.follow {
			select {
			case w.ch <- msg:
			default:
			}
			continue
		}
		w.ch <- msg
		delete(h.waiters, w)
	}
	for ch := range h.subs {
		select {
		case ch <- msg:
		default:
		}
	}
	h.mu.Unlock()

	h.public.Append("message", msg)
	return msg.ID, nil
}

// WaitForNext blocks until a message sent after the call satisfies pred.
func (h *Hub) WaitForNext(ctx context.Context, pred Predicate, timeout time.Duration) (Message, error) {
	wait, _ := h.Expect(pred)
	return wait(ctx, timeout)
}

// Expect registers pred now and returns the wait for it, so a reply that
// races the message provoking it is not lost. cancel drops an unused wait.
func (h *Hub) Expect(pred Predicate) (WaitFunc, func()) {
	w := &waiter{pred: pred, ch: make(chan Message, 1)}
	h.mu.Lock()
	h.waiters[w] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		delete(h.waiters, w)
		h.mu.Unlock()
	}
	wait := func(ctx context.Context, timeout time.Duration) (Message, error) {
		var timer <-chan time.Time
		if timeout > 0 {
			t := time.NewTimer(timeout)
			defer t.Stop()
			timer = t.C
		}

		select {
		case msg := <-w.ch:
			return msg, nil
		case <-timer:
		case <-ctx.Done():
		}

		h.mu.Lock()
		_, pending := h.waiters[w]
		delete(h.waiters, w)
		h.mu.Unlock()
		if !pending {
			select {
			case msg := <-w.ch:
				// delivered while we were giving up
				return msg, nil
			default:
			}
		}
		if err := ctx.Err(); err != nil {
			return Message{}, err
		}
		return Message{}, ErrTimedOut
	}
	return wait, cancel
}

// Follow registers pred until cancel and queues every matching message, so
// nothing sent between two waits is missed. Each wait returns the oldest
// queued match. Matches beyond the queue capacity are dropped.
func (h *Hub) Follow(pred Predicate) (WaitFunc, func()) {
	w := &waiter{pred: pred, ch: make(chan Message, followQueue), follow: true}
	h.mu.Lock()
	h.waiters[w] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		delete(h.waiters, w)
		h.mu.Unlock()
	}
	wait := func(ctx context.Context, timeout time.Duration) (Message, error) {
		if timeout <= 0 {
			select {
			case msg := <-w.ch:
				return msg, nil
			default:
				return Message{}, ErrTimedOut
			}
		}
		t := time.NewTimer(timeout)
		defer t.Stop()
		select {
		case msg := <-w.ch:
			return msg, nil
		case <-t.C:
			return Message{}, ErrTimedOut
		case <-ctx.Done():
			return Message{}, ctx.Err()
		}
	}
	return wait, cancel
}

// Subscribe streams every message to the caller until cancel is called.
func (h *Hub) Subscribe() (<-chan Message, func()) {
	ch := make(chan Message, 64)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			h.mu.Unlock()
			close(ch)
		})
	}
}

func (h *Hub) Recent(n int) []Message {
	h.mu.Lock()
	defer h.mu.Unlock()
	if n <= 0 || n > len(h.log) {
		n = len(h.log)
	}
	out := make([]Message, n)
	copy(out, h.log[len(h.log)-n:])
	return out
}

func (h *Hub) Events() *EventBuffer {
	return h.public
}
