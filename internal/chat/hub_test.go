package chat

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestHubWaitForNextMatchesPredicate(t *testing.T) {
	h := NewHub(10)
	ctx := context.Background()

	got := make(chan Message, 1)
	go func() {
		msg, err := h.WaitForNext(ctx, func(m Message) bool { return m.Author == "Bard" }, time.Second)
		if err != nil {
			t.Errorf("WaitForNext() error = %v", err)
		}
		got <- msg
	}()

	deadline := time.Now().Add(time.Second)
	for {
		h.mu.Lock()
		n := len(h.waiters)
		h.mu.Unlock()
		if n == 1 || time.Now().After(deadline) {
			break
		}
		time.Sleep(time.Millisecond)
	}

	if _, err := h.Send(ctx, Outgoing{Author: "Sage", Content: "e2e4"}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if _, err := h.Send(ctx, Outgoing{Author: "Bard (openai/gpt-4.1-mini)", Content: "e7e5"}); err != nil {
		t.Fatalf("send: %v", err)
	}

	select {
	case msg := <-got:
		if msg.Author != "Bard" || msg.Content != "e7e5" {
			t.Fatalf("unexpected message: %+v", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for match")
	}
}

func TestHubWaitForNextTimesOut(t *testing.T) {
	h := NewHub(10)
	_, err := h.WaitForNext(context.Background(), nil, 20*time.Millisecond)
	if !errors.Is(err, ErrTimedOut) {
		t.Fatalf("err = %v, want ErrTimedOut", err)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.waiters) != 0 {
		t.Fatalf("waiter leaked: %d", len(h.waiters))
	}
}

func TestHubWaitForNextHonorsContext(t *testing.T) {
	h := NewHub(10)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := h.WaitForNext(ctx, nil, time.Second)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestHubRecentAndSubscribe(t *testing.T) {
	h := NewHub(2)
	ch, cancel := h.Subscribe()
	defer cancel()
	ctx := context.Background()
	for _, c := range []string{"one", "two", "three"} {
		if _, err := h.Send(ctx, Outgoing{Author: "user", Content: c}); err != nil {
			t.Fatalf("send %s: %v", c, err)
		}
	}
	recent := h.Recent(0)
	if len(recent) != 2 || recent[0].Content != "two" || recent[1].Content != "three" {
		t.Fatalf("unexpected recent: %+v", recent)
	}
	if msg := <-ch; msg.Content != "one" {
		t.Fatalf("first streamed = %q, want one", msg.Content)
	}
	if _, err := h.Send(ctx, Outgoing{Author: "user", Content: "   "}); !errors.Is(err, ErrEmptyMessage) {
		t.Fatalf("err = %v, want ErrEmptyMessage", err)
	}
	if evs := h.Events().ReplayAfter(""); len(evs) != 2 {
		t.Fatalf("public events = %d, want 2", len(evs))
	}
}

func TestHubExpectCatchesReplySentBeforeWait(t *testing.T) {
	h := NewHub(10)
	ctx := context.Background()
	wait, cancel := h.Expect(func(m Message) bool { return m.Author == "Sage" })
	defer cancel()

	if _, err := h.Send(ctx, Outgoing{Author: "Sage (m)", Content: "5"}); err != nil {
		t.Fatalf("send: %v", err)
	}
	msg, err := wait(ctx, 10*time.Millisecond)
	if err != nil || msg.Content != "5" {
		t.Fatalf("wait() = %+v, %v", msg, err)
	}
}

func TestHubFollowQueuesEveryMatchUntilCancel(t *testing.T) {
	h := NewHub(10)
	ctx := context.Background()
	next, cancel := h.Follow(func(m Message) bool { return m.Author == "Sage" })

	for _, c := range []string{"one", "two"} {
		if _, err := h.Send(ctx, Outgoing{Author: "Sage", Content: c}); err != nil {
			t.Fatalf("send: %v", err)
		}
	}
	if _, err := h.Send(ctx, Outgoing{Author: "Bard", Content: "skip"}); err != nil {
		t.Fatalf("send: %v", err)
	}
	for _, want := range []string{"one", "two"} {
		msg, err := next(ctx, time.Second)
		if err != nil || msg.Content != want {
			t.Fatalf("next() = %q, %v; want %q", msg.Content, err, want)
		}
	}
	if _, err := next(ctx, 20*time.Millisecond); !errors.Is(err, ErrTimedOut) {
		t.Fatalf("next() on empty queue err = %v, want ErrTimedOut", err)
	}
	if _, err := next(ctx, 0); !errors.Is(err, ErrTimedOut) {
		t.Fatalf("next() with no time left err = %v, want ErrTimedOut", err)
	}

	cancel()
	h.mu.Lock()
	n := len(h.waiters)
	h.mu.Unlock()
	if n != 0 {
		t.Fatalf("waiters after cancel = %d, want 0", n)
	}
}
