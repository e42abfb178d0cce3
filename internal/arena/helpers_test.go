package arena

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"agent-arena/internal/agent"
	"agent-arena/internal/chat"
	"agent-arena/internal/game"
)

type scriptedTransport struct {
	mu      sync.Mutex
	sent    []chat.Outgoing
	replies []chat.Message
	block   chan struct{}
	onWait  func(n int)
	waits   int
}

func (t *scriptedTransport) Send(_ context.Context, out chat.Outgoing) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sent = append(t.sent, out)
	return fmt.Sprintf("m%d", len(t.sent)), nil
}

// WaitForNext hands out queued replies in order, skipping ones pred rejects.
// An empty queue times out at once unless block is set.
func (t *scriptedTransport) WaitForNext(ctx context.Context, pred chat.Predicate, _ time.Duration) (chat.Message, error) {
	t.mu.Lock()
	t.waits++
	n := t.waits
	hook := t.onWait
	t.mu.Unlock()
	if hook != nil {
		hook(n)
	}

	t.mu.Lock()
	for len(t.replies) > 0 {
		m := t.replies[0]
		t.replies = t.replies[1:]
		if m.ID == "" {
			m.ID = fmt.Sprintf("r%d-%d", n, len(t.replies))
		}
		if pred == nil || pred(m) {
			t.mu.Unlock()
			return m, nil
		}
	}
	block := t.block
	t.mu.Unlock()

	if block == nil {
		return chat.Message{}, chat.ErrTimedOut
	}
	select {
	case <-block:
		return chat.Message{}, chat.ErrTimedOut
	case <-ctx.Done():
		return chat.Message{}, ctx.Err()
	}
}

func (t *scriptedTransport) queue(author string, contents ...string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, c := range contents {
		t.replies = append(t.replies, chat.Message{Author: author, Content: c, IsAgent: true})
	}
}

func (t *scriptedTransport) sentTexts() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, len(t.sent))
	for i, s := range t.sent {
		out[i] = s.Content
	}
	return out
}

func (t *scriptedTransport) sentContaining(sub string) int {
	n := 0
	for _, s := range t.sentTexts() {
		if strings.Contains(s, sub) {
			n++
		}
	}
	return n
}

type recordingResponder struct {
	mu      sync.Mutex
	calls   []string
	prompts []string
	fail    map[string]error
	panics  map[string]bool
	// hold, when set, blocks every generation until it is closed.
	hold chan struct{}
}

func (r *recordingResponder) Generate(_ context.Context, a *agent.Agent, ephemeral string) (agent.Reply, error) {
	r.mu.Lock()
	r.calls = append(r.calls, a.ID)
	r.prompts = append(r.prompts, ephemeral)
	err := r.fail[a.ID]
	p := r.panics[a.ID]
	hold := r.hold
	r.mu.Unlock()
	if hold != nil {
		<-hold
	}
	if p {
		panic("generation exploded")
	}
	if err != nil {
		return agent.Reply{}, err
	}
	return agent.Reply{Text: a.Name + " says what a game"}, nil
}

type memoryRecorder struct {
	mu      sync.Mutex
	results []GameResult
}

func (r *memoryRecorder) RecordResult(_ context.Context, res GameResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, res)
	return nil
}

// scriptedWinEngine is tic-tac-toe that declares side 0 the diagonal
// winner once winAfter moves have been applied.
type scriptedWinEngine struct {
	*game.TicTacToe
	winAfter int
	applied  int
}

func (e *scriptedWinEngine) Apply(m game.Move) error {
	if err := e.TicTacToe.Apply(m); err != nil {
		return err
	}
	e.applied++
	return nil
}

func (e *scriptedWinEngine) Status() game.Status {
	if e.winAfter > 0 && e.applied >= e.winAfter {
		return game.Status{State: game.Win, Winner: 0, Reason: "diagonal win"}
	}
	return e.TicTacToe.Status()
}

// riskyEngine is tic-tac-toe with a fixed risk signal and advantage.
type riskyEngine struct {
	*game.TicTacToe
	risk    game.Risk
	hit     bool
	lead    int
	drawNow bool
}

func (e *riskyEngine) Risk() (game.Risk, bool) {
	r := e.risk
	r.Side = e.Turn()
	return r, e.hit
}

func (e *riskyEngine) Advantage(side int) int {
	if side == 0 {
		return e.lead
	}
	return -e.lead
}

func (e *riskyEngine) Status() game.Status {
	if e.drawNow {
		return game.Status{State: game.Draw, Reason: "threefold_repetition"}
	}
	return e.TicTacToe.Status()
}

type panicDirectory struct {
	*agent.Registry
	mu      sync.Mutex
	panicOn string
}

func (d *panicDirectory) arm(id string) {
	d.mu.Lock()
	d.panicOn = id
	d.mu.Unlock()
}

func (d *panicDirectory) Get(id string) (*agent.Agent, bool) {
	d.mu.Lock()
	p := d.panicOn
	d.mu.Unlock()
	if p != "" && id == p {
		panic("agent store unavailable")
	}
	return d.Registry.Get(id)
}

func newRegistry(names ...string) *agent.Registry {
	reg := agent.NewRegistry()
	for _, n := range names {
		reg.Add(agent.New(strings.ToLower(n), n, "openai/"+strings.ToLower(n)+"-model", agent.Settings{
			Cadence:      45 * time.Second,
			Probability:  0.35,
			MaxLength:    400,
			SystemPrompt: "You are " + n + ".",
			Memory:       agent.NewInMemoryStore(10),
		}))
	}
	return reg
}

type harness struct {
	reg       *agent.Registry
	dir       AgentDirectory
	contexts  *ContextManager
	transport *scriptedTransport
	responder *recordingResponder
	recorder  *memoryRecorder
	pool      *CommentaryPool
	orch      *Orchestrator
}

func newHarness(t *testing.T, cfg Config, dir AgentDirectory, reg *agent.Registry) *harness {
	t.Helper()
	if dir == nil {
		dir = reg
	}
	h := &harness{
		reg:       reg,
		dir:       dir,
		contexts:  NewContextManager(dir, NewProfiles(nil)),
		transport: &scriptedTransport{},
		responder: &recordingResponder{},
		recorder:  &memoryRecorder{},
		pool:      NewCommentaryPool(1, 16),
	}
	ctx, cancel := context.WithCancel(context.Background())
	h.pool.Start(ctx)
	t.Cleanup(func() {
		cancel()
		h.pool.Stop()
	})
	h.orch = NewOrchestrator(cfg, Deps{
		Directory: dir,
		Contexts:  h.contexts,
		Profiles:  NewProfiles(nil),
		Transport: h.transport,
		Responder: h.responder,
		Pool:      h.pool,
		Recorder:  h.recorder,
	})
	return h
}

func waitDone(t *testing.T, h *GameHandle) GameResult {
	t.Helper()
	select {
	case <-h.Done():
	case <-time.After(3 * time.Second):
		t.Fatal("session did not finish")
	}
	res, ok := h.Result()
	if !ok {
		t.Fatal("result missing after done")
	}
	return res
}

func mustAgent(t *testing.T, reg *agent.Registry, id string) *agent.Agent {
	t.Helper()
	a, ok := reg.Get(id)
	if !ok {
		t.Fatalf("agent %s missing", id)
	}
	return a
}

func hasNotice(a *agent.Agent, sub string) bool {
	for _, e := range a.History(time.Time{}) {
		if e.System && e.MessageID == "" && strings.Contains(e.Content, sub) {
			return true
		}
	}
	return false
}
