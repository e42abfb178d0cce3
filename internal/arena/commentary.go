package arena

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"agent-arena/internal/agent"
	"agent-arena/internal/chat"
	"agent-arena/internal/llm"
)

// Responder produces one reply for an agent with an extra private prompt.
type Responder interface {
	Generate(ctx context.Context, a *agent.Agent, ephemeral string) (agent.Reply, error)
}

// Submitter runs tasks off the turn loop.
type Submitter interface {
	Submit(task func(ctx context.Context)) bool
}

// CommentaryPool is a fixed set of workers for commentary generation. Each
// task runs behind its own recover so a failure never reaches the caller.
type CommentaryPool struct {
	tasks   chan func(ctx context.Context)
	workers int

	once sync.Once
	done chan struct{}
	wg   sync.WaitGroup
}

func NewCommentaryPool(workers, queue int) *CommentaryPool {
	if workers <= 0 {
		workers = 2
	}
	if queue <= 0 {
		queue = 64
	}
	return &CommentaryPool{
		tasks:   make(chan func(ctx context.Context), queue),
		workers: workers,
		done:    make(chan struct{}),
	}
}

func (p *CommentaryPool) Start(ctx context.Context) {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(ctx)
	}
}

func (p *CommentaryPool) Stop() {
	p.once.Do(func() { close(p.done) })
	p.wg.Wait()
}

// Submit queues task and reports false when the queue is full or the pool
// is stopped.
func (p *CommentaryPool) Submit(task func(ctx context.Context)) bool {
	select {
	case <-p.done:
		return false
	default:
	}
	select {
	case p.tasks <- task:
		return true
	default:
		metricCommentaryDropped.Add(1)
		return false
	}
}

func (p *CommentaryPool) worker(ctx context.Context) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.done:
			return
		case task := <-p.tasks:
			p.run(ctx, task)
		}
	}
}

func (p *CommentaryPool) run(ctx context.Context, task func(ctx context.Context)) {
	defer func() {
		if r := recover(); r != nil {
			metricCommentaryFailed.Add(1)
			log.Error().Interface("panic", r).Msg("commentary_failed")
		}
	}()
	task(ctx)
}

// CommentarySnapshot is the read-only view of the game a commentary task
// receives.
type CommentarySnapshot struct {
	MoveCount int
	LastMove  string
	State     string
}

// CommentaryScheduler rotates through spectators, one per interval moves.
type CommentaryScheduler struct {
	sessionID  string
	game       string
	players    [2]Player
	spectators []Player
	interval   int

	dir       AgentDirectory
	responder Responder
	transport chat.Transport
	pool      Submitter
	events    *chat.EventBuffer
	over      <-chan struct{}

	mu     sync.Mutex
	cursor int
}

type CommentaryDeps struct {
	Directory AgentDirectory
	Responder Responder
	Transport chat.Transport
	Pool      Submitter
	Events    *chat.EventBuffer
}

func NewCommentaryScheduler(sess *Session, interval int, deps CommentaryDeps) *CommentaryScheduler {
	return &CommentaryScheduler{
		sessionID:  sess.ID,
		game:       sess.Game,
		players:    sess.Players,
		spectators: append([]Player(nil), sess.Spectators...),
		interval:   interval,
		dir:        deps.Directory,
		responder:  deps.Responder,
		transport:  deps.Transport,
		pool:       deps.Pool,
		events:     deps.Events,
		over:       sess.Over(),
	}
}

func (s *CommentaryScheduler) Enabled() bool {
	return s.interval > 0 && len(s.spectators) > 0
}

// MaybeTrigger picks the spectator at the cursor when moveCount falls on
// the interval. The cursor advances whether or not the generation later
// succeeds; the caller never waits for it.
func (s *CommentaryScheduler) MaybeTrigger(ctx context.Context, snap CommentarySnapshot) (Player, bool) {
	if !s.Enabled() || snap.MoveCount <= 0 || snap.MoveCount%s.interval != 0 {
		return Player{}, false
	}
	s.mu.Lock()
	spectator := s.spectators[s.cursor]
	s.cursor = (s.cursor + 1) % len(s.spectators)
	s.mu.Unlock()

	metricCommentaryTriggered.Add(1)
	log.Info().
		Str("session_id", s.sessionID).
		Str("agent_id", spectator.ID).
		Int("move_count", snap.MoveCount).
		Msg("commentary_triggered")

	task := func(taskCtx context.Context) { s.generate(taskCtx, spectator, snap) }
	if s.pool == nil || !s.pool.Submit(task) {
		log.Warn().Str("session_id", s.sessionID).Str("agent_id", spectator.ID).Msg("commentary dropped")
	}
	return spectator, true
}

func (s *CommentaryScheduler) generate(ctx context.Context, spectator Player, snap CommentarySnapshot) {
	fail := func(err error) {
		metricCommentaryFailed.Add(1)
		log.Warn().Err(err).
			Str("session_id", s.sessionID).
			Str("agent_id", spectator.ID).
			Msg("commentary_failed")
	}
	a, ok := s.dir.Get(spectator.ID)
	if !ok {
		fail(&AgentStateError{AgentID: spectator.ID, Op: "commentary"})
		return
	}
	if s.sessionOver() {
		return
	}
	reply, err := s.responder.Generate(ctx, a, s.prompt(snap))
	if err != nil {
		fail(err)
		return
	}
	// Generation can outlast the game; commentary after game over is stale.
	if s.sessionOver() {
		metricCommentaryDiscarded.Add(1)
		log.Info().Str("session_id", s.sessionID).Str("agent_id", spectator.ID).Msg("commentary discarded after game over")
		return
	}
	if _, err := s.transport.Send(ctx, chat.Outgoing{
		Author:   a.Name,
		AuthorID: a.ID,
		Content:  reply.Text,
		IsAgent:  true,
	}); err != nil {
		fail(err)
		return
	}
	if s.events != nil {
		s.events.Append(EventCommentary, CommentaryData{
			SpectatorID: a.ID,
			Spectator:   a.Name,
			MoveCount:   snap.MoveCount,
			Text:        reply.Text,
		})
	}
}

func (s *CommentaryScheduler) sessionOver() bool {
	select {
	case <-s.over:
		return true
	default:
		return false
	}
}

func (s *CommentaryScheduler) prompt(snap CommentarySnapshot) string {
	return fmt.Sprintf("You are watching a game of %s between %s and %s as a spectator. "+
		"After move %d the last move was %s. Current position:\n%s\n\n"+
		"Give one short comment in your own persona and voice about the game so far. "+
		"Do not repeat anything you said earlier. "+
		llm.SpectatorInstruction,
		s.game, s.players[0].Name, s.players[1].Name, snap.MoveCount, snap.LastMove, snap.State)
}
