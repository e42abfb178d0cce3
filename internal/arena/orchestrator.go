package arena

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"agent-arena/internal/agent"
	"agent-arena/internal/chat"
	"agent-arena/internal/game"
	"agent-arena/internal/ids"
)

// ResultRecorder stores finished games.
type ResultRecorder interface {
	RecordResult(ctx context.Context, res GameResult) error
}

type SessionMeta struct {
	SessionID string
	Game      string
	Players   [2]Player
}

type SessionObserver interface {
	OnSessionStarted(meta SessionMeta, events *chat.EventBuffer)
	OnSessionClosed(sessionID string)
}

type Config struct {
	MoveTimeout         time.Duration
	HintWindow          time.Duration
	IdleThreshold       time.Duration
	RepetitionThreshold int
	AdvantageThreshold  int
}

type Deps struct {
	Directory AgentDirectory
	Contexts  *ContextManager
	Profiles  Profiles
	Transport chat.Transport
	Responder Responder
	Pool      Submitter
	Recorder  ResultRecorder
}

type StartRequest struct {
	Game       string            `json:"game"`
	Players    []string          `json:"players"`
	Spectators []string          `json:"spectators"`
	Params     map[string]string `json:"params"`
}

// GameHandle is returned by StartGame. Done closes after teardown finishes.
type GameHandle struct {
	ID         string
	Game       string
	Players    [2]Player
	Spectators []Player
	StartedAt  time.Time

	session *Session
	cancel  context.CancelFunc
	done    chan struct{}

	mu     sync.Mutex
	result GameResult
}

func (h *GameHandle) Done() <-chan struct{} { return h.done }

func (h *GameHandle) Result() (GameResult, bool) {
	select {
	case <-h.done:
	default:
		return GameResult{}, false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.result, true
}

func (h *GameHandle) Wait(ctx context.Context) (GameResult, error) {
	select {
	case <-h.done:
		res, _ := h.Result()
		return res, nil
	case <-ctx.Done():
		return GameResult{}, ctx.Err()
	}
}

// Abort cancels the turn loop; teardown still runs.
func (h *GameHandle) Abort() { h.cancel() }

func (h *GameHandle) Snapshot() SessionSnapshot { return h.session.Snapshot() }

func (h *GameHandle) Events() *chat.EventBuffer { return h.session.Events }

// Orchestrator admits at most one game session at a time and guarantees its
// teardown.
type Orchestrator struct {
	cfg       Config
	dir       AgentDirectory
	contexts  *ContextManager
	profiles  Profiles
	transport chat.Transport
	responder Responder
	pool      Submitter
	recorder  ResultRecorder
	newEngine func(name string, params map[string]string) (game.Engine, error)
	now       func() time.Time

	mu        sync.Mutex
	busy      bool
	active    *GameHandle
	lastEnded time.Time
	observer  SessionObserver
}

func NewOrchestrator(cfg Config, deps Deps) *Orchestrator {
	return &Orchestrator{
		cfg:       cfg,
		dir:       deps.Directory,
		contexts:  deps.Contexts,
		profiles:  deps.Profiles,
		transport: deps.Transport,
		responder: deps.Responder,
		pool:      deps.Pool,
		recorder:  deps.Recorder,
		newEngine: game.New,
		now:       time.Now,
	}
}

func (o *Orchestrator) SetSessionObserver(obs SessionObserver) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.observer = obs
}

func (o *Orchestrator) Contexts() *ContextManager { return o.contexts }

func (o *Orchestrator) ActiveGame() (*GameHandle, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.active, o.active != nil
}

func (o *Orchestrator) IsInGame(agentID string) bool { return o.contexts.IsInGame(agentID) }

func (o *Orchestrator) ActiveAgents() []string { return o.contexts.ActiveAgents() }

func (o *Orchestrator) UpdateTurnContext(agentID, hint string) error {
	return o.contexts.UpdateTurnContext(agentID, hint)
}

func (o *Orchestrator) resolve(ref string) (*agent.Agent, error) {
	ref = strings.TrimSpace(ref)
	if a, ok := o.dir.Get(ref); ok {
		return a, nil
	}
	if a, ok := o.dir.ByName(ref); ok {
		return a, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownAgent, ref)
}

// StartGame validates req, reserves the session slot, puts both players in
// game mode and starts the turn loop in the background.
func (o *Orchestrator) StartGame(ctx context.Context, req StartRequest) (*GameHandle, error) {
	if len(req.Players) != 2 {
		return nil, fmt.Errorf("%w: exactly two players required", ErrInvalidRequest)
	}

	o.mu.Lock()
	if o.busy {
		o.mu.Unlock()
		metricSessionsBusy.Add(1)
		log.Info().Str("game", req.Game).Msg("session_busy")
		return nil, ErrSessionBusy
	}
	if o.cfg.IdleThreshold > 0 && !o.lastEnded.IsZero() {
		if wait := o.cfg.IdleThreshold - o.now().Sub(o.lastEnded); wait > 0 {
			o.mu.Unlock()
			metricSessionsBusy.Add(1)
			log.Info().Str("game", req.Game).Dur("remaining", wait).Msg("session_busy")
			return nil, &CooldownError{Remaining: wait}
		}
	}

	h, players, spectators, engine, prof, err := o.prepare(req)
	if err != nil {
		o.mu.Unlock()
		return nil, err
	}
	o.busy = true
	observer := o.observer
	o.mu.Unlock()

	entered := make([]string, 0, 2)
	for i, a := range players {
		opponent := players[1-i].Name
		if _, err := o.contexts.EnterGameMode(a, h.Game, opponent, req.Params); err != nil {
			for _, id := range entered {
				if exitErr := o.contexts.ExitGameMode(id); exitErr != nil {
					log.Error().Err(exitErr).Str("agent_id", id).Msg("rollback of game mode failed")
				}
			}
			o.release(h, false)
			return nil, fmt.Errorf("enter game mode for %s: %w", a.ID, err)
		}
		entered = append(entered, a.ID)
	}
	for _, sp := range spectators {
		if err := o.contexts.AddSpectator(sp.ID, h.Game); err != nil {
			log.Warn().Err(err).Str("agent_id", sp.ID).Msg("spectator skipped")
			continue
		}
		h.Spectators = append(h.Spectators, sp)
	}
	h.session.Spectators = h.Spectators
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	h.cancel = cancel
	sched := NewCommentaryScheduler(h.session, prof.CommentaryInterval, CommentaryDeps{
		Directory: o.dir,
		Responder: o.responder,
		Transport: o.transport,
		Pool:      o.pool,
		Events:    h.session.Events,
	})
	coord := NewCoordinator(h.session, engine, o.transport, o.contexts, o.dir, sched, CoordinatorConfig{
		MoveTimeout:         o.cfg.MoveTimeout,
		HintWindow:          o.cfg.HintWindow,
		RepetitionThreshold: o.cfg.RepetitionThreshold,
		AdvantageThreshold:  o.cfg.AdvantageThreshold,
	})

	metricSessionsStarted.Add(1)
	log.Info().
		Str("session_id", h.ID).
		Str("game", h.Game).
		Str("player_0", h.Players[0].ID).
		Str("player_1", h.Players[1].ID).
		Int("spectators", len(h.Spectators)).
		Msg("game_started")
	h.session.Events.Append(EventGameStarted, h.session.Snapshot())
	if observer != nil {
		observer.OnSessionStarted(SessionMeta{SessionID: h.ID, Game: h.Game, Players: h.Players}, h.session.Events)
	}
	o.mu.Lock()
	o.active = h
	o.mu.Unlock()
	o.announceStart(runCtx, h)

	go o.run(runCtx, h, coord)
	return h, nil
}

func (o *Orchestrator) prepare(req StartRequest) (*GameHandle, [2]*agent.Agent, []Player, game.Engine, Profile, error) {
	var players [2]*agent.Agent
	name := game.CanonicalName(req.Game)
	prof, ok := o.profiles.Lookup(name)
	if !ok {
		return nil, players, nil, nil, Profile{}, fmt.Errorf("%w: %s", game.ErrUnknownGame, req.Game)
	}
	for i, ref := range req.Players {
		a, err := o.resolve(ref)
		if err != nil {
			return nil, players, nil, nil, Profile{}, err
		}
		players[i] = a
	}
	if players[0].ID == players[1].ID {
		return nil, players, nil, nil, Profile{}, fmt.Errorf("%w: players must differ", ErrInvalidRequest)
	}
	var spectators []Player
	seen := map[string]bool{players[0].ID: true, players[1].ID: true}
	for _, ref := range req.Spectators {
		a, err := o.resolve(ref)
		if err != nil {
			return nil, players, nil, nil, Profile{}, err
		}
		if seen[a.ID] {
			continue
		}
		seen[a.ID] = true
		spectators = append(spectators, Player{ID: a.ID, Name: a.Name, Model: a.Model})
	}
	engine, err := o.newEngine(name, req.Params)
	if err != nil {
		return nil, players, nil, nil, Profile{}, err
	}

	ps := [2]Player{
		{ID: players[0].ID, Name: players[0].Name, Model: players[0].Model},
		{ID: players[1].ID, Name: players[1].Name, Model: players[1].Model},
	}
	now := o.now()
	sess := newSession(ids.WithPrefix("game"), name, ps, nil, now)
	h := &GameHandle{
		ID:        sess.ID,
		Game:      name,
		Players:   ps,
		StartedAt: now,
		session:   sess,
		cancel:    func() {},
		done:      make(chan struct{}),
	}
	return h, players, spectators, engine, prof, nil
}

func (o *Orchestrator) announceStart(ctx context.Context, h *GameHandle) {
	text := fmt.Sprintf("A game of %s begins: %s (X) vs %s (O).", h.Game, h.Players[0].Name, h.Players[1].Name)
	if len(h.Spectators) > 0 {
		names := make([]string, len(h.Spectators))
		for i, sp := range h.Spectators {
			names[i] = sp.Name
		}
		text += " Watching: " + strings.Join(names, ", ") + "."
	}
	if _, err := o.transport.Send(ctx, chat.Outgoing{Author: agent.AuthorGameMaster, Content: text}); err != nil {
		log.Warn().Err(err).Str("session_id", h.ID).Msg("game announcement failed")
	}
}

func (o *Orchestrator) run(ctx context.Context, h *GameHandle, coord *Coordinator) {
	res := GameResult{
		SessionID: h.ID,
		Game:      h.Game,
		Players:   h.Players,
		Outcome:   OutcomeError,
	}
	defer o.teardown(h, &res)
	defer func() {
		if r := recover(); r != nil {
			res.Outcome = OutcomeError
			res.Err = fmt.Sprintf("panic: %v", r)
			log.Error().Interface("panic", r).Str("session_id", h.ID).Msg("turn loop panicked")
		}
	}()

	out, err := coord.Run(ctx)
	res = out
	if err != nil {
		res.Err = err.Error()
		if !errors.Is(err, ErrMoveWaitTimeout) {
			log.Error().Err(err).Str("session_id", h.ID).Msg("turn loop ended with error")
		}
	}
}

// teardown runs every cleanup step even when earlier ones fail.
func (o *Orchestrator) teardown(h *GameHandle, res *GameResult) {
	h.session.end()
	res.SessionID = h.ID
	res.Game = h.Game
	res.Players = h.Players
	res.Spectators = h.Spectators
	res.StartedAt = h.StartedAt
	res.EndedAt = o.now()
	if res.Moves == 0 {
		res.Moves = h.session.Snapshot().MoveCount
	}

	for _, p := range h.Players {
		o.step(h.ID, "exit_player:"+p.ID, func() error { return o.contexts.ExitGameMode(p.ID) })
	}
	for _, sp := range h.Spectators {
		o.step(h.ID, "notify_spectator:"+sp.ID, func() error { return o.contexts.NotifySpectatorExit(sp.ID, h.Game) })
	}
	o.step(h.ID, "record_result", func() error {
		if o.recorder == nil {
			return nil
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return o.recorder.RecordResult(ctx, *res)
	})
	o.step(h.ID, "close_events", func() error {
		h.session.Events.Append(EventGameOver, res)
		h.session.Events.Append(EventSessionClosed, map[string]any{"session_id": h.ID, "outcome": res.Outcome})
		h.session.Events.Close()
		return nil
	})
	o.step(h.ID, "release_session", func() error {
		o.release(h, true)
		return nil
	})

	h.mu.Lock()
	h.result = *res
	h.mu.Unlock()
	h.cancel()
	close(h.done)
}

// release clears the session slot. ended resets the idle timer.
func (o *Orchestrator) release(h *GameHandle, ended bool) {
	o.mu.Lock()
	o.active = nil
	o.busy = false
	if ended {
		o.lastEnded = o.now()
	}
	observer := o.observer
	o.mu.Unlock()
	if ended && observer != nil {
		observer.OnSessionClosed(h.ID)
	}
}

func (o *Orchestrator) step(sessionID, name string, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			metricTeardownStepFailed.Add(1)
			log.Error().Interface("panic", r).Str("session_id", sessionID).Str("step", name).Msg("session_teardown_step_failed")
		}
	}()
	if err := fn(); err != nil {
		metricTeardownStepFailed.Add(1)
		log.Error().Err(err).Str("session_id", sessionID).Str("step", name).Msg("session_teardown_step_failed")
	}
}

// Shutdown aborts the active session and waits for its teardown.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	h, ok := o.ActiveGame()
	if !ok {
		return nil
	}
	h.Abort()
	_, err := h.Wait(ctx)
	return err
}
