package arena

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"agent-arena/internal/agent"
	"agent-arena/internal/chat"
	"agent-arena/internal/game"
)

var marksBySide = [2]string{"X", "O"}

type CoordinatorConfig struct {
	MoveTimeout         time.Duration
	HintWindow          time.Duration
	RepetitionThreshold int
	AdvantageThreshold  int
}

// Coordinator runs the turn loop of one session against a game engine.
type Coordinator struct {
	sess       *Session
	engine     game.Engine
	transport  chat.Transport
	contexts   *ContextManager
	dir        AgentDirectory
	commentary *CommentaryScheduler
	cfg        CoordinatorConfig
	now        func() time.Time
}

func NewCoordinator(sess *Session, engine game.Engine, transport chat.Transport, contexts *ContextManager,
	dir AgentDirectory, commentary *CommentaryScheduler, cfg CoordinatorConfig) *Coordinator {
	if cfg.MoveTimeout <= 0 {
		cfg.MoveTimeout = 2 * time.Minute
	}
	if cfg.HintWindow <= 0 {
		cfg.HintWindow = 30 * time.Second
	}
	return &Coordinator{
		sess:       sess,
		engine:     engine,
		transport:  transport,
		contexts:   contexts,
		dir:        dir,
		commentary: commentary,
		cfg:        cfg,
		now:        time.Now,
	}
}

// Run plays until the engine reports a terminal status, a move wait times
// out or ctx ends. The returned result carries the outcome in every case.
func (c *Coordinator) Run(ctx context.Context) (GameResult, error) {
	defer c.sess.end()
	res := GameResult{
		SessionID:  c.sess.ID,
		Game:       c.sess.Game,
		Players:    c.sess.Players,
		Spectators: c.sess.Spectators,
	}
	for {
		if st := c.engine.Status(); st.Over() {
			return c.finish(ctx, res, st), nil
		}
		side := c.engine.Turn()
		player := c.sess.Players[side]
		c.sess.setTurn(side)

		c.checkAntiPattern(ctx, player, side)
		move, err := c.playTurn(ctx, player, side)
		if err != nil {
			res.Moves = c.sess.Snapshot().MoveCount
			if errors.Is(err, ErrMoveWaitTimeout) {
				res.Outcome = OutcomeTimeout
				res.Reason = fmt.Sprintf("%s did not move in time", player.Name)
				c.announce(ctx, fmt.Sprintf("%s did not move within %s. The game is over.",
					player.Name, c.cfg.MoveTimeout.Round(time.Second)))
				return res, err
			}
			res.Outcome = OutcomeAborted
			res.Reason = err.Error()
			return res, err
		}

		if err := c.engine.Apply(move); err != nil {
			res.Outcome = OutcomeError
			res.Reason = err.Error()
			return res, err
		}
		count := c.sess.recordMove(fmt.Sprintf("%s played %s", player.Name, move))
		metricMovesApplied.Add(1)
		if err := c.contexts.UpdateTurnContext(player.ID, ""); err != nil && !errors.Is(err, ErrNotInGame) {
			log.Warn().Err(err).Str("agent_id", player.ID).Msg("turn context reset failed")
		}

		state := c.engine.Serialize()
		c.sess.Events.Append(EventMoveApplied, MoveData{
			PlayerID: player.ID,
			Move:     string(move),
			Count:    count,
			State:    state,
		})

		st := c.engine.Status()
		if st.Over() {
			res.Moves = count
			return c.finish(ctx, res, st), nil
		}
		c.announce(ctx, fmt.Sprintf("%s played %s (move %d).\n%s", player.Name, move, count, state))
		if c.commentary != nil {
			c.commentary.MaybeTrigger(ctx, CommentarySnapshot{
				MoveCount: count,
				LastMove:  fmt.Sprintf("%s by %s", move, player.Name),
				State:     state,
			})
		}
	}
}

// playTurn prompts the player and waits until one of their messages yields
// a valid move. Rejections send feedback and wait again for the same player.
func (c *Coordinator) playTurn(ctx context.Context, player Player, side int) (game.Move, error) {
	c.contexts.setAwaiting(player.ID, true)
	defer c.contexts.setAwaiting(player.ID, false)

	legal := c.engine.LegalMoves()
	c.sess.Events.Append(EventTurnStarted, TurnStartedData{
		PlayerID:   player.ID,
		Move:       c.sess.Snapshot().MoveCount + 1,
		LegalMoves: moveStrings(legal),
	})

	waiter := c.newTurnWaiter(player)
	defer waiter.stop()
	deadline := c.now().Add(c.cfg.MoveTimeout)

	text := c.turnPrompt(player, side)
	for {
		msg, err := waiter.sendAndWait(ctx, text, deadline.Sub(c.now()))
		if err != nil {
			if errors.Is(err, chat.ErrTimedOut) {
				metricMoveTimeouts.Add(1)
				log.Warn().Str("session_id", c.sess.ID).Str("agent_id", player.ID).Msg("move_wait_timeout")
				return "", ErrMoveWaitTimeout
			}
			return "", err
		}

		move, rejection := c.pickMove(msg.Content)
		if rejection == nil {
			return move, nil
		}
		metricMovesRejected.Add(1)
		log.Info().
			Str("session_id", c.sess.ID).
			Str("agent_id", player.ID).
			Str("raw", msg.Content).
			Str("reason", rejection.Code).
			Msg("move_rejected")
		c.sess.Events.Append(EventMoveRejected, MoveData{
			PlayerID: player.ID,
			Raw:      msg.Content,
			Reason:   rejection.Code,
			Count:    c.sess.Snapshot().MoveCount,
		})
		text = c.rejectionFeedback(player, rejection)
	}
}

// pickMove returns the first extracted candidate the engine accepts, or the
// rejection of the first candidate tried.
func (c *Coordinator) pickMove(raw string) (game.Move, *game.IllegalMoveError) {
	candidates := game.ExtractCandidates(c.engine.Grammar(), raw)
	if len(candidates) == 0 {
		return "", &game.IllegalMoveError{
			Code:   game.ReasonUnparseable,
			Detail: "I couldn't find a move in your message",
		}
	}
	var first *game.IllegalMoveError
	for _, m := range candidates {
		err := c.engine.Validate(m)
		if err == nil {
			return m, nil
		}
		if first == nil {
			var ime *game.IllegalMoveError
			if errors.As(err, &ime) {
				first = ime
			} else {
				first = &game.IllegalMoveError{Code: game.ReasonIllegalMovement, Detail: err.Error()}
			}
		}
	}
	return "", first
}

// turnWaiter collects one player's replies for the length of a turn. On a
// Follower transport a single wait stays registered, so replies sent while a
// rejected move is being handled are kept for the next round.
type turnWaiter struct {
	c      *Coordinator
	player Player
	pred   chat.Predicate
	next   chat.WaitFunc
	cancel func()
}

func (c *Coordinator) newTurnWaiter(player Player) *turnWaiter {
	w := &turnWaiter{c: c, player: player, pred: c.fromPlayer(player), cancel: func() {}}
	if f, ok := c.transport.(chat.Follower); ok {
		w.next, w.cancel = f.Follow(w.pred)
	}
	return w
}

func (w *turnWaiter) stop() { w.cancel() }

// sendAndWait delivers text and waits at most remaining for the player's
// next message. A non-positive remaining is a timeout without sending.
func (w *turnWaiter) sendAndWait(ctx context.Context, text string, remaining time.Duration) (chat.Message, error) {
	if remaining <= 0 {
		return chat.Message{}, chat.ErrTimedOut
	}
	if w.next != nil {
		if err := w.c.deliver(ctx, w.player, text); err != nil {
			return chat.Message{}, err
		}
		return w.next(ctx, remaining)
	}
	if exp, ok := w.c.transport.(chat.Expecter); ok {
		wait, cancel := exp.Expect(w.pred)
		if err := w.c.deliver(ctx, w.player, text); err != nil {
			cancel()
			return chat.Message{}, err
		}
		return wait(ctx, remaining)
	}
	if err := w.c.deliver(ctx, w.player, text); err != nil {
		return chat.Message{}, err
	}
	return w.c.transport.WaitForNext(ctx, w.pred, remaining)
}

// deliver posts a game master message to the channel and records it in the
// addressed player's history.
func (c *Coordinator) deliver(ctx context.Context, player Player, text string) error {
	id, err := c.transport.Send(ctx, chat.Outgoing{Author: agent.AuthorGameMaster, Content: text})
	if err != nil {
		return err
	}
	if a, ok := c.dir.Get(player.ID); ok {
		a.AddMessage(agent.AuthorGameMaster, text, id, "", "")
	}
	return nil
}

func (c *Coordinator) announce(ctx context.Context, text string) {
	if _, err := c.transport.Send(ctx, chat.Outgoing{Author: agent.AuthorGameMaster, Content: text}); err != nil {
		log.Warn().Err(err).Str("session_id", c.sess.ID).Msg("game announcement failed")
	}
}

func (c *Coordinator) fromPlayer(player Player) chat.Predicate {
	return func(m chat.Message) bool {
		if m.AuthorID != "" {
			return m.AuthorID == player.ID
		}
		id, ok := c.sess.PlayerIDByName(m.Author)
		return ok && id == player.ID
	}
}

func (c *Coordinator) turnPrompt(player Player, side int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s, it's your turn (move %d, you are %s).\n",
		player.Name, c.sess.Snapshot().MoveCount+1, marksBySide[side])
	b.WriteString(c.engine.LegalSummary())
	b.WriteString("\nCurrent board:\n")
	b.WriteString(c.engine.Serialize())
	if a, ok := c.dir.Get(player.ID); ok {
		hints := userHints(a, player.Name, c.dir.IsAgentName, c.cfg.HintWindow, c.now())
		if len(hints) > 0 {
			b.WriteString("\nThe audience says:")
			for _, h := range hints {
				fmt.Fprintf(&b, "\n> %q", h)
			}
		}
	}
	b.WriteString("\nReply with your move.")
	return b.String()
}

func (c *Coordinator) rejectionFeedback(player Player, rej *game.IllegalMoveError) string {
	reason := rej.Detail
	if reason == "" {
		reason = strings.ReplaceAll(rej.Code, "_", " ")
	}
	return fmt.Sprintf("%s, that move was not accepted: %s.\n%s\nIt is still your turn. Reply with one legal move.",
		player.Name, reason, c.engine.LegalSummary())
}

// checkAntiPattern warns the side to move when it is ahead but repeating
// positions. It never blocks the turn.
func (c *Coordinator) checkAntiPattern(ctx context.Context, player Player, side int) bool {
	assessor, ok := c.engine.(game.RiskAssessor)
	if !ok {
		return false
	}
	estimator, ok := c.engine.(game.AdvantageEstimator)
	if !ok {
		return false
	}
	risk, hit := assessor.Risk()
	if !hit || risk.Side != side {
		return false
	}
	adv := estimator.Advantage(side)
	if risk.Repetitions < c.cfg.RepetitionThreshold || adv < c.cfg.AdvantageThreshold {
		return false
	}
	metricAntiPatternWarnings.Add(1)
	log.Info().
		Str("session_id", c.sess.ID).
		Str("agent_id", player.ID).
		Int("repetitions", risk.Repetitions).
		Int("advantage", adv).
		Msg("anti_pattern_warning")
	c.sess.Events.Append(EventAntiPattern, map[string]any{
		"player_id":   player.ID,
		"repetitions": risk.Repetitions,
		"advantage":   adv,
	})
	text := fmt.Sprintf("%s, warning: you are ahead by %d but %s. Suggestion: %s.",
		player.Name, adv, risk.Description, risk.Suggestion)
	if err := c.deliver(ctx, player, text); err != nil {
		log.Warn().Err(err).Str("session_id", c.sess.ID).Msg("anti-pattern warning not delivered")
	}
	return true
}

func (c *Coordinator) finish(ctx context.Context, res GameResult, st game.Status) GameResult {
	res.Reason = st.Reason
	var text string
	switch st.State {
	case game.Win:
		winner := c.sess.Players[st.Winner]
		res.Outcome = OutcomeWin
		res.WinnerID = winner.ID
		text = fmt.Sprintf("Game over: %s wins (%s).", winner.Name, st.Reason)
	default:
		res.Outcome = OutcomeDraw
		text = fmt.Sprintf("Game over: draw (%s).", st.Reason)
	}

	evt := log.Info().
		Str("session_id", c.sess.ID).
		Str("game", c.sess.Game).
		Str("outcome", string(res.Outcome)).
		Str("reason", st.Reason).
		Str("winner_id", res.WinnerID).
		Int("moves", res.Moves)
	if st.State == game.Draw {
		if est, ok := c.engine.(game.AdvantageEstimator); ok {
			lead := est.Advantage(0)
			if lead < 0 {
				lead = -lead
			}
			if c.cfg.AdvantageThreshold > 0 && lead >= c.cfg.AdvantageThreshold {
				metricDrawDespiteAdvantage.Add(1)
				evt = evt.Bool("draw_despite_advantage", true).Int("advantage", lead)
			}
		}
	}
	evt.Msg("game_over")

	c.announce(ctx, text+"\n"+c.engine.Serialize())
	return res
}

func moveStrings(moves []game.Move) []string {
	out := make([]string, len(moves))
	for i, m := range moves {
		out[i] = string(m)
	}
	return out
}
