package agent

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"agent-arena/internal/chat"
)

// Runner drives one agent's autonomous replies on the shared channel.
type Runner struct {
	agent     *Agent
	gen       *Generator
	gate      Gate
	transport chat.Transport

	mu          sync.Mutex
	rnd         *rand.Rand
	lastHandled string
}

func NewRunner(a *Agent, gen *Generator, gate Gate, transport chat.Transport) *Runner {
	return &Runner{
		agent:     a,
		gen:       gen,
		gate:      gate,
		transport: transport,
		rnd:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *Runner) Run(ctx context.Context) {
	for {
		wait := r.agent.Settings().Cadence
		if wait <= 0 {
			wait = time.Second
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
		if _, err := r.Tick(ctx); err != nil && ctx.Err() == nil {
			log.Warn().Err(err).Str("agent_id", r.agent.ID).Msg("agent turn skipped")
		}
	}
}

// Tick runs one cadence step and reports whether a message was sent.
// A failed generation leaves the trigger unhandled so the next tick retries.
func (r *Runner) Tick(ctx context.Context) (bool, error) {
	if r.gate != nil && !r.gate.Eligible(r.agent.ID) {
		metricRunnerSuppressed.Add(1)
		return false, nil
	}
	trigger, ok := r.agent.LatestTrigger()
	r.mu.Lock()
	if !ok || trigger.MessageID == r.lastHandled {
		r.mu.Unlock()
		return false, nil
	}
	roll := r.rnd.Float64()
	r.mu.Unlock()

	s := r.agent.Settings()
	if roll >= s.Probability {
		r.markHandled(trigger.MessageID)
		return false, nil
	}

	reply, err := r.gen.Generate(ctx, r.agent, "")
	if err != nil {
		return false, err
	}
	id, err := r.transport.Send(ctx, chat.Outgoing{
		Author:   r.agent.Name,
		AuthorID: r.agent.ID,
		Content:  reply.Text,
		ReplyTo:  reply.RepliedTo,
		IsAgent:  true,
	})
	if err != nil {
		return false, err
	}
	r.markHandled(trigger.MessageID)
	r.agent.AddMessage(r.agent.Name, reply.Text, id, reply.RepliedTo, "")
	if s.Memory != nil && s.Memory.Enabled() {
		if err := s.Memory.Remember(ctx, r.agent.ID, reply.Text); err != nil {
			log.Warn().Err(err).Str("agent_id", r.agent.ID).Msg("memory write failed")
		}
	}
	metricRunnerReplies.Add(1)
	return true, nil
}

func (r *Runner) markHandled(id string) {
	r.mu.Lock()
	r.lastHandled = id
	r.mu.Unlock()
}
