package agent

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog/log"

	"agent-arena/internal/llm"
)

// Gate decides whether an agent may answer on its own and supplies the
// private turn context for its next prompt.
type Gate interface {
	Eligible(agentID string) bool
	TurnContext(agentID string) string
}

type Reply struct {
	Text      string
	RepliedTo string
}

type Generator struct {
	client llm.Client
	gate   Gate
}

func NewGenerator(client llm.Client, gate Gate) *Generator {
	return &Generator{client: client, gate: gate}
}

// Generate produces one reply for a. ephemeral is added to the private
// prompt together with any turn context. An empty completion is retried once
// with a relaxed request.
func (g *Generator) Generate(ctx context.Context, a *Agent, ephemeral string) (Reply, error) {
	extra := ephemeral
	if g.gate != nil {
		if tc := g.gate.TurnContext(a.ID); tc != "" {
			extra = strings.TrimSpace(tc + "\n\n" + ephemeral)
		}
	}

	var memories []string
	trigger, hasTrigger := a.LatestTrigger()
	if mem := a.Settings().Memory; mem != nil && mem.Enabled() && hasTrigger {
		found, err := mem.Recall(ctx, a.ID, trigger.Content, 3)
		if err != nil {
			log.Warn().Err(err).Str("agent_id", a.ID).Msg("memory recall failed")
		}
		memories = found
	}

	req := a.BuildPrompt(extra, memories)
	out, err := g.client.Complete(ctx, req)
	if errors.Is(err, llm.ErrEmptyCompletion) {
		metricGenerationRelaxedRetry.Add(1)
		req.Relaxed = true
		out, err = g.client.Complete(ctx, req)
	}
	if err == nil && strings.TrimSpace(out.Text) == "" {
		err = llm.ErrEmptyCompletion
	}
	if err != nil {
		metricGenerationFailed.Add(1)
		return Reply{}, err
	}
	reply := Reply{Text: strings.TrimSpace(out.Text)}
	if hasTrigger {
		reply.RepliedTo = trigger.MessageID
	}
	return reply, nil
}
