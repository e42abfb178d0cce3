package llm

import (
	"context"
	"math/rand"
	"strings"
	"sync"
	"time"
)

const LegalMovesPrefix = "Legal moves:"

// SpectatorInstruction ends every commentary prompt. Requests carrying it in
// the system prompt must never be answered with a move.
const SpectatorInstruction = "You are not playing: do not propose, suggest or make any moves."

var chatter = []string{
	"Interesting position.",
	"That was a bold choice.",
	"I did not see that coming.",
	"The tension is building.",
	"Nobody blink.",
}

// DumbClient answers without a model: when the prompt lists legal moves it
// picks one at random, otherwise it returns a canned line. Spectators always
// get a canned line.
type DumbClient struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func NewDumbClient(seed int64) *DumbClient {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &DumbClient{rnd: rand.New(rand.NewSource(seed))}
}

func (c *DumbClient) Complete(_ context.Context, req Request) (Completion, error) {
	var moves []string
	if !strings.Contains(req.System, SpectatorInstruction) {
		moves = ParseLegalMoves(req.LastUserContent())
		if len(moves) == 0 {
			moves = ParseLegalMoves(req.System)
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(moves) > 0 {
		return Completion{Text: moves[c.rnd.Intn(len(moves))], Model: "dumb"}, nil
	}
	return Completion{Text: chatter[c.rnd.Intn(len(chatter))], Model: "dumb"}, nil
}

// ParseLegalMoves reads the comma separated list on the first
// "Legal moves:" line of text.
func ParseLegalMoves(text string) []string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, LegalMovesPrefix) {
			continue
		}
		var out []string
		for _, part := range strings.Split(strings.TrimPrefix(line, LegalMovesPrefix), ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
		return out
	}
	return nil
}
