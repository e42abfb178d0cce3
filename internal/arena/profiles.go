package arena

import (
	"strings"
	"time"

	"agent-arena/internal/config"
	"agent-arena/internal/game"
)

// Profile is the game-mode configuration applied to players.
type Profile struct {
	Cadence            time.Duration
	Probability        float64
	MaxLength          int
	CommentaryInterval int
	Intro              string
}

const commonRules = "Reply with exactly one move and at most one short in-character sentence. " +
	"Do not explain tactics. Only your own moves count; never move for {opponent}."

var defaultProfiles = map[string]Profile{
	"tictactoe": {
		Cadence:            2 * time.Second,
		Probability:        1,
		MaxLength:          120,
		CommentaryInterval: 2,
		Intro: "You are {self}, playing Tic-Tac-Toe against {opponent}. " +
			"Cells are numbered 1-9:\n1 2 3\n4 5 6\n7 8 9\nName the cell you take. " + commonRules,
	},
	"connectfour": {
		Cadence:            2 * time.Second,
		Probability:        1,
		MaxLength:          120,
		CommentaryInterval: 3,
		Intro: "You are {self}, playing Connect Four against {opponent}. " +
			"Name a column 1-7; your piece falls to the lowest free row. " + commonRules,
	},
	"chess": {
		Cadence:            3 * time.Second,
		Probability:        1,
		MaxLength:          160,
		CommentaryInterval: 4,
		Intro: "You are {self}, playing chess against {opponent}. " +
			"Give moves in UCI notation such as e2e4, g1f3 or e7e8q for a promotion. " + commonRules,
	},
}

type Profiles map[string]Profile

// NewProfiles starts from the built-in profiles and applies non-zero
// fields of overrides.
func NewProfiles(overrides map[string]config.GameProfile) Profiles {
	out := Profiles{}
	for name, p := range defaultProfiles {
		out[name] = p
	}
	for name, o := range overrides {
		name = game.CanonicalName(name)
		p, ok := out[name]
		if !ok {
			continue
		}
		if o.CadenceSeconds > 0 {
			p.Cadence = time.Duration(o.CadenceSeconds * float64(time.Second))
		}
		if o.Probability > 0 {
			p.Probability = o.Probability
		}
		if o.MaxLength > 0 {
			p.MaxLength = o.MaxLength
		}
		if o.CommentaryInterval != nil && *o.CommentaryInterval >= 0 {
			p.CommentaryInterval = *o.CommentaryInterval
		}
		out[name] = p
	}
	return out
}

func (p Profiles) Lookup(gameName string) (Profile, bool) {
	prof, ok := p[game.CanonicalName(gameName)]
	return prof, ok
}

// Augmentation renders the game-mode addition to a player's system prompt.
func (p Profile) Augmentation(self, opponent string) string {
	return strings.NewReplacer("{self}", self, "{opponent}", opponent).Replace(p.Intro)
}
