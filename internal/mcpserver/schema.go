package mcpserver

import "agent-arena/internal/game"

const (
	defaultRecentLimit = 20
	maxRecentLimit     = 200
)

func clampLimit(limit, def, max int) int {
	if limit <= 0 {
		limit = def
	}
	if limit > max {
		limit = max
	}
	return limit
}

const reasoningDescription = "1-2 sentences max. Your in-character reaction, no tactical explanations."

// MoveTool describes the function-call shape a player uses to submit a move
// for one game. Players may also just write the move in the channel.
type MoveTool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

var moveTools = map[string]MoveTool{
	"tictactoe": {
		Name:        "place_piece",
		Description: "Place your piece on the Tic-Tac-Toe board. You must make a move now.",
		Parameters: objectSchema([]string{"position", "reasoning"}, map[string]any{
			"position": map[string]any{
				"type":        "integer",
				"description": "Position on the board (1-9). Grid layout:\n1 2 3\n4 5 6\n7 8 9",
				"minimum":     1,
				"maximum":     9,
			},
			"reasoning": reasoningProperty(),
		}),
	},
	"connectfour": {
		Name:        "drop_piece",
		Description: "Drop your piece in a column. The piece falls to the lowest free row. You must make a move now.",
		Parameters: objectSchema([]string{"column", "reasoning"}, map[string]any{
			"column": map[string]any{
				"type":        "integer",
				"description": "Column number (1-7) where you want to drop your piece",
				"minimum":     1,
				"maximum":     7,
			},
			"reasoning": reasoningProperty(),
		}),
	},
	"chess": {
		Name:        "make_chess_move",
		Description: "Make a chess move in UCI notation (e.g. 'e2e4', 'g1f3'). You must make a move now.",
		Parameters: objectSchema([]string{"move", "reasoning"}, map[string]any{
			"move": map[string]any{
				"type":        "string",
				"description": "UCI move (e.g. 'e2e4', 'g1f3', 'e7e8q' for promotion)",
				"pattern":     "^[a-h][1-8][a-h][1-8][qrbn]?$",
			},
			"reasoning": reasoningProperty(),
		}),
	},
}

func objectSchema(required []string, props map[string]any) map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}

func reasoningProperty() map[string]any {
	return map[string]any{"type": "string", "description": reasoningDescription}
}

func MoveToolFor(gameName string) (MoveTool, bool) {
	t, ok := moveTools[game.CanonicalName(gameName)]
	return t, ok
}
