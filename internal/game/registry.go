package game

import (
	"fmt"
	"sort"
	"strings"
)

type Factory func(params map[string]string) (Engine, error)

var factories = map[string]Factory{
	"tictactoe":   func(map[string]string) (Engine, error) { return NewTicTacToe(), nil },
	"connectfour": func(map[string]string) (Engine, error) { return NewConnectFour(), nil },
	"chess": func(params map[string]string) (Engine, error) {
		moves := strings.Fields(params["opening"])
		return ChessFromMoves(moves...)
	},
}

var aliases = map[string]string{
	"tic-tac-toe":  "tictactoe",
	"tic_tac_toe":  "tictactoe",
	"connect4":     "connectfour",
	"connect-four": "connectfour",
	"connect_four": "connectfour",
}

// CanonicalName folds spelling variants onto the registered game name.
func CanonicalName(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	if a, ok := aliases[n]; ok {
		return a
	}
	return n
}

func New(name string, params map[string]string) (Engine, error) {
	f, ok := factories[CanonicalName(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownGame, name)
	}
	return f(params)
}

func Names() []string {
	out := make([]string, 0, len(factories))
	for n := range factories {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
