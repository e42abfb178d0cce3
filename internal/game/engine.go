package game

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrIllegalMove = errors.New("illegal_move")
	ErrUnknownGame = errors.New("unknown_game")
)

// Rejection reason codes, most specific first.
const (
	ReasonNoPiece         = "no_piece"
	ReasonWrongOwner      = "wrong_owner"
	ReasonOccupied        = "occupied"
	ReasonIllegalMovement = "illegal_movement"
	ReasonOutOfRange      = "out_of_range"
	ReasonColumnFull      = "column_full"
	ReasonUnparseable     = "unparseable"
	ReasonGameOver        = "game_over"
)

type IllegalMoveError struct {
	Code   string
	Detail string
}

func (e *IllegalMoveError) Error() string {
	if e.Detail == "" {
		return e.Code
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Detail)
}

func (e *IllegalMoveError) Unwrap() error { return ErrIllegalMove }

func illegal(code, format string, args ...any) error {
	return &IllegalMoveError{Code: code, Detail: fmt.Sprintf(format, args...)}
}

type Move string

type State string

const (
	Ongoing State = "ongoing"
	Win     State = "win"
	Draw    State = "draw"
)

// Status is the terminal check result. Winner is a side index and is only
// meaningful when State is Win. Reason names the line, rule or draw kind.
type Status struct {
	State  State
	Winner int
	Reason string
}

func (s Status) Over() bool { return s.State != Ongoing }

// Engine is one game's rules. Sides are 0 and 1; side 0 moves first.
type Engine interface {
	Name() string
	Turn() int
	LegalMoves() []Move
	LegalSummary() string
	Validate(m Move) error
	Apply(m Move) error
	Status() Status
	Serialize() string
	Grammar() Grammar
}

// Risk is an engine's view that the side to move is about to throw away a
// winning position.
type Risk struct {
	Side        int
	Repetitions int
	Description string
	Suggestion  string
}

type RiskAssessor interface {
	Risk() (Risk, bool)
}

// AdvantageEstimator reports side's lead in engine units (material for chess).
type AdvantageEstimator interface {
	Advantage(side int) int
}

// JoinMoves renders moves as a comma separated list.
func JoinMoves(moves []Move) string {
	parts := make([]string, len(moves))
	for i, m := range moves {
		parts[i] = string(m)
	}
	return strings.Join(parts, ", ")
}
