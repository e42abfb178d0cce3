package game

import (
	"fmt"
	"strings"

	"github.com/notnil/chess"
)

var pieceValues = map[chess.PieceType]int{
	chess.Pawn:   1,
	chess.Knight: 3,
	chess.Bishop: 3,
	chess.Rook:   5,
	chess.Queen:  9,
}

var pieceNames = map[chess.PieceType]string{
	chess.King:   "king",
	chess.Queen:  "queen",
	chess.Rook:   "rook",
	chess.Bishop: "bishop",
	chess.Knight: "knight",
	chess.Pawn:   "pawn",
}

var promoLetters = map[chess.PieceType]string{
	chess.Queen:  "q",
	chess.Rook:   "r",
	chess.Bishop: "b",
	chess.Knight: "n",
}

// Chess wraps notnil/chess with UCI move text. Side 0 is white.
type Chess struct {
	g *chess.Game
}

func NewChess() *Chess { return &Chess{g: chess.NewGame()} }

func (c *Chess) Name() string     { return "chess" }
func (c *Chess) Grammar() Grammar { return UCIGrammar() }

func (c *Chess) Turn() int {
	if c.g.Position().Turn() == chess.White {
		return 0
	}
	return 1
}

func (c *Chess) LegalMoves() []Move {
	if c.g.Outcome() != chess.NoOutcome {
		return nil
	}
	valid := c.g.ValidMoves()
	out := make([]Move, 0, len(valid))
	for _, m := range valid {
		out = append(out, encodeUCI(m))
	}
	return out
}

func (c *Chess) LegalSummary() string {
	return "Legal moves: " + JoinMoves(c.LegalMoves())
}

func encodeUCI(m *chess.Move) Move {
	return Move(m.S1().String() + m.S2().String() + promoLetters[m.Promo()])
}

func parseSquare(s string) (chess.Square, bool) {
	if len(s) != 2 || s[0] < 'a' || s[0] > 'h' || s[1] < '1' || s[1] > '8' {
		return 0, false
	}
	return chess.Square(int(s[1]-'1')*8 + int(s[0]-'a')), true
}

func (c *Chess) find(m Move) (*chess.Move, error) {
	if c.g.Outcome() != chess.NoOutcome {
		return nil, illegal(ReasonGameOver, "the game is already over")
	}
	text := strings.ToLower(strings.TrimSpace(string(m)))
	if len(text) != 4 && len(text) != 5 {
		return nil, illegal(ReasonUnparseable, "%q is not a UCI move like e2e4", string(m))
	}
	from, ok1 := parseSquare(text[:2])
	to, ok2 := parseSquare(text[2:4])
	if !ok1 || !ok2 {
		return nil, illegal(ReasonOutOfRange, "%q names a square off the board", string(m))
	}

	for _, vm := range c.g.ValidMoves() {
		if encodeUCI(vm) == Move(text) {
			return vm, nil
		}
	}

	board := c.g.Position().Board()
	piece := board.Piece(from)
	if piece == chess.NoPiece {
		return nil, illegal(ReasonNoPiece, "there is no piece on %s", text[:2])
	}
	if piece.Color() != c.g.Position().Turn() {
		return nil, illegal(ReasonWrongOwner, "the %s on %s belongs to your opponent", pieceNames[piece.Type()], text[:2])
	}
	if dest := board.Piece(to); dest != chess.NoPiece && dest.Color() == piece.Color() {
		return nil, illegal(ReasonOccupied, "%s is occupied by your own %s", text[2:4], pieceNames[dest.Type()])
	}
	if piece.Type() == chess.Pawn && len(text) == 4 && (text[3] == '8' || text[3] == '1') {
		return nil, illegal(ReasonIllegalMovement, "a pawn reaching the last rank needs a promotion piece, e.g. %sq", text)
	}
	return nil, illegal(ReasonIllegalMovement, "the %s on %s cannot move to %s", pieceNames[piece.Type()], text[:2], text[2:4])
}

func (c *Chess) Validate(m Move) error {
	_, err := c.find(m)
	return err
}

func (c *Chess) Apply(m Move) error {
	vm, err := c.find(m)
	if err != nil {
		return err
	}
	return c.g.Move(vm)
}

func (c *Chess) Status() Status {
	switch c.g.Outcome() {
	case chess.WhiteWon:
		return Status{State: Win, Winner: 0, Reason: methodName(c.g.Method())}
	case chess.BlackWon:
		return Status{State: Win, Winner: 1, Reason: methodName(c.g.Method())}
	case chess.Draw:
		return Status{State: Draw, Reason: methodName(c.g.Method())}
	}
	return Status{State: Ongoing}
}

func methodName(m chess.Method) string {
	switch m {
	case chess.Checkmate:
		return "checkmate"
	case chess.Resignation:
		return "resignation"
	case chess.DrawOffer:
		return "draw_offer"
	case chess.Stalemate:
		return "stalemate"
	case chess.ThreefoldRepetition:
		return "threefold_repetition"
	case chess.FivefoldRepetition:
		return "fivefold_repetition"
	case chess.FiftyMoveRule:
		return "fifty_move_rule"
	case chess.SeventyFiveMoveRule:
		return "seventy_five_move_rule"
	case chess.InsufficientMaterial:
		return "insufficient_material"
	}
	return "unknown"
}

func (c *Chess) Serialize() string {
	pos := c.g.Position()
	return pos.Board().Draw() + "FEN: " + pos.String()
}

func (c *Chess) material(color chess.Color) int {
	total := 0
	for _, p := range c.g.Position().Board().SquareMap() {
		if p.Color() == color {
			total += pieceValues[p.Type()]
		}
	}
	return total
}

// Advantage is side's material lead in pawns.
func (c *Chess) Advantage(side int) int {
	diff := c.material(chess.White) - c.material(chess.Black)
	if side == 1 {
		return -diff
	}
	return diff
}

// Risk counts how often the current position has occurred. Another
// repetition lets the opponent steer into a draw.
func (c *Chess) Risk() (Risk, bool) {
	if c.g.Outcome() != chess.NoOutcome {
		return Risk{}, false
	}
	positions := c.g.Positions()
	current := c.g.Position().Hash()
	count := 0
	for _, p := range positions {
		if p.Hash() == current {
			count++
		}
	}
	if count < 2 {
		return Risk{}, false
	}
	return Risk{
		Side:        c.Turn(),
		Repetitions: count,
		Description: fmt.Sprintf("this position has now appeared %d times; repeating it again hands your opponent a draw", count),
		Suggestion:  "play a capture, a check or a pawn advance that changes the position instead of shuffling pieces",
	}, true
}

// ChessFromMoves builds a game by replaying UCI moves.
func ChessFromMoves(moves ...string) (*Chess, error) {
	c := NewChess()
	for _, m := range moves {
		if err := c.Apply(Move(m)); err != nil {
			return nil, fmt.Errorf("replay %s: %w", m, err)
		}
	}
	return c, nil
}
