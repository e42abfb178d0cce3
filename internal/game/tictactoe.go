package game

import (
	"fmt"
	"strconv"
	"strings"
)

var tttLines = [8]struct {
	cells [3]int
	kind  string
}{
	{[3]int{0, 1, 2}, "row"}, {[3]int{3, 4, 5}, "row"}, {[3]int{6, 7, 8}, "row"},
	{[3]int{0, 3, 6}, "column"}, {[3]int{1, 4, 7}, "column"}, {[3]int{2, 5, 8}, "column"},
	{[3]int{0, 4, 8}, "diagonal"}, {[3]int{2, 4, 6}, "diagonal"},
}

var marks = [3]string{" ", "X", "O"}

// TicTacToe is played on cells numbered 1-9 left to right, top to bottom.
// Side 0 plays X.
type TicTacToe struct {
	board [9]int
	turn  int
	moves int
}

func NewTicTacToe() *TicTacToe { return &TicTacToe{} }

func (g *TicTacToe) Name() string     { return "tictactoe" }
func (g *TicTacToe) Turn() int        { return g.turn }
func (g *TicTacToe) Grammar() Grammar { return CellGrammar(9) }

func (g *TicTacToe) LegalMoves() []Move {
	if g.Status().Over() {
		return nil
	}
	var out []Move
	for i, v := range g.board {
		if v == 0 {
			out = append(out, Move(strconv.Itoa(i+1)))
		}
	}
	return out
}

func (g *TicTacToe) LegalSummary() string {
	return "Legal moves: " + JoinMoves(g.LegalMoves())
}

func (g *TicTacToe) Validate(m Move) error {
	if g.Status().Over() {
		return illegal(ReasonGameOver, "the game is already over")
	}
	n, err := strconv.Atoi(strings.TrimSpace(string(m)))
	if err != nil {
		return illegal(ReasonUnparseable, "%q is not a cell number", string(m))
	}
	if n < 1 || n > 9 {
		return illegal(ReasonOutOfRange, "cell %d is outside 1-9", n)
	}
	if v := g.board[n-1]; v != 0 {
		return illegal(ReasonOccupied, "cell %d already holds %s", n, marks[v])
	}
	return nil
}

func (g *TicTacToe) Apply(m Move) error {
	if err := g.Validate(m); err != nil {
		return err
	}
	n, _ := strconv.Atoi(strings.TrimSpace(string(m)))
	g.board[n-1] = g.turn + 1
	g.turn = 1 - g.turn
	g.moves++
	return nil
}

func (g *TicTacToe) Status() Status {
	for _, line := range tttLines {
		a, b, c := g.board[line.cells[0]], g.board[line.cells[1]], g.board[line.cells[2]]
		if a != 0 && a == b && b == c {
			return Status{
				State:  Win,
				Winner: a - 1,
				Reason: fmt.Sprintf("%s win on %d-%d-%d", line.kind, line.cells[0]+1, line.cells[1]+1, line.cells[2]+1),
			}
		}
	}
	if g.moves == 9 {
		return Status{State: Draw, Reason: "board_full"}
	}
	return Status{State: Ongoing}
}

func (g *TicTacToe) Serialize() string {
	var b strings.Builder
	for row := 0; row < 3; row++ {
		if row > 0 {
			b.WriteString("\n---+---+---\n")
		}
		for col := 0; col < 3; col++ {
			i := row*3 + col
			cell := marks[g.board[i]]
			if g.board[i] == 0 {
				cell = strconv.Itoa(i + 1)
			}
			if col > 0 {
				b.WriteString("|")
			}
			b.WriteString(" " + cell + " ")
		}
	}
	return b.String()
}
