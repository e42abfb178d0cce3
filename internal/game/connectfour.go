package game

import (
	"strconv"
	"strings"
)

const (
	c4Cols = 7
	c4Rows = 6
)

// ConnectFour drops pieces into columns 1-7. Row 0 is the bottom.
type ConnectFour struct {
	board [c4Rows][c4Cols]int
	turn  int
	moves int
}

func NewConnectFour() *ConnectFour { return &ConnectFour{} }

func (g *ConnectFour) Name() string     { return "connectfour" }
func (g *ConnectFour) Turn() int        { return g.turn }
func (g *ConnectFour) Grammar() Grammar { return ColumnGrammar(c4Cols) }

func (g *ConnectFour) LegalMoves() []Move {
	if g.Status().Over() {
		return nil
	}
	var out []Move
	for c := 0; c < c4Cols; c++ {
		if g.board[c4Rows-1][c] == 0 {
			out = append(out, Move(strconv.Itoa(c+1)))
		}
	}
	return out
}

func (g *ConnectFour) LegalSummary() string {
	return "Legal moves: " + JoinMoves(g.LegalMoves())
}

func (g *ConnectFour) Validate(m Move) error {
	if g.Status().Over() {
		return illegal(ReasonGameOver, "the game is already over")
	}
	n, err := strconv.Atoi(strings.TrimSpace(string(m)))
	if err != nil {
		return illegal(ReasonUnparseable, "%q is not a column number", string(m))
	}
	if n < 1 || n > c4Cols {
		return illegal(ReasonOutOfRange, "column %d is outside 1-%d", n, c4Cols)
	}
	if g.board[c4Rows-1][n-1] != 0 {
		return illegal(ReasonColumnFull, "column %d is full", n)
	}
	return nil
}

func (g *ConnectFour) Apply(m Move) error {
	if err := g.Validate(m); err != nil {
		return err
	}
	col, _ := strconv.Atoi(strings.TrimSpace(string(m)))
	for r := 0; r < c4Rows; r++ {
		if g.board[r][col-1] == 0 {
			g.board[r][col-1] = g.turn + 1
			break
		}
	}
	g.turn = 1 - g.turn
	g.moves++
	return nil
}

func (g *ConnectFour) Status() Status {
	dirs := [4][2]int{{0, 1}, {1, 0}, {1, 1}, {1, -1}}
	names := [4]string{"horizontal", "vertical", "diagonal", "diagonal"}
	for r := 0; r < c4Rows; r++ {
		for c := 0; c < c4Cols; c++ {
			v := g.board[r][c]
			if v == 0 {
				continue
			}
			for i, d := range dirs {
				n := 1
				for ; n < 4; n++ {
					rr, cc := r+d[0]*n, c+d[1]*n
					if rr < 0 || rr >= c4Rows || cc < 0 || cc >= c4Cols || g.board[rr][cc] != v {
						break
					}
				}
				if n == 4 {
					return Status{State: Win, Winner: v - 1, Reason: names[i] + " four"}
				}
			}
		}
	}
	if g.moves == c4Rows*c4Cols {
		return Status{State: Draw, Reason: "board_full"}
	}
	return Status{State: Ongoing}
}

func (g *ConnectFour) Serialize() string {
	var b strings.Builder
	for r := c4Rows - 1; r >= 0; r-- {
		for c := 0; c < c4Cols; c++ {
			if c > 0 {
				b.WriteByte(' ')
			}
			switch g.board[r][c] {
			case 1:
				b.WriteByte('X')
			case 2:
				b.WriteByte('O')
			default:
				b.WriteByte('.')
			}
		}
		b.WriteByte('\n')
	}
	b.WriteString("1 2 3 4 5 6 7")
	return b.String()
}
