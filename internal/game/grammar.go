package game

import (
	"regexp"
	"strconv"
	"strings"
)

// Grammar turns raw agent text into canonical move candidates. Scan finds
// separator tolerant matches anywhere in the text; Prefix matches the start
// of a single token and ignores whatever trails it.
type Grammar interface {
	Scan(text string) []Move
	Prefix(token string) (Move, bool)
}

// ExtractCandidates returns the distinct candidates of text in the order
// they should be tried: full text matches first, then token prefixes.
func ExtractCandidates(g Grammar, text string) []Move {
	seen := map[Move]bool{}
	var out []Move
	add := func(m Move) {
		if m != "" && !seen[m] {
			seen[m] = true
			out = append(out, m)
		}
	}
	for _, m := range g.Scan(text) {
		add(m)
	}
	for _, tok := range strings.Fields(text) {
		tok = strings.TrimLeft(tok, "*_`'\"([{<#.:")
		if m, ok := g.Prefix(tok); ok {
			add(m)
		}
	}
	return out
}

var (
	uciScan   = regexp.MustCompile(`(?i)\b([a-h][1-8])\s*[-x:]?\s*([a-h][1-8])(=?[qrbn])?`)
	uciPrefix = regexp.MustCompile(`(?i)^([a-h][1-8])[-x:]?([a-h][1-8])(=?[qrbn])?`)
)

type uciGrammar struct{}

// UCIGrammar accepts from-square to-square chess moves with an optional
// promotion piece, e.g. "e2e4", "E2-E4", "e7e8=Q".
func UCIGrammar() Grammar { return uciGrammar{} }

func (uciGrammar) Scan(text string) []Move {
	var out []Move
	for _, m := range uciScan.FindAllStringSubmatch(text, -1) {
		out = append(out, uciMove(m))
	}
	return out
}

func (uciGrammar) Prefix(token string) (Move, bool) {
	m := uciPrefix.FindStringSubmatch(token)
	if m == nil {
		return "", false
	}
	return uciMove(m), true
}

func uciMove(groups []string) Move {
	promo := strings.TrimPrefix(groups[3], "=")
	return Move(strings.ToLower(groups[1] + groups[2] + promo))
}

var (
	numberScan   = regexp.MustCompile(`\b\d{1,2}\b`)
	numberPrefix = regexp.MustCompile(`^\d{1,2}`)
)

type numberGrammar struct {
	min, max int
}

// CellGrammar accepts board cell numbers 1..n.
func CellGrammar(n int) Grammar { return numberGrammar{min: 1, max: n} }

// ColumnGrammar accepts column numbers 1..n.
func ColumnGrammar(n int) Grammar { return numberGrammar{min: 1, max: n} }

func (g numberGrammar) Scan(text string) []Move {
	var out []Move
	for _, s := range numberScan.FindAllString(text, -1) {
		if m, ok := g.number(s); ok {
			out = append(out, m)
		}
	}
	return out
}

func (g numberGrammar) Prefix(token string) (Move, bool) {
	return g.number(numberPrefix.FindString(token))
}

func (g numberGrammar) number(s string) (Move, bool) {
	n, err := strconv.Atoi(s)
	if err != nil || n < g.min || n > g.max {
		return "", false
	}
	return Move(strconv.Itoa(n)), true
}
