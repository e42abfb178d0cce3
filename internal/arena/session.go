package arena

import (
	"strings"
	"sync"
	"time"

	"agent-arena/internal/chat"
)

type Player struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Model string `json:"model,omitempty"`
}

type Outcome string

const (
	OutcomeWin     Outcome = "win"
	OutcomeDraw    Outcome = "draw"
	OutcomeTimeout Outcome = "timeout"
	OutcomeError   Outcome = "error"
	OutcomeAborted Outcome = "aborted"
)

// GameResult is handed to the ResultRecorder once a session ends.
type GameResult struct {
	SessionID  string    `json:"session_id"`
	Game       string    `json:"game"`
	Players    [2]Player `json:"players"`
	Spectators []Player  `json:"spectators"`
	Outcome    Outcome   `json:"outcome"`
	WinnerID   string    `json:"winner_id,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	Moves      int       `json:"moves"`
	StartedAt  time.Time `json:"started_at"`
	EndedAt    time.Time `json:"ended_at"`
	Err        string    `json:"error,omitempty"`
}

func (r GameResult) Winner() (Player, bool) {
	for _, p := range r.Players {
		if r.WinnerID != "" && p.ID == r.WinnerID {
			return p, true
		}
	}
	return Player{}, false
}

// Session is the state of one in-progress game. Settings snapshots and
// turn contexts live in the ContextManager, keyed by the same agent ids.
type Session struct {
	ID         string
	Game       string
	Players    [2]Player
	Spectators []Player
	StartedAt  time.Time
	Events     *chat.EventBuffer

	nameToID map[string]string
	over     chan struct{}
	overOnce sync.Once

	mu        sync.Mutex
	turn      int
	moveCount int
	lastMove  string
}

func newSession(id, gameName string, players [2]Player, spectators []Player, now time.Time) *Session {
	s := &Session{
		ID:         id,
		Game:       gameName,
		Players:    players,
		Spectators: spectators,
		StartedAt:  now,
		Events:     chat.NewEventBuffer("session:"+id, 500),
		nameToID:   map[string]string{},
		over:       make(chan struct{}),
	}
	for _, p := range players {
		s.nameToID[strings.ToLower(p.Name)] = p.ID
	}
	return s
}

// Over closes once play has stopped, before teardown notifies anyone.
func (s *Session) Over() <-chan struct{} { return s.over }

func (s *Session) end() { s.overOnce.Do(func() { close(s.over) }) }

// PlayerIDByName maps an observed author name to a player id. The name is
// normalized first.
func (s *Session) PlayerIDByName(author string) (string, bool) {
	id, ok := s.nameToID[strings.ToLower(chat.NormalizeAuthor(author))]
	return id, ok
}

func (s *Session) setTurn(side int) {
	s.mu.Lock()
	s.turn = side
	s.mu.Unlock()
}

func (s *Session) recordMove(desc string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.moveCount++
	s.lastMove = desc
	return s.moveCount
}

type SessionSnapshot struct {
	ID         string    `json:"session_id"`
	Game       string    `json:"game"`
	Players    [2]Player `json:"players"`
	Spectators []Player  `json:"spectators"`
	TurnHolder string    `json:"turn_holder"`
	MoveCount  int       `json:"move_count"`
	LastMove   string    `json:"last_move,omitempty"`
	StartedAt  time.Time `json:"started_at"`
}

func (s *Session) Snapshot() SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SessionSnapshot{
		ID:         s.ID,
		Game:       s.Game,
		Players:    s.Players,
		Spectators: append([]Player(nil), s.Spectators...),
		TurnHolder: s.Players[s.turn].ID,
		MoveCount:  s.moveCount,
		LastMove:   s.lastMove,
		StartedAt:  s.StartedAt,
	}
}
