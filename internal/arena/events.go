package arena

// Public session events, appended to Session.Events.
const (
	EventGameStarted   = "game_started"
	EventTurnStarted   = "turn_started"
	EventMoveRejected  = "move_rejected"
	EventMoveApplied   = "move_applied"
	EventAntiPattern   = "anti_pattern_warning"
	EventCommentary    = "commentary"
	EventGameOver      = "game_over"
	EventSessionClosed = "session_closed"
)

type TurnStartedData struct {
	PlayerID   string   `json:"player_id"`
	Move       int      `json:"move"`
	LegalMoves []string `json:"legal_moves"`
}

type MoveData struct {
	PlayerID string `json:"player_id"`
	Move     string `json:"move"`
	Raw      string `json:"raw,omitempty"`
	Reason   string `json:"reason,omitempty"`
	Count    int    `json:"move_count"`
	State    string `json:"state,omitempty"`
}

type CommentaryData struct {
	SpectatorID string `json:"spectator_id"`
	Spectator   string `json:"spectator"`
	MoveCount   int    `json:"move_count"`
	Text        string `json:"text"`
}
