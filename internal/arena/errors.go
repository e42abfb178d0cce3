package arena

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrSessionBusy     = errors.New("session_busy")
	ErrAlreadyInGame   = errors.New("already_in_game")
	ErrNotInGame       = errors.New("not_in_game")
	ErrAgentState      = errors.New("agent_state")
	ErrMoveWaitTimeout = errors.New("move_wait_timeout")
	ErrUnknownAgent    = errors.New("unknown_agent")
	ErrInvalidRequest  = errors.New("invalid_request")
)

// CooldownError is returned while the idle period after the last session
// has not elapsed yet.
type CooldownError struct {
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("session_busy: cooling down for %s", e.Remaining.Round(time.Second))
}

func (e *CooldownError) Unwrap() error { return ErrSessionBusy }

// AgentStateError means an agent could not be read or restored, usually
// because it was removed while in game mode.
type AgentStateError struct {
	AgentID string
	Op      string
}

func (e *AgentStateError) Error() string {
	return fmt.Sprintf("agent_state: %s %s", e.Op, e.AgentID)
}

func (e *AgentStateError) Unwrap() error { return ErrAgentState }
