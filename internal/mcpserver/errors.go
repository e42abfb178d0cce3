package mcpserver

import (
	"errors"
	"fmt"

	"agent-arena/internal/arena"
	"agent-arena/internal/game"

	"github.com/mark3labs/mcp-go/mcp"
)

var errSessionNotFound = errors.New("session_not_found")

func toolResult(data any) *mcp.CallToolResult {
	return mcp.NewToolResultStructuredOnly(data)
}

func toolError(code, message string) *mcp.CallToolResult {
	result := mcp.NewToolResultStructured(
		map[string]any{
			"error": map[string]any{
				"code":    code,
				"message": message,
			},
		},
		fmt.Sprintf("%s: %s", code, message),
	)
	result.IsError = true
	return result
}

func mapDomainError(err error) *mcp.CallToolResult {
	switch {
	case err == nil:
		return toolError("internal_error", "unknown error")
	case errors.Is(err, arena.ErrSessionBusy):
		return toolError("session_busy", err.Error())
	case errors.Is(err, arena.ErrInvalidRequest):
		return toolError("invalid_request", err.Error())
	case errors.Is(err, arena.ErrUnknownAgent):
		return toolError("unknown_agent", err.Error())
	case errors.Is(err, game.ErrUnknownGame):
		return toolError("unknown_game", err.Error())
	case errors.Is(err, arena.ErrNotInGame):
		return toolError("not_in_game", err.Error())
	case errors.Is(err, arena.ErrAlreadyInGame):
		return toolError("already_in_game", err.Error())
	default:
		return toolError("internal_error", err.Error())
	}
}
