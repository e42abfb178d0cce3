package mcpserver

import (
	"context"
	"fmt"
	"sort"

	"agent-arena/internal/arena"
	"agent-arena/internal/game"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerGameTools() {
	s.mcpServer.AddTool(
		mcp.NewTool(
			"start_game",
			mcp.WithDescription("Start a game between two agents. Only one game runs at a time."),
			mcp.WithString("game", mcp.Required(), mcp.Description("tictactoe|connectfour|chess")),
			mcp.WithArray("players", mcp.Required(), mcp.Description("Exactly two agent ids or names"), mcp.Items(map[string]any{"type": "string"})),
			mcp.WithArray("spectators", mcp.Description("Agent ids or names invited to comment"), mcp.Items(map[string]any{"type": "string"})),
			mcp.WithObject("params", mcp.Description("Optional game parameters, e.g. chess opening")),
		),
		s.handleStartGame,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"active_games",
			mcp.WithDescription("List the game session in progress, if any"),
		),
		s.handleActiveGames,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"set_turn_context",
			mcp.WithDescription("Set the private hint an in-game agent sees on its next turn. An empty hint clears it."),
			mcp.WithString("agent", mcp.Required(), mcp.Description("Agent id or name")),
			mcp.WithString("hint", mcp.Description("Hint text")),
		),
		s.handleSetTurnContext,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"game_move_schema",
			mcp.WithDescription("Function-call schema players use to submit moves. Omit game to list every game."),
			mcp.WithString("game", mcp.Description("tictactoe|connectfour|chess")),
		),
		s.handleGameMoveSchema,
	)
}

func (s *Server) handleStartGame(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	gameName, err := request.RequireString("game")
	if err != nil {
		return toolError("invalid_request", err.Error()), nil
	}
	players, err := request.RequireStringSlice("players")
	if err != nil {
		return toolError("invalid_request", err.Error()), nil
	}
	h, err := s.games.StartGame(ctx, arena.StartRequest{
		Game:       gameName,
		Players:    players,
		Spectators: request.GetStringSlice("spectators", nil),
		Params:     stringParams(request.GetArguments()["params"]),
	})
	if err != nil {
		return mapDomainError(err), nil
	}
	return toolResult(h.Snapshot()), nil
}

func (s *Server) handleActiveGames(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	games := []arena.SessionSnapshot{}
	if h, ok := s.games.ActiveGame(); ok {
		games = append(games, h.Snapshot())
	}
	return toolResult(map[string]any{"games": games}), nil
}

func (s *Server) handleSetTurnContext(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ref, err := request.RequireString("agent")
	if err != nil {
		return toolError("invalid_request", err.Error()), nil
	}
	a, ok := s.resolveAgent(ref)
	if !ok {
		return toolError("unknown_agent", ref), nil
	}
	hint := request.GetString("hint", "")
	if err := s.games.UpdateTurnContext(a.ID, hint); err != nil {
		return mapDomainError(err), nil
	}
	return toolResult(map[string]any{"agent_id": a.ID, "hint": hint}), nil
}

func (s *Server) handleGameMoveSchema(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := request.GetString("game", "")
	if name != "" {
		t, ok := MoveToolFor(name)
		if !ok {
			return toolError("unknown_game", name), nil
		}
		return toolResult(map[string]any{"game": game.CanonicalName(name), "tool": t}), nil
	}
	names := make([]string, 0, len(moveTools))
	for n := range moveTools {
		names = append(names, n)
	}
	sort.Strings(names)
	items := make([]map[string]any, 0, len(names))
	for _, n := range names {
		items = append(items, map[string]any{"game": n, "tool": moveTools[n]})
	}
	return toolResult(map[string]any{"items": items}), nil
}

func stringParams(raw any) map[string]string {
	m, ok := raw.(map[string]any)
	if !ok || len(m) == 0 {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = fmt.Sprint(v)
	}
	return out
}
