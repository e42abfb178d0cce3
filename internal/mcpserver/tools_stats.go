package mcpserver

import (
	"context"

	"agent-arena/internal/game"
	"agent-arena/internal/history"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerStatsTools() {
	s.mcpServer.AddTool(
		mcp.NewTool(
			"game_stats",
			mcp.WithDescription("Win, tie and timeout counts for one game, plus per-model results"),
			mcp.WithString("game", mcp.Required(), mcp.Description("Game name")),
		),
		s.handleGameStats,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"agent_stats",
			mcp.WithDescription("Record of one agent by display name"),
			mcp.WithString("agent", mcp.Required(), mcp.Description("Agent name")),
			mcp.WithString("opponent", mcp.Description("Optional opponent name for head-to-head results")),
		),
		s.handleAgentStats,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"leaderboard",
			mcp.WithDescription("Models ranked by win rate"),
			mcp.WithNumber("min_games", mcp.Description("Minimum games to be ranked, default 3")),
		),
		s.handleLeaderboard,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"recent_games",
			mcp.WithDescription("Most recent finished games, newest first"),
			mcp.WithNumber("limit", mcp.Description("Page size, default 20, max 200")),
		),
		s.handleRecentGames,
	)
}

func (s *Server) handleGameStats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := request.RequireString("game")
	if err != nil {
		return toolError("invalid_request", err.Error()), nil
	}
	name = game.CanonicalName(name)
	stats, err := s.history.GameStats(ctx, name)
	if err != nil {
		return mapDomainError(err), nil
	}
	models, err := s.history.ModelsByGame(ctx, name)
	if err != nil {
		return mapDomainError(err), nil
	}
	return toolResult(map[string]any{"stats": stats, "models": models}), nil
}

func (s *Server) handleAgentStats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := request.RequireString("agent")
	if err != nil {
		return toolError("invalid_request", err.Error()), nil
	}
	if a, ok := s.resolveAgent(name); ok {
		name = a.Name
	}
	if opponent := request.GetString("opponent", ""); opponent != "" {
		if a, ok := s.resolveAgent(opponent); ok {
			opponent = a.Name
		}
		h2h, err := s.history.HeadToHead(ctx, name, opponent)
		if err != nil {
			return mapDomainError(err), nil
		}
		return toolResult(h2h), nil
	}
	stats, err := s.history.AgentStats(ctx, name)
	if err != nil {
		return mapDomainError(err), nil
	}
	return toolResult(stats), nil
}

func (s *Server) handleLeaderboard(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	minGames := request.GetInt("min_games", history.DefaultLeaderboardMinGames)
	if minGames < 0 {
		return toolError("invalid_request", "min_games must be >= 0"), nil
	}
	items, err := s.history.Leaderboard(ctx, minGames)
	if err != nil {
		return mapDomainError(err), nil
	}
	return toolResult(map[string]any{"items": items, "min_games": minGames}), nil
}

func (s *Server) handleRecentGames(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := clampLimit(request.GetInt("limit", defaultRecentLimit), defaultRecentLimit, maxRecentLimit)
	items, err := s.history.Recent(ctx, limit)
	if err != nil {
		return mapDomainError(err), nil
	}
	return toolResult(map[string]any{"items": items}), nil
}
