package mcpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"agent-arena/internal/agent"
	"agent-arena/internal/arena"
	"agent-arena/internal/history"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Server exposes the arena control surface as MCP tools.
type Server struct {
	games   *arena.Orchestrator
	history *history.Service
	agents  *agent.Registry

	mcpServer  *server.MCPServer
	httpServer *server.StreamableHTTPServer
}

func New(games *arena.Orchestrator, hist *history.Service, agents *agent.Registry) *Server {
	mcpSrv := server.NewMCPServer(
		"agent-arena",
		"0.1.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithRecovery(),
		server.WithResourceRecovery(),
	)
	s := &Server{
		games:      games,
		history:    hist,
		agents:     agents,
		mcpServer:  mcpSrv,
		httpServer: server.NewStreamableHTTPServer(mcpSrv, server.WithStateLess(true), server.WithDisableStreaming(true)),
	}
	s.registerGameTools()
	s.registerStatsTools()
	s.registerResources()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.httpServer
}

func (s *Server) registerResources() {
	s.mcpServer.AddResourceTemplate(
		mcp.NewResourceTemplate(
			"game://{session_id}/state",
			"game_session_state",
			mcp.WithTemplateDescription("Public state of the active game session"),
			mcp.WithTemplateMIMEType("application/json"),
		),
		func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
			raw := request.Params.URI
			if !strings.HasPrefix(raw, "game://") || !strings.HasSuffix(raw, "/state") {
				return nil, nil
			}
			sessionID := strings.TrimSuffix(strings.TrimPrefix(raw, "game://"), "/state")
			h, ok := s.games.ActiveGame()
			if !ok || h.ID != sessionID {
				return nil, errSessionNotFound
			}
			payload, err := json.Marshal(h.Snapshot())
			if err != nil {
				return nil, err
			}
			return []mcp.ResourceContents{
				mcp.TextResourceContents{
					URI:      raw,
					MIMEType: "application/json",
					Text:     string(payload),
				},
			}, nil
		},
	)
}

// resolveAgent accepts either an internal agent id or a display name.
func (s *Server) resolveAgent(ref string) (*agent.Agent, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, false
	}
	if a, ok := s.agents.Get(ref); ok {
		return a, true
	}
	return s.agents.ByName(ref)
}
