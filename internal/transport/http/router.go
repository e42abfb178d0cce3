package httptransport

import (
	"context"
	"expvar"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"agent-arena/internal/agent"
	"agent-arena/internal/arena"
	"agent-arena/internal/chat"
	"agent-arena/internal/config"
	"agent-arena/internal/history"
	"agent-arena/internal/mcpserver"
	"agent-arena/internal/ws"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

// Pinger reports backing store health. Nil when running on memory only.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Deps struct {
	Games   *arena.Orchestrator
	History *history.Service
	Agents  *agent.Registry
	Hub     *chat.Hub
	DB      Pinger
}

func NewRouter(deps Deps, cfg config.ServerConfig) *chi.Mux {
	mcpSrv := mcpserver.New(deps.Games, deps.History, deps.Agents)
	wsSrv := ws.NewServer(deps.Hub, deps.Games, deps.Agents)

	gameHandlers := NewGameHandlers(deps.Games, deps.History)
	agentHandlers := NewAgentHandlers(deps.Agents, deps.Games)
	statsHandlers := NewStatsHandlers(deps.History)
	channelHandlers := NewChannelHandlers(deps.Hub, deps.Agents)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)

	r.With(APILogMiddleware()).Get("/healthz", HealthHandler(deps.DB))
	r.With(APILogMiddleware()).MethodFunc(http.MethodOptions, "/mcp", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Allow", "POST, GET, DELETE, OPTIONS")
		w.WriteHeader(http.StatusNoContent)
	})
	r.With(APILogMiddleware()).Method(http.MethodPost, "/mcp", mcpSrv.Handler())
	r.With(APILogMiddleware()).Method(http.MethodGet, "/mcp", mcpSrv.Handler())
	r.With(APILogMiddleware()).Method(http.MethodDelete, "/mcp", mcpSrv.Handler())
	r.Get("/ws", wsSrv.HandleWS)

	r.Route("/api", func(r chi.Router) {
		r.Use(APILogMiddleware())
		r.Post("/games", gameHandlers.Start())
		r.Get("/games/active", gameHandlers.Active())
		r.Get("/games/history", gameHandlers.History())

		r.Get("/agents", agentHandlers.List())
		r.Post("/agents/{agent_id}/turn_context", agentHandlers.TurnContext())

		r.Get("/stats/games/{game}", statsHandlers.Game())
		r.Get("/stats/agents/{agent}", statsHandlers.Agent())
		r.Get("/stats/head_to_head", statsHandlers.HeadToHead())
		r.Get("/stats/models", statsHandlers.Models())
		r.Get("/stats/leaderboard", statsHandlers.Leaderboard())

		r.Post("/channel/messages", channelHandlers.Post())
		r.Get("/channel/messages", channelHandlers.List())
		r.Get("/spectate/events", SpectateEventsHandler(deps.Hub, deps.Games))

		r.Group(func(r chi.Router) {
			r.Use(AdminAuthMiddleware(cfg.AdminAPIKey))
			r.Delete("/games/history", gameHandlers.ClearHistory())

			r.Route("/debug", func(r chi.Router) {
				r.Use(BodyCaptureMiddleware(4096))
				r.Get("/vars", expvar.Handler().ServeHTTP)
			})
		})
	})
	return r
}

func HealthHandler(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db == nil {
			writeJSON(w, http.StatusOK, map[string]any{"ok": true, "db": "disabled"})
			return
		}
		if err := db.Ping(r.Context()); err != nil {
			log.Warn().Err(err).Msg("health check db ping failed")
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"ok": false, "db": "down"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "db": "up"})
	}
}

func LogRoutes(r chi.Router) {
	type routeDef struct {
		Method string
		Path   string
	}
	routes := make([]routeDef, 0, 64)
	err := chi.Walk(r, func(method string, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		routes = append(routes, routeDef{Method: method, Path: route})
		return nil
	})
	if err != nil {
		log.Error().Err(err).Msg("walk routes failed")
		return
	}
	sort.Slice(routes, func(i, j int) bool {
		if routes[i].Path == routes[j].Path {
			return routes[i].Method < routes[j].Method
		}
		return routes[i].Path < routes[j].Path
	})
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Registered routes (%d):\n", len(routes)))
	for _, rt := range routes {
		b.WriteString(fmt.Sprintf("  %-6s %s\n", rt.Method, rt.Path))
	}
	fmt.Print(b.String())
}
