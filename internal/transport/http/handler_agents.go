package httptransport

import (
	"errors"
	"net/http"

	"agent-arena/internal/agent"
	"agent-arena/internal/arena"

	"github.com/go-chi/chi/v5"
)

type AgentHandlers struct {
	agents *agent.Registry
	games  *arena.Orchestrator
}

func NewAgentHandlers(agents *agent.Registry, games *arena.Orchestrator) *AgentHandlers {
	return &AgentHandlers{agents: agents, games: games}
}

type agentView struct {
	ID     string     `json:"id"`
	Name   string     `json:"name"`
	Model  string     `json:"model,omitempty"`
	InGame bool       `json:"in_game"`
	Role   arena.Role `json:"role,omitempty"`
}

func (h *AgentHandlers) List() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		all := h.agents.All()
		items := make([]agentView, 0, len(all))
		for _, a := range all {
			role, in := h.games.Contexts().Role(a.ID)
			items = append(items, agentView{ID: a.ID, Name: a.Name, Model: a.Model, InGame: in, Role: role})
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items})
	}
}

type turnContextRequest struct {
	Hint string `json:"hint"`
}

func (h *AgentHandlers) TurnContext() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		metricTurnContextTotal.Add(1)
		ref := chi.URLParam(r, "agent_id")
		a, ok := h.agents.Get(ref)
		if !ok {
			a, ok = h.agents.ByName(ref)
		}
		if !ok {
			WriteHTTPError(w, http.StatusNotFound, "unknown_agent")
			return
		}
		var req turnContextRequest
		if err := decodeJSON(r, &req); err != nil {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_json")
			return
		}
		if err := h.games.UpdateTurnContext(a.ID, req.Hint); err != nil {
			if errors.Is(err, arena.ErrNotInGame) {
				WriteHTTPError(w, http.StatusConflict, "not_in_game")
				return
			}
			WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "agent_id": a.ID})
	}
}
