package httptransport

import (
	"net/http"
	"strconv"
	"strings"

	"agent-arena/internal/game"
	"agent-arena/internal/history"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

type StatsHandlers struct {
	history *history.Service
}

func NewStatsHandlers(hist *history.Service) *StatsHandlers {
	return &StatsHandlers{history: hist}
}

func (h *StatsHandlers) Game() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := game.CanonicalName(chi.URLParam(r, "game"))
		stats, err := h.history.GameStats(r.Context(), name)
		if err != nil {
			statsFailed(w, "game", err)
			return
		}
		models, err := h.history.ModelsByGame(r.Context(), name)
		if err != nil {
			statsFailed(w, "game_models", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"stats": stats, "models": models})
	}
}

func (h *StatsHandlers) Agent() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := h.history.AgentStats(r.Context(), chi.URLParam(r, "agent"))
		if err != nil {
			statsFailed(w, "agent", err)
			return
		}
		writeJSON(w, http.StatusOK, stats)
	}
}

func (h *StatsHandlers) HeadToHead() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a := strings.TrimSpace(r.URL.Query().Get("a"))
		b := strings.TrimSpace(r.URL.Query().Get("b"))
		if a == "" || b == "" {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_request")
			return
		}
		stats, err := h.history.HeadToHead(r.Context(), a, b)
		if err != nil {
			statsFailed(w, "head_to_head", err)
			return
		}
		writeJSON(w, http.StatusOK, stats)
	}
}

func (h *StatsHandlers) Models() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if model := strings.TrimSpace(r.URL.Query().Get("model")); model != "" {
			stats, err := h.history.ModelStats(r.Context(), model)
			if err != nil {
				statsFailed(w, "model", err)
				return
			}
			writeJSON(w, http.StatusOK, stats)
			return
		}
		all, err := h.history.AllModels(r.Context())
		if err != nil {
			statsFailed(w, "models", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": all})
	}
}

func (h *StatsHandlers) Leaderboard() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		minGames := history.DefaultLeaderboardMinGames
		if v := r.URL.Query().Get("min_games"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				WriteHTTPError(w, http.StatusBadRequest, "invalid_min_games")
				return
			}
			minGames = n
		}
		items, err := h.history.Leaderboard(r.Context(), minGames)
		if err != nil {
			statsFailed(w, "leaderboard", err)
			return
		}
		if items == nil {
			items = []history.ModelStats{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items, "min_games": minGames})
	}
}

func statsFailed(w http.ResponseWriter, query string, err error) {
	log.Error().Err(err).Str("query", query).Msg("stats query failed")
	WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
}
