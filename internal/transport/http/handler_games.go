package httptransport

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"agent-arena/internal/arena"
	"agent-arena/internal/game"
	"agent-arena/internal/history"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

type GameHandlers struct {
	games   *arena.Orchestrator
	history *history.Service
}

func NewGameHandlers(games *arena.Orchestrator, hist *history.Service) *GameHandlers {
	return &GameHandlers{games: games, history: hist}
}

func (h *GameHandlers) Start() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		metricGameStartTotal.Add(1)
		var req arena.StartRequest
		if err := decodeJSON(r, &req); err != nil {
			metricGameStartErrors.Add(1)
			WriteHTTPError(w, http.StatusBadRequest, "invalid_json")
			return
		}
		handle, err := h.games.StartGame(r.Context(), req)
		if err != nil {
			metricGameStartErrors.Add(1)
			var cd *arena.CooldownError
			if errors.As(err, &cd) {
				w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(cd.Remaining.Seconds()))))
			}
			status, code := mapStartError(err)
			if status >= http.StatusInternalServerError {
				log.Error().Err(err).Str("request_id", chimw.GetReqID(r.Context())).Msg("start game failed")
			}
			WriteHTTPError(w, status, code)
			return
		}
		writeJSON(w, http.StatusCreated, handle.Snapshot())
	}
}

func mapStartError(err error) (int, string) {
	switch {
	case errors.Is(err, arena.ErrSessionBusy):
		return http.StatusConflict, "session_busy"
	case errors.Is(err, arena.ErrAlreadyInGame):
		return http.StatusConflict, "already_in_game"
	case errors.Is(err, arena.ErrInvalidRequest):
		return http.StatusBadRequest, "invalid_request"
	case errors.Is(err, arena.ErrUnknownAgent):
		return http.StatusNotFound, "unknown_agent"
	case errors.Is(err, game.ErrUnknownGame):
		return http.StatusNotFound, "unknown_game"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func (h *GameHandlers) Active() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		handle, ok := h.games.ActiveGame()
		if !ok {
			writeJSON(w, http.StatusOK, map[string]any{"active": false})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"active": true, "session": handle.Snapshot()})
	}
}

func (h *GameHandlers) History() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, offset := ParsePagination(r, 20, 200)
		recs, err := h.history.Recent(r.Context(), limit+offset)
		if err != nil {
			log.Error().Err(err).Msg("list game history failed")
			WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		if offset >= len(recs) {
			recs = recs[:0]
		} else {
			recs = recs[offset:]
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": recs, "limit": limit, "offset": offset})
	}
}

func (h *GameHandlers) ClearHistory() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n, err := h.history.Clear(r.Context())
		if err != nil {
			log.Error().Err(err).Msg("clear game history failed")
			WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "cleared": n})
	}
}
