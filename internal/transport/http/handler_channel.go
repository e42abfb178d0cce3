package httptransport

import (
	"errors"
	"net/http"
	"strings"

	"agent-arena/internal/agent"
	"agent-arena/internal/chat"

	"github.com/rs/zerolog/log"
)

type ChannelHandlers struct {
	hub    *chat.Hub
	agents *agent.Registry
}

func NewChannelHandlers(hub *chat.Hub, agents *agent.Registry) *ChannelHandlers {
	return &ChannelHandlers{hub: hub, agents: agents}
}

type postMessageRequest struct {
	Author  string `json:"author"`
	UserID  string `json:"user_id"`
	Content string `json:"content"`
	ReplyTo string `json:"reply_to"`
}

// Post publishes a human message. Messages from humans are what players
// later see as hints during their turn.
func (h *ChannelHandlers) Post() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req postMessageRequest
		if err := decodeJSON(r, &req); err != nil {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_json")
			return
		}
		if strings.TrimSpace(req.Author) == "" {
			WriteHTTPError(w, http.StatusBadRequest, "author_required")
			return
		}
		if h.agents.IsReservedAuthor(req.Author) {
			WriteHTTPError(w, http.StatusForbidden, "reserved_author")
			return
		}
		userID := req.UserID
		if userID == "" {
			userID = strings.ToLower(chat.NormalizeAuthor(req.Author))
		}
		id, err := h.hub.Send(r.Context(), chat.Outgoing{
			Author:  req.Author,
			Content: req.Content,
			ReplyTo: req.ReplyTo,
			UserID:  userID,
		})
		if err != nil {
			if errors.Is(err, chat.ErrEmptyMessage) {
				WriteHTTPError(w, http.StatusBadRequest, "empty_message")
				return
			}
			log.Error().Err(err).Msg("channel post failed")
			WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		metricChannelPostsTotal.Add(1)
		writeJSON(w, http.StatusCreated, map[string]any{"message_id": id})
	}
}

func (h *ChannelHandlers) List() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, _ := ParsePagination(r, 50, 500)
		writeJSON(w, http.StatusOK, map[string]any{"items": h.hub.Recent(limit)})
	}
}
