package httptransport

import (
	"net/http"
	"strconv"
	"time"

	"agent-arena/internal/arena"
	"agent-arena/internal/chat"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

var ssePingInterval = 15 * time.Second

func setSSEHeaders(w http.ResponseWriter) {
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache, no-transform")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	h.Set("X-Content-Type-Options", "nosniff")
}

// SpectateEventsHandler streams either the shared channel (stream=channel,
// the default) or the active game session (stream=session). A session
// stream ends when the session closes.
func SpectateEventsHandler(hub *chat.Hub, games *arena.Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var buf *chat.EventBuffer
		streamName := "channel"
		switch r.URL.Query().Get("stream") {
		case "", "channel":
			buf = hub.Events()
		case "session":
			h, ok := games.ActiveGame()
			if want := r.URL.Query().Get("session_id"); !ok || (want != "" && want != h.ID) {
				WriteHTTPError(w, http.StatusNotFound, "session_not_found")
				return
			}
			buf = h.Events()
			streamName = "session:" + h.ID
		default:
			WriteHTTPError(w, http.StatusBadRequest, "invalid_stream")
			return
		}
		flusher, ok := w.(http.Flusher)
		if !ok {
			WriteHTTPError(w, http.StatusInternalServerError, "stream_not_supported")
			return
		}

		metricSpectateSSEConnectionsTotal.Add(1)
		metricSpectateSSEConnectionsActive.Add(1)
		defer metricSpectateSSEConnectionsActive.Add(-1)

		setSSEHeaders(w)
		log.Info().
			Str("request_id", chimw.GetReqID(r.Context())).
			Str("stream", streamName).
			Msg("sse stream opened")

		// Subscribe before replaying so nothing appended in between is lost.
		ch := buf.Subscribe()
		defer buf.Unsubscribe(ch)
		lastEventID := r.Header.Get("Last-Event-ID")
		lastSent, _ := strconv.ParseInt(lastEventID, 10, 64)
		for _, ev := range buf.ReplayAfter(lastEventID) {
			if err := chat.WriteSSE(w, ev); err != nil {
				return
			}
			lastSent = eventSeq(ev)
			logSSEEvent(r, streamName, "replay", ev)
		}
		flusher.Flush()

		ticker := time.NewTicker(ssePingInterval)
		defer ticker.Stop()

		for {
			select {
			case <-r.Context().Done():
				log.Info().
					Str("request_id", chimw.GetReqID(r.Context())).
					Str("stream", streamName).
					Err(r.Context().Err()).
					Msg("sse stream closed")
				return
			case ev, ok := <-ch:
				if !ok {
					log.Info().
						Str("request_id", chimw.GetReqID(r.Context())).
						Str("stream", streamName).
						Msg("sse stream channel closed")
					return
				}
				if seq := eventSeq(ev); seq != 0 && seq <= lastSent {
					continue
				}
				if err := chat.WriteSSE(w, ev); err != nil {
					return
				}
				logSSEEvent(r, streamName, "live", ev)
				flusher.Flush()
			case <-ticker.C:
				ping := chat.StreamEvent{
					Event:    "ping",
					Stream:   streamName,
					ServerTS: time.Now().UnixMilli(),
					Data:     map[string]any{"ts": time.Now().UnixMilli()},
				}
				if err := chat.WriteSSE(w, ping); err != nil {
					return
				}
				logSSEEvent(r, streamName, "ping", ping)
				flusher.Flush()
			}
		}
	}
}

func eventSeq(ev chat.StreamEvent) int64 {
	n, err := strconv.ParseInt(ev.EventID, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func logSSEEvent(r *http.Request, streamName, source string, ev chat.StreamEvent) {
	evt := log.Info()
	if ev.Event == "ping" || ev.Event == "message" {
		evt = log.Debug()
	}
	evt.
		Str("request_id", chimw.GetReqID(r.Context())).
		Str("stream", streamName).
		Str("event", ev.Event).
		Str("event_id", ev.EventID).
		Str("source", source).
		Int64("server_ts", ev.ServerTS).
		Msg("sse event sent")
}
