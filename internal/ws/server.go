package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"agent-arena/internal/agent"
	"agent-arena/internal/arena"
	"agent-arena/internal/chat"
)

var pingInterval = 20 * time.Second

const writeWait = 5 * time.Second

type Client struct {
	conn *websocket.Conn
	send chan []byte

	mu     sync.Mutex
	stream string
	stop   func()
	closed bool
}

// Server is a WebSocket gateway to the shared channel: clients post human
// messages and follow either the channel or the active game session.
type Server struct {
	hub      *chat.Hub
	games    *arena.Orchestrator
	agents   *agent.Registry
	upgrader websocket.Upgrader
}

func NewServer(hub *chat.Hub, games *arena.Orchestrator, agents *agent.Registry) *Server {
	return &Server{
		hub:      hub,
		games:    games,
		agents:   agents,
		upgrader: websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
	}
}

func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	client := &Client{conn: conn, send: make(chan []byte, 64)}
	metricWSConnectionsTotal.Add(1)
	metricWSConnectionsActive.Add(1)

	go s.writeLoop(client)
	s.readLoop(r.Context(), client)
}

func (s *Server) readLoop(ctx context.Context, c *Client) {
	defer func() {
		c.shutdown()
		metricWSConnectionsActive.Add(-1)
	}()

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var base struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(msg, &base); err != nil {
			continue
		}
		switch base.Type {
		case "spectate":
			var spec SpectateMessage
			_ = json.Unmarshal(msg, &spec)
			s.handleSpectate(c, spec)
		case "say":
			var say SayMessage
			if err := json.Unmarshal(msg, &say); err != nil {
				c.enqueue(SayResult{Type: "say_result", ProtocolVersion: ProtocolVersion, Error: "invalid_message"})
				continue
			}
			c.enqueue(s.handleSay(ctx, say))
		}
	}
}

func (s *Server) writeLoop(c *Client) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *Server) handleSpectate(c *Client, spec SpectateMessage) {
	stream := spec.Stream
	var buf *chat.EventBuffer
	switch stream {
	case "", "channel":
		stream = "channel"
		buf = s.hub.Events()
	case "session":
		h, ok := s.games.ActiveGame()
		if !ok {
			c.enqueue(SpectateResult{Type: "spectate_result", ProtocolVersion: ProtocolVersion, Error: "session_not_found"})
			return
		}
		buf = h.Events()
		stream = "session:" + h.ID
	default:
		c.enqueue(SpectateResult{Type: "spectate_result", ProtocolVersion: ProtocolVersion, Error: "invalid_stream"})
		return
	}

	ch := buf.Subscribe()
	done := make(chan struct{})
	stop := func() {
		select {
		case <-done:
		default:
			close(done)
		}
		buf.Unsubscribe(ch)
	}
	if !c.follow(stream, stop) {
		stop()
		return
	}
	c.enqueue(SpectateResult{Type: "spectate_result", ProtocolVersion: ProtocolVersion, Ok: true, Stream: stream})
	replay := buf.ReplayAfter(spec.LastEventID)
	go func() {
		var lastSent string
		for _, ev := range replay {
			c.enqueue(EventMessage{Type: "event", ProtocolVersion: ProtocolVersion, Event: ev})
			lastSent = ev.EventID
		}
		for {
			select {
			case <-done:
				return
			case ev, ok := <-ch:
				if !ok {
					return
				}
				if lastSent != "" && !eventAfter(ev.EventID, lastSent) {
					continue
				}
				c.enqueue(EventMessage{Type: "event", ProtocolVersion: ProtocolVersion, Event: ev})
			}
		}
	}()
	log.Info().Str("stream", stream).Msg("ws spectate started")
}

func (s *Server) handleSay(ctx context.Context, say SayMessage) SayResult {
	res := SayResult{Type: "say_result", ProtocolVersion: ProtocolVersion}
	if strings.TrimSpace(say.Author) == "" {
		res.Error = "author_required"
		return res
	}
	if s.agents.IsReservedAuthor(say.Author) {
		res.Error = "reserved_author"
		return res
	}
	userID := say.UserID
	if userID == "" {
		userID = strings.ToLower(chat.NormalizeAuthor(say.Author))
	}
	id, err := s.hub.Send(ctx, chat.Outgoing{
		Author:  say.Author,
		UserID:  userID,
		Content: say.Content,
		ReplyTo: say.ReplyTo,
	})
	if err != nil {
		if errors.Is(err, chat.ErrEmptyMessage) {
			res.Error = "empty_message"
		} else {
			res.Error = "internal_error"
		}
		return res
	}
	metricWSMessagesTotal.Add(1)
	res.Ok = true
	res.MessageID = id
	return res
}

// follow replaces the client's current stream subscription.
func (c *Client) follow(stream string, stop func()) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	if c.stop != nil {
		c.stop()
	}
	c.stream = stream
	c.stop = stop
	return true
}

func (c *Client) enqueue(v any) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- b:
	default:
		metricWSDropped.Add(1)
	}
}

func (c *Client) shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	if c.stop != nil {
		c.stop()
	}
	close(c.send)
}

func eventAfter(id, last string) bool {
	if len(id) != len(last) {
		return len(id) > len(last)
	}
	return id > last
}
