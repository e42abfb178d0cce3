package httptransport

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"agent-arena/internal/config"
	"agent-arena/internal/testutil"

	"github.com/go-chi/chi/v5"
)

const testAdminKey = "admin-secret"

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

func newTestServer(t *testing.T, moveTimeout time.Duration, db Pinger) (*testutil.Arena, *httptest.Server) {
	t.Helper()
	env := testutil.NewArena(t, moveTimeout)
	r := NewRouter(Deps{
		Games:   env.Games,
		History: env.History,
		Agents:  env.Agents,
		Hub:     env.Hub,
		DB:      db,
	}, config.ServerConfig{AdminAPIKey: testAdminKey})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return env, srv
}

func doJSON(t *testing.T, method, url string, body any, headers map[string]string) (*http.Response, map[string]any) {
	t.Helper()
	var rd *strings.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		rd = strings.NewReader(string(raw))
	} else {
		rd = strings.NewReader("")
	}
	req, err := http.NewRequest(method, url, rd)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	out := map[string]any{}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func TestHealthz(t *testing.T) {
	_, srv := newTestServer(t, time.Second, nil)
	resp, body := doJSON(t, http.MethodGet, srv.URL+"/healthz", nil, nil)
	if resp.StatusCode != http.StatusOK || body["db"] != "disabled" {
		t.Fatalf("healthz = %d %v, want 200 disabled", resp.StatusCode, body)
	}

	_, down := newTestServer(t, time.Second, fakePinger{err: errors.New("connection refused")})
	resp, body = doJSON(t, http.MethodGet, down.URL+"/healthz", nil, nil)
	if resp.StatusCode != http.StatusServiceUnavailable || body["db"] != "down" {
		t.Fatalf("healthz = %d %v, want 503 down", resp.StatusCode, body)
	}
}

func TestStartGameAndBusy(t *testing.T) {
	env, srv := newTestServer(t, 5*time.Second, nil)

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/games", map[string]any{
		"game":       "connect4",
		"players":    []string{"sage", "Bard"},
		"spectators": []string{"owl"},
	}, nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("start status = %d body=%v, want 201", resp.StatusCode, body)
	}
	if body["game"] != "connectfour" || body["session_id"] == "" {
		t.Fatalf("start body = %v", body)
	}

	resp, body = doJSON(t, http.MethodPost, srv.URL+"/api/games", map[string]any{
		"game":    "chess",
		"players": []string{"owl", "bard"},
	}, nil)
	if resp.StatusCode != http.StatusConflict || body["error"] != "session_busy" {
		t.Fatalf("second start = %d %v, want 409 session_busy", resp.StatusCode, body)
	}

	resp, body = doJSON(t, http.MethodGet, srv.URL+"/api/games/active", nil, nil)
	if resp.StatusCode != http.StatusOK || body["active"] != true {
		t.Fatalf("active = %d %v, want active", resp.StatusCode, body)
	}

	resp, body = doJSON(t, http.MethodGet, srv.URL+"/api/agents", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("agents status = %d", resp.StatusCode)
	}
	roles := map[string]string{}
	items, _ := body["items"].([]any)
	for _, it := range items {
		m, _ := it.(map[string]any)
		role, _ := m["role"].(string)
		roles[m["id"].(string)] = role
	}
	if roles["sage"] != "player" || roles["bard"] != "player" || roles["owl"] != "spectator" {
		t.Fatalf("roles = %v", roles)
	}

	h, _ := env.Games.ActiveGame()
	h.Abort()
	env.WaitIdle(t)

	resp, body = doJSON(t, http.MethodGet, srv.URL+"/api/games/active", nil, nil)
	if body["active"] != false {
		t.Fatalf("active after abort = %v, want false", body)
	}
}

func TestStartGameErrors(t *testing.T) {
	_, srv := newTestServer(t, time.Second, nil)
	cases := []struct {
		name   string
		body   any
		status int
		code   string
	}{
		{"one player", map[string]any{"game": "chess", "players": []string{"sage"}}, http.StatusBadRequest, "invalid_request"},
		{"same player twice", map[string]any{"game": "chess", "players": []string{"sage", "Sage"}}, http.StatusBadRequest, "invalid_request"},
		{"unknown agent", map[string]any{"game": "chess", "players": []string{"sage", "ghost"}}, http.StatusNotFound, "unknown_agent"},
		{"unknown game", map[string]any{"game": "go", "players": []string{"sage", "bard"}}, http.StatusNotFound, "unknown_game"},
	}
	for _, tc := range cases {
		resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/games", tc.body, nil)
		if resp.StatusCode != tc.status || body["error"] != tc.code {
			t.Fatalf("%s: got %d %v, want %d %s", tc.name, resp.StatusCode, body, tc.status, tc.code)
		}
	}

	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/api/games", strings.NewReader("{not json"))
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad json status = %d, want 400", resp.StatusCode)
	}
}

func TestHistoryAndStatsAfterFinishedGame(t *testing.T) {
	env, srv := newTestServer(t, 5*time.Second, nil)
	env.Autoplay(t, map[string][]string{
		"Sage": {"1", "2", "3"},
		"Bard": {"4", "5"},
	})
	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/games", map[string]any{
		"game":    "tictactoe",
		"players": []string{"sage", "bard"},
	}, nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("start = %d %v", resp.StatusCode, body)
	}
	env.WaitIdle(t)

	_, body = doJSON(t, http.MethodGet, srv.URL+"/api/games/history", nil, nil)
	items, _ := body["items"].([]any)
	if len(items) != 1 {
		t.Fatalf("history items = %v, want 1", body)
	}
	rec, _ := items[0].(map[string]any)
	if rec["winner"] != "Sage" || rec["outcome"] != "win" || rec["moves"] != float64(5) {
		t.Fatalf("record = %v, want Sage win in 5 moves", rec)
	}

	_, body = doJSON(t, http.MethodGet, srv.URL+"/api/games/history?offset=1", nil, nil)
	if items, _ := body["items"].([]any); len(items) != 0 {
		t.Fatalf("history offset=1 = %v, want empty", body)
	}

	_, body = doJSON(t, http.MethodGet, srv.URL+"/api/stats/games/tic-tac-toe", nil, nil)
	stats, _ := body["stats"].(map[string]any)
	if stats["total_games"] != float64(1) {
		t.Fatalf("game stats = %v", body)
	}

	_, body = doJSON(t, http.MethodGet, srv.URL+"/api/stats/agents/Bard", nil, nil)
	if body["losses"] != float64(1) || body["wins"] != float64(0) {
		t.Fatalf("agent stats = %v, want one loss", body)
	}

	_, body = doJSON(t, http.MethodGet, srv.URL+"/api/stats/head_to_head?a=Sage&b=Bard", nil, nil)
	if body["wins_a"] != float64(1) || body["wins_b"] != float64(0) {
		t.Fatalf("head to head = %v", body)
	}
	resp, body = doJSON(t, http.MethodGet, srv.URL+"/api/stats/head_to_head?a=Sage", nil, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("head to head without b = %d %v, want 400", resp.StatusCode, body)
	}

	_, body = doJSON(t, http.MethodGet, srv.URL+"/api/stats/models", nil, nil)
	models, _ := body["items"].(map[string]any)
	if _, ok := models["gpt-4o"]; !ok {
		t.Fatalf("models = %v, want gpt-4o", body)
	}
	_, body = doJSON(t, http.MethodGet, srv.URL+"/api/stats/models?model=openai/gpt-4o", nil, nil)
	if body["wins"] != float64(1) {
		t.Fatalf("model stats = %v, want one win", body)
	}

	_, body = doJSON(t, http.MethodGet, srv.URL+"/api/stats/leaderboard", nil, nil)
	if board, _ := body["items"].([]any); len(board) != 0 {
		t.Fatalf("leaderboard with default min_games = %v, want empty", body)
	}
	_, body = doJSON(t, http.MethodGet, srv.URL+"/api/stats/leaderboard?min_games=1", nil, nil)
	board, _ := body["items"].([]any)
	if len(board) != 2 {
		t.Fatalf("leaderboard = %v, want 2 models", body)
	}
	resp, _ = doJSON(t, http.MethodGet, srv.URL+"/api/stats/leaderboard?min_games=-2", nil, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("negative min_games status = %d, want 400", resp.StatusCode)
	}

	resp, _ = doJSON(t, http.MethodDelete, srv.URL+"/api/games/history", nil, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("clear without admin key = %d, want 401", resp.StatusCode)
	}
	resp, body = doJSON(t, http.MethodDelete, srv.URL+"/api/games/history", nil, map[string]string{"X-Admin-Key": testAdminKey})
	if resp.StatusCode != http.StatusOK || body["cleared"] != float64(1) {
		t.Fatalf("clear = %d %v, want 1 cleared", resp.StatusCode, body)
	}
	_, body = doJSON(t, http.MethodGet, srv.URL+"/api/games/history", nil, nil)
	if items, _ := body["items"].([]any); len(items) != 0 {
		t.Fatalf("history after clear = %v", body)
	}
}

func TestTurnContextEndpoint(t *testing.T) {
	env, srv := newTestServer(t, 5*time.Second, nil)
	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/api/agents/sage/turn_context", map[string]any{"hint": "center"}, nil)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("turn context outside game = %d, want 409", resp.StatusCode)
	}

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/games", map[string]any{
		"game":    "tictactoe",
		"players": []string{"sage", "bard"},
	}, nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("start = %d %v", resp.StatusCode, body)
	}

	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/api/agents/Sage/turn_context", map[string]any{"hint": "take the center"}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("turn context = %d, want 200", resp.StatusCode)
	}
	if got := env.Games.Contexts().TurnContext("sage"); got != "take the center" {
		t.Fatalf("turn context = %q", got)
	}
	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/api/agents/owl/turn_context", map[string]any{"hint": "x"}, nil)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("turn context for free agent = %d, want 409", resp.StatusCode)
	}
	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/api/agents/ghost/turn_context", map[string]any{"hint": "x"}, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("turn context for unknown agent = %d, want 404", resp.StatusCode)
	}
}

func TestChannelMessages(t *testing.T) {
	_, srv := newTestServer(t, time.Second, nil)

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/channel/messages", map[string]any{
		"author": "alice (mod)", "content": "go for the corner",
	}, nil)
	if resp.StatusCode != http.StatusCreated || body["message_id"] == "" {
		t.Fatalf("post = %d %v", resp.StatusCode, body)
	}

	for _, author := range []string{"Sage", "System", "GameMaster (ref)"} {
		resp, body = doJSON(t, http.MethodPost, srv.URL+"/api/channel/messages", map[string]any{"author": author, "content": "5"}, nil)
		if resp.StatusCode != http.StatusForbidden || body["error"] != "reserved_author" {
			t.Fatalf("post as %q = %d %v, want 403", author, resp.StatusCode, body)
		}
	}
	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/api/channel/messages", map[string]any{"author": "alice", "content": "   "}, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("empty content = %d, want 400", resp.StatusCode)
	}
	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/api/channel/messages", map[string]any{"content": "hi"}, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("missing author = %d, want 400", resp.StatusCode)
	}

	_, body = doJSON(t, http.MethodGet, srv.URL+"/api/channel/messages?limit=10", nil, nil)
	items, _ := body["items"].([]any)
	if len(items) != 1 {
		t.Fatalf("messages = %v, want 1", body)
	}
	msg, _ := items[0].(map[string]any)
	if msg["author"] != "alice" || msg["user_id"] != "alice" || msg["is_agent"] != false {
		t.Fatalf("message = %v, want normalized human author", msg)
	}
}

func readEvent(t *testing.T, rd *bufio.Reader, timeout time.Duration) string {
	t.Helper()
	ch := make(chan string, 1)
	errCh := make(chan error, 1)
	go func() {
		for {
			line, err := rd.ReadString('\n')
			if err != nil {
				errCh <- err
				return
			}
			if strings.HasPrefix(line, "event: ") {
				ch <- strings.TrimSpace(strings.TrimPrefix(line, "event: "))
				return
			}
		}
	}()
	select {
	case ev := <-ch:
		return ev
	case err := <-errCh:
		t.Fatalf("read event: %v", err)
	case <-time.After(timeout):
		t.Fatal("timeout waiting for event")
	}
	return ""
}

func TestSpectateSessionStream(t *testing.T) {
	env, srv := newTestServer(t, 5*time.Second, nil)

	resp, err := http.Get(srv.URL + "/api/spectate/events?stream=session")
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("session stream without game = %d, want 404", resp.StatusCode)
	}
	resp, err = http.Get(srv.URL + "/api/spectate/events?stream=bogus")
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bogus stream = %d, want 400", resp.StatusCode)
	}

	startResp, body := doJSON(t, http.MethodPost, srv.URL+"/api/games", map[string]any{
		"game":    "tictactoe",
		"players": []string{"sage", "bard"},
	}, nil)
	if startResp.StatusCode != http.StatusCreated {
		t.Fatalf("start = %d %v", startResp.StatusCode, body)
	}

	stream, err := http.Get(srv.URL + "/api/spectate/events?stream=session&session_id=" + body["session_id"].(string))
	if err != nil {
		t.Fatalf("open session stream: %v", err)
	}
	defer stream.Body.Close()
	if ct := stream.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type = %q", ct)
	}
	rd := bufio.NewReader(stream.Body)
	if ev := readEvent(t, rd, 2*time.Second); ev != "game_started" {
		t.Fatalf("first event = %q, want game_started", ev)
	}

	h, _ := env.Games.ActiveGame()
	h.Abort()
	sawGameOver := false
	for i := 0; i < 10 && !sawGameOver; i++ {
		sawGameOver = readEvent(t, rd, 2*time.Second) == "game_over"
	}
	if !sawGameOver {
		t.Fatal("game_over not streamed")
	}
	env.WaitIdle(t)
}

func TestSpectateChannelStream(t *testing.T) {
	_, srv := newTestServer(t, time.Second, nil)
	stream, err := http.Get(srv.URL + "/api/spectate/events")
	if err != nil {
		t.Fatalf("open channel stream: %v", err)
	}
	defer stream.Body.Close()

	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/api/channel/messages", map[string]any{"author": "alice", "content": "hello"}, nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("post = %d", resp.StatusCode)
	}
	if ev := readEvent(t, bufio.NewReader(stream.Body), 2*time.Second); ev != "message" {
		t.Fatalf("event = %q, want message", ev)
	}
}

func TestDebugVarsRequiresAdmin(t *testing.T) {
	_, srv := newTestServer(t, time.Second, nil)
	resp, _ := doJSON(t, http.MethodGet, srv.URL+"/api/debug/vars", nil, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("debug vars without key = %d, want 401", resp.StatusCode)
	}
	resp, body := doJSON(t, http.MethodGet, srv.URL+"/api/debug/vars", nil, map[string]string{"Authorization": "Bearer " + testAdminKey})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("debug vars = %d", resp.StatusCode)
	}
	if _, ok := body["arena_sessions_started_total"]; !ok {
		t.Fatalf("debug vars missing arena metrics")
	}
}

func TestRoutesRegistered(t *testing.T) {
	env := testutil.NewArena(t, time.Second)
	r := NewRouter(Deps{Games: env.Games, History: env.History, Agents: env.Agents, Hub: env.Hub}, config.ServerConfig{})
	var got []string
	_ = chi.Walk(r, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		got = append(got, method+" "+route)
		return nil
	})
	sort.Strings(got)
	want := []string{
		"DELETE /api/games/history",
		"GET /api/agents",
		"GET /api/channel/messages",
		"GET /api/debug/vars",
		"GET /api/games/active",
		"GET /api/games/history",
		"GET /api/spectate/events",
		"GET /api/stats/agents/{agent}",
		"GET /api/stats/games/{game}",
		"GET /api/stats/head_to_head",
		"GET /api/stats/leaderboard",
		"GET /api/stats/models",
		"GET /healthz",
		"POST /api/agents/{agent_id}/turn_context",
		"POST /api/channel/messages",
		"POST /api/games",
		"POST /mcp",
		"GET /ws",
	}
	have := map[string]bool{}
	for _, g := range got {
		have[g] = true
	}
	for _, w := range want {
		if !have[w] {
			t.Fatalf("route %q missing; registered: %v", w, got)
		}
	}
}

func TestParsePagination(t *testing.T) {
	cases := []struct {
		query       string
		limit, offs int
	}{
		{"", 20, 0},
		{"limit=5&offset=3", 5, 3},
		{"limit=0", 1, 0},
		{"limit=9999&offset=-4", 200, 0},
		{"limit=abc", 20, 0},
	}
	for _, tc := range cases {
		r := httptest.NewRequest(http.MethodGet, "/x?"+tc.query, nil)
		limit, offset := ParsePagination(r, 20, 200)
		if limit != tc.limit || offset != tc.offs {
			t.Fatalf("ParsePagination(%q) = %d,%d want %d,%d", tc.query, limit, offset, tc.limit, tc.offs)
		}
	}
}

func TestCheckAdminAuth(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("X-Admin-Key", "k")
	if !CheckAdminAuth(r, "k") {
		t.Fatal("X-Admin-Key should authorize")
	}
	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer k")
	if !CheckAdminAuth(r, "k") {
		t.Fatal("bearer token should authorize")
	}
	r.Header.Set("Authorization", "Bearer nope")
	if CheckAdminAuth(r, "k") {
		t.Fatal("wrong bearer token authorized")
	}
}
