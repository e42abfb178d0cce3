package spectatorpush

import (
	"context"
	"encoding/json"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"agent-arena/internal/arena"
	"agent-arena/internal/chat"
	"agent-arena/internal/spectatorpush/platforms"
)

var _ arena.SessionObserver = (*Manager)(nil)

type sessionSubscription struct {
	meta   arena.SessionMeta
	buf    *chat.EventBuffer
	ch     chan chat.StreamEvent
	replay []chat.StreamEvent
}

type breakerState struct {
	consecutiveFailures int
	openUntil           time.Time
}

// Manager forwards public session events to webhook targets. It subscribes
// when a session starts and drains the stream until the buffer closes.
type Manager struct {
	cfg      Config
	router   Router
	adapters map[string]platforms.Adapter

	dispatchCh chan pushJob
	retryQ     *retryQueue
	done       chan struct{}

	mu            sync.Mutex
	started       bool
	subscriptions map[string]*sessionSubscription
	breakerByKey  map[string]breakerState
}

func NewManager(cfg Config) *Manager {
	client := platforms.NewHTTPClient(cfg.RequestTimeout)
	adapters := map[string]platforms.Adapter{
		"discord": platforms.NewDiscordAdapter(client),
		"webhook": platforms.NewWebhookAdapter(client),
	}
	if cfg.DispatchBuffer <= 0 {
		cfg.DispatchBuffer = 1024
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = 500 * time.Millisecond
	}
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 3
	}
	if cfg.CircuitOpenDuration <= 0 {
		cfg.CircuitOpenDuration = 30 * time.Second
	}

	m := &Manager{
		cfg:           cfg,
		router:        Router{},
		adapters:      adapters,
		dispatchCh:    make(chan pushJob, cfg.DispatchBuffer),
		done:          make(chan struct{}),
		subscriptions: map[string]*sessionSubscription{},
		breakerByKey:  map[string]breakerState{},
	}
	m.retryQ = newRetryQueue(m.dispatchCh, m.done, cfg.RetryBase)
	return m
}

func (m *Manager) Start(ctx context.Context) error {
	if !m.cfg.Enabled {
		return nil
	}

	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return nil
	}
	m.started = true
	m.mu.Unlock()

	for i := 0; i < m.cfg.Workers; i++ {
		go m.worker(ctx)
	}
	if m.cfg.ConfigPath != "" {
		go m.watchConfigLoop(ctx)
	}
	go func() {
		<-ctx.Done()
		close(m.done)
		m.stopAllSubscriptions()
	}()
	log.Info().Int("targets", len(m.cfg.Targets)).Int("workers", m.cfg.Workers).Msg("spectator push started")
	return nil
}

// OnSessionStarted subscribes to buf. Events appended before the call are
// replayed first so game_started is not missed.
func (m *Manager) OnSessionStarted(meta arena.SessionMeta, buf *chat.EventBuffer) {
	if !m.cfg.Enabled || buf == nil || meta.SessionID == "" {
		return
	}

	m.mu.Lock()
	if _, ok := m.subscriptions[meta.SessionID]; ok {
		m.mu.Unlock()
		return
	}
	sub := &sessionSubscription{meta: meta, buf: buf, ch: buf.Subscribe()}
	sub.replay = buf.ReplayAfter("")
	m.subscriptions[meta.SessionID] = sub
	m.mu.Unlock()

	go m.consumeSession(sub)
}

// OnSessionClosed forgets the subscription. The consumer keeps draining
// until the closed buffer closes its channel, so game_over still goes out.
func (m *Manager) OnSessionClosed(sessionID string) {
	if sessionID == "" {
		return
	}
	m.mu.Lock()
	delete(m.subscriptions, sessionID)
	m.mu.Unlock()
}

func (m *Manager) stopAllSubscriptions() {
	m.mu.Lock()
	subs := make([]*sessionSubscription, 0, len(m.subscriptions))
	for _, sub := range m.subscriptions {
		subs = append(subs, sub)
	}
	m.subscriptions = map[string]*sessionSubscription{}
	m.mu.Unlock()

	for _, sub := range subs {
		sub.buf.Unsubscribe(sub.ch)
	}
}

func (m *Manager) consumeSession(sub *sessionSubscription) {
	var lastID int64
	for _, ev := range sub.replay {
		lastID = eventSeq(ev.EventID)
		m.handleEvent(sub.meta, ev)
	}
	for {
		select {
		case <-m.done:
			return
		case ev, ok := <-sub.ch:
			if !ok {
				return
			}
			if eventSeq(ev.EventID) <= lastID {
				continue
			}
			m.handleEvent(sub.meta, ev)
		}
	}
}

func eventSeq(id string) int64 {
	n, _ := strconv.ParseInt(id, 10, 64)
	return n
}

func (m *Manager) handleEvent(meta arena.SessionMeta, ev chat.StreamEvent) {
	if ev.Event == "" || ev.Event == "ping" {
		return
	}
	norm := normalizeEvent(meta, ev)
	if norm.EventType == "" {
		return
	}

	targets := m.router.MatchTargets(m.currentTargets(), norm)
	if len(targets) == 0 {
		return
	}
	formatted, ok := FormatMessage(norm)
	if !ok {
		return
	}
	for _, target := range targets {
		job := pushJob{
			Target:        target,
			Event:         norm,
			Formatted:     formatted,
			PanelTerminal: norm.EventType == arena.EventGameOver,
		}
		if !m.enqueue(job) {
			metricPushDroppedTotal.Add(1)
		}
	}
}

func (m *Manager) enqueue(job pushJob) bool {
	select {
	case <-m.done:
		return false
	case m.dispatchCh <- job:
		metricPushQueuedTotal.Add(1)
		metricPushQueueLen.Set(int64(len(m.dispatchCh)))
		return true
	default:
		return false
	}
}

func normalizeEvent(meta arena.SessionMeta, ev chat.StreamEvent) NormalizedEvent {
	raw := asMap(ev.Data)
	names := map[string]string{}
	for _, p := range meta.Players {
		names[p.ID] = p.Name
	}
	out := NormalizedEvent{
		EventID:   ev.EventID,
		EventType: ev.Event,
		ServerTS:  ev.ServerTS,
		SessionID: meta.SessionID,
		Game:      meta.Game,
		Players:   meta.Players[0].Name + " vs " + meta.Players[1].Name,
		Names:     []string{meta.Players[0].Name, meta.Players[1].Name},
		Raw:       raw,
	}
	switch ev.Event {
	case arena.EventMoveApplied:
		out.Actor = fallback(names[stringField(raw, "player_id")], stringField(raw, "player_id"))
		out.Move = stringField(raw, "move")
		out.MoveCount = intField(raw, "move_count")
		out.State = stringField(raw, "state")
	case arena.EventCommentary:
		out.Actor = stringField(raw, "spectator")
		out.Text = stringField(raw, "text")
		out.MoveCount = intField(raw, "move_count")
	case arena.EventGameOver:
		out.Outcome = stringField(raw, "outcome")
		out.Winner = names[stringField(raw, "winner_id")]
		out.Reason = stringField(raw, "reason")
		out.MoveCount = intField(raw, "moves")
	}
	return out
}

func (m *Manager) currentTargets() []PushTarget {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]PushTarget, len(m.cfg.Targets))
	copy(out, m.cfg.Targets)
	return out
}

func (m *Manager) watchConfigLoop(ctx context.Context) {
	interval := m.cfg.ConfigReload
	if interval <= 0 {
		interval = time.Second
	}
	lastRaw := ""
	if raw, err := os.ReadFile(m.cfg.ConfigPath); err == nil {
		lastRaw = strings.TrimSpace(string(raw))
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-m.done:
			return
		case <-ticker.C:
			raw, err := os.ReadFile(m.cfg.ConfigPath)
			if err != nil {
				metricPushConfigReloadError.Add(1)
				continue
			}
			nextRaw := strings.TrimSpace(string(raw))
			if nextRaw == lastRaw {
				continue
			}
			targets, err := parseTargetsJSON(nextRaw)
			if err != nil {
				metricPushConfigReloadError.Add(1)
				log.Warn().Err(err).Str("path", m.cfg.ConfigPath).Msg("spectator push config reload failed")
				continue
			}
			m.mu.Lock()
			m.cfg.Targets = targets
			m.mu.Unlock()
			lastRaw = nextRaw
			metricPushConfigReloads.Add(1)
		}
	}
}

func asMap(v any) map[string]any {
	if v == nil {
		return map[string]any{}
	}
	if m, ok := v.(map[string]any); ok {
		return m
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return map[string]any{}
	}
	out := map[string]any{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return map[string]any{}
	}
	return out
}

func stringField(m map[string]any, key string) string {
	v, ok := m[key]
	if !ok || v == nil {
		return ""
	}
	s, ok := v.(string)
	if ok {
		return s
	}
	return ""
}

func intField(m map[string]any, key string) int {
	switch v := m[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case int64:
		return int(v)
	}
	return 0
}
