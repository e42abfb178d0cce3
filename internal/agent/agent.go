package agent

import (
	"sync"
	"time"
)

// Settings is the mutable conversational configuration the game core swaps
// out while an agent is in game mode.
type Settings struct {
	Cadence      time.Duration
	Probability  float64
	MaxLength    int
	SystemPrompt string
	Memory       MemoryStore
}

type Agent struct {
	ID    string
	Name  string
	Model string

	mu         sync.RWMutex
	settings   Settings
	history    []HistoryEntry
	seen       map[string]struct{}
	maxHistory int
	now        func() time.Time
}

func New(id, name, model string, s Settings) *Agent {
	if s.Memory == nil {
		s.Memory = NoopMemory{}
	}
	return &Agent{
		ID:         id,
		Name:       name,
		Model:      model,
		settings:   s,
		seen:       map[string]struct{}{},
		maxHistory: 200,
		now:        time.Now,
	}
}

func (a *Agent) Settings() Settings {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.settings
}

// Swap replaces the settings with fn(current) under the agent lock and
// returns the previous value. Readers never see a half applied change.
func (a *Agent) Swap(fn func(Settings) Settings) Settings {
	a.mu.Lock()
	defer a.mu.Unlock()
	prev := a.settings
	a.settings = fn(prev)
	return prev
}

func (a *Agent) Restore(s Settings) {
	a.mu.Lock()
	a.settings = s
	a.mu.Unlock()
}
