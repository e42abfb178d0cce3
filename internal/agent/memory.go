package agent

import (
	"context"
	"strings"
	"sync"
)

// MemoryStore is the long-term memory handle attached to an agent.
type MemoryStore interface {
	Enabled() bool
	Remember(ctx context.Context, agentID, text string) error
	Recall(ctx context.Context, agentID, query string, limit int) ([]string, error)
}

// NoopMemory is the inert handle installed while an agent plays.
type NoopMemory struct{}

func (NoopMemory) Enabled() bool { return false }

func (NoopMemory) Remember(context.Context, string, string) error { return nil }

func (NoopMemory) Recall(context.Context, string, string, int) ([]string, error) { return nil, nil }

type InMemoryStore struct {
	mu      sync.RWMutex
	max     int
	entries map[string][]string
}

func NewInMemoryStore(maxPerAgent int) *InMemoryStore {
	if maxPerAgent <= 0 {
		maxPerAgent = 500
	}
	return &InMemoryStore{max: maxPerAgent, entries: map[string][]string{}}
}

func (s *InMemoryStore) Enabled() bool { return true }

func (s *InMemoryStore) Remember(_ context.Context, agentID, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	list := append(s.entries[agentID], text)
	if len(list) > s.max {
		list = list[len(list)-s.max:]
	}
	s.entries[agentID] = list
	return nil
}

// Recall returns the newest memories sharing at least one word with query.
func (s *InMemoryStore) Recall(_ context.Context, agentID, query string, limit int) ([]string, error) {
	words := strings.Fields(strings.ToLower(query))
	if len(words) == 0 || limit <= 0 {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := s.entries[agentID]
	var out []string
	for i := len(list) - 1; i >= 0 && len(out) < limit; i-- {
		lower := strings.ToLower(list[i])
		for _, w := range words {
			if len(w) > 2 && strings.Contains(lower, w) {
				out = append(out, list[i])
				break
			}
		}
	}
	return out, nil
}

func (s *InMemoryStore) Count(agentID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries[agentID])
}
