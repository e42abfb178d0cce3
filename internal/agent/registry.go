package agent

import (
	"sort"
	"strings"
	"sync"
	"time"

	"agent-arena/internal/chat"
	"agent-arena/internal/config"
)

type Registry struct {
	mu     sync.RWMutex
	byID   map[string]*Agent
	byName map[string]*Agent
}

func NewRegistry() *Registry {
	return &Registry{byID: map[string]*Agent{}, byName: map[string]*Agent{}}
}

// FromRoster registers every roster entry with mem as its memory handle.
func FromRoster(r config.Roster, mem MemoryStore) *Registry {
	reg := NewRegistry()
	for _, spec := range r.Agents {
		reg.Add(New(spec.ID, spec.Name, spec.Model, Settings{
			Cadence:      time.Duration(spec.CadenceSeconds * float64(time.Second)),
			Probability:  spec.Probability,
			MaxLength:    spec.MaxLength,
			SystemPrompt: spec.SystemPrompt,
			Memory:       mem,
		}))
	}
	return reg
}

func (r *Registry) Add(a *Agent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[a.ID] = a
	r.byName[strings.ToLower(a.Name)] = a
}

func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.byID[id]; ok {
		delete(r.byName, strings.ToLower(a.Name))
		delete(r.byID, id)
	}
}

func (r *Registry) Get(id string) (*Agent, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.byID[id]
	return a, ok
}

// ByName resolves a display name as seen on the channel.
func (r *Registry) ByName(name string) (*Agent, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.byName[strings.ToLower(chat.NormalizeAuthor(name))]
	return a, ok
}

func (r *Registry) IsAgentName(name string) bool {
	_, ok := r.ByName(name)
	return ok
}

// IsReservedAuthor reports whether a human may not post under name: agent
// display names and the system authors are taken.
func (r *Registry) IsReservedAuthor(name string) bool {
	return r.IsAgentName(name) || IsSystemAuthor(chat.NormalizeAuthor(name))
}

func (r *Registry) All() []*Agent {
	r.mu.RLock()
	out := make([]*Agent, 0, len(r.byID))
	for _, a := range r.byID {
		out = append(out, a)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
