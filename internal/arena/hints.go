package arena

import (
	"strings"
	"time"

	"agent-arena/internal/agent"
)

const maxHints = 2

// userHints returns the newest audience messages in a's history that
// mention playerName. Agent and system authors are ignored.
func userHints(a *agent.Agent, playerName string, isAgent func(string) bool, window time.Duration, now time.Time) []string {
	name := strings.ToLower(playerName)
	if name == "" {
		return nil
	}
	entries := a.History(now.Add(-window))
	var found []string
	for i := len(entries) - 1; i >= 0 && len(found) < maxHints; i-- {
		e := entries[i]
		if e.System || isAgent(e.Author) || strings.EqualFold(e.Author, a.Name) {
			continue
		}
		if strings.Contains(strings.ToLower(e.Content), name) {
			found = append(found, e.Author+": "+e.Content)
		}
	}
	for i, j := 0, len(found)-1; i < j; i, j = i+1, j-1 {
		found[i], found[j] = found[j], found[i]
	}
	return found
}
