package agent

import (
	"strings"
	"time"
)

// Authors used by the game core. Entries from these authors are kept in
// history but rendered as notices rather than conversation turns.
const (
	AuthorGameMaster = "GameMaster"
	AuthorSystem     = "System"
)

func IsSystemAuthor(author string) bool {
	switch strings.ToLower(strings.TrimSpace(author)) {
	case "gamemaster", "system":
		return true
	}
	return false
}

type HistoryEntry struct {
	Author    string
	Content   string
	MessageID string
	RepliedTo string
	UserID    string
	At        time.Time
	System    bool
}

// AddMessage appends to the conversation history. A non-empty messageID is
// recorded at most once; it reports whether the entry was added.
func (a *Agent) AddMessage(author, content, messageID, repliedTo, userID string) bool {
	return a.addEntry(HistoryEntry{
		Author:    author,
		Content:   content,
		MessageID: messageID,
		RepliedTo: repliedTo,
		UserID:    userID,
	})
}

func (a *Agent) addEntry(e HistoryEntry) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if e.MessageID != "" {
		if _, ok := a.seen[e.MessageID]; ok {
			return false
		}
		a.seen[e.MessageID] = struct{}{}
	}
	if e.At.IsZero() {
		e.At = a.now()
	}
	e.System = IsSystemAuthor(e.Author)
	a.history = append(a.history, e)
	if over := len(a.history) - a.maxHistory; over > 0 {
		for _, old := range a.history[:over] {
			delete(a.seen, old.MessageID)
		}
		a.history = append([]HistoryEntry(nil), a.history[over:]...)
	}
	return true
}

// History returns entries recorded at or after since; a zero since returns all.
func (a *Agent) History(since time.Time) []HistoryEntry {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]HistoryEntry, 0, len(a.history))
	for _, e := range a.history {
		if !since.IsZero() && e.At.Before(since) {
			continue
		}
		out = append(out, e)
	}
	return out
}

func (a *Agent) Recent(n int) []HistoryEntry {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if n <= 0 || n > len(a.history) {
		n = len(a.history)
	}
	out := make([]HistoryEntry, n)
	copy(out, a.history[len(a.history)-n:])
	return out
}

// LatestTrigger is the newest channel message from someone else, the thing
// an autonomous reply would answer.
func (a *Agent) LatestTrigger() (HistoryEntry, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	for i := len(a.history) - 1; i >= 0; i-- {
		e := a.history[i]
		if e.MessageID == "" || strings.EqualFold(e.Author, a.Name) {
			continue
		}
		return e, true
	}
	return HistoryEntry{}, false
}
