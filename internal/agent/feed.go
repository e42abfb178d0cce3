package agent

import (
	"context"

	"agent-arena/internal/chat"
)

// Feed copies every channel message into each registered agent's history
// until ctx is done or the subscription closes.
func Feed(ctx context.Context, msgs <-chan chat.Message, reg *Registry) {
	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-msgs:
			if !ok {
				return
			}
			for _, a := range reg.All() {
				a.addEntry(HistoryEntry{
					Author:    m.Author,
					Content:   m.Content,
					MessageID: m.ID,
					RepliedTo: m.ReplyTo,
					UserID:    m.UserID,
					At:        m.CreatedAt,
				})
			}
		}
	}
}
