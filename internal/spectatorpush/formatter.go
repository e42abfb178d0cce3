package spectatorpush

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	colorMove     = 0x3BA55D
	colorStart    = 0x5865F2
	colorComment  = 0xFEE75C
	colorResult   = 0x57F287
	colorCritical = 0xED4245

	commentaryPreviewLimit = 300
	statePreviewLimit      = 900
	shortIDLimit           = 12
	defaultFooter          = "agent-arena spectator push"
)

// boardPanelKey names the message that is edited in place as moves arrive.
func boardPanelKey(sessionID string) string {
	return "board:" + sessionID
}

func FormatMessage(ev NormalizedEvent) (FormattedMessage, bool) {
	game := fallback(ev.Game, "game")
	session := shortID(fallback(ev.SessionID, "unknown"), shortIDLimit)
	fields := make([]MessageField, 0, 6)
	base := FormattedMessage{
		SessionID: ev.SessionID,
		Event:     ev.EventType,
		Timestamp: eventTimestamp(ev.ServerTS),
		Footer:    defaultFooter,
	}

	switch ev.EventType {
	case "game_started":
		base.Title = fmt.Sprintf("Game Started · %s · S:%s", game, session)
		base.Content = fmt.Sprintf("%s: %s", game, fallback(ev.Players, "two agents"))
		base.Description = fmt.Sprintf("A game of %s begins: %s.", game, fallback(ev.Players, "two agents"))
		base.Color = colorStart
		fields = append(fields,
			MessageField{Name: "Game", Value: game, Inline: true},
			MessageField{Name: "Players", Value: fallback(ev.Players, "-"), Inline: true},
		)
	case "move_applied":
		base.PanelKey = boardPanelKey(ev.SessionID)
		base.Title = fmt.Sprintf("Move %d · %s · S:%s", ev.MoveCount, game, session)
		base.Content = fmt.Sprintf("%s played %s", fallback(ev.Actor, "player"), fallback(ev.Move, "?"))
		base.Description = base.Content + stateBlock(ev.State)
		base.Color = colorMove
		fields = append(fields,
			MessageField{Name: "Player", Value: fallback(ev.Actor, "-"), Inline: true},
			MessageField{Name: "Move", Value: fallback(ev.Move, "-"), Inline: true},
			MessageField{Name: "Move #", Value: strconv.Itoa(ev.MoveCount), Inline: true},
		)
	case "commentary":
		base.Title = fmt.Sprintf("Commentary · %s · S:%s", game, session)
		text := trimText(strings.TrimSpace(ev.Text), commentaryPreviewLimit)
		base.Content = fmt.Sprintf("%s: %s", fallback(ev.Actor, "spectator"), text)
		base.Description = text
		base.Color = colorComment
		fields = append(fields,
			MessageField{Name: "Spectator", Value: fallback(ev.Actor, "-"), Inline: true},
			MessageField{Name: "After move", Value: strconv.Itoa(ev.MoveCount), Inline: true},
		)
	case "game_over":
		base.PanelKey = boardPanelKey(ev.SessionID)
		base.Title = fmt.Sprintf("Game Over · %s · S:%s", game, session)
		switch ev.Outcome {
		case "win":
			base.Content = fmt.Sprintf("%s wins", fallback(ev.Winner, "a player"))
			base.Color = colorResult
		case "draw":
			base.Content = "draw"
			base.Color = colorResult
		default:
			base.Content = fallback(ev.Outcome, "ended")
			base.Color = colorCritical
		}
		base.Description = base.Content
		if ev.Reason != "" {
			base.Description += " (" + ev.Reason + ")"
		}
		fields = append(fields,
			MessageField{Name: "Outcome", Value: fallback(ev.Outcome, "-"), Inline: true},
			MessageField{Name: "Moves", Value: strconv.Itoa(ev.MoveCount), Inline: true},
		)
		if ev.Reason != "" {
			fields = append(fields, MessageField{Name: "Reason", Value: ev.Reason, Inline: false})
		}
	default:
		return FormattedMessage{}, false
	}

	base.Fields = fields
	return base, true
}

func stateBlock(state string) string {
	state = strings.TrimSpace(state)
	if state == "" {
		return ""
	}
	return "\n```\n" + trimText(state, statePreviewLimit) + "\n```"
}

func trimText(v string, max int) string {
	if max <= 0 || len(v) <= max {
		return v
	}
	if max <= 3 {
		return v[:max]
	}
	return v[:max-3] + "..."
}

func shortID(v string, max int) string {
	if max <= 0 || len(v) <= max {
		return v
	}
	return v[:max]
}

func eventTimestamp(ms int64) string {
	if ms <= 0 {
		return ""
	}
	return time.UnixMilli(ms).UTC().Format(time.RFC3339)
}

func fallback(v, d string) string {
	if strings.TrimSpace(v) == "" {
		return d
	}
	return v
}
