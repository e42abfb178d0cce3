package spectatorpush

import (
	"slices"
	"strings"
)

// Router picks the targets that want an event. Scopes:
//
//	all      every session
//	game     sessions of one game, matched case-insensitively
//	session  one session id
//	agent    sessions an agent plays in, plus that agent's commentary
type Router struct{}

func (r Router) MatchTargets(targets []PushTarget, ev NormalizedEvent) []PushTarget {
	var out []PushTarget
	for _, target := range targets {
		if target.Enabled && scopeMatches(target, ev) && eventAllowed(target.EventAllowlist, ev.EventType) {
			out = append(out, target)
		}
	}
	return out
}

func scopeMatches(target PushTarget, ev NormalizedEvent) bool {
	value := strings.TrimSpace(target.ScopeValue)
	switch target.ScopeType {
	case "all":
		return true
	case "game":
		return value != "" && strings.EqualFold(value, ev.Game)
	case "session":
		return value != "" && value == ev.SessionID
	case "agent":
		if value == "" {
			return false
		}
		same := func(name string) bool { return strings.EqualFold(name, value) }
		return slices.ContainsFunc(ev.Names, same) || same(ev.Actor)
	default:
		return false
	}
}

func eventAllowed(allowlist []string, evType string) bool {
	if len(allowlist) == 0 {
		return true
	}
	evType = strings.ToLower(strings.TrimSpace(evType))
	return slices.ContainsFunc(allowlist, func(v string) bool {
		return v != "" && strings.ToLower(strings.TrimSpace(v)) == evType
	})
}
