package agent

import (
	"fmt"
	"strings"

	"agent-arena/internal/llm"
)

const promptHistory = 20

// BuildPrompt assembles the private request for this agent. extra is
// appended to the system prompt only; it never reaches history.
func (a *Agent) BuildPrompt(extra string, memories []string) llm.Request {
	s := a.Settings()
	system := s.SystemPrompt
	if len(memories) > 0 {
		system += "\n\nThings you remember:\n- " + strings.Join(memories, "\n- ")
	}
	if extra = strings.TrimSpace(extra); extra != "" {
		system += "\n\n" + extra
	}

	req := llm.Request{
		Model:       a.Model,
		System:      system,
		MaxTokens:   s.MaxLength,
		Temperature: 0.8,
	}
	for _, e := range a.Recent(promptHistory) {
		switch {
		case e.System:
			req.Messages = append(req.Messages, llm.Message{
				Role:    llm.RoleUser,
				Content: fmt.Sprintf("[%s notice] %s", e.Author, e.Content),
			})
		case strings.EqualFold(e.Author, a.Name):
			req.Messages = append(req.Messages, llm.Message{Role: llm.RoleAssistant, Content: e.Content})
		default:
			req.Messages = append(req.Messages, llm.Message{
				Role:    llm.RoleUser,
				Content: e.Author + ": " + e.Content,
			})
		}
	}
	return req
}
