package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type AgentSpec struct {
	ID             string  `yaml:"id"`
	Name           string  `yaml:"name"`
	Model          string  `yaml:"model"`
	SystemPrompt   string  `yaml:"system_prompt"`
	CadenceSeconds float64 `yaml:"cadence_seconds"`
	Probability    float64 `yaml:"probability"`
	MaxLength      int     `yaml:"max_length"`
}

type Roster struct {
	Agents []AgentSpec `yaml:"agents"`
}

// LoadRoster returns an empty roster when path is blank or the file is missing.
func LoadRoster(path string) (Roster, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Roster{}, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Roster{}, nil
		}
		return Roster{}, fmt.Errorf("read agents file %q: %w", path, err)
	}
	return ParseRoster(raw)
}

func ParseRoster(raw []byte) (Roster, error) {
	var r Roster
	if err := yaml.Unmarshal(raw, &r); err != nil {
		return Roster{}, fmt.Errorf("parse agents file: %w", err)
	}
	seen := map[string]bool{}
	out := make([]AgentSpec, 0, len(r.Agents))
	for _, a := range r.Agents {
		a.Name = strings.TrimSpace(a.Name)
		if a.Name == "" {
			continue
		}
		a.ID = strings.TrimSpace(a.ID)
		if a.ID == "" {
			a.ID = slug(a.Name)
		}
		if seen[a.ID] {
			return Roster{}, fmt.Errorf("duplicate agent id %q", a.ID)
		}
		seen[a.ID] = true
		if a.CadenceSeconds <= 0 {
			a.CadenceSeconds = 30
		}
		if a.Probability <= 0 || a.Probability > 1 {
			a.Probability = 1
		}
		if a.MaxLength <= 0 {
			a.MaxLength = 300
		}
		out = append(out, a)
	}
	r.Agents = out
	return r, nil
}

func slug(name string) string {
	var b strings.Builder
	lastDash := false
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		case !lastDash && b.Len() > 0:
			b.WriteByte('-')
			lastDash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
