package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// GameProfile overrides the compiled-in game-mode settings for one game.
// Zero fields keep the default.
type GameProfile struct {
	CadenceSeconds     float64 `yaml:"cadence_seconds"`
	Probability        float64 `yaml:"probability"`
	MaxLength          int     `yaml:"max_length"`
	CommentaryInterval *int    `yaml:"commentary_interval"`
}

func LoadGameProfiles(path string) (map[string]GameProfile, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return map[string]GameProfile{}, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read game profiles file %q: %w", path, err)
	}
	var doc struct {
		Games map[string]GameProfile `yaml:"games"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse game profiles: %w", err)
	}
	out := make(map[string]GameProfile, len(doc.Games))
	for name, p := range doc.Games {
		out[strings.ToLower(strings.TrimSpace(name))] = p
	}
	return out, nil
}
