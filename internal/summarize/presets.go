package summarize

import (
	"fmt"
	"os"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

// Presets maps --voice and --audience flag values to prompt fragments. A
// presets.toml can add or replace entries; unknown flag values fall back to
// the neutral default.
type Presets struct {
	Voices    map[string]string `toml:"voices"`
	Audiences map[string]string `toml:"audiences"`
}

// DefaultPresets returns the built-in prompt fragments.
func DefaultPresets() Presets {
	return Presets{
		Voices: map[string]string{
			"":           "Write in a neutral, factual tone.",
			"casual":     "Write in a relaxed, conversational tone.",
			"formal":     "Write in a precise, formal tone suitable for an official record.",
			"enthusiast": "Write with genuine enthusiasm about the work.",
		},
		Audiences: map[string]string{
			"":          "The reader is a peer engineer on an adjacent team.",
			"exec":      "The reader is an executive; avoid jargon and lead with outcomes.",
			"team":      "The reader is on the team; technical detail is welcome.",
			"community": "The reader is an open-source community member.",
		},
	}
}

// LoadPresets merges a presets.toml over the defaults. Missing file is fine.
func LoadPresets(path string) (Presets, error) {
	presets := DefaultPresets()
	if path == "" {
		return presets, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return presets, nil
		}
		return Presets{}, err
	}
	var overlay Presets
	if err := toml.Unmarshal(data, &overlay); err != nil {
		return Presets{}, fmt.Errorf("parse %s: %w", path, err)
	}
	for k, v := range overlay.Voices {
		presets.Voices[k] = v
	}
	for k, v := range overlay.Audiences {
		presets.Audiences[k] = v
	}
	return presets, nil
}

// SystemPrompt assembles the system message for the given flag values.
func (p Presets) SystemPrompt(voice, audience string) string {
	parts := []string{"You write concise engineering status reports."}
	if v, ok := p.Voices[voice]; ok {
		parts = append(parts, v)
	} else {
		parts = append(parts, p.Voices[""])
	}
	if a, ok := p.Audiences[audience]; ok {
		parts = append(parts, a)
	} else {
		parts = append(parts, p.Audiences[""])
	}
	return strings.Join(parts, " ")
}
