package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SourceDecl declares one upstream source. The position in the list is the
// fan-out order: collection concatenates results in this order, so
// first-occurrence-wins dedup is deterministic across runs.
type SourceDecl struct {
	Name    string `yaml:"name"`
	Kind    string `yaml:"kind"` // "bugzilla" or "github"
	BaseURL string `yaml:"baseUrl"`
	// SearchURL is the human-facing search UI, used for the deep link in
	// the nothing-to-report output.
	SearchURL string `yaml:"searchUrl"`
	// Repos limits a github source to the given owner/name repos.
	Repos []string `yaml:"repos"`
}

// SourceList is the parsed sources.yaml.
type SourceList struct {
	Sources []SourceDecl `yaml:"sources"`
}

// DefaultSources returns the built-in source declarations.
func DefaultSources() SourceList {
	return SourceList{
		Sources: []SourceDecl{
			{
				Name:      "bugzilla",
				Kind:      "bugzilla",
				BaseURL:   "https://bugzilla.mozilla.org",
				SearchURL: "https://bugzilla.mozilla.org/buglist.cgi",
			},
			{
				Name:    "github",
				Kind:    "github",
				BaseURL: "https://api.github.com",
			},
		},
	}
}

// LoadSources reads source declarations from a YAML file, returning defaults
// when the file does not exist.
func LoadSources(path string) (SourceList, error) {
	if path == "" {
		return DefaultSources(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultSources(), nil
		}
		return SourceList{}, err
	}
	var list SourceList
	if err := yaml.Unmarshal(data, &list); err != nil {
		return SourceList{}, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(list.Sources) == 0 {
		return DefaultSources(), nil
	}
	return list, nil
}

// ByKind returns the first declared source of the given kind, if any.
func (l SourceList) ByKind(kind string) (SourceDecl, bool) {
	for _, s := range l.Sources {
		if s.Kind == kind {
			return s, true
		}
	}
	return SourceDecl{}, false
}
