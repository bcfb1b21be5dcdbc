package config

import (
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

// Rules defines which history transitions count as "done" and which
// restriction tags exclude a candidate. The default whitelist is fixed; it is
// a product decision, not derived, and a rules.toml can widen it.
type Rules struct {
	StatusFields     []string `toml:"status_fields"`
	DoneStatuses     []string `toml:"done_statuses"`
	ResolutionFields []string `toml:"resolution_fields"`
	ResolvedValues   []string `toml:"resolved_values"`
	// RestrictionPatterns are matched as substrings against candidate
	// restriction tags (e.g. "security" matches "firefox-core-security").
	RestrictionPatterns []string `toml:"restriction_patterns"`
}

// DefaultRules returns the built-in qualification whitelist.
func DefaultRules() Rules {
	return Rules{
		StatusFields:        []string{"status", "state"},
		DoneStatuses:        []string{"RESOLVED", "VERIFIED", "CLOSED", "closed", "done"},
		ResolutionFields:    []string{"resolution"},
		ResolvedValues:      []string{"FIXED", "completed"},
		RestrictionPatterns: []string{"security", "confidential"},
	}
}

// LoadRules reads rules from a TOML file, returning defaults when the file
// does not exist. Fields absent from the file keep their defaults.
func LoadRules(path string) (Rules, error) {
	rules := DefaultRules()
	if path == "" {
		return rules, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return rules, nil
	}
	if _, err := toml.DecodeFile(path, &rules); err != nil {
		return Rules{}, err
	}
	return rules, nil
}

// IsDoneStatus reports whether a change sets a status field to a done value.
func (r Rules) IsDoneStatus(field, value string) bool {
	return containsFold(r.StatusFields, field) && contains(r.DoneStatuses, value)
}

// IsResolved reports whether a change sets a resolution field to a resolved value.
func (r Rules) IsResolved(field, value string) bool {
	return containsFold(r.ResolutionFields, field) && contains(r.ResolvedValues, value)
}

// IsRestricted reports whether any tag matches a restriction pattern.
func (r Rules) IsRestricted(tags []string) bool {
	for _, tag := range tags {
		for _, pat := range r.RestrictionPatterns {
			if strings.Contains(strings.ToLower(tag), strings.ToLower(pat)) {
				return true
			}
		}
	}
	return false
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
