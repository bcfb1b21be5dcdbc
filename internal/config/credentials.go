package config

import (
	"os"

	"statusgen/internal/errors"
)

// Credentials holds the upstream API keys. Env-only: keys never appear in
// config files or cache keys.
type Credentials struct {
	BugzillaKey string
	GitHubToken string
	OpenAIKey   string
}

// LoadCredentials reads credentials from the environment.
func LoadCredentials() Credentials {
	return Credentials{
		BugzillaKey: os.Getenv("BUGZILLA_API_KEY"),
		GitHubToken: os.Getenv("GITHUB_TOKEN"),
		OpenAIKey:   os.Getenv("OPENAI_API_KEY"),
	}
}

// RequireTracker fails fast when the primary tracker key is missing.
func (c Credentials) RequireTracker() error {
	if c.BugzillaKey == "" {
		return errors.New(errors.MissingCredentials, "BUGZILLA_API_KEY is not set", nil)
	}
	return nil
}

// RequireSummarizer fails fast when the summarizer key is missing.
func (c Credentials) RequireSummarizer() error {
	if c.OpenAIKey == "" {
		return errors.New(errors.MissingCredentials, "OPENAI_API_KEY is not set", nil)
	}
	return nil
}

// HasGitHub reports whether the enrichment/secondary source is usable.
func (c Credentials) HasGitHub() bool {
	return c.GitHubToken != ""
}
