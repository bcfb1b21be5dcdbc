package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Window.Days != 7 {
		t.Errorf("default days = %d, want 7", cfg.Window.Days)
	}
	if cfg.Cache.TTLSeconds != 86400 {
		t.Errorf("default cache TTL = %d, want 86400", cfg.Cache.TTLSeconds)
	}
	if cfg.Fetch.HistoryWorkers != 8 {
		t.Errorf("default history workers = %d, want 8", cfg.Fetch.HistoryWorkers)
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	cfgDir := filepath.Join(dir, ".statusgen")
	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		t.Fatal(err)
	}
	content := `{"window": {"days": 14}, "report": {"maxSummarized": 10}}`
	if err := os.WriteFile(filepath.Join(cfgDir, "config.json"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(dir)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Window.Days != 14 {
		t.Errorf("days = %d, want 14", cfg.Window.Days)
	}
	if cfg.Report.MaxSummarized != 10 {
		t.Errorf("maxSummarized = %d, want 10", cfg.Report.MaxSummarized)
	}
	// Untouched sections keep defaults.
	if cfg.Fetch.ChunkSize != 100 {
		t.Errorf("chunkSize = %d, want default 100", cfg.Fetch.ChunkSize)
	}
}

func TestLoadRules(t *testing.T) {
	t.Run("missing file yields defaults", func(t *testing.T) {
		rules, err := LoadRules(filepath.Join(t.TempDir(), "rules.toml"))
		if err != nil {
			t.Fatalf("LoadRules: %v", err)
		}
		if !rules.IsDoneStatus("status", "RESOLVED") {
			t.Error("default rules should accept status->RESOLVED")
		}
		if !rules.IsResolved("resolution", "FIXED") {
			t.Error("default rules should accept resolution->FIXED")
		}
	})

	t.Run("file overrides", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "rules.toml")
		content := `
done_statuses = ["SHIPPED"]
restriction_patterns = ["embargo"]
`
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
		rules, err := LoadRules(path)
		if err != nil {
			t.Fatalf("LoadRules: %v", err)
		}
		if rules.IsDoneStatus("status", "RESOLVED") {
			t.Error("override should replace done statuses")
		}
		if !rules.IsDoneStatus("status", "SHIPPED") {
			t.Error("override value should qualify")
		}
		if !rules.IsRestricted([]string{"release-embargo"}) {
			t.Error("pattern should match as substring")
		}
	})
}

func TestRulesRestriction(t *testing.T) {
	rules := DefaultRules()
	if !rules.IsRestricted([]string{"firefox-core-security"}) {
		t.Error("security group should restrict")
	}
	if rules.IsRestricted([]string{"mozilla-employee"}) {
		t.Error("unrelated group should not restrict")
	}
	if rules.IsRestricted(nil) {
		t.Error("no tags should not restrict")
	}
}

func TestLoadSources(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		list, err := LoadSources(filepath.Join(t.TempDir(), "sources.yaml"))
		if err != nil {
			t.Fatal(err)
		}
		if len(list.Sources) != 2 {
			t.Fatalf("default sources = %d, want 2", len(list.Sources))
		}
		if list.Sources[0].Kind != "bugzilla" {
			t.Error("bugzilla must be the first declared source")
		}
	})

	t.Run("file order preserved", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "sources.yaml")
		content := `
sources:
  - name: gh
    kind: github
    baseUrl: https://api.github.com
    repos: [mozilla/gecko-dev]
  - name: bmo
    kind: bugzilla
    baseUrl: https://bugzilla.example.org
`
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
		list, err := LoadSources(path)
		if err != nil {
			t.Fatal(err)
		}
		if list.Sources[0].Name != "gh" || list.Sources[1].Name != "bmo" {
			t.Errorf("declared order not preserved: %+v", list.Sources)
		}
		decl, ok := list.ByKind("bugzilla")
		if !ok || decl.BaseURL != "https://bugzilla.example.org" {
			t.Errorf("ByKind(bugzilla) = %+v, %v", decl, ok)
		}
	})
}

func TestCredentials(t *testing.T) {
	c := Credentials{}
	if err := c.RequireTracker(); err == nil {
		t.Error("missing bugzilla key should error")
	}
	c.BugzillaKey = "k"
	if err := c.RequireTracker(); err != nil {
		t.Errorf("RequireTracker: %v", err)
	}
	if c.HasGitHub() {
		t.Error("HasGitHub should be false without token")
	}
}
