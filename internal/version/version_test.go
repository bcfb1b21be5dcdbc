package version

import (
	"strings"
	"testing"
)

func TestInfo(t *testing.T) {
	orig := Commit
	defer func() { Commit = orig }()

	Commit = "unknown"
	if got := Info(); got != Version {
		t.Errorf("Info() = %q, want %q", got, Version)
	}

	Commit = "abcdef1234567890"
	got := Info()
	if !strings.Contains(got, "abcdef1") {
		t.Errorf("Info() = %q, want short commit included", got)
	}
	if strings.Contains(got, "abcdef12") {
		t.Errorf("Info() = %q, commit should be truncated to 7 chars", got)
	}
}

func TestFull(t *testing.T) {
	full := Full()
	for _, want := range []string{"statusgen version", "Commit:", "Built:"} {
		if !strings.Contains(full, want) {
			t.Errorf("Full() missing %q: %s", want, full)
		}
	}
}
