package version

import (
	"strings"
	"testing"
)

func TestShort(t *testing.T) {
	tests := []struct {
		name string
		info Info
		want string
	}{
		{"no vcs", Info{Version: "dev"}, "dev"},
		{"clean", Info{Version: "1.2.0", VCSRevision: "0123456789abcdef"}, "1.2.0 (01234567)"},
		{"dirty", Info{Version: "1.2.0", VCSRevision: "abc", VCSModified: true}, "1.2.0 (abc (modified))"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.info.Short(); got != tt.want {
				t.Errorf("Short() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestString(t *testing.T) {
	s := Info{Version: "1.0.0", BuildTime: "unknown", GoVersion: "go1.25", VCSTime: "2026-01-02"}.String()
	if strings.Contains(s, "Built:") {
		t.Errorf("unknown build time should be omitted: %s", s)
	}
	for _, want := range []string{"Version: 1.0.0", "Go: go1.25", "Committed: 2026-01-02"} {
		if !strings.Contains(s, want) {
			t.Errorf("String() = %q, missing %q", s, want)
		}
	}
}

func TestCheck(t *testing.T) {
	if got := (Info{Version: "1.0.0", VCSRevision: "abc"}).Check(); got != "" {
		t.Errorf("clean build warned: %q", got)
	}
	if got := (Info{Version: "dev"}).Check(); got == "" {
		t.Error("development build should warn")
	}
}
