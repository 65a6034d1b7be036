package buildinfo

import (
	"strings"
	"testing"
)

func TestUserAgent(t *testing.T) {
	old := Version
	defer func() { Version = old }()

	Version = "v1.4.0"
	if got := UserAgent(); got != "gitdeps/v1.4.0" {
		t.Errorf("UserAgent() = %q", got)
	}
}

func TestTemplate(t *testing.T) {
	tmpl := Template()
	for _, want := range []string{"{{.Name}}", Version, Commit, Date} {
		if !strings.Contains(tmpl, want) {
			t.Errorf("Template() missing %q: %s", want, tmpl)
		}
	}
	if !strings.Contains(String(), "commit: "+Commit) {
		t.Errorf("String() = %q", String())
	}
}
