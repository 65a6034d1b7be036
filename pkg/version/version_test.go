package version

import "testing"

func tags(names ...string) []string {
	refs := []string{"refs/heads/main"}
	for _, n := range names {
		refs = append(refs, "refs/tags/"+n)
	}
	return refs
}

func TestMatch(t *testing.T) {
	tests := []struct {
		name    string
		rng     string
		refs    []string
		wantTag string
		wantOK  bool
	}{
		{"caret picks highest compatible", "^1.2.0", tags("v1.1.0", "v1.2.0", "v1.3.5", "v2.0.0"), "v1.3.5", true},
		{"tilde", "~1.2.0", tags("v1.2.0", "v1.2.9", "v1.3.0"), "v1.2.9", true},
		{"exact version", "1.2.0", tags("v1.1.0", "v1.2.0", "v1.3.5"), "v1.2.0", true},
		{"v-prefixed exact", "v1.1.0", tags("1.1.0", "1.2.0"), "1.1.0", true},
		{"x-range", "1.x", tags("v0.9.0", "v1.4.2", "v2.0.0"), "v1.4.2", true},
		{"compound", ">=1.0.0 <1.4.0", tags("v1.0.0", "v1.3.9", "v1.4.0"), "v1.3.9", true},
		{"empty is any", "", tags("v0.1.0", "v3.0.0", "v2.0.0"), "v3.0.0", true},
		{"unsorted input", "*", tags("v2.0.0", "v10.0.0", "v9.1.0"), "v10.0.0", true},
		{"prefixed tag names", "^2", tags("release-2.1.0", "release-2.0.0"), "release-2.1.0", true},
		{"peeled refs collapse", "^1", []string{"refs/tags/v1.0.0", "refs/tags/v1.0.0^{}"}, "v1.0.0", true},
		{"no satisfying tag", "^3.0.0", tags("v1.0.0", "v2.0.0"), "", false},
		{"no versioned tags", "^1.0.0", tags("stable", "latest"), "", false},
		{"empty ref set", "^1.0.0", nil, "", false},
		{"branches ignored", "*", []string{"refs/heads/1.0.0"}, "", false},
		{"invalid range", "main", tags("v1.0.0"), "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, ok := Match(tt.rng, tt.refs)
			if ok != tt.wantOK {
				t.Fatalf("Match(%q) ok = %v, want %v", tt.rng, ok, tt.wantOK)
			}
			if m.Tag != tt.wantTag {
				t.Errorf("Match(%q) tag = %q, want %q", tt.rng, m.Tag, tt.wantTag)
			}
		})
	}
}

func TestMatchTieIsDeterministic(t *testing.T) {
	refs := tags("1.2.0", "v1.2.0", "release-1.2.0")
	for i := 0; i < 10; i++ {
		m, ok := Match("^1", refs)
		if !ok || m.Tag != "1.2.0" {
			t.Fatalf("Match() = %q, %v; want first spelling 1.2.0", m.Tag, ok)
		}
	}
}

func TestMatchReturnsVersion(t *testing.T) {
	m, ok := Match("^1.2.0", tags("v1.3.5"))
	if !ok {
		t.Fatal("expected match")
	}
	if m.Version.String() != "1.3.5" {
		t.Errorf("Version = %s, want 1.3.5", m.Version)
	}
}

func TestIsRange(t *testing.T) {
	tests := []struct {
		spec string
		want bool
	}{
		{"^1.2.0", true},
		{"~1.2", true},
		{">=1.0.0 <2.0.0", true},
		{"1.x", true},
		{"*", true},
		{"", true},
		{"v1.2.3", true},
		{"1.0.0 || 2.0.0", true},
		{"main", false},
		{"feature/login", false},
		{"a94a8fe5ccb19ba61c4c0873d391e987982fbbd3", false},
		{"stable", false},
	}
	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			if got := IsRange(tt.spec); got != tt.want {
				t.Errorf("IsRange(%q) = %v, want %v", tt.spec, got, tt.want)
			}
		})
	}
}

func TestMatchNoCandidatesIsZero(t *testing.T) {
	m, ok := Match("^1", tags("stable"))
	if ok || m != (VersionMatch{}) {
		t.Errorf("Match() = %+v, %v; want zero VersionMatch, false", m, ok)
	}
}

func TestCandidatesSorted(t *testing.T) {
	got := Candidates(tags("v1.0.0", "v1.10.0", "v1.2.0", "not-a-version"))
	want := []string{"v1.10.0", "v1.2.0", "v1.0.0"}
	if len(got) != len(want) {
		t.Fatalf("Candidates() returned %d tags, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].Tag != want[i] {
			t.Errorf("Candidates()[%d] = %q, want %q", i, got[i].Tag, want[i])
		}
	}
}

func TestIsRef(t *testing.T) {
	refs := []string{"refs/heads/main", "refs/tags/v1.0.0", "refs/pull/1/head"}
	tests := []struct {
		treeish          string
		branch, tag, ref bool
	}{
		{"main", true, false, true},
		{"v1.0.0", false, true, true},
		{"pull/1/head", false, false, false},
		{"a94a8fe", false, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.treeish, func(t *testing.T) {
			if got := IsBranch(tt.treeish, refs); got != tt.branch {
				t.Errorf("IsBranch() = %v, want %v", got, tt.branch)
			}
			if got := IsTag(tt.treeish, refs); got != tt.tag {
				t.Errorf("IsTag() = %v, want %v", got, tt.tag)
			}
			if got := IsRef(tt.treeish, refs); got != tt.ref {
				t.Errorf("IsRef() = %v, want %v", got, tt.ref)
			}
		})
	}
}
