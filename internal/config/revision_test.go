package config

import (
	"strings"
	"testing"
)

func TestResolveRevision(t *testing.T) {
	tests := []struct {
		note     string
		revision string
		envVars  map[string]string
		want     string
		check    func(string) bool
	}{
		{
			note:     "empty revision",
			revision: "",
			want:     "",
		},
		{
			note:     "static string",
			revision: "REVISION-091",
			want:     "REVISION-091",
		},
		{
			note:     "version with prerelease",
			revision: "v1.13.0-beta.1",
			want:     "v1.13.0-beta.1",
		},
		{
			note:     "env var with ${} syntax",
			revision: "${EMBER_VERSION}",
			envVars:  map[string]string{"EMBER_VERSION": "1.13.0"},
			want:     "1.13.0",
		},
		{
			note:     "env var with $ syntax",
			revision: "$EMBER_VERSION+$BUILD",
			envVars:  map[string]string{"EMBER_VERSION": "1.13.0", "BUILD": "7"},
			want:     "1.13.0+7",
		},
		{
			note:     "env var not set",
			revision: "$UNSET_EMBER_VAR",
			want:     "",
		},
		{
			note:     "rego arithmetic",
			revision: "1 + 1",
			want:     "2",
		},
		{
			note:     "rego string concatenation",
			revision: `concat("", ["v", "1", ".", "13"])`,
			want:     "v1.13",
		},
		{
			note:     "rego input",
			revision: `concat("-", [input.bundle, input.kind])`,
			want:     "ember-runtime-runtime",
		},
		{
			note:     "rego timestamp",
			revision: "time.now_ns()",
			check:    func(s string) bool { return s != "" && strings.Trim(s, "0123456789") == "" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.note, func(t *testing.T) {
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			b := &Bundle{Name: "ember-runtime", Kind: BundleKindRuntime, Root: "ember-runtime", Revision: tt.revision}
			got, err := b.ResolveRevision(t.Context())
			if err != nil {
				t.Fatal(err)
			}

			if tt.check != nil {
				if !tt.check(got) {
					t.Errorf("ResolveRevision() = %q, unexpected value", got)
				}
				return
			}
			if got != tt.want {
				t.Errorf("ResolveRevision() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResolveRevisionError(t *testing.T) {
	b := &Bundle{Name: "ember-runtime", Revision: `input.missing`}
	if _, err := b.ResolveRevision(t.Context()); err == nil || !strings.Contains(err.Error(), `bundle "ember-runtime"`) {
		t.Fatalf("expected error naming the bundle, got %v", err)
	}
}

func TestLooksLikeRego(t *testing.T) {
	tests := []struct {
		note string
		s    string
		want bool
	}{
		{note: "function call", s: "time.now_ns()", want: true},
		{note: "simple string", s: "REVISION-091", want: false},
		{note: "version string", s: "v1.2.3-alpha", want: false},
		{note: "env var syntax", s: "${EMBER_VERSION}", want: false},
		{note: "quoted string", s: `"1.13.0"`, want: true},
		{note: "two expressions", s: "x := 1; x", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.note, func(t *testing.T) {
			if _, act := looksLikeRego(tt.s); act != tt.want {
				t.Errorf("looksLikeRego(%q) = %v, want %v", tt.s, act, tt.want)
			}
		})
	}
}
