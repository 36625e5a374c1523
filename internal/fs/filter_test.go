package fs_test

import (
	"io/fs"
	"testing"

	"github.com/google/go-cmp/cmp"

	buildfs "github.com/seanpdoyle/emberjs-build/internal/fs"
)

func TestFilterFS(t *testing.T) {
	src := buildfs.MapFS(map[string]string{
		"main.js":             "a",
		"lib/core.js":         "b",
		"lib/templates/x.hbs": "c",
		"lib/README.md":       "d",
		".hidden/ci.js":       "e",
	})

	cases := []struct {
		note     string
		included []string
		excluded []string
		exp      []string
	}{
		{
			note: "no filters",
			exp:  []string{".hidden/ci.js", "lib/README.md", "lib/core.js", "lib/templates/x.hbs", "main.js"},
		},
		{
			note:     "double star matches top level too",
			included: []string{"**/*.js"},
			exp:      []string{".hidden/ci.js", "lib/core.js", "main.js"},
		},
		{
			note:     "single star stops at separators",
			included: []string{"*.js"},
			exp:      []string{"main.js"},
		},
		{
			note:     "exclusions apply after inclusions",
			included: []string{"**/*.js", "**/*.hbs"},
			excluded: []string{".*/*"},
			exp:      []string{"lib/core.js", "lib/templates/x.hbs", "main.js"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.note, func(t *testing.T) {
			fsys, err := buildfs.NewFilterFS(src, tc.included, tc.excluded)
			if err != nil {
				t.Fatal(err)
			}
			act, err := buildfs.Paths(fsys)
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tc.exp, act); diff != "" {
				t.Fatalf("(-want,+got)\n%s", diff)
			}
		})
	}
}

func TestFilterFSHiddenFileNotOpenable(t *testing.T) {
	fsys, err := buildfs.NewFilterFS(buildfs.MapFS(map[string]string{"a.md": "x"}), []string{"*.js"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fs.ReadFile(fsys, "a.md"); err == nil {
		t.Fatal("expected filtered file to be hidden")
	}
	ok, err := buildfs.FSContainsFiles(fsys)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected no files")
	}
}

func TestInvalidPattern(t *testing.T) {
	if _, err := buildfs.NewFilterFS(buildfs.MapFS(nil), []string{"[a-"}, nil); err == nil {
		t.Fatal("expected error")
	}
}

func TestClean(t *testing.T) {
	for in, exp := range map[string]string{
		"/ember-runtime.js": "ember-runtime.js",
		"./packages/":       "packages",
		"/":                 ".",
		"":                  ".",
		"a/../b/c.js":       "b/c.js",
		"packages\\x\\lib":  "packages/x/lib",
	} {
		if act := buildfs.Clean(in); act != exp {
			t.Errorf("Clean(%q): expected %q, got %q", in, exp, act)
		}
	}
}

func TestPatternMatch(t *testing.T) {
	cases := []struct {
		note    string
		pattern string
		name    string
		exp     bool
	}{
		{note: "interior double star, direct child", pattern: "ember-metal/**/*.js", name: "ember-metal/core.js", exp: true},
		{note: "interior double star, nested", pattern: "ember-metal/**/*.js", name: "ember-metal/streams/stream.js", exp: true},
		{note: "interior double star, other package", pattern: "ember-metal/**/*.js", name: "ember-runtime/core.js"},
		{note: "two double stars", pattern: "**/tests/**/*.js", name: "tests/a.js", exp: true},
		{note: "exact", pattern: "ember-metal.js", name: "ember-metal.js", exp: true},
		{note: "star stops", pattern: "*.js", name: "ember-metal/core.js"},
	}
	for _, tc := range cases {
		t.Run(tc.note, func(t *testing.T) {
			p, err := buildfs.CompilePattern(tc.pattern)
			if err != nil {
				t.Fatal(err)
			}
			if act := p.Match(tc.name); act != tc.exp {
				t.Fatalf("%q.Match(%q): expected %v, got %v", tc.pattern, tc.name, tc.exp, act)
			}
		})
	}
}
