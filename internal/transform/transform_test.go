package transform_test

import (
	"errors"
	"io/fs"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	buildfs "github.com/seanpdoyle/emberjs-build/internal/fs"
	"github.com/seanpdoyle/emberjs-build/internal/transform"
)

func paths(t *testing.T, fsys fs.FS) []string {
	t.Helper()
	ps, err := buildfs.Paths(fsys)
	if err != nil {
		t.Fatal(err)
	}
	return ps
}

func read(t *testing.T, fsys fs.FS, name string) string {
	t.Helper()
	bs, err := fs.ReadFile(fsys, name)
	if err != nil {
		t.Fatal(err)
	}
	return string(bs)
}

func TestSelectFiles(t *testing.T) {
	src := buildfs.MapFS(map[string]string{
		"packages/ember-metal/lib/main.js":        "a",
		"packages/ember-metal/lib/core.js":        "b",
		"packages/ember-metal/lib/notes.md":       "c",
		"packages/ember-metal/tests/core_test.js": "d",
		"packages/ember-runtime/lib/main.js":      "e",
	})
	d := transform.New()

	cases := []struct {
		note string
		opts transform.SelectOptions
		exp  []string
	}{
		{
			note: "lib tree",
			opts: transform.SelectOptions{SourceDir: "packages/ember-metal/lib", DestDir: "/ember-metal", Files: []string{"**/*.js"}},
			exp:  []string{"ember-metal/core.js", "ember-metal/main.js"},
		},
		{
			note: "root destination",
			opts: transform.SelectOptions{SourceDir: "/packages/ember-runtime/lib/", DestDir: "/", Files: []string{"**/*.js"}},
			exp:  []string{"main.js"},
		},
		{
			note: "exact file",
			opts: transform.SelectOptions{SourceDir: "packages/ember-metal/lib", DestDir: "lib", Files: []string{"core.js"}},
			exp:  []string{"lib/core.js"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.note, func(t *testing.T) {
			out, err := d.SelectFiles(src, tc.opts)
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tc.exp, paths(t, out)); diff != "" {
				t.Fatalf("(-want,+got)\n%s", diff)
			}
		})
	}

	t.Run("nothing matched", func(t *testing.T) {
		_, err := d.SelectFiles(src, transform.SelectOptions{SourceDir: "packages/missing/lib", DestDir: "x", Files: []string{"**/*.js"}})
		var nf *transform.NoFilesError
		if !errors.As(err, &nf) {
			t.Fatalf("expected NoFilesError, got %v", err)
		}
	})
}

func TestRenameFile(t *testing.T) {
	d := transform.New()
	src := buildfs.MapFS(map[string]string{"ember-runtime/main.js": "x", "ember-runtime/a.js": "y"})

	out, err := d.RenameFile(src, transform.RenameOptions{From: "ember-runtime/main.js", To: "ember-runtime.js"})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"ember-runtime/a.js", "ember-runtime.js"}, paths(t, out)); diff != "" {
		t.Fatalf("(-want,+got)\n%s", diff)
	}
	if act := read(t, out, "ember-runtime.js"); act != "x" {
		t.Fatalf("unexpected content %q", act)
	}
	if _, err := fs.Stat(src, "ember-runtime/main.js"); err != nil {
		t.Fatal("input tree was modified")
	}

	if _, err := d.RenameFile(src, transform.RenameOptions{From: "nope.js", To: "x.js"}); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected not exist, got %v", err)
	}
	var ce *transform.CollisionError
	if _, err := d.RenameFile(src, transform.RenameOptions{From: "ember-runtime/main.js", To: "ember-runtime/a.js"}); !errors.As(err, &ce) {
		t.Fatalf("expected collision, got %v", err)
	}
}

func TestMergeTrees(t *testing.T) {
	d := transform.New()
	a := buildfs.MapFS(map[string]string{"x.js": "a", "dir/a.js": "a"})
	b := buildfs.MapFS(map[string]string{"x.js": "b", "dir/b.js": "b"})

	out, err := d.MergeTrees([]fs.FS{a, b}, transform.MergeOptions{OnCollision: transform.CollisionOverwrite})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"dir/a.js", "dir/b.js", "x.js"}, paths(t, out)); diff != "" {
		t.Fatalf("(-want,+got)\n%s", diff)
	}
	if act := read(t, out, "x.js"); act != "b" {
		t.Fatalf("expected later tree to win, got %q", act)
	}

	var ce *transform.CollisionError
	if _, err := d.MergeTrees([]fs.FS{a, b}, transform.MergeOptions{OnCollision: transform.CollisionFail}); !errors.As(err, &ce) || ce.Path != "x.js" {
		t.Fatalf("expected collision on x.js, got %v", err)
	}

	empty, err := d.MergeTrees(nil, transform.MergeOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(paths(t, empty)) != 0 {
		t.Fatal("expected empty tree")
	}
}

func TestConcatenateModules(t *testing.T) {
	d := transform.New()
	first := buildfs.MapFS(map[string]string{"a.js": "exports.a = 1;", "a/b.js": "exports.b = 2;\n", "a/notes.txt": "skip"})
	second := buildfs.MapFS(map[string]string{"a.js": "exports.a = 'shadowed';", "r.js": "require('a');"})
	vendor := buildfs.MapFS(map[string]string{"v.js": "exports.v = 0;"})

	t.Run("loader, modules, bootstrap", func(t *testing.T) {
		out, err := d.ConcatenateModules([]fs.FS{first, second}, transform.ModuleOptions{
			IncludeLoader: true,
			Bootstrap:     "r",
			Destination:   "/out.js",
		})
		if err != nil {
			t.Fatal(err)
		}
		act := read(t, out, "out.js")
		exp := transform.LoaderShim +
			"define(\"a/b\", [\"exports\", \"require\", \"module\"], function(exports, require, module) {\nexports.b = 2;\n});\n" +
			"define(\"a\", [\"exports\", \"require\", \"module\"], function(exports, require, module) {\nexports.a = 1;\n});\n" +
			"define(\"r\", [\"exports\", \"require\", \"module\"], function(exports, require, module) {\nrequire('a');\n});\n" +
			"requireModule(\"r\");\n"
		if diff := cmp.Diff(exp, act); diff != "" {
			t.Fatalf("(-want,+got)\n%s", diff)
		}
	})

	t.Run("vendor listed", func(t *testing.T) {
		out, err := d.ConcatenateModules([]fs.FS{second}, transform.ModuleOptions{VendorTrees: []fs.FS{vendor}, Destination: "x.js"})
		if err != nil {
			t.Fatal(err)
		}
		act := read(t, out, "x.js")
		if !strings.HasPrefix(act, "/* external modules: v */\n") || strings.Contains(act, "exports.v") {
			t.Fatalf("unexpected output:\n%s", act)
		}
	})

	t.Run("listed vendor does not shadow own module", func(t *testing.T) {
		vendored := buildfs.MapFS(map[string]string{"pkg.js": "exports.from = 'vendor';"})
		own := buildfs.MapFS(map[string]string{"pkg.js": "exports.from = 'own';"})
		out, err := d.ConcatenateModules([]fs.FS{own}, transform.ModuleOptions{
			VendorTrees: []fs.FS{vendored, vendored},
			InputFiles:  []string{"pkg.js"},
			Destination: "x.js",
		})
		if err != nil {
			t.Fatal(err)
		}
		exp := "/* external modules: pkg */\n" +
			"define(\"pkg\", [\"exports\", \"require\", \"module\"], function(exports, require, module) {\nexports.from = 'own';\n});\n"
		if diff := cmp.Diff(exp, read(t, out, "x.js")); diff != "" {
			t.Fatalf("(-want,+got)\n%s", diff)
		}
	})

	t.Run("vendor embedded", func(t *testing.T) {
		out, err := d.ConcatenateModules([]fs.FS{second}, transform.ModuleOptions{
			IncludeLoader: true,
			VendorTrees:   []fs.FS{vendor},
			EmbedVendor:   true,
			Destination:   "x.js",
		})
		if err != nil {
			t.Fatal(err)
		}
		act := read(t, out, "x.js")
		v, a := strings.Index(act, `define("v"`), strings.Index(act, `define("a"`)
		if v < len(transform.LoaderShim) || a < v {
			t.Fatalf("expected vendor after loader and before modules:\n%s", act)
		}
	})

	t.Run("input file patterns", func(t *testing.T) {
		out, err := d.ConcatenateModules([]fs.FS{first}, transform.ModuleOptions{InputFiles: []string{"a/*.js"}, Destination: "x.js"})
		if err != nil {
			t.Fatal(err)
		}
		act := read(t, out, "x.js")
		if strings.Contains(act, `define("a",`) || !strings.Contains(act, `define("a/b",`) {
			t.Fatalf("unexpected output:\n%s", act)
		}
	})

	t.Run("missing bootstrap", func(t *testing.T) {
		if _, err := d.ConcatenateModules([]fs.FS{first}, transform.ModuleOptions{Bootstrap: "nope", Destination: "x.js"}); err == nil {
			t.Fatal("expected error")
		}
	})
}

func TestConcat(t *testing.T) {
	d := transform.New()
	tree := buildfs.MapFS(map[string]string{"a.js": "A", "b.js": "B"})

	out, err := d.Concat(tree, transform.ConcatOptions{InputFiles: []string{"/b.js", "/a.js"}, OutputFile: "ab.js"})
	if err != nil {
		t.Fatal(err)
	}
	if act := read(t, out, "ab.js"); act != "B\nA" {
		t.Fatalf("unexpected output %q", act)
	}
	if _, err := d.Concat(tree, transform.ConcatOptions{InputFiles: []string{"c.js"}, OutputFile: "x.js"}); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected not exist, got %v", err)
	}
}

func TestWriteStaticFile(t *testing.T) {
	out := transform.New().WriteStaticFile("/trailer.js", ";module.exports = Ember;\n")
	if diff := cmp.Diff([]string{"trailer.js"}, paths(t, out)); diff != "" {
		t.Fatalf("(-want,+got)\n%s", diff)
	}
}
