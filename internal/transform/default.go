package transform

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strings"

	"github.com/yalue/merged_fs"

	buildfs "github.com/seanpdoyle/emberjs-build/internal/fs"
	"github.com/seanpdoyle/emberjs-build/internal/fs/mountfs"
)

// Default implements Primitives on in-memory and on-disk trees.
type Default struct {
	strict bool
}

var _ Primitives = (*Default)(nil)

func New() *Default {
	return &Default{}
}

// WithStrictLint makes Lint fail with a *LintError when a pass finds
// problems, instead of only recording them in the generated tests.
func (d *Default) WithStrictLint(yes bool) *Default {
	d.strict = yes
	return d
}

func (*Default) SelectFiles(tree fs.FS, opts SelectOptions) (fs.FS, error) {
	src := buildfs.Clean(opts.SourceDir)
	sub := tree
	if src != "." {
		var err error
		if sub, err = fs.Sub(tree, src); err != nil {
			return nil, err
		}
	}

	filtered, err := buildfs.NewFilterFS(sub, opts.Files, nil)
	if err != nil {
		return nil, err
	}
	ok, err := buildfs.FSContainsFiles(filtered)
	if err != nil {
		return nil, fmt.Errorf("select %q: %w", opts.SourceDir, err)
	}
	if !ok {
		return nil, &NoFilesError{SourceDir: opts.SourceDir, Files: opts.Files}
	}
	return mountfs.At(buildfs.Clean(opts.DestDir), filtered), nil
}

func (*Default) RenameFile(tree fs.FS, opts RenameOptions) (fs.FS, error) {
	from, to := buildfs.Clean(opts.From), buildfs.Clean(opts.To)
	files, err := buildfs.Files(tree)
	if err != nil {
		return nil, err
	}

	out := make(map[string][]byte, len(files))
	var moved []byte
	found := false
	for _, f := range files {
		if f.Path == from {
			moved, found = f.Data, true
			continue
		}
		out[f.Path] = f.Data
	}
	if !found {
		return nil, &fs.PathError{Op: "rename", Path: from, Err: fs.ErrNotExist}
	}
	if _, ok := out[to]; ok {
		return nil, &CollisionError{Op: "rename", Path: to}
	}
	out[to] = moved
	return buildfs.BytesFS(out), nil
}

func (*Default) MergeTrees(trees []fs.FS, opts MergeOptions) (fs.FS, error) {
	switch len(trees) {
	case 0:
		return buildfs.MapFS(nil), nil
	case 1:
		return trees[0], nil
	}

	if opts.OnCollision == CollisionFail {
		seen := map[string]struct{}{}
		for _, t := range trees {
			paths, err := buildfs.Paths(t)
			if err != nil {
				return nil, err
			}
			for _, p := range paths {
				if _, ok := seen[p]; ok {
					return nil, &CollisionError{Op: "merge", Path: p}
				}
				seen[p] = struct{}{}
			}
		}
	}

	// merged_fs gives priority to earlier trees; later trees must win here.
	reversed := slices.Clone(trees)
	slices.Reverse(reversed)
	return merged_fs.MergeMultiple(reversed...), nil
}

func (*Default) WriteStaticFile(name, content string) fs.FS {
	return buildfs.MapFS(map[string]string{name: content})
}

func (*Default) Concat(tree fs.FS, opts ConcatOptions) (fs.FS, error) {
	parts := make([][]byte, 0, len(opts.InputFiles))
	for _, name := range opts.InputFiles {
		bs, err := fs.ReadFile(tree, buildfs.Clean(name))
		if err != nil {
			return nil, fmt.Errorf("concat %q: %w", opts.OutputFile, err)
		}
		parts = append(parts, bs)
	}
	return buildfs.BytesFS(map[string][]byte{opts.OutputFile: bytes.Join(parts, []byte("\n"))}), nil
}

// ModuleName is the name a file is registered under by ConcatenateModules.
func ModuleName(p string) string {
	return strings.TrimSuffix(buildfs.Clean(p), ".js")
}

func (*Default) ConcatenateModules(trees []fs.FS, opts ModuleOptions) (fs.FS, error) {
	if opts.Destination == "" {
		return nil, errors.New("concatenate modules: destination is required")
	}
	patterns, err := buildfs.CompilePatterns(opts.InputFiles)
	if err != nil {
		return nil, err
	}

	registered := map[string]struct{}{}
	var vendor, modules bytes.Buffer
	var external []string

	for _, t := range opts.VendorTrees {
		files, err := buildfs.Files(t)
		if err != nil {
			return nil, err
		}
		for _, f := range files {
			if path.Ext(f.Path) != ".js" {
				continue
			}
			name := ModuleName(f.Path)
			if !opts.EmbedVendor {
				// Listed only; the module is loaded from elsewhere and does
				// not claim its name in this output.
				if !slices.Contains(external, name) {
					external = append(external, name)
				}
				continue
			}
			if _, ok := registered[name]; ok {
				continue
			}
			registered[name] = struct{}{}
			writeModule(&vendor, name, f.Data)
		}
	}

	for _, t := range trees {
		files, err := buildfs.Files(t)
		if err != nil {
			return nil, err
		}
		for _, f := range files {
			if path.Ext(f.Path) != ".js" {
				continue
			}
			if len(patterns) > 0 && !buildfs.MatchAny(patterns, f.Path) {
				continue
			}
			name := ModuleName(f.Path)
			if _, ok := registered[name]; ok {
				// First registration wins.
				continue
			}
			registered[name] = struct{}{}
			writeModule(&modules, name, f.Data)
		}
	}

	if opts.Bootstrap != "" {
		if _, ok := registered[opts.Bootstrap]; !ok {
			return nil, fmt.Errorf("concatenate modules: bootstrap module %q not found", opts.Bootstrap)
		}
	}

	var out bytes.Buffer
	if len(external) > 0 {
		fmt.Fprintf(&out, "/* external modules: %s */\n", strings.Join(external, ", "))
	}
	if opts.IncludeLoader {
		out.WriteString(LoaderShim)
	}
	out.Write(vendor.Bytes())
	out.Write(modules.Bytes())
	if opts.Bootstrap != "" {
		fmt.Fprintf(&out, "requireModule(%q);\n", opts.Bootstrap)
	}
	return buildfs.BytesFS(map[string][]byte{opts.Destination: out.Bytes()}), nil
}

func writeModule(buf *bytes.Buffer, name string, src []byte) {
	fmt.Fprintf(buf, "define(%q, [\"exports\", \"require\", \"module\"], function(exports, require, module) {\n", name)
	buf.Write(src)
	if len(src) > 0 && src[len(src)-1] != '\n' {
		buf.WriteByte('\n')
	}
	buf.WriteString("});\n")
}

// Lint checks every .js file of tree with the given pass.
func (d *Default) Lint(ctx context.Context, tree fs.FS, pass LintPass) (fs.FS, error) {
	var check func(context.Context, buildfs.File) ([]Finding, error)
	switch pass {
	case LintSyntax:
		check = syntaxFindings
	case LintStyle:
		check = styleFindings
	default:
		return nil, fmt.Errorf("unknown lint pass %q", pass)
	}

	files, err := buildfs.Files(tree)
	if err != nil {
		return nil, err
	}

	out := map[string]string{}
	var failed []Finding
	for _, f := range files {
		if path.Ext(f.Path) != ".js" || strings.HasSuffix(f.Path, "-lint-test.js") {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		findings, err := check(ctx, f)
		if err != nil {
			return nil, fmt.Errorf("%s lint %q: %w", pass, f.Path, err)
		}
		out[LintTestPath(f.Path, pass)] = lintTest(pass, f.Path, findings)
		failed = append(failed, findings...)
	}

	if d.strict && len(failed) > 0 {
		return nil, &LintError{Pass: pass, Findings: failed}
	}
	return buildfs.MapFS(out), nil
}

// LintTestPath is the companion test file name for a linted source file.
func LintTestPath(p string, pass LintPass) string {
	return strings.TrimSuffix(p, ".js") + "." + string(pass) + "-lint-test.js"
}
