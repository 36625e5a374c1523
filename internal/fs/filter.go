package fs

import (
	"fmt"
	"io"
	"io/fs"
	"path"

	"github.com/gobwas/glob"
)

// Pattern is a compiled file glob. "*" stops at "/", "**" does not, and a
// "**/" segment also matches no directory at all, so "a/**/*.js" matches
// "a/b.js".
type Pattern struct {
	raw   string
	globs []glob.Glob
}

func CompilePattern(p string) (Pattern, error) {
	variants := expandDoubleStar(p)
	pat := Pattern{raw: p}
	for _, v := range variants {
		g, err := glob.Compile(v, '/')
		if err != nil {
			return Pattern{}, fmt.Errorf("invalid file pattern %q: %w", p, err)
		}
		pat.globs = append(pat.globs, g)
	}
	return pat, nil
}

// expandDoubleStar returns p and every variant of p with some of its "**/"
// segments removed.
func expandDoubleStar(p string) []string {
	for i := 0; i+3 <= len(p); i++ {
		if p[i:i+3] != "**/" || (i > 0 && p[i-1] != '/') {
			continue
		}
		var out []string
		for _, rest := range expandDoubleStar(p[i+3:]) {
			out = append(out, p[:i+3]+rest, p[:i]+rest)
		}
		return out
	}
	return []string{p}
}

func CompilePatterns(ps []string) ([]Pattern, error) {
	out := make([]Pattern, 0, len(ps))
	for _, p := range ps {
		pat, err := CompilePattern(p)
		if err != nil {
			return nil, err
		}
		out = append(out, pat)
	}
	return out, nil
}

func (p Pattern) Match(name string) bool {
	for _, g := range p.globs {
		if g.Match(name) {
			return true
		}
	}
	return false
}

func (p Pattern) String() string { return p.raw }

// MatchAny reports whether name matches one of the patterns.
func MatchAny(ps []Pattern, name string) bool {
	for _, p := range ps {
		if p.Match(name) {
			return true
		}
	}
	return false
}

// NewFilterFS hides the files of fsys that do not match one of included (when
// non-empty) or that match one of excluded. Directories are always visible.
func NewFilterFS(fsys fs.FS, included, excluded []string) (fs.FS, error) {
	if len(included) == 0 && len(excluded) == 0 {
		return fsys, nil
	}
	inc, err := CompilePatterns(included)
	if err != nil {
		return nil, err
	}
	exc, err := CompilePatterns(excluded)
	if err != nil {
		return nil, err
	}
	return &filterFS{fsys: fsys, included: inc, excluded: exc}, nil
}

type filterFS struct {
	fsys     fs.FS
	included []Pattern
	excluded []Pattern
}

func (f *filterFS) visible(name string) bool {
	if len(f.included) > 0 && !MatchAny(f.included, name) {
		return false
	}
	return !MatchAny(f.excluded, name)
}

func (f *filterFS) Open(name string) (fs.File, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrInvalid}
	}
	file, err := f.fsys.Open(name)
	if err != nil {
		return nil, err
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, err
	}
	if info.IsDir() {
		return &filterDir{File: file, fsys: f, path: name}, nil
	}
	if !f.visible(name) {
		file.Close()
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
	}
	return file, nil
}

type filterDir struct {
	fs.File
	fsys    *filterFS
	path    string
	entries []fs.DirEntry
	loaded  bool
	offset  int
}

func (d *filterDir) ReadDir(n int) ([]fs.DirEntry, error) {
	if !d.loaded {
		rd, ok := d.File.(fs.ReadDirFile)
		if !ok {
			return nil, &fs.PathError{Op: "readdir", Path: d.path, Err: fs.ErrInvalid}
		}
		all, err := rd.ReadDir(-1)
		if err != nil {
			return nil, err
		}
		d.entries = make([]fs.DirEntry, 0, len(all))
		for _, e := range all {
			if e.IsDir() || d.fsys.visible(path.Join(d.path, e.Name())) {
				d.entries = append(d.entries, e)
			}
		}
		d.loaded = true
	}

	rest := d.entries[d.offset:]
	if n <= 0 {
		d.offset = len(d.entries)
		return rest, nil
	}
	if len(rest) == 0 {
		return nil, io.EOF
	}
	n = min(n, len(rest))
	d.offset += n
	return rest[:n], nil
}
