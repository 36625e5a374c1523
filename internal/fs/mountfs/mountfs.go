// Package mountfs places existing [fs.FS] trees under path prefixes of a
// single read-only tree. It is how selected files land in their destination
// directory without being copied.
package mountfs

import (
	"io"
	"io/fs"
	"path"
	"slices"
	"strings"
	"time"
)

// A MountFS serves each mounted tree below its prefix. Parent directories of
// the prefixes are synthesized. When prefixes nest, the longest one owns the
// paths below it.
type MountFS struct {
	mounts []mount // longest prefix first
}

type mount struct {
	prefix string
	fsys   fs.FS
}

var _ fs.FS = (*MountFS)(nil)

// New mounts every tree of m under its key. Keys are slash separated and
// unrooted; "." or "" mounts at the root.
func New(m map[string]fs.FS) *MountFS {
	mfs := &MountFS{mounts: make([]mount, 0, len(m))}
	for prefix, fsys := range m {
		prefix = strings.Trim(path.Clean("/"+prefix), "/")
		if prefix == "" {
			prefix = "."
		}
		mfs.mounts = append(mfs.mounts, mount{prefix: prefix, fsys: fsys})
	}
	slices.SortFunc(mfs.mounts, func(a, b mount) int {
		if d := depth(b.prefix) - depth(a.prefix); d != 0 {
			return d
		}
		return strings.Compare(a.prefix, b.prefix)
	})
	return mfs
}

// depth orders mounts so that the root mount is consulted last.
func depth(prefix string) int {
	if prefix == "." {
		return 0
	}
	return len(prefix)
}

// At is a shorthand for mounting a single tree.
func At(prefix string, fsys fs.FS) fs.FS {
	if p := strings.Trim(prefix, "/"); p == "" || p == "." {
		return fsys
	}
	return New(map[string]fs.FS{prefix: fsys})
}

// Open opens the named file.
func (m *MountFS) Open(name string) (fs.File, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrInvalid}
	}
	for _, mnt := range m.mounts {
		switch {
		case mnt.prefix == ".":
			return m.openRoot(name, mnt.fsys)
		case name == mnt.prefix:
			return mnt.fsys.Open(".")
		case strings.HasPrefix(name, mnt.prefix+"/"):
			return mnt.fsys.Open(name[len(mnt.prefix)+1:])
		}
	}
	return m.synthesize(name, nil)
}

// openRoot handles a mount at "." that shares the root with other mounts.
func (m *MountFS) openRoot(name string, root fs.FS) (fs.File, error) {
	f, err := root.Open(name)
	if err != nil {
		if synth, serr := m.synthesize(name, nil); serr == nil {
			return synth, nil
		}
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if !info.IsDir() {
		return f, nil
	}
	defer f.Close()
	entries, err := fs.ReadDir(root, name)
	if err != nil {
		return nil, err
	}
	return m.synthesize(name, entries)
}

// synthesize builds a directory listing of name from the mount prefixes below
// it, merged with the given entries.
func (m *MountFS) synthesize(name string, entries []fs.DirEntry) (fs.File, error) {
	children := make(map[string]fs.DirEntry, len(entries))
	for _, e := range entries {
		children[e.Name()] = e
	}
	prefix := name + "/"
	for _, mnt := range m.mounts {
		if mnt.prefix == "." {
			continue
		}
		rest := mnt.prefix
		if name != "." {
			var ok bool
			if rest, ok = strings.CutPrefix(mnt.prefix, prefix); !ok {
				continue
			}
		}
		elem, _, _ := strings.Cut(rest, "/")
		children[elem] = dirInfo{name: elem}
	}
	if len(children) == 0 && name != "." && entries == nil {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
	}

	list := make([]fs.DirEntry, 0, len(children))
	for _, e := range children {
		list = append(list, e)
	}
	slices.SortFunc(list, func(a, b fs.DirEntry) int { return strings.Compare(a.Name(), b.Name()) })
	return &dir{path: name, info: dirInfo{name: path.Base(name)}, entries: list}, nil
}

// dirInfo implements fs.FileInfo and fs.DirEntry for synthesized directories.
type dirInfo struct {
	name string
}

func (i dirInfo) Name() string               { return i.name }
func (dirInfo) Size() int64                  { return 0 }
func (dirInfo) Mode() fs.FileMode            { return fs.ModeDir | 0o555 }
func (dirInfo) Type() fs.FileMode            { return fs.ModeDir }
func (dirInfo) ModTime() time.Time           { return time.Time{} }
func (dirInfo) IsDir() bool                  { return true }
func (dirInfo) Sys() any                     { return nil }
func (i dirInfo) Info() (fs.FileInfo, error) { return i, nil }

type dir struct {
	path    string
	info    dirInfo
	entries []fs.DirEntry
	offset  int
}

func (d *dir) Stat() (fs.FileInfo, error) { return d.info, nil }
func (*dir) Close() error                 { return nil }
func (d *dir) Read([]byte) (int, error) {
	return 0, &fs.PathError{Op: "read", Path: d.path, Err: fs.ErrInvalid}
}

func (d *dir) ReadDir(count int) ([]fs.DirEntry, error) {
	n := len(d.entries) - d.offset
	if n == 0 && count > 0 {
		return nil, io.EOF
	}
	if count > 0 && n > count {
		n = count
	}
	list := d.entries[d.offset : d.offset+n]
	d.offset += n
	return list, nil
}
