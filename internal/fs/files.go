package fs

import (
	"errors"
	"io/fs"
	"os"
	"path"
	"strings"
	"testing/fstest"
)

// FSContainsFiles returns true if the given fs.FS contains any files, and false otherwise.
func FSContainsFiles(fsys fs.FS) (bool, error) {
	// errFound is a sentinel error used to stop the walk when a file is found.
	errFound := os.ErrExist

	err := fs.WalkDir(fsys, ".", func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			// Found a file, so return a special error to stop the walk.
			return errFound
		}
		return nil
	})
	if err == errFound {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}

	return false, err
}

// MapFS returns an in-memory tree holding the given files.
func MapFS(m map[string]string) fs.FS {
	m0 := make(map[string]*fstest.MapFile, len(m))
	for p, f := range m {
		m0[Clean(p)] = &fstest.MapFile{Data: []byte(f), Mode: 0o644}
	}
	return fstest.MapFS(m0)
}

// BytesFS is MapFS for raw contents.
func BytesFS(m map[string][]byte) fs.FS {
	m0 := make(map[string]*fstest.MapFile, len(m))
	for p, f := range m {
		m0[Clean(p)] = &fstest.MapFile{Data: f, Mode: 0o644}
	}
	return fstest.MapFS(m0)
}

// File is one regular file of a tree.
type File struct {
	Path string
	Data []byte
}

// Files returns every regular file of fsys in fs.WalkDir order: entries are
// sorted per directory, so "a/b.js" precedes "a.js".
func Files(fsys fs.FS) ([]File, error) {
	var files []File
	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		bs, err := fs.ReadFile(fsys, p)
		if err != nil {
			return err
		}
		files = append(files, File{Path: p, Data: bs})
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	return files, err
}

// Paths returns the paths of every regular file of fsys in Files order.
func Paths(fsys fs.FS) ([]string, error) {
	files, err := Files(fsys)
	if err != nil {
		return nil, err
	}
	paths := make([]string, len(files))
	for i := range files {
		paths[i] = files[i].Path
	}
	return paths, nil
}

// Clean turns a user supplied path like "/packages/foo.js" or "./foo/" into the
// unrooted form io/fs expects. The root itself becomes ".".
func Clean(p string) string {
	p = path.Clean("/" + strings.ReplaceAll(p, "\\", "/"))
	p = strings.TrimPrefix(p, "/")
	if p == "" {
		return "."
	}
	return p
}
