package builder

import (
	"io/fs"
	"maps"
	"slices"
)

// Trees are the outputs of building one package.
type Trees struct {
	// Lib holds the library modules below <name>/, with main.js renamed to
	// <name>.js and templates precompiled.
	Lib fs.FS

	// Compiled holds packages/<name>.js and, unless tests are skipped,
	// packages/<name>-tests.js.
	Compiled fs.FS

	// Vendor holds the package's own vendor trees, in declaration order.
	Vendor []fs.FS

	tests fs.FS
}

// Tests returns the merged test and lint tree, or ErrTestsSkipped.
func (t *Trees) Tests() (fs.FS, error) {
	if t.tests == nil {
		return nil, ErrTestsSkipped
	}
	return t.tests, nil
}

// Session memoizes package builds for one build invocation. A package is
// either absent, pending while its build runs, or done. Sessions are not
// safe for concurrent use.
type Session struct {
	entries map[string]*entry
}

type entry struct {
	trees *Trees // nil while pending
}

func NewSession() *Session {
	return &Session{entries: map[string]*entry{}}
}

func (s *Session) lookup(name string) (trees *Trees, pending bool) {
	e, ok := s.entries[name]
	if !ok {
		return nil, false
	}
	return e.trees, e.trees == nil
}

func (s *Session) begin(name string) {
	s.entries[name] = &entry{}
}

func (s *Session) finish(name string, trees *Trees) {
	s.entries[name].trees = trees
}

// abort forgets a failed build so that the error is reported again, rather
// than a cycle, if the package is requested later.
func (s *Session) abort(name string) {
	delete(s.entries, name)
}

// Built returns the names of the packages built so far in lexical order.
func (s *Session) Built() []string {
	var names []string
	for _, name := range slices.Sorted(maps.Keys(s.entries)) {
		if s.entries[name].trees != nil {
			names = append(names, name)
		}
	}
	return names
}
