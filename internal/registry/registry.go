// Package registry holds the static description of the build graph: the
// source packages, where their files live and which other packages and
// vendor trees they require.
package registry

import (
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"slices"

	"github.com/seanpdoyle/emberjs-build/internal/config"
	buildfs "github.com/seanpdoyle/emberjs-build/internal/fs"
)

// Package is a registry entry. Entries are never modified after the registry
// is built.
type Package struct {
	Name               string
	LibPath            string
	TestPath           string
	Requirements       []string
	VendorRequirements []string
	HasTemplates       bool
	SkipTests          bool
}

// Registry maps package names to their entries. Source is the tree all
// package paths are relative to.
type Registry struct {
	Source   fs.FS
	packages map[string]*Package
}

// Vendored maps vendor tree names to pre-built trees.
type Vendored map[string]fs.FS

func New(source fs.FS, pkgs ...*Package) *Registry {
	r := &Registry{Source: source, packages: make(map[string]*Package, len(pkgs))}
	for _, p := range pkgs {
		r.packages[p.Name] = p
	}
	return r
}

// Lookup returns the entry for name.
func (r *Registry) Lookup(name string) (*Package, bool) {
	p, ok := r.packages[name]
	return p, ok
}

// Names returns the package names in lexical order.
func (r *Registry) Names() []string {
	return slices.Sorted(maps.Keys(r.packages))
}

func (r *Registry) Len() int {
	return len(r.packages)
}

// FromConfig builds the registry and the vendor trees described by root.
// Relative source directories are resolved against baseDir.
func FromConfig(root *config.Root, baseDir string) (*Registry, Vendored, error) {
	dir := root.SourceDir
	if dir == "" {
		dir = "."
	}
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(baseDir, dir)
	}
	if fi, err := os.Stat(dir); err != nil {
		return nil, nil, fmt.Errorf("source directory: %w", err)
	} else if !fi.IsDir() {
		return nil, nil, fmt.Errorf("source directory %s is not a directory", dir)
	}
	source := os.DirFS(dir)

	pkgs := make([]*Package, 0, len(root.Packages))
	for _, p := range root.SortedPackages() {
		pkgs = append(pkgs, &Package{
			Name:               p.Name,
			LibPath:            buildfs.Clean(p.Lib()),
			TestPath:           buildfs.Clean(p.Tests()),
			Requirements:       slices.Clone(p.Requirements),
			VendorRequirements: slices.Clone(p.VendorRequirements),
			HasTemplates:       p.HasTemplates,
			SkipTests:          p.SkipTests,
		})
	}

	vendored := make(Vendored, len(root.Vendored))
	for _, v := range root.SortedVendored() {
		sub, err := fs.Sub(source, buildfs.Clean(v.Dir()))
		if err != nil {
			return nil, nil, fmt.Errorf("vendored package %q: %w", v.Name, err)
		}
		f, err := buildfs.NewFilterFS(sub, v.IncludedFiles, v.ExcludedFiles)
		if err != nil {
			return nil, nil, fmt.Errorf("vendored package %q: %w", v.Name, err)
		}
		vendored[v.Name] = f
	}

	return New(source, pkgs...), vendored, nil
}
