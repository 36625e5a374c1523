package builder

import (
	"context"
	"io/fs"
	"slices"

	"github.com/seanpdoyle/emberjs-build/internal/registry"
)

// Resolution is the transitive closure of a package's requirements.
// Packages and LibraryTrees are parallel, as are Vendors and VendorTrees.
type Resolution struct {
	LibraryTrees []fs.FS
	VendorTrees  []fs.FS
	Packages     []string
	Vendors      []string
}

// Resolve walks the requirements of name depth-first in declaration order and
// builds every package it visits. A package is listed after its own
// requirements, and name itself is not listed. Packages reachable along more
// than one path are listed once per path.
func (b *Builder) Resolve(ctx context.Context, name string) (*Resolution, error) {
	pkg, ok := b.registry.Lookup(name)
	if !ok {
		return nil, &MissingPackageError{Name: name}
	}

	w := walker{b: b, res: &Resolution{}, stack: []string{name}}
	for _, req := range pkg.Requirements {
		if err := w.visit(ctx, req, name); err != nil {
			return nil, err
		}
	}
	return w.res, nil
}

type walker struct {
	b     *Builder
	res   *Resolution
	stack []string // packages being resolved, outermost first
}

func (w *walker) visit(ctx context.Context, name, requiredBy string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if i := slices.Index(w.stack, name); i >= 0 {
		return &CycleError{Cycle: append(slices.Clone(w.stack[i:]), name)}
	}
	pkg, ok := w.b.registry.Lookup(name)
	if !ok {
		return &MissingPackageError{Name: name, RequiredBy: requiredBy}
	}

	w.stack = append(w.stack, name)
	for _, req := range pkg.Requirements {
		if err := w.visit(ctx, req, name); err != nil {
			return err
		}
	}
	w.stack = w.stack[:len(w.stack)-1]

	trees, err := w.b.Package(ctx, name)
	if err != nil {
		return err
	}
	w.res.LibraryTrees = append(w.res.LibraryTrees, trees.Lib)
	w.res.Packages = append(w.res.Packages, name)
	w.res.VendorTrees = append(w.res.VendorTrees, trees.Vendor...)
	w.res.Vendors = append(w.res.Vendors, pkg.VendorRequirements...)
	return nil
}

func (b *Builder) vendorTrees(pkg *registry.Package) ([]fs.FS, error) {
	trees := make([]fs.FS, 0, len(pkg.VendorRequirements))
	for _, name := range pkg.VendorRequirements {
		t, ok := b.vendored[name]
		if !ok {
			return nil, &MissingVendorError{Name: name, RequiredBy: pkg.Name}
		}
		trees = append(trees, t)
	}
	return trees, nil
}
