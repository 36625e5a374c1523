package builder

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"time"

	"github.com/seanpdoyle/emberjs-build/internal/metrics"
	"github.com/seanpdoyle/emberjs-build/internal/registry"
	"github.com/seanpdoyle/emberjs-build/internal/transform"
)

// Package builds the named package, or returns the trees built earlier in the
// same session.
func (b *Builder) Package(ctx context.Context, name string) (*Trees, error) {
	trees, pending := b.session.lookup(name)
	if pending {
		return nil, &CycleError{Cycle: []string{name, name}}
	}
	if trees != nil {
		metrics.PackageCacheHits.WithLabelValues(name).Inc()
		b.log.Debugf("package %s: already built", name)
		return trees, nil
	}

	pkg, ok := b.registry.Lookup(name)
	if !ok {
		return nil, &MissingPackageError{Name: name}
	}

	b.session.begin(name)
	trees, err := b.build(ctx, pkg)
	if err != nil {
		b.session.abort(name)
		var cycle *CycleError
		if errors.As(err, &cycle) {
			return nil, err
		}
		return nil, fmt.Errorf("package %s: %w", name, err)
	}
	b.session.finish(name, trees)
	return trees, nil
}

func (b *Builder) build(ctx context.Context, pkg *registry.Package) (*Trees, error) {
	res, err := b.Resolve(ctx, pkg.Name)
	if err != nil {
		return nil, err
	}
	vendor, err := b.vendorTrees(pkg)
	if err != nil {
		return nil, err
	}

	// Requirements are timed by their own builds.
	start := time.Now()
	b.log.Debugf("package %s: building with requirements %v", pkg.Name, res.Packages)

	lib, err := b.libTree(pkg)
	if err != nil {
		return nil, err
	}

	lintTrees, err := b.lintTrees(ctx, lib)
	if err != nil {
		return nil, err
	}

	if pkg.HasTemplates {
		if lib, err = b.prims.PrecompileInlineTemplates(ctx, lib); err != nil {
			return nil, err
		}
	}

	var tests fs.FS
	if !pkg.SkipTests {
		if tests, err = b.testTree(ctx, pkg, lintTrees); err != nil {
			return nil, err
		}
	}

	compiledLib, err := b.prims.ConcatenateModules(append(slices.Clone(res.LibraryTrees), lib), transform.ModuleOptions{
		IncludeLoader: true,
		VendorTrees:   append(slices.Clone(res.VendorTrees), vendor...),
		InputFiles:    []string{pkg.Name + "/**/*.js", pkg.Name + ".js"},
		Destination:   path.Join("packages", pkg.Name+".js"),
	})
	if err != nil {
		return nil, err
	}

	compiled := compiledLib
	if tests != nil {
		compiledTests, err := b.prims.ConcatenateModules([]fs.FS{tests}, transform.ModuleOptions{
			Destination: path.Join("packages", pkg.Name+"-tests.js"),
		})
		if err != nil {
			return nil, err
		}
		compiled, err = b.prims.MergeTrees([]fs.FS{compiledLib, compiledTests}, transform.MergeOptions{OnCollision: transform.CollisionFail})
		if err != nil {
			return nil, err
		}
	}

	metrics.PackageBuilds.WithLabelValues(pkg.Name).Inc()
	metrics.PackageBuildDuration.WithLabelValues(pkg.Name).Observe(time.Since(start).Seconds())
	b.log.Debugf("package %s: built in %v", pkg.Name, time.Since(start))

	return &Trees{Lib: lib, Compiled: compiled, Vendor: vendor, tests: tests}, nil
}

// libTree selects the library sources below <name>/ and moves the package
// entry point <name>/main.js to <name>.js.
func (b *Builder) libTree(pkg *registry.Package) (fs.FS, error) {
	files := []string{"**/*.js"}
	if pkg.HasTemplates {
		files = append(files, "**/*.hbs")
	}
	lib, err := b.prims.SelectFiles(b.registry.Source, transform.SelectOptions{
		SourceDir: pkg.LibPath,
		DestDir:   pkg.Name,
		Files:     files,
	})
	if err != nil {
		return nil, err
	}

	main := path.Join(pkg.Name, "main.js")
	lib, err = b.prims.RenameFile(lib, transform.RenameOptions{From: main, To: pkg.Name + ".js"})
	if errors.Is(err, fs.ErrNotExist) {
		return nil, &MissingEntryPointError{Package: pkg.Name, Path: path.Join(pkg.LibPath, "main.js")}
	}
	return lib, err
}

func (b *Builder) testTree(ctx context.Context, pkg *registry.Package, lintTrees []fs.FS) (fs.FS, error) {
	tests, err := b.prims.SelectFiles(b.registry.Source, transform.SelectOptions{
		SourceDir: pkg.TestPath,
		DestDir:   path.Join(pkg.Name, "tests"),
		Files:     []string{"**/*.js"},
	})
	if err != nil {
		return nil, err
	}

	testLint, err := b.lintTrees(ctx, tests)
	if err != nil {
		return nil, err
	}

	trees := append(slices.Clone(lintTrees), testLint...)
	trees = append(trees, tests)
	return b.prims.MergeTrees(trees, transform.MergeOptions{OnCollision: transform.CollisionOverwrite})
}

func (b *Builder) lintTrees(ctx context.Context, tree fs.FS) ([]fs.FS, error) {
	var out []fs.FS
	for _, pass := range b.lintPasses() {
		t, err := b.prims.Lint(ctx, tree, pass)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func (b *Builder) lintPasses() []transform.LintPass {
	var passes []transform.LintPass
	if b.lint.Syntax {
		passes = append(passes, transform.LintSyntax)
	}
	if b.lint.Style {
		passes = append(passes, transform.LintStyle)
	}
	return passes
}
