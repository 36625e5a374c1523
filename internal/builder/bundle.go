package builder

import (
	"context"
	"fmt"
	"io/fs"
	"slices"
	"time"

	"github.com/seanpdoyle/emberjs-build/internal/config"
	buildfs "github.com/seanpdoyle/emberjs-build/internal/fs"
	"github.com/seanpdoyle/emberjs-build/internal/metrics"
	"github.com/seanpdoyle/emberjs-build/internal/transform"
)

const (
	runtimeTrailer          = ";module.exports = Ember;\n"
	templateCompilerTrailer = ";\nif (typeof exports === \"object\") {\n  module.exports = Ember.__loader.require(%q);\n }"
)

// BundleSpec describes one artifact.
type BundleSpec struct {
	Name        string
	Root        string // bootstrap package
	Destination string

	// Requirements includes the transitive requirements of Root.
	Requirements bool

	// Subsets pick individual library files of other packages.
	Subsets []Subset

	Banner  string
	Trailer string
}

type Subset struct {
	Package string
	Files   []string
}

// Artifact is an assembled bundle. Tree holds exactly one file, at Path.
type Artifact struct {
	Name string
	Path string
	Tree fs.FS
}

func (a *Artifact) Bytes() ([]byte, error) {
	return fs.ReadFile(a.Tree, a.Path)
}

// RuntimeSpec returns the runtime bundle of root: root and all its
// requirements, exposing Ember to CommonJS consumers.
func RuntimeSpec(root string) BundleSpec {
	return BundleSpec{
		Name:         root,
		Root:         root,
		Destination:  "/" + root + ".js",
		Requirements: true,
		Trailer:      runtimeTrailer,
	}
}

// TemplateCompilerSpec returns the template compiler bundle of root: root
// itself plus the core of ember-metal, exporting the compiler module.
func TemplateCompilerSpec(root string) BundleSpec {
	return BundleSpec{
		Name:        root,
		Root:        root,
		Destination: "/" + root + ".js",
		Subsets:     []Subset{{Package: "ember-metal", Files: []string{"ember-metal/core.js"}}},
		Trailer:     fmt.Sprintf(templateCompilerTrailer, root),
	}
}

// SpecFromConfig turns a configured bundle into a BundleSpec. A non-empty
// revision is stamped into the banner.
func SpecFromConfig(b *config.Bundle, revision string) BundleSpec {
	var spec BundleSpec
	switch b.Kind {
	case config.BundleKindTemplateCompiler:
		spec = TemplateCompilerSpec(b.Root)
	default:
		spec = RuntimeSpec(b.Root)
	}

	spec.Name = b.Name
	spec.Destination = b.Destination
	if b.Subsets != nil {
		spec.Subsets = make([]Subset, len(b.Subsets))
		for i, s := range b.Subsets {
			spec.Subsets[i] = Subset{Package: s.Package, Files: slices.Clone(s.Files)}
		}
	}
	if b.Trailer != nil {
		spec.Trailer = *b.Trailer
	}
	if revision != "" {
		spec.Banner = fmt.Sprintf("/*! %s %s */", b.Name, revision)
	}
	return spec
}

// Assemble builds the packages spec needs and concatenates them into a new
// artifact. Artifacts are never cached, but the package builds are.
func (b *Builder) Assemble(ctx context.Context, spec BundleSpec) (*Artifact, error) {
	start := time.Now()
	metrics.BundleCount.Inc()

	a, err := b.assemble(ctx, spec)
	if err != nil {
		metrics.BundleFailed.WithLabelValues(spec.Name, ErrorType(err)).Inc()
		return nil, fmt.Errorf("bundle %s: %w", spec.Name, err)
	}

	bs, err := a.Bytes()
	if err != nil {
		return nil, fmt.Errorf("bundle %s: %w", spec.Name, err)
	}
	metrics.BundleDuration.WithLabelValues(spec.Name).Observe(time.Since(start).Seconds())
	metrics.BundleSize.WithLabelValues(spec.Name).Set(float64(len(bs)))
	b.log.Debugf("bundle %s: assembled %s (%d bytes) in %v", spec.Name, a.Path, len(bs), time.Since(start))
	return a, nil
}

func (b *Builder) assemble(ctx context.Context, spec BundleSpec) (*Artifact, error) {
	dest := buildfs.Clean(spec.Destination)
	if dest == "." {
		return nil, fmt.Errorf("destination is required")
	}

	root, err := b.Package(ctx, spec.Root)
	if err != nil {
		return nil, err
	}

	var trees, vendor []fs.FS
	if spec.Requirements {
		res, err := b.Resolve(ctx, spec.Root)
		if err != nil {
			return nil, err
		}
		trees = append(trees, res.LibraryTrees...)
		vendor = append(vendor, res.VendorTrees...)
	}
	vendor = append(vendor, root.Vendor...)

	for _, s := range spec.Subsets {
		pkg, err := b.Package(ctx, s.Package)
		if err != nil {
			return nil, err
		}
		sub, err := b.prims.SelectFiles(pkg.Lib, transform.SelectOptions{Files: s.Files})
		if err != nil {
			return nil, fmt.Errorf("subset of package %s: %w", s.Package, err)
		}
		trees = append(trees, sub)
	}
	trees = append(trees, root.Lib)

	modules, err := b.prims.ConcatenateModules(trees, transform.ModuleOptions{
		IncludeLoader: true,
		Bootstrap:     spec.Root,
		VendorTrees:   vendor,
		EmbedVendor:   true,
		Destination:   dest,
	})
	if err != nil {
		return nil, err
	}

	out, err := b.decorate(modules, dest, spec.Banner, spec.Trailer)
	if err != nil {
		return nil, err
	}
	return &Artifact{Name: spec.Name, Path: dest, Tree: out}, nil
}

// decorate wraps the artifact at dest in banner and trailer.
func (b *Builder) decorate(tree fs.FS, dest, banner, trailer string) (fs.FS, error) {
	if banner == "" && trailer == "" {
		return tree, nil
	}

	trees := []fs.FS{tree}
	var inputs []string
	if banner != "" {
		name := dest + ".banner"
		trees = append(trees, b.prims.WriteStaticFile(name, banner))
		inputs = append(inputs, name)
	}
	inputs = append(inputs, dest)
	if trailer != "" {
		name := dest + ".trailer"
		trees = append(trees, b.prims.WriteStaticFile(name, trailer))
		inputs = append(inputs, name)
	}

	merged, err := b.prims.MergeTrees(trees, transform.MergeOptions{OnCollision: transform.CollisionFail})
	if err != nil {
		return nil, err
	}
	return b.prims.Concat(merged, transform.ConcatOptions{InputFiles: inputs, OutputFile: dest})
}
