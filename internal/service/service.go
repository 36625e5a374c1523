// Package service runs one build: it loads the configuration, builds the
// packages, assembles the bundles and publishes the artifacts.
package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/seanpdoyle/emberjs-build/internal/builder"
	"github.com/seanpdoyle/emberjs-build/internal/config"
	buildfs "github.com/seanpdoyle/emberjs-build/internal/fs"
	"github.com/seanpdoyle/emberjs-build/internal/jsonpatch"
	"github.com/seanpdoyle/emberjs-build/internal/logging"
	"github.com/seanpdoyle/emberjs-build/internal/metrics"
	"github.com/seanpdoyle/emberjs-build/internal/progress"
	"github.com/seanpdoyle/emberjs-build/internal/registry"
	"github.com/seanpdoyle/emberjs-build/internal/s3"
	"github.com/seanpdoyle/emberjs-build/internal/transform"
)

const (
	uploadConcurrency = 4
	defaultOutputDir  = "dist"
)

type Service struct {
	configFiles       []string
	patchFiles        []string
	mergeConflictFail bool
	outDir            string
	storage           s3.ObjectStorage
	metricsFile       string
	log               *logging.Logger
	progressOut       io.Writer
	noProgress        bool
}

// Result is what a build produced.
type Result struct {
	Bundles  []Output
	Packages []Output
	// Built lists the packages built during the run, sorted by name.
	Built []string
}

// Output is one published file.
type Output struct {
	Name     string
	Path     string
	Size     int
	Revision string
}

func New() *Service {
	return &Service{log: logging.NewNoOpLogger()}
}

func (s *Service) WithConfigFiles(files []string) *Service {
	s.configFiles = files
	return s
}

// WithPatchFiles sets JSON patch documents applied to the merged
// configuration, in order.
func (s *Service) WithPatchFiles(files []string) *Service {
	s.patchFiles = files
	return s
}

func (s *Service) WithMergeConflictFail(yes bool) *Service {
	s.mergeConflictFail = yes
	return s
}

// WithOutputDir publishes to dir, ignoring the configured output.
func (s *Service) WithOutputDir(dir string) *Service {
	s.outDir = dir
	return s
}

// WithStorage publishes to storage, ignoring the configured output and the
// output directory.
func (s *Service) WithStorage(storage s3.ObjectStorage) *Service {
	s.storage = storage
	return s
}

// WithMetricsFile writes the collected metrics to file after the build.
func (s *Service) WithMetricsFile(file string) *Service {
	s.metricsFile = file
	return s
}

func (s *Service) WithLogger(log *logging.Logger) *Service {
	s.log = log
	return s
}

func (s *Service) WithProgress(w io.Writer, enabled bool) *Service {
	s.progressOut = w
	s.noProgress = !enabled
	return s
}

// LoadConfig merges the configuration files, applies the patches and
// parses the result.
func (s *Service) LoadConfig() (*config.Root, error) {
	if len(s.configFiles) == 0 {
		return nil, errors.New("no configuration files given")
	}

	bs, err := config.Merge(s.configFiles, s.mergeConflictFail)
	if err != nil {
		return nil, err
	}

	patches := make([]jsonpatch.Patch, 0, len(s.patchFiles))
	for _, name := range s.patchFiles {
		p, err := jsonpatch.ReadFile(name)
		if err != nil {
			return nil, err
		}
		patches = append(patches, p)
	}
	if bs, err = jsonpatch.ApplyYAML(bs, patches...); err != nil {
		return nil, err
	}

	return config.Parse(bs)
}

// Run performs one build. The first error aborts it.
func (s *Service) Run(ctx context.Context) (*Result, error) {
	root, err := s.LoadConfig()
	if err != nil {
		return nil, err
	}

	reg, vendored, err := registry.FromConfig(root, s.baseDir())
	if err != nil {
		return nil, err
	}

	storage, err := s.output(ctx, root)
	if err != nil {
		return nil, err
	}

	prims := transform.New().WithStrictLint(root.Lint.IsStrict())
	// Bundles and per-package outputs share one session, so each package
	// is built once per run.
	b := builder.New(reg, prims).
		WithSession(builder.NewSession()).
		WithVendored(vendored).
		WithLint(builder.LintOptions{Syntax: root.Lint.SyntaxEnabled(), Style: root.Lint.StyleEnabled()}).
		WithLogger(s.log)

	bundles := Bundles(root)
	if len(bundles) == 0 {
		s.log.Warnf("no bundles configured")
	}

	bar := progress.New(s.progressOut, "assembling bundles", !s.noProgress)
	bar.AddMax(len(bundles))

	var uploads []upload
	result := &Result{}
	for _, bundle := range bundles {
		bar.Describe(bundle.Name)
		u, err := s.assemble(ctx, b, bundle)
		if err != nil {
			bar.Finish()
			return nil, err
		}
		uploads = append(uploads, u)
		result.Bundles = append(result.Bundles, u.Output)
		bar.Add(1)
	}
	bar.Finish()

	if root.Output != nil && root.Output.Packages {
		us, err := s.packages(ctx, b, root)
		if err != nil {
			return nil, err
		}
		for _, u := range us {
			uploads = append(uploads, u)
			result.Packages = append(result.Packages, u.Output)
		}
	}

	result.Built = b.Session().Built()
	s.log.Debugf("Built %d packages: %s.", len(result.Built), strings.Join(result.Built, ", "))

	if err := s.publish(ctx, storage, uploads); err != nil {
		return nil, err
	}

	if s.metricsFile != "" {
		if err := metrics.WriteTextfile(s.metricsFile); err != nil {
			return nil, fmt.Errorf("failed to write metrics: %w", err)
		}
	}

	return result, nil
}

type upload struct {
	Output
	data []byte
}

func (s *Service) assemble(ctx context.Context, b *builder.Builder, bundle *config.Bundle) (upload, error) {
	start := time.Now()

	revision, err := bundle.ResolveRevision(ctx)
	if err != nil {
		return upload{}, err
	}

	a, err := b.Assemble(ctx, builder.SpecFromConfig(bundle, revision))
	if err != nil {
		s.log.Warnf("failed to assemble bundle %q: %v", bundle.Name, err)
		return upload{}, err
	}
	bs, err := a.Bytes()
	if err != nil {
		return upload{}, err
	}

	s.log.Infof("Bundle %q assembled to /%s (%d bytes) in %v.", bundle.Name, a.Path, len(bs), time.Since(start).Round(time.Millisecond))
	return upload{Output: Output{Name: bundle.Name, Path: a.Path, Size: len(bs), Revision: revision}, data: bs}, nil
}

// packages collects the compiled trees of every package in dependency order.
func (s *Service) packages(ctx context.Context, b *builder.Builder, root *config.Root) ([]upload, error) {
	sorted, err := root.TopologicalSortedPackages()
	if err != nil {
		return nil, err
	}

	var uploads []upload
	for _, p := range sorted {
		trees, err := b.Package(ctx, p.Name)
		if err != nil {
			return nil, err
		}
		files, err := buildfs.Files(trees.Compiled)
		if err != nil {
			return nil, err
		}
		for _, f := range files {
			uploads = append(uploads, upload{Output: Output{Name: p.Name, Path: f.Path, Size: len(f.Data)}, data: f.Data})
		}
	}
	return uploads, nil
}

func (s *Service) publish(ctx context.Context, storage s3.ObjectStorage, uploads []upload) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(uploadConcurrency)
	for _, u := range uploads {
		g.Go(func() error {
			if err := storage.Upload(ctx, u.Path, bytes.NewReader(u.data), u.Revision); err != nil {
				s.log.Warnf("failed to upload %s: %v", u.Path, err)
				return err
			}
			s.log.Debugf("Uploaded %s.", u.Path)
			return nil
		})
	}
	return g.Wait()
}

func (s *Service) output(ctx context.Context, root *config.Root) (s3.ObjectStorage, error) {
	switch {
	case s.storage != nil:
		return s.storage, nil
	case s.outDir != "":
		return s3.NewFileSystemStorage(s.outDir), nil
	case root.Output == nil || (root.Output.AmazonS3 == nil && root.Output.FileSystemStorage == nil):
		return s3.NewFileSystemStorage(filepath.Join(s.baseDir(), defaultOutputDir)), nil
	}
	return s3.New(ctx, root.Output)
}

// baseDir is the directory relative source directories are resolved against:
// the directory of the first configuration file.
func (s *Service) baseDir() string {
	return filepath.Dir(s.configFiles[0])
}

// Bundles returns the configured bundles in name order. Without a bundles
// section, the runtime and template compiler bundles are built for the
// ember-runtime and ember-template-compiler packages, if present.
func Bundles(root *config.Root) []*config.Bundle {
	if len(root.Bundles) > 0 {
		var bundles []*config.Bundle
		for _, b := range root.SortedBundles() {
			bundles = append(bundles, b)
		}
		return bundles
	}

	var bundles []*config.Bundle
	for _, d := range []struct {
		name string
		kind config.BundleKind
	}{
		{"ember-runtime", config.BundleKindRuntime},
		{"ember-template-compiler", config.BundleKindTemplateCompiler},
	} {
		if _, ok := root.Packages[d.name]; !ok {
			continue
		}
		if d.kind == config.BundleKindTemplateCompiler {
			if _, ok := root.Packages["ember-metal"]; !ok {
				continue
			}
		}
		bundles = append(bundles, &config.Bundle{Name: d.name, Kind: d.kind, Root: d.name, Destination: "/" + d.name + ".js"})
	}
	return bundles
}
