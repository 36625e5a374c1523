package config

import (
	"cmp"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"maps"
	"os"
	"path"
	"slices"
	"sort"

	"github.com/gobwas/glob"
	"github.com/goccy/go-yaml"
)

// Internal configuration data structures for ember-build.

// Root is the top-level configuration structure.
type Root struct {
	SourceDir string               `json:"source_dir,omitempty"` // Package and vendor paths are relative to this directory.
	Packages  map[string]*Package  `json:"packages,omitempty"`
	Vendored  map[string]*Vendored `json:"vendored,omitempty"`
	Bundles   map[string]*Bundle   `json:"bundles,omitempty"`
	Lint      *Lint                `json:"lint,omitempty"`
	Output    *Output              `json:"output,omitempty"`

	_ struct{} `additionalProperties:"false"`
}

// UnmarshalYAML implements the yaml.Unmarshaler interface for the Root struct. This
// lets us define packages, vendor trees and bundles with mappings where keys
// are the names.
func (r *Root) UnmarshalYAML(bs []byte) error {
	type rawRoot Root // avoid recursive calls to UnmarshalYAML by type aliasing
	var raw rawRoot

	if err := yaml.Unmarshal(bs, &raw); err != nil {
		return fmt.Errorf("failed to decode Root: %w", err)
	}

	*r = Root(raw) // Assign the unmarshaled data back to the original struct
	return r.unmarshal(r)
}

func (r *Root) UnmarshalJSON(bs []byte) error {
	type rawRoot Root // avoid recursive calls to UnmarshalJSON by type aliasing
	var raw rawRoot

	if err := json.Unmarshal(bs, &raw); err != nil {
		return fmt.Errorf("failed to decode Root: %w", err)
	}

	*r = Root(raw)
	return r.unmarshal(r)
}

func (r *Root) Unmarshal() error {
	return r.unmarshal(r)
}

func (*Root) unmarshal(raw *Root) error {
	for name := range raw.Packages {
		raw.Packages[name] = cmp.Or(raw.Packages[name], &Package{})
		raw.Packages[name].Name = name
	}

	for name := range raw.Vendored {
		raw.Vendored[name] = cmp.Or(raw.Vendored[name], &Vendored{})
		raw.Vendored[name].Name = name
	}

	for name := range raw.Bundles {
		raw.Bundles[name] = cmp.Or(raw.Bundles[name], &Bundle{})
		raw.Bundles[name].Name = name
	}

	return nil
}

func (r *Root) SortedPackages() iter.Seq2[int, *Package] {
	return iterator(r.Packages, func(p *Package) string { return p.Name })
}

func (r *Root) SortedVendored() iter.Seq2[int, *Vendored] {
	return iterator(r.Vendored, func(v *Vendored) string { return v.Name })
}

func (r *Root) SortedBundles() iter.Seq2[int, *Bundle] {
	return iterator(r.Bundles, func(b *Bundle) string { return b.Name })
}

// Returns packages ordered by requirements: every package comes after the
// packages it requires. Cycles are treated as errors. Missing requirements
// are ignored here and reported by Validate.
func (r *Root) TopologicalSortedPackages() ([]*Package, error) {
	sorter := topologicalSortPackages{
		packages:   r.Packages,
		inprogress: make(map[string]struct{}),
		done:       make(map[string]struct{}),
	}

	for _, name := range slices.Sorted(maps.Keys(r.Packages)) {
		if err := sorter.Visit(r.Packages[name]); err != nil {
			return nil, err
		}
	}
	return sorter.sorted, nil
}

type topologicalSortPackages struct {
	packages   map[string]*Package
	inprogress map[string]struct{}
	done       map[string]struct{}
	sorted     []*Package
}

func (s *topologicalSortPackages) Visit(pkg *Package) error {
	if _, ok := s.inprogress[pkg.Name]; ok {
		return fmt.Errorf("cycle found on package %q", pkg.Name)
	}
	if _, ok := s.done[pkg.Name]; ok {
		return nil
	}
	s.inprogress[pkg.Name] = struct{}{}
	for _, req := range pkg.Requirements {
		if other, ok := s.packages[req]; ok {
			if err := s.Visit(other); err != nil {
				return err
			}
		}
	}
	s.done[pkg.Name] = struct{}{}
	delete(s.inprogress, pkg.Name)
	s.sorted = append(s.sorted, pkg)
	return nil
}

func iterator[V any](m map[string]V, name func(V) string) func(func(int, V) bool) {
	names := make([]string, 0, len(m))
	for _, v := range m {
		names = append(names, name(v))
	}

	sort.Strings(names)

	return func(yield func(int, V) bool) {
		for i, name := range names {
			if !yield(i, m[name]) {
				return
			}
		}
	}
}

// Validate checks data against the configuration schema.
func Validate(data []byte) error {
	var config any
	if err := yaml.Unmarshal(data, &config); err != nil {
		return err
	}

	return rootSchema.Validate(config)
}

// Validate checks the references between packages, vendor trees and bundles,
// and that the package graph is acyclic.
func (r *Root) Validate() error {
	var errs []error

	for _, pkg := range r.SortedPackages() {
		for _, req := range pkg.Requirements {
			if _, ok := r.Packages[req]; !ok {
				errs = append(errs, fmt.Errorf("package %q requires unknown package %q", pkg.Name, req))
			}
		}
		for _, req := range pkg.VendorRequirements {
			if _, ok := r.Vendored[req]; !ok {
				errs = append(errs, fmt.Errorf("package %q requires unknown vendored package %q", pkg.Name, req))
			}
		}
	}

	for _, v := range r.SortedVendored() {
		if err := v.validate(); err != nil {
			errs = append(errs, err)
		}
	}

	for _, b := range r.SortedBundles() {
		if err := b.validate(); err != nil {
			errs = append(errs, err)
			continue
		}
		if _, ok := r.Packages[b.Root]; !ok {
			errs = append(errs, fmt.Errorf("bundle %q has unknown root package %q", b.Name, b.Root))
		}
		for _, s := range b.Subsets {
			if _, ok := r.Packages[s.Package]; !ok {
				errs = append(errs, fmt.Errorf("bundle %q has a subset of unknown package %q", b.Name, s.Package))
			}
		}
	}

	if err := r.Output.validate(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) == 0 {
		if _, err := r.TopologicalSortedPackages(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// Package defines one source package of the build graph.
type Package struct {
	Name               string    `json:"name"`
	LibPath            string    `json:"lib_path,omitempty"`  // Defaults to packages/<name>/lib.
	TestPath           string    `json:"test_path,omitempty"` // Defaults to packages/<name>/tests.
	Requirements       StringSet `json:"requirements,omitempty"`
	VendorRequirements StringSet `json:"vendor_requirements,omitempty"`
	HasTemplates       bool      `json:"has_templates,omitempty"`
	SkipTests          bool      `json:"skip_tests,omitempty"`

	_ struct{} `additionalProperties:"false"`
}

func (p *Package) Lib() string {
	return cmp.Or(p.LibPath, path.Join("packages", p.Name, "lib"))
}

func (p *Package) Tests() string {
	return cmp.Or(p.TestPath, path.Join("packages", p.Name, "tests"))
}

// Vendored defines a pre-built vendor tree.
type Vendored struct {
	Name          string    `json:"name"`
	Path          string    `json:"path"` // Defaults to vendor/<name>.
	IncludedFiles StringSet `json:"included_files,omitempty"`
	ExcludedFiles StringSet `json:"excluded_files,omitempty"`

	_ struct{} `additionalProperties:"false"`
}

func (v *Vendored) Dir() string {
	return cmp.Or(v.Path, path.Join("vendor", v.Name))
}

func (v *Vendored) validate() error {
	for _, pattern := range slices.Concat(v.IncludedFiles, v.ExcludedFiles) {
		if _, err := glob.Compile(pattern, '/'); err != nil {
			return fmt.Errorf("vendored package %q: failed to compile file pattern %q: %w", v.Name, pattern, err)
		}
	}
	return nil
}

type BundleKind string

const (
	BundleKindRuntime          BundleKind = "runtime"
	BundleKindTemplateCompiler BundleKind = "template-compiler"
)

// Bundle defines one concatenated output artifact.
type Bundle struct {
	Name        string     `json:"name"`
	Kind        BundleKind `json:"kind"`
	Root        string     `json:"root"`
	Destination string     `json:"destination"`
	Revision    string     `json:"revision,omitempty"` // Rego expression or string with environment variables.
	Subsets     []Subset   `json:"subsets,omitempty"`  // Defaults depend on the kind.
	Trailer     *string    `json:"trailer,omitempty"`  // Defaults depend on the kind.

	_ struct{} `additionalProperties:"false"`
}

// Subset picks individual library files of a package into a bundle.
type Subset struct {
	Package string    `json:"package"`
	Files   StringSet `json:"files"`

	_ struct{} `additionalProperties:"false"`
}

func (b *Bundle) validate() error {
	switch b.Kind {
	case BundleKindRuntime, BundleKindTemplateCompiler:
	default:
		return fmt.Errorf("bundle %q has unknown kind %q", b.Name, b.Kind)
	}
	if b.Root == "" {
		return fmt.Errorf("bundle %q: root package is required", b.Name)
	}
	if b.Destination == "" {
		return fmt.Errorf("bundle %q: destination is required", b.Name)
	}
	for _, s := range b.Subsets {
		if len(s.Files) == 0 {
			return fmt.Errorf("bundle %q: subset of package %q lists no files", b.Name, s.Package)
		}
	}
	return nil
}

// Lint toggles the lint passes. Both passes are enabled unless disabled.
type Lint struct {
	Syntax *bool `json:"syntax,omitempty"`
	Style  *bool `json:"style,omitempty"`
	Strict bool  `json:"strict,omitempty"` // Fail the build instead of emitting failing lint tests.

	_ struct{} `additionalProperties:"false"`
}

func (l *Lint) SyntaxEnabled() bool {
	return l == nil || l.Syntax == nil || *l.Syntax
}

func (l *Lint) StyleEnabled() bool {
	return l == nil || l.Style == nil || *l.Style
}

func (l *Lint) IsStrict() bool {
	return l != nil && l.Strict
}

type StringSet []string

func ParseFile(filename string) (root *Root, err error) {
	bs, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", filename, err)
	}

	return Parse(bs)
}

func Parse(bs []byte) (*Root, error) {
	if err := Validate(bs); err != nil {
		return nil, err
	}

	var root Root
	if err := yaml.Unmarshal(bs, &root); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := root.Validate(); err != nil {
		return nil, err
	}

	return &root, nil
}

// Output defines where build results are published.
type Output struct {
	Packages          bool               `json:"packages,omitempty"` // Also publish per-package compiled trees.
	FileSystemStorage *FileSystemStorage `json:"filesystem,omitempty"`
	AmazonS3          *AmazonS3          `json:"aws,omitempty"`

	_ struct{} `additionalProperties:"false"`
}

func (o *Output) validate() error {
	if o == nil {
		return nil
	}
	if o.FileSystemStorage != nil && o.AmazonS3 != nil {
		return errors.New("output: only one of filesystem and aws may be set")
	}
	if err := o.AmazonS3.validate(); err != nil {
		return err
	}
	return o.FileSystemStorage.validate()
}

// AmazonS3 defines the configuration for an Amazon S3-compatible object storage.
// Credentials come from the default chain: environment variables, shared
// credentials file, ECS or EC2 instance role.
type AmazonS3 struct {
	Bucket string `json:"bucket"`
	Prefix string `json:"prefix,omitempty"` // Key prefix for every artifact.
	Region string `json:"region,omitempty"`
	URL    string `json:"url,omitempty"` // for test purposes

	_ struct{} `additionalProperties:"false"`
}

// FileSystemStorage defines the configuration for a local filesystem storage.
type FileSystemStorage struct {
	Path string `json:"path"` // Directory the artifacts are written to.

	_ struct{} `additionalProperties:"false"`
}

func (a *AmazonS3) validate() error {
	if a == nil {
		return nil
	}

	if a.Bucket == "" {
		return errors.New("amazon s3 bucket is required")
	}

	if a.Region == "" {
		return errors.New("amazon s3 region is required")
	}

	return nil
}

func (f *FileSystemStorage) validate() error {
	if f == nil {
		return nil
	}

	if f.Path == "" {
		return errors.New("filesystem storage path is required")
	}

	return nil
}
