// Package transform provides the file-tree operations the builder composes:
// selecting, renaming and merging trees, linting, inline-template
// precompilation and module concatenation.
//
// Trees are plain [fs.FS] values. Operations never modify their inputs; they
// return new trees, so a tree can be shared by any number of later steps.
// The builder only depends on the [Primitives] interface, which lets tests
// substitute fakes for the [Default] implementation.
package transform

import (
	"context"
	"io/fs"
)

// Primitives is the capability table the builder is written against.
type Primitives interface {
	// SelectFiles picks the files of tree below SourceDir that match Files
	// and places them below DestDir.
	SelectFiles(tree fs.FS, opts SelectOptions) (fs.FS, error)

	// RenameFile moves a single file.
	RenameFile(tree fs.FS, opts RenameOptions) (fs.FS, error)

	// MergeTrees overlays trees in order.
	MergeTrees(trees []fs.FS, opts MergeOptions) (fs.FS, error)

	// Lint produces companion lint result files for the .js files of tree.
	// The source files themselves are not part of the result.
	Lint(ctx context.Context, tree fs.FS, pass LintPass) (fs.FS, error)

	// PrecompileInlineTemplates replaces templates with compiled template
	// functions.
	PrecompileInlineTemplates(ctx context.Context, tree fs.FS) (fs.FS, error)

	// ConcatenateModules registers the modules of trees in one artifact.
	ConcatenateModules(trees []fs.FS, opts ModuleOptions) (fs.FS, error)

	// Concat joins files of tree verbatim.
	Concat(tree fs.FS, opts ConcatOptions) (fs.FS, error)

	// WriteStaticFile returns a tree holding one file.
	WriteStaticFile(name, content string) fs.FS
}

type SelectOptions struct {
	SourceDir string
	DestDir   string
	Files     []string // glob patterns, relative to SourceDir
}

type RenameOptions struct {
	From string
	To   string
}

// Collision decides what MergeTrees does when two trees hold the same path.
type Collision int

const (
	CollisionFail Collision = iota
	CollisionOverwrite
)

func (c Collision) String() string {
	if c == CollisionOverwrite {
		return "overwrite"
	}
	return "error"
}

type MergeOptions struct {
	OnCollision Collision
}

// LintPass names one of the two independent lint passes.
type LintPass string

const (
	LintSyntax LintPass = "syntax"
	LintStyle  LintPass = "style"
)

type ModuleOptions struct {
	// IncludeLoader puts the module loader at the head of the artifact.
	IncludeLoader bool

	// Bootstrap is the module required once every module is registered.
	// Empty means nothing runs at load time.
	Bootstrap string

	// VendorTrees hold pre-built modules. They are embedded after the loader
	// when EmbedVendor is set; otherwise the loader is expected to find them
	// elsewhere and they are only listed in the artifact header.
	VendorTrees []fs.FS
	EmbedVendor bool

	// InputFiles restricts which files of trees become modules. Empty means
	// every .js file.
	InputFiles []string

	Destination string
}

type ConcatOptions struct {
	InputFiles []string // exact paths, joined in this order
	OutputFile string
}
