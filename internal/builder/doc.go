// Package builder composes package trees into bundles.
//
// A [Builder] works on a static [registry.Registry]. Building a package
// resolves its requirements depth-first, selects and transforms its library
// and test sources and concatenates them into compiled trees. Every package
// is built at most once per [Session]; later requests return the same
// [Trees]. Assembling a bundle is never memoized: each call concatenates a
// fresh artifact from the (memoized) package trees.
//
// All file operations go through a [transform.Primitives] value, so the
// builder itself never reads or parses source files.
package builder
