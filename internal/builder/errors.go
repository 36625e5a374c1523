package builder

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/seanpdoyle/emberjs-build/internal/transform"
)

// ErrTestsSkipped is returned by Trees.Tests for packages that skip tests.
var ErrTestsSkipped = errors.New("tests are skipped for this package")

// CycleError reports a requirement cycle. Cycle starts and ends with the
// same package.
type CycleError struct {
	Cycle []string
}

func (e *CycleError) Error() string {
	return "requirement cycle: " + strings.Join(e.Cycle, " -> ")
}

// MissingPackageError reports a requirement on a package the registry does
// not know.
type MissingPackageError struct {
	Name       string
	RequiredBy string
}

func (e *MissingPackageError) Error() string {
	if e.RequiredBy == "" {
		return fmt.Sprintf("unknown package %q", e.Name)
	}
	return fmt.Sprintf("package %q requires unknown package %q", e.RequiredBy, e.Name)
}

// MissingVendorError reports a vendor requirement that has no vendor tree.
type MissingVendorError struct {
	Name       string
	RequiredBy string
}

func (e *MissingVendorError) Error() string {
	return fmt.Sprintf("package %q requires unknown vendored package %q", e.RequiredBy, e.Name)
}

// MissingEntryPointError reports a package library without a main.js.
type MissingEntryPointError struct {
	Package string
	Path    string
}

func (e *MissingEntryPointError) Error() string {
	return fmt.Sprintf("package %q has no entry point %s", e.Package, e.Path)
}

// ErrorType names the kind of a build error, for metrics labels.
func ErrorType(err error) string {
	var (
		cycle     *CycleError
		pkg       *MissingPackageError
		vendor    *MissingVendorError
		entry     *MissingEntryPointError
		noFiles   *transform.NoFilesError
		collision *transform.CollisionError
		template  *transform.TemplateSyntaxError
		lint      *transform.LintError
	)
	switch {
	case errors.As(err, &cycle):
		return "cycle"
	case errors.As(err, &pkg):
		return "missing_package"
	case errors.As(err, &vendor):
		return "missing_vendor"
	case errors.As(err, &entry):
		return "missing_entry_point"
	case errors.As(err, &noFiles):
		return "no_files"
	case errors.As(err, &collision):
		return "collision"
	case errors.As(err, &template):
		return "template_syntax"
	case errors.As(err, &lint):
		return "lint"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	}
	return "other"
}
