package transform

import (
	"fmt"
	"strings"
)

// NoFilesError is returned when a selection matches nothing.
type NoFilesError struct {
	SourceDir string
	Files     []string
}

func (e *NoFilesError) Error() string {
	return fmt.Sprintf("no files matching %s found in %q", strings.Join(e.Files, ", "), e.SourceDir)
}

// CollisionError is returned when a path would be written twice.
type CollisionError struct {
	Path string
	Op   string
}

func (e *CollisionError) Error() string {
	return fmt.Sprintf("%s: %q already exists", e.Op, e.Path)
}

// TemplateSyntaxError reports a template that cannot be compiled.
type TemplateSyntaxError struct {
	File string
	Line int
	Msg  string
}

func (e *TemplateSyntaxError) Error() string {
	return fmt.Sprintf("%s:%d: template syntax error: %s", e.File, e.Line, e.Msg)
}

// Finding is a single lint message.
type Finding struct {
	File   string
	Line   int
	Column int
	Msg    string
}

func (f Finding) String() string {
	return fmt.Sprintf("%s: line %d, col %d, %s", f.File, f.Line, f.Column, f.Msg)
}

// LintError is returned by strict linting when a pass found problems.
type LintError struct {
	Pass     LintPass
	Findings []Finding
}

func (e *LintError) Error() string {
	lines := []string{fmt.Sprintf("%s lint failed with %d problem(s)", e.Pass, len(e.Findings))}
	for _, f := range e.Findings {
		lines = append(lines, "- "+f.String())
	}
	return strings.Join(lines, "\n")
}
