package transform

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"

	buildfs "github.com/seanpdoyle/emberjs-build/internal/fs"
)

// MaxLineLength is the longest line the style pass accepts.
const MaxLineLength = 120

func parseJS(ctx context.Context, src []byte) (*sitter.Tree, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(javascript.GetLanguage())
	return parser.ParseCtx(ctx, nil, src)
}

func syntaxFindings(ctx context.Context, f buildfs.File) ([]Finding, error) {
	tree, err := parseJS(ctx, f.Data)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	root := tree.RootNode()
	if !root.HasError() {
		return nil, nil
	}

	var out []Finding
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if n.IsMissing() || n.IsError() {
			p := n.StartPoint()
			msg := "missing " + n.Type()
			if n.IsError() {
				msg = "unexpected " + snippet(n.Content(f.Data))
			}
			out = append(out, Finding{File: f.Path, Line: int(p.Row) + 1, Column: int(p.Column) + 1, Msg: msg})
			return
		}
		if !n.HasError() {
			return
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i))
		}
	}
	walk(root)
	return out, nil
}

func snippet(s string) string {
	s, _, _ = strings.Cut(strings.TrimSpace(s), "\n")
	if utf8.RuneCountInString(s) > 20 {
		s = string([]rune(s)[:20]) + "..."
	}
	if s == "" {
		return "end of input"
	}
	return fmt.Sprintf("%q", s)
}

func styleFindings(_ context.Context, f buildfs.File) ([]Finding, error) {
	var out []Finding
	add := func(line, col int, msg string) {
		out = append(out, Finding{File: f.Path, Line: line, Column: col, Msg: msg})
	}

	sc := bufio.NewScanner(bytes.NewReader(f.Data))
	sc.Buffer(make([]byte, 0, 64*1024), len(f.Data)+1)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSuffix(sc.Text(), "\r")
		if n := utf8.RuneCountInString(text); n > MaxLineLength {
			add(line, MaxLineLength+1, fmt.Sprintf("line is %d characters long, maximum is %d", n, MaxLineLength))
		}
		if trimmed := strings.TrimRight(text, " \t"); len(trimmed) != len(text) {
			add(line, utf8.RuneCountInString(trimmed)+1, "trailing whitespace")
		}
		if strings.HasPrefix(text, "\t") {
			add(line, 1, "tab indentation")
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(f.Data) > 0 && f.Data[len(f.Data)-1] != '\n' {
		add(line, 1, "missing final newline")
	}
	return out, nil
}

var passTitles = map[LintPass]string{
	LintSyntax: "Syntax",
	LintStyle:  "Style",
}

// lintTest renders the findings of one file as a QUnit test that passes
// exactly when there are none.
func lintTest(pass LintPass, file string, findings []Finding) string {
	title := fmt.Sprintf("%s should pass %s lint", file, pass)
	msg := title + "."
	if len(findings) > 0 {
		lines := []string{msg}
		for _, f := range findings {
			lines = append(lines, f.String())
		}
		msg = strings.Join(lines, "\n")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "QUnit.module(%s);\n", jsString(passTitles[pass]+" - "+file))
	fmt.Fprintf(&b, "QUnit.test(%s, function(assert) {\n", jsString(title))
	fmt.Fprintf(&b, "  assert.ok(%t, %s);\n", len(findings) == 0, jsString(msg))
	b.WriteString("});\n")
	return b.String()
}

func jsString(s string) string {
	bs, _ := json.Marshal(s)
	return string(bs)
}
