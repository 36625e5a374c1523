package transform

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf16"

	sitter "github.com/smacker/go-tree-sitter"

	buildfs "github.com/seanpdoyle/emberjs-build/internal/fs"
)

// PrecompileInlineTemplates compiles .hbs files into .js modules and
// replaces hbs`...` tagged templates and compile("...") calls in .js files
// with compiled template functions. Other files pass through unchanged.
func (*Default) PrecompileInlineTemplates(ctx context.Context, tree fs.FS) (fs.FS, error) {
	files, err := buildfs.Files(tree)
	if err != nil {
		return nil, err
	}

	out := make(map[string][]byte, len(files))
	put := func(p string, data []byte) error {
		if _, ok := out[p]; ok {
			return &CollisionError{Op: "precompile", Path: p}
		}
		out[p] = data
		return nil
	}

	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		switch path.Ext(f.Path) {
		case ".hbs":
			compiled, err := CompileTemplate(f.Path, 1, string(f.Data))
			if err != nil {
				return nil, err
			}
			err = put(strings.TrimSuffix(f.Path, ".hbs")+".js", []byte("module.exports = "+compiled+";\n"))
			if err != nil {
				return nil, err
			}
		case ".js":
			data, err := precompileInline(ctx, f)
			if err != nil {
				return nil, err
			}
			if err := put(f.Path, data); err != nil {
				return nil, err
			}
		default:
			if err := put(f.Path, f.Data); err != nil {
				return nil, err
			}
		}
	}
	return buildfs.BytesFS(out), nil
}

type replacement struct {
	start, end uint32
	text       string
}

func precompileInline(ctx context.Context, f buildfs.File) ([]byte, error) {
	if !bytes.Contains(f.Data, []byte("hbs`")) && !bytes.Contains(f.Data, []byte("compile(")) {
		return f.Data, nil
	}

	tree, err := parseJS(ctx, f.Data)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	var repls []replacement
	var walkErr error
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if walkErr != nil {
			return
		}
		if n.Type() == "call_expression" {
			src, ok, err := inlineTemplate(n, f.Data)
			if err != nil {
				walkErr = &TemplateSyntaxError{File: f.Path, Line: int(n.StartPoint().Row) + 1, Msg: err.Error()}
				return
			}
			if ok {
				compiled, err := CompileTemplate(f.Path, int(n.StartPoint().Row)+1, src)
				if err != nil {
					walkErr = err
					return
				}
				repls = append(repls, replacement{start: n.StartByte(), end: n.EndByte(), text: compiled})
				return
			}
		}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			walk(n.NamedChild(i))
		}
	}
	walk(tree.RootNode())
	if walkErr != nil {
		return nil, walkErr
	}
	if len(repls) == 0 {
		return f.Data, nil
	}

	var buf bytes.Buffer
	last := uint32(0)
	for _, r := range repls {
		buf.Write(f.Data[last:r.start])
		buf.WriteString(r.text)
		last = r.end
	}
	buf.Write(f.Data[last:])
	return buf.Bytes(), nil
}

// inlineTemplate reports whether call is an inline template and returns its
// source.
func inlineTemplate(call *sitter.Node, src []byte) (string, bool, error) {
	fn := call.ChildByFieldName("function")
	args := call.ChildByFieldName("arguments")
	if fn == nil || args == nil {
		return "", false, nil
	}

	switch args.Type() {
	case "template_string":
		if fn.Type() != "identifier" || fn.Content(src) != "hbs" {
			return "", false, nil
		}
		for i := 0; i < int(args.NamedChildCount()); i++ {
			if args.NamedChild(i).Type() == "template_substitution" {
				return "", false, fmt.Errorf("inline template must not contain ${} substitutions")
			}
		}
		raw := args.Content(src)
		cooked, err := unescapeJS(raw[1 : len(raw)-1])
		if err != nil {
			return "", false, fmt.Errorf("invalid template literal: %w", err)
		}
		return cooked, true, nil

	case "arguments":
		if !isCompileCallee(fn, src) {
			return "", false, nil
		}
		if args.NamedChildCount() != 1 || args.NamedChild(0).Type() != "string" {
			return "", false, fmt.Errorf("compile expects a single string literal")
		}
		s, err := unquoteJS(args.NamedChild(0).Content(src))
		if err != nil {
			return "", false, err
		}
		return s, true, nil
	}
	return "", false, nil
}

func isCompileCallee(fn *sitter.Node, src []byte) bool {
	switch fn.Type() {
	case "identifier":
		return fn.Content(src) == "compile"
	case "member_expression":
		prop := fn.ChildByFieldName("property")
		return prop != nil && prop.Content(src) == "compile"
	}
	return false
}

func unquoteJS(lit string) (string, error) {
	if len(lit) < 2 || lit[0] != lit[len(lit)-1] || (lit[0] != '"' && lit[0] != '\'') {
		return "", fmt.Errorf("invalid string literal %s", lit)
	}
	s, err := unescapeJS(lit[1 : len(lit)-1])
	if err != nil {
		return "", fmt.Errorf("invalid string literal %s: %w", lit, err)
	}
	return s, nil
}

// unescapeJS decodes the escape sequences of a JavaScript string or template
// literal body. Unknown escapes stand for the escaped character itself.
func unescapeJS(body string) (string, error) {
	if !strings.Contains(body, `\`) {
		return body, nil
	}
	var b strings.Builder
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c != '\\' {
			b.WriteByte(c)
			continue
		}
		i++
		if i == len(body) {
			return "", errors.New("trailing backslash")
		}
		switch c = body[i]; c {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case 'b':
			b.WriteByte('\b')
		case 'f':
			b.WriteByte('\f')
		case 'v':
			b.WriteByte('\v')
		case '0':
			if i+1 < len(body) && body[i+1] >= '0' && body[i+1] <= '9' {
				return "", errors.New("octal escape sequences are not allowed")
			}
			b.WriteByte(0)
		case '\r':
			// Line continuation, CRLF included.
			if i+1 < len(body) && body[i+1] == '\n' {
				i++
			}
		case '\n':
		case 'x':
			r, n, err := hexRune(body[i+1:], 2)
			if err != nil {
				return "", err
			}
			b.WriteRune(r)
			i += n
		case 'u':
			r, n, err := unicodeEscape(body[i+1:])
			if err != nil {
				return "", err
			}
			i += n
			if utf16.IsSurrogate(r) && strings.HasPrefix(body[i+1:], `\u`) {
				if r2, n2, err := unicodeEscape(body[i+3:]); err == nil && utf16.IsSurrogate(r2) {
					r = utf16.DecodeRune(r, r2)
					i += 2 + n2
				}
			}
			b.WriteRune(r)
		default:
			b.WriteByte(c)
		}
	}
	return b.String(), nil
}

// unicodeEscape decodes the part of a \u escape after the "u", either four hex
// digits or a braced code point.
func unicodeEscape(s string) (rune, int, error) {
	if !strings.HasPrefix(s, "{") {
		return hexRune(s, 4)
	}
	end := strings.IndexByte(s, '}')
	if end < 2 {
		return 0, 0, errors.New("invalid unicode escape")
	}
	r, _, err := hexRune(s[1:end], end-1)
	if err != nil || r > unicode.MaxRune {
		return 0, 0, errors.New("invalid unicode escape")
	}
	return r, end + 1, nil
}

func hexRune(s string, n int) (rune, int, error) {
	if len(s) < n {
		return 0, 0, errors.New("invalid hexadecimal escape")
	}
	v, err := strconv.ParseUint(s[:n], 16, 32)
	if err != nil {
		return 0, 0, errors.New("invalid hexadecimal escape")
	}
	return rune(v), n, nil
}
