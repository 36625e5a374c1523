package transform

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// templateNode is one element of a compiled template program.
type templateNode struct {
	Type    string         `json:"type"`
	Value   string         `json:"value,omitempty"`
	Path    string         `json:"path,omitempty"`
	Params  []string       `json:"params,omitempty"`
	Program []templateNode `json:"program,omitempty"`
	Inverse []templateNode `json:"inverse,omitempty"`
}

type blockFrame struct {
	node    templateNode
	line    int
	inverse bool
}

func (f *blockFrame) add(n templateNode) {
	if f.inverse {
		f.node.Inverse = append(f.node.Inverse, n)
	} else {
		f.node.Program = append(f.node.Program, n)
	}
}

// CompileTemplate turns mustache template source into a JavaScript
// expression evaluating to a template function. line is the line of file the
// source starts at and is used for error positions.
func CompileTemplate(file string, line int, src string) (string, error) {
	program, err := parseTemplate(file, line, src)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(program); err != nil {
		return "", err
	}
	return fmt.Sprintf("Ember.HTMLBars.template(function(env) { return %s; })", bytes.TrimSpace(buf.Bytes())), nil
}

func parseTemplate(file string, line int, src string) ([]templateNode, error) {
	root := &blockFrame{}
	stack := []*blockFrame{root}
	top := func() *blockFrame { return stack[len(stack)-1] }

	fail := func(at int, format string, args ...any) error {
		return &TemplateSyntaxError{File: file, Line: line + strings.Count(src[:at], "\n"), Msg: fmt.Sprintf(format, args...)}
	}

	pos := 0
	for pos < len(src) {
		open := strings.Index(src[pos:], "{{")
		if open < 0 {
			top().add(templateNode{Type: "text", Value: src[pos:]})
			break
		}
		open += pos
		if open > pos {
			top().add(templateNode{Type: "text", Value: src[pos:open]})
		}

		closer, kind := "}}", "mustache"
		start := open + 2
		if strings.HasPrefix(src[open:], "{{{") {
			closer, kind = "}}}", "unescaped"
			start = open + 3
		}
		end := strings.Index(src[start:], closer)
		if end < 0 {
			return nil, fail(open, "unclosed %q", src[open:start])
		}
		end += start
		body := strings.TrimSpace(src[start:end])
		pos = end + len(closer)

		switch {
		case strings.HasPrefix(body, "!"):
			// comment
		case body == "":
			return nil, fail(open, "empty mustache")
		case kind == "mustache" && strings.HasPrefix(body, "#"):
			fields := strings.Fields(body[1:])
			if len(fields) == 0 {
				return nil, fail(open, "block without a name")
			}
			stack = append(stack, &blockFrame{
				node: templateNode{Type: "block", Path: fields[0], Params: fields[1:]},
				line: line + strings.Count(src[:open], "\n"),
			})
		case kind == "mustache" && body == "else":
			if len(stack) == 1 || top().inverse {
				return nil, fail(open, "unexpected {{else}}")
			}
			top().inverse = true
		case kind == "mustache" && strings.HasPrefix(body, "/"):
			name := strings.TrimSpace(body[1:])
			if len(stack) == 1 {
				return nil, fail(open, "unexpected {{/%s}}", name)
			}
			frame := top()
			if frame.node.Path != name {
				return nil, fail(open, "{{#%s}} closed by {{/%s}}", frame.node.Path, name)
			}
			stack = stack[:len(stack)-1]
			top().add(frame.node)
		case kind == "unescaped" && (body == "else" || strings.HasPrefix(body, "#") || strings.HasPrefix(body, "/")):
			return nil, fail(open, "{{{%s}}} is not a valid unescaped mustache", body)
		default:
			fields := strings.Fields(body)
			top().add(templateNode{Type: kind, Path: fields[0], Params: fields[1:]})
		}
	}

	if len(stack) > 1 {
		frame := top()
		return nil, &TemplateSyntaxError{File: file, Line: frame.line, Msg: fmt.Sprintf("unclosed block {{#%s}}", frame.node.Path)}
	}
	if root.node.Program == nil {
		return []templateNode{}, nil
	}
	return root.node.Program, nil
}
