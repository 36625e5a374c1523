// Package jsonpatch applies RFC 6902 patches to configuration documents
// before they are parsed. Only add, remove and replace are supported.
package jsonpatch

import (
	"encoding/json"
	"fmt"
	"os"

	jp "github.com/evanphx/json-patch/v5"
	"github.com/goccy/go-yaml"
)

type PatchError struct {
	msg string
}

func (p *PatchError) Error() string {
	return p.msg
}

type Patch = jp.Patch

var opts = jp.ApplyOptions{
	EnsurePathExistsOnAdd:    true, // will create paths
	AllowMissingPathOnRemove: true,
}

// ReadFile reads a JSON patch document.
func ReadFile(name string) (Patch, error) {
	bs, err := os.ReadFile(name)
	if err != nil {
		return nil, err
	}
	p, err := jp.DecodePatch(bs)
	if err != nil {
		return nil, &PatchError{fmt.Sprintf("invalid patch %s: %v", name, err)}
	}
	return p, nil
}

func Apply(p Patch, doc json.RawMessage) (json.RawMessage, error) {
	// We only support add/remove/replace
	for _, op := range p {
		switch op.Kind() {
		case "replace", "remove", "add": // OK
		default:
			return nil, &PatchError{fmt.Sprintf("unsupported patch operation %q, must be one of \"replace\", \"add\", \"remove\"", op.Kind())}
		}
	}
	return p.ApplyWithOptions(doc, &opts)
}

// ApplyYAML applies the patches in order to a YAML or JSON document. The
// result is JSON, which the configuration parser accepts as YAML.
func ApplyYAML(doc []byte, patches ...Patch) ([]byte, error) {
	if len(patches) == 0 {
		return doc, nil
	}
	js, err := yaml.YAMLToJSON(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to convert configuration to JSON: %w", err)
	}
	for _, p := range patches {
		if js, err = Apply(p, js); err != nil {
			return nil, err
		}
	}
	return js, nil
}
