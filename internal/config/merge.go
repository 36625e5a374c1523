package config

import (
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"reflect"
	"slices"

	"gopkg.in/yaml.v3"
)

var configExtensions = []string{".yaml", ".yml", ".json"}

// Merge reads the given configuration files, and every configuration file
// below the given directories, and merges them into one YAML document. Maps
// are merged recursively; for any other value the file read last wins, or the
// merge fails if conflictError is set and the values differ.
func Merge(configFiles []string, conflictError bool) ([]byte, error) {
	var paths []string
	for _, f := range configFiles {
		if err := filepath.WalkDir(f, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			// Explicitly named files are always read, files found in
			// directories only when they look like configuration.
			if path != f && !slices.Contains(configExtensions, filepath.Ext(path)) {
				return nil
			}
			paths = append(paths, path)
			return nil
		}); err != nil {
			return nil, err
		}
	}

	docs := make([]map[string]any, 0, len(paths))
	for _, f := range paths {
		bs, err := os.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("failed to read configuration file %v: %w", f, err)
		}
		var x map[string]any
		if err := yaml.Unmarshal(bs, &x); err != nil {
			return nil, fmt.Errorf("failed to unmarshal configuration file %v: %w", f, err)
		}
		docs = append(docs, x)
	}

	merged, err := merge(docs, "", conflictError)
	if err != nil {
		return nil, err
	}

	bs, err := yaml.Marshal(merged)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal merged configuration: %w", err)
	}

	return bs, nil
}

func merge(docs []map[string]any, path string, conflictError bool) (map[string]any, error) {
	result := make(map[string]any)
	for _, doc := range docs {
		for _, key := range slices.Sorted(maps.Keys(doc)) { // Sort keys to ensure deterministic merge errors.
			value := doc[key]
			existing, ok := result[key]
			if !ok {
				result[key] = value
				continue
			}

			existingMap, ok1 := existing.(map[string]any)
			valueMap, ok2 := value.(map[string]any)
			switch {
			case ok1 && ok2:
				var err error
				if result[key], err = merge([]map[string]any{existingMap, valueMap}, path+"/"+key, conflictError); err != nil {
					return nil, err
				}
			case value == nil:
				// "ember-metal:" declares a package without settings and must
				// not erase settings from another file.
			case existing == nil:
				result[key] = value
			case conflictError && !reflect.DeepEqual(existing, value):
				return nil, fmt.Errorf("conflict for config path %s", path+"/"+key)
			default:
				result[key] = value
			}
		}
	}
	return result, nil
}
