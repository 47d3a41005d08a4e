package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// decodeFile reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func decodeFile(path string) (map[string]any, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return decodeBytes(path, b)
}

func decodeBytes(path string, b []byte) (map[string]any, error) {
	tree := map[string]any{}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &tree); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".json":
		if err := json.Unmarshal(b, &tree); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".toml":
		if err := toml.Unmarshal(b, &tree); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return tree, nil
}

// encodeTree renders the tree in the format implied by the path's extension.
func encodeTree(path string, tree map[string]any) ([]byte, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return yaml.Marshal(tree)
	case ".json":
		return json.MarshalIndent(tree, "", "  ")
	case ".toml":
		return toml.Marshal(tree)
	default:
		return nil, fmt.Errorf("unsupported config extension: %s", ext)
	}
}

// deepMerge overlays src onto dst, descending into nested maps so a
// partial file only overrides the keys it names.
func deepMerge(dst, src map[string]any) {
	for k, v := range src {
		if sm, ok := v.(map[string]any); ok {
			if dm, ok := dst[k].(map[string]any); ok {
				deepMerge(dm, sm)
				continue
			}
		}
		dst[k] = v
	}
}

// flatten collects every leaf under dotted keys into out.
func flatten(tree map[string]any, prefix string, out map[string]any) {
	for k, v := range tree {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if sub, ok := v.(map[string]any); ok {
			flatten(sub, key, out)
			continue
		}
		out[key] = v
	}
}
