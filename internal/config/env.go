package config

import (
	"strings"

	"gopkg.in/yaml.v3"
)

// overlayEnv applies prefix-matched environment variables onto the tree.
// A double underscore separates key segments, so
// NUCLEUS_EVENT_BUS__MAX_QUEUE_SIZE=2000 sets event_bus.max_queue_size.
// Returns the keys that were applied.
func overlayEnv(tree map[string]any, environ []string, prefix string) []string {
	var applied []string
	for _, kv := range environ {
		eq := strings.IndexByte(kv, '=')
		if eq <= 0 {
			continue
		}
		name, raw := kv[:eq], kv[eq+1:]
		if !strings.HasPrefix(name, prefix) || len(name) == len(prefix) {
			continue
		}
		segs := strings.Split(name[len(prefix):], "__")
		for i := range segs {
			segs[i] = strings.ToLower(segs[i])
		}
		key := strings.Join(segs, ".")
		setTree(tree, key, parseScalar(raw))
		applied = append(applied, key)
	}
	return applied
}

// setTree is Set without listener notification, for use during layering.
func setTree(tree map[string]any, key string, value any) {
	parts := strings.Split(key, ".")
	cur := tree
	for _, p := range parts[:len(parts)-1] {
		next, ok := cur[p].(map[string]any)
		if !ok {
			next = map[string]any{}
			cur[p] = next
		}
		cur = next
	}
	cur[parts[len(parts)-1]] = value
}

// parseScalar applies YAML scalar typing to an environment value, so
// "true", "42", and "[a, b]" come out typed while addresses and other
// plain text stay strings.
func parseScalar(raw string) any {
	var v any
	if err := yaml.Unmarshal([]byte(raw), &v); err != nil || v == nil {
		return raw
	}
	return v
}
