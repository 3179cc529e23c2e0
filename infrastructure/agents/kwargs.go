// Package agents contains the agent engines constructed by the agent
// registry. Factories receive keyword-style argument maps: the flat
// "config" map plus one entry per resolved dependency group.
package agents

import "fmt"

// groupComponent extracts a dependency from a kwargs entry. The group
// value is either a bare instance (single-reference declaration) or an
// alias map; for maps the given alias is looked up.
func groupComponent[T any](kwargs map[string]any, group, alias string) (T, error) {
	var zero T

	raw, ok := kwargs[group]
	if !ok {
		return zero, fmt.Errorf("missing dependency group %q", group)
	}

	if aliased, ok := raw.(map[string]any); ok {
		raw, ok = aliased[alias]
		if !ok {
			return zero, fmt.Errorf("dependency group %q has no alias %q", group, alias)
		}
	}

	typed, ok := raw.(T)
	if !ok {
		return zero, fmt.Errorf("dependency %q/%q has unexpected type %T", group, alias, raw)
	}
	return typed, nil
}

// configValue reads an optional string from the "config" map.
func configValue(kwargs map[string]any, key, fallback string) string {
	config, ok := kwargs["config"].(map[string]any)
	if !ok {
		return fallback
	}
	if v, ok := config[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

// configInt reads an optional integer from the "config" map.
func configInt(kwargs map[string]any, key string, fallback int) int {
	config, ok := kwargs["config"].(map[string]any)
	if !ok {
		return fallback
	}
	switch v := config[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return fallback
	}
}
