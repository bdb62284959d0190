package main

import (
	"fmt"
	"strings"
)

// parseTags turns a list of "key=value" strings (as collected by a
// repeated --tag flag) into a tag map, as expected by store.Store's
// NewVersion.
func parseTags(raw []string) (map[string]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	tags := make(map[string]string, len(raw))
	for _, kv := range raw {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid --tag %q, expected key=value", kv)
		}
		tags[k] = v
	}
	return tags, nil
}
