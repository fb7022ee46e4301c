package extract

import "sort"

// NestedLookup searches a decoded JSON tree (maps, slices, scalars) for
// key and returns the first value found. Keys at the current object win
// over any deeper match, and children are descended in sorted key order,
// so two equally named keys at different depths always resolve the same
// way run to run.
func NestedLookup(data any, key string) (any, bool) {
	switch node := data.(type) {
	case map[string]any:
		if v, ok := node[key]; ok {
			return v, true
		}
		for _, k := range sortedKeys(node) {
			if v, ok := NestedLookup(node[k], key); ok {
				return v, true
			}
		}
	case []any:
		for _, item := range node {
			if v, ok := NestedLookup(item, key); ok {
				return v, true
			}
		}
	}
	return nil, false
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
