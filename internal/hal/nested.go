package hal

import "strings"

// LookupNestedValue reads a dot separated path such as "address.city".
func LookupNestedValue(obj map[string]any, path string) (any, bool) {
	if obj == nil || path == "" {
		return nil, false
	}

	parts := strings.Split(path, ".")
	cur := obj
	for i, part := range parts {
		v, ok := cur[part]
		if !ok {
			return nil, false
		}
		if i == len(parts)-1 {
			return v, true
		}
		next, ok := v.(map[string]any)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return nil, false
}

// GetNestedValue is [LookupNestedValue] returning nil for absent paths.
func GetNestedValue(obj map[string]any, path string) any {
	v, _ := LookupNestedValue(obj, path)
	return v
}

// SetNestedValue returns a copy of obj with value stored at path.
//
// Maps along the path are copied, missing or non-map intermediates are replaced by
// new maps, and obj itself is never modified.
func SetNestedValue(obj map[string]any, path string, value any) map[string]any {
	out := shallowCopy(obj)
	if path == "" {
		return out
	}

	parts := strings.Split(path, ".")
	cur := out
	for _, part := range parts[:len(parts)-1] {
		next, _ := cur[part].(map[string]any)
		next = shallowCopy(next)
		cur[part] = next
		cur = next
	}
	cur[parts[len(parts)-1]] = value

	return out
}

func shallowCopy(m map[string]any) map[string]any {
	out := make(map[string]any, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	return out
}
