package hal

import "sort"

func asObject(x any) (map[string]any, bool) {
	obj, ok := x.(map[string]any)
	return obj, ok && obj != nil
}

// IsHalResponse reports whether x is a JSON object carrying _links or _embedded.
func IsHalResponse(x any) bool {
	obj, ok := asObject(x)
	if !ok {
		return false
	}
	if v, ok := obj[keyLinks]; ok && v != nil {
		return true
	}
	if v, ok := obj[keyEmbedded]; ok && v != nil {
		return true
	}
	return false
}

// IsHalFormsTemplate reports whether x is an object with a non-empty properties list.
func IsHalFormsTemplate(x any) bool {
	obj, ok := asObject(x)
	if !ok {
		return false
	}
	props, ok := obj["properties"].([]any)
	return ok && len(props) > 0
}

// IsStrictHalFormsTemplate is [IsHalFormsTemplate] that also requires a method.
func IsStrictHalFormsTemplate(x any) bool {
	if !IsHalFormsTemplate(x) {
		return false
	}
	method, ok := x.(map[string]any)["method"].(string)
	return ok && method != ""
}

// IsHalFormsResponse reports whether x is a HAL response whose primary template is a form.
//
// The primary template is "default" when present, otherwise the lexically first key,
// since a generic map carries no document order.
func IsHalFormsResponse(x any) bool {
	if !IsHalResponse(x) {
		return false
	}

	templates, ok := asObject(x.(map[string]any)[keyTemplates])
	if !ok || len(templates) == 0 {
		return false
	}

	if t, ok := templates[DefaultTemplate]; ok {
		return IsHalFormsTemplate(t)
	}

	keys := make([]string, 0, len(templates))
	for k := range templates {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return IsHalFormsTemplate(templates[keys[0]])
}
