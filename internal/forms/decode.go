package forms

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/desertthunder/halx/internal/hal"
)

// DecodeValues converts an HTML form post into typed values for t.
//
// Numbers are parsed as float64 and kept as text when they do not parse, so the
// server can reject them. Checkbox and boolean fields are true when posted with
// any value but "false", "off", "no" or "0", and false when absent. Multiple
// fields become arrays. Other absent fields are left out.
func DecodeValues(t hal.Template, values url.Values) map[string]any {
	out := map[string]any{}
	for _, p := range t.Properties {
		if p.Name == "" || p.ReadOnly {
			continue
		}

		widget := WidgetFor(p.Type, len(p.InlineOptions()) > 0, p.Multiple)
		raw, present := values[p.Name]

		switch {
		case p.Multiple || widget == WidgetCheckboxGroup:
			items := make([]any, 0, len(raw))
			for _, r := range splitMultiple(raw) {
				items = append(items, coerce(widget, r))
			}
			out = hal.SetNestedValue(out, p.Name, items)
		case widget.Toggle():
			out = hal.SetNestedValue(out, p.Name, present && truthy(last(raw)))
		case present:
			s := last(raw)
			if widget == WidgetNumber && strings.TrimSpace(s) == "" {
				continue
			}
			out = hal.SetNestedValue(out, p.Name, coerce(widget, s))
		}
	}
	return out
}

// ParseAssignments turns "name=value" pairs into form values. Repeating a name
// collects every value, which is how multiple fields are set from the command line.
func ParseAssignments(pairs []string) (url.Values, error) {
	values := url.Values{}
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, &AssignmentError{Pair: pair}
		}
		values.Add(name, value)
	}
	return values, nil
}

// AssignmentError reports a malformed name=value pair.
type AssignmentError struct {
	Pair string
}

func (e *AssignmentError) Error() string {
	return "expected name=value, got " + strconv.Quote(e.Pair)
}

func coerce(widget Widget, raw string) any {
	if widget != WidgetNumber {
		return raw
	}
	n, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return raw
	}
	return n
}

// splitMultiple accepts both repeated keys and a single comma separated value.
func splitMultiple(raw []string) []string {
	if len(raw) != 1 || !strings.Contains(raw[0], ",") {
		out := make([]string, 0, len(raw))
		for _, r := range raw {
			if r != "" {
				out = append(out, r)
			}
		}
		return out
	}

	var out []string
	for _, part := range strings.Split(raw[0], ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func truthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "false", "off", "0", "no":
		return false
	}
	return true
}

func last(raw []string) string {
	if len(raw) == 0 {
		return ""
	}
	return raw[len(raw)-1]
}
