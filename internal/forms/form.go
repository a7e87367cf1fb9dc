package forms

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/desertthunder/halx/internal/hal"
)

// MissingValue is the message reported for an empty required field.
const MissingValue = "missing value"

// Field is one editable property of a [Form].
type Field struct {
	Name        string
	Label       string
	Type        string
	Widget      Widget
	Required    bool
	ReadOnly    bool
	Multiple    bool
	Placeholder string
	Regex       string
	Options     []hal.Option
	Value       any
	Error       string

	// OnChange replaces the value, Toggle adds or removes one option of a
	// multiple field. Both write through to the owning form.
	OnChange func(value any)
	Toggle   func(value any, checked bool)
}

// Checked reports whether option is part of the field value.
func (f *Field) Checked(option any) bool {
	want := hal.Stringify(option)
	if f.Multiple {
		for _, v := range asSlice(f.Value) {
			if hal.Stringify(v) == want {
				return true
			}
		}
		return false
	}
	return f.Value != nil && hal.Stringify(f.Value) == want
}

// Text renders the value for a text input.
func (f *Field) Text() string {
	if f.Multiple {
		parts := make([]string, 0)
		for _, v := range asSlice(f.Value) {
			parts = append(parts, hal.Stringify(v))
		}
		return strings.Join(parts, ", ")
	}
	return hal.Stringify(f.Value)
}

// Form is the editable state of a HAL-FORMS template.
//
// Values are kept as a nested object keyed by the dotted property names and are
// replaced, never modified in place, on every change. A Form is not safe for
// concurrent use.
type Form struct {
	Template hal.Template

	fields []*Field
	values map[string]any
	errors map[string]string
}

// NewForm binds t to data. Each field is prefilled from data at its property path,
// then from the property value, then from the selected options.
func NewForm(t hal.Template, data map[string]any) *Form {
	f := &Form{
		Template: t,
		values:   map[string]any{},
		errors:   map[string]string{},
	}

	for _, p := range t.Properties {
		if p.Name == "" {
			continue
		}
		field := &Field{
			Name:        p.Name,
			Label:       p.Label(),
			Type:        p.Type,
			Widget:      WidgetFor(p.Type, len(p.InlineOptions()) > 0, p.Multiple),
			Required:    p.Required,
			ReadOnly:    p.ReadOnly,
			Multiple:    p.Multiple,
			Placeholder: p.Placeholder,
			Regex:       p.Regex,
			Options:     p.InlineOptions(),
		}
		if field.Widget == WidgetCheckboxGroup {
			field.Multiple = true
		}

		name := p.Name
		field.OnChange = func(value any) { f.Set(name, value) }
		field.Toggle = func(value any, checked bool) { f.Toggle(name, value, checked) }

		f.fields = append(f.fields, field)
		f.Set(name, initialValue(p, field.Multiple, data))
	}

	return f
}

func initialValue(p hal.Property, multiple bool, data map[string]any) any {
	v, ok := hal.LookupNestedValue(data, p.Name)
	if !ok || v == nil {
		v = p.Value
	}
	if v == nil && p.Options != nil && len(p.Options.SelectedValues) > 0 {
		if multiple {
			v = slices.Clone(p.Options.SelectedValues)
		} else {
			v = p.Options.SelectedValues[0]
		}
	}
	if multiple {
		return asSlice(v)
	}
	return v
}

// Fields returns the fields in template order.
func (f *Form) Fields() []*Field {
	return f.fields
}

// Field looks a field up by name.
func (f *Form) Field(name string) (*Field, bool) {
	for _, field := range f.fields {
		if field.Name == name {
			return field, true
		}
	}
	return nil, false
}

// Value returns the current value of name.
func (f *Form) Value(name string) any {
	return hal.GetNestedValue(f.values, name)
}

// Set replaces the value of name. Multiple fields always hold a slice.
// Changing a field clears its error.
func (f *Form) Set(name string, value any) {
	field, ok := f.Field(name)
	if ok && field.Multiple {
		value = asSlice(value)
	}

	f.values = hal.SetNestedValue(f.values, name, value)
	if ok {
		field.Value = value
		f.setError(field, "")
	}
}

// Toggle adds value to a multiple field when checked and absent, and removes it
// when unchecked and present. Other fields are set to value or cleared.
func (f *Form) Toggle(name string, value any, checked bool) {
	field, ok := f.Field(name)
	if !ok || !field.Multiple {
		if checked {
			f.Set(name, value)
		} else {
			f.Set(name, nil)
		}
		return
	}

	current := asSlice(f.Value(name))
	idx := slices.IndexFunc(current, func(v any) bool { return hal.Stringify(v) == hal.Stringify(value) })
	switch {
	case checked && idx < 0:
		current = append(current, value)
	case !checked && idx >= 0:
		current = slices.Delete(current, idx, idx+1)
	default:
		return
	}
	f.Set(name, current)
}

// Apply sets every value in values, keyed by dotted field name.
func (f *Form) Apply(values map[string]any) {
	for _, field := range f.fields {
		if v, ok := hal.LookupNestedValue(values, field.Name); ok {
			f.Set(field.Name, v)
		}
	}
}

// Values returns the nested request body. Fields without a value are left out.
// The returned map is not changed by later edits.
func (f *Form) Values() map[string]any {
	out := map[string]any{}
	for _, field := range f.fields {
		v, ok := hal.LookupNestedValue(f.values, field.Name)
		if !ok || v == nil {
			continue
		}
		out = hal.SetNestedValue(out, field.Name, v)
	}
	return out
}

// Validate checks required fields and regex constraints without contacting the
// server. It replaces the errors of every field and returns them.
func (f *Form) Validate() map[string]string {
	f.errors = map[string]string{}
	for _, field := range f.fields {
		msg := field.Check(field.Value)
		f.setError(field, msg)
	}
	return f.Errors()
}

// Check returns the validation message value would get in this field, or "".
func (f *Field) Check(value any) string {
	if f.ReadOnly {
		return ""
	}
	if isEmpty(value) {
		if f.Required {
			return MissingValue
		}
		return ""
	}
	if f.Regex == "" {
		return ""
	}

	re, err := regexp.Compile("^(?:" + f.Regex + ")$")
	if err != nil {
		return ""
	}
	if s, ok := value.(string); ok && !re.MatchString(s) {
		return fmt.Sprintf("must match %s", f.Regex)
	}
	return ""
}

// SetServerErrors merges messages returned by the server. Messages for names that
// are not fields are kept and reported by [Form.Errors].
func (f *Form) SetServerErrors(errs map[string]string) {
	for name, msg := range errs {
		if field, ok := f.Field(name); ok {
			f.setError(field, msg)
			continue
		}
		f.errors[name] = msg
	}
}

// Errors returns a copy of the current error messages keyed by field name.
func (f *Form) Errors() map[string]string {
	out := make(map[string]string, len(f.errors))
	for k, v := range f.errors {
		out[k] = v
	}
	return out
}

// Valid reports whether no errors are recorded.
func (f *Form) Valid() bool {
	return len(f.errors) == 0
}

// ClearErrors removes every error.
func (f *Form) ClearErrors() {
	f.errors = map[string]string{}
	for _, field := range f.fields {
		field.Error = ""
	}
}

func (f *Form) setError(field *Field, msg string) {
	field.Error = msg
	if msg == "" {
		delete(f.errors, field.Name)
		return
	}
	f.errors[field.Name] = msg
}

func isEmpty(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(x) == ""
	case []any:
		return len(x) == 0
	case []string:
		return len(x) == 0
	case map[string]any:
		return len(x) == 0
	}
	return false
}

func asSlice(v any) []any {
	switch x := v.(type) {
	case nil:
		return []any{}
	case []any:
		return slices.Clone(x)
	case []string:
		out := make([]any, len(x))
		for i, s := range x {
			out[i] = s
		}
		return out
	default:
		return []any{x}
	}
}
