package hal

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

const (
	MediaTypeHAL      = "application/hal+json"
	MediaTypeHALForms = "application/prs.hal-forms+json"
	MediaTypeProblem  = "application/problem+json"
	MediaTypeJSON     = "application/json"

	// AcceptHeader is sent with every hypermedia request.
	AcceptHeader = MediaTypeHALForms + ", " + MediaTypeHAL

	// DefaultTemplate is the conventional key of a resource's primary template.
	DefaultTemplate = "default"
)

const (
	keyLinks     = "_links"
	keyEmbedded  = "_embedded"
	keyTemplates = "_templates"
)

// Link is a HAL link object.
type Link struct {
	Href      string `json:"href"`
	Title     string `json:"title,omitempty"`
	Name      string `json:"name,omitempty"`
	Templated bool   `json:"templated,omitempty"`
	Type      string `json:"type,omitempty"`
}

// Label returns the most descriptive text for the link, falling back to rel.
func (l Link) Label(rel string) string {
	switch {
	case l.Title != "":
		return l.Title
	case l.Name != "":
		return l.Name
	default:
		return rel
	}
}

// Links maps a relation name to its links. A relation holding a single link object
// on the wire decodes to a one element slice.
type Links map[string][]Link

func (l *Links) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("_links: %w", err)
	}

	out := make(Links, len(raw))
	for rel, msg := range raw {
		msg = bytes.TrimSpace(msg)
		if len(msg) > 0 && msg[0] == '[' {
			var many []Link
			if err := json.Unmarshal(msg, &many); err != nil {
				return fmt.Errorf("_links.%s: %w", rel, err)
			}
			out[rel] = many
			continue
		}

		var one Link
		if err := json.Unmarshal(msg, &one); err != nil {
			return fmt.Errorf("_links.%s: %w", rel, err)
		}
		out[rel] = []Link{one}
	}

	*l = out
	return nil
}

func (l Links) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(l))
	for rel, links := range l {
		if len(links) == 1 {
			out[rel] = links[0]
		} else {
			out[rel] = links
		}
	}
	return json.Marshal(out)
}

// First returns the first link registered under rel.
func (l Links) First(rel string) (Link, bool) {
	links := l[rel]
	if len(links) == 0 {
		return Link{}, false
	}
	return links[0], true
}

// Rels returns the relation names in lexical order with "self" first.
func (l Links) Rels() []string {
	rels := make([]string, 0, len(l))
	for rel := range l {
		rels = append(rels, rel)
	}
	sort.Slice(rels, func(i, j int) bool {
		if rels[i] == "self" || rels[j] == "self" {
			return rels[i] == "self"
		}
		return rels[i] < rels[j]
	})
	return rels
}

// Option is one inline choice of a select-like property. On the wire it is either
// an object {"value": ..., "prompt": ...} or a bare string used for both.
type Option struct {
	Value  any    `json:"value"`
	Prompt string `json:"prompt,omitempty"`
}

func (o *Option) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*o = Option{Value: s, Prompt: s}
		return nil
	}

	var obj struct {
		Value  any    `json:"value"`
		Prompt string `json:"prompt"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("option: %w", err)
	}
	*o = Option{Value: obj.Value, Prompt: obj.Prompt}
	return nil
}

// Label is the prompt, or the value rendered as text.
func (o Option) Label() string {
	if o.Prompt != "" {
		return o.Prompt
	}
	return o.ValueString()
}

// ValueString renders the option value the way it is posted back from an HTML form.
func (o Option) ValueString() string {
	return Stringify(o.Value)
}

// Options holds the choices of a property.
type Options struct {
	Inline         []Option `json:"inline,omitempty"`
	MinItems       *int     `json:"minItems,omitempty"`
	MaxItems       *int     `json:"maxItems,omitempty"`
	SelectedValues []any    `json:"selectedValues,omitempty"`
}

// Property describes one field of a HAL-FORMS template.
type Property struct {
	Name        string   `json:"name"`
	Type        string   `json:"type,omitempty"`
	Prompt      string   `json:"prompt,omitempty"`
	Required    bool     `json:"required,omitempty"`
	ReadOnly    bool     `json:"readOnly,omitempty"`
	Multiple    bool     `json:"multiple,omitempty"`
	Value       any      `json:"value,omitempty"`
	Regex       string   `json:"regex,omitempty"`
	Placeholder string   `json:"placeholder,omitempty"`
	Options     *Options `json:"options,omitempty"`
}

// Label returns the prompt or, when absent, the property name.
func (p Property) Label() string {
	if p.Prompt != "" {
		return p.Prompt
	}
	return p.Name
}

// InlineOptions returns the inline choices, or nil.
func (p Property) InlineOptions() []Option {
	if p.Options == nil {
		return nil
	}
	return p.Options.Inline
}

// Template is a HAL-FORMS template.
type Template struct {
	Key         string     `json:"-"`
	Title       string     `json:"title,omitempty"`
	Method      string     `json:"method,omitempty"`
	Target      string     `json:"target,omitempty"`
	ContentType string     `json:"contentType,omitempty"`
	Properties  []Property `json:"properties"`
}

// EffectiveMethod returns the upper-cased method, POST when none is given.
func (t Template) EffectiveMethod() string {
	if m := strings.TrimSpace(t.Method); m != "" {
		return strings.ToUpper(m)
	}
	return "POST"
}

// Valid reports whether the template qualifies as a form, i.e. has properties.
func (t Template) Valid() bool {
	return len(t.Properties) > 0
}

// DisplayTitle returns the title, falling back to the template key.
func (t Template) DisplayTitle() string {
	if t.Title != "" {
		return t.Title
	}
	return t.Key
}

// Property looks up a property by name.
func (t Template) Property(name string) (Property, bool) {
	for _, p := range t.Properties {
		if p.Name == name {
			return p, true
		}
	}
	return Property{}, false
}

// Resource is a decoded HAL document. Attributes hold every key that is not one
// of the reserved _links, _embedded or _templates keys.
type Resource struct {
	Links         Links
	Embedded      map[string][]Resource
	Templates     map[string]Template
	TemplateOrder []string
	Attributes    map[string]any
}

func (r *Resource) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	res := Resource{Attributes: make(map[string]any, len(raw))}

	for key, msg := range raw {
		switch key {
		case keyLinks:
			if isNull(msg) {
				continue
			}
			if err := json.Unmarshal(msg, &res.Links); err != nil {
				return err
			}
		case keyEmbedded:
			if isNull(msg) {
				continue
			}
			embedded, err := decodeEmbedded(msg)
			if err != nil {
				return err
			}
			res.Embedded = embedded
		case keyTemplates:
			if isNull(msg) {
				continue
			}
			templates, order, err := decodeTemplates(msg)
			if err != nil {
				return err
			}
			res.Templates, res.TemplateOrder = templates, order
		default:
			var v any
			if err := json.Unmarshal(msg, &v); err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			res.Attributes[key] = v
		}
	}

	*r = res
	return nil
}

func (r Resource) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Attributes)+3)
	for k, v := range r.Attributes {
		out[k] = v
	}
	if len(r.Links) > 0 {
		out[keyLinks] = r.Links
	}
	if r.Embedded != nil {
		out[keyEmbedded] = r.Embedded
	}
	if len(r.Templates) > 0 {
		out[keyTemplates] = r.Templates
	}
	return json.Marshal(out)
}

// Self returns the href of the self link, or "".
func (r *Resource) Self() string {
	if l, ok := r.Links.First("self"); ok {
		return l.Href
	}
	return ""
}

// Title picks a human label from common attributes, falling back to the self href.
func (r *Resource) Title() string {
	for _, key := range []string{"title", "name", "label", "displayName"} {
		if s, ok := r.Attributes[key].(string); ok && s != "" {
			return s
		}
	}
	if l, ok := r.Links.First("self"); ok && l.Title != "" {
		return l.Title
	}
	return r.Self()
}

// EmbeddedRels returns the embedded relation names in lexical order.
func (r *Resource) EmbeddedRels() []string {
	rels := make([]string, 0, len(r.Embedded))
	for rel := range r.Embedded {
		rels = append(rels, rel)
	}
	sort.Strings(rels)
	return rels
}

// Template returns the named template.
func (r *Resource) Template(name string) (Template, bool) {
	t, ok := r.Templates[name]
	return t, ok
}

// PrimaryTemplate returns the "default" template, else the first in document order.
func (r *Resource) PrimaryTemplate() (Template, bool) {
	if t, ok := r.Templates[DefaultTemplate]; ok {
		return t, true
	}
	if len(r.TemplateOrder) > 0 {
		return r.Templates[r.TemplateOrder[0]], true
	}
	return Template{}, false
}

// OrderedTemplates returns templates in document order.
func (r *Resource) OrderedTemplates() []Template {
	out := make([]Template, 0, len(r.TemplateOrder))
	for _, key := range r.TemplateOrder {
		out = append(out, r.Templates[key])
	}
	return out
}

// Data returns a copy of the attributes suitable as form prefill.
func (r *Resource) Data() map[string]any {
	out := make(map[string]any, len(r.Attributes))
	for k, v := range r.Attributes {
		out[k] = v
	}
	return out
}

func decodeEmbedded(msg json.RawMessage) (map[string][]Resource, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(msg, &raw); err != nil {
		return nil, fmt.Errorf("_embedded: %w", err)
	}

	out := make(map[string][]Resource, len(raw))
	for rel, item := range raw {
		item = bytes.TrimSpace(item)
		if len(item) > 0 && item[0] == '[' {
			var many []Resource
			if err := json.Unmarshal(item, &many); err != nil {
				return nil, fmt.Errorf("_embedded.%s: %w", rel, err)
			}
			out[rel] = many
			continue
		}

		var one Resource
		if err := json.Unmarshal(item, &one); err != nil {
			return nil, fmt.Errorf("_embedded.%s: %w", rel, err)
		}
		out[rel] = []Resource{one}
	}
	return out, nil
}

// decodeTemplates decodes _templates while recording the key order of the document,
// which a plain map decode would lose.
func decodeTemplates(msg json.RawMessage) (map[string]Template, []string, error) {
	dec := json.NewDecoder(bytes.NewReader(msg))

	tok, err := dec.Token()
	if err != nil {
		return nil, nil, fmt.Errorf("_templates: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, nil, fmt.Errorf("_templates: expected object")
	}

	templates := make(map[string]Template)
	var order []string

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, fmt.Errorf("_templates: %w", err)
		}
		key, _ := tok.(string)

		var t Template
		if err := dec.Decode(&t); err != nil {
			return nil, nil, fmt.Errorf("_templates.%s: %w", key, err)
		}
		t.Key = key

		if _, seen := templates[key]; !seen {
			order = append(order, key)
		}
		templates[key] = t
	}

	return templates, order, nil
}

func isNull(msg json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(msg), []byte("null"))
}

// Stringify renders a JSON scalar as text. Whole floats print without a fraction.
func Stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		if x == float64(int64(x)) {
			return fmt.Sprintf("%d", int64(x))
		}
		return fmt.Sprintf("%g", x)
	case json.Number:
		return x.String()
	case []any, map[string]any:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(b)
	default:
		return fmt.Sprint(x)
	}
}
