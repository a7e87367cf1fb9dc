package hal

import (
	"encoding/json"
	"fmt"
)

// Kind classifies a decoded response body.
type Kind int

const (
	KindUnrecognized Kind = iota
	KindCollection
	KindItem
	KindFormTemplate
)

func (k Kind) String() string {
	switch k {
	case KindCollection:
		return "collection"
	case KindItem:
		return "item"
	case KindFormTemplate:
		return "form"
	default:
		return "unrecognized"
	}
}

// Document is the result of [Decode].
//
// Resource is set whenever the body is a JSON object, including unrecognized ones,
// so their attributes can still serve as form prefill. Raw always holds the body.
type Document struct {
	Kind     Kind
	Resource *Resource
	Raw      json.RawMessage
}

// Decode classifies a response body.
//
// Bodies that are valid JSON but not HAL decode as [KindUnrecognized] without error.
// An _embedded key makes a collection; otherwise a valid primary template makes a
// form; any other HAL body is an item.
func Decode(data []byte) (*Document, error) {
	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	doc := &Document{Kind: KindUnrecognized, Raw: json.RawMessage(data)}

	if _, ok := generic.(map[string]any); !ok {
		return doc, nil
	}

	var res Resource
	if err := json.Unmarshal(data, &res); err != nil {
		// Malformed reserved keys fall back to the raw preview.
		return doc, nil
	}
	doc.Resource = &res

	if !IsHalResponse(generic) {
		return doc, nil
	}

	switch {
	case res.Embedded != nil:
		doc.Kind = KindCollection
	case hasValidPrimary(&res):
		doc.Kind = KindFormTemplate
	default:
		doc.Kind = KindItem
	}

	return doc, nil
}

func hasValidPrimary(r *Resource) bool {
	t, ok := r.PrimaryTemplate()
	return ok && t.Valid()
}

// Items returns the embedded items under rel, or under the first relation when rel is "".
func (d *Document) Items(rel string) (string, []Resource) {
	if d.Resource == nil || len(d.Resource.Embedded) == 0 {
		return rel, nil
	}
	if rel == "" {
		rel = d.Resource.EmbeddedRels()[0]
	}
	return rel, d.Resource.Embedded[rel]
}

// Pretty returns the raw body indented for display.
func (d *Document) Pretty() string {
	var v any
	if err := json.Unmarshal(d.Raw, &v); err != nil {
		return string(d.Raw)
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return string(d.Raw)
	}
	return string(b)
}
