package hal

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMissingTarget = errors.New("missing target attribute")
	ErrMissingHref   = errors.New("missing href attribute")
	ErrUnknownTarget = errors.New("unknown navigation target")
)

// Target is something that can be navigated or submitted to.
// It is implemented by [URL], [Link] and [TemplateTarget].
type Target interface {
	isTarget()
}

// URL is a plain href.
type URL string

// TemplateTarget describes a form submission.
type TemplateTarget struct {
	Target string `json:"target"`
	Method string `json:"method,omitempty"`
}

func (URL) isTarget()            {}
func (Link) isTarget()           {}
func (TemplateTarget) isTarget() {}

// ToHref resolves a navigation target to its href.
//
// Besides the [Target] implementations it accepts strings, pointers to links and
// template targets, and generic maps with a "target" or "href" key. A map with a
// "target" key is treated as a template target. It performs no I/O.
func ToHref(t any) (string, error) {
	switch v := t.(type) {
	case TemplateTarget:
		return templateHref(v.Target, v)
	case *TemplateTarget:
		if v == nil {
			return "", unknownTarget(t)
		}
		return templateHref(v.Target, v)
	case Link:
		return linkHref(v.Href, v)
	case *Link:
		if v == nil {
			return "", unknownTarget(t)
		}
		return linkHref(v.Href, v)
	case URL:
		return string(v), nil
	case string:
		return v, nil
	case map[string]any:
		if raw, ok := v["target"]; ok {
			s, _ := raw.(string)
			return templateHref(s, v)
		}
		if raw, ok := v["href"]; ok {
			s, _ := raw.(string)
			return linkHref(s, v)
		}
	}
	return "", unknownTarget(t)
}

// MustHref is [ToHref] for targets already known to be well formed.
func MustHref(t Target) string {
	href, err := ToHref(t)
	if err != nil {
		panic(err)
	}
	return href
}

// TargetFor returns where a template submits to: its own target, or currentURL with
// the template's effective method.
func TargetFor(t Template, currentURL string) TemplateTarget {
	target := t.Target
	if strings.TrimSpace(target) == "" {
		target = currentURL
	}
	return TemplateTarget{Target: target, Method: t.EffectiveMethod()}
}

func templateHref(target string, src any) (string, error) {
	if target == "" {
		return "", fmt.Errorf("%w: %s", ErrMissingTarget, dump(src))
	}
	return target, nil
}

func linkHref(href string, src any) (string, error) {
	if href == "" {
		return "", fmt.Errorf("%w: %s", ErrMissingHref, dump(src))
	}
	return href, nil
}

func unknownTarget(t any) error {
	return fmt.Errorf("%w: %s", ErrUnknownTarget, dump(t))
}

func dump(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%#v", v)
	}
	return string(b)
}
