package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/halx/internal/hal"
)

var (
	_ list.Item = resourceItem{}
)

type itemKind int

const (
	linkItem itemKind = iota
	embeddedItem
	templateItem
)

// resourceItem is one selectable affordance of the current resource.
type resourceItem struct {
	kind     itemKind
	rel      string
	label    string
	href     string
	target   hal.Target
	template hal.Template
}

func (i resourceItem) FilterValue() string { return i.label }
func (i resourceItem) Title() string {
	switch i.kind {
	case embeddedItem:
		return "• " + i.label
	case templateItem:
		return "✎ " + i.label
	default:
		return "→ " + i.label
	}
}
func (i resourceItem) Description() string {
	switch i.kind {
	case templateItem:
		target := i.template.Target
		if target == "" {
			target = "this resource"
		}
		return fmt.Sprintf("%s %s", i.template.EffectiveMethod(), target)
	default:
		return fmt.Sprintf("%s • %s", i.rel, i.href)
	}
}

// itemsFor lists followable links, then embedded items, then valid templates.
func itemsFor(r *hal.Resource) []list.Item {
	var items []list.Item
	for _, rel := range r.Links.Rels() {
		if rel == "self" || rel == "curies" {
			continue
		}
		for _, l := range r.Links[rel] {
			if l.Templated || l.Href == "" {
				continue
			}
			items = append(items, resourceItem{kind: linkItem, rel: rel, label: l.Label(rel), href: l.Href, target: l})
		}
	}

	for _, rel := range r.EmbeddedRels() {
		for i := range r.Embedded[rel] {
			item := &r.Embedded[rel][i]
			self := item.Self()
			if self == "" {
				continue
			}
			items = append(items, resourceItem{kind: embeddedItem, rel: rel, label: item.Title(), href: self, target: hal.URL(self)})
		}
	}

	for _, t := range r.OrderedTemplates() {
		if !t.Valid() {
			continue
		}
		items = append(items, resourceItem{kind: templateItem, rel: t.Key, label: t.DisplayTitle(), template: t})
	}
	return items
}
