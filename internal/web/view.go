package web

import (
	"net/url"
	"slices"
	"strings"
	"sync"

	"github.com/desertthunder/halx/internal/formatter"
	"github.com/desertthunder/halx/internal/forms"
	"github.com/desertthunder/halx/internal/hal"
	"github.com/desertthunder/halx/internal/navigation"
	"github.com/microcosm-cc/bluemonday"
)

type pageView struct {
	Title      string
	Path       string
	Kind       string
	Status     int
	Error      string
	Attributes []attrView
	Links      []linkView
	Embedded   []embeddedView
	Forms      []formView
	Raw        string
}

type attrView struct {
	Key   string
	Value string
	HTML  string
}

type linkView struct {
	Rel       string
	Label     string
	Href      string
	Templated bool
	External  bool
}

type embeddedView struct {
	Rel     string
	Columns []string
	Rows    []rowView
}

type rowView struct {
	Href  string
	Cells []string
}

type formView struct {
	Key     string
	Title   string
	Method  string
	Target  string
	Message string
	Fields  []fieldView
}

type fieldView struct {
	Name        string
	Label       string
	Widget      string
	InputType   string
	Value       string
	Placeholder string
	Pattern     string
	Error       string
	Required    bool
	ReadOnly    bool
	Multiple    bool
	Choice      bool
	Toggle      bool
	Checked     bool
	Options     []optionView
}

type optionView struct {
	Value   string
	Label   string
	Checked bool
}

var (
	ugcPolicyOnce sync.Once
	ugcPolicy     *bluemonday.Policy
)

func sanitizer() *bluemonday.Policy {
	ugcPolicyOnce.Do(func() {
		ugcPolicy = bluemonday.UGCPolicy()
	})
	return ugcPolicy
}

// viewBuilder maps API hrefs onto browser paths.
type viewBuilder struct {
	origin string
}

func newViewBuilder(baseURL string) viewBuilder {
	u, err := url.Parse(baseURL)
	if err != nil || u.Host == "" {
		return viewBuilder{}
	}
	return viewBuilder{origin: u.Scheme + "://" + u.Host}
}

// path returns the browser path of an API href and whether it leaves the API.
func (b viewBuilder) path(href string) (string, bool) {
	u, err := url.Parse(href)
	if err != nil {
		return href, true
	}
	if u.IsAbs() && (b.origin == "" || u.Scheme+"://"+u.Host != b.origin) {
		return href, true
	}
	return navigation.RouterPath(href), false
}

func (b viewBuilder) page(path string, doc *hal.Document, open map[string]*forms.Form) pageView {
	page := pageView{Path: path, Title: path}
	if doc == nil {
		return page
	}

	page.Kind = doc.Kind.String()
	if doc.Kind == hal.KindUnrecognized || doc.Resource == nil {
		page.Raw = doc.Pretty()
		return page
	}

	r := doc.Resource
	if title := r.Title(); title != "" {
		page.Title = title
	}
	page.Attributes = attributes(r)
	page.Links = b.links(r)
	page.Embedded = b.embedded(r)

	for _, t := range r.OrderedTemplates() {
		if !t.Valid() {
			continue
		}
		form, ok := open[t.Key]
		if !ok {
			form = forms.NewForm(t, r.Data())
		}
		page.Forms = append(page.Forms, b.form(form, path))
	}
	return page
}

func attributes(r *hal.Resource) []attrView {
	keys := make([]string, 0, len(r.Attributes))
	for k := range r.Attributes {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	out := make([]attrView, 0, len(keys))
	for _, k := range keys {
		value := hal.Stringify(r.Attributes[k])
		attr := attrView{Key: k, Value: value}
		if s, ok := r.Attributes[k].(string); ok && strings.Contains(s, "<") {
			attr.HTML = sanitizer().Sanitize(s)
		}
		out = append(out, attr)
	}
	return out
}

func (b viewBuilder) links(r *hal.Resource) []linkView {
	var out []linkView
	for _, rel := range r.Links.Rels() {
		if rel == "self" || rel == "curies" {
			continue
		}
		for _, l := range r.Links[rel] {
			view := linkView{Rel: rel, Label: l.Label(rel), Href: l.Href, Templated: l.Templated}
			if !l.Templated {
				view.Href, view.External = b.path(l.Href)
			}
			out = append(out, view)
		}
	}
	return out
}

func (b viewBuilder) embedded(r *hal.Resource) []embeddedView {
	var out []embeddedView
	for _, rel := range r.EmbeddedRels() {
		items := r.Embedded[rel]
		group := embeddedView{Rel: rel, Columns: formatter.Columns(items)}
		for i := range items {
			row := rowView{}
			if self := items[i].Self(); self != "" {
				row.Href, _ = b.path(self)
			}
			for _, col := range group.Columns {
				row.Cells = append(row.Cells, hal.Stringify(items[i].Attributes[col]))
			}
			group.Rows = append(group.Rows, row)
		}
		out = append(out, group)
	}
	return out
}

func (b viewBuilder) form(f *forms.Form, path string) formView {
	t := f.Template
	view := formView{
		Key:    t.Key,
		Title:  t.DisplayTitle(),
		Method: t.EffectiveMethod(),
		Target: t.Target,
	}
	if view.Target == "" {
		view.Target = "(this resource)"
	}
	if len(f.Errors()) > 0 {
		view.Message = "Form validation errors"
	}

	for _, field := range f.Fields() {
		fv := fieldView{
			Name:        field.Name,
			Label:       field.Label,
			Widget:      string(field.Widget),
			InputType:   inputType(field.Widget),
			Value:       field.Text(),
			Placeholder: field.Placeholder,
			Pattern:     field.Regex,
			Error:       field.Error,
			Required:    field.Required,
			ReadOnly:    field.ReadOnly,
			Multiple:    field.Multiple,
			Choice:      field.Widget.Choice(),
			Toggle:      field.Widget.Toggle(),
		}
		if fv.Toggle {
			fv.Checked = field.Value == true
		}
		for _, opt := range field.Options {
			fv.Options = append(fv.Options, optionView{
				Value:   opt.ValueString(),
				Label:   opt.Label(),
				Checked: field.Checked(opt.Value),
			})
		}
		view.Fields = append(view.Fields, fv)
	}
	return view
}

func inputType(w forms.Widget) string {
	switch w {
	case forms.WidgetEmail, forms.WidgetNumber, forms.WidgetDate, forms.WidgetPassword,
		forms.WidgetURL, forms.WidgetTel, forms.WidgetHidden:
		return string(w)
	default:
		return "text"
	}
}
