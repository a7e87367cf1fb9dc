package forms

import "strings"

// Widget is the input control used to edit a field.
type Widget string

const (
	WidgetText          Widget = "text"
	WidgetEmail         Widget = "email"
	WidgetNumber        Widget = "number"
	WidgetDate          Widget = "date"
	WidgetTextarea      Widget = "textarea"
	WidgetSelect        Widget = "select"
	WidgetCheckboxGroup Widget = "checkboxGroup"
	WidgetRadioGroup    Widget = "radioGroup"
	WidgetCheckbox      Widget = "checkbox"
	WidgetBoolean       Widget = "boolean"
	WidgetPassword      Widget = "password"
	WidgetURL           Widget = "url"
	WidgetTel           Widget = "tel"
	WidgetHidden        Widget = "hidden"
)

var widgets = map[string]Widget{
	"text":          WidgetText,
	"email":         WidgetEmail,
	"number":        WidgetNumber,
	"range":         WidgetNumber,
	"date":          WidgetDate,
	"datetime":      WidgetDate,
	"textarea":      WidgetTextarea,
	"select":        WidgetSelect,
	"checkboxgroup": WidgetCheckboxGroup,
	"radiogroup":    WidgetRadioGroup,
	"radio":         WidgetRadioGroup,
	"checkbox":      WidgetCheckbox,
	"boolean":       WidgetBoolean,
	"password":      WidgetPassword,
	"url":           WidgetURL,
	"tel":           WidgetTel,
	"hidden":        WidgetHidden,
}

// WidgetFor maps a HAL-FORMS property type to a widget.
//
// Unknown or empty types fall back to a select when inline options are present and
// to text otherwise.
func WidgetFor(propType string, hasOptions, multiple bool) Widget {
	w, ok := widgets[strings.ToLower(strings.TrimSpace(propType))]
	if !ok {
		switch {
		case hasOptions && multiple:
			return WidgetCheckboxGroup
		case hasOptions:
			return WidgetSelect
		default:
			return WidgetText
		}
	}
	return w
}

// Choice reports whether the widget picks from a list of options.
func (w Widget) Choice() bool {
	switch w {
	case WidgetSelect, WidgetCheckboxGroup, WidgetRadioGroup:
		return true
	}
	return false
}

// Toggle reports whether the widget edits a boolean.
func (w Widget) Toggle() bool {
	return w == WidgetCheckbox || w == WidgetBoolean
}
