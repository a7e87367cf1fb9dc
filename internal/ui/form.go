package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/halx/internal/forms"
)

// formModel edits one template. Text-like fields use a [textinput.Model]; choice
// and toggle fields are driven by the option cursor.
type formModel struct {
	form   *forms.Form
	fields []*forms.Field
	inputs []textinput.Model
	cursor []int
	focus  int
	status string

	// busy is set while the submit tagged submitID is in flight; edits are ignored.
	busy     bool
	submitID int
}

func newFormModel(f *forms.Form) *formModel {
	m := &formModel{form: f}
	for _, field := range f.Fields() {
		if field.ReadOnly || field.Widget == forms.WidgetHidden {
			continue
		}

		ti := textinput.New()
		ti.Prompt = ""
		if isText(field) {
			ti.SetValue(field.Text())
			ti.Placeholder = field.Placeholder
			if field.Widget == forms.WidgetPassword {
				ti.EchoMode = textinput.EchoPassword
			}
		}

		m.fields = append(m.fields, field)
		m.inputs = append(m.inputs, ti)
		m.cursor = append(m.cursor, 0)
	}
	return m
}

func isText(field *forms.Field) bool {
	return !field.Widget.Toggle() && !field.Widget.Choice()
}

func (m *formModel) focusField(i int) tea.Cmd {
	if len(m.fields) == 0 {
		return nil
	}
	for j := range m.inputs {
		m.inputs[j].Blur()
	}
	m.focus = (i + len(m.fields)) % len(m.fields)
	if isText(m.fields[m.focus]) {
		return m.inputs[m.focus].Focus()
	}
	return nil
}

func (m *formModel) update(msg tea.KeyMsg, keys keyMap) tea.Cmd {
	if len(m.fields) == 0 {
		return nil
	}

	switch {
	case key.Matches(msg, keys.next):
		return m.focusField(m.focus + 1)
	case key.Matches(msg, keys.prev):
		return m.focusField(m.focus - 1)
	}

	field := m.fields[m.focus]
	switch {
	case isText(field):
		var cmd tea.Cmd
		m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
		field.OnChange(textValue(field, m.inputs[m.focus].Value()))
		return cmd

	case field.Widget.Toggle():
		if key.Matches(msg, keys.toggle) {
			field.OnChange(field.Value != true)
		}

	default:
		n := len(field.Options)
		if n == 0 {
			return nil
		}
		switch {
		case key.Matches(msg, keys.left):
			m.cursor[m.focus] = (m.cursor[m.focus] + n - 1) % n
		case key.Matches(msg, keys.right):
			m.cursor[m.focus] = (m.cursor[m.focus] + 1) % n
		case key.Matches(msg, keys.toggle):
			opt := field.Options[m.cursor[m.focus]]
			checked := field.Checked(opt.Value)
			switch {
			case field.Multiple:
				field.Toggle(opt.Value, !checked)
			case checked && !field.Required:
				field.OnChange(nil)
			default:
				field.OnChange(opt.Value)
			}
		}
	}
	return nil
}

func (m *formModel) view() string {
	var b strings.Builder
	t := m.form.Template
	b.WriteString(styles.title.Render(fmt.Sprintf("%s (%s)", t.DisplayTitle(), t.EffectiveMethod())))
	b.WriteString("\n")

	for i, field := range m.fields {
		marker := "  "
		if i == m.focus {
			marker = styles.focus.Render("> ")
		}

		name := field.Label
		if field.Required {
			name += " *"
		}
		fmt.Fprintf(&b, "%s%s: %s\n", marker, name, m.fieldView(i, field))

		if field.Error != "" {
			fmt.Fprintf(&b, "    %s\n", styles.err.Render(field.Error))
		}
	}

	if m.status != "" {
		b.WriteString("\n" + m.status + "\n")
	}
	return b.String()
}

func (m *formModel) fieldView(i int, field *forms.Field) string {
	switch {
	case isText(field):
		return m.inputs[i].View()
	case field.Widget.Toggle():
		if field.Value == true {
			return "[x]"
		}
		return "[ ]"
	}

	parts := make([]string, 0, len(field.Options))
	for j, opt := range field.Options {
		mark := "( )"
		if field.Multiple {
			mark = "[ ]"
		}
		if field.Checked(opt.Value) {
			mark = strings.Replace(strings.Replace(mark, "( )", "(•)", 1), "[ ]", "[x]", 1)
		}
		text := mark + " " + opt.Label()
		if i == m.focus && j == m.cursor[i] {
			text = styles.focus.Render(text)
		}
		parts = append(parts, text)
	}
	return strings.Join(parts, "  ")
}
