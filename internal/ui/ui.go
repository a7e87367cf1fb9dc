package ui

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/desertthunder/halx/internal/forms"
	"github.com/desertthunder/halx/internal/hal"
	"github.com/desertthunder/halx/internal/navigation"
	"github.com/desertthunder/halx/internal/services"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	ResourceView ViewState = iota
	RawView
	FormView
)

// Client fetches resources and sends form submissions.
type Client interface {
	Resource(ctx context.Context, target any, ignoredStatuses ...int) (*hal.Document, error)
	Do(ctx context.Context, href string, opts services.RequestOptions) (*services.APIResponse, error)
}

// Model represents the TUI application state.
type Model struct {
	ctx       context.Context
	view      ViewState
	client    Client
	stack     *navigation.Stack
	submitter *forms.Submitter
	width     int
	height    int
	list      list.Model
	raw       viewport.Model
	spinner   spinner.Model
	loading   bool
	doc       *hal.Document
	form      *formModel
	submits   int
	status    string
	err       error
	help      help.Model
	keys      keyMap
	logger    *log.Logger
}

// NewModel creates a new TUI model browsing from the current entry of stack.
func NewModel(ctx context.Context, client Client, stack *navigation.Stack, logger *log.Logger) *Model {
	if logger == nil {
		logger = log.New(io.Discard)
	}

	l := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	l.SetShowHelp(false)

	return &Model{
		ctx:       ctx,
		view:      ResourceView,
		client:    client,
		stack:     stack,
		submitter: forms.NewSubmitter(client, logger),
		list:      l,
		raw:       viewport.New(0, 0),
		spinner:   spinner.New(spinner.WithSpinner(spinner.Dot)),
		help:      help.New(),
		keys:      newKeyMap(),
		logger:    logger,
	}
}

// Run starts the program on the alternate screen and blocks until it exits.
func Run(ctx context.Context, m *Model) error {
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}

// Init fetches the current resource.
func (m *Model) Init() tea.Cmd {
	return m.fetch()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.list.SetSize(msg.Width-4, msg.Height-8)
		m.raw.Width = msg.Width - 4
		m.raw.Height = msg.Height - 8
		return m, nil

	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case Msg:
		switch msg.kind {
		case MsgResourceFetched:
			return m.handleFetched(msg.data.(fetchResult))
		case MsgSubmitted:
			return m.handleSubmitted(msg.data.(submitResult))
		case MsgPrefilled:
			return m.handlePrefilled(msg.data.(prefillResult))
		}
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		switch m.view {
		case ResourceView:
			return m.handleResourceKeys(msg)
		case RawView:
			return m.handleRawKeys(msg)
		case FormView:
			return m.handleFormKeys(msg)
		}
	}

	return m.updateList(msg)
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	var b strings.Builder
	b.WriteString(styles.crumbs.Render(m.breadcrumb()))
	b.WriteString("\n\n")

	if m.loading {
		fmt.Fprintf(&b, "%s Loading %s...\n\n", m.spinner.View(), m.stack.Current().Href)
	}
	if m.err != nil {
		b.WriteString(styles.err.Render(fmt.Sprintf("Error: %v", m.err)))
		b.WriteString("\n\n")
	}
	if m.status != "" {
		b.WriteString(styles.ok.Render(m.status))
		b.WriteString("\n\n")
	}

	switch m.view {
	case ResourceView:
		b.WriteString(m.list.View())
		b.WriteString("\n\n" + m.help.ShortHelpView(m.keys.resourceHelp()))
	case RawView:
		b.WriteString(styles.warn.Render("Unrecognized response"))
		b.WriteString("\n" + m.raw.View())
		b.WriteString("\n\n" + m.help.ShortHelpView(m.keys.resourceHelp()))
	case FormView:
		b.WriteString(m.form.view())
		b.WriteString("\n" + m.help.ShortHelpView(m.keys.formHelp()))
	}
	return b.String()
}

func (m *Model) breadcrumb() string {
	entries := m.stack.Entries()
	parts := make([]string, 0, len(entries))
	for _, e := range entries {
		label := e.Title
		if label == "" {
			label = navigation.RouterPath(e.Href)
		}
		parts = append(parts, label)
	}
	return strings.Join(parts, " › ")
}

func (m *Model) fetch() tea.Cmd {
	m.loading = true
	return tea.Batch(m.spinner.Tick, m.fetchCurrent())
}

func (m *Model) fetchCurrent() tea.Cmd {
	current := m.stack.Current()
	return func() tea.Msg {
		doc, err := m.client.Resource(m.ctx, current.Target)
		return resourceFetchedMsg(current.Href, doc, err)
	}
}

func (m *Model) handleFetched(res fetchResult) (tea.Model, tea.Cmd) {
	m.loading = false
	if res.err != nil {
		m.logger.Warn("fetch failed", "href", res.href, "error", res.err)
		m.err = res.err
		return m, nil
	}

	m.err = nil
	m.doc = res.doc
	if res.doc.Kind == hal.KindUnrecognized || res.doc.Resource == nil {
		m.raw.SetContent(res.doc.Pretty())
		m.raw.GotoTop()
		m.view = RawView
		return m, nil
	}

	title := res.doc.Resource.Title()
	m.stack.SetTitle(title)
	m.list.Title = fmt.Sprintf("%s (%s)", title, res.doc.Kind)
	cmd := m.list.SetItems(itemsFor(res.doc.Resource))
	m.list.ResetSelected()
	m.view = ResourceView
	return m, cmd
}

// handlePrefilled opens the form once its target has been read. A failed read
// leaves the parent values in place. Results for a page the user has left are dropped.
func (m *Model) handlePrefilled(res prefillResult) (tea.Model, tea.Cmd) {
	if m.view != ResourceView || m.stack.Current().Href != res.from {
		m.logger.Debug("dropping stale prefill", "from", res.from)
		return m, nil
	}
	m.loading = false
	if res.err != nil {
		m.logger.Warn("prefill failed", "template", res.template.Key, "error", res.err)
	}
	cmd := m.openForm(res.template, res.data)
	if res.err != nil {
		m.form.status = styles.err.Render(fmt.Sprintf("Prefill: %v", res.err))
	}
	return m, cmd
}

// handleSubmitted applies a submit result to the form that sent it. Results of
// a cancelled form are dropped.
func (m *Model) handleSubmitted(res submitResult) (tea.Model, tea.Cmd) {
	if m.form == nil || !m.form.busy || m.form.submitID != res.id {
		m.logger.Debug("dropping stale submit result", "id", res.id)
		return m, nil
	}
	m.form.busy = false

	result := res.result
	result.ApplyTo(m.form.form)

	switch result.State {
	case forms.Success:
		m.status = fmt.Sprintf("✓ %s %s (%d)", result.Target.Method, result.Target.Target, result.Status)
		m.form = nil
		m.view = ResourceView
		return m, m.fetch()
	case forms.ValidationError:
		m.form.status = styles.err.Render(result.Validation.Error())
	default:
		m.form.status = styles.err.Render(fmt.Sprintf("Error: %v", result.Err))
	}
	return m, nil
}

func (m *Model) handleResourceKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.list.FilterState() == list.Filtering {
		return m.updateList(msg)
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		return m, m.back()
	case key.Matches(msg, m.keys.reset):
		return m, m.reset()
	case key.Matches(msg, m.keys.enter):
		if item, ok := m.list.SelectedItem().(resourceItem); ok {
			return m, m.open(item)
		}
		return m, nil
	}
	return m.updateList(msg)
}

func (m *Model) handleRawKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		return m, m.back()
	case key.Matches(msg, m.keys.reset):
		return m, m.reset()
	}
	var cmd tea.Cmd
	m.raw, cmd = m.raw.Update(msg)
	return m, cmd
}

func (m *Model) handleFormKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.cancel):
		m.form = nil
		m.view = ResourceView
		return m, nil
	case m.form.busy:
		return m, nil
	case key.Matches(msg, m.keys.submit):
		return m, m.submit()
	}
	return m, m.form.update(msg, m.keys)
}

func (m *Model) open(item resourceItem) tea.Cmd {
	m.status = ""
	if item.kind == templateItem {
		var current *hal.Resource
		if m.doc != nil {
			current = m.doc.Resource
		}
		currentURL := m.stack.Current().Href
		if forms.PrefillTarget(item.template, current, currentURL) == "" {
			data, _ := forms.Prefill(m.ctx, m.client, item.template, current, currentURL)
			return m.openForm(item.template, data)
		}

		m.loading = true
		ctx, client, t := m.ctx, m.client, item.template
		return tea.Batch(m.spinner.Tick, func() tea.Msg {
			data, err := forms.Prefill(ctx, client, t, current, currentURL)
			return prefilledMsg(currentURL, t, data, err)
		})
	}

	if err := m.stack.Navigate(item.target); err != nil {
		m.err = err
		return nil
	}
	return m.fetch()
}

func (m *Model) openForm(t hal.Template, data map[string]any) tea.Cmd {
	m.form = newFormModel(forms.NewForm(t, data))
	m.submitter.Reset()
	m.view = FormView
	return m.form.focusField(0)
}

func (m *Model) back() tea.Cmd {
	m.status = ""
	if !m.stack.Back() {
		return nil
	}
	return m.fetch()
}

func (m *Model) reset() tea.Cmd {
	m.status = ""
	m.stack.Reset()
	return m.fetch()
}

func (m *Model) submit() tea.Cmd {
	if m.form == nil || m.form.busy {
		return nil
	}
	m.submits++
	m.form.busy = true
	m.form.submitID = m.submits
	m.form.status = "Submitting..."

	id := m.submits
	req := forms.NewRequest(m.form.form, m.stack.Current().Href)
	ctx, submitter := m.ctx, m.submitter
	return func() tea.Msg {
		return submittedMsg(id, submitter.Send(ctx, req, nil))
	}
}

func (m *Model) updateList(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.view != ResourceView {
		return m, nil
	}
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}
