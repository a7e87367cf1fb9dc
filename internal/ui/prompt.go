package ui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
	"github.com/desertthunder/halx/internal/forms"
	"github.com/desertthunder/halx/internal/hal"
)

// ErrAborted signals the user aborted input (e.g., Ctrl+C).
var ErrAborted = errors.New("prompt aborted")

// noneOption is offered first by optional single-choice prompts.
const noneOption = "(none)"

// InputConfig configures a basic text input prompt.
type InputConfig struct {
	Message   string
	Default   string
	Help      string
	Validator func(string) error
}

// ConfirmConfig configures a yes/no style prompt.
type ConfirmConfig struct {
	Message string
	Default bool
	Help    string
}

// SelectConfig configures a single or multi-select prompt.
type SelectConfig struct {
	Message      string
	Options      []string
	DefaultIndex int
	Defaults     []int // used for multi-select; indices into Options
	Help         string
	PageSize     int
}

// PromptDriver abstracts the terminal prompts so form filling can be tested
// without a real terminal.
type PromptDriver interface {
	Input(ctx context.Context, cfg InputConfig) (string, error)
	Password(ctx context.Context, cfg InputConfig) (string, error)
	TextArea(ctx context.Context, cfg InputConfig) (string, error)
	Confirm(ctx context.Context, cfg ConfirmConfig) (bool, error)
	Select(ctx context.Context, cfg SelectConfig) (int, error)
	MultiSelect(ctx context.Context, cfg SelectConfig) ([]int, error)
	Info(ctx context.Context, msg string) error
}

type surveyDriver struct {
	out io.Writer
}

// NewSurveyDriver returns a [PromptDriver] backed by survey. Info messages go to out (default stdout).
func NewSurveyDriver(out io.Writer) PromptDriver {
	if out == nil {
		out = os.Stdout
	}
	return &surveyDriver{out: out}
}

func (d *surveyDriver) Input(ctx context.Context, cfg InputConfig) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var out string
	prompt := &survey.Input{Message: cfg.Message, Help: cfg.Help, Default: cfg.Default}
	if err := survey.AskOne(prompt, &out, validatorOpts(cfg)...); err != nil {
		return "", translateSurveyErr(err)
	}
	return out, nil
}

func (d *surveyDriver) Password(ctx context.Context, cfg InputConfig) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var out string
	prompt := &survey.Password{Message: cfg.Message, Help: cfg.Help}
	if err := survey.AskOne(prompt, &out, validatorOpts(cfg)...); err != nil {
		return "", translateSurveyErr(err)
	}
	return out, nil
}

func (d *surveyDriver) TextArea(ctx context.Context, cfg InputConfig) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var out string
	prompt := &survey.Multiline{Message: cfg.Message, Help: cfg.Help, Default: cfg.Default}
	if err := survey.AskOne(prompt, &out, validatorOpts(cfg)...); err != nil {
		return "", translateSurveyErr(err)
	}
	return out, nil
}

func (d *surveyDriver) Confirm(ctx context.Context, cfg ConfirmConfig) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	var out bool
	prompt := &survey.Confirm{Message: cfg.Message, Help: cfg.Help, Default: cfg.Default}
	if err := survey.AskOne(prompt, &out); err != nil {
		return false, translateSurveyErr(err)
	}
	return out, nil
}

func (d *surveyDriver) Select(ctx context.Context, cfg SelectConfig) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var out string
	prompt := &survey.Select{Message: cfg.Message, Options: cfg.Options, Help: cfg.Help}
	if cfg.PageSize > 0 {
		prompt.PageSize = cfg.PageSize
	}
	if cfg.DefaultIndex >= 0 && cfg.DefaultIndex < len(cfg.Options) {
		prompt.Default = cfg.Options[cfg.DefaultIndex]
	}
	if err := survey.AskOne(prompt, &out); err != nil {
		return 0, translateSurveyErr(err)
	}
	return indexOf(cfg.Options, out), nil
}

func (d *surveyDriver) MultiSelect(ctx context.Context, cfg SelectConfig) ([]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []string
	prompt := &survey.MultiSelect{Message: cfg.Message, Options: cfg.Options, Help: cfg.Help}
	if cfg.PageSize > 0 {
		prompt.PageSize = cfg.PageSize
	}
	if len(cfg.Defaults) > 0 {
		prompt.Default = defaultsFromIndices(cfg.Options, cfg.Defaults)
	}
	if err := survey.AskOne(prompt, &out); err != nil {
		return nil, translateSurveyErr(err)
	}
	return indicesOf(cfg.Options, out), nil
}

func (d *surveyDriver) Info(ctx context.Context, msg string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := fmt.Fprintln(d.out, msg)
	return err
}

func validatorOpts(cfg InputConfig) []survey.AskOpt {
	if cfg.Validator == nil {
		return nil
	}
	return []survey.AskOpt{survey.WithValidator(func(ans any) error {
		s, _ := ans.(string)
		return cfg.Validator(s)
	})}
}

func translateSurveyErr(err error) error {
	if errors.Is(err, terminal.InterruptErr) {
		return ErrAborted
	}
	return err
}

// Prompter fills a [forms.Form] one field at a time.
type Prompter struct {
	driver PromptDriver
}

// NewPrompter creates a prompter. A nil driver uses survey on stdout.
func NewPrompter(driver PromptDriver) *Prompter {
	if driver == nil {
		driver = NewSurveyDriver(nil)
	}
	return &Prompter{driver: driver}
}

// Fill asks for every editable field of form, starting from its current values.
// Fields with an error (e.g. from a rejected submit) show it as help text.
func (p *Prompter) Fill(ctx context.Context, form *forms.Form) error {
	if t := form.Template.DisplayTitle(); t != "" {
		if err := p.driver.Info(ctx, fmt.Sprintf("%s (%s)", t, form.Template.EffectiveMethod())); err != nil {
			return err
		}
	}

	for _, field := range form.Fields() {
		if field.ReadOnly || field.Widget == forms.WidgetHidden {
			continue
		}
		if err := p.promptField(ctx, form, field); err != nil {
			return fmt.Errorf("%s: %w", field.Name, err)
		}
	}
	return nil
}

func (p *Prompter) promptField(ctx context.Context, form *forms.Form, field *forms.Field) error {
	switch {
	case field.Widget.Toggle():
		return p.promptToggle(ctx, form, field)
	case field.Widget.Choice() && field.Multiple:
		return p.promptMulti(ctx, form, field)
	case field.Widget.Choice():
		return p.promptSelect(ctx, form, field)
	default:
		return p.promptText(ctx, form, field)
	}
}

func (p *Prompter) promptText(ctx context.Context, form *forms.Form, field *forms.Field) error {
	cfg := InputConfig{
		Message: fieldLabel(field),
		Default: field.Text(),
		Help:    fieldHelp(field),
	}
	cfg.Validator = func(s string) error {
		if msg := field.Check(textValue(field, s)); msg != "" {
			return errors.New(msg)
		}
		if field.Widget == forms.WidgetNumber && strings.TrimSpace(s) != "" {
			if _, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err != nil {
				return fmt.Errorf("not a number")
			}
		}
		return nil
	}

	var (
		answer string
		err    error
	)
	switch field.Widget {
	case forms.WidgetPassword:
		answer, err = p.driver.Password(ctx, cfg)
	case forms.WidgetTextarea:
		answer, err = p.driver.TextArea(ctx, cfg)
	default:
		answer, err = p.driver.Input(ctx, cfg)
	}
	if err != nil {
		return err
	}

	form.Set(field.Name, textValue(field, answer))
	return nil
}

// textValue converts typed text: numbers parse to float64, an empty number is nil.
func textValue(field *forms.Field, s string) any {
	if field.Widget != forms.WidgetNumber {
		return s
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		return n
	}
	return s
}

func (p *Prompter) promptToggle(ctx context.Context, form *forms.Form, field *forms.Field) error {
	answer, err := p.driver.Confirm(ctx, ConfirmConfig{
		Message: fieldLabel(field),
		Default: field.Value == true,
		Help:    fieldHelp(field),
	})
	if err != nil {
		return err
	}
	form.Set(field.Name, answer)
	return nil
}

func (p *Prompter) promptSelect(ctx context.Context, form *forms.Form, field *forms.Field) error {
	labels := optionLabels(field.Options)
	offset := 0
	if !field.Required {
		labels = append([]string{noneOption}, labels...)
		offset = 1
	}

	def := 0
	for i, opt := range field.Options {
		if field.Checked(opt.Value) {
			def = i + offset
		}
	}

	for {
		idx, err := p.driver.Select(ctx, SelectConfig{
			Message:      fieldLabel(field),
			Options:      labels,
			DefaultIndex: def,
			Help:         fieldHelp(field),
		})
		if err != nil {
			return err
		}
		switch {
		case idx < 0 || idx >= len(labels):
			if err := p.driver.Info(ctx, fmt.Sprintf("Invalid %s selection", field.Name)); err != nil {
				return err
			}
			continue
		case idx < offset:
			form.Set(field.Name, nil)
		default:
			form.Set(field.Name, field.Options[idx-offset].Value)
		}
		return nil
	}
}

func (p *Prompter) promptMulti(ctx context.Context, form *forms.Form, field *forms.Field) error {
	var defaults []int
	for i, opt := range field.Options {
		if field.Checked(opt.Value) {
			defaults = append(defaults, i)
		}
	}

	for {
		indices, err := p.driver.MultiSelect(ctx, SelectConfig{
			Message:  fieldLabel(field),
			Options:  optionLabels(field.Options),
			Defaults: defaults,
			Help:     fieldHelp(field),
		})
		if err != nil {
			return err
		}

		values := make([]any, 0, len(indices))
		for _, i := range indices {
			if i >= 0 && i < len(field.Options) {
				values = append(values, field.Options[i].Value)
			}
		}
		if msg := field.Check(values); msg != "" {
			if err := p.driver.Info(ctx, fmt.Sprintf("Invalid %s: %s", field.Name, msg)); err != nil {
				return err
			}
			continue
		}
		form.Set(field.Name, values)
		return nil
	}
}

func fieldLabel(field *forms.Field) string {
	if field.Required {
		return field.Label + " *"
	}
	return field.Label
}

func fieldHelp(field *forms.Field) string {
	if field.Error != "" {
		return "error: " + field.Error
	}
	return field.Placeholder
}

func optionLabels(options []hal.Option) []string {
	out := make([]string, len(options))
	for i, o := range options {
		out[i] = o.Label()
	}
	return out
}

func indexOf(options []string, value string) int {
	for i, option := range options {
		if option == value {
			return i
		}
	}
	return -1
}

func indicesOf(options, values []string) []int {
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		seen[v] = struct{}{}
	}
	var out []int
	for i, option := range options {
		if _, ok := seen[option]; ok {
			out = append(out, i)
		}
	}
	return out
}

func defaultsFromIndices(options []string, indices []int) []string {
	var out []string
	for _, idx := range indices {
		if idx >= 0 && idx < len(options) {
			out = append(out, options[idx])
		}
	}
	return out
}
