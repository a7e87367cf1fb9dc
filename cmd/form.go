package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/desertthunder/halx/internal/formatter"
	"github.com/desertthunder/halx/internal/forms"
	"github.com/desertthunder/halx/internal/hal"
	"github.com/desertthunder/halx/internal/shared"
	"github.com/desertthunder/halx/internal/ui"
	"github.com/urfave/cli/v3"
)

// FormShow lists the fields of a template with their current values and options.
func (r *Runner) FormShow(ctx context.Context, cmd *cli.Command) error {
	path := r.rootPath(cmd)

	doc, t, err := r.loadTemplate(ctx, path, cmd.String("template"))
	if err != nil {
		return err
	}
	form := forms.NewForm(t, r.prefill(ctx, doc, t, path))
	target := hal.TargetFor(t, path)

	r.writePlainHeader(t.DisplayTitle())
	r.writePlain("Template: %s\n", t.Key)
	r.writePlain("Submit:   %s %s\n\n", target.Method, target.Target)

	for _, f := range form.Fields() {
		r.writePlain("  %-24s %-14s %s\n", f.Name, f.Widget, fieldFlags(f))
		if v := f.Text(); v != "" {
			r.writePlain("      value:   %s\n", v)
		}
		if f.Regex != "" {
			r.writePlain("      pattern: %s\n", f.Regex)
		}
		for _, o := range f.Options {
			mark := " "
			if f.Checked(o.Value) {
				mark = "*"
			}
			r.writePlain("      %s %s = %s\n", mark, o.Label(), o.ValueString())
		}
	}

	if others := otherTemplates(doc.Resource, t.Key); len(others) > 0 {
		r.writePlainln("Other templates: %s", strings.Join(others, ", "))
	}
	return nil
}

// FormSubmit fills a template from --data, --set and optional prompts, then submits it.
//
// In interactive mode a rejected submit re-prompts with the server's field errors.
func (r *Runner) FormSubmit(ctx context.Context, cmd *cli.Command) error {
	path := r.rootPath(cmd)
	interactive := cmd.Bool("interactive")

	doc, t, err := r.loadTemplate(ctx, path, cmd.String("template"))
	if err != nil {
		return err
	}
	form := forms.NewForm(t, r.prefill(ctx, doc, t, path))

	if data := cmd.String("data"); data != "" {
		var values map[string]any
		if err := json.Unmarshal([]byte(data), &values); err != nil {
			return fmt.Errorf("%w: --data must be a JSON object: %v", shared.ErrInvalidInput, err)
		}
		form.Apply(values)
	}

	if sets := cmd.StringSlice("set"); len(sets) > 0 {
		values, err := assignments(t, sets)
		if err != nil {
			return err
		}
		form.Apply(values)
	}

	submitter := forms.NewSubmitter(r.api, r.logger)
	prompter := ui.NewPrompter(r.driver)

	for {
		if interactive {
			if err := prompter.Fill(ctx, form); err != nil {
				if errors.Is(err, ui.ErrAborted) {
					return r.writePlain("Cancelled\n")
				}
				return err
			}
		}

		result := submitter.Submit(ctx, form, path, nil)
		switch result.State {
		case forms.Success:
			return r.reportSubmit(result)
		case forms.ValidationError:
			r.output.Write(formatter.RenderErrors(result.Validation))
			if interactive {
				continue
			}
			return result.Validation
		default:
			return result.Cause()
		}
	}
}

func (r *Runner) reportSubmit(result forms.Result) error {
	r.logger.Info("form submitted", "method", result.Target.Method, "target", result.Target.Target, "status", result.Status)
	r.writePlain("✓ %s %s (%d)\n", result.Target.Method, result.Target.Target, result.Status)

	if m, ok := result.Data.(map[string]any); ok && len(m) == 0 {
		return nil
	}
	if result.Data == nil {
		return nil
	}
	return r.writeJSON(result.Data, true)
}

// loadTemplate fetches path and picks the template named key, or the primary one.
func (r *Runner) loadTemplate(ctx context.Context, path, key string) (*hal.Document, hal.Template, error) {
	doc, err := r.api.Resource(ctx, hal.URL(path))
	if err != nil {
		return nil, hal.Template{}, err
	}
	if doc.Resource == nil || len(doc.Resource.Templates) == 0 {
		return nil, hal.Template{}, fmt.Errorf("%w: %s has no templates", shared.ErrTemplateNotFound, path)
	}

	var (
		t  hal.Template
		ok bool
	)
	if key == "" {
		t, ok = doc.Resource.PrimaryTemplate()
	} else {
		t, ok = doc.Resource.Template(key)
	}
	if !ok {
		return nil, hal.Template{}, fmt.Errorf("%w: %q on %s (available: %s)",
			shared.ErrTemplateNotFound, key, path, strings.Join(doc.Resource.TemplateOrder, ", "))
	}
	return doc, t, nil
}

// prefill loads initial values for t. A failing target fetch is logged and the
// parent attributes are used.
func (r *Runner) prefill(ctx context.Context, doc *hal.Document, t hal.Template, path string) map[string]any {
	data, err := forms.Prefill(ctx, r.api, t, doc.Resource, path)
	if err != nil {
		r.logger.Warn("prefill failed", "template", t.Key, "error", err)
	}
	return data
}

// assignments decodes name=value pairs for t, keeping only the names that were given.
func assignments(t hal.Template, pairs []string) (map[string]any, error) {
	raw, err := forms.ParseAssignments(pairs)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}

	decoded := forms.DecodeValues(t, raw)
	out := map[string]any{}
	for name := range raw {
		if _, ok := t.Property(name); !ok {
			return nil, fmt.Errorf("%w: %q is not a field of %s", shared.ErrInvalidArgument, name, t.Key)
		}
		if v, ok := hal.LookupNestedValue(decoded, name); ok {
			out = hal.SetNestedValue(out, name, v)
		}
	}
	return out, nil
}

func fieldFlags(f *forms.Field) string {
	var flags []string
	if f.Required {
		flags = append(flags, "required")
	}
	if f.ReadOnly {
		flags = append(flags, "read-only")
	}
	if f.Multiple {
		flags = append(flags, "multiple")
	}
	return strings.Join(flags, ",")
}

func otherTemplates(res *hal.Resource, key string) []string {
	var out []string
	for _, k := range res.TemplateOrder {
		if k != key {
			out = append(out, k)
		}
	}
	return out
}
