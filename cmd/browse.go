package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/desertthunder/halx/internal/formatter"
	"github.com/desertthunder/halx/internal/hal"
	"github.com/desertthunder/halx/internal/navigation"
	"github.com/desertthunder/halx/internal/shared"
	"github.com/urfave/cli/v3"
)

// Browse fetches one resource and renders it in the requested format.
func (r *Runner) Browse(ctx context.Context, cmd *cli.Command) error {
	path := r.rootPath(cmd)
	format := strings.ToLower(cmd.String("format"))

	doc, err := r.api.Resource(ctx, hal.URL(path))
	if err != nil {
		return err
	}
	r.logger.Debug("fetched resource", "path", path, "kind", doc.Kind)

	if rec := r.recorder(); rec != nil {
		_ = rec.Record(navigation.Entry{Target: hal.URL(path), Href: path, Title: titleOf(doc)})
	}

	data, err := render(doc, format, cmd.String("rel"))
	if err != nil {
		return err
	}

	if out := cmd.String("output"); out != "" {
		if err := os.WriteFile(out, data, 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", out, err)
		}
		r.logger.Info("resource written", "file", out, "format", format)
		return r.writePlain("✓ Written to %s\n", out)
	}

	_, err = r.output.Write(data)
	return err
}

func render(doc *hal.Document, format, rel string) ([]byte, error) {
	switch format {
	case "", "text", "txt":
		return formatter.ExportToText(doc)
	case "markdown", "md":
		return formatter.ExportToMarkdown(doc)
	case "csv":
		return formatter.ExportToCSV(doc, rel)
	case "json":
		data, err := formatter.ToAttributesJSON(doc)
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	case "raw":
		return []byte(doc.Pretty() + "\n"), nil
	default:
		return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidFlag, format)
	}
}

func titleOf(doc *hal.Document) string {
	if doc.Resource == nil {
		return ""
	}
	return doc.Resource.Title()
}
