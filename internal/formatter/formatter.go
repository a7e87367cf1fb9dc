// package formatter renders HAL documents as CSV, Markdown and plain text
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/desertthunder/halx/internal/hal"
	"github.com/desertthunder/halx/internal/services"
	"github.com/desertthunder/halx/internal/shared"
)

// Columns returns the sorted union of scalar attribute keys of items.
func Columns(items []hal.Resource) []string {
	seen := map[string]bool{}
	for _, item := range items {
		for k, v := range item.Attributes {
			if isScalar(v) {
				seen[k] = true
			}
		}
	}

	cols := make([]string, 0, len(seen))
	for k := range seen {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return cols
}

// ExportToCSV writes the embedded items under rel as CSV, one column per scalar
// attribute. An empty rel selects the first embedded relation.
func ExportToCSV(doc *hal.Document, rel string) ([]byte, error) {
	_, items := doc.Items(rel)

	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := Columns(items)
	if len(headers) == 0 {
		return nil, fmt.Errorf("%w: no tabular items under %q", shared.ErrInvalidInput, rel)
	}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, item := range items {
		record := make([]string, len(headers))
		for i, h := range headers {
			if v, ok := item.Attributes[h]; ok && isScalar(v) {
				record[i] = hal.Stringify(v)
			}
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown renders attributes, links, embedded collections and templates.
func ExportToMarkdown(doc *hal.Document) ([]byte, error) {
	var buf bytes.Buffer
	r := resourceOf(doc)

	buf.WriteString(fmt.Sprintf("# %s\n\n", titleOf(r)))
	buf.WriteString(fmt.Sprintf("**Kind**: %s\n", doc.Kind))
	if self := r.Self(); self != "" {
		buf.WriteString(fmt.Sprintf("**Self**: `%s`\n", self))
	}
	buf.WriteString("\n")

	if keys := attributeKeys(r); len(keys) > 0 {
		buf.WriteString("## Attributes\n\n| Name | Value |\n| --- | --- |\n")
		for _, k := range keys {
			buf.WriteString(fmt.Sprintf("| %s | %s |\n", k, escapeCell(hal.Stringify(r.Attributes[k]))))
		}
		buf.WriteString("\n")
	}

	if rels := r.Links.Rels(); len(rels) > 0 {
		buf.WriteString("## Links\n\n")
		for _, rel := range rels {
			for _, l := range r.Links[rel] {
				templated := ""
				if l.Templated {
					templated = " _(templated)_"
				}
				buf.WriteString(fmt.Sprintf("- **%s**: [%s](%s)%s\n", rel, l.Label(rel), l.Href, templated))
			}
		}
		buf.WriteString("\n")
	}

	for _, rel := range r.EmbeddedRels() {
		items := r.Embedded[rel]
		buf.WriteString(fmt.Sprintf("## %s (%d)\n\n", rel, len(items)))

		cols := Columns(items)
		if len(cols) == 0 {
			for i := range items {
				buf.WriteString(fmt.Sprintf("%d. %s\n", i+1, items[i].Title()))
			}
			buf.WriteString("\n")
			continue
		}

		buf.WriteString("| " + strings.Join(cols, " | ") + " |\n")
		buf.WriteString("|" + strings.Repeat(" --- |", len(cols)) + "\n")
		for _, item := range items {
			cells := make([]string, len(cols))
			for i, c := range cols {
				cells[i] = escapeCell(hal.Stringify(item.Attributes[c]))
			}
			buf.WriteString("| " + strings.Join(cells, " | ") + " |\n")
		}
		buf.WriteString("\n")
	}

	for _, t := range r.OrderedTemplates() {
		buf.WriteString(fmt.Sprintf("## Form: %s\n\n", t.DisplayTitle()))
		target := t.Target
		if target == "" {
			target = "(this resource)"
		}
		buf.WriteString(fmt.Sprintf("`%s %s`\n\n", t.EffectiveMethod(), target))
		for _, p := range t.Properties {
			buf.WriteString(fmt.Sprintf("- `%s` %s%s\n", p.Name, p.Label(), propertyFlags(p)))
		}
		buf.WriteString("\n")
	}

	return buf.Bytes(), nil
}

// ExportToText renders a compact plain text view.
func ExportToText(doc *hal.Document) ([]byte, error) {
	var buf bytes.Buffer
	r := resourceOf(doc)

	buf.WriteString(fmt.Sprintf("%s [%s]\n", titleOf(r), doc.Kind))
	if self := r.Self(); self != "" {
		buf.WriteString(fmt.Sprintf("Self: %s\n", self))
	}

	if keys := attributeKeys(r); len(keys) > 0 {
		buf.WriteString("\n")
		for _, k := range keys {
			buf.WriteString(fmt.Sprintf("%s: %s\n", k, hal.Stringify(r.Attributes[k])))
		}
	}

	if rels := r.Links.Rels(); len(rels) > 0 {
		buf.WriteString("\nLinks:\n")
		for _, rel := range rels {
			for _, l := range r.Links[rel] {
				buf.WriteString(fmt.Sprintf("  %s -> %s\n", rel, l.Href))
			}
		}
	}

	for _, rel := range r.EmbeddedRels() {
		items := r.Embedded[rel]
		buf.WriteString(fmt.Sprintf("\n%s (%d):\n", rel, len(items)))
		for i := range items {
			buf.WriteString(fmt.Sprintf("%d. %s\n", i+1, items[i].Title()))
		}
	}

	for _, t := range r.OrderedTemplates() {
		buf.WriteString(fmt.Sprintf("\nForm %q: %s %s\n", t.Key, t.EffectiveMethod(), t.Target))
		for _, p := range t.Properties {
			buf.WriteString(fmt.Sprintf("  - %s%s\n", p.Name, propertyFlags(p)))
		}
	}

	return buf.Bytes(), nil
}

// RenderErrors lists validation messages as "field: message" lines.
func RenderErrors(fv *services.FormValidationError) []byte {
	var buf bytes.Buffer
	if fv == nil {
		return nil
	}
	buf.WriteString(fv.Message + "\n")
	for _, field := range fv.Fields() {
		buf.WriteString(fmt.Sprintf("  %s: %s\n", field, fv.ValidationErrors[field]))
	}
	return buf.Bytes()
}

// ToAttributesJSON generates a JSON representation of the resource attributes (without links or embedded items)
func ToAttributesJSON(doc *hal.Document) ([]byte, error) {
	return shared.MarshalJSON(resourceOf(doc).Data(), true)
}

// CSVExportResult contains the paths of files created by WriteCSVExport
type CSVExportResult struct {
	ItemsFile      string
	AttributesFile string
}

// WriteCSVExport exports embedded items to CSV with an accompanying attributes JSON file.
//
// Creates {base}_items.csv and {base}_attributes.json
func WriteCSVExport(doc *hal.Document, rel, baseFilepath string) (*CSVExportResult, error) {
	if baseFilepath == "" {
		baseFilepath = Slug(resourceOf(doc).Self())
	}

	csvData, err := ExportToCSV(doc, rel)
	if err != nil {
		return nil, fmt.Errorf("failed to generate CSV: %w", err)
	}

	itemsFile := baseFilepath + "_items.csv"
	if err := os.WriteFile(itemsFile, csvData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write CSV file: %w", err)
	}

	attrs, err := ToAttributesJSON(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to generate attributes JSON: %w", err)
	}

	attributesFile := baseFilepath + "_attributes.json"
	if err := os.WriteFile(attributesFile, attrs, 0644); err != nil {
		return nil, fmt.Errorf("failed to write attributes file: %w", err)
	}

	return &CSVExportResult{
		ItemsFile:      itemsFile,
		AttributesFile: attributesFile,
	}, nil
}

// WriteMarkdownExport writes {dir}/README.md.
func WriteMarkdownExport(doc *hal.Document, outputDir string) (string, error) {
	if outputDir == "" {
		outputDir = Slug(resourceOf(doc).Self())
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	mdData, err := ExportToMarkdown(doc)
	if err != nil {
		return "", fmt.Errorf("failed to generate Markdown: %w", err)
	}

	mdFile := filepath.Join(outputDir, "README.md")
	if err := os.WriteFile(mdFile, mdData, 0644); err != nil {
		return "", fmt.Errorf("failed to write Markdown file: %w", err)
	}

	return mdFile, nil
}

// WriteTextExport exports a resource to plain text.
func WriteTextExport(doc *hal.Document, path string) (string, error) {
	if path == "" {
		path = Slug(resourceOf(doc).Self()) + ".txt"
	}

	textData, err := ExportToText(doc)
	if err != nil {
		return "", fmt.Errorf("failed to generate text: %w", err)
	}

	if err := os.WriteFile(path, textData, 0644); err != nil {
		return "", fmt.Errorf("failed to write text file: %w", err)
	}

	return path, nil
}

// WriteJSONExport writes the raw document, indented.
func WriteJSONExport(doc *hal.Document, path string) (string, error) {
	if path == "" {
		path = Slug(resourceOf(doc).Self()) + ".json"
	}

	if err := os.WriteFile(path, []byte(doc.Pretty()), 0644); err != nil {
		return "", fmt.Errorf("failed to write JSON file: %w", err)
	}
	return path, nil
}

// WriteBulkExportManifest writes manifest as indented JSON.
func WriteBulkExportManifest(manifest any, path string) error {
	data, err := shared.MarshalJSON(manifest, true)
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}

// Slug turns an href into a file name, e.g. "/api/members/5" becomes "api_members_5".
//
// Any character besides letters, digits, '-' and '/' is folded into '_', so
// such hrefs get a hash suffix ("api_a_b-73805b6a") to keep names distinct.
func Slug(href string) string {
	if i := strings.Index(href, "://"); i >= 0 {
		href = href[i+3:]
		if j := strings.Index(href, "/"); j >= 0 {
			href = href[j:]
		}
	}
	href = strings.Trim(href, "/")

	var b strings.Builder
	lossy := false
	for _, r := range href {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
			b.WriteRune(r)
		case r == '/':
			b.WriteRune('_')
		default:
			lossy = true
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "root"
	}
	if lossy {
		h := fnv.New32a()
		h.Write([]byte(href))
		fmt.Fprintf(&b, "-%08x", h.Sum32())
	}
	return b.String()
}

func resourceOf(doc *hal.Document) *hal.Resource {
	if doc == nil || doc.Resource == nil {
		return &hal.Resource{}
	}
	return doc.Resource
}

func titleOf(r *hal.Resource) string {
	if t := r.Title(); t != "" {
		return t
	}
	return "Untitled resource"
}

func attributeKeys(r *hal.Resource) []string {
	keys := make([]string, 0, len(r.Attributes))
	for k := range r.Attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func propertyFlags(p hal.Property) string {
	var flags []string
	if p.Type != "" {
		flags = append(flags, p.Type)
	}
	if p.Required {
		flags = append(flags, "required")
	}
	if p.ReadOnly {
		flags = append(flags, "read-only")
	}
	if p.Multiple {
		flags = append(flags, "multiple")
	}
	if len(flags) == 0 {
		return ""
	}
	return " (" + strings.Join(flags, ", ") + ")"
}

func isScalar(v any) bool {
	switch v.(type) {
	case []any, map[string]any:
		return false
	}
	return true
}

func escapeCell(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, "|", `\|`), "\n", " ")
}
