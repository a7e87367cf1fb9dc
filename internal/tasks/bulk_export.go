package tasks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/desertthunder/halx/internal/formatter"
	"github.com/desertthunder/halx/internal/hal"
	"github.com/desertthunder/halx/internal/shared"
)

// BulkExportOpts contains configuration for exporting crawled resources.
type BulkExportOpts struct {
	Format     string // Export format: json, csv, markdown, txt
	OutputDir  string // Base output directory (default: halx_export_{epoch})
	NumWorkers int    // Concurrent workers (default: 5)
	Rel        string // Embedded relation exported by the csv format (default: first)
}

// ResourceExportJob is one resource queued for export.
type ResourceExportJob struct {
	Node *Node
}

// ResourceExportResult reports the files written for one resource.
type ResourceExportResult struct {
	Href    string   `json:"href"`
	Kind    string   `json:"kind"`
	Success bool     `json:"success"`
	Files   []string `json:"files,omitempty"`
	Error   error    `json:"-"`
	Message string   `json:"error,omitempty"`
}

// BulkExportResult summarises an export.
type BulkExportResult struct {
	Root              string                 `json:"root"`
	Format            string                 `json:"format"`
	TotalResources    int                    `json:"total_resources"`
	SuccessfulExports int                    `json:"successful_exports"`
	FailedExports     int                    `json:"failed_exports"`
	OutputDirectory   string                 `json:"output_directory"`
	ManifestPath      string                 `json:"-"`
	ExportedAt        time.Time              `json:"exported_at"`
	Results           []ResourceExportResult `json:"results"`
}

// Export writes every crawled resource concurrently and records a manifest.
//
// This method implements a worker pool pattern. Partial failures are reported per
// resource; only output directory and manifest failures are errors.
func (c *Crawler) Export(ctx context.Context, prog chan<- ProgressUpdate, crawl *CrawlResult, opts BulkExportOpts) (*BulkExportResult, error) {
	if crawl == nil {
		return nil, fmt.Errorf("%w: nothing to export", shared.ErrInvalidInput)
	}

	if opts.Format == "" {
		opts.Format = "json"
	}
	if opts.OutputDir == "" {
		opts.OutputDir = fmt.Sprintf("halx_export_%d", time.Now().Unix())
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 5
	}
	if opts.NumWorkers > 10 {
		opts.NumWorkers = 10
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	total := len(crawl.Nodes)
	result := &BulkExportResult{
		Root:            crawl.Root,
		Format:          opts.Format,
		TotalResources:  total,
		OutputDirectory: opts.OutputDir,
		ExportedAt:      time.Now().UTC(),
		Results:         make([]ResourceExportResult, 0, total),
	}

	jobs := make(chan ResourceExportJob, total)
	results := make(chan ResourceExportResult, total)

	var wg sync.WaitGroup
	for i := 0; i < opts.NumWorkers; i++ {
		wg.Add(1)
		go c.exportWorker(ctx, &wg, jobs, results, opts)
	}

	go func() {
		defer close(jobs)
		for i, node := range crawl.Nodes {
			select {
			case <-ctx.Done():
				return
			default:
			}
			c.sendProgress(prog, exportingUpdate(i+1, total, node.Href))
			jobs <- ResourceExportJob{Node: node}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	completed := 0
	for res := range results {
		completed++

		if res.Success {
			result.SuccessfulExports++
			c.sendProgress(prog, exportCompletedUpdate(completed, total, res.Href, len(res.Files)))
		} else {
			result.FailedExports++
			res.Message = res.Error.Error()
			c.sendProgress(prog, exportFailedUpdate(completed, total, res.Href, res.Error))
		}
		result.Results = append(result.Results, res)
	}

	manifestPath := filepath.Join(opts.OutputDir, "export_manifest.json")
	if err := formatter.WriteBulkExportManifest(result, manifestPath); err != nil {
		return result, fmt.Errorf("export completed but failed to write manifest: %w", err)
	}
	result.ManifestPath = manifestPath
	return result, ctx.Err()
}

// exportWorker is a worker goroutine that exports resources from the jobs channel.
func (c *Crawler) exportWorker(ctx context.Context, wg *sync.WaitGroup, jobs <-chan ResourceExportJob, results chan<- ResourceExportResult, opts BulkExportOpts) {
	defer wg.Done()

	for job := range jobs {
		select {
		case <-ctx.Done():
			return
		default:
		}

		results <- exportSingleResource(job, opts)
	}
}

// exportSingleResource writes one resource in the requested format.
func exportSingleResource(j ResourceExportJob, opts BulkExportOpts) ResourceExportResult {
	result := ResourceExportResult{
		Href:  j.Node.Href,
		Kind:  j.Node.Kind.String(),
		Files: []string{},
	}

	doc := j.Node.Document
	if doc == nil {
		doc = &hal.Document{Raw: j.Node.Body}
	}
	base := filepath.Join(opts.OutputDir, formatter.Slug(j.Node.Href))

	switch opts.Format {
	case "csv":
		if doc.Kind != hal.KindCollection {
			path, err := formatter.WriteJSONExport(doc, base+".json")
			if err != nil {
				result.Error = fmt.Errorf("JSON export failed: %w", err)
				return result
			}
			result.Files = []string{path}
			break
		}
		csvRes, err := formatter.WriteCSVExport(doc, opts.Rel, base)
		if err != nil {
			result.Error = fmt.Errorf("CSV export failed: %w", err)
			return result
		}
		result.Files = []string{csvRes.ItemsFile, csvRes.AttributesFile}

	case "markdown":
		path, err := formatter.WriteMarkdownExport(doc, base)
		if err != nil {
			result.Error = fmt.Errorf("markdown export failed: %w", err)
			return result
		}
		result.Files = []string{path}

	case "txt":
		path, err := formatter.WriteTextExport(doc, base+".txt")
		if err != nil {
			result.Error = fmt.Errorf("text export failed: %w", err)
			return result
		}
		result.Files = []string{path}

	case "json":
		fallthrough
	default:
		path, err := formatter.WriteJSONExport(doc, base+".json")
		if err != nil {
			result.Error = fmt.Errorf("JSON export failed: %w", err)
			return result
		}
		result.Files = []string{path}
	}

	result.Success = true
	return result
}
