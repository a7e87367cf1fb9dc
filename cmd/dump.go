package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/desertthunder/halx/internal/shared"
	"github.com/desertthunder/halx/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Dump crawls the link graph below a resource, caches what it fetched and prints
// the graph. With --export every resource is also written to disk.
func (r *Runner) Dump(ctx context.Context, cmd *cli.Command) error {
	root := r.rootPath(cmd)
	depth := int(cmd.Int("depth"))

	opts := tasks.CrawlOptsFrom(r.config.Crawler)
	opts.MaxResources = int(cmd.Int("max"))

	crawler := tasks.NewCrawler(r.api, r.cacher(), opts, r.logger)

	r.logger.Info("crawling", "root", root, "depth", depth)
	r.writePlain("Crawling %s...\n\n", root)

	progressCh, done := r.printProgress()
	result, err := crawler.Run(ctx, root, depth, progressCh)
	close(progressCh)
	<-done

	if err != nil && result == nil {
		return err
	}
	if err != nil {
		r.logger.Warn("crawl interrupted", "error", err)
	}

	r.writePlain("\n")
	r.writePlainHeader("Crawl Complete!")
	r.writePlain("Root: %s\n", result.Root)
	r.writePlain("Resources: %d (%d failed)\n", len(result.Nodes), len(result.Errors))
	r.writePlain("Duration: %s\n\n", result.Duration.Round(time.Millisecond))

	dump := result.Dump()

	if save := cmd.String("save"); save != "" {
		data, err := shared.MarshalJSON(dump, true)
		if err != nil {
			return fmt.Errorf("failed to marshal dump: %w", err)
		}
		if err := os.WriteFile(save, data, 0644); err != nil {
			r.logger.Warn("failed to save dump", "error", err)
		} else {
			r.logger.Info("dump saved", "file", save)
			r.writePlain("✓ Dump saved to %s\n\n", save)
		}
	}

	if format := cmd.String("export"); format != "" {
		return r.export(ctx, crawler, result, cmd, format)
	}

	return r.writeJSON(dump, cmd.Bool("pretty"))
}

func (r *Runner) export(ctx context.Context, crawler *tasks.Crawler, result *tasks.CrawlResult, cmd *cli.Command, format string) error {
	progressCh, done := r.printProgress()
	summary, err := crawler.Export(ctx, progressCh, result, tasks.BulkExportOpts{
		Format:     format,
		OutputDir:  cmd.String("export-dir"),
		NumWorkers: int(cmd.Int("workers")),
	})
	close(progressCh)
	<-done

	if summary == nil {
		return err
	}

	r.writePlain("\n")
	r.writePlainHeader("Export Complete!")
	r.writePlain("Format: %s\n", summary.Format)
	r.writePlain("Exported: %d/%d\n", summary.SuccessfulExports, summary.TotalResources)
	r.writePlain("Directory: %s\n", summary.OutputDirectory)
	if summary.ManifestPath != "" {
		r.writePlain("Manifest: %s\n", summary.ManifestPath)
	}

	if summary.FailedExports > 0 {
		r.writePlain("\nFailed to export %d resources:\n", summary.FailedExports)
		for _, res := range summary.Results {
			if !res.Success {
				r.writePlain("  - %s: %s\n", res.Href, res.Message)
			}
		}
	}
	return err
}

// printProgress prints crawler updates until the returned channel is closed;
// done is closed once everything has been written.
func (r *Runner) printProgress() (chan tasks.ProgressUpdate, <-chan struct{}) {
	progressCh := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})

	go func() {
		defer close(done)
		for update := range progressCh {
			switch update.Phase {
			case tasks.FetchRoot:
				r.writePlain("📥 %s\n", update.Message)
			case tasks.FollowLinks:
				r.writePlain("   %s\n", update.Message)
			case tasks.CacheResources:
				if update.Step == 1 {
					r.writePlain("\n💾 Caching %d resources\n", update.Total)
				}
			case tasks.ExportResources:
				r.writePlain("   %s\n", update.Message)
			}
		}
	}()

	return progressCh, done
}
