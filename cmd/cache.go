package main

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/halx/internal/shared"
	"github.com/urfave/cli/v3"
)

// CacheList lists resources stored by 'halx dump'.
func (r *Runner) CacheList(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireDB(); err != nil {
		return err
	}

	resources, err := r.resources.List(map[string]any{
		"kind":   cmd.String("kind"),
		"prefix": cmd.String("prefix"),
		"limit":  int(cmd.Int("limit")),
	})
	if err != nil {
		return err
	}

	if len(resources) == 0 {
		return r.writePlain("No cached resources\n")
	}

	now := time.Now()
	r.writePlainHeader(fmt.Sprintf("Cached resources (%d)", len(resources)))
	for _, res := range resources {
		r.writePlain("%-13s %3d  %-8s %s\n", res.Kind, res.Status, age(res.Age(now)), res.Href)
	}
	return nil
}

// CacheShow prints the cached body of one resource.
func (r *Runner) CacheShow(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireDB(); err != nil {
		return err
	}

	href := cmd.StringArg("href")
	if href == "" {
		return fmt.Errorf("%w: href", shared.ErrMissingArgument)
	}

	resolved, err := r.api.ResolveURL(href)
	if err != nil {
		return err
	}

	res, err := r.resources.GetByHref(resolved)
	if err != nil {
		return err
	}
	return r.writeBody(res.Body, true)
}

// CacheClear deletes cached resources, optionally only those older than --older-than.
func (r *Runner) CacheClear(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireDB(); err != nil {
		return err
	}

	var (
		n   int64
		err error
	)
	if older := cmd.Duration("older-than"); older > 0 {
		n, err = r.resources.Purge(time.Now().Add(-older))
	} else {
		n, err = r.resources.Clear()
	}
	if err != nil {
		return err
	}

	r.logger.Info("cache cleared", "removed", n)
	return r.writePlain("✓ Removed %d cached resources\n", n)
}

// HistoryList prints visited resources, oldest first.
func (r *Runner) HistoryList(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireDB(); err != nil {
		return err
	}

	entries, err := r.history.List(map[string]any{
		"session_id": cmd.String("session"),
		"limit":      int(cmd.Int("limit")),
	})
	if err != nil {
		return err
	}

	if len(entries) == 0 {
		return r.writePlain("No history\n")
	}

	for _, e := range entries {
		title := e.Title
		if title == "" {
			title = "-"
		}
		r.writePlain("%s  %s  %-30s %s\n", e.CreatedAt().Local().Format("2006-01-02 15:04"), short(e.SessionID), title, e.Href)
	}
	return nil
}

// HistoryClear deletes one session's history, or all of it.
func (r *Runner) HistoryClear(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireDB(); err != nil {
		return err
	}

	n, err := r.history.Clear(cmd.String("session"))
	if err != nil {
		return err
	}

	r.logger.Info("history cleared", "removed", n)
	return r.writePlain("✓ Removed %d history entries\n", n)
}

func age(d time.Duration) string {
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}

func short(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
