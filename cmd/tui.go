package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/halx/internal/hal"
	"github.com/desertthunder/halx/internal/navigation"
	"github.com/desertthunder/halx/internal/shared"
	"github.com/desertthunder/halx/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUILogPath receives logs while the TUI owns the terminal.
const TUILogPath = "./tmp/halx-tui.log"

// TUI launches the interactive terminal browser at a resource.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger(TUILogPath)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	fileLogger.SetLevel(r.logger.GetLevel())

	stack, err := navigation.NewStack(hal.URL(r.rootPath(cmd)), r.recorder())
	if err != nil {
		return err
	}

	model := ui.NewModel(ctx, r.newAPI(fileLogger), stack, fileLogger)
	if err := ui.Run(ctx, model); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
