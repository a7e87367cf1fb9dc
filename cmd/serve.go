package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/halx/internal/server"
	"github.com/desertthunder/halx/internal/shared"
	"github.com/desertthunder/halx/internal/web"
	"github.com/urfave/cli/v3"
)

// Serve runs the HTML browser until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	addr := r.config.Web
	if host := cmd.String("host"); host != "" {
		addr.Host = host
	}
	if port := int(cmd.Int("port")); port > 0 {
		addr.Port = port
	}

	app, err := web.New(r.api, r.recorder(), r.logger)
	if err != nil {
		return err
	}

	router := app.Router()
	for _, route := range router.Routes() {
		r.logger.Debug("route", "path", route.Path, "methods", route.Methods)
	}

	ready := make(chan string, 1)
	served := make(chan error, 1)
	go func() {
		served <- server.Serve(ctx, addr.Addr(), router, ready)
	}()

	select {
	case bound := <-ready:
		url := fmt.Sprintf("http://%s/", bound)
		r.logger.Info("web browser listening", "url", url, "api", r.api.BaseURL())
		r.writePlain("Serving %s on %s (Ctrl+C to stop)\n", r.api.BaseURL(), url)

		if cmd.Bool("open") {
			if err := shared.OpenBrowser(url); err != nil {
				r.logger.Warn("failed to open browser", "error", err)
			}
		}
	case err := <-served:
		return fmt.Errorf("failed to listen on %s: %w", addr.Addr(), err)
	}

	return <-served
}
