package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/desertthunder/halx/internal/formatter"
	"github.com/desertthunder/halx/internal/services"
	"github.com/desertthunder/halx/internal/shared"
	"github.com/urfave/cli/v3"
)

// APIGet makes a direct GET request and prints the body.
func (r *Runner) APIGet(ctx context.Context, cmd *cli.Command) error {
	path := r.rootPath(cmd)
	compact := cmd.Bool("json")

	r.logger.Info("GET request", "path", path)

	resp, err := r.api.Do(ctx, path, services.RequestOptions{Method: http.MethodGet})
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	if !resp.OK() {
		return fmt.Errorf("%w: %w", shared.ErrAPIRequest, resp.FetchError())
	}

	return r.writeBody(resp.Body, !compact)
}

// APIPost sends a JSON body with the given method and prints the response.
//
// Problem details on a 400 are rendered field by field.
func (r *Runner) APIPost(ctx context.Context, cmd *cli.Command) error {
	path := cmd.StringArg("path")
	data := cmd.String("data")
	method := strings.ToUpper(cmd.String("method"))

	if path == "" {
		return fmt.Errorf("%w: path", shared.ErrMissingArgument)
	}
	if data == "" {
		return fmt.Errorf("%w: --data flag is required", shared.ErrMissingArgument)
	}

	var body any
	if err := json.Unmarshal([]byte(data), &body); err != nil {
		return fmt.Errorf("%w: data is not valid JSON: %v", shared.ErrInvalidInput, err)
	}

	r.logger.Info("write request", "method", method, "path", path)

	resp, err := r.api.Do(ctx, path, services.RequestOptions{Method: method, Body: body})
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	if !resp.OK() {
		err := services.ToFormValidationError(resp.FetchError())
		var fv *services.FormValidationError
		if errors.As(err, &fv) {
			r.output.Write(formatter.RenderErrors(fv))
		}
		return fmt.Errorf("%w: %w", shared.ErrAPIRequest, err)
	}

	if len(resp.Body) == 0 {
		return r.writePlain("✓ %s %s\n", method, resp.Status)
	}
	return r.writeBody(resp.Body, true)
}
