package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/tutorx/internal/shared"
)

// APIGet makes a direct GET request to the backend with the stored session.
//
// The response is printed whatever its status; a non-2xx status is reported as an error afterwards.
func (r *Runner) APIGet(ctx context.Context, cmd *cli.Command) error {
	path := cmd.StringArg("path")
	if path == "" {
		return fmt.Errorf("%w: path is required", shared.ErrMissingArgument)
	}

	getter, ok := r.api.(rawGetter)
	if !ok {
		return fmt.Errorf("%w: raw requests need the HTTP client", shared.ErrServiceUnavailable)
	}

	r.logger.Info("GET request", "path", path)

	resp, err := getter.Get(ctx, path)
	if err != nil {
		return err
	}

	if resp.IsJSON {
		if err := r.writeJSON(resp.JSONData, cmd.Bool("pretty")); err != nil {
			return err
		}
	} else {
		r.output.Write(resp.Body)
		r.output.Write([]byte("\n"))
	}

	if !resp.Success() {
		return fmt.Errorf("%w: status %d", shared.ErrAPIRequest, resp.StatusCode)
	}
	return nil
}
