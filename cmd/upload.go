package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/tutorx/internal/flows"
	"github.com/desertthunder/tutorx/internal/formatter"
	"github.com/desertthunder/tutorx/internal/nav"
	"github.com/desertthunder/tutorx/internal/shared"
)

// Upload sends a transcript to the backend and prints the tutorial generated from it.
func (r *Runner) Upload(ctx context.Context, cmd *cli.Command) error {
	path := cmd.StringArg("path")
	if path == "" {
		return fmt.Errorf("%w: path to a JSON transcript is required", shared.ErrMissingArgument)
	}

	file, err := flows.ReadTranscript(path)
	if err != nil {
		return err
	}

	flow := flows.NewUpload(r.api, r.logger)
	defer flow.Close()

	if err := flow.Select(file); err != nil {
		return err
	}
	if err := r.requireSession(ctx, nav.Upload); err != nil {
		return err
	}

	progress := make(chan flows.UploadState, 4)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for state := range progress {
			r.writeUploadProgress(state)
		}
	}()

	err = flow.Run(ctx, progress)
	close(progress)
	<-done

	state := flow.State()
	if err != nil {
		return fmt.Errorf("%w: %s", shared.ErrAPIRequest, state.Message)
	}

	if cmd.Bool("json") {
		return r.writeJSON(state.Result, true)
	}
	r.writePlainln("")
	_, err = r.output.Write(formatter.GeneratedToText(state.Result))
	return err
}

func (r *Runner) writeUploadProgress(state flows.UploadState) {
	switch state.Status {
	case flows.Uploading:
		r.writePlain("Uploading %s...\n", state.FileName)
	case flows.Generating:
		r.logger.Debug("transcript uploaded", "id", state.TranscriptID)
		r.writePlain("Generating tutorial...\n")
	case flows.Success:
		r.writePlain("✓ Tutorial generated\n")
	case flows.Failed:
		r.writePlain("✗ %s\n", state.Message)
	}
}
