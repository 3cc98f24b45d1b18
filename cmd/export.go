package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/tutorx/internal/formatter"
	"github.com/desertthunder/tutorx/internal/nav"
	"github.com/desertthunder/tutorx/internal/services"
	"github.com/desertthunder/tutorx/internal/shared"
	"github.com/desertthunder/tutorx/internal/tasks"
)

// Export writes every tutorial to its own file and a manifest describing the run.
func (r *Runner) Export(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}
	if err := r.requireSession(ctx, nav.Dashboard); err != nil {
		return err
	}

	workers := r.config.Export.Workers
	if cmd.IsSet("workers") {
		workers = cmd.Int("workers")
	}
	opts := tasks.ExportOpts{
		Format:       format,
		OutputDir:    shared.ExpandPath(cmd.String("dir")),
		NumWorkers:   workers,
		RateLimit:    r.config.Export.RateLimit,
		Search:       cmd.String("search"),
		SkipExisting: cmd.Bool("skip-existing"),
	}
	if opts.SkipExisting && r.exports == nil {
		return fmt.Errorf("%w: --skip-existing needs the local database", shared.ErrServiceUnavailable)
	}

	progress := make(chan tasks.ProgressUpdate, 16)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progress {
			r.writeExportProgress(update)
		}
	}()

	exporter := tasks.NewExporter(r.api, r.exports, r.logger)
	result, err := exporter.ExportTutorials(ctx, progress, opts)
	close(progress)
	<-done

	if err != nil {
		if result != nil {
			r.writePlain("Exported %d of %d tutorials before the failure\n", result.Written, result.Total)
		}
		return fmt.Errorf("export failed: %s: %w", services.Message(err), err)
	}

	r.writePlainln("✓ Export complete")
	r.writePlain("Written: %d  Skipped: %d  Failed: %d\n", result.Written, result.Skipped, result.Failed)
	r.writePlain("Directory: %s\n", result.OutputDirectory)
	r.writePlain("Manifest:  %s\n", result.ManifestPath)
	if result.Failed > 0 {
		for _, res := range result.Results {
			if res.Error != "" {
				r.writePlain("  ✗ %s: %s\n", res.TutorialID, res.Error)
			}
		}
	}
	return nil
}

func (r *Runner) writeExportProgress(update tasks.ProgressUpdate) {
	if update.Phase == tasks.WriteManifest {
		r.logger.Debug(update.Message, "phase", update.Phase)
		return
	}
	r.writePlain("%s\n", update.Message)
}
