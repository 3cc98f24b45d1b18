package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/tutorx/internal/flows"
	"github.com/desertthunder/tutorx/internal/formatter"
	"github.com/desertthunder/tutorx/internal/models"
	"github.com/desertthunder/tutorx/internal/nav"
	"github.com/desertthunder/tutorx/internal/services"
	"github.com/desertthunder/tutorx/internal/shared"
)

// List prints one page of the dashboard.
//
// JSON is written when --json is set or stdout is not a terminal.
func (r *Runner) List(ctx context.Context, cmd *cli.Command) error {
	if page := cmd.Int("page"); page < 1 {
		return fmt.Errorf("%w: %d", flows.ErrPageOutOfRange, page)
	}
	if err := r.requireSession(ctx, nav.Dashboard); err != nil {
		return err
	}

	dash := flows.NewDashboard(r.api, r.logger)
	defer dash.Close()

	if err := dash.SetDateRange(cmd.String("from"), cmd.String("to")); err != nil {
		return err
	}
	if err := dash.Load(ctx, cmd.Int("page"), cmd.String("search")); err != nil {
		return fmt.Errorf("%w: %s", shared.ErrAPIRequest, services.Message(err))
	}

	state := dash.State()
	if state.TotalPages > 0 && state.Page > state.TotalPages {
		return fmt.Errorf("%w: page %d of %d", flows.ErrPageOutOfRange, state.Page, state.TotalPages)
	}

	page := &models.TutorialPage{Total: state.Total, Page: state.Page, PageSize: flows.PageSize, Items: state.Items}
	if cmd.Bool("json") || !r.isTerminal() {
		return r.writeJSON(page, true)
	}

	if len(state.Items) == 0 {
		return r.writePlain("%s\n", state.EmptyMessage())
	}

	if latest, ok := state.Latest(); ok {
		r.writePlain("%d tutorials, latest %s\n\n", state.Total, models.Timestamp{Time: latest})
	}
	_, err := r.output.Write(formatter.PageToText(page, flows.PageSize))
	return err
}

// Show prints one tutorial.
func (r *Runner) Show(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: tutorial id is required", shared.ErrMissingArgument)
	}
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}
	if err := r.requireSession(ctx, nav.Tutorial(id)); err != nil {
		return err
	}

	view := flows.NewTutorialView(r.api, r.logger)
	defer view.Close()

	if err := view.Load(ctx, id); err != nil {
		return fmt.Errorf("%w: %s", shared.ErrAPIRequest, view.State().Message)
	}

	data, err := formatter.Render(view.State().Tutorial, format)
	if err != nil {
		return err
	}
	_, err = r.output.Write(data)
	return err
}

// Edit changes a tutorial's title and/or content. Only fields that differ from the stored copy are sent.
func (r *Runner) Edit(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: tutorial id is required", shared.ErrMissingArgument)
	}

	title, content, err := r.editValues(cmd)
	if err != nil {
		return err
	}
	if title == nil && content == nil {
		return fmt.Errorf("%w: pass --title, --content or --content-file", shared.ErrMissingArgument)
	}
	if err := r.requireSession(ctx, nav.TutorialEdit(id)); err != nil {
		return err
	}

	edit := flows.NewTutorialEdit(r.api, r.logger)
	defer edit.Close()

	if err := edit.Load(ctx, id); err != nil {
		return fmt.Errorf("%w: %s", shared.ErrAPIRequest, edit.State().Message)
	}
	if title != nil {
		edit.SetTitle(*title)
	}
	if content != nil {
		edit.SetContent(*content)
	}

	err = edit.Save(ctx)
	switch {
	case errors.Is(err, flows.ErrNoChanges):
		return r.writePlain("No changes to save\n")
	case err != nil:
		return fmt.Errorf("%w: %s", shared.ErrAPIRequest, services.Message(err))
	}

	saved := edit.State().Server
	r.logger.Info("tutorial saved", "id", saved.ID)
	return r.writePlain("✓ Saved %q (updated %s)\n", saved.Title, saved.UpdatedAt)
}

// editValues collects the requested field values. A nil pointer leaves the field alone.
func (r *Runner) editValues(cmd *cli.Command) (title, content *string, err error) {
	if cmd.IsSet("title") {
		v := cmd.String("title")
		title = &v
	}

	if cmd.IsSet("content") && cmd.IsSet("content-file") {
		return nil, nil, fmt.Errorf("%w: cannot specify both --content and --content-file", shared.ErrInvalidArgument)
	}
	if cmd.IsSet("content") {
		v := cmd.String("content")
		content = &v
	}
	if path := cmd.String("content-file"); path != "" {
		data, err := r.readContent(path)
		if err != nil {
			return nil, nil, err
		}
		v := string(data)
		content = &v
	}
	return title, content, nil
}

func (r *Runner) readContent(path string) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(r.input)
		if err != nil {
			return nil, fmt.Errorf("failed to read content from stdin: %w", err)
		}
		return data, nil
	}

	data, err := os.ReadFile(shared.ExpandPath(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read content file: %w", err)
	}
	return data, nil
}
