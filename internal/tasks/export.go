package tasks

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/desertthunder/tutorx/internal/formatter"
	"github.com/desertthunder/tutorx/internal/models"
	"github.com/desertthunder/tutorx/internal/shared"
)

const (
	// DefaultExportPageSize is the largest page the backend serves.
	DefaultExportPageSize = 100

	ManifestFile = "export_manifest.json"
)

// ExportOpts contains configuration for tutorial exports.
type ExportOpts struct {
	Format       formatter.Format // Output format (default: Markdown)
	OutputDir    string           // Output directory (default: tutorials_export_{epoch})
	NumWorkers   int              // Concurrent file writers (default: 4, max: 10)
	RateLimit    float64          // List requests per second (default: 5)
	PageSize     int              // Tutorials per list request (default: 100)
	Search       string           // Optional title search
	SkipExisting bool             // Leave previously exported files alone
}

// TutorialExportResult is the outcome for one tutorial.
type TutorialExportResult struct {
	TutorialID string `json:"tutorial_id"`
	Title      string `json:"title"`
	Path       string `json:"path,omitempty"`
	Skipped    bool   `json:"skipped,omitempty"`
	Error      string `json:"error,omitempty"`
}

// ExportResult summarizes an export run.
type ExportResult struct {
	Total           int                    `json:"total"`
	Written         int                    `json:"written"`
	Skipped         int                    `json:"skipped"`
	Failed          int                    `json:"failed"`
	Format          formatter.Format       `json:"format"`
	OutputDirectory string                 `json:"output_directory"`
	ExportedAt      time.Time              `json:"exported_at"`
	ManifestPath    string                 `json:"-"`
	Results         []TutorialExportResult `json:"results"`
}

func (o *ExportOpts) applyDefaults() {
	if o.Format == "" {
		o.Format = formatter.Markdown
	}
	if o.OutputDir == "" {
		o.OutputDir = fmt.Sprintf("tutorials_export_%d", time.Now().Unix())
	}
	if o.NumWorkers <= 0 {
		o.NumWorkers = 4
	}
	if o.NumWorkers > 10 {
		o.NumWorkers = 10
	}
	if o.RateLimit <= 0 {
		o.RateLimit = 5.0
	}
	if o.PageSize <= 0 || o.PageSize > DefaultExportPageSize {
		o.PageSize = DefaultExportPageSize
	}
}

// ExportTutorials pages through every tutorial and writes one file per tutorial into opts.OutputDir.
//
// Pages are fetched by one producer paced by a rate limiter while a pool of workers writes files.
// A failed list request stops the export and is returned together with the partial result.
// A failed file is recorded in the result. A manifest is written once every page has been handled.
func (e *Exporter) ExportTutorials(ctx context.Context, prog chan<- ProgressUpdate, opts ExportOpts) (*ExportResult, error) {
	if e.api == nil {
		return nil, fmt.Errorf("%w: API client not initialized", shared.ErrServiceUnavailable)
	}
	opts.applyDefaults()

	if _, err := formatter.ParseFormat(string(opts.Format)); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	result := &ExportResult{
		Format:          opts.Format,
		OutputDirectory: opts.OutputDir,
		ExportedAt:      time.Now().UTC(),
		Results:         []TutorialExportResult{},
	}

	var mu sync.Mutex
	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	jobs := make(chan models.Tutorial)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(jobs)

		totalPages := 0
		for page := 1; ; page++ {
			if err := limiter.Wait(gctx); err != nil {
				return err
			}
			e.sendProgress(prog, fetchPageUpdate(page, totalPages))

			resp, err := e.api.ListTutorials(gctx, models.ListParams{Page: page, PageSize: opts.PageSize, Search: opts.Search})
			if err != nil {
				return fmt.Errorf("failed to list tutorials (page %d): %w", page, err)
			}

			mu.Lock()
			result.Total = resp.Total
			mu.Unlock()
			totalPages = resp.TotalPages(opts.PageSize)

			for _, t := range resp.Items {
				select {
				case jobs <- t:
				case <-gctx.Done():
					return gctx.Err()
				}
			}

			if len(resp.Items) == 0 || page >= totalPages {
				return nil
			}
		}
	})

	for range opts.NumWorkers {
		g.Go(func() error {
			for t := range jobs {
				res := e.exportTutorial(&t, opts)

				mu.Lock()
				result.Results = append(result.Results, res)
				switch {
				case res.Error != "":
					result.Failed++
				case res.Skipped:
					result.Skipped++
				default:
					result.Written++
				}
				step, total := len(result.Results), max(result.Total, len(result.Results))
				mu.Unlock()

				switch {
				case res.Error != "":
					e.sendProgress(prog, exportFailedUpdate(step, total, &t, errors.New(res.Error)))
				case res.Skipped:
					e.sendProgress(prog, exportSkippedUpdate(step, total, &t))
				default:
					e.sendProgress(prog, exportCompletedUpdate(step, total, &t, res.Path))
				}
			}
			return nil
		})
	}

	err := g.Wait()
	sort.Slice(result.Results, func(i, j int) bool { return result.Results[i].TutorialID < result.Results[j].TutorialID })
	if err != nil {
		e.logger.Error("export stopped", "error", err, "written", result.Written)
		return result, err
	}

	manifestPath := filepath.Join(opts.OutputDir, ManifestFile)
	data, err := shared.MarshalJSON(result, true)
	if err != nil {
		return result, fmt.Errorf("export completed but failed to encode manifest: %w", err)
	}
	if err := os.WriteFile(manifestPath, data, 0644); err != nil {
		return result, fmt.Errorf("export completed but failed to write manifest: %w", err)
	}
	result.ManifestPath = manifestPath
	e.sendProgress(prog, manifestUpdate(manifestPath))

	e.logger.Info("export finished", "dir", opts.OutputDir, "written", result.Written, "skipped", result.Skipped, "failed", result.Failed)
	return result, nil
}

// exportTutorial writes a single tutorial unless it was already exported and is still on disk.
func (e *Exporter) exportTutorial(t *models.Tutorial, opts ExportOpts) TutorialExportResult {
	res := TutorialExportResult{TutorialID: t.ID, Title: t.Title}
	format := string(opts.Format)
	path := filepath.Join(opts.OutputDir, formatter.FileName(t, opts.Format))

	if opts.SkipExisting && e.recorder != nil {
		done, err := e.recorder.Exported(t.ID, format)
		if err != nil {
			e.logger.Warn("failed to check export history", "id", t.ID, "error", err)
		} else if done {
			if _, err := os.Stat(path); err == nil {
				res.Path = path
				res.Skipped = true
				return res
			}
		}
	}

	written, err := formatter.WriteTutorial(t, opts.OutputDir, opts.Format)
	if err != nil {
		e.logger.Error("failed to export tutorial", "id", t.ID, "error", err)
		res.Error = err.Error()
		return res
	}
	res.Path = written

	if e.recorder != nil {
		if err := e.recorder.RecordExport(t.ID, format, written); err != nil {
			e.logger.Warn("failed to record export", "id", t.ID, "error", err)
		}
	}
	return res
}
