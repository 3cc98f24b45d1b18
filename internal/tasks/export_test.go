package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/tutorx/internal/formatter"
	"github.com/desertthunder/tutorx/internal/models"
	"github.com/desertthunder/tutorx/internal/shared"
	tu "github.com/desertthunder/tutorx/internal/testing"
)

func quietLogger() *log.Logger {
	return log.New(io.Discard)
}

// library serves n tutorials through ListTutorials, honoring page and page size.
func library(n int) *tu.MockClient {
	return &tu.MockClient{
		ListTutorialsFunc: func(_ context.Context, p models.ListParams) (*models.TutorialPage, error) {
			page := &models.TutorialPage{Total: n, Page: p.Page, PageSize: p.PageSize}
			for i := (p.Page - 1) * p.PageSize; i < min(p.Page*p.PageSize, n); i++ {
				page.Items = append(page.Items, models.Tutorial{
					ID:      fmt.Sprintf("t%03d", i),
					Title:   fmt.Sprintf("Tutorial %d", i),
					Content: "Step 1...",
				})
			}
			return page, nil
		},
	}
}

type memoryRecorder struct {
	mu      sync.Mutex
	records map[string]string
	failGet bool
}

func newMemoryRecorder() *memoryRecorder {
	return &memoryRecorder{records: map[string]string{}}
}

func (r *memoryRecorder) Exported(id, format string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failGet {
		return false, errors.New("database locked")
	}
	_, ok := r.records[id+":"+format]
	return ok, nil
}

func (r *memoryRecorder) RecordExport(id, format, path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[id+":"+format] = path
	return nil
}

func tutorialFiles(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("failed to read dir: %v", err)
	}
	var files []string
	for _, e := range entries {
		if e.Name() != ManifestFile {
			files = append(files, e.Name())
		}
	}
	return files
}

func TestExportTutorials(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		count     int
		pageSize  int
		format    formatter.Format
		wantPages int
	}{
		{name: "empty library", count: 0, pageSize: 10, format: formatter.Markdown, wantPages: 1},
		{name: "single page", count: 3, pageSize: 10, format: formatter.Text, wantPages: 1},
		{name: "exact pages", count: 20, pageSize: 10, format: formatter.JSON, wantPages: 2},
		{name: "partial last page", count: 23, pageSize: 10, format: formatter.Markdown, wantPages: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := library(tt.count)
			dir := t.TempDir()
			e := NewExporter(client, nil, quietLogger())

			result, err := e.ExportTutorials(ctx, nil, ExportOpts{
				Format:    tt.format,
				OutputDir: dir,
				PageSize:  tt.pageSize,
				RateLimit: 1000,
			})
			if err != nil {
				t.Fatalf("ExportTutorials failed: %v", err)
			}

			if got := client.Calls("ListTutorials"); got != tt.wantPages {
				t.Errorf("expected %d list calls, got %d", tt.wantPages, got)
			}
			if result.Total != tt.count || result.Written != tt.count || result.Failed != 0 {
				t.Errorf("unexpected counts: %+v", result)
			}
			if files := tutorialFiles(t, dir); len(files) != tt.count {
				t.Errorf("expected %d files, got %d", tt.count, len(files))
			}
			for _, f := range tutorialFiles(t, dir) {
				if filepath.Ext(f) != tt.format.Extension() {
					t.Errorf("file %s has wrong extension", f)
				}
			}

			tu.AssertFileExists(t, result.ManifestPath)
			var manifest ExportResult
			if err := json.Unmarshal([]byte(tu.MustReadFile(t, result.ManifestPath)), &manifest); err != nil {
				t.Fatalf("invalid manifest: %v", err)
			}
			if len(manifest.Results) != tt.count {
				t.Errorf("manifest lists %d results, want %d", len(manifest.Results), tt.count)
			}
		})
	}
}

func TestExportTutorials_RequestParams(t *testing.T) {
	client := library(5)
	e := NewExporter(client, nil, quietLogger())

	_, err := e.ExportTutorials(context.Background(), nil, ExportOpts{OutputDir: t.TempDir(), Search: "password", PageSize: 500, RateLimit: 1000})
	if err != nil {
		t.Fatalf("ExportTutorials failed: %v", err)
	}

	if len(client.ListRequests) != 1 {
		t.Fatalf("expected 1 request, got %d", len(client.ListRequests))
	}
	req := client.ListRequests[0]
	if req.Page != 1 || req.PageSize != DefaultExportPageSize || req.Search != "password" {
		t.Errorf("unexpected list params: %+v", req)
	}
}

func TestExportTutorials_ResultsSorted(t *testing.T) {
	e := NewExporter(library(12), nil, quietLogger())

	result, err := e.ExportTutorials(context.Background(), nil, ExportOpts{OutputDir: t.TempDir(), PageSize: 5, NumWorkers: 3, RateLimit: 1000})
	if err != nil {
		t.Fatalf("ExportTutorials failed: %v", err)
	}

	for i := 1; i < len(result.Results); i++ {
		if result.Results[i-1].TutorialID > result.Results[i].TutorialID {
			t.Fatalf("results not sorted at %d: %s > %s", i, result.Results[i-1].TutorialID, result.Results[i].TutorialID)
		}
	}
}

func TestExportTutorials_ListFailure(t *testing.T) {
	client := library(30)
	inner := client.ListTutorialsFunc
	client.ListTutorialsFunc = func(ctx context.Context, p models.ListParams) (*models.TutorialPage, error) {
		if p.Page == 2 {
			return nil, fmt.Errorf("%w: backend down", shared.ErrAPIRequest)
		}
		return inner(ctx, p)
	}
	dir := t.TempDir()
	e := NewExporter(client, nil, quietLogger())

	result, err := e.ExportTutorials(context.Background(), nil, ExportOpts{OutputDir: dir, PageSize: 10, RateLimit: 1000})

	if !errors.Is(err, shared.ErrAPIRequest) {
		t.Fatalf("expected ErrAPIRequest, got %v", err)
	}
	if result == nil {
		t.Fatal("expected partial result")
	}
	if result.Written > 10 {
		t.Errorf("no more than the first page can be written, got %d", result.Written)
	}
	if _, err := os.Stat(filepath.Join(dir, ManifestFile)); !os.IsNotExist(err) {
		t.Error("manifest must not be written for a failed export")
	}
}

func TestExportTutorials_SkipExisting(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	recorder := newMemoryRecorder()
	e := NewExporter(library(4), recorder, quietLogger())
	opts := ExportOpts{OutputDir: dir, Format: formatter.Text, RateLimit: 1000, SkipExisting: true}

	first, err := e.ExportTutorials(ctx, nil, opts)
	if err != nil {
		t.Fatalf("first export failed: %v", err)
	}
	if first.Written != 4 || first.Skipped != 0 {
		t.Fatalf("first run: %+v", first)
	}
	if len(recorder.records) != 4 {
		t.Fatalf("expected 4 recorded exports, got %d", len(recorder.records))
	}

	removed := first.Results[0].Path
	if err := os.Remove(removed); err != nil {
		t.Fatal(err)
	}

	second, err := e.ExportTutorials(ctx, nil, opts)
	if err != nil {
		t.Fatalf("second export failed: %v", err)
	}
	if second.Skipped != 3 || second.Written != 1 {
		t.Errorf("second run: written=%d skipped=%d", second.Written, second.Skipped)
	}
	tu.AssertFileExists(t, removed)

	t.Run("other formats are not skipped", func(t *testing.T) {
		opts := opts
		opts.Format = formatter.JSON
		res, err := e.ExportTutorials(ctx, nil, opts)
		if err != nil {
			t.Fatal(err)
		}
		if res.Written != 4 {
			t.Errorf("expected 4 written, got %d", res.Written)
		}
	})

	t.Run("history lookup failure falls back to writing", func(t *testing.T) {
		recorder.failGet = true
		defer func() { recorder.failGet = false }()

		res, err := e.ExportTutorials(ctx, nil, opts)
		if err != nil {
			t.Fatal(err)
		}
		if res.Written != 4 {
			t.Errorf("expected 4 written, got %d", res.Written)
		}
	})
}

func TestExportTutorials_WriteFailure(t *testing.T) {
	dir := t.TempDir()
	e := NewExporter(library(2), nil, quietLogger())

	// A directory where the first file should go makes that write fail.
	blocked := filepath.Join(dir, formatter.FileName(&models.Tutorial{ID: "t000", Title: "Tutorial 0"}, formatter.Markdown))
	if err := os.MkdirAll(blocked, 0755); err != nil {
		t.Fatal(err)
	}

	result, err := e.ExportTutorials(context.Background(), nil, ExportOpts{OutputDir: dir, RateLimit: 1000})
	if err != nil {
		t.Fatalf("write failures must not fail the export: %v", err)
	}
	if result.Failed != 1 || result.Written != 1 {
		t.Errorf("expected 1 failed and 1 written, got %+v", result)
	}
	if result.Results[0].Error == "" {
		t.Error("failed result should carry its error")
	}
}

func TestExportTutorials_Progress(t *testing.T) {
	e := NewExporter(library(3), nil, quietLogger())
	prog := make(chan ProgressUpdate, 20)

	if _, err := e.ExportTutorials(context.Background(), prog, ExportOpts{OutputDir: t.TempDir(), RateLimit: 1000}); err != nil {
		t.Fatal(err)
	}
	close(prog)

	phases := map[Phase]int{}
	for u := range prog {
		phases[u.Phase]++
		if u.Phase == WriteTutorial && !strings.Contains(u.Message, "✓") {
			t.Errorf("unexpected message: %s", u.Message)
		}
	}
	if phases[FetchPage] != 1 || phases[WriteTutorial] != 3 || phases[WriteManifest] != 1 {
		t.Errorf("unexpected phase counts: %v", phases)
	}
}

func TestExportTutorials_ProgressNeverBlocks(t *testing.T) {
	e := NewExporter(library(5), nil, quietLogger())

	if _, err := e.ExportTutorials(context.Background(), make(chan ProgressUpdate), ExportOpts{OutputDir: t.TempDir(), RateLimit: 1000}); err != nil {
		t.Fatal(err)
	}
}

func TestExportTutorials_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := NewExporter(library(5), nil, quietLogger())
	_, err := e.ExportTutorials(ctx, nil, ExportOpts{OutputDir: t.TempDir()})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestExportTutorials_InvalidOpts(t *testing.T) {
	e := NewExporter(library(1), nil, quietLogger())
	if _, err := e.ExportTutorials(context.Background(), nil, ExportOpts{OutputDir: t.TempDir(), Format: "pdf"}); !errors.Is(err, shared.ErrInvalidFlag) {
		t.Errorf("expected ErrInvalidFlag, got %v", err)
	}

	if _, err := NewExporter(nil, nil, quietLogger()).ExportTutorials(context.Background(), nil, ExportOpts{}); !errors.Is(err, shared.ErrServiceUnavailable) {
		t.Errorf("expected ErrServiceUnavailable, got %v", err)
	}
}

func TestPhaseString(t *testing.T) {
	for p, want := range map[Phase]string{FetchPage: "fetch_page", WriteTutorial: "write_tutorial", SkipTutorial: "skip_tutorial", WriteManifest: "write_manifest", Phase(99): ""} {
		if got := p.String(); got != want {
			t.Errorf("Phase(%d).String() = %q, want %q", p, got, want)
		}
	}
}
