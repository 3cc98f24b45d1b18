// package tasks implements bulk tutorial operations.
//
// Operations emit progress updates via channels for non-blocking status reporting to CLI/UI layers.
package tasks

import (
	"context"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/tutorx/internal/models"
)

// TutorialLister is the part of the API client the export task needs.
type TutorialLister interface {
	ListTutorials(ctx context.Context, params models.ListParams) (*models.TutorialPage, error)
}

// ExportRecorder remembers which tutorials were already written in a format.
//
// Implemented by repositories.ExportRepository.
type ExportRecorder interface {
	Exported(tutorialID, format string) (bool, error)
	RecordExport(tutorialID, format, path string) error
}

// Exporter writes tutorials to disk.
type Exporter struct {
	api      TutorialLister
	recorder ExportRecorder
	logger   *log.Logger
}

// NewExporter creates an [Exporter]. recorder may be nil, which disables skip-existing.
func NewExporter(api TutorialLister, recorder ExportRecorder, logger *log.Logger) *Exporter {
	return &Exporter{api: api, recorder: recorder, logger: logger}
}

// sendProgress sends a progress update through the channel without blocking.
func (e *Exporter) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}
