package tasks

import (
	"fmt"

	"github.com/desertthunder/tutorx/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	FetchPage Phase = iota
	WriteTutorial
	SkipTutorial
	WriteManifest
)

func (p Phase) String() string {
	switch p {
	case FetchPage:
		return "fetch_page"
	case WriteTutorial:
		return "write_tutorial"
	case SkipTutorial:
		return "skip_tutorial"
	case WriteManifest:
		return "write_manifest"
	default:
		return ""
	}
}

func fetchPageUpdate(page, totalPages int) ProgressUpdate {
	msg := fmt.Sprintf("Fetching page %d...", page)
	if totalPages > 0 {
		msg = fmt.Sprintf("Fetching page %d of %d...", page, totalPages)
	}
	return ProgressUpdate{Phase: FetchPage, Step: page, Total: totalPages, Message: msg}
}

func exportCompletedUpdate(step, total int, t *models.Tutorial, path string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   WriteTutorial,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s", step, total, t.Title),
		Data:    path,
	}
}

func exportFailedUpdate(step, total int, t *models.Tutorial, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   WriteTutorial,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, t.Title, err),
	}
}

func exportSkippedUpdate(step, total int, t *models.Tutorial) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SkipTutorial,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] - %s (already exported)", step, total, t.Title),
	}
}

func manifestUpdate(path string) ProgressUpdate {
	return ProgressUpdate{Phase: WriteManifest, Step: 1, Total: 1, Message: fmt.Sprintf("Manifest written to %s", path), Data: path}
}
