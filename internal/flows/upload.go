package flows

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/tutorx/internal/models"
	"github.com/desertthunder/tutorx/internal/services"
	"github.com/desertthunder/tutorx/internal/shared"
)

// UploadStatus is a state of the upload flow.
type UploadStatus int

const (
	Idle UploadStatus = iota
	Uploading
	Generating
	Success
	Failed
)

func (s UploadStatus) String() string {
	switch s {
	case Idle:
		return "idle"
	case Uploading:
		return "uploading"
	case Generating:
		return "generating"
	case Success:
		return "success"
	case Failed:
		return "error"
	default:
		return fmt.Sprintf("UploadStatus(%d)", int(s))
	}
}

const (
	// MaxTranscriptSize is the largest transcript the upload flow accepts.
	MaxTranscriptSize = 10 << 20

	JSONContentType = "application/json"

	SelectJSONMessage   = "Please select a JSON file"
	FileTooLargeMessage = "File is too large (max 10MB)"
)

var (
	// ErrInvalidFile is returned by [Upload.Select] for a file that is not an acceptable transcript.
	ErrInvalidFile = fmt.Errorf("%w: invalid transcript file", shared.ErrInvalidInput)

	// ErrNotReady is returned by [Upload.Run] outside Idle or without a selected file.
	ErrNotReady = errors.New("upload flow is not ready")
)

// DetectContentType returns the declared content type for a file name.
func DetectContentType(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == ".json" {
		return JSONContentType
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	return "application/octet-stream"
}

// ReadTranscript loads a transcript file with its content type derived from the extension.
func ReadTranscript(path string) (models.TranscriptFile, error) {
	data, err := os.ReadFile(shared.ExpandPath(path))
	if err != nil {
		return models.TranscriptFile{}, fmt.Errorf("failed to read transcript: %w", err)
	}
	name := filepath.Base(path)
	return models.TranscriptFile{Name: name, ContentType: DetectContentType(name), Data: data}, nil
}

// UploadState is a copy of the upload flow's state.
type UploadState struct {
	Status       UploadStatus
	FileName     string
	TranscriptID string
	Result       *models.GeneratedTutorial
	Message      string // failure message in Failed
	Validation   string // last rejected selection
}

// Upload is the select -> upload -> generate -> preview flow.
type Upload struct {
	Lifecycle

	api    services.TutorialService
	logger *log.Logger

	mu    sync.Mutex
	file  *models.TranscriptFile
	gen   int
	state UploadState
}

// NewUpload creates an idle upload flow.
func NewUpload(api services.TutorialService, logger *log.Logger) *Upload {
	return &Upload{api: api, logger: logger}
}

// State returns a copy of the current state.
func (u *Upload) State() UploadState {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.snapshotLocked()
}

func (u *Upload) snapshotLocked() UploadState {
	s := u.state
	if s.Result != nil {
		r := *s.Result
		s.Result = &r
	}
	return s
}

// Select validates file and makes it the only selected file, resetting the flow to Idle.
//
// A rejected file leaves the flow untouched apart from the validation message.
func (u *Upload) Select(file models.TranscriptFile) error {
	var message string
	switch {
	case !isJSONContentType(file.ContentType):
		message = SelectJSONMessage
	case file.Size() > MaxTranscriptSize:
		message = FileTooLargeMessage
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	if message != "" {
		u.state.Validation = message
		return fmt.Errorf("%w: %s", ErrInvalidFile, message)
	}

	u.gen++
	u.file = &file
	u.state = UploadState{Status: Idle, FileName: file.Name}
	return nil
}

func isJSONContentType(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	return err == nil && mediaType == JSONContentType
}

// Reset returns to Idle and drops the selected file.
func (u *Upload) Reset() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.gen++
	u.file = nil
	u.state = UploadState{Status: Idle}
}

// Run uploads the selected file and generates a tutorial from it.
//
// Every transition is sent on progress when it is non-nil; sends never block. Failures end in
// the Failed status with the backend's message and are returned. A newer Select or Reset while
// running makes the outcome stale and Run returns [ErrAbandoned].
func (u *Upload) Run(ctx context.Context, progress chan<- UploadState) error {
	u.mu.Lock()
	if u.state.Status != Idle || u.file == nil {
		u.mu.Unlock()
		return ErrNotReady
	}
	file := *u.file
	gen := u.gen
	u.mu.Unlock()

	if err := u.transition(gen, progress, func(s *UploadState) { s.Status = Uploading }); err != nil {
		return err
	}

	upload, err := u.api.UploadTranscript(ctx, file)
	if err != nil {
		return u.fail(gen, progress, "transcript upload failed", err)
	}

	if err := u.transition(gen, progress, func(s *UploadState) {
		s.Status = Generating
		s.TranscriptID = upload.ID
	}); err != nil {
		return err
	}

	generated, err := u.api.GenerateTutorial(ctx, upload.ID)
	if err != nil {
		return u.fail(gen, progress, "tutorial generation failed", err)
	}

	return u.transition(gen, progress, func(s *UploadState) {
		s.Status = Success
		s.Result = generated
	})
}

func (u *Upload) fail(gen int, progress chan<- UploadState, msg string, err error) error {
	u.logger.Error(msg, "error", err)
	if tErr := u.transition(gen, progress, func(s *UploadState) {
		s.Status = Failed
		s.Message = services.Message(err)
	}); tErr != nil {
		return tErr
	}
	return err
}

// transition mutates state unless the flow was closed or a newer selection superseded run gen.
func (u *Upload) transition(gen int, progress chan<- UploadState, fn func(s *UploadState)) error {
	var snapshot UploadState
	stale := false
	if err := u.Apply(func() {
		u.mu.Lock()
		defer u.mu.Unlock()
		if u.gen != gen {
			stale = true
			return
		}
		fn(&u.state)
		snapshot = u.snapshotLocked()
	}); err != nil {
		return err
	}
	if stale {
		return ErrAbandoned
	}

	if progress != nil {
		select {
		case progress <- snapshot:
		default:
			u.logger.Debug("progress update dropped", "status", snapshot.Status)
		}
	}
	return nil
}
