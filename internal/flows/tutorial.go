package flows

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/tutorx/internal/models"
	"github.com/desertthunder/tutorx/internal/services"
	"github.com/desertthunder/tutorx/internal/shared"
)

// NotFoundMessage is shown when a tutorial id does not resolve.
const NotFoundMessage = "Tutorial not found"

var (
	// ErrNoChanges is returned by [TutorialEdit.Save] when nothing differs from the server copy.
	ErrNoChanges = errors.New("no changes to save")

	// ErrSaveInProgress is returned by [TutorialEdit.Save] while an earlier save is running.
	ErrSaveInProgress = errors.New("save already in progress")

	// ErrNotLoaded is returned when editing before the tutorial was loaded.
	ErrNotLoaded = errors.New("tutorial not loaded")
)

// LoadStatus is the state of a tutorial load.
type LoadStatus int

const (
	NotStarted LoadStatus = iota
	Loading
	LoadFailed
	Loaded
)

func (s LoadStatus) String() string {
	switch s {
	case NotStarted:
		return "not_started"
	case Loading:
		return "loading"
	case LoadFailed:
		return "failed"
	case Loaded:
		return "loaded"
	default:
		return fmt.Sprintf("LoadStatus(%d)", int(s))
	}
}

// loadMessage is the user-facing text for a failed load.
func loadMessage(err error) string {
	if errors.Is(err, shared.ErrTutorialNotFound) {
		return NotFoundMessage
	}
	return services.Message(err)
}

// TutorialViewState is a copy of the view's state.
type TutorialViewState struct {
	Status   LoadStatus
	Tutorial *models.Tutorial
	Message  string
	Err      error
}

// TutorialView is the read-only tutorial page.
type TutorialView struct {
	Lifecycle

	api    services.TutorialService
	logger *log.Logger

	once  sync.Once
	mu    sync.Mutex
	state TutorialViewState
}

// NewTutorialView creates a view flow.
func NewTutorialView(api services.TutorialService, logger *log.Logger) *TutorialView {
	return &TutorialView{api: api, logger: logger}
}

// Load fetches the tutorial. Only the first call reaches the backend; later calls return the first outcome.
func (v *TutorialView) Load(ctx context.Context, id string) error {
	var loadErr error
	v.once.Do(func() {
		v.mu.Lock()
		v.state.Status = Loading
		v.mu.Unlock()

		tutorial, err := v.api.GetTutorial(ctx, id)
		if err != nil {
			v.logger.Error("failed to load tutorial", "id", id, "error", err)
		}

		loadErr = v.Apply(func() {
			v.mu.Lock()
			defer v.mu.Unlock()
			if err != nil {
				v.state = TutorialViewState{Status: LoadFailed, Message: loadMessage(err), Err: err}
				return
			}
			v.state = TutorialViewState{Status: Loaded, Tutorial: tutorial}
		})
	})

	if loadErr != nil {
		return loadErr
	}
	return v.State().Err
}

// State returns a copy of the current state.
func (v *TutorialView) State() TutorialViewState {
	v.mu.Lock()
	defer v.mu.Unlock()
	s := v.state
	if s.Tutorial != nil {
		t := *s.Tutorial
		s.Tutorial = &t
	}
	return s
}

// TutorialEditState is a copy of the edit flow's state.
type TutorialEditState struct {
	Status  LoadStatus
	Server  *models.Tutorial
	Title   string
	Content string
	Saving  bool
	Dirty   bool
	Message string
	Err     error
}

// CanSave reports whether Save would send a request.
func (s TutorialEditState) CanSave() bool {
	return s.Dirty && !s.Saving
}

// TutorialEdit loads a tutorial into editable fields and saves the fields that changed.
type TutorialEdit struct {
	Lifecycle

	api    services.TutorialService
	logger *log.Logger

	once    sync.Once
	mu      sync.Mutex
	id      string
	status  LoadStatus
	server  *models.Tutorial
	title   string
	content string
	saving  bool
	err     error
}

// NewTutorialEdit creates an edit flow.
func NewTutorialEdit(api services.TutorialService, logger *log.Logger) *TutorialEdit {
	return &TutorialEdit{api: api, logger: logger}
}

// Load fetches the tutorial once and seeds the editable fields from it.
func (e *TutorialEdit) Load(ctx context.Context, id string) error {
	var loadErr error
	e.once.Do(func() {
		e.mu.Lock()
		e.id = id
		e.status = Loading
		e.mu.Unlock()

		tutorial, err := e.api.GetTutorial(ctx, id)
		if err != nil {
			e.logger.Error("failed to load tutorial for editing", "id", id, "error", err)
		}

		if applyErr := e.Apply(func() {
			e.mu.Lock()
			defer e.mu.Unlock()
			if err != nil {
				e.status = LoadFailed
				e.err = err
				return
			}
			e.status = Loaded
			e.syncLocked(tutorial)
		}); applyErr != nil {
			loadErr = applyErr
		}
	})

	if loadErr != nil {
		return loadErr
	}
	return e.State().Err
}

func (e *TutorialEdit) syncLocked(t *models.Tutorial) {
	copied := *t
	e.server = &copied
	e.title = t.Title
	e.content = t.Content
	e.err = nil
}

// SetTitle edits the title.
func (e *TutorialEdit) SetTitle(title string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.title = title
}

// SetContent edits the content.
func (e *TutorialEdit) SetContent(content string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.content = content
}

func (e *TutorialEdit) dirtyLocked() bool {
	return e.server != nil && (e.title != e.server.Title || e.content != e.server.Content)
}

// Dirty reports whether the title or content differs from the last synced server copy.
func (e *TutorialEdit) Dirty() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dirtyLocked()
}

// CanSave reports whether Save would send a request.
func (e *TutorialEdit) CanSave() bool {
	return e.State().CanSave()
}

// State returns a copy of the current state.
func (e *TutorialEdit) State() TutorialEditState {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := TutorialEditState{
		Status:  e.status,
		Title:   e.title,
		Content: e.content,
		Saving:  e.saving,
		Dirty:   e.dirtyLocked(),
		Err:     e.err,
	}
	if e.server != nil {
		t := *e.server
		s.Server = &t
	}
	if e.err != nil {
		s.Message = loadMessage(e.err)
	}
	return s
}

// Save sends the changed fields and replaces local state with the server's copy.
//
// Nothing is sent when the fields are clean ([ErrNoChanges]) or a save is running. On failure the
// edits and the dirty flag stay and the error is kept for display.
func (e *TutorialEdit) Save(ctx context.Context) error {
	e.mu.Lock()
	switch {
	case e.server == nil:
		e.mu.Unlock()
		return ErrNotLoaded
	case e.saving:
		e.mu.Unlock()
		return ErrSaveInProgress
	case !e.dirtyLocked():
		e.mu.Unlock()
		return ErrNoChanges
	}

	var update models.TutorialUpdate
	if e.title != e.server.Title {
		title := e.title
		update.Title = &title
	}
	if e.content != e.server.Content {
		content := e.content
		update.Content = &content
	}
	id := e.id
	e.saving = true
	e.err = nil
	e.mu.Unlock()

	updated, err := e.api.UpdateTutorial(ctx, id, update)
	if err != nil {
		e.logger.Error("failed to save tutorial", "id", id, "error", err)
	}

	if applyErr := e.Apply(func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		e.saving = false
		if err != nil {
			e.err = err
			return
		}
		e.syncLocked(updated)
	}); applyErr != nil {
		return applyErr
	}
	return err
}
