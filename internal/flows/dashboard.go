package flows

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/tutorx/internal/models"
	"github.com/desertthunder/tutorx/internal/services"
	"github.com/desertthunder/tutorx/internal/shared"
)

// PageSize is the number of tutorials per dashboard page.
const PageSize = 6

const (
	EmptySearchMessage = "No tutorials found matching your search."
	EmptyListMessage   = "Upload your first transcript to generate a tutorial."
)

// ErrPageOutOfRange is returned for a page outside 1..TotalPages.
var ErrPageOutOfRange = errors.New("page out of range")

// DashboardState is a copy of the dashboard's state.
type DashboardState struct {
	Items       []models.Tutorial
	Page        int
	TotalPages  int
	Total       int
	Search      string
	CreatedFrom string
	CreatedTo   string
	Loading     bool
	Err         error
}

// CanPrev reports whether a previous page exists.
func (s DashboardState) CanPrev() bool {
	return s.Page > 1
}

// CanNext reports whether a next page exists.
func (s DashboardState) CanNext() bool {
	return s.Page < s.TotalPages
}

// EmptyMessage is shown when the page has no items.
func (s DashboardState) EmptyMessage() string {
	if s.Search != "" {
		return EmptySearchMessage
	}
	return EmptyListMessage
}

// Latest returns the newest creation time among the loaded items.
func (s DashboardState) Latest() (time.Time, bool) {
	var latest time.Time
	for _, item := range s.Items {
		if item.CreatedAt.After(latest) {
			latest = item.CreatedAt.Time
		}
	}
	return latest, !latest.IsZero()
}

// Dashboard is the paginated, searchable tutorial list.
type Dashboard struct {
	Lifecycle

	api    services.TutorialService
	logger *log.Logger

	mu    sync.Mutex
	state DashboardState
}

// NewDashboard creates a dashboard flow. Nothing is loaded until [Dashboard.Load].
func NewDashboard(api services.TutorialService, logger *log.Logger) *Dashboard {
	return &Dashboard{api: api, logger: logger}
}

// State returns a copy of the current state.
func (d *Dashboard) State() DashboardState {
	d.mu.Lock()
	defer d.mu.Unlock()

	s := d.state
	s.Items = append([]models.Tutorial(nil), d.state.Items...)
	return s
}

// SetDateRange sets the created date filter used by later loads. Empty strings clear a bound.
func (d *Dashboard) SetDateRange(from, to string) error {
	params := models.ListParams{CreatedFrom: from, CreatedTo: to}
	if err := params.Validate(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.state.CreatedFrom = from
	d.state.CreatedTo = to
	return nil
}

// Load requests page with the optional search term and replaces the list with the response.
//
// A failure is kept in the state's Err and returned; the previous items stay in place.
func (d *Dashboard) Load(ctx context.Context, page int, search string) error {
	if page < 1 {
		return fmt.Errorf("%w: %d", ErrPageOutOfRange, page)
	}

	var params models.ListParams
	if err := d.Apply(func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		d.state.Loading = true
		d.state.Err = nil
		params = models.ListParams{
			Page:        page,
			PageSize:    PageSize,
			Search:      search,
			CreatedFrom: d.state.CreatedFrom,
			CreatedTo:   d.state.CreatedTo,
		}
	}); err != nil {
		return err
	}

	result, err := d.api.ListTutorials(ctx, params)
	if err != nil {
		d.logger.Error("failed to load tutorials", "page", page, "search", search, "error", err)
	}

	if applyErr := d.Apply(func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		d.state.Loading = false
		if err != nil {
			d.state.Err = err
			return
		}

		d.state.Items = append([]models.Tutorial(nil), result.Items...)
		d.state.Total = result.Total
		d.state.TotalPages = result.TotalPages(PageSize)
		d.state.Page = page
		d.state.Search = search
	}); applyErr != nil {
		return applyErr
	}

	return err
}

// Search loads the first page for term.
func (d *Dashboard) Search(ctx context.Context, term string) error {
	return d.Load(ctx, 1, term)
}

// Reload requests the current page again.
func (d *Dashboard) Reload(ctx context.Context) error {
	s := d.State()
	page := s.Page
	if page < 1 {
		page = 1
	}
	return d.Load(ctx, page, s.Search)
}

// Goto loads page if it lies within 1..TotalPages. Out-of-range pages make no request.
func (d *Dashboard) Goto(ctx context.Context, page int) error {
	s := d.State()
	if page < 1 || page > s.TotalPages {
		return fmt.Errorf("%w: %d of %d", ErrPageOutOfRange, page, s.TotalPages)
	}
	return d.Load(ctx, page, s.Search)
}

// Next loads the following page.
func (d *Dashboard) Next(ctx context.Context) error {
	return d.Goto(ctx, d.State().Page+1)
}

// Prev loads the preceding page.
func (d *Dashboard) Prev(ctx context.Context) error {
	return d.Goto(ctx, d.State().Page-1)
}
