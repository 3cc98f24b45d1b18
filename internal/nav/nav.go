// Package nav defines the client's routes and the guard that gates protected ones on the session.
package nav

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/desertthunder/tutorx/internal/session"
	"github.com/desertthunder/tutorx/internal/shared"
)

// Page identifies a screen.
type Page int

const (
	PageLogin Page = iota
	PageDashboard
	PageUpload
	PageTutorial
	PageTutorialEdit
)

func (p Page) String() string {
	switch p {
	case PageLogin:
		return "login"
	case PageDashboard:
		return "dashboard"
	case PageUpload:
		return "upload"
	case PageTutorial:
		return "tutorial"
	case PageTutorialEdit:
		return "tutorial-edit"
	default:
		return fmt.Sprintf("Page(%d)", int(p))
	}
}

// Route is a page plus the tutorial id for the tutorial pages.
type Route struct {
	Page Page
	ID   string
}

var (
	Login     = Route{Page: PageLogin}
	Dashboard = Route{Page: PageDashboard}
	Upload    = Route{Page: PageUpload}
)

// Tutorial returns the read-only route for id.
func Tutorial(id string) Route { return Route{Page: PageTutorial, ID: id} }

// TutorialEdit returns the edit route for id.
func TutorialEdit(id string) Route { return Route{Page: PageTutorialEdit, ID: id} }

// Path renders the route as a URL path.
func (r Route) Path() string {
	switch r.Page {
	case PageLogin:
		return "/login"
	case PageDashboard:
		return "/dashboard"
	case PageUpload:
		return "/upload"
	case PageTutorial:
		return "/tutorial/" + url.PathEscape(r.ID)
	case PageTutorialEdit:
		return "/tutorial/" + url.PathEscape(r.ID) + "/edit"
	default:
		return "/"
	}
}

func (r Route) String() string { return r.Path() }

// Protected reports whether the route requires an authenticated session.
func (r Route) Protected() bool {
	return r.Page != PageLogin
}

// Parse turns a path into a route. "/" and "" resolve to the dashboard.
func Parse(path string) (Route, error) {
	path = strings.TrimSuffix(path, "/")
	segments := strings.Split(strings.TrimPrefix(path, "/"), "/")

	switch {
	case path == "":
		return Dashboard, nil
	case len(segments) == 1 && segments[0] == "login":
		return Login, nil
	case len(segments) == 1 && segments[0] == "dashboard":
		return Dashboard, nil
	case len(segments) == 1 && segments[0] == "upload":
		return Upload, nil
	case segments[0] == "tutorial" && (len(segments) == 2 || (len(segments) == 3 && segments[2] == "edit")):
		id, err := url.PathUnescape(segments[1])
		if err != nil || id == "" {
			return Route{}, fmt.Errorf("%w: bad tutorial id in %q", shared.ErrInvalidArgument, path)
		}
		if len(segments) == 3 {
			return TutorialEdit(id), nil
		}
		return Tutorial(id), nil
	default:
		return Route{}, fmt.Errorf("%w: unknown route %q", shared.ErrInvalidArgument, path)
	}
}

// Action is what to do with a navigation.
type Action int

const (
	// Wait renders a neutral placeholder while the session is loading.
	Wait Action = iota
	// Render shows the requested route.
	Render
	// Redirect sends the user to Decision.To.
	Redirect
)

func (a Action) String() string {
	switch a {
	case Wait:
		return "wait"
	case Render:
		return "render"
	case Redirect:
		return "redirect"
	default:
		return fmt.Sprintf("Action(%d)", int(a))
	}
}

// Decision is the guard's verdict for one navigation.
type Decision struct {
	Action Action
	To     Route
}

// Guard decides whether route may be shown in the given session state.
//
// Public routes render in every state; only protected routes wait for the identity check.
func Guard(state session.State, route Route) Decision {
	switch {
	case !route.Protected() || state == session.Authenticated:
		return Decision{Action: Render, To: route}
	case state == session.Loading:
		return Decision{Action: Wait, To: route}
	default:
		return Decision{Action: Redirect, To: Login}
	}
}
