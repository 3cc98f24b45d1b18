package ui

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/desertthunder/tutorx/internal/nav"
	"github.com/desertthunder/tutorx/internal/services"
	"github.com/desertthunder/tutorx/internal/session"
)

// Options are the dependencies of the TUI.
type Options struct {
	Client services.Client
	Store  *session.Store
	Logger *log.Logger

	// CallbackAddr and CallbackPath locate the local login callback server.
	CallbackAddr    string
	CallbackPath    string
	CallbackTimeout time.Duration

	// OpenBrowser opens the provider login page. Defaults to a no-op that only shows the URL.
	OpenBrowser func(url string) error

	// Start is the first route requested. Defaults to the dashboard.
	Start nav.Route
}

// Model represents the TUI application state.
//
// Exactly one page is active. Leaving a page closes its flow so late responses are discarded.
type Model struct {
	ctx     context.Context
	opts    Options
	logger  *log.Logger
	route   nav.Route
	waiting bool
	seq     int
	session session.Snapshot
	updates <-chan session.Snapshot
	width   int
	height  int
	spinner spinner.Model
	help    help.Model
	keys    keyMap
	status  string

	login     *loginPage
	dashboard *dashboardPage
	upload    *uploadPage
	tutorial  *tutorialPage
	edit      *editPage
}

// NewModel creates a new TUI model with the provided dependencies.
func NewModel(ctx context.Context, opts Options) *Model {
	if opts.Start == (nav.Route{}) {
		opts.Start = nav.Dashboard
	}
	if opts.CallbackTimeout <= 0 {
		opts.CallbackTimeout = 2 * time.Minute
	}
	if opts.OpenBrowser == nil {
		opts.OpenBrowser = func(string) error { return fmt.Errorf("no browser available") }
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styles.label

	return &Model{
		ctx:     ctx,
		opts:    opts,
		logger:  logger,
		route:   opts.Start,
		waiting: true,
		session: opts.Store.Snapshot(),
		spinner: s,
		help:    help.New(),
		keys:    newKeyMap(),
	}
}

// Init subscribes to the session store, starts the one-time identity check and requests the start route.
func (m *Model) Init() tea.Cmd {
	m.updates = m.opts.Store.Subscribe()
	return tea.Batch(
		m.spinner.Tick,
		m.initSession(),
		m.waitForSession(),
		m.navigate(m.opts.Start),
	)
}

// Route returns the active route.
func (m *Model) Route() nav.Route {
	return m.route
}

func (m *Model) initSession() tea.Cmd {
	return func() tea.Msg {
		m.opts.Store.Init(m.ctx)
		return nil
	}
}

func (m *Model) waitForSession() tea.Cmd {
	ch := m.updates
	return func() tea.Msg {
		snap, ok := <-ch
		if !ok {
			return nil
		}
		return sessionChangedMsg(snap)
	}
}

// navigate applies the route guard and switches pages.
func (m *Model) navigate(route nav.Route) tea.Cmd {
	decision := nav.Guard(m.session.State, route)
	m.logger.Debug("navigate", "route", route, "action", decision.Action, "to", decision.To)

	switch decision.Action {
	case nav.Wait:
		m.leave()
		m.route = route
		m.waiting = true
		return nil
	case nav.Redirect:
		route = decision.To
	}
	if route.Page == nav.PageLogin && m.session.State == session.Authenticated {
		route = nav.Dashboard
	}

	m.leave()
	m.seq++
	m.route = route
	m.waiting = false
	m.status = ""
	return m.enter()
}

// enter builds a fresh page for the active route.
func (m *Model) enter() tea.Cmd {
	switch m.route.Page {
	case nav.PageLogin:
		return m.enterLogin()
	case nav.PageDashboard:
		return m.enterDashboard()
	case nav.PageUpload:
		return m.enterUpload()
	case nav.PageTutorial:
		return m.enterTutorial(m.route.ID)
	case nav.PageTutorialEdit:
		return m.enterEdit(m.route.ID)
	}
	return nil
}

// leave closes the active page's flow.
func (m *Model) leave() {
	if m.login != nil {
		m.login.close()
		m.login = nil
	}
	if m.dashboard != nil {
		m.dashboard.flow.Close()
		m.dashboard = nil
	}
	if m.upload != nil {
		m.upload.flow.Close()
		m.upload = nil
	}
	if m.tutorial != nil {
		m.tutorial.flow.Close()
		m.tutorial = nil
	}
	if m.edit != nil {
		m.edit.flow.Close()
		m.edit = nil
	}
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.leave()
			return m, tea.Quit
		}
		return m, m.handleKeys(msg)

	case Msg:
		return m, m.handleMsg(msg)
	}

	return m, m.updatePage(msg)
}

func (m *Model) handleMsg(msg Msg) tea.Cmd {
	switch msg.kind {
	case MsgSessionChanged:
		m.session = msg.data.(session.Snapshot)
		return tea.Batch(m.waitForSession(), m.onSessionChange())
	case MsgLoggedOut:
		if msg.err != nil {
			m.status = "Logout failed: " + msg.err.Error()
		}
		return nil
	}

	if msg.seq != m.seq {
		m.logger.Debug("dropping message from a page that was left", "kind", msg.kind)
		return nil
	}

	switch msg.kind {
	case MsgLoginStarted, MsgCallbackReceived, MsgLoginResolved:
		return m.handleLoginMsg(msg)
	case MsgDashboardLoaded:
		return m.handleDashboardMsg(msg)
	case MsgUploadProgress, MsgUploadDone:
		return m.handleUploadMsg(msg)
	case MsgTutorialLoaded:
		return m.handleTutorialMsg(msg)
	case MsgEditLoaded, MsgSaved:
		return m.handleEditMsg(msg)
	}
	return nil
}

// onSessionChange re-runs the guard for the active route.
func (m *Model) onSessionChange() tea.Cmd {
	switch {
	case m.waiting:
		return m.navigate(m.route)
	case m.route.Protected() && m.session.State == session.Anonymous:
		return m.navigate(nav.Login)
	case m.route.Page == nav.PageLogin && m.session.State == session.Authenticated:
		return m.navigate(nav.Dashboard)
	}
	return nil
}

func (m *Model) logout() tea.Cmd {
	store := m.opts.Store
	ctx := m.ctx
	return func() tea.Msg {
		return loggedOutMsg(store.Logout(ctx))
	}
}

func (m *Model) handleKeys(msg tea.KeyMsg) tea.Cmd {
	if m.waiting {
		if key.Matches(msg, m.keys.quit) {
			return tea.Quit
		}
		return nil
	}

	switch m.route.Page {
	case nav.PageLogin:
		return m.handleLoginKeys(msg)
	case nav.PageDashboard:
		return m.handleDashboardKeys(msg)
	case nav.PageUpload:
		return m.handleUploadKeys(msg)
	case nav.PageTutorial:
		return m.handleTutorialKeys(msg)
	case nav.PageTutorialEdit:
		return m.handleEditKeys(msg)
	}
	return nil
}

// updatePage forwards other messages (cursor blink and the like) to the active page's widgets.
func (m *Model) updatePage(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	switch {
	case m.login != nil:
		m.login.code, cmd = m.login.code.Update(msg)
	case m.dashboard != nil:
		m.dashboard.search, cmd = m.dashboard.search.Update(msg)
	case m.upload != nil:
		m.upload.path, cmd = m.upload.path.Update(msg)
	case m.edit != nil:
		cmd = m.edit.updateInputs(msg)
	}
	return cmd
}

func (m *Model) resize() {
	w, h := m.contentSize()
	if m.dashboard != nil {
		m.dashboard.list.SetSize(w, h-4)
	}
	if m.upload != nil {
		m.upload.preview.Width, m.upload.preview.Height = w, h-8
	}
	if m.tutorial != nil {
		m.tutorial.viewport.Width, m.tutorial.viewport.Height = w, h-4
	}
	if m.edit != nil {
		m.edit.title.Width = w - 8
		m.edit.content.SetWidth(w)
		m.edit.content.SetHeight(max(h-10, 3))
	}
}

// contentSize is the area below the header and above the help line.
func (m *Model) contentSize() (int, int) {
	w, h := m.width-4, m.height-4
	if w <= 0 {
		w = 76
	}
	if h <= 0 {
		h = 20
	}
	return w, h
}

// View renders the UI based on the current route.
func (m *Model) View() string {
	var body string
	switch {
	case m.waiting:
		body = fmt.Sprintf("%s Checking session...", m.spinner.View())
	case m.route.Page == nav.PageLogin:
		body = m.renderLogin()
	case m.route.Page == nav.PageDashboard:
		body = m.renderDashboard()
	case m.route.Page == nav.PageUpload:
		body = m.renderUpload()
	case m.route.Page == nav.PageTutorial:
		body = m.renderTutorial()
	case m.route.Page == nav.PageTutorialEdit:
		body = m.renderEdit()
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n\n")
	b.WriteString(body)
	if m.status != "" {
		b.WriteString("\n\n")
		b.WriteString(styles.warn.Render(m.status))
	}
	return b.String()
}

func (m *Model) renderHeader() string {
	who := "not signed in"
	if m.session.User != nil {
		who = m.session.User.Name
	}
	return fmt.Sprintf("%s %s  %s", styles.header.Render("tutorx"), styles.muted.Render(m.route.Path()), styles.muted.Render(who))
}

func (m *Model) helpView(bindings ...key.Binding) string {
	return m.help.ShortHelpView(bindings)
}

func errorLine(msg string) string {
	return styles.err.Render("✗ " + msg)
}
