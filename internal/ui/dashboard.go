package ui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/tutorx/internal/flows"
	"github.com/desertthunder/tutorx/internal/nav"
	"github.com/desertthunder/tutorx/internal/services"
)

// dashboardPage lists the user's tutorials a page at a time.
type dashboardPage struct {
	flow   *flows.Dashboard
	list   list.Model
	search textinput.Model
}

func (m *Model) enterDashboard() tea.Cmd {
	w, h := m.contentSize()

	l := list.New(nil, list.NewDefaultDelegate(), w, h-4)
	l.Title = "Your Tutorials"
	l.SetFilteringEnabled(false)
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.SetShowPagination(false)

	search := textinput.New()
	search.Placeholder = "search titles"
	search.Prompt = "/ "
	search.CharLimit = 200

	m.dashboard = &dashboardPage{
		flow:   flows.NewDashboard(m.opts.Client, m.logger),
		list:   l,
		search: search,
	}
	return m.loadDashboard(func(d *flows.Dashboard) error { return d.Load(m.ctx, 1, "") })
}

// loadDashboard runs op against the dashboard flow off the UI goroutine.
func (m *Model) loadDashboard(op func(d *flows.Dashboard) error) tea.Cmd {
	seq, flow := m.seq, m.dashboard.flow
	return func() tea.Msg {
		return dashboardLoadedMsg(seq, op(flow))
	}
}

func (m *Model) handleDashboardKeys(msg tea.KeyMsg) tea.Cmd {
	p := m.dashboard
	if p == nil {
		return nil
	}
	ctx := m.ctx

	if p.search.Focused() {
		switch {
		case key.Matches(msg, m.keys.back):
			p.search.Blur()
			return nil
		case key.Matches(msg, m.keys.enter):
			p.search.Blur()
			term := strings.TrimSpace(p.search.Value())
			return m.loadDashboard(func(d *flows.Dashboard) error { return d.Search(ctx, term) })
		}
		var cmd tea.Cmd
		p.search, cmd = p.search.Update(msg)
		return cmd
	}

	state := p.flow.State()
	switch {
	case key.Matches(msg, m.keys.quit):
		m.leave()
		return tea.Quit
	case key.Matches(msg, m.keys.search):
		return p.search.Focus()
	case key.Matches(msg, m.keys.back):
		if state.Search != "" {
			p.search.SetValue("")
			return m.loadDashboard(func(d *flows.Dashboard) error { return d.Search(ctx, "") })
		}
		return nil
	case key.Matches(msg, m.keys.next):
		if !state.CanNext() || state.Loading {
			return nil
		}
		return m.loadDashboard(func(d *flows.Dashboard) error { return d.Next(ctx) })
	case key.Matches(msg, m.keys.prev):
		if !state.CanPrev() || state.Loading {
			return nil
		}
		return m.loadDashboard(func(d *flows.Dashboard) error { return d.Prev(ctx) })
	case key.Matches(msg, m.keys.reload):
		return m.loadDashboard(func(d *flows.Dashboard) error { return d.Reload(ctx) })
	case key.Matches(msg, m.keys.upload):
		return m.navigate(nav.Upload)
	case key.Matches(msg, m.keys.logout):
		return m.logout()
	case key.Matches(msg, m.keys.enter), key.Matches(msg, m.keys.edit):
		item, ok := p.list.SelectedItem().(tutorialItem)
		if !ok {
			return nil
		}
		if key.Matches(msg, m.keys.edit) {
			return m.navigate(nav.TutorialEdit(item.tutorial.ID))
		}
		return m.navigate(nav.Tutorial(item.tutorial.ID))
	}

	var cmd tea.Cmd
	p.list, cmd = p.list.Update(msg)
	return cmd
}

func (m *Model) handleDashboardMsg(msg Msg) tea.Cmd {
	p := m.dashboard
	if p == nil || errors.Is(msg.err, flows.ErrAbandoned) {
		return nil
	}
	state := p.flow.State()
	return p.list.SetItems(tutorialItems(state.Items))
}

func (m *Model) renderDashboard() string {
	p := m.dashboard
	if p == nil {
		return ""
	}
	state := p.flow.State()

	var b strings.Builder
	stats := fmt.Sprintf("%d tutorials", state.Total)
	if latest, ok := state.Latest(); ok {
		stats += " • latest " + latest.Local().Format("Jan 2, 2006")
	}
	b.WriteString(styles.muted.Render(stats))
	b.WriteString("\n")

	if p.search.Focused() || state.Search != "" {
		b.WriteString(p.search.View())
		b.WriteString("\n")
	}

	switch {
	case state.Loading && len(state.Items) == 0:
		b.WriteString(fmt.Sprintf("\n%s Loading tutorials...\n", m.spinner.View()))
	case len(state.Items) == 0 && state.Err == nil:
		b.WriteString("\n")
		b.WriteString(styles.muted.Render(state.EmptyMessage()))
		b.WriteString("\n")
	default:
		b.WriteString(p.list.View())
		b.WriteString("\n")
	}

	if state.Err != nil {
		b.WriteString(errorLine(services.Message(state.Err)))
		b.WriteString("\n")
	}

	pager := fmt.Sprintf("Page %d of %d", max(state.Page, 1), max(state.TotalPages, 1))
	if state.Loading && len(state.Items) > 0 {
		pager += " " + m.spinner.View()
	}
	b.WriteString(styles.muted.Render(pager))
	b.WriteString("\n\n")

	bindings := []key.Binding{m.keys.enter, m.keys.edit, m.keys.search, m.keys.upload}
	if state.CanPrev() {
		bindings = append(bindings, m.keys.prev)
	}
	if state.CanNext() {
		bindings = append(bindings, m.keys.next)
	}
	bindings = append(bindings, m.keys.reload, m.keys.logout, m.keys.quit)
	b.WriteString(m.helpView(bindings...))
	return b.String()
}
