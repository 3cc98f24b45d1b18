package ui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/tutorx/internal/flows"
	"github.com/desertthunder/tutorx/internal/nav"
)

// tutorialPage renders one tutorial read-only.
type tutorialPage struct {
	id       string
	flow     *flows.TutorialView
	viewport viewport.Model
}

func (m *Model) enterTutorial(id string) tea.Cmd {
	w, h := m.contentSize()
	m.tutorial = &tutorialPage{
		id:       id,
		flow:     flows.NewTutorialView(m.opts.Client, m.logger),
		viewport: viewport.New(w, h-4),
	}

	seq, ctx, flow := m.seq, m.ctx, m.tutorial.flow
	return func() tea.Msg {
		return tutorialLoadedMsg(seq, flow.Load(ctx, id))
	}
}

func (m *Model) handleTutorialKeys(msg tea.KeyMsg) tea.Cmd {
	p := m.tutorial
	if p == nil {
		return nil
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		m.leave()
		return tea.Quit
	case key.Matches(msg, m.keys.back):
		return m.navigate(nav.Dashboard)
	case key.Matches(msg, m.keys.edit):
		if p.flow.State().Status == flows.Loaded {
			return m.navigate(nav.TutorialEdit(p.id))
		}
		return nil
	}

	var cmd tea.Cmd
	p.viewport, cmd = p.viewport.Update(msg)
	return cmd
}

func (m *Model) handleTutorialMsg(msg Msg) tea.Cmd {
	p := m.tutorial
	if p == nil || errors.Is(msg.err, flows.ErrAbandoned) {
		return nil
	}
	if t := p.flow.State().Tutorial; t != nil {
		p.viewport.SetContent(t.Content)
		p.viewport.GotoTop()
	}
	return nil
}

func (m *Model) renderTutorial() string {
	p := m.tutorial
	if p == nil {
		return ""
	}
	state := p.flow.State()

	switch state.Status {
	case flows.NotStarted, flows.Loading:
		return fmt.Sprintf("%s Loading tutorial...", m.spinner.View())
	case flows.LoadFailed:
		return errorLine(state.Message) + "\n\n" + m.helpView(m.keys.back, m.keys.quit)
	}

	t := state.Tutorial
	var b strings.Builder
	b.WriteString(styles.title.Render(t.Title))
	b.WriteString("\n")
	meta := "Created " + t.CreatedAt.String()
	if !t.UpdatedAt.IsZero() {
		meta += " • Updated " + t.UpdatedAt.String()
	}
	b.WriteString(styles.muted.Render(meta))
	b.WriteString("\n\n")
	b.WriteString(p.viewport.View())
	b.WriteString("\n\n")
	b.WriteString(m.helpView(m.keys.up, m.keys.down, m.keys.edit, m.keys.back, m.keys.quit))
	return b.String()
}

// editPage edits a tutorial's title and content.
type editPage struct {
	id      string
	flow    *flows.TutorialEdit
	title   textinput.Model
	content textarea.Model
	seeded  bool
}

func (m *Model) enterEdit(id string) tea.Cmd {
	w, h := m.contentSize()

	title := textinput.New()
	title.Prompt = ""
	title.CharLimit = 200
	title.Width = w - 8

	content := textarea.New()
	content.ShowLineNumbers = false
	content.CharLimit = 0
	content.SetWidth(w)
	content.SetHeight(max(h-10, 3))

	m.edit = &editPage{
		id:      id,
		flow:    flows.NewTutorialEdit(m.opts.Client, m.logger),
		title:   title,
		content: content,
	}

	seq, ctx, flow := m.seq, m.ctx, m.edit.flow
	return func() tea.Msg {
		return editLoadedMsg(seq, flow.Load(ctx, id))
	}
}

// sync copies the widget values into the flow.
func (p *editPage) sync() {
	p.flow.SetTitle(p.title.Value())
	p.flow.SetContent(p.content.Value())
}

func (p *editPage) updateInputs(msg tea.Msg) tea.Cmd {
	var titleCmd, contentCmd tea.Cmd
	p.title, titleCmd = p.title.Update(msg)
	p.content, contentCmd = p.content.Update(msg)
	if p.seeded {
		p.sync()
	}
	return tea.Batch(titleCmd, contentCmd)
}

func (m *Model) handleEditKeys(msg tea.KeyMsg) tea.Cmd {
	p := m.edit
	if p == nil {
		return nil
	}

	switch {
	case key.Matches(msg, m.keys.back):
		return m.navigate(nav.Tutorial(p.id))
	case !p.seeded:
		if key.Matches(msg, m.keys.quit) {
			m.leave()
			return tea.Quit
		}
		return nil
	case key.Matches(msg, m.keys.save):
		if !p.flow.CanSave() {
			return nil
		}
		seq, ctx, flow := m.seq, m.ctx, p.flow
		return func() tea.Msg {
			return savedMsg(seq, flow.Save(ctx))
		}
	case key.Matches(msg, m.keys.tab):
		if p.title.Focused() {
			p.title.Blur()
			return p.content.Focus()
		}
		p.content.Blur()
		return p.title.Focus()
	}

	return p.updateInputs(msg)
}

func (m *Model) handleEditMsg(msg Msg) tea.Cmd {
	p := m.edit
	if p == nil || errors.Is(msg.err, flows.ErrAbandoned) {
		return nil
	}

	state := p.flow.State()
	switch msg.kind {
	case MsgEditLoaded:
		if state.Status != flows.Loaded {
			return nil
		}
		p.title.SetValue(state.Title)
		p.content.SetValue(state.Content)
		p.seeded = true
		return p.title.Focus()
	case MsgSaved:
		if msg.err == nil {
			p.title.SetValue(state.Title)
			p.content.SetValue(state.Content)
			m.status = "Saved"
		}
	}
	return nil
}

func (m *Model) renderEdit() string {
	p := m.edit
	if p == nil {
		return ""
	}
	state := p.flow.State()

	switch state.Status {
	case flows.NotStarted, flows.Loading:
		return fmt.Sprintf("%s Loading tutorial...", m.spinner.View())
	case flows.LoadFailed:
		return errorLine(state.Message) + "\n\n" + m.helpView(m.keys.back, m.keys.quit)
	}

	var b strings.Builder
	heading := "Edit Tutorial"
	if state.Dirty {
		heading += " " + styles.warn.Render("(unsaved changes)")
	}
	b.WriteString(styles.title.Render(heading))
	b.WriteString("\n")
	b.WriteString(styles.label.Render("Title"))
	b.WriteString("\n")
	b.WriteString(p.title.View())
	b.WriteString("\n\n")
	b.WriteString(styles.label.Render("Content"))
	b.WriteString("\n")
	b.WriteString(p.content.View())
	b.WriteString("\n")

	switch {
	case state.Saving:
		b.WriteString(fmt.Sprintf("%s Saving...\n", m.spinner.View()))
	case state.Err != nil:
		b.WriteString(errorLine(state.Message))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	bindings := []key.Binding{m.keys.tab}
	if state.CanSave() {
		bindings = append(bindings, m.keys.save)
	}
	bindings = append(bindings, m.keys.back)
	b.WriteString(m.helpView(bindings...))
	return b.String()
}
