package ui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/tutorx/internal/flows"
	"github.com/desertthunder/tutorx/internal/formatter"
	"github.com/desertthunder/tutorx/internal/nav"
)

// uploadPage selects a transcript, uploads it and previews the generated tutorial.
type uploadPage struct {
	flow     *flows.Upload
	path     textinput.Model
	preview  viewport.Model
	progress chan flows.UploadState
	done     chan error
	readErr  string
}

func (m *Model) enterUpload() tea.Cmd {
	w, h := m.contentSize()

	path := textinput.New()
	path.Placeholder = "path/to/transcript.json"
	path.Prompt = "File: "
	path.CharLimit = 1024
	path.Width = w - 8

	m.upload = &uploadPage{
		flow:    flows.NewUpload(m.opts.Client, m.logger),
		path:    path,
		preview: viewport.New(w, h-8),
	}
	return m.upload.path.Focus()
}

func (m *Model) handleUploadKeys(msg tea.KeyMsg) tea.Cmd {
	p := m.upload
	if p == nil {
		return nil
	}
	state := p.flow.State()
	busy := state.Status == flows.Uploading || state.Status == flows.Generating

	if p.path.Focused() {
		switch {
		case key.Matches(msg, m.keys.back):
			return m.navigate(nav.Dashboard)
		case key.Matches(msg, m.keys.enter):
			return m.selectAndRun(strings.TrimSpace(p.path.Value()))
		}
		var cmd tea.Cmd
		p.path, cmd = p.path.Update(msg)
		return cmd
	}

	switch {
	case key.Matches(msg, m.keys.quit) && !busy:
		m.leave()
		return tea.Quit
	case key.Matches(msg, m.keys.back):
		return m.navigate(nav.Dashboard)
	case key.Matches(msg, m.keys.restart) && !busy:
		p.flow.Reset()
		p.readErr = ""
		p.path.SetValue("")
		p.preview.SetContent("")
		return p.path.Focus()
	}

	var cmd tea.Cmd
	p.preview, cmd = p.preview.Update(msg)
	return cmd
}

// selectAndRun validates the file and starts the upload when it is accepted.
func (m *Model) selectAndRun(path string) tea.Cmd {
	p := m.upload
	p.readErr = ""
	if path == "" {
		return nil
	}

	file, err := flows.ReadTranscript(path)
	if err != nil {
		p.readErr = err.Error()
		return nil
	}
	if err := p.flow.Select(file); err != nil {
		return nil
	}

	p.path.Blur()
	p.progress = make(chan flows.UploadState, 4)
	p.done = make(chan error, 1)

	ctx, flow, progress, done := m.ctx, p.flow, p.progress, p.done
	go func() {
		done <- flow.Run(ctx, progress)
		close(progress)
	}()
	return m.waitForUpload()
}

func (m *Model) waitForUpload() tea.Cmd {
	seq, progress, done := m.seq, m.upload.progress, m.upload.done
	return func() tea.Msg {
		update, ok := <-progress
		if !ok {
			return uploadDoneMsg(seq, <-done)
		}
		return uploadProgressMsg(seq, update)
	}
}

func (m *Model) handleUploadMsg(msg Msg) tea.Cmd {
	p := m.upload
	if p == nil {
		return nil
	}

	switch msg.kind {
	case MsgUploadProgress:
		return m.waitForUpload()
	case MsgUploadDone:
		p.progress, p.done = nil, nil
		if errors.Is(msg.err, flows.ErrAbandoned) {
			return nil
		}
		if result := p.flow.State().Result; result != nil {
			p.preview.SetContent(string(formatter.GeneratedToText(result)))
			p.preview.GotoTop()
		}
	}
	return nil
}

func (m *Model) renderUpload() string {
	p := m.upload
	if p == nil {
		return ""
	}
	state := p.flow.State()

	var b strings.Builder
	b.WriteString(styles.title.Render("Upload Transcript"))
	b.WriteString("\n")

	switch state.Status {
	case flows.Idle:
		b.WriteString("Select a JSON chat transcript to generate a tutorial.\n\n")
		b.WriteString(p.path.View())
		b.WriteString("\n")
		if state.Validation != "" {
			b.WriteString(errorLine(state.Validation))
			b.WriteString("\n")
		}
		if p.readErr != "" {
			b.WriteString(errorLine(p.readErr))
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(m.helpView(m.keys.enter, m.keys.back))

	case flows.Uploading:
		b.WriteString(fmt.Sprintf("%s Uploading %s...\n", m.spinner.View(), state.FileName))

	case flows.Generating:
		b.WriteString(styles.ok.Render("✓ Uploaded"))
		b.WriteString("\n")
		b.WriteString(fmt.Sprintf("%s Generating tutorial...\n", m.spinner.View()))

	case flows.Success:
		b.WriteString(styles.ok.Render("✓ Tutorial generated"))
		b.WriteString("\n\n")
		b.WriteString(styles.box.Render(p.preview.View()))
		b.WriteString("\n\n")
		b.WriteString(m.helpView(m.keys.up, m.keys.down, m.keys.restart, m.keys.back, m.keys.quit))

	case flows.Failed:
		b.WriteString(errorLine(state.Message))
		b.WriteString("\n\n")
		b.WriteString(m.helpView(m.keys.restart, m.keys.back, m.keys.quit))
	}
	return b.String()
}
