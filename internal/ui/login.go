package ui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/tutorx/internal/flows"
	"github.com/desertthunder/tutorx/internal/nav"
	"github.com/desertthunder/tutorx/internal/server"
	"github.com/desertthunder/tutorx/internal/services"
)

// loginPage starts the provider login and consumes the callback code.
type loginPage struct {
	flow    *flows.Login
	server  *server.CallbackServer
	code    textinput.Model
	pending bool
	notice  string
	message string
}

func (p *loginPage) close() {
	p.flow.Close()
	p.stopServer()
}

func (p *loginPage) stopServer() {
	if p.server != nil {
		p.server.Shutdown()
		p.server = nil
	}
}

func (m *Model) enterLogin() tea.Cmd {
	code := textinput.New()
	code.Placeholder = "paste the code from the callback URL"
	code.CharLimit = 512
	code.Width = 50

	m.login = &loginPage{
		flow: flows.NewLogin(m.opts.Client, m.opts.Store, m.logger),
		code: code,
	}
	return nil
}

func (m *Model) handleLoginKeys(msg tea.KeyMsg) tea.Cmd {
	p := m.login
	if p == nil {
		return nil
	}

	if p.code.Focused() {
		switch {
		case key.Matches(msg, m.keys.back):
			p.code.Blur()
			return nil
		case key.Matches(msg, m.keys.enter):
			code := strings.TrimSpace(p.code.Value())
			p.code.Blur()
			if code == "" {
				return nil
			}
			p.pending = true
			return m.resolveLogin(code)
		}
		var cmd tea.Cmd
		p.code, cmd = p.code.Update(msg)
		return cmd
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		m.leave()
		return tea.Quit
	case key.Matches(msg, m.keys.code):
		return p.code.Focus()
	case key.Matches(msg, m.keys.enter):
		if p.pending {
			return nil
		}
		return m.startLogin()
	}
	return nil
}

// startLogin binds the callback server, then asks the backend for the provider URL and opens it.
func (m *Model) startLogin() tea.Cmd {
	p := m.login
	p.pending = true
	p.message = ""
	p.notice = ""

	srv := server.NewCallbackServer(m.opts.CallbackAddr, m.opts.CallbackPath, m.logger)
	if err := srv.Start(); err != nil {
		m.logger.Warn("callback server unavailable", "error", err)
		p.message = "Callback server unavailable; press c to paste the code manually."
	} else {
		p.server = srv
	}

	seq, ctx, flow, logger := m.seq, m.ctx, p.flow, m.logger
	browser := m.opts.OpenBrowser
	return func() tea.Msg {
		var manualURL string
		open := func(url string) error {
			if err := browser(url); err != nil {
				logger.Warn("failed to open browser automatically", "error", err)
				manualURL = url
			}
			return nil
		}
		msg := loginStartedMsg(seq, flow.Continue(ctx, open))
		msg.data = manualURL
		return msg
	}
}

func (m *Model) waitForCallback() tea.Cmd {
	p := m.login
	if p.server == nil {
		return nil
	}
	seq, ctx, srv, timeout := m.seq, m.ctx, p.server, m.opts.CallbackTimeout
	return func() tea.Msg {
		code, err := srv.Wait(ctx, timeout)
		return callbackReceivedMsg(seq, code, err)
	}
}

func (m *Model) resolveLogin(code string) tea.Cmd {
	seq, ctx, flow := m.seq, m.ctx, m.login.flow
	return func() tea.Msg {
		route, err := flow.Resolve(ctx, code)
		return loginResolvedMsg(seq, route, err)
	}
}

func (m *Model) handleLoginMsg(msg Msg) tea.Cmd {
	p := m.login
	if p == nil {
		return nil
	}

	switch msg.kind {
	case MsgLoginStarted:
		if msg.err != nil {
			p.pending = false
			p.stopServer()
			p.message = "Could not start login: " + services.Message(msg.err)
			return nil
		}
		if url, _ := msg.data.(string); url != "" {
			p.notice = "Open this URL in your browser:\n" + url
		}
		if p.server == nil {
			p.pending = false
			return p.code.Focus()
		}
		return m.waitForCallback()

	case MsgCallbackReceived:
		p.stopServer()
		if msg.err != nil {
			p.pending = false
			p.message = msg.err.Error()
			return nil
		}
		return m.resolveLogin(msg.data.(string))

	case MsgLoginResolved:
		p.pending = false
		if msg.err != nil {
			if errors.Is(msg.err, flows.ErrAbandoned) {
				return nil
			}
			p.message = "Login failed: " + services.Message(msg.err)
			return nil
		}
		if route := msg.data.(nav.Route); route != nav.Login {
			return m.navigate(route)
		}
	}
	return nil
}

func (m *Model) renderLogin() string {
	p := m.login
	if p == nil {
		return ""
	}

	var b strings.Builder
	b.WriteString(styles.title.Render("Sign in"))
	b.WriteString("\n")
	b.WriteString("Turn chat transcripts into step-by-step tutorials.\n\n")

	switch {
	case p.pending && p.server != nil:
		b.WriteString(fmt.Sprintf("%s Waiting for the browser login on %s...\n", m.spinner.View(), p.server.Addr()))
	case p.pending:
		b.WriteString(fmt.Sprintf("%s Signing in...\n", m.spinner.View()))
	default:
		b.WriteString("Press enter to continue with GitHub.\n")
	}

	if p.notice != "" {
		b.WriteString("\n")
		b.WriteString(styles.warn.Render(p.notice))
		b.WriteString("\n")
	}

	if p.code.Focused() || p.code.Value() != "" {
		b.WriteString("\n")
		b.WriteString(styles.label.Render("Code: "))
		b.WriteString(p.code.View())
		b.WriteString("\n")
	}

	if p.message != "" {
		b.WriteString("\n")
		b.WriteString(errorLine(p.message))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.helpView(m.keys.enter, m.keys.code, m.keys.quit))
	return b.String()
}
