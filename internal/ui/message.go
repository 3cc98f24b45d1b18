package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/tutorx/internal/flows"
	"github.com/desertthunder/tutorx/internal/nav"
	"github.com/desertthunder/tutorx/internal/session"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
//
// seq ties a message to the page that issued it; the model drops messages from pages it already left.
type Msg struct {
	kind MsgKind
	seq  int
	data any
	err  error
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgSessionChanged MsgKind = iota
	MsgLoginStarted
	MsgCallbackReceived
	MsgLoginResolved
	MsgLoggedOut
	MsgDashboardLoaded
	MsgUploadProgress
	MsgUploadDone
	MsgTutorialLoaded
	MsgEditLoaded
	MsgSaved
)

// sessionChangedMsg is the constructor for [MsgSessionChanged]
func sessionChangedMsg(snap session.Snapshot) Msg {
	return Msg{kind: MsgSessionChanged, seq: -1, data: snap}
}

// loginStartedMsg is the constructor for [MsgLoginStarted]
func loginStartedMsg(seq int, err error) Msg {
	return Msg{kind: MsgLoginStarted, seq: seq, err: err}
}

// callbackReceivedMsg is the constructor for [MsgCallbackReceived]
func callbackReceivedMsg(seq int, code string, err error) Msg {
	return Msg{kind: MsgCallbackReceived, seq: seq, data: code, err: err}
}

// loginResolvedMsg is the constructor for [MsgLoginResolved]
func loginResolvedMsg(seq int, route nav.Route, err error) Msg {
	return Msg{kind: MsgLoginResolved, seq: seq, data: route, err: err}
}

// loggedOutMsg is the constructor for [MsgLoggedOut]
func loggedOutMsg(err error) Msg {
	return Msg{kind: MsgLoggedOut, seq: -1, err: err}
}

// dashboardLoadedMsg is the constructor for [MsgDashboardLoaded]
func dashboardLoadedMsg(seq int, err error) Msg {
	return Msg{kind: MsgDashboardLoaded, seq: seq, err: err}
}

// uploadProgressMsg is the constructor for [MsgUploadProgress]
func uploadProgressMsg(seq int, state flows.UploadState) Msg {
	return Msg{kind: MsgUploadProgress, seq: seq, data: state}
}

// uploadDoneMsg is the constructor for [MsgUploadDone]
func uploadDoneMsg(seq int, err error) Msg {
	return Msg{kind: MsgUploadDone, seq: seq, err: err}
}

// tutorialLoadedMsg is the constructor for [MsgTutorialLoaded]
func tutorialLoadedMsg(seq int, err error) Msg {
	return Msg{kind: MsgTutorialLoaded, seq: seq, err: err}
}

// editLoadedMsg is the constructor for [MsgEditLoaded]
func editLoadedMsg(seq int, err error) Msg {
	return Msg{kind: MsgEditLoaded, seq: seq, err: err}
}

// savedMsg is the constructor for [MsgSaved]
func savedMsg(seq int, err error) Msg {
	return Msg{kind: MsgSaved, seq: seq, err: err}
}
