// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI has one page per route:
//  1. /login : Start the GitHub login and consume the callback code
//  2. /dashboard : Browse, search and page through tutorials
//  3. /upload : Select a transcript, upload it and preview the generated tutorial
//  4. /tutorial/{id} : Read a tutorial
//  5. /tutorial/{id}/edit : Edit the title and content and save the changes
//
// Every navigation goes through the route guard with the current session state. While the
// session is loading a neutral placeholder is shown; protected routes redirect to /login
// for anonymous sessions. Session changes arrive from [session.Store.Subscribe] and re-run the guard.
//
// Each page owns a fresh flow. Leaving a page closes the flow, and messages carry the
// sequence number of the page that issued them so late responses are dropped.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
