// Package flows implements the client's page flows independently of how they are rendered.
//
// Each flow owns its loading, error and data state behind a mutex and talks to the backend
// through the services interfaces. The CLI commands drive a flow once; the TUI keeps one flow
// per visible view and closes its [Lifecycle] when the view goes away, after which late
// responses are dropped with [ErrAbandoned] instead of mutating state.
//
// Flows:
//   - [Login] : consume the OAuth callback code, or start the provider login
//   - [Dashboard] : paginated, searchable tutorial list
//   - [Upload] : select, upload, generate, preview
//   - [TutorialView] : read-only tutorial
//   - [TutorialEdit] : load, edit, save changed fields
package flows
