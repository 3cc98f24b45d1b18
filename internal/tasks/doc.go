// Package tasks runs long-running tutorial operations with real-time progress reporting.
//
// # Export
//
// [Exporter.ExportTutorials] pages through every tutorial the session can see and
// writes one file per tutorial:
//
//   - List requests are paced by a [rate.Limiter]
//   - Files are rendered by the formatter package and written by a bounded pool of workers
//   - A failed file is recorded in the result and does not stop the export
//   - A failed list request cancels the export
//
// With SkipExisting set, tutorials recorded by the [ExportRecorder] whose file is still
// on disk are not rewritten.
//
// # Progress Reporting
//
// # All operations use non-blocking channels for progress updates
//
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data for advanced UI rendering.
// Updates use select with default to prevent blocking.
package tasks
