// Package models defines the data transfer objects exchanged with the tutorial backend and the
// entities tutorx persists locally.
//
// The package contains two categories of types:
//
// 1. Data Transfer Objects (DTOs): server-owned resources decoded from API responses
//   - [User] : The authenticated identity
//   - [Tutorial] : A generated, editable tutorial document
//   - [TranscriptUpload] : Opaque reference returned after submitting a transcript
//   - [GeneratedTutorial] : Title and content produced by the generate endpoint
//   - [TutorialPage] : One page of the tutorial listing
//   - [TutorialUpdate] : Partial update payload
//
// 2. Persistent Entities: local SQLite rows
//   - [SessionCookie] : The backend's session cookie, so CLI invocations share one session
//   - [ExportRecord] : A tutorial written to disk by the export task
//
// Persistent entities implement the [Model] interface and are stored through a [Repository].
package models
