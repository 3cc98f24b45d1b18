// Package repositories implements SQLite persistence for the state tutorx keeps between runs.
//
// The backend owns every tutorial; the client stores only what a browser would:
//   - [CookieRepository] : session cookies per API host
//   - [PersistentJar] : an [http.CookieJar] that writes through to [CookieRepository]
//   - [ExportRepository] : which tutorials the export task already wrote to disk
package repositories
