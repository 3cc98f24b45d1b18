package repositories

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/tutorx/internal/models"
)

// ExportRepository implements [models.Repository] for [models.ExportRecord] persistence.
//
// It also satisfies tasks.ExportRecorder so the export task can skip files it already wrote.
type ExportRepository struct {
	db *sql.DB
}

var _ models.Repository[*models.ExportRecord] = (*ExportRepository)(nil)

// NewExportRepository creates a new [ExportRepository] with the given database connection
func NewExportRepository(db *sql.DB) *ExportRepository {
	return &ExportRepository{db: db}
}

// Create records an export, replacing an earlier record for the same tutorial and format.
func (r *ExportRepository) Create(record *models.ExportRecord) error {
	if err := record.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	if record.ExportedAt.IsZero() {
		record.ExportedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO exports (tutorial_id, format, path, exported_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(tutorial_id, format) DO UPDATE SET path = excluded.path, exported_at = excluded.exported_at
	`
	if _, err := r.db.Exec(query, record.TutorialID, record.Format, record.Path, record.ExportedAt); err != nil {
		return fmt.Errorf("failed to insert export: %w", err)
	}
	return nil
}

// Get retrieves an export by its "tutorial_id:format" key
func (r *ExportRepository) Get(id string) (*models.ExportRecord, error) {
	tutorialID, format, ok := strings.Cut(id, ":")
	if !ok {
		return nil, fmt.Errorf("invalid export id %q", id)
	}

	var record models.ExportRecord
	err := r.db.QueryRow(`SELECT tutorial_id, format, path, exported_at FROM exports WHERE tutorial_id = ? AND format = ?`,
		tutorialID, format).Scan(&record.TutorialID, &record.Format, &record.Path, &record.ExportedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: export %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query export: %w", err)
	}
	return &record, nil
}

// Update changes the path of an existing export
func (r *ExportRepository) Update(record *models.ExportRecord) error {
	if err := record.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	record.ExportedAt = time.Now().UTC()

	result, err := r.db.Exec(`UPDATE exports SET path = ?, exported_at = ? WHERE tutorial_id = ? AND format = ?`,
		record.Path, record.ExportedAt, record.TutorialID, record.Format)
	if err != nil {
		return fmt.Errorf("failed to update export: %w", err)
	}
	return checkAffected(result, "export", record.ID())
}

// Delete removes an export record by its "tutorial_id:format" key
func (r *ExportRepository) Delete(id string) error {
	tutorialID, format, ok := strings.Cut(id, ":")
	if !ok {
		return fmt.Errorf("invalid export id %q", id)
	}

	result, err := r.db.Exec(`DELETE FROM exports WHERE tutorial_id = ? AND format = ?`, tutorialID, format)
	if err != nil {
		return fmt.Errorf("failed to delete export: %w", err)
	}
	return checkAffected(result, "export", id)
}

// List retrieves exports, optionally filtered by "format".
func (r *ExportRepository) List(criteria models.Criteria) ([]*models.ExportRecord, error) {
	query := `SELECT tutorial_id, format, path, exported_at FROM exports`
	args := []any{}

	if format, ok := criteria.String("format"); ok {
		query += " WHERE format = ?"
		args = append(args, format)
	}
	query += " ORDER BY exported_at ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query exports: %w", err)
	}
	defer rows.Close()

	var records []*models.ExportRecord
	for rows.Next() {
		var record models.ExportRecord
		if err := rows.Scan(&record.TutorialID, &record.Format, &record.Path, &record.ExportedAt); err != nil {
			return nil, fmt.Errorf("failed to scan export: %w", err)
		}
		records = append(records, &record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return records, nil
}

// Exported reports whether tutorialID was already written in format.
func (r *ExportRepository) Exported(tutorialID, format string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(`SELECT EXISTS(SELECT 1 FROM exports WHERE tutorial_id = ? AND format = ?)`, tutorialID, format).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check export: %w", err)
	}
	return exists, nil
}

// RecordExport stores that tutorialID was written to path in format.
func (r *ExportRepository) RecordExport(tutorialID, format, path string) error {
	return r.Create(&models.ExportRecord{TutorialID: tutorialID, Format: format, Path: path})
}
