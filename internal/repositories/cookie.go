package repositories

import (
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/desertthunder/tutorx/internal/models"
)

// CookieRepository implements [models.Repository] for [models.SessionCookie] persistence.
type CookieRepository struct {
	db *sql.DB
}

var _ models.Repository[*models.SessionCookie] = (*CookieRepository)(nil)

// NewCookieRepository creates a new [CookieRepository] with the given database connection
func NewCookieRepository(db *sql.DB) *CookieRepository {
	return &CookieRepository{db: db}
}

const cookieColumns = `id, host, name, value, path, expires_at, http_only, secure, created_at, updated_at`

func scanCookie(scan func(dest ...any) error) (*models.SessionCookie, error) {
	var (
		c         models.SessionCookie
		expiresAt sql.NullTime
	)
	if err := scan(&c.RowID, &c.Host, &c.Name, &c.Value, &c.Path, &expiresAt, &c.HTTPOnly, &c.Secure, &c.Created, &c.Updated); err != nil {
		return nil, err
	}
	c.ExpiresAt = timePtr(expiresAt)
	return &c, nil
}

// Create inserts a cookie, replacing any existing cookie with the same host and name.
func (r *CookieRepository) Create(cookie *models.SessionCookie) error {
	if err := cookie.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now().UTC()
	if cookie.Created.IsZero() {
		cookie.Created = now
	}
	cookie.Updated = now

	query := `
		INSERT INTO cookies (host, name, value, path, expires_at, http_only, secure, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(host, name) DO UPDATE SET
			value = excluded.value,
			path = excluded.path,
			expires_at = excluded.expires_at,
			http_only = excluded.http_only,
			secure = excluded.secure,
			updated_at = excluded.updated_at
	`

	_, err := r.db.Exec(query, cookie.Host, cookie.Name, cookie.Value, cookie.Path, nullTime(cookie.ExpiresAt),
		cookie.HTTPOnly, cookie.Secure, cookie.Created, cookie.Updated)
	if err != nil {
		return fmt.Errorf("failed to save cookie: %w", err)
	}

	return r.db.QueryRow(`SELECT id FROM cookies WHERE host = ? AND name = ?`, cookie.Host, cookie.Name).Scan(&cookie.RowID)
}

// Get retrieves a cookie by row ID
func (r *CookieRepository) Get(id string) (*models.SessionCookie, error) {
	rowID, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid cookie id %q: %w", id, err)
	}

	row := r.db.QueryRow(`SELECT `+cookieColumns+` FROM cookies WHERE id = ?`, rowID)
	cookie, err := scanCookie(row.Scan)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: cookie %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query cookie: %w", err)
	}
	return cookie, nil
}

// Find retrieves the cookie stored for host under name.
func (r *CookieRepository) Find(host, name string) (*models.SessionCookie, error) {
	row := r.db.QueryRow(`SELECT `+cookieColumns+` FROM cookies WHERE host = ? AND name = ?`, host, name)
	cookie, err := scanCookie(row.Scan)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: cookie %s for %s", ErrNotFound, name, host)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query cookie: %w", err)
	}
	return cookie, nil
}

// Update modifies an existing cookie's value and attributes
func (r *CookieRepository) Update(cookie *models.SessionCookie) error {
	if err := cookie.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	cookie.Updated = time.Now().UTC()

	query := `
		UPDATE cookies
		SET value = ?, path = ?, expires_at = ?, http_only = ?, secure = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.Exec(query, cookie.Value, cookie.Path, nullTime(cookie.ExpiresAt), cookie.HTTPOnly, cookie.Secure,
		cookie.Updated, cookie.RowID)
	if err != nil {
		return fmt.Errorf("failed to update cookie: %w", err)
	}

	return checkAffected(result, "cookie", cookie.ID())
}

// Delete removes a cookie by row ID
func (r *CookieRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM cookies WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete cookie: %w", err)
	}
	return checkAffected(result, "cookie", id)
}

// DeleteByName removes the cookie stored for host under name. Missing cookies are not an error.
func (r *CookieRepository) DeleteByName(host, name string) error {
	if _, err := r.db.Exec(`DELETE FROM cookies WHERE host = ? AND name = ?`, host, name); err != nil {
		return fmt.Errorf("failed to delete cookie: %w", err)
	}
	return nil
}

// Clear removes every cookie stored for host.
func (r *CookieRepository) Clear(host string) error {
	return withTx(r.db, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`DELETE FROM cookies WHERE host = ?`, host); err != nil {
			return fmt.Errorf("failed to clear cookies: %w", err)
		}
		return nil
	})
}

// List retrieves cookies matching the given criteria.
//
// Supported criteria: "host" (string) and "active" (bool, excludes expired cookies).
func (r *CookieRepository) List(criteria models.Criteria) ([]*models.SessionCookie, error) {
	query := `SELECT ` + cookieColumns + ` FROM cookies WHERE 1 = 1`
	args := []any{}

	if host, ok := criteria.String("host"); ok {
		query += " AND host = ?"
		args = append(args, host)
	}

	activeOnly := criteria.Bool("active")
	now := time.Now()

	query += " ORDER BY host ASC, name ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query cookies: %w", err)
	}
	defer rows.Close()

	var cookies []*models.SessionCookie
	for rows.Next() {
		cookie, err := scanCookie(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cookie: %w", err)
		}
		if activeOnly && cookie.Expired(now) {
			continue
		}
		cookies = append(cookies, cookie)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return cookies, nil
}
