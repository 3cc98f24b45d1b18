package models

import (
	"errors"
	"net/http"
	"strconv"
	"time"
)

// SessionCookie is a cookie issued by the backend, persisted so separate CLI invocations share one session.
type SessionCookie struct {
	RowID     int64
	Host      string
	Name      string
	Value     string
	Path      string
	ExpiresAt *time.Time
	HTTPOnly  bool
	Secure    bool
	Created   time.Time
	Updated   time.Time
}

func (c *SessionCookie) ID() string           { return strconv.FormatInt(c.RowID, 10) }
func (c *SessionCookie) CreatedAt() time.Time { return c.Created }
func (c *SessionCookie) UpdatedAt() time.Time { return c.Updated }

func (c *SessionCookie) Validate() error {
	if c.Host == "" {
		return errors.New("cookie host is required")
	}
	if c.Name == "" {
		return errors.New("cookie name is required")
	}
	return nil
}

// Expired reports whether the cookie has an expiry in the past.
func (c *SessionCookie) Expired(now time.Time) bool {
	return c.ExpiresAt != nil && !c.ExpiresAt.After(now)
}

// HTTPCookie converts the row into a cookie the jar can hand to net/http.
func (c *SessionCookie) HTTPCookie() *http.Cookie {
	cookie := &http.Cookie{
		Name:     c.Name,
		Value:    c.Value,
		Path:     c.Path,
		HttpOnly: c.HTTPOnly,
		Secure:   c.Secure,
	}
	if c.ExpiresAt != nil {
		cookie.Expires = *c.ExpiresAt
	}
	return cookie
}

// NewSessionCookie builds a row from a cookie received for host.
func NewSessionCookie(host string, cookie *http.Cookie, now time.Time) *SessionCookie {
	sc := &SessionCookie{
		Host:     host,
		Name:     cookie.Name,
		Value:    cookie.Value,
		Path:     cookie.Path,
		HTTPOnly: cookie.HttpOnly,
		Secure:   cookie.Secure,
		Created:  now,
		Updated:  now,
	}
	if sc.Path == "" {
		sc.Path = "/"
	}

	switch {
	case cookie.MaxAge > 0:
		exp := now.Add(time.Duration(cookie.MaxAge) * time.Second)
		sc.ExpiresAt = &exp
	case cookie.MaxAge < 0:
		exp := now
		sc.ExpiresAt = &exp
	case !cookie.Expires.IsZero():
		exp := cookie.Expires.UTC()
		sc.ExpiresAt = &exp
	}
	return sc
}

// ExportRecord tracks a tutorial written to disk by the export task.
type ExportRecord struct {
	TutorialID string
	Format     string
	Path       string
	ExportedAt time.Time
}

func (r *ExportRecord) ID() string           { return r.TutorialID + ":" + r.Format }
func (r *ExportRecord) CreatedAt() time.Time { return r.ExportedAt }
func (r *ExportRecord) UpdatedAt() time.Time { return r.ExportedAt }

func (r *ExportRecord) Validate() error {
	if r.TutorialID == "" {
		return errors.New("tutorial id is required")
	}
	if r.Format == "" || r.Path == "" {
		return errors.New("export format and path are required")
	}
	return nil
}
