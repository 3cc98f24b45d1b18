package models

import (
	"fmt"
	"net/url"
	"strconv"
)

// User is the authenticated identity returned by the session check.
type User struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// LoginURL is the provider authorization URL handed out by the backend.
type LoginURL struct {
	LoginURL string `json:"login_url"`
}

// AuthResponse is returned by the code exchange when the backend does not redirect.
type AuthResponse struct {
	JWT  string `json:"jwt"`
	User User   `json:"user"`
}

// Tutorial is a generated tutorial document owned by a user.
type Tutorial struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	UserID    string    `json:"user_id"`
	CreatedAt Timestamp `json:"created_at"`
	UpdatedAt Timestamp `json:"updated_at"`
}

// TranscriptUpload references a transcript stored by the backend. It is consumed once by generation.
type TranscriptUpload struct {
	ID string `json:"id"`
}

// GenerateRequest is the body of the generate call.
type GenerateRequest struct {
	TranscriptID string `json:"transcript_id"`
}

// GeneratedTutorial is the generation result, shown exactly as returned.
type GeneratedTutorial struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// TutorialPage is one page of the tutorial listing. Every response replaces the previous page wholesale.
type TutorialPage struct {
	Total    int        `json:"total"`
	Page     int        `json:"page"`
	PageSize int        `json:"page_size"`
	Items    []Tutorial `json:"items"`
}

// TotalPages returns ceil(Total / pageSize).
func (p TutorialPage) TotalPages(pageSize int) int {
	if pageSize <= 0 || p.Total <= 0 {
		return 0
	}
	return (p.Total + pageSize - 1) / pageSize
}

// TutorialUpdate is a partial update. Nil fields are omitted from the payload.
type TutorialUpdate struct {
	Title   *string `json:"title,omitempty"`
	Content *string `json:"content,omitempty"`
}

// Empty reports whether the update carries no fields.
func (u TutorialUpdate) Empty() bool {
	return u.Title == nil && u.Content == nil
}

// ListParams filters the tutorial listing. Zero values are left out of the query.
type ListParams struct {
	Page        int
	PageSize    int
	Search      string
	CreatedFrom string
	CreatedTo   string
}

// Query encodes the params as a query string.
func (p ListParams) Query() url.Values {
	q := url.Values{}
	if p.Page > 0 {
		q.Set("page", strconv.Itoa(p.Page))
	}
	if p.PageSize > 0 {
		q.Set("page_size", strconv.Itoa(p.PageSize))
	}
	if p.Search != "" {
		q.Set("search", p.Search)
	}
	if p.CreatedFrom != "" {
		q.Set("created_from", p.CreatedFrom)
	}
	if p.CreatedTo != "" {
		q.Set("created_to", p.CreatedTo)
	}
	return q
}

// Validate checks the date range filters are ISO dates.
func (p ListParams) Validate() error {
	for name, v := range map[string]string{"created_from": p.CreatedFrom, "created_to": p.CreatedTo} {
		if v == "" {
			continue
		}
		if _, err := ParseTimestamp(v); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

// TranscriptFile is a transcript selected for upload.
type TranscriptFile struct {
	Name        string
	ContentType string
	Data        []byte
}

// Size returns the file size in bytes.
func (f TranscriptFile) Size() int64 {
	return int64(len(f.Data))
}
