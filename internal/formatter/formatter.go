// package formatter renders tutorials and tutorial listings as plain text, Markdown or JSON
package formatter

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"text/tabwriter"

	"github.com/desertthunder/tutorx/internal/models"
	"github.com/desertthunder/tutorx/internal/shared"
)

// Format is an output format for tutorials.
type Format string

const (
	Markdown Format = "md"
	Text     Format = "txt"
	JSON     Format = "json"
)

// ParseFormat accepts md, markdown, txt, text and json.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "md", "markdown", "":
		return Markdown, nil
	case "txt", "text":
		return Text, nil
	case "json":
		return JSON, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q (want md, txt or json)", shared.ErrInvalidFlag, s)
	}
}

// Extension returns the file extension, including the dot.
func (f Format) Extension() string {
	return "." + string(f)
}

// Render renders t in format f.
func Render(t *models.Tutorial, f Format) ([]byte, error) {
	switch f {
	case Markdown:
		return TutorialToMarkdown(t)
	case Text:
		return TutorialToText(t)
	case JSON:
		return TutorialToJSON(t)
	default:
		return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidFlag, f)
	}
}

// TutorialToMarkdown renders the title as a heading followed by the content unchanged.
func TutorialToMarkdown(t *models.Tutorial) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("# %s\n\n", t.Title))
	buf.WriteString(fmt.Sprintf("**Created**: %s\n", t.CreatedAt))
	if !t.UpdatedAt.IsZero() {
		buf.WriteString(fmt.Sprintf("**Updated**: %s\n", t.UpdatedAt))
	}
	buf.WriteString("\n")
	buf.WriteString(t.Content)
	if !strings.HasSuffix(t.Content, "\n") {
		buf.WriteString("\n")
	}

	return buf.Bytes(), nil
}

// TutorialToText renders a tutorial as plain text.
func TutorialToText(t *models.Tutorial) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Tutorial: %s\n", t.Title))
	buf.WriteString(fmt.Sprintf("ID: %s\n", t.ID))
	buf.WriteString(fmt.Sprintf("Created: %s\n", t.CreatedAt))
	if !t.UpdatedAt.IsZero() {
		buf.WriteString(fmt.Sprintf("Updated: %s\n", t.UpdatedAt))
	}
	buf.WriteString("\n")
	buf.WriteString(t.Content)
	if !strings.HasSuffix(t.Content, "\n") {
		buf.WriteString("\n")
	}

	return buf.Bytes(), nil
}

// TutorialToJSON renders the tutorial as indented JSON in the backend's field names.
func TutorialToJSON(t *models.Tutorial) ([]byte, error) {
	return shared.MarshalJSON(t, true)
}

// GeneratedToText renders a freshly generated tutorial exactly as the backend returned it.
func GeneratedToText(g *models.GeneratedTutorial) []byte {
	var buf bytes.Buffer
	buf.WriteString(g.Title)
	buf.WriteString("\n\n")
	buf.WriteString(g.Content)
	if !strings.HasSuffix(g.Content, "\n") {
		buf.WriteString("\n")
	}
	return buf.Bytes()
}

// PageToText renders a page of tutorials as an aligned table with a footer.
func PageToText(page *models.TutorialPage, pageSize int) []byte {
	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 4, 2, ' ', 0)

	fmt.Fprintln(w, "ID\tTITLE\tCREATED\tPREVIEW")
	for _, t := range page.Items {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", t.ID, Truncate(t.Title, 40), shortDate(t.CreatedAt), Preview(t.Content, 50))
	}
	w.Flush()

	buf.WriteString(fmt.Sprintf("\nPage %d of %d (%d tutorials)\n", page.Page, max(page.TotalPages(pageSize), 1), page.Total))
	return buf.Bytes()
}

func shortDate(ts models.Timestamp) string {
	if ts.IsZero() {
		return "-"
	}
	return ts.UTC().Format("2006-01-02")
}

var whitespace = regexp.MustCompile(`\s+`)

// Preview collapses whitespace and Markdown heading markers in content and truncates it to n runes.
func Preview(content string, n int) string {
	content = strings.ReplaceAll(content, "#", "")
	content = strings.TrimSpace(whitespace.ReplaceAllString(content, " "))
	return Truncate(content, n)
}

// Truncate shortens s to at most n runes, ending in an ellipsis when cut.
func Truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n == 1 {
		return "…"
	}
	return string(r[:n-1]) + "…"
}

var slugUnsafe = regexp.MustCompile(`[^a-z0-9]+`)

// Slug converts a title into a lowercase, dash separated file name fragment.
func Slug(title string) string {
	s := slugUnsafe.ReplaceAllString(strings.ToLower(title), "-")
	s = strings.Trim(s, "-")
	if len(s) > 60 {
		s = strings.TrimRight(s[:60], "-")
	}
	if s == "" {
		return "untitled"
	}
	return s
}

// FileName returns {id}-{slug}{ext} for t.
func FileName(t *models.Tutorial, f Format) string {
	id := slugUnsafe.ReplaceAllString(strings.ToLower(t.ID), "-")
	return fmt.Sprintf("%s-%s%s", id, Slug(t.Title), f.Extension())
}

// WriteTutorial renders t and writes it into dir, creating dir as needed. It returns the file path.
func WriteTutorial(t *models.Tutorial, dir string, f Format) (string, error) {
	data, err := Render(t, f)
	if err != nil {
		return "", fmt.Errorf("failed to render tutorial: %w", err)
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	path := filepath.Join(dir, FileName(t, f))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write tutorial file: %w", err)
	}
	return path, nil
}
