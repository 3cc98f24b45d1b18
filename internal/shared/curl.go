// Utilities for importing a browser session from a "Copy as cURL" command.
package shared

import (
	"fmt"
	"net/http"
	"os"
	"regexp"
	"strings"
)

var (
	headerRegex = regexp.MustCompile(`-H\s+'([^']+)'|-H\s+"([^"]+)"`)
	cookieRegex = regexp.MustCompile(`(?:-b|--cookie)\s+'([^']+)'|(?:-b|--cookie)\s+"([^"]+)"`)
	urlRegex    = regexp.MustCompile(`'(https?://[^']+)'|"(https?://[^"]+)"|(?:^|\s)(https?://\S+)`)
)

// CurlRequest represents the parts of a cURL command needed to replay a browser session.
type CurlRequest struct {
	URL     string
	Headers map[string]string
	Cookie  string
}

// ParseCurlFile reads a .sh file containing a cURL command and extracts headers and cookies.
func ParseCurlFile(path string) (*CurlRequest, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read curl file: %w", err)
	}

	return ParseCurlCommand(string(content))
}

// ParseCurlCommand parses a cURL command string.
//
// A cookie passed with -b wins over a Cookie header.
func ParseCurlCommand(curlCmd string) (*CurlRequest, error) {
	curlCmd = strings.ReplaceAll(curlCmd, "\\\n", " ")
	curlCmd = strings.ReplaceAll(curlCmd, "\\", "")

	req := &CurlRequest{Headers: make(map[string]string)}

	if m := urlRegex.FindStringSubmatch(curlCmd); m != nil {
		req.URL = firstNonEmpty(m[1:]...)
	}

	var headerCookie string
	for _, match := range headerRegex.FindAllStringSubmatch(curlCmd, -1) {
		key, value, ok := strings.Cut(firstNonEmpty(match[1:]...), ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		if strings.EqualFold(key, "cookie") {
			if headerCookie == "" {
				headerCookie = value
			}
			continue
		}
		req.Headers[key] = value
	}

	if m := cookieRegex.FindStringSubmatch(curlCmd); m != nil {
		req.Cookie = firstNonEmpty(m[1:]...)
	} else {
		req.Cookie = headerCookie
	}

	if len(req.Headers) == 0 && req.Cookie == "" {
		return nil, fmt.Errorf("%w: no headers found in curl command", ErrInvalidInput)
	}

	return req, nil
}

// Cookies parses the Cookie value into individual cookies.
func (c *CurlRequest) Cookies() ([]*http.Cookie, error) {
	if c.Cookie == "" {
		return nil, nil
	}
	cookies, err := http.ParseCookie(c.Cookie)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed cookie: %v", ErrInvalidInput, err)
	}
	return cookies, nil
}

// SessionCookie returns the cookie with the given name.
func (c *CurlRequest) SessionCookie(name string) (*http.Cookie, error) {
	cookies, err := c.Cookies()
	if err != nil {
		return nil, err
	}
	for _, cookie := range cookies {
		if cookie.Name == name {
			return cookie, nil
		}
	}
	return nil, fmt.Errorf("%w: cookie %q not present in curl command", ErrNotAuthenticated, name)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
