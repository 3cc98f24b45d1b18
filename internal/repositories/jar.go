package repositories

import (
	"fmt"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/tutorx/internal/models"
)

// PersistentJar is an [http.CookieJar] whose cookies survive the process.
//
// Matching and expiry rules are delegated to an in-memory [cookiejar.Jar]; every cookie the
// backend sets is written through to the [CookieRepository] and replayed into a fresh jar on load.
type PersistentJar struct {
	mu     sync.Mutex
	repo   *CookieRepository
	inner  *cookiejar.Jar
	logger *log.Logger
	now    func() time.Time
}

var _ http.CookieJar = (*PersistentJar)(nil)

// NewPersistentJar creates a jar seeded with every unexpired cookie in repo.
func NewPersistentJar(repo *CookieRepository, logger *log.Logger) (*PersistentJar, error) {
	j := &PersistentJar{repo: repo, logger: logger, now: time.Now}
	if err := j.reload(); err != nil {
		return nil, err
	}
	return j, nil
}

func (j *PersistentJar) reload() error {
	inner, err := cookiejar.New(nil)
	if err != nil {
		return fmt.Errorf("failed to create cookie jar: %w", err)
	}

	stored, err := j.repo.List(models.Criteria{"active": true})
	if err != nil {
		return fmt.Errorf("failed to load cookies: %w", err)
	}

	for _, sc := range stored {
		inner.SetCookies(hostURL(sc.Host, sc.Secure), []*http.Cookie{sc.HTTPCookie()})
	}

	j.inner = inner
	return nil
}

func hostURL(host string, secure bool) *url.URL {
	scheme := "http"
	if secure {
		scheme = "https"
	}
	return &url.URL{Scheme: scheme, Host: host, Path: "/"}
}

// SetCookies implements [http.CookieJar].
//
// Persistence failures are logged; the in-memory jar is always updated so the current process keeps working.
func (j *PersistentJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.inner.SetCookies(u, cookies)

	host := u.Hostname()
	now := j.now()
	for _, c := range cookies {
		sc := models.NewSessionCookie(host, c, now)
		if sc.Expired(now) || c.Value == "" {
			if err := j.repo.DeleteByName(host, c.Name); err != nil {
				j.logger.Warn("failed to delete cookie", "host", host, "name", c.Name, "error", err)
			}
			continue
		}

		if err := j.repo.Create(sc); err != nil {
			j.logger.Warn("failed to persist cookie", "host", host, "name", c.Name, "error", err)
			continue
		}
		j.logger.Debug("persisted cookie", "host", host, "name", c.Name)
	}
}

// Cookies implements [http.CookieJar].
//
// Plain http to a loopback host counts as a secure origin, as it does in browsers, so a
// Secure session cookie set by a local backend is sent back to it.
func (j *PersistentJar) Cookies(u *url.URL) []*http.Cookie {
	j.mu.Lock()
	defer j.mu.Unlock()

	if u.Scheme == "http" && isLoopback(u.Hostname()) {
		secure := *u
		secure.Scheme = "https"
		u = &secure
	}
	return j.inner.Cookies(u)
}

func isLoopback(host string) bool {
	if host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// Import stores cookies as if the backend at u had set them.
func (j *PersistentJar) Import(u *url.URL, cookies []*http.Cookie) {
	for _, c := range cookies {
		if c.Path == "" {
			c.Path = "/"
		}
	}
	j.SetCookies(u, cookies)
}

// Lookup returns the stored cookie for the backend at u.
func (j *PersistentJar) Lookup(u *url.URL, name string) (*models.SessionCookie, error) {
	return j.repo.Find(u.Hostname(), name)
}

// Clear forgets every cookie for the backend at u, on disk and in memory.
func (j *PersistentJar) Clear(u *url.URL) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if err := j.repo.Clear(u.Hostname()); err != nil {
		return err
	}
	return j.reload()
}
