package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/tutorx/internal/models"
	"github.com/desertthunder/tutorx/internal/services"
	"github.com/desertthunder/tutorx/internal/shared"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	shared.ConfigureDatabase(db, 1, 1)

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

func quietLogger() *log.Logger {
	return log.New(io.Discard)
}

func TestCookieRepository(t *testing.T) {
	t.Run("Create And Find", func(t *testing.T) {
		repo := NewCookieRepository(setupTestDB(t))
		exp := time.Now().Add(time.Hour).UTC()
		cookie := &models.SessionCookie{Host: "localhost", Name: "access_token", Value: "tok", Path: "/", ExpiresAt: &exp, HTTPOnly: true}

		if err := repo.Create(cookie); err != nil {
			t.Fatalf("failed to create cookie: %v", err)
		}
		if cookie.RowID == 0 {
			t.Error("row id should be set after creation")
		}

		found, err := repo.Find("localhost", "access_token")
		if err != nil {
			t.Fatalf("failed to find cookie: %v", err)
		}
		if found.Value != "tok" || !found.HTTPOnly || found.ExpiresAt == nil {
			t.Errorf("unexpected cookie %+v", found)
		}

		byID, err := repo.Get(cookie.ID())
		if err != nil {
			t.Fatalf("failed to get cookie: %v", err)
		}
		if byID.Name != "access_token" {
			t.Errorf("expected access_token, got %s", byID.Name)
		}
	})

	t.Run("Create Replaces Same Host And Name", func(t *testing.T) {
		repo := NewCookieRepository(setupTestDB(t))

		if err := repo.Create(&models.SessionCookie{Host: "localhost", Name: "access_token", Value: "old", Path: "/"}); err != nil {
			t.Fatalf("failed to create cookie: %v", err)
		}
		if err := repo.Create(&models.SessionCookie{Host: "localhost", Name: "access_token", Value: "new", Path: "/"}); err != nil {
			t.Fatalf("failed to replace cookie: %v", err)
		}

		cookies, err := repo.List(models.Criteria{"host": "localhost"})
		if err != nil {
			t.Fatalf("failed to list cookies: %v", err)
		}
		if len(cookies) != 1 || cookies[0].Value != "new" {
			t.Errorf("expected a single replaced cookie, got %+v", cookies)
		}
	})

	t.Run("Update", func(t *testing.T) {
		repo := NewCookieRepository(setupTestDB(t))
		cookie := &models.SessionCookie{Host: "localhost", Name: "access_token", Value: "tok", Path: "/"}
		if err := repo.Create(cookie); err != nil {
			t.Fatalf("failed to create cookie: %v", err)
		}

		cookie.Value = "rotated"
		if err := repo.Update(cookie); err != nil {
			t.Fatalf("failed to update cookie: %v", err)
		}

		found, _ := repo.Find("localhost", "access_token")
		if found.Value != "rotated" {
			t.Errorf("expected rotated value, got %s", found.Value)
		}

		missing := &models.SessionCookie{RowID: 999, Host: "localhost", Name: "x"}
		if err := repo.Update(missing); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		repo := NewCookieRepository(setupTestDB(t))
		cookie := &models.SessionCookie{Host: "localhost", Name: "access_token", Value: "tok", Path: "/"}
		if err := repo.Create(cookie); err != nil {
			t.Fatalf("failed to create cookie: %v", err)
		}

		if err := repo.Delete(cookie.ID()); err != nil {
			t.Fatalf("failed to delete cookie: %v", err)
		}
		if _, err := repo.Get(cookie.ID()); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound after delete, got %v", err)
		}
		if err := repo.Delete(cookie.ID()); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound deleting twice, got %v", err)
		}
	})

	t.Run("List Active Skips Expired", func(t *testing.T) {
		repo := NewCookieRepository(setupTestDB(t))
		past := time.Now().Add(-time.Hour).UTC()
		future := time.Now().Add(time.Hour).UTC()

		repo.Create(&models.SessionCookie{Host: "localhost", Name: "stale", Value: "1", Path: "/", ExpiresAt: &past})
		repo.Create(&models.SessionCookie{Host: "localhost", Name: "fresh", Value: "2", Path: "/", ExpiresAt: &future})
		repo.Create(&models.SessionCookie{Host: "localhost", Name: "session", Value: "3", Path: "/"})

		all, err := repo.List(nil)
		if err != nil {
			t.Fatalf("failed to list cookies: %v", err)
		}
		if len(all) != 3 {
			t.Errorf("expected 3 cookies, got %d", len(all))
		}

		active, err := repo.List(models.Criteria{"active": true})
		if err != nil {
			t.Fatalf("failed to list cookies: %v", err)
		}
		if len(active) != 2 {
			t.Errorf("expected 2 active cookies, got %d", len(active))
		}
	})

	t.Run("Validation", func(t *testing.T) {
		repo := NewCookieRepository(setupTestDB(t))
		if err := repo.Create(&models.SessionCookie{Name: "access_token"}); err == nil {
			t.Error("expected validation error for missing host")
		}
		if _, err := repo.Get("not-a-number"); err == nil {
			t.Error("expected error for malformed id")
		}
	})
}

func TestPersistentJar(t *testing.T) {
	apiURL, _ := url.Parse("http://localhost:8000/auth/github/callback")

	t.Run("Cookies Survive A New Jar", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewCookieRepository(db)

		jar, err := NewPersistentJar(repo, quietLogger())
		if err != nil {
			t.Fatalf("failed to create jar: %v", err)
		}
		jar.SetCookies(apiURL, []*http.Cookie{{Name: "access_token", Value: "jwt", Path: "/", MaxAge: 3600, HttpOnly: true}})

		reopened, err := NewPersistentJar(repo, quietLogger())
		if err != nil {
			t.Fatalf("failed to reopen jar: %v", err)
		}

		meURL, _ := url.Parse("http://localhost:8000/auth/github/me")
		cookies := reopened.Cookies(meURL)
		if len(cookies) != 1 || cookies[0].Value != "jwt" {
			t.Fatalf("expected persisted cookie, got %v", cookies)
		}
	})

	t.Run("Deleting Cookie Removes Row", func(t *testing.T) {
		repo := NewCookieRepository(setupTestDB(t))
		jar, _ := NewPersistentJar(repo, quietLogger())

		jar.SetCookies(apiURL, []*http.Cookie{{Name: "access_token", Value: "jwt", Path: "/"}})
		jar.SetCookies(apiURL, []*http.Cookie{{Name: "access_token", Value: "", Path: "/", MaxAge: -1}})

		if _, err := repo.Find("localhost", "access_token"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected cookie row to be deleted, got %v", err)
		}
		if len(jar.Cookies(apiURL)) != 0 {
			t.Error("expected in-memory jar to drop the cookie")
		}
	})

	t.Run("Import And Lookup", func(t *testing.T) {
		repo := NewCookieRepository(setupTestDB(t))
		jar, _ := NewPersistentJar(repo, quietLogger())

		jar.Import(apiURL, []*http.Cookie{{Name: "access_token", Value: "pasted"}})

		sc, err := jar.Lookup(apiURL, "access_token")
		if err != nil {
			t.Fatalf("expected imported cookie: %v", err)
		}
		if sc.Value != "pasted" || sc.Path != "/" {
			t.Errorf("unexpected cookie %+v", sc)
		}
	})

	t.Run("Clear", func(t *testing.T) {
		repo := NewCookieRepository(setupTestDB(t))
		jar, _ := NewPersistentJar(repo, quietLogger())
		jar.SetCookies(apiURL, []*http.Cookie{{Name: "access_token", Value: "jwt", Path: "/"}})

		if err := jar.Clear(apiURL); err != nil {
			t.Fatalf("failed to clear jar: %v", err)
		}
		if len(jar.Cookies(apiURL)) != 0 {
			t.Error("expected no cookies after clear")
		}
		cookies, _ := repo.List(nil)
		if len(cookies) != 0 {
			t.Errorf("expected no stored cookies, got %d", len(cookies))
		}
	})
}

func TestPersistentJarSecureCookies(t *testing.T) {
	secureCookie := func() []*http.Cookie {
		return []*http.Cookie{{Name: "access_token", Value: "jwt", Path: "/", Secure: true, HttpOnly: true}}
	}

	t.Run("Sent Over Plain HTTP To Loopback", func(t *testing.T) {
		for _, raw := range []string{"http://localhost:8000/", "http://127.0.0.1:8000/", "http://[::1]:8000/"} {
			u, _ := url.Parse(raw)
			jar, _ := NewPersistentJar(NewCookieRepository(setupTestDB(t)), quietLogger())
			jar.SetCookies(u, secureCookie())

			me, _ := url.Parse(raw + "auth/github/me")
			if cookies := jar.Cookies(me); len(cookies) != 1 || cookies[0].Value != "jwt" {
				t.Errorf("%s: expected secure cookie, got %v", raw, cookies)
			}
		}
	})

	t.Run("Withheld From Plain HTTP Elsewhere", func(t *testing.T) {
		u, _ := url.Parse("http://api.example.com/")
		jar, _ := NewPersistentJar(NewCookieRepository(setupTestDB(t)), quietLogger())
		jar.SetCookies(u, secureCookie())

		if cookies := jar.Cookies(u); len(cookies) != 0 {
			t.Errorf("expected no cookies over http, got %v", cookies)
		}
		https, _ := url.Parse("https://api.example.com/")
		if cookies := jar.Cookies(https); len(cookies) != 1 {
			t.Errorf("expected cookie over https, got %v", cookies)
		}
	})

	t.Run("Survives A New Jar", func(t *testing.T) {
		repo := NewCookieRepository(setupTestDB(t))
		u, _ := url.Parse("http://localhost:8000/")
		jar, _ := NewPersistentJar(repo, quietLogger())
		jar.SetCookies(u, secureCookie())

		reopened, err := NewPersistentJar(repo, quietLogger())
		if err != nil {
			t.Fatalf("failed to reopen jar: %v", err)
		}
		if cookies := reopened.Cookies(u); len(cookies) != 1 {
			t.Errorf("expected replayed secure cookie, got %v", cookies)
		}
	})

	t.Run("Session Established After Code Exchange", func(t *testing.T) {
		backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/auth/github/callback":
				http.SetCookie(w, &http.Cookie{Name: "access_token", Value: "jwt", Path: "/", Secure: true, HttpOnly: true})
				http.Redirect(w, r, "http://localhost:3000/auth/callback/success", http.StatusTemporaryRedirect)
			case "/auth/github/me":
				if c, err := r.Cookie("access_token"); err != nil || c.Value != "jwt" {
					w.WriteHeader(http.StatusUnauthorized)
					json.NewEncoder(w).Encode(map[string]string{"detail": "Not authenticated"})
					return
				}
				json.NewEncoder(w).Encode(map[string]string{"id": "1", "name": "octocat"})
			default:
				http.NotFound(w, r)
			}
		}))
		defer backend.Close()

		jar, _ := NewPersistentJar(NewCookieRepository(setupTestDB(t)), quietLogger())
		api := services.NewAPIService(backend.URL, services.NewHTTPClient(jar))
		ctx := context.Background()

		if _, err := api.ExchangeCode(ctx, "abc"); err != nil {
			t.Fatalf("exchange failed: %v", err)
		}
		user, err := api.CurrentUser(ctx)
		if err != nil {
			t.Fatalf("expected session after exchange, got %v", err)
		}
		if user.Name != "octocat" {
			t.Errorf("unexpected user %+v", user)
		}
	})
}

func TestExportRepository(t *testing.T) {
	t.Run("Record And Check", func(t *testing.T) {
		repo := NewExportRepository(setupTestDB(t))

		exported, err := repo.Exported("7", "md")
		if err != nil || exported {
			t.Fatalf("expected no export yet, got %v, %v", exported, err)
		}

		if err := repo.RecordExport("7", "md", "/tmp/out/7.md"); err != nil {
			t.Fatalf("failed to record export: %v", err)
		}

		exported, err = repo.Exported("7", "md")
		if err != nil || !exported {
			t.Errorf("expected export to be recorded, got %v, %v", exported, err)
		}

		other, _ := repo.Exported("7", "json")
		if other {
			t.Error("formats should be tracked separately")
		}
	})

	t.Run("CRUD", func(t *testing.T) {
		repo := NewExportRepository(setupTestDB(t))
		record := &models.ExportRecord{TutorialID: "7", Format: "md", Path: "a.md"}

		if err := repo.Create(record); err != nil {
			t.Fatalf("failed to create export: %v", err)
		}

		got, err := repo.Get(record.ID())
		if err != nil {
			t.Fatalf("failed to get export: %v", err)
		}
		if got.Path != "a.md" {
			t.Errorf("expected path a.md, got %s", got.Path)
		}

		record.Path = "b.md"
		if err := repo.Update(record); err != nil {
			t.Fatalf("failed to update export: %v", err)
		}

		list, err := repo.List(models.Criteria{"format": "md"})
		if err != nil || len(list) != 1 || list[0].Path != "b.md" {
			t.Errorf("unexpected list %v, %v", list, err)
		}

		if err := repo.Delete(record.ID()); err != nil {
			t.Fatalf("failed to delete export: %v", err)
		}
		if _, err := repo.Get(record.ID()); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("Validation", func(t *testing.T) {
		repo := NewExportRepository(setupTestDB(t))
		if err := repo.Create(&models.ExportRecord{Format: "md", Path: "x"}); err == nil {
			t.Error("expected validation error for missing tutorial id")
		}
		if _, err := repo.Get("no-separator"); err == nil {
			t.Error("expected error for malformed id")
		}
	})
}
