// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"sync"
	"testing"

	"github.com/desertthunder/tutorx/internal/models"
)

// MockClient is a test double for [services.Client].
//
// Each method delegates to the matching func field when set and records the call.
// Unset funcs return zero values.
type MockClient struct {
	LoginURLFunc         func(ctx context.Context) (string, error)
	ExchangeCodeFunc     func(ctx context.Context, code string) (*models.AuthResponse, error)
	CurrentUserFunc      func(ctx context.Context) (*models.User, error)
	LogoutFunc           func(ctx context.Context) error
	UploadTranscriptFunc func(ctx context.Context, file models.TranscriptFile) (*models.TranscriptUpload, error)
	GenerateTutorialFunc func(ctx context.Context, transcriptID string) (*models.GeneratedTutorial, error)
	ListTutorialsFunc    func(ctx context.Context, params models.ListParams) (*models.TutorialPage, error)
	GetTutorialFunc      func(ctx context.Context, id string) (*models.Tutorial, error)
	UpdateTutorialFunc   func(ctx context.Context, id string, update models.TutorialUpdate) (*models.Tutorial, error)

	mu    sync.Mutex
	calls map[string]int

	// Recorded arguments of the most recent calls.
	ExchangedCodes []string
	GeneratedFrom  []string
	ListRequests   []models.ListParams
	Updates        []models.TutorialUpdate
}

func (m *MockClient) record(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[name]++
}

// Calls returns how many times the named method was invoked.
func (m *MockClient) Calls(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[name]
}

// TotalCalls returns the number of backend calls of any kind.
func (m *MockClient) TotalCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, n := range m.calls {
		total += n
	}
	return total
}

func (m *MockClient) LoginURL(ctx context.Context) (string, error) {
	m.record("LoginURL")
	if m.LoginURLFunc != nil {
		return m.LoginURLFunc(ctx)
	}
	return "", nil
}

func (m *MockClient) ExchangeCode(ctx context.Context, code string) (*models.AuthResponse, error) {
	m.record("ExchangeCode")
	m.mu.Lock()
	m.ExchangedCodes = append(m.ExchangedCodes, code)
	m.mu.Unlock()
	if m.ExchangeCodeFunc != nil {
		return m.ExchangeCodeFunc(ctx, code)
	}
	return &models.AuthResponse{}, nil
}

func (m *MockClient) CurrentUser(ctx context.Context) (*models.User, error) {
	m.record("CurrentUser")
	if m.CurrentUserFunc != nil {
		return m.CurrentUserFunc(ctx)
	}
	return nil, errors.New("not authenticated")
}

func (m *MockClient) Logout(ctx context.Context) error {
	m.record("Logout")
	if m.LogoutFunc != nil {
		return m.LogoutFunc(ctx)
	}
	return nil
}

func (m *MockClient) UploadTranscript(ctx context.Context, file models.TranscriptFile) (*models.TranscriptUpload, error) {
	m.record("UploadTranscript")
	if m.UploadTranscriptFunc != nil {
		return m.UploadTranscriptFunc(ctx, file)
	}
	return &models.TranscriptUpload{}, nil
}

func (m *MockClient) GenerateTutorial(ctx context.Context, transcriptID string) (*models.GeneratedTutorial, error) {
	m.record("GenerateTutorial")
	m.mu.Lock()
	m.GeneratedFrom = append(m.GeneratedFrom, transcriptID)
	m.mu.Unlock()
	if m.GenerateTutorialFunc != nil {
		return m.GenerateTutorialFunc(ctx, transcriptID)
	}
	return &models.GeneratedTutorial{}, nil
}

func (m *MockClient) ListTutorials(ctx context.Context, params models.ListParams) (*models.TutorialPage, error) {
	m.record("ListTutorials")
	m.mu.Lock()
	m.ListRequests = append(m.ListRequests, params)
	m.mu.Unlock()
	if m.ListTutorialsFunc != nil {
		return m.ListTutorialsFunc(ctx, params)
	}
	return &models.TutorialPage{Page: params.Page, PageSize: params.PageSize}, nil
}

func (m *MockClient) GetTutorial(ctx context.Context, id string) (*models.Tutorial, error) {
	m.record("GetTutorial")
	if m.GetTutorialFunc != nil {
		return m.GetTutorialFunc(ctx, id)
	}
	return &models.Tutorial{ID: id}, nil
}

func (m *MockClient) UpdateTutorial(ctx context.Context, id string, update models.TutorialUpdate) (*models.Tutorial, error) {
	m.record("UpdateTutorial")
	m.mu.Lock()
	m.Updates = append(m.Updates, update)
	m.mu.Unlock()
	if m.UpdateTutorialFunc != nil {
		return m.UpdateTutorialFunc(ctx, id, update)
	}
	return &models.Tutorial{ID: id}, nil
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
