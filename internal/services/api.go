// API client for the transcript-to-tutorial backend
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"

	"github.com/desertthunder/tutorx/internal/models"
	"github.com/desertthunder/tutorx/internal/shared"
)

const (
	// DefaultBaseURL is where the backend listens in local development.
	DefaultBaseURL = "http://localhost:8000"

	// SessionCookieName is the cookie the backend stores its JWT in.
	SessionCookieName = "access_token"

	networkErrorMessage = "Network error"
)

// APIService is the HTTP client for the tutorial backend.
type APIService struct {
	baseURL    string
	httpClient *http.Client
}

// NewAPIService creates a client for the backend at baseURL.
//
// When client is nil a client without a cookie jar is used, so only unauthenticated calls succeed.
func NewAPIService(baseURL string, client *http.Client) *APIService {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if client == nil {
		client = NewHTTPClient(nil)
	}

	return &APIService{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: client,
	}
}

// BaseURL returns the backend root the client talks to.
func (a *APIService) BaseURL() string {
	return a.baseURL
}

// APIResponse represents a raw API response with status and body.
type APIResponse struct {
	StatusCode int
	Headers    http.Header
	Cookies    []*http.Cookie
	Body       []byte
	IsJSON     bool
	JSONData   any
}

// Success reports a 2xx status.
func (r *APIResponse) Success() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Redirect reports a 3xx status.
func (r *APIResponse) Redirect() bool {
	return r.StatusCode >= 300 && r.StatusCode < 400
}

// APIError is a non-2xx backend response.
type APIError struct {
	StatusCode int
	Message    string
	RequestID  string
}

func (e *APIError) Error() string {
	return e.Message
}

func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusUnauthorized:
		return shared.ErrNotAuthenticated
	case http.StatusNotFound:
		return shared.ErrTutorialNotFound
	default:
		return shared.ErrAPIRequest
	}
}

// errorEnvelope matches both {"error": "..."} and the framework default {"detail": ...}.
type errorEnvelope struct {
	Error  string          `json:"error"`
	Detail json.RawMessage `json:"detail"`
}

// newAPIError builds the error for a non-success response.
func newAPIError(resp *APIResponse) *APIError {
	apiErr := &APIError{StatusCode: resp.StatusCode, RequestID: resp.Headers.Get("X-Request-ID")}

	var envelope errorEnvelope
	if err := json.Unmarshal(resp.Body, &envelope); err != nil {
		apiErr.Message = networkErrorMessage
		return apiErr
	}

	switch {
	case envelope.Error != "":
		apiErr.Message = envelope.Error
	case detailMessage(envelope.Detail) != "":
		apiErr.Message = detailMessage(envelope.Detail)
	default:
		apiErr.Message = fmt.Sprintf("HTTP %d", resp.StatusCode)
	}
	return apiErr
}

func detailMessage(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var nested struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &nested); err == nil {
		return nested.Error
	}
	return ""
}

// do sends a request and reads the full response. A non-2xx status is not an error here.
func (a *APIService) do(ctx context.Context, method, path string, body io.Reader, contentType string) (*APIResponse, error) {
	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", shared.GenerateID())
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: request failed: %w", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %w", shared.ErrAPIRequest, err)
	}

	apiResp := &APIResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Cookies:    resp.Cookies(),
		Body:       data,
	}
	if apiResp.Headers.Get("X-Request-ID") == "" {
		apiResp.Headers.Set("X-Request-ID", req.Header.Get("X-Request-ID"))
	}

	var jsonData any
	if err := json.Unmarshal(data, &jsonData); err == nil {
		apiResp.IsJSON = true
		apiResp.JSONData = jsonData
	}

	return apiResp, nil
}

// call performs a request and decodes a successful JSON body into out.
// allowRedirect treats a 3xx as success without decoding.
func (a *APIService) call(ctx context.Context, method, path string, payload any, out any, allowRedirect bool) (*APIResponse, error) {
	var (
		body        io.Reader
		contentType string
	)
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to encode request: %v", shared.ErrInvalidInput, err)
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	}

	resp, err := a.do(ctx, method, path, body, contentType)
	if err != nil {
		return nil, err
	}
	return resp, decodeResponse(resp, out, allowRedirect)
}

func decodeResponse(resp *APIResponse, out any, allowRedirect bool) error {
	if allowRedirect && resp.Redirect() {
		return nil
	}
	if !resp.Success() {
		return newAPIError(resp)
	}
	if out == nil || len(bytes.TrimSpace(resp.Body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return fmt.Errorf("%w: failed to decode response: %v", shared.ErrAPIRequest, err)
	}
	return nil
}

// LoginURL implements [AuthService].
func (a *APIService) LoginURL(ctx context.Context) (string, error) {
	var out models.LoginURL
	if _, err := a.call(ctx, http.MethodGet, "/auth/github/login", nil, &out, false); err != nil {
		return "", err
	}
	if out.LoginURL == "" {
		return "", fmt.Errorf("%w: backend returned an empty login URL", shared.ErrAPIRequest)
	}
	return out.LoginURL, nil
}

// ExchangeCode implements [AuthService].
//
// The backend may answer with a JSON body or with a redirect that only sets the session cookie.
// In the latter case the JWT is read back from the cookie.
func (a *APIService) ExchangeCode(ctx context.Context, code string) (*models.AuthResponse, error) {
	if code == "" {
		return nil, fmt.Errorf("%w: authorization code is required", shared.ErrInvalidInput)
	}

	var out models.AuthResponse
	resp, err := a.call(ctx, http.MethodGet, "/auth/github/callback?code="+url.QueryEscape(code), nil, &out, true)
	if err != nil {
		return nil, err
	}

	if out.JWT == "" {
		for _, c := range resp.Cookies {
			if c.Name == SessionCookieName {
				out.JWT = c.Value
			}
		}
	}
	return &out, nil
}

// CurrentUser implements [AuthService].
func (a *APIService) CurrentUser(ctx context.Context) (*models.User, error) {
	var out models.User
	if _, err := a.call(ctx, http.MethodGet, "/auth/github/me", nil, &out, false); err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout implements [AuthService].
func (a *APIService) Logout(ctx context.Context) error {
	_, err := a.call(ctx, http.MethodPost, "/auth/github/logout", nil, nil, true)
	return err
}

// UploadTranscript implements [TutorialService] by posting the file as multipart field "file".
func (a *APIService) UploadTranscript(ctx context.Context, file models.TranscriptFile) (*models.TranscriptUpload, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, file.Name))
	header.Set("Content-Type", file.ContentType)

	part, err := mw.CreatePart(header)
	if err != nil {
		return nil, fmt.Errorf("failed to create multipart part: %w", err)
	}
	if _, err := part.Write(file.Data); err != nil {
		return nil, fmt.Errorf("failed to write multipart body: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish multipart body: %w", err)
	}

	resp, err := a.do(ctx, http.MethodPost, "/transcripts", &buf, mw.FormDataContentType())
	if err != nil {
		return nil, err
	}

	var out models.TranscriptUpload
	if err := decodeResponse(resp, &out, false); err != nil {
		return nil, err
	}
	return &out, nil
}

// GenerateTutorial implements [TutorialService].
func (a *APIService) GenerateTutorial(ctx context.Context, transcriptID string) (*models.GeneratedTutorial, error) {
	var out models.GeneratedTutorial
	payload := models.GenerateRequest{TranscriptID: transcriptID}
	if _, err := a.call(ctx, http.MethodPost, "/tutorials/generate", payload, &out, false); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListTutorials implements [TutorialService].
func (a *APIService) ListTutorials(ctx context.Context, params models.ListParams) (*models.TutorialPage, error) {
	path := "/tutorials"
	if q := params.Query().Encode(); q != "" {
		path += "?" + q
	}

	var out models.TutorialPage
	if _, err := a.call(ctx, http.MethodGet, path, nil, &out, false); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetTutorial implements [TutorialService].
func (a *APIService) GetTutorial(ctx context.Context, id string) (*models.Tutorial, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: tutorial id is required", shared.ErrInvalidInput)
	}

	var out models.Tutorial
	if _, err := a.call(ctx, http.MethodGet, "/tutorials/"+url.PathEscape(id), nil, &out, false); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateTutorial implements [TutorialService]. Only non-nil fields of update are sent.
func (a *APIService) UpdateTutorial(ctx context.Context, id string, update models.TutorialUpdate) (*models.Tutorial, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: tutorial id is required", shared.ErrInvalidInput)
	}

	var out models.Tutorial
	if _, err := a.call(ctx, http.MethodPatch, "/tutorials/"+url.PathEscape(id), update, &out, false); err != nil {
		return nil, err
	}
	return &out, nil
}

// Get performs a GET request to the specified path and returns the raw response regardless of status.
func (a *APIService) Get(ctx context.Context, path string) (*APIResponse, error) {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return a.do(ctx, http.MethodGet, path, nil, "")
}

// Message returns the user-facing message for err: the backend's message for an [*APIError], the error text otherwise.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return err.Error()
}
