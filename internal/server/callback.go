package server

import (
	"fmt"
	"html/template"
	"net/http"
	"sync"

	"github.com/desertthunder/tutorx/internal/shared"
)

// CallbackResult is the outcome of the login redirect.
type CallbackResult struct {
	Code string
	err  error
}

func (c *CallbackResult) Error() error {
	return c.err
}

// CallbackHandler captures the authorization code the provider appends to the login redirect.
type CallbackHandler struct {
	path        string
	resultChan  chan CallbackResult
	once        sync.Once
	callbackHit bool
	mu          sync.Mutex
}

// NewCallbackHandler creates a handler serving path.
func NewCallbackHandler(path string) *CallbackHandler {
	if path == "" {
		path = "/login"
	}
	return &CallbackHandler{
		path:       path,
		resultChan: make(chan CallbackResult, 1),
	}
}

// Routes returns the GET pattern for the callback path.
func (h *CallbackHandler) Routes() []string {
	return []string{http.MethodGet + " " + h.path}
}

var pageTemplate = template.Must(template.New("callback").Parse(`<!DOCTYPE html>
<html>
<head>
    <title>{{.Title}}</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               display: flex; align-items: center; justify-content: center; height: 100vh;
               margin: 0; background: #f5f5f5; }
        .container { text-align: center; background: white; padding: 2rem;
                     border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        h1 { color: {{.Color}}; margin: 0 0 1rem 0; }
        p { color: #666; margin: 0; }
    </style>
</head>
<body>
    <div class="container">
        <h1>{{.Title}}</h1>
        <p>{{.Message}}</p>
    </div>
</body>
</html>
`))

type page struct {
	Title   string
	Color   template.CSS
	Message string
}

func writePage(w http.ResponseWriter, status int, p page) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_ = pageTemplate.Execute(w, p)
}

// ServeHTTP handles the login redirect.
//
// The first request decides the result: its code, or the provider's error parameters.
func (h *CallbackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	if h.callbackHit {
		h.mu.Unlock()
		http.Error(w, "Callback already processed", http.StatusBadRequest)
		return
	}
	h.callbackHit = true
	h.mu.Unlock()

	query := r.URL.Query()
	code := query.Get("code")
	if code == "" {
		errParam := query.Get("error")
		if errParam == "" {
			errParam = "missing code"
		}
		err := fmt.Errorf("%w: %s", shared.ErrAuthFailed, errParam)
		if desc := query.Get("error_description"); desc != "" {
			err = fmt.Errorf("%w: %s - %s", shared.ErrAuthFailed, errParam, desc)
		}
		h.Send(CallbackResult{err: err})
		writePage(w, http.StatusBadRequest, page{Title: "✗ Login Failed", Color: "#d73a49", Message: err.Error()})
		return
	}

	h.Send(CallbackResult{Code: code})
	writePage(w, http.StatusOK, page{
		Title:   "✓ Login Received",
		Color:   "#2ea44f",
		Message: "You can close this window and return to the terminal.",
	})
}

// Send sends the callback result through the channel (only once).
func (h *CallbackHandler) Send(result CallbackResult) {
	h.once.Do(func() {
		h.resultChan <- result
		close(h.resultChan)
	})
}

// Result returns the result channel.
//
// Channel will receive exactly one result and then be closed.
func (h *CallbackHandler) Result() <-chan CallbackResult {
	return h.resultChan
}
