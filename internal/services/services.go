package services

import (
	"context"
	"net/http"

	"github.com/desertthunder/tutorx/internal/models"
)

// AuthService covers the backend's GitHub OAuth and session endpoints.
type AuthService interface {
	// LoginURL asks the backend for the provider authorization URL.
	LoginURL(ctx context.Context) (string, error)

	// ExchangeCode trades an OAuth code for a backend session. The session cookie is kept by the client's jar.
	ExchangeCode(ctx context.Context, code string) (*models.AuthResponse, error)

	// CurrentUser returns the identity bound to the session cookie.
	CurrentUser(ctx context.Context) (*models.User, error)

	// Logout ends the backend session.
	Logout(ctx context.Context) error
}

// TutorialService covers transcript upload, tutorial generation and tutorial CRUD.
type TutorialService interface {
	UploadTranscript(ctx context.Context, file models.TranscriptFile) (*models.TranscriptUpload, error)
	GenerateTutorial(ctx context.Context, transcriptID string) (*models.GeneratedTutorial, error)
	ListTutorials(ctx context.Context, params models.ListParams) (*models.TutorialPage, error)
	GetTutorial(ctx context.Context, id string) (*models.Tutorial, error)
	UpdateTutorial(ctx context.Context, id string, update models.TutorialUpdate) (*models.Tutorial, error)
}

// Client is everything the backend offers.
type Client interface {
	AuthService
	TutorialService
}

var _ Client = (*APIService)(nil)

// NewHTTPClient returns an http.Client that stores cookies in jar and does not follow redirects.
//
// The backend answers the OAuth callback and logout with a redirect to the web frontend; the
// redirect response itself carries the Set-Cookie header the session depends on.
func NewHTTPClient(jar http.CookieJar) *http.Client {
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}
