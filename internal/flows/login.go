package flows

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/tutorx/internal/nav"
	"github.com/desertthunder/tutorx/internal/services"
	"github.com/desertthunder/tutorx/internal/session"
)

// Login consumes the OAuth callback code and starts the provider login.
type Login struct {
	Lifecycle

	auth   services.AuthService
	store  *session.Store
	logger *log.Logger

	mu    sync.Mutex
	tried map[string]error
	err   error
}

// NewLogin creates a login flow.
func NewLogin(auth services.AuthService, store *session.Store, logger *log.Logger) *Login {
	return &Login{auth: auth, store: store, logger: logger, tried: make(map[string]error)}
}

// Resolve decides where the login page goes next.
//
// An authenticated store goes straight to the dashboard. Each distinct code is exchanged at
// most once per flow; success refreshes the store and goes to the dashboard, failure stays on
// the login page with the error kept in [Login.Err]. Repeating a code returns its first outcome.
func (l *Login) Resolve(ctx context.Context, code string) (nav.Route, error) {
	if l.store.State() == session.Authenticated {
		return nav.Dashboard, nil
	}
	if code == "" {
		return nav.Login, nil
	}

	l.mu.Lock()
	if prev, ok := l.tried[code]; ok {
		l.mu.Unlock()
		return nav.Login, prev
	}
	l.tried[code] = nil
	l.mu.Unlock()

	_, err := l.auth.ExchangeCode(ctx, code)
	if err != nil {
		l.mu.Lock()
		l.tried[code] = err
		l.mu.Unlock()
		l.logger.Error("authorization code exchange failed", "error", err)
		if applyErr := l.Apply(func() { l.setErr(err) }); applyErr != nil {
			return nav.Login, applyErr
		}
		return nav.Login, err
	}

	l.store.Refresh(ctx)
	if applyErr := l.Apply(func() { l.setErr(nil) }); applyErr != nil {
		return nav.Login, applyErr
	}
	return nav.Dashboard, nil
}

// Continue starts the provider login through the store.
func (l *Login) Continue(ctx context.Context, open func(url string) error) error {
	err := l.store.Login(ctx, open)
	if applyErr := l.Apply(func() { l.setErr(err) }); applyErr != nil {
		return applyErr
	}
	return err
}

// Exchanged reports whether code was already sent to the backend.
func (l *Login) Exchanged(code string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.tried[code]
	return ok
}

// Err returns the last exchange or login failure.
func (l *Login) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

func (l *Login) setErr(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.err = err
}
