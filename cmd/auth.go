package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/tutorx/internal/flows"
	"github.com/desertthunder/tutorx/internal/nav"
	"github.com/desertthunder/tutorx/internal/repositories"
	"github.com/desertthunder/tutorx/internal/server"
	"github.com/desertthunder/tutorx/internal/services"
	"github.com/desertthunder/tutorx/internal/session"
	"github.com/desertthunder/tutorx/internal/shared"
)

var errBrowserDisabled = errors.New("browser disabled")

// Login signs in through the backend's GitHub OAuth endpoints.
//
// Without --code a local callback server receives the provider redirect; the code is then
// exchanged exactly once and the session re-checked.
func (r *Runner) Login(ctx context.Context, cmd *cli.Command) error {
	if r.api == nil || r.store == nil {
		return fmt.Errorf("%w: backend client not initialized", shared.ErrServiceUnavailable)
	}

	r.store.Init(ctx)
	flow := flows.NewLogin(r.api, r.store, r.logger)
	defer flow.Close()

	code := cmd.String("code")
	if code == "" && r.store.State() != session.Authenticated {
		var err error
		if code, err = r.awaitCallback(ctx, flow, cmd.Bool("no-browser")); err != nil {
			return err
		}
	}

	route, err := flow.Resolve(ctx, code)
	if err != nil {
		return fmt.Errorf("%w: %s", shared.ErrAuthFailed, services.Message(err))
	}
	if route != nav.Dashboard || r.store.State() != session.Authenticated {
		return fmt.Errorf("%w: the backend did not establish a session", shared.ErrAuthFailed)
	}

	r.logger.Info("login complete", "user", r.store.User().Name)
	return r.writePlain("✓ Logged in as %s\n", r.store.User().Name)
}

// awaitCallback starts the callback server, opens the provider login page and waits for ?code=.
func (r *Runner) awaitCallback(ctx context.Context, flow *flows.Login, noBrowser bool) (string, error) {
	cb := r.config.Callback
	srv := server.NewCallbackServer(cb.Addr(), cb.Path, r.logger)
	if err := srv.Start(); err != nil {
		return "", fmt.Errorf("%w: %v (pass --code or use 'tutorx auth import')", shared.ErrAuthFailed, err)
	}
	defer srv.Shutdown()

	open := r.openBrowser
	if noBrowser {
		open = func(string) error { return errBrowserDisabled }
	}

	err := flow.Continue(ctx, func(loginURL string) error {
		if err := open(loginURL); err != nil {
			if !errors.Is(err, errBrowserDisabled) {
				r.logger.Warn("could not open browser", "error", err)
			}
			return r.writePlain("Open this URL in your browser to continue:\n  %s\n", loginURL)
		}
		return r.writePlain("Opened the GitHub login page in your browser.\n")
	})
	if err != nil {
		return "", fmt.Errorf("%w: %s", shared.ErrAuthFailed, services.Message(err))
	}

	timeout := time.Duration(cb.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	r.writePlain("Waiting for the login callback on http://%s%s ...\n", srv.Addr(), cb.Path)
	return srv.Wait(ctx, timeout)
}

// Logout ends the backend session. Local state is cleared even when the backend call fails.
func (r *Runner) Logout(ctx context.Context, cmd *cli.Command) error {
	if r.store == nil {
		return fmt.Errorf("%w: backend client not initialized", shared.ErrServiceUnavailable)
	}

	if err := r.store.Logout(ctx); err != nil {
		r.writePlain("✓ Logged out locally\n")
		return r.writePlain("  the backend reported: %s\n", services.Message(err))
	}
	return r.writePlain("✓ Logged out\n")
}

// WhoAmI prints the identity bound to the stored session.
func (r *Runner) WhoAmI(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireSession(ctx, nav.Dashboard); err != nil {
		return err
	}

	user := r.store.User()
	if cmd.Bool("json") {
		return r.writeJSON(user, true)
	}
	return r.writePlain("%s (id %s)\n", user.Name, user.ID)
}

// AuthStatus reports the session state and the stored cookie's expiry.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	if r.store == nil {
		return fmt.Errorf("%w: backend client not initialized", shared.ErrServiceUnavailable)
	}

	base, err := r.baseURL()
	if err != nil {
		return err
	}

	r.store.Init(ctx)
	r.writePlainHeader("Session")
	r.writePlain("Backend: %s\n", base)
	r.writePlain("State:   %s\n", r.store.State())
	if user := r.store.User(); user != nil {
		r.writePlain("User:    %s (id %s)\n", user.Name, user.ID)
	}

	if r.jar == nil {
		return nil
	}
	cookie, err := r.jar.Lookup(base, services.SessionCookieName)
	if errors.Is(err, repositories.ErrNotFound) {
		return r.writePlain("Cookie:  none stored\n")
	}
	if err != nil {
		return err
	}
	return r.writeTokenStatus(cookie.Value, time.Now())
}

func (r *Runner) writeTokenStatus(token string, now time.Time) error {
	info, err := session.InspectToken(token)
	if err != nil {
		r.logger.Debug("session cookie is not a readable JWT", "error", err)
		return r.writePlain("Cookie:  stored (expiry unknown)\n")
	}

	switch {
	case info.ExpiresAt.IsZero():
		return r.writePlain("Cookie:  stored (no expiry)\n")
	case info.Expired(now):
		return r.writePlain("Cookie:  expired %s\n", info.ExpiresAt.Local().Format(time.RFC1123))
	default:
		return r.writePlain("Cookie:  expires %s (in %s)\n",
			info.ExpiresAt.Local().Format(time.RFC1123), info.ExpiresAt.Sub(now).Round(time.Minute))
	}
}

// AuthImport stores the session cookie found in a browser "Copy as cURL" export and re-checks the identity.
func (r *Runner) AuthImport(ctx context.Context, cmd *cli.Command) error {
	path := cmd.StringArg("path")
	if path == "" {
		return fmt.Errorf("%w: path to a curl file is required", shared.ErrMissingArgument)
	}
	if r.jar == nil || r.store == nil {
		return fmt.Errorf("%w: cookie store not initialized", shared.ErrServiceUnavailable)
	}

	curl, err := shared.ParseCurlFile(shared.ExpandPath(path))
	if err != nil {
		return err
	}
	cookie, err := curl.SessionCookie(services.SessionCookieName)
	if err != nil {
		return err
	}

	base, err := r.baseURL()
	if err != nil {
		return err
	}
	if curl.URL != "" {
		if u, err := url.Parse(curl.URL); err == nil && u.Hostname() != base.Hostname() {
			r.logger.Warn("curl request targets a different host", "curl", u.Hostname(), "backend", base.Hostname())
		}
	}

	r.jar.Import(base, []*http.Cookie{cookie})
	if r.store.Refresh(ctx) != session.Authenticated {
		return fmt.Errorf("%w: the backend rejected the imported session", shared.ErrNotAuthenticated)
	}
	return r.writePlain("✓ Session imported for %s\n", r.store.User().Name)
}
