package flows

import (
	"context"
	"io"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/require"

	"github.com/desertthunder/tutorx/internal/models"
	"github.com/desertthunder/tutorx/internal/nav"
	"github.com/desertthunder/tutorx/internal/services"
	"github.com/desertthunder/tutorx/internal/session"
	"github.com/desertthunder/tutorx/internal/shared"
	tu "github.com/desertthunder/tutorx/internal/testing"
)

func quietLogger() *log.Logger {
	return log.New(io.Discard)
}

func TestLifecycle(t *testing.T) {
	var l Lifecycle
	ran := false
	require.NoError(t, l.Apply(func() { ran = true }))
	require.True(t, ran)

	l.Close()
	l.Close()
	require.True(t, l.Closed())

	ran = false
	require.ErrorIs(t, l.Apply(func() { ran = true }), ErrAbandoned)
	require.False(t, ran)
}

func TestLogin(t *testing.T) {
	octo := &models.User{ID: "1", Name: "octo"}

	newStore := func(client *tu.MockClient) *session.Store {
		return session.NewStore(client, nil, quietLogger())
	}

	t.Run("authenticated store goes to dashboard without exchange", func(t *testing.T) {
		client := &tu.MockClient{CurrentUserFunc: func(context.Context) (*models.User, error) { return octo, nil }}
		store := newStore(client)
		store.Init(context.Background())

		route, err := NewLogin(client, store, quietLogger()).Resolve(context.Background(), "code")

		require.NoError(t, err)
		require.Equal(t, nav.Dashboard, route)
		require.Zero(t, client.Calls("ExchangeCode"))
	})

	t.Run("no code stays on login", func(t *testing.T) {
		client := &tu.MockClient{}
		store := newStore(client)
		store.Init(context.Background())

		route, err := NewLogin(client, store, quietLogger()).Resolve(context.Background(), "")

		require.NoError(t, err)
		require.Equal(t, nav.Login, route)
	})

	t.Run("code is exchanged once and refreshes the store", func(t *testing.T) {
		exchanged := false
		client := &tu.MockClient{
			CurrentUserFunc: func(context.Context) (*models.User, error) {
				if exchanged {
					return octo, nil
				}
				return nil, shared.ErrNotAuthenticated
			},
			ExchangeCodeFunc: func(context.Context, string) (*models.AuthResponse, error) {
				exchanged = true
				return &models.AuthResponse{JWT: "jwt"}, nil
			},
		}
		store := newStore(client)
		store.Init(context.Background())
		login := NewLogin(client, store, quietLogger())

		route, err := login.Resolve(context.Background(), "abc")
		require.NoError(t, err)
		require.Equal(t, nav.Dashboard, route)
		require.Equal(t, session.Authenticated, store.State())

		route, err = login.Resolve(context.Background(), "abc")
		require.NoError(t, err)
		require.Equal(t, nav.Dashboard, route)
		require.Equal(t, 1, client.Calls("ExchangeCode"))
		require.Equal(t, []string{"abc"}, client.ExchangedCodes)
	})

	t.Run("failed exchange is captured and stays on login", func(t *testing.T) {
		client := &tu.MockClient{ExchangeCodeFunc: func(context.Context, string) (*models.AuthResponse, error) {
			return nil, &services.APIError{StatusCode: 400, Message: "Bad verification code"}
		}}
		store := newStore(client)
		store.Init(context.Background())
		login := NewLogin(client, store, quietLogger())

		route, err := login.Resolve(context.Background(), "stale")
		require.EqualError(t, err, "Bad verification code")
		require.Equal(t, nav.Login, route)
		require.EqualError(t, login.Err(), "Bad verification code")
		require.True(t, login.Exchanged("stale"))
		require.False(t, login.Exchanged("fresh"))

		route, err = login.Resolve(context.Background(), "stale")
		require.Equal(t, nav.Login, route)
		require.EqualError(t, err, "Bad verification code")
		require.Equal(t, 1, client.Calls("ExchangeCode"))
	})

	t.Run("new code is exchanged after a failed one", func(t *testing.T) {
		exchanged := false
		client := &tu.MockClient{
			CurrentUserFunc: func(context.Context) (*models.User, error) {
				if exchanged {
					return octo, nil
				}
				return nil, shared.ErrNotAuthenticated
			},
			ExchangeCodeFunc: func(_ context.Context, code string) (*models.AuthResponse, error) {
				if code == "stale" {
					return nil, &services.APIError{StatusCode: 400, Message: "Bad verification code"}
				}
				exchanged = true
				return &models.AuthResponse{}, nil
			},
			LoginURLFunc: func(context.Context) (string, error) { return "https://github.com/x", nil },
		}
		store := newStore(client)
		store.Init(context.Background())
		login := NewLogin(client, store, quietLogger())

		_, err := login.Resolve(context.Background(), "stale")
		require.Error(t, err)

		require.NoError(t, login.Continue(context.Background(), func(string) error { return nil }))
		require.Equal(t, 1, client.Calls("LoginURL"))
		require.NoError(t, login.Err())

		route, err := login.Resolve(context.Background(), "fresh")
		require.NoError(t, err)
		require.Equal(t, nav.Dashboard, route)
		require.Equal(t, []string{"stale", "fresh"}, client.ExchangedCodes)
	})

	t.Run("continue delegates to the store", func(t *testing.T) {
		client := &tu.MockClient{LoginURLFunc: func(context.Context) (string, error) { return "https://github.com/x", nil }}
		store := newStore(client)
		login := NewLogin(client, store, quietLogger())

		var opened string
		require.NoError(t, login.Continue(context.Background(), func(u string) error { opened = u; return nil }))
		require.Equal(t, "https://github.com/x", opened)
	})

	t.Run("abandoned flow drops the exchange result", func(t *testing.T) {
		client := &tu.MockClient{}
		store := newStore(client)
		store.Init(context.Background())
		login := NewLogin(client, store, quietLogger())
		login.Close()

		_, err := login.Resolve(context.Background(), "abc")
		require.ErrorIs(t, err, ErrAbandoned)
	})
}
