// Package session holds the authenticated identity for one tutorx process.
//
// A [Store] starts in [Loading], resolves to [Authenticated] or [Anonymous] after one identity
// check, and afterwards changes only through [Store.Refresh] and [Store.Logout]. The store is
// created once by the command runner and passed explicitly to everything that needs it.
package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/tutorx/internal/models"
	"github.com/desertthunder/tutorx/internal/services"
)

// State is the identity state of a [Store].
type State int

const (
	Loading State = iota
	Authenticated
	Anonymous
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Authenticated:
		return "authenticated"
	case Anonymous:
		return "anonymous"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Snapshot is a copy of the store state delivered to subscribers.
type Snapshot struct {
	State State
	User  *models.User
}

// Store is the session/identity store.
type Store struct {
	auth   services.AuthService
	clear  func() error
	logger *log.Logger

	once sync.Once

	mu      sync.RWMutex
	state   State
	user    *models.User
	lastErr error
	subs    []chan Snapshot
}

// NewStore creates a store in the [Loading] state.
//
// clear removes the persisted session cookie on logout; it may be nil.
func NewStore(auth services.AuthService, clear func() error, logger *log.Logger) *Store {
	return &Store{auth: auth, clear: clear, logger: logger, state: Loading}
}

// Init performs the startup identity check. Only the first call reaches the backend.
func (s *Store) Init(ctx context.Context) {
	s.once.Do(func() {
		s.Refresh(ctx)
	})
}

// Refresh asks the backend who the session belongs to. Any failure resolves to [Anonymous].
func (s *Store) Refresh(ctx context.Context) State {
	user, err := s.auth.CurrentUser(ctx)
	if err != nil {
		s.logger.Debug("identity check failed", "error", err)
		s.set(Anonymous, nil)
		return Anonymous
	}

	s.logger.Debug("identity resolved", "user", user.Name)
	s.set(Authenticated, user)
	return Authenticated
}

// Login asks the backend for the provider login URL and hands it to open.
//
// Failure is logged and kept in [Store.LastError]. The state does not change.
func (s *Store) Login(ctx context.Context, open func(url string) error) error {
	loginURL, err := s.auth.LoginURL(ctx)
	if err == nil {
		err = open(loginURL)
	}
	if err != nil {
		s.logger.Error("login failed", "error", err)
		s.setErr(err)
		return err
	}

	s.setErr(nil)
	return nil
}

// Logout ends the backend session. The store becomes [Anonymous] whatever the backend says.
//
// The backend error, if any, is logged, kept in [Store.LastError] and returned.
func (s *Store) Logout(ctx context.Context) error {
	err := s.auth.Logout(ctx)
	if err != nil {
		s.logger.Warn("logout request failed", "error", err)
	}

	if s.clear != nil {
		if clearErr := s.clear(); clearErr != nil {
			s.logger.Warn("failed to clear stored session", "error", clearErr)
			if err == nil {
				err = clearErr
			}
		}
	}

	s.setErr(err)
	s.set(Anonymous, nil)
	return err
}

// State returns the current state.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// User returns the authenticated user, or nil.
func (s *Store) User() *models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// Snapshot returns state and user together.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// LastError returns the most recent login or logout failure.
func (s *Store) LastError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// Subscribe returns a channel that receives the latest snapshot after every state change.
//
// The channel holds one value; a slow reader only misses intermediate snapshots.
func (s *Store) Subscribe() <-chan Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan Snapshot, 1)
	s.subs = append(s.subs, ch)
	return ch
}

// Unsubscribe stops delivery to ch and closes it.
func (s *Store) Unsubscribe(ch <-chan Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, sub := range s.subs {
		if sub == ch {
			s.subs = append(s.subs[:i], s.subs[i+1:]...)
			close(sub)
			return
		}
	}
}

func (s *Store) snapshotLocked() Snapshot {
	snap := Snapshot{State: s.state}
	if s.user != nil {
		u := *s.user
		snap.User = &u
	}
	return snap
}

func (s *Store) set(state State, user *models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = state
	s.user = user

	snap := s.snapshotLocked()
	for _, ch := range s.subs {
		select {
		case ch <- snap:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
}

func (s *Store) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastErr = err
}
