// Package session owns the signed-in identity: it persists the provider session
// between runs, refreshes the access token before it lapses, and tells
// subscribers when the user signs in or out.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"aibuddies/internal/auth"
	"aibuddies/internal/logging"

	"golang.org/x/sync/singleflight"
)

// RefreshWindow is how close to expiry a token may get before it is refreshed.
const RefreshWindow = 60 * time.Second

// Event describes a session transition.
type Event int

const (
	InitialSession Event = iota
	SignedIn
	SignedOut
	TokenRefreshed
)

func (e Event) String() string {
	switch e {
	case InitialSession:
		return "INITIAL_SESSION"
	case SignedIn:
		return "SIGNED_IN"
	case SignedOut:
		return "SIGNED_OUT"
	case TokenRefreshed:
		return "TOKEN_REFRESHED"
	default:
		return fmt.Sprintf("Event(%d)", int(e))
	}
}

// Listener receives session transitions. s is nil after SignedOut.
type Listener func(e Event, s *auth.Session)

// Provider is the part of the identity client the store needs.
type Provider interface {
	RefreshToken(ctx context.Context, refreshToken string) (*auth.Session, error)
	SignOut(ctx context.Context, accessToken string) error
}

// Store holds the current session. It is safe for concurrent use.
type Store struct {
	mu        sync.RWMutex
	path      string
	provider  Provider
	session   *auth.Session
	listeners map[int]Listener
	nextID    int

	refresh singleflight.Group
	now     func() time.Time
}

// NewStore creates a store persisting to path. provider may be nil, in which
// case tokens are never refreshed and sign-out is local only.
func NewStore(path string, provider Provider) *Store {
	return &Store{
		path:      path,
		provider:  provider,
		listeners: make(map[int]Listener),
		now:       time.Now,
	}
}

// Path returns the session file location.
func (s *Store) Path() string {
	return s.path
}

// Load reads the persisted session and emits InitialSession. A missing or
// unreadable file leaves the store signed out.
func (s *Store) Load() *auth.Session {
	sess, err := readSessionFile(s.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		logging.SessionWarn("Ignoring unreadable session file %s: %v", s.path, err)
	}

	s.mu.Lock()
	s.session = sess
	s.mu.Unlock()

	if sess != nil {
		logging.Session("Restored session for %s", sess.Email())
	} else {
		logging.SessionDebug("No persisted session")
	}
	s.emit(InitialSession, sess)
	return sess
}

// Current returns the session or nil when signed out.
func (s *Store) Current() *auth.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session
}

// Subscribe registers fn for session transitions. The returned function
// removes the subscription.
func (s *Store) Subscribe(fn Listener) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

// SignIn stores a freshly issued session and emits SignedIn.
func (s *Store) SignIn(sess *auth.Session) error {
	if !sess.Valid() {
		return fmt.Errorf("session has no access token")
	}
	if err := writeSessionFile(s.path, sess); err != nil {
		return err
	}

	s.mu.Lock()
	s.session = sess
	s.mu.Unlock()

	logging.Session("Signed in as %s", sess.Email())
	s.emit(SignedIn, sess)
	return nil
}

// SignOut revokes the session with the provider (best effort), deletes the
// persisted file and emits SignedOut.
func (s *Store) SignOut(ctx context.Context) error {
	current := s.Current()
	if current != nil && s.provider != nil {
		if err := s.provider.SignOut(ctx, current.AccessToken); err != nil {
			logging.SessionWarn("Provider sign-out failed: %v", err)
		}
	}
	return s.clear()
}

// AccessToken returns the bearer credential, refreshing it first when it is
// about to expire. It returns "" when signed out. A refresh the provider
// rejects signs the session out.
func (s *Store) AccessToken(ctx context.Context) (string, error) {
	current := s.Current()
	if current == nil {
		return "", nil
	}
	if s.provider == nil || current.RefreshToken == "" || !current.ExpiresWithin(s.now(), RefreshWindow) {
		return current.AccessToken, nil
	}

	v, err, _ := s.refresh.Do(current.RefreshToken, func() (interface{}, error) {
		return s.refreshSession(ctx, current)
	})
	if err != nil {
		var authErr *auth.Error
		if errors.As(err, &authErr) {
			logging.SessionWarn("Refresh rejected (%s), signing out", authErr.Message)
			if clearErr := s.clear(); clearErr != nil {
				logging.SessionWarn("Clearing session failed: %v", clearErr)
			}
			return "", nil
		}
		// Transport trouble: keep using the old token while it still works.
		if !current.ExpiresWithin(s.now(), 0) {
			return current.AccessToken, nil
		}
		return "", fmt.Errorf("refresh session: %w", err)
	}
	return v.(*auth.Session).AccessToken, nil
}

func (s *Store) refreshSession(ctx context.Context, current *auth.Session) (*auth.Session, error) {
	timer := logging.StartTimer(logging.CategorySession, "token refresh")
	defer timer.Stop()

	fresh, err := s.provider.RefreshToken(ctx, current.RefreshToken)
	if err != nil {
		return nil, err
	}
	if fresh.User == nil {
		fresh.User = current.User
	}
	if err := writeSessionFile(s.path, fresh); err != nil {
		logging.SessionWarn("Persisting refreshed session failed: %v", err)
	}

	s.mu.Lock()
	s.session = fresh
	s.mu.Unlock()

	s.emit(TokenRefreshed, fresh)
	return fresh, nil
}

func (s *Store) clear() error {
	err := os.Remove(s.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		err = fmt.Errorf("remove session file: %w", err)
	} else {
		err = nil
	}

	s.mu.Lock()
	had := s.session != nil
	s.session = nil
	s.mu.Unlock()

	if had {
		logging.Session("Signed out")
		s.emit(SignedOut, nil)
	}
	return err
}

// replace swaps in a session observed on disk and emits the matching event.
func (s *Store) replace(sess *auth.Session) {
	s.mu.Lock()
	prev := s.session
	if prev == nil && sess == nil {
		s.mu.Unlock()
		return
	}
	if prev != nil && sess != nil && prev.AccessToken == sess.AccessToken {
		s.mu.Unlock()
		return
	}
	s.session = sess
	s.mu.Unlock()

	switch {
	case sess == nil:
		s.emit(SignedOut, nil)
	case prev == nil || prev.Email() != sess.Email():
		s.emit(SignedIn, sess)
	default:
		s.emit(TokenRefreshed, sess)
	}
}

func (s *Store) emit(e Event, sess *auth.Session) {
	s.mu.RLock()
	fns := make([]Listener, 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.RUnlock()

	logging.SessionDebug("Event %s (%d listeners)", e, len(fns))
	for _, fn := range fns {
		fn(e, sess)
	}
}

func readSessionFile(path string) (*auth.Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sess auth.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("parse session: %w", err)
	}
	if !sess.Valid() {
		return nil, fmt.Errorf("session has no access token")
	}
	return &sess, nil
}

func writeSessionFile(path string, sess *auth.Session) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace session: %w", err)
	}
	return nil
}
