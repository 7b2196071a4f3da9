package store

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/Brent-Mendoza/blog-site/gateway"
	"github.com/Brent-Mendoza/blog-site/models"
)

// AuthState is the session slice's state snapshot. Loading starts true:
// the slice is uninitialized until the first CheckSession completes.
type AuthState struct {
	Session *models.Session
	User    *models.User
	Loading bool
	Err     string
}

// Authenticated reports whether a session is present.
func (s AuthState) Authenticated() bool {
	return s.Session != nil
}

type authPending struct{}
type authResolved struct{ session *models.Session }
type authFailed struct{ msg string }
type authPushed struct{ session *models.Session }
type authErrCleared struct{}

// reduceAuth is the pure state transition for the session slice.
func reduceAuth(st AuthState, ev interface{}) AuthState {
	switch e := ev.(type) {
	case authPending:
		st.Loading = true
		st.Err = ""
	case authResolved:
		st.Session = e.session
		st.User = sessionUser(e.session)
		st.Loading = false
		st.Err = ""
	case authFailed:
		st.Loading = false
		st.Err = e.msg
	case authPushed:
		st.Session = e.session
		st.User = sessionUser(e.session)
	case authErrCleared:
		st.Err = ""
	}
	return st
}

// AuthSlice owns the current session and user.
type AuthSlice struct {
	mu    sync.Mutex
	state AuthState

	auth     gateway.Auth
	profiles gateway.Profiles
	log      *zap.SugaredLogger
}

func newAuthSlice(auth gateway.Auth, profiles gateway.Profiles, log *zap.SugaredLogger) *AuthSlice {
	return &AuthSlice{
		state:    AuthState{Loading: true},
		auth:     auth,
		profiles: profiles,
		log:      log,
	}
}

// State returns the current snapshot.
func (s *AuthSlice) State() AuthState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *AuthSlice) apply(ev interface{}) {
	s.mu.Lock()
	s.state = reduceAuth(s.state, ev)
	s.mu.Unlock()
}

// CheckSession restores an existing session from the gateway. It never
// fails the caller: errors land in the Err field and loading is cleared
// unconditionally on completion.
func (s *AuthSlice) CheckSession(ctx context.Context) {
	s.apply(authPending{})
	session, err := s.auth.Session(ctx)
	if err != nil {
		s.log.Warnf("check session: %v", err)
		s.apply(authFailed{err.Error()})
		return
	}
	s.apply(authResolved{session})
}

// SignUp creates a backend identity with the username embedded as metadata,
// then inserts the matching profile row. When the profile insert fails
// after the identity was created the operation still fails: the identity
// exists without a profile row, a known inconsistency window.
func (s *AuthSlice) SignUp(ctx context.Context, email, password, username string) error {
	s.apply(authPending{})

	session, err := s.auth.SignUp(ctx, email, password, username)
	if err != nil {
		s.apply(authFailed{err.Error()})
		return err
	}
	if session.User == nil {
		err := errors.New("user not created")
		s.apply(authFailed{err.Error()})
		return err
	}

	if err := s.profiles.Insert(ctx, models.Profile{ID: session.User.ID, Username: username}); err != nil {
		s.log.Warnf("profile insert failed for identity %s: %v", session.User.ID, err)
		s.apply(authFailed{err.Error()})
		return err
	}

	s.apply(authResolved{session})
	return nil
}

// SignIn exchanges credentials for a session. On failure session and user
// are left untouched and the backend message lands in Err.
func (s *AuthSlice) SignIn(ctx context.Context, email, password string) error {
	s.apply(authPending{})
	session, err := s.auth.SignIn(ctx, email, password)
	if err != nil {
		s.apply(authFailed{err.Error()})
		return err
	}
	s.apply(authResolved{session})
	return nil
}

// SignOut invalidates the remote session. On failure the local session is
// not cleared; the error is only recorded.
func (s *AuthSlice) SignOut(ctx context.Context) error {
	s.apply(authPending{})
	if err := s.auth.SignOut(ctx); err != nil {
		s.apply(authFailed{err.Error()})
		return err
	}
	s.apply(authResolved{nil})
	return nil
}

// SetSession applies a session pushed by the gateway out of band (token
// refresh, external sign-out). It overwrites unconditionally.
func (s *AuthSlice) SetSession(session *models.Session) {
	s.apply(authPushed{session})
}

// ClearError clears the last error message.
func (s *AuthSlice) ClearError() {
	s.apply(authErrCleared{})
}

func sessionUser(s *models.Session) *models.User {
	if s == nil {
		return nil
	}
	return s.User
}
