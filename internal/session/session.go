// Package session tracks who is signed in on the client side.
//
// STATES:
//
//	Anonymous ──Login/Signup──▶ Authenticating ──ok──▶ AuthenticatedUser | AuthenticatedAdmin
//	    ▲                            │
//	    └──────────failure───────────┘
//	AuthenticatedUser/Admin ──Logout──▶ Anonymous   (always, even if the server call fails)
//
// The token and the user profile are persisted in a tokenstore.Store so a
// later run can Restore them. The role always comes from the token's claims,
// never from the stored profile: a profile without a usable token does not
// authenticate anyone.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/sakif/fieldfinder/internal/auth"
	"github.com/sakif/fieldfinder/internal/client"
	"github.com/sakif/fieldfinder/internal/model"
	"github.com/sakif/fieldfinder/internal/tokenstore"
)

// State is the session's position in the login state machine.
type State int

const (
	Anonymous State = iota
	Authenticating
	AuthenticatedUser
	AuthenticatedAdmin
)

func (s State) String() string {
	switch s {
	case Anonymous:
		return "anonymous"
	case Authenticating:
		return "authenticating"
	case AuthenticatedUser:
		return "user"
	case AuthenticatedAdmin:
		return "admin"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// ErrInProgress is returned when a login or signup is already running.
var ErrInProgress = errors.New("session: authentication already in progress")

// API is the part of the REST client the session needs.
type API interface {
	Signup(ctx context.Context, email, password, name string) (*client.AuthResult, error)
	Login(ctx context.Context, email, password string) (*client.AuthResult, error)
	Logout(ctx context.Context) error
}

// Session is safe for concurrent use.
type Session struct {
	api    API
	store  tokenstore.Store
	logger *slog.Logger

	mu    sync.RWMutex
	state State
	user  *model.User
	token *oauth2.Token
}

func New(api API, store tokenstore.Store, logger *slog.Logger) *Session {
	return &Session{api: api, store: store, logger: logger}
}

// Restore loads the persisted token and profile. A missing, expired or
// undecodable token leaves the session Anonymous; that is not an error.
func (s *Session) Restore() error {
	tok, err := tokenstore.LoadToken(s.store)
	if err != nil {
		return err
	}

	var user model.User
	hasUser, err := tokenstore.LoadJSON(s.store, tokenstore.KeyUser, &user)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = tok
	s.user = nil
	if hasUser {
		s.user = &user
	}
	s.state = stateFor(tok)

	if tok != nil && s.state == Anonymous {
		s.logger.Debug("stored token is no longer usable")
	}
	return nil
}

// Login authenticates and persists the result.
func (s *Session) Login(ctx context.Context, email, password string) (*model.User, error) {
	return s.authenticate(ctx, func() (*client.AuthResult, error) {
		return s.api.Login(ctx, email, password)
	})
}

// Signup creates an account and signs in as it.
func (s *Session) Signup(ctx context.Context, email, password, name string) (*model.User, error) {
	return s.authenticate(ctx, func() (*client.AuthResult, error) {
		return s.api.Signup(ctx, email, password, name)
	})
}

func (s *Session) authenticate(ctx context.Context, call func() (*client.AuthResult, error)) (*model.User, error) {
	s.mu.Lock()
	if s.state == Authenticating {
		s.mu.Unlock()
		return nil, ErrInProgress
	}
	prevState, prevUser, prevToken := s.state, s.user, s.token
	s.state = Authenticating
	s.mu.Unlock()

	res, err := call()

	var st State
	if err == nil {
		if st = stateFor(res.Token); st == Anonymous {
			err = errors.New("session: server returned an unusable token")
		}
	}
	if err != nil {
		// Nothing was written, so the stored session is still the previous one.
		s.mu.Lock()
		s.state, s.user, s.token = prevState, prevUser, prevToken
		s.mu.Unlock()
		return nil, err
	}

	if err := s.persist(res); err != nil {
		s.reset()
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	user := res.User
	s.state, s.user, s.token = st, &user, res.Token

	s.logger.Info("signed in", slog.String("userID", user.ID), slog.String("state", s.state.String()))
	return &user, nil
}

// reset forgets the session in memory and in the store.
func (s *Session) reset() {
	if err := tokenstore.Clear(s.store); err != nil {
		s.logger.Error("clearing stored session failed", slog.String("error", err.Error()))
	}

	s.mu.Lock()
	s.state, s.user, s.token = Anonymous, nil, nil
	s.mu.Unlock()
}

func (s *Session) persist(res *client.AuthResult) error {
	if err := tokenstore.SaveToken(s.store, res.Token); err != nil {
		return err
	}
	return tokenstore.SaveJSON(s.store, tokenstore.KeyUser, res.User)
}

// Logout asks the server to revoke the token, then forgets it locally.
// A failing server call is logged and swallowed; the local state is always
// cleared.
func (s *Session) Logout(ctx context.Context) {
	s.mu.RLock()
	hadToken := s.token != nil
	s.mu.RUnlock()

	if hadToken {
		if err := s.api.Logout(ctx); err != nil {
			s.logger.Warn("logout call failed", slog.String("error", err.Error()))
		}
	}

	s.reset()
}

// State returns the current state, re-checking token expiry.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state == Authenticating {
		return Authenticating
	}
	return stateFor(s.token)
}

// IsAuthenticated reports whether a token is present, unexpired and carries
// a known role.
func (s *Session) IsAuthenticated() bool {
	st := s.State()
	return st == AuthenticatedUser || st == AuthenticatedAdmin
}

// IsAdmin reports whether the current token carries the admin role.
func (s *Session) IsAdmin() bool {
	return s.State() == AuthenticatedAdmin
}

// User returns the signed-in profile, if the session is authenticated.
func (s *Session) User() (model.User, bool) {
	if !s.IsAuthenticated() {
		return model.User{}, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return model.User{}, false
	}
	return *s.user, true
}

// UserID returns the signed-in user's ID, or "".
func (s *Session) UserID() string {
	if !s.IsAuthenticated() {
		return ""
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == nil {
		return ""
	}
	if c, err := auth.DecodeUnverified(s.token.AccessToken); err == nil {
		return c.Subject
	}
	return ""
}

// stateFor derives the authenticated state from a token alone.
func stateFor(tok *oauth2.Token) State {
	role := roleOf(tok)
	switch role {
	case model.RoleAdmin:
		return AuthenticatedAdmin
	case model.RoleUser:
		return AuthenticatedUser
	default:
		return Anonymous
	}
}

// roleOf returns the role in the token's claims, or "" when the token is
// missing, expired or unreadable.
func roleOf(tok *oauth2.Token) model.Role {
	if tok == nil || !tok.Valid() {
		return ""
	}

	claims, err := auth.DecodeUnverified(tok.AccessToken)
	if err != nil {
		return ""
	}
	if claims.ExpiresAt != nil && !claims.ExpiresAt.Time.After(time.Now()) {
		return ""
	}
	return model.ParseRole(string(claims.Role))
}
