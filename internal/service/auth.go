// Package service holds the business rules of the FieldFinder API.
//
// Services sit between the HTTP handlers and the repositories:
//
//	Handler (HTTP) → Service (validation, ownership) → Repository (DB)
//
// They take plain Go values, never *http.Request, and return either domain
// values or apperror errors that the handler layer maps onto status codes.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sakif/fieldfinder/internal/apperror"
	"github.com/sakif/fieldfinder/internal/auth"
	"github.com/sakif/fieldfinder/internal/model"
	"github.com/sakif/fieldfinder/internal/repository"
)

// MaxNameLength bounds the display name chosen at signup.
const MaxNameLength = 50

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// AuthService handles signup, login, logout and profile lookup.
//
// DEPENDENCIES (injected via NewAuthService):
//   - users        repository.UserRepository       → user records
//   - revocations  repository.RevocationRepository → logout deny-list
//   - tokens       *auth.TokenService              → JWT issue
//   - passwords    *auth.PasswordService           → bcrypt
//   - adminEmails  set of emails that sign up as ADMIN
type AuthService struct {
	users       repository.UserRepository
	revocations repository.RevocationRepository
	tokens      *auth.TokenService
	passwords   *auth.PasswordService
	adminEmails map[string]struct{}
	logger      *slog.Logger
}

func NewAuthService(
	users repository.UserRepository,
	revocations repository.RevocationRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	adminEmails []string,
	logger *slog.Logger,
) *AuthService {
	admins := make(map[string]struct{}, len(adminEmails))
	for _, e := range adminEmails {
		if e = normalizeEmail(e); e != "" {
			admins[e] = struct{}{}
		}
	}

	return &AuthService{
		users:       users,
		revocations: revocations,
		tokens:      tokens,
		passwords:   passwords,
		adminEmails: admins,
		logger:      logger,
	}
}

// SignupInput is the signup form.
type SignupInput struct {
	Email    string
	Password string
	Name     string
}

// AuthResult bundles the user with the token issued for them.
type AuthResult struct {
	User      *model.User
	Token     string
	ExpiresAt time.Time
}

// Signup registers a new account and logs it in.
//
// Validation, in order: email format, password policy, name length (1–50).
// A taken email yields apperror.EmailTaken so the client can show a specific message.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*AuthResult, error) {
	email := normalizeEmail(in.Email)
	name := strings.TrimSpace(in.Name)

	// === VALIDATION ===
	if !emailPattern.MatchString(email) {
		return nil, apperror.ValidationFailed("email", "a valid email address is required")
	}
	if err := auth.CheckPolicy(in.Password); err != nil {
		switch {
		case errors.Is(err, auth.ErrPasswordTooShort):
			return nil, apperror.ValidationFailed("password",
				fmt.Sprintf("password must be at least %d characters", auth.MinPasswordLength))
		default:
			return nil, apperror.ValidationFailed("password",
				fmt.Sprintf("password must be %d bytes or fewer", auth.MaxPasswordBytes))
		}
	}
	if name == "" {
		return nil, apperror.ValidationFailed("name", "name is required")
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return nil, apperror.ValidationFailed("name",
			fmt.Sprintf("name must be %d characters or less", MaxNameLength))
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("service/auth: %w", err)
	}

	user := &model.User{
		Email:        email,
		Name:         name,
		Role:         model.RoleUser,
		PasswordHash: hash,
	}
	if _, ok := s.adminEmails[email]; ok {
		user.Role = model.RoleAdmin
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, apperror.EmailTaken(email)
		}
		s.logger.Error("failed to create user",
			slog.String("email", email),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("service/auth: creating user: %w", err)
	}

	s.logger.Info("user signed up",
		slog.String("userID", user.ID),
		slog.String("role", string(user.Role)),
	)

	return s.issue(user)
}

// Login checks the credentials and issues a token.
// Unknown email and wrong password produce the same error.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, apperror.ValidationFailed("email", "email and password are required")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.InvalidCredentials()
		}
		return nil, fmt.Errorf("service/auth: looking up %s: %w", email, err)
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			s.logger.Info("login failed", slog.String("userID", user.ID))
			return nil, apperror.InvalidCredentials()
		}
		return nil, fmt.Errorf("service/auth: verifying password: %w", err)
	}

	s.logger.Info("user logged in", slog.String("userID", user.ID))

	return s.issue(user)
}

// Logout revokes the caller's token until it would have expired anyway.
func (s *AuthService) Logout(ctx context.Context, caller *auth.Identity) error {
	if caller == nil || caller.TokenID == "" {
		return apperror.Unauthorized("no active session")
	}

	expiresAt := caller.ExpiresAt
	if expiresAt.IsZero() {
		expiresAt = time.Now().Add(s.tokens.TTL())
	}

	if err := s.revocations.Revoke(ctx, caller.TokenID, expiresAt); err != nil {
		return fmt.Errorf("service/auth: revoking token: %w", err)
	}

	s.logger.Info("user logged out", slog.String("userID", caller.UserID))
	return nil
}

// Me returns the caller's profile.
func (s *AuthService) Me(ctx context.Context, caller *auth.Identity) (*model.User, error) {
	if caller == nil {
		return nil, apperror.Unauthorized("valid authentication required")
	}
	return s.users.GetByID(ctx, caller.UserID)
}

// PurgeRevocations drops deny-list entries for tokens that expired on their own.
func (s *AuthService) PurgeRevocations(ctx context.Context) error {
	n, err := s.revocations.PurgeExpired(ctx, time.Now())
	if err != nil {
		return fmt.Errorf("service/auth: purging revocations: %w", err)
	}
	if n > 0 {
		s.logger.Debug("purged revoked tokens", slog.Int64("count", n))
	}
	return nil
}

func (s *AuthService) issue(user *model.User) (*AuthResult, error) {
	token, claims, err := s.tokens.Generate(user.ID, user.Role)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %s: %w", user.ID, err)
	}

	return &AuthResult{
		User:      user,
		Token:     token,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
