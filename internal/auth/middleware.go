package auth

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
)

// contextKey is unexported so only this package can store or read the Identity.
type contextKey string

const identityKey contextKey = "identity"

var (
	errNoToken      = errors.New("auth: no bearer token")
	errTokenRevoked = errors.New("auth: token revoked")
)

// RevocationChecker answers whether a token ID was revoked by a logout.
// The sqlite repository implements it.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// Middleware guards routes with bearer tokens.
//
// MIDDLEWARE PATTERN IN GO:
// A middleware takes an http.Handler and returns a new one that wraps it:
//
//	func(next http.Handler) http.Handler {
//	    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
//	        // ... before ...
//	        next.ServeHTTP(w, r)
//	    })
//	}
//
// Chi chains them: req → RequireAuth → RequireAdmin → handler.
type Middleware struct {
	tokens  *TokenService
	revoked RevocationChecker
	logger  *slog.Logger
}

// NewMiddleware creates the auth middleware. revoked may be nil, in which case
// logout revocation is not enforced.
func NewMiddleware(tokens *TokenService, revoked RevocationChecker, logger *slog.Logger) *Middleware {
	return &Middleware{tokens: tokens, revoked: revoked, logger: logger}
}

// RequireAuth rejects the request with 401 unless it carries a valid, unrevoked
// bearer token. On success the caller's Identity is stored in the context.
func (m *Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := m.authenticate(r)
		if err != nil {
			if !errors.Is(err, errNoToken) {
				m.logger.Debug("rejected bearer token",
					slog.String("path", r.URL.Path),
					slog.String("error", err.Error()),
				)
			}
			writeAuthError(w, http.StatusUnauthorized, "unauthorized", "valid authentication required")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}

// OptionalAuth attaches the Identity when a valid token is present and lets
// anonymous requests through untouched. Public reads use it.
func (m *Middleware) OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id, err := m.authenticate(r); err == nil {
			r = r.WithContext(WithIdentity(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin must run after RequireAuth. Non-admins get 403.
func (m *Middleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := IdentityFromContext(r.Context())
		if !ok {
			writeAuthError(w, http.StatusUnauthorized, "unauthorized", "valid authentication required")
			return
		}
		if !id.IsAdmin() {
			writeAuthError(w, http.StatusForbidden, "forbidden", "administrator role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (m *Middleware) authenticate(r *http.Request) (*Identity, error) {
	raw, ok := BearerToken(r)
	if !ok {
		return nil, errNoToken
	}

	id, err := m.tokens.Validate(raw)
	if err != nil {
		return nil, err
	}

	if m.revoked != nil && id.TokenID != "" {
		revoked, err := m.revoked.IsRevoked(r.Context(), id.TokenID)
		if err != nil {
			return nil, err
		}
		if revoked {
			return nil, errTokenRevoked
		}
	}

	return id, nil
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
// The scheme is matched case-insensitively.
func BearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(h, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromContext returns the authenticated caller, or (nil, false) for
// an anonymous request.
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(identityKey).(*Identity)
	return id, ok && id != nil
}

// UserIDFromContext is a shortcut for handlers that only need the user ID.
//
//	userID, ok := auth.UserIDFromContext(r.Context())
//	if !ok {
//	    // anonymous user
//	}
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := IdentityFromContext(ctx)
	if !ok {
		return "", false
	}
	return id.UserID, id.UserID != ""
}

func writeAuthError(w http.ResponseWriter, status int, kind, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   kind,
		"code":    strings.ToUpper(kind),
		"message": message,
	})
}
