// Package auth issues and checks the bearer tokens of the FieldFinder API.
//
// AUTHENTICATION FLOW OVERVIEW:
//  1. POST /auth/signup or /auth/login checks the credentials (bcrypt, password.go)
//  2. The server issues a signed JWT carrying the user ID, role and a unique token ID
//  3. The client stores the token and sends "Authorization: Bearer <jwt>" on each call
//  4. RequireAuth (middleware.go) validates the JWT and puts the Identity in the context
//  5. POST /auth/logout revokes the token ID so the token stops working before expiry
//
// JWT STRUCTURE (three base64-encoded parts separated by dots):
//
//	HEADER.PAYLOAD.SIGNATURE
//	- Header: {"alg":"HS256","typ":"JWT"}
//	- Payload: {"sub":"<userID>","role":"ADMIN","jti":"<uuid>","exp":1234567890,...}
//	- Signature: HMAC-SHA256(header+"."+payload, secretKey)
//
// The payload is only base64, not encrypted: the client reads the role from it
// (DecodeUnverified) to decide what to show, while the server still checks the
// signature on every request before trusting it.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/sakif/fieldfinder/internal/model"
)

// Issuer is written into and required from every token.
const Issuer = "fieldfinder"

// DefaultTokenTTL is how long an access token stays valid.
// There are no refresh tokens: when it expires the user logs in again.
const DefaultTokenTTL = 24 * time.Hour

// Claims is the JWT payload.
//
// It embeds jwt.RegisteredClaims for the standard fields:
//   - Subject (sub): internal user ID
//   - ID (jti): unique per token, used to revoke it at logout
//   - ExpiresAt / IssuedAt / Issuer
type Claims struct {
	Role model.Role `json:"role"`
	jwt.RegisteredClaims
}

// Identity is the authenticated caller extracted from a valid token.
type Identity struct {
	UserID    string
	Role      model.Role
	TokenID   string
	ExpiresAt time.Time
}

// IsAdmin reports whether the caller holds the admin role.
func (i *Identity) IsAdmin() bool {
	return i != nil && i.Role == model.RoleAdmin
}

// TokenService handles JWT creation and validation with an HMAC secret.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenService creates a TokenService. A ttl of zero selects DefaultTokenTTL.
// The secret should be at least 32 bytes of random data in production:
//
//	JWT_SECRET=$(openssl rand -hex 32)
func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenService{secret: []byte(secret), ttl: ttl}, nil
}

// TTL returns the lifetime of issued tokens.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// Generate signs a new token for the user with the service's TTL.
func (s *TokenService) Generate(userID string, role model.Role) (string, *Claims, error) {
	return s.GenerateWithDuration(userID, role, s.ttl)
}

// GenerateWithDuration signs a token with a custom lifetime.
// A negative duration yields an already-expired token, which tests rely on.
func (s *TokenService) GenerateWithDuration(userID string, role model.Role, d time.Duration) (string, *Claims, error) {
	if userID == "" {
		return "", nil, errors.New("auth: user ID must not be empty")
	}
	if !role.Valid() {
		return "", nil, fmt.Errorf("auth: invalid role %q", role)
	}

	now := time.Now()
	c := &Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(d)),
			Issuer:    Issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", nil, fmt.Errorf("auth: signing token: %w", err)
	}

	return signed, c, nil
}

// Validate parses and verifies a JWT string and returns the caller's Identity.
//
// VALIDATION CHECKS (performed by the jwt library):
//   - Signature is valid and the algorithm is HS256 (no "none" algorithm confusion)
//   - Token is not expired and carries an expiry at all
//   - Issuer is "fieldfinder"
//
// On top of that the subject must be set and the role must be known.
// Revocation is not checked here; see RequireAuth.
func (s *TokenService) Validate(tokenStr string) (*Identity, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&Claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(Issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("auth: token expired")
		}
		return nil, fmt.Errorf("auth: invalid token: %w", err)
	}

	c, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("auth: invalid token claims")
	}

	if c.Subject == "" {
		return nil, fmt.Errorf("auth: token has no subject")
	}
	if !c.Role.Valid() {
		return nil, fmt.Errorf("auth: token has unknown role %q", c.Role)
	}

	return identityFromClaims(c), nil
}

// DecodeUnverified reads the claims of a token WITHOUT checking its signature.
//
// The client uses it to learn the role and expiry of the token it was handed.
// It holds no secret, so it cannot verify anything, and must never use the
// result for a security decision the server does not repeat.
func DecodeUnverified(tokenStr string) (*Claims, error) {
	c := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenStr, c); err != nil {
		return nil, fmt.Errorf("auth: decoding token: %w", err)
	}
	return c, nil
}

func identityFromClaims(c *Claims) *Identity {
	id := &Identity{
		UserID:  c.Subject,
		Role:    c.Role,
		TokenID: c.ID,
	}
	if c.ExpiresAt != nil {
		id.ExpiresAt = c.ExpiresAt.Time
	}
	return id
}
