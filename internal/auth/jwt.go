// Package auth provides JWT token issuance/validation, bcrypt password
// hashing, and the bearer-token HTTP middleware.
//
// AUTHENTICATION FLOW:
//  1. POST /auth/register stores a credential (bcrypt hash, never the password)
//  2. POST /auth/login verifies the password and issues a signed JWT
//  3. The client sends it back as "Authorization: Bearer <token>"
//  4. Middleware validates the signature/expiry and puts the decoded
//     identity in the request context for downstream handlers
//
// The token is stateless: it carries the credential ID (in the standard
// "sub" claim) and the username (in a private "nombre" claim), signed
// with a server-held HMAC secret. No session storage is needed — the
// signature alone proves the server issued it.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "cloudwear-api"

// Identity is the decoded content of a bearer token.
type Identity struct {
	CredentialID string
	Nombre       string
}

// TokenService handles JWT creation and validation.
//
// It holds the HMAC secret used to sign and verify tokens and the
// lifetime applied to newly issued tokens (1 hour in production config).
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenService creates a TokenService with the given secret and token
// lifetime. The secret should be at least 32 bytes of random data in
// production; anything under 16 characters is rejected outright.
func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	if ttl <= 0 {
		return nil, errors.New("auth: token TTL must be positive")
	}
	return &TokenService{secret: []byte(secret), ttl: ttl}, nil
}

// claims is the JWT payload. The credential ID travels in the standard
// "sub" (Subject) claim; the username in a private "nombre" claim, the
// key the deployed clients already decode.
type claims struct {
	Nombre string `json:"nombre"`
	jwt.RegisteredClaims
}

// Generate creates and signs a new access token for the given credential.
//
// Signing algorithm: HS256 (HMAC-SHA256) — symmetric, same key signs and
// verifies, which fits a single-service deployment.
func (s *TokenService) Generate(credentialID, nombre string) (string, error) {
	return s.GenerateWithDuration(credentialID, nombre, s.ttl)
}

// GenerateWithDuration creates a token with a custom expiry duration.
// Used in tests to mint already-expired tokens.
func (s *TokenService) GenerateWithDuration(credentialID, nombre string, d time.Duration) (string, error) {
	now := time.Now()

	c := claims{
		Nombre: nombre,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   credentialID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(d)),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}

	return signed, nil
}

// Validate parses and verifies a JWT string and returns the identity it
// encodes.
//
// The jwt library checks the signature, the expiry, the issuer and —
// via WithValidMethods — that the algorithm really is HS256, which
// blocks algorithm-confusion tokens signed with "none".
func (s *TokenService) Validate(tokenStr string) (*Identity, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("auth: token expired")
		}
		return nil, fmt.Errorf("auth: invalid token: %w", err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("auth: invalid token claims")
	}
	if c.Subject == "" {
		return nil, fmt.Errorf("auth: token has no subject")
	}

	return &Identity{CredentialID: c.Subject, Nombre: c.Nombre}, nil
}
