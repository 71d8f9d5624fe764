// Package auth guards the admin dashboard: a single shared password is
// exchanged for a signed, expiring session token.
package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/clinic-assessment-server/internal/domain"
)

const (
	issuer       = "clinic-assessment"
	adminSubject = "admin"
)

// Claims is the payload of an admin session token.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Authenticator checks the admin password and issues session tokens.
type Authenticator struct {
	password []byte
	hash     []byte
	secret   []byte
	ttl      time.Duration
	now      func() time.Time
}

// New creates an Authenticator from the admin configuration. When no token
// secret is configured the password (or its hash) signs tokens.
func New(cfg domain.AdminConfig) (*Authenticator, error) {
	if cfg.Password == "" && cfg.PasswordHash == "" {
		return nil, errors.New("admin password is not configured")
	}
	if cfg.TokenTTL <= 0 {
		return nil, fmt.Errorf("invalid admin token ttl: %s", cfg.TokenTTL)
	}

	secret := cfg.TokenSecret
	if secret == "" {
		secret = cfg.Password
	}
	if secret == "" {
		secret = cfg.PasswordHash
	}

	return &Authenticator{
		password: []byte(cfg.Password),
		hash:     []byte(cfg.PasswordHash),
		secret:   []byte(secret),
		ttl:      cfg.TokenTTL,
		now:      time.Now,
	}, nil
}

// TTL is the lifetime of issued tokens.
func (a *Authenticator) TTL() time.Duration {
	return a.ttl
}

// CheckPassword reports whether password is the admin password. A bcrypt
// hash takes precedence over the plain password.
func (a *Authenticator) CheckPassword(password string) bool {
	if len(a.hash) > 0 {
		return bcrypt.CompareHashAndPassword(a.hash, []byte(password)) == nil
	}
	return subtle.ConstantTimeCompare(a.password, []byte(password)) == 1
}

// IssueToken signs a new admin session token and returns it with its expiry.
func (a *Authenticator) IssueToken() (string, time.Time, error) {
	now := a.now()
	expires := now.Add(a.ttl)
	claims := Claims{
		Role: adminSubject,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    issuer,
			Subject:   adminSubject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign admin token: %w", err)
	}
	return signed, expires, nil
}

// Verify parses token and checks its signature, issuer and expiry. Every
// failure wraps domain.ErrUnauthorized.
func (a *Authenticator) Verify(token string) (*Claims, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: missing token", domain.ErrUnauthorized)
	}
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(*jwt.Token) (interface{}, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithSubject(adminSubject),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.Role != adminSubject {
		return nil, fmt.Errorf("%w: invalid token", domain.ErrUnauthorized)
	}
	return claims, nil
}

// HashPassword returns the bcrypt hash to put in admin.password_hash.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", errors.New("password must not be empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}
