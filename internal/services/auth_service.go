// Package services – AuthService
//
// This file implements token issuance and validation. Tokens are HS256 JWTs
// carrying the user id as subject and a random jti. Logout revokes the jti
// until the token's own expiry through a Denylist (Redis when configured,
// otherwise the revoked_tokens table).
package services

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/tbourn/go-recipes-backend/internal/repo"
)

// Denylist stores revoked token ids.
type Denylist interface {
	Revoke(ctx context.Context, jti string, until time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// DBDenylist keeps revoked token ids in the database.
type DBDenylist struct {
	DB *gorm.DB
}

// Revoke implements Denylist.
func (d *DBDenylist) Revoke(ctx context.Context, jti string, until time.Time) error {
	return repo.RevokeToken(ctx, d.DB, jti, until)
}

// IsRevoked implements Denylist.
func (d *DBDenylist) IsRevoked(ctx context.Context, jti string) (bool, error) {
	return repo.IsTokenRevoked(ctx, d.DB, jti, time.Now())
}

// Claims are the JWT claims issued by AuthService.
type Claims struct {
	jwt.RegisteredClaims
}

// UserID parses the subject.
func (c *Claims) UserID() (uint, error) {
	id, err := strconv.ParseUint(c.Subject, 10, 64)
	if err != nil || id == 0 {
		return 0, ErrInvalidToken
	}
	return uint(id), nil
}

const tokenIssuer = "foodgram"

// AuthService logs users in and out and validates bearer tokens.
type AuthService struct {
	DB       *gorm.DB
	Secret   []byte
	TTL      time.Duration
	Denylist Denylist

	// Now is overridable in tests.
	Now func() time.Time
}

// NewAuthService constructs an AuthService. A nil denylist falls back to
// the database.
func NewAuthService(db *gorm.DB, secret string, ttl time.Duration, dl Denylist) *AuthService {
	if dl == nil {
		dl = &DBDenylist{DB: db}
	}
	return &AuthService{DB: db, Secret: []byte(secret), TTL: ttl, Denylist: dl, Now: time.Now}
}

func (s *AuthService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Login verifies email/password and returns a signed token.
//
// Errors:
//   - ErrInvalidCredentials for an unknown email or a wrong password.
//   - ErrInactiveUser when the account is disabled.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, error) {
	u, err := repo.GetUserByEmail(ctx, s.DB, email)
	if err != nil {
		if isNotFound(err) {
			return "", ErrInvalidCredentials
		}
		return "", err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}
	if !u.IsActive {
		return "", ErrInactiveUser
	}
	return s.Issue(u.ID)
}

// Issue signs a new token for userID.
func (s *AuthService) Issue(userID uint) (string, error) {
	now := s.now()
	claims := Claims{RegisteredClaims: jwt.RegisteredClaims{
		Issuer:    tokenIssuer,
		Subject:   strconv.FormatUint(uint64(userID), 10),
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.TTL)),
	}}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.Secret)
}

// Authenticate validates a raw token string and returns its claims.
// Revoked tokens fail with ErrTokenRevoked, and tokens whose user has since
// been deactivated or deleted with ErrTokenUserInactive. Errors that do not
// wrap ErrUnauthenticated come from the database or the denylist.
func (s *AuthService) Authenticate(ctx context.Context, raw string) (*Claims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrInvalidToken
	}
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return s.Secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, ErrInvalidToken
	}
	uid, err := claims.UserID()
	if err != nil {
		return nil, err
	}
	if claims.ID == "" {
		return nil, ErrInvalidToken
	}
	revoked, err := s.Denylist.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, ErrTokenRevoked
	}
	u, err := repo.GetUser(ctx, s.DB, uid)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrTokenUserInactive
		}
		return nil, err
	}
	if !u.IsActive {
		return nil, ErrTokenUserInactive
	}
	return claims, nil
}

// Logout revokes the token described by claims.
func (s *AuthService) Logout(ctx context.Context, claims *Claims) error {
	if claims == nil || claims.ID == "" {
		return ErrInvalidToken
	}
	until := s.now().Add(s.TTL)
	if claims.ExpiresAt != nil {
		until = claims.ExpiresAt.Time
	}
	return s.Denylist.Revoke(ctx, claims.ID, until)
}
