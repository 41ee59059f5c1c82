// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file resolves the caller's identity from the Authorization header.
// Authenticate is installed globally and is optional: anonymous requests pass
// through untouched, while a present but invalid token is rejected with 401.
// Verifier failures that are not authentication errors (an unreachable
// denylist, a database error) yield 500.
// RequireAuth guards individual routes that need a signed-in user.
//
// Accepted header forms:
//
//	Authorization: Bearer <jwt>
//	Authorization: Token <jwt>
package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-recipes-backend/internal/services"
)

const (
	// ctxKeyUserID holds the authenticated user id (uint).
	ctxKeyUserID = "userID"
	// ctxKeyClaims holds the validated *services.Claims.
	ctxKeyClaims = "auth.claims"
)

// TokenVerifier validates a raw token. *services.AuthService satisfies it.
type TokenVerifier interface {
	Authenticate(ctx context.Context, raw string) (*services.Claims, error)
}

// Authenticate resolves an optional bearer token into the Gin context.
func Authenticate(v TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, present := bearerToken(c.GetHeader("Authorization"))
		if !present {
			c.Next()
			return
		}
		claims, err := v.Authenticate(c.Request.Context(), raw)
		if err != nil {
			if !errors.Is(err, services.ErrUnauthenticated) {
				rid, _ := c.Get(requestIDKey)
				log.Error().Err(err).Str("request_id", asString(rid)).Msg("token verification failed")
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"request_id": asString(rid),
					"code":       "internal_error",
					"message":    "internal server error",
				})
				return
			}
			unauthorized(c, err.Error())
			return
		}
		uid, err := claims.UserID()
		if err != nil {
			unauthorized(c, err.Error())
			return
		}
		c.Set(ctxKeyUserID, uid)
		c.Set(ctxKeyClaims, claims)
		c.Next()
	}
}

// RequireAuth aborts with 401 unless Authenticate resolved a user.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := UserID(c); !ok {
			unauthorized(c, "authentication credentials were not provided")
			return
		}
		c.Next()
	}
}

// UserID returns the authenticated user id, if any.
func UserID(c *gin.Context) (uint, bool) {
	v, ok := c.Get(ctxKeyUserID)
	if !ok {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok && id != 0
}

// Claims returns the validated token claims, if any.
func Claims(c *gin.Context) (*services.Claims, bool) {
	v, ok := c.Get(ctxKeyClaims)
	if !ok {
		return nil, false
	}
	cl, ok := v.(*services.Claims)
	return cl, ok && cl != nil
}

// bearerToken extracts the token from "Bearer x" or "Token x". The second
// result reports whether an Authorization header was supplied at all.
func bearerToken(h string) (string, bool) {
	h = strings.TrimSpace(h)
	if h == "" {
		return "", false
	}
	scheme, tok, found := strings.Cut(h, " ")
	if !found {
		return "", true
	}
	switch strings.ToLower(scheme) {
	case "bearer", "token":
		return strings.TrimSpace(tok), true
	default:
		return "", true
	}
}

func unauthorized(c *gin.Context, msg string) {
	c.Header("WWW-Authenticate", `Bearer realm="api"`)
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"request_id": c.Writer.Header().Get(requestIDHeader),
		"code":       "unauthorized",
		"message":    msg,
	})
}
