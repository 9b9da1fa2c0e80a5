// Package auth verifies the bearer tokens issued by the account service.
// Tokens carry the numeric account id in "sub" and "admin" or "user" in "role".
package auth

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/jwtauth"
)

type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

var ErrUnauthorized = errors.New("unauthorized")

type Identity struct {
	ID   int64
	Role Role
}

type ctxKey struct{}

func New(secret string) *jwtauth.JWTAuth {
	return jwtauth.New("HS256", []byte(secret), nil)
}

// IssueToken signs a token for id and role. Used by tests and local tooling.
func IssueToken(ja *jwtauth.JWTAuth, id int64, role Role, ttl time.Duration) (string, error) {
	_, tokenString, err := ja.Encode(map[string]interface{}{
		"sub":  strconv.FormatInt(id, 10),
		"role": string(role),
		"exp":  time.Now().Add(ttl).Unix(),
	})
	return tokenString, err
}

// identityFromClaims reads the verified token claims stored by jwtauth.Verifier.
func identityFromClaims(ctx context.Context) (Identity, error) {
	_, claims, err := jwtauth.FromContext(ctx)
	if err != nil {
		return Identity{}, ErrUnauthorized
	}

	sub, _ := claims["sub"].(string)
	id, err := strconv.ParseInt(sub, 10, 64)
	if err != nil || id <= 0 {
		return Identity{}, ErrUnauthorized
	}

	role, _ := claims["role"].(string)
	switch Role(role) {
	case RoleAdmin, RoleUser:
	default:
		return Identity{}, ErrUnauthorized
	}
	return Identity{ID: id, Role: Role(role)}, nil
}

// Require admits only tokens with one of the given roles and stores the
// identity for FromContext. It runs after jwtauth.Verifier and
// jwtauth.Authenticator.
func Require(roles ...Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := identityFromClaims(r.Context())
			if err != nil {
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}
			if !hasRole(roles, id.Role) {
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, id)))
		})
	}
}

func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok
}

func hasRole(roles []Role, role Role) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

// TokenFromQuery reads the token from the "jwt" query parameter. Browsers
// cannot set headers on a websocket handshake.
func TokenFromQuery(r *http.Request) string {
	return r.URL.Query().Get("jwt")
}
