// Package auth provides the optional bearer-token middleware. With no
// secret configured the middleware is a pass-through and every endpoint is
// open; tokens are issued out of band.
package auth

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims carried by service tokens.
type Claims struct {
	Subject string `json:"sub,omitempty"`
	jwt.RegisteredClaims
}

// Middleware validates Authorization: Bearer tokens on every route except
// /health when a secret is configured.
type Middleware struct {
	secret []byte
}

// NewMiddleware builds the middleware. An empty secret disables
// enforcement.
func NewMiddleware(secret string) *Middleware {
	if secret == "" {
		return &Middleware{}
	}
	return &Middleware{secret: []byte(secret)}
}

// Enabled reports whether tokens are enforced.
func (m *Middleware) Enabled() bool {
	return len(m.secret) > 0
}

// Wrap applies token validation to the handler.
func (m *Middleware) Wrap(next http.Handler) http.Handler {
	if !m.Enabled() {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			w.Header().Set("Content-Type", "application/json")
			http.Error(w, `{"error":"missing bearer token"}`, http.StatusUnauthorized)
			return
		}

		if _, err := m.Validate(token); err != nil {
			w.Header().Set("Content-Type", "application/json")
			http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Validate parses and verifies a token string.
func (m *Middleware) Validate(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}

// GenerateToken issues a signed token, mainly for provisioning clients.
func (m *Middleware) GenerateToken(subject string, ttl time.Duration) (string, error) {
	if !m.Enabled() {
		return "", fmt.Errorf("auth not configured")
	}
	now := time.Now()
	claims := Claims{
		Subject: subject,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}
