package handlers

import (
	"context"
	"log"
	"net/http"
	"time"

	"classquest/internal/apperr"
	"classquest/internal/security"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

// SessionContextKey holds the validated session claims
const SessionContextKey ContextKey = "session"

// Middleware holds dependencies for middleware functions
type Middleware struct {
	tokens  *security.TokenManager
	limiter *security.RateLimiter
}

// NewMiddleware creates a new middleware instance
func NewMiddleware(tokens *security.TokenManager, limiter *security.RateLimiter) *Middleware {
	return &Middleware{tokens: tokens, limiter: limiter}
}

// session extracts and validates the session token from the cookie or the
// Authorization header.
func (m *Middleware) session(r *http.Request) (*security.Claims, error) {
	tokenString := ""
	if cookie, err := r.Cookie(security.SessionCookieName); err == nil {
		tokenString = cookie.Value
	} else if auth := r.Header.Get("Authorization"); len(auth) > 7 && auth[:7] == "Bearer " {
		tokenString = auth[7:]
	}
	if tokenString == "" {
		return nil, apperr.Forbidden("authentication required")
	}

	claims, err := m.tokens.Validate(tokenString)
	if err != nil {
		return nil, apperr.Forbidden("invalid or expired session")
	}
	return claims, nil
}

// requireRole wraps a handler with session validation for one role
func (m *Middleware) requireRole(role string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, err := m.session(r)
		if err != nil {
			respondError(w, err)
			return
		}
		if claims.Role != role {
			respondError(w, apperr.Forbidden("insufficient permissions"))
			return
		}
		ctx := context.WithValue(r.Context(), SessionContextKey, claims)
		next(w, r.WithContext(ctx))
	}
}

// RequireStudent requires a valid student session
func (m *Middleware) RequireStudent(next http.HandlerFunc) http.HandlerFunc {
	return m.requireRole(security.RoleStudent, next)
}

// RequireTeacher requires a valid teacher session
func (m *Middleware) RequireTeacher(next http.HandlerFunc) http.HandlerFunc {
	return m.requireRole(security.RoleTeacher, next)
}

// RateLimit rejects clients that exceed the per-IP request budget
func (m *Middleware) RateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !m.limiter.Allow(security.GetClientIP(r)) {
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Logging middleware logs HTTP requests
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		next.ServeHTTP(w, r)

		log.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(start))
	})
}

// SessionFromContext retrieves the session claims from the request context
func SessionFromContext(ctx context.Context) *security.Claims {
	claims, ok := ctx.Value(SessionContextKey).(*security.Claims)
	if !ok {
		return nil
	}
	return claims
}
