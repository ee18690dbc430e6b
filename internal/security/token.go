package security

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Role names carried in session tokens
const (
	RoleStudent = "student"
	RoleTeacher = "teacher"
)

// SessionCookieName is the cookie that carries the session token. The cookie
// is set by the surrounding application; this module only reads it.
const SessionCookieName = "session_token"

// Claims is the session token payload
type Claims struct {
	UserID      int64  `json:"uid"`
	ClassroomID int64  `json:"cid"`
	Role        string `json:"role"`
	jwt.RegisteredClaims
}

// TokenManager issues and validates signed session tokens
type TokenManager struct {
	secret   []byte
	duration time.Duration
}

// NewTokenManager creates a token manager. The secret must be non-empty.
func NewTokenManager(secret string, duration time.Duration) (*TokenManager, error) {
	if secret == "" {
		return nil, fmt.Errorf("session secret must be configured")
	}
	if duration <= 0 {
		duration = 24 * time.Hour
	}
	return &TokenManager{secret: []byte(secret), duration: duration}, nil
}

// Issue creates a signed session token for a user
func (m *TokenManager) Issue(userID, classroomID int64, role string) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:      userID,
		ClassroomID: classroomID,
		Role:        role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.duration)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, nil
}

// Validate parses and verifies a session token
func (m *TokenManager) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid session token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid session token claims")
	}
	return claims, nil
}

// Duration returns the configured session lifetime
func (m *TokenManager) Duration() time.Duration {
	return m.duration
}
