package security

import (
	"testing"
	"time"
)

func TestTokenRoundtrip(t *testing.T) {
	m, err := NewTokenManager("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenManager() error = %v", err)
	}

	signed, err := m.Issue(7, 100, RoleStudent)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	claims, err := m.Validate(signed)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if claims.UserID != 7 || claims.ClassroomID != 100 || claims.Role != RoleStudent {
		t.Errorf("claims = %+v, want uid=7 cid=100 role=student", claims)
	}
	if claims.ID == "" {
		t.Error("token should carry a unique id")
	}
}

func TestTokenWrongSecret(t *testing.T) {
	issuer, _ := NewTokenManager("secret-a", time.Hour)
	validator, _ := NewTokenManager("secret-b", time.Hour)

	signed, err := issuer.Issue(7, 100, RoleTeacher)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if _, err := validator.Validate(signed); err == nil {
		t.Error("token signed with a different secret should not validate")
	}
}

func TestTokenExpiry(t *testing.T) {
	m, _ := NewTokenManager("test-secret", time.Millisecond)

	signed, err := m.Issue(7, 100, RoleStudent)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	time.Sleep(10 * time.Millisecond)
	if _, err := m.Validate(signed); err == nil {
		t.Error("expired token should not validate")
	}
}

func TestTokenGarbageInput(t *testing.T) {
	m, _ := NewTokenManager("test-secret", time.Hour)
	for _, input := range []string{"", "not-a-token", "a.b.c"} {
		if _, err := m.Validate(input); err == nil {
			t.Errorf("Validate(%q) should fail", input)
		}
	}
}

func TestNewTokenManagerConfig(t *testing.T) {
	if _, err := NewTokenManager("", time.Hour); err == nil {
		t.Error("empty secret should be rejected")
	}
	m, err := NewTokenManager("test-secret", 0)
	if err != nil {
		t.Fatalf("NewTokenManager() error = %v", err)
	}
	if m.Duration() != 24*time.Hour {
		t.Errorf("Duration() = %v, want the 24h default", m.Duration())
	}
}
