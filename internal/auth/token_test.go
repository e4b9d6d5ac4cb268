package auth

import (
	"testing"
	"time"

	"github.com/helpdesk-br/helpdesk-service/internal/domain"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("segredo-de-teste", 60)

	tokenStr, expiresAt, err := tm.GenerateToken("user-1", domain.RoleSupport)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if time.Until(expiresAt) <= 0 {
		t.Errorf("token already expired at issue time")
	}

	claims, err := tm.ParseToken(tokenStr)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if claims.UserID != "user-1" {
		t.Errorf("user id = %q, want user-1", claims.UserID)
	}
	if claims.Role != domain.RoleSupport {
		t.Errorf("role = %q, want support", claims.Role)
	}
}

func TestTokenWrongSecretRejected(t *testing.T) {
	tokenStr, _, err := NewTokenManager("segredo-a", 60).GenerateToken("user-1", domain.RoleUser)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if _, err := NewTokenManager("segredo-b", 60).ParseToken(tokenStr); err == nil {
		t.Fatalf("token signed with another secret must be rejected")
	}
}

func TestTokenGarbageRejected(t *testing.T) {
	tm := NewTokenManager("segredo", 60)
	if _, err := tm.ParseToken("nao-e-um-jwt"); err == nil {
		t.Fatalf("garbage token must be rejected")
	}
}
