package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/workorbit/workorbit/internal/domain"
)

func TestGenerateAndValidateToken(t *testing.T) {
	tm := NewTokenManager("test-secret", "workorbit", time.Hour)

	token, err := tm.GenerateToken(&domain.User{
		ID:             "user-1",
		Email:          "hr@example.com",
		Role:           domain.RoleHR,
		OrganizationID: "org-1",
		HRCode:         "HR001-ORG001",
	})
	if err != nil {
		t.Fatalf("generate token failed: %v", err)
	}

	claims, err := tm.ValidateToken(token)
	if err != nil {
		t.Fatalf("validate token failed: %v", err)
	}
	if claims.UserID != "user-1" || claims.Role != "hr" || claims.HRCode != "HR001-ORG001" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if claims.Issuer != "workorbit" {
		t.Fatalf("expected issuer workorbit, got %s", claims.Issuer)
	}
}

func TestValidateTokenWrongSecret(t *testing.T) {
	tm := NewTokenManager("test-secret", "workorbit", time.Hour)
	other := NewTokenManager("other-secret", "workorbit", time.Hour)

	token, err := tm.GenerateToken(&domain.User{ID: "user-1", Role: domain.RoleAdmin})
	if err != nil {
		t.Fatalf("generate token failed: %v", err)
	}
	if _, err := other.ValidateToken(token); err == nil {
		t.Fatalf("expected validation to fail across secrets")
	}
}

func TestValidateExpiredToken(t *testing.T) {
	tm := NewTokenManager("test-secret", "workorbit", time.Hour)

	claims := Claims{
		UserID: "user-1",
		Role:   "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
			Issuer:    "workorbit",
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	if _, err := tm.ValidateToken(token); err == nil {
		t.Fatalf("expected expired token to be rejected")
	}
}

func TestGenerateTokenRequiresUser(t *testing.T) {
	tm := NewTokenManager("test-secret", "workorbit", time.Hour)
	if _, err := tm.GenerateToken(nil); err == nil {
		t.Fatalf("expected error for nil user")
	}
	if _, err := tm.GenerateToken(&domain.User{}); err == nil {
		t.Fatalf("expected error for empty user id")
	}
}

func TestExtractToken(t *testing.T) {
	if _, err := ExtractToken("Token abc"); err == nil {
		t.Fatalf("expected error for non-bearer header")
	}
	if _, err := ExtractToken("Bearer"); err == nil {
		t.Fatalf("expected error for missing token")
	}
	token, err := ExtractToken("Bearer abc.def.ghi")
	if err != nil || token != "abc.def.ghi" {
		t.Fatalf("expected token extraction, got %q err=%v", token, err)
	}
}
