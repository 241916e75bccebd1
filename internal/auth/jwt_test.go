package auth

import (
	"testing"

	"github.com/google/uuid"

	"github.com/AlpianPPLG/RestosSystem/internal/enum"
)

const testSecret = "test-secret"

func TestGenerateAndValidateToken(t *testing.T) {
	userID := uuid.New()

	tokenStr, err := GenerateToken(testSecret, userID, "Budi", string(enum.UserRoleCashier))
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	claims, err := ValidateToken(testSecret, tokenStr)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.UserID != userID {
		t.Errorf("UserID = %v, want %v", claims.UserID, userID)
	}
	if claims.Name != "Budi" {
		t.Errorf("Name = %q, want %q", claims.Name, "Budi")
	}
	if claims.Role != string(enum.UserRoleCashier) {
		t.Errorf("Role = %q, want %q", claims.Role, enum.UserRoleCashier)
	}
}

func TestValidateToken_WrongSecret(t *testing.T) {
	tokenStr, err := GenerateToken(testSecret, uuid.New(), "Sari", string(enum.UserRoleWaiter))
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	if _, err := ValidateToken("other-secret", tokenStr); err == nil {
		t.Error("expected error for wrong secret, got nil")
	}
}

func TestValidateToken_Garbage(t *testing.T) {
	if _, err := ValidateToken(testSecret, "not.a.token"); err == nil {
		t.Error("expected error for malformed token, got nil")
	}
}

func TestRefreshTokenRoundTrip(t *testing.T) {
	userID := uuid.New()

	tokenStr, err := GenerateRefreshToken(testSecret, userID)
	if err != nil {
		t.Fatalf("GenerateRefreshToken: %v", err)
	}

	got, err := ValidateRefreshToken(testSecret, tokenStr)
	if err != nil {
		t.Fatalf("ValidateRefreshToken: %v", err)
	}
	if got != userID {
		t.Errorf("user id = %v, want %v", got, userID)
	}
}

func TestValidateRefreshToken_AccessTokenRejectedAsGarbage(t *testing.T) {
	if _, err := ValidateRefreshToken(testSecret, "bogus"); err == nil {
		t.Error("expected error, got nil")
	}
}
