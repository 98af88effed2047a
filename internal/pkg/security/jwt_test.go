package security

import (
	"strings"
	"testing"
)

func TestGenerateAndValidateToken(t *testing.T) {
	token, err := GenerateToken(42, "alice@example.com", "Alice", []string{"CUSTOMER"})
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	claims, err := ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}
	if claims.UserID != 42 {
		t.Errorf("Expected user ID 42, got %d", claims.UserID)
	}
	if claims.Email != "alice@example.com" {
		t.Errorf("Expected email alice@example.com, got %s", claims.Email)
	}
	if claims.Nickname != "Alice" {
		t.Errorf("Expected nickname Alice, got %s", claims.Nickname)
	}
	if len(claims.Roles) != 1 || claims.Roles[0] != "CUSTOMER" {
		t.Errorf("Expected roles [CUSTOMER], got %v", claims.Roles)
	}
}

// 被篡改的 Token 必须校验失败
func TestValidateTamperedToken(t *testing.T) {
	token, err := GenerateToken(42, "alice@example.com", "Alice", nil)
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	parts := strings.Split(token, ".")
	tampered := parts[0] + "." + parts[1] + "." + "AAAA" + parts[2][4:]
	if _, err := ValidateToken(tampered); err == nil {
		t.Error("Expected tampered token to fail validation")
	}

	if _, err := ValidateToken("not-a-token"); err == nil {
		t.Error("Expected malformed token to fail validation")
	}
}

func TestExtractSignature(t *testing.T) {
	token, err := GenerateToken(1, "a@b.c", "a", nil)
	if err != nil {
		t.Fatal(err)
	}

	sig, err := ExtractSignature(token)
	if err != nil {
		t.Fatalf("ExtractSignature failed: %v", err)
	}
	if sig != strings.Split(token, ".")[2] {
		t.Error("Expected signature to equal the third token segment")
	}

	if _, err := ExtractSignature("only.two"); err == nil {
		t.Error("Expected error for malformed token")
	}
}
