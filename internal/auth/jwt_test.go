package auth

import (
	"testing"
	"time"
)

func TestIssueAndValidateSeatToken(t *testing.T) {
	mgr := NewJWTManager("test-secret-key-123")
	token, err := mgr.IssueSeatToken("game-42", "RED")
	if err != nil {
		t.Fatalf("issue seat token: %v", err)
	}
	if token == "" {
		t.Fatal("expected non-empty token")
	}

	claims, err := mgr.ValidateToken(token)
	if err != nil {
		t.Fatalf("validate token: %v", err)
	}
	if claims.GameID != "game-42" || claims.Tribe != "RED" {
		t.Errorf("expected game-42/RED, got %s/%s", claims.GameID, claims.Tribe)
	}
	if claims.Subject != "game-42/RED" {
		t.Errorf("expected subject=game-42/RED, got %s", claims.Subject)
	}
}

func TestValidateTokenWrongSecret(t *testing.T) {
	mgr1 := NewJWTManager("secret-one")
	mgr2 := NewJWTManager("secret-two")

	token, err := mgr1.IssueSeatToken("g", "BLUE")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	_, err = mgr2.ValidateToken(token)
	if err == nil {
		t.Error("expected validation to fail with wrong secret")
	}
}

func TestValidateTokenGarbage(t *testing.T) {
	mgr := NewJWTManager("test-secret")
	_, err := mgr.ValidateToken("not-a-jwt")
	if err == nil {
		t.Error("expected error for garbage token")
	}
	_, err = mgr.ValidateToken("")
	if err == nil {
		t.Error("expected error for empty token")
	}
}

func TestExpiredToken(t *testing.T) {
	mgr := &JWTManager{
		secret:     []byte("test-secret"),
		seatExpiry: -1 * time.Second,
	}
	token, err := mgr.IssueSeatToken("g", "RED")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	_, err = mgr.ValidateToken(token)
	if err == nil {
		t.Error("expected error for expired token")
	}
}

func TestSeatTokenWithoutTribeRejected(t *testing.T) {
	mgr := NewJWTManager("test-secret")
	token, err := mgr.IssueSeatToken("g", "")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := mgr.ValidateToken(token); err != ErrInvalidToken {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestDifferentSeatsGetDifferentTokens(t *testing.T) {
	mgr := NewJWTManager("test-secret")
	t1, _ := mgr.IssueSeatToken("g", "GREEN")
	t2, _ := mgr.IssueSeatToken("g", "YELLOW")
	if t1 == t2 {
		t.Error("different seats should get different tokens")
	}
}
