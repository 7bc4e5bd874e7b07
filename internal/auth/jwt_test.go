package auth

import (
	"context"
	"testing"
	"time"
)

func testManager() *Manager {
	return &Manager{
		Secret:     []byte("test-secret"),
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 24 * time.Hour,
		Issuer:     "ceylonstay",
	}
}

func TestAccessTokenRoundTrip(t *testing.T) {
	m := testManager()
	token, err := m.NewAccessToken(RoleAdmin)
	if err != nil {
		t.Fatalf("NewAccessToken error: %v", err)
	}

	claims, err := m.Parse(token)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if claims.Role != RoleAdmin {
		t.Fatalf("unexpected role: %s", claims.Role)
	}
	if claims.Issuer != "ceylonstay" {
		t.Fatalf("unexpected issuer: %s", claims.Issuer)
	}
}

func TestSignInAnonymously(t *testing.T) {
	m := testManager()
	token, err := m.SignInAnonymously(context.Background())
	if err != nil {
		t.Fatalf("SignInAnonymously error: %v", err)
	}

	claims, err := m.Parse(token)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if claims.Role != RoleAnonymous {
		t.Fatalf("unexpected role: %s", claims.Role)
	}
}

func TestParseRejectsForeignSignature(t *testing.T) {
	token, err := testManager().NewAccessToken(RoleAdmin)
	if err != nil {
		t.Fatalf("NewAccessToken error: %v", err)
	}

	other := testManager()
	other.Secret = []byte("different-secret")
	if _, err := other.Parse(token); err == nil {
		t.Fatalf("expected signature verification to fail")
	}
}

func TestTokensRequireSecret(t *testing.T) {
	m := &Manager{AccessTTL: time.Minute}
	if _, err := m.NewAccessToken(RoleAdmin); err == nil {
		t.Fatalf("expected error without a secret")
	}
}

func TestPasscodeHashing(t *testing.T) {
	hash, err := HashPasscode("open-sesame")
	if err != nil {
		t.Fatalf("HashPasscode error: %v", err)
	}
	if err := ComparePasscode(hash, "open-sesame"); err != nil {
		t.Fatalf("ComparePasscode error: %v", err)
	}
	if err := ComparePasscode(hash, "wrong"); err == nil {
		t.Fatalf("expected mismatch")
	}
}
