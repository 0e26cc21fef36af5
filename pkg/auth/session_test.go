package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/platinummonkey/estatehub/pkg/apperrors"
	"github.com/platinummonkey/estatehub/pkg/rbac"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestCodec(t *testing.T) *SessionCodec {
	t.Helper()
	c, err := NewSessionCodec(testSecret, "estatehub-test", time.Hour)
	if err != nil {
		t.Fatalf("NewSessionCodec() error = %v", err)
	}
	return c
}

func TestNewSessionCodec_ShortSecret(t *testing.T) {
	if _, err := NewSessionCodec("short", "", 0); err == nil {
		t.Fatal("expected error for short secret")
	}
}

func TestSessionCodec_RoundTrip(t *testing.T) {
	c := newTestCodec(t)

	actor := Actor{ID: "user_1", TenantID: "tenant_a", Role: rbac.RoleAgent, IsActive: true}
	token, expiresAt, err := c.Issue(actor)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if time.Until(expiresAt) <= 0 {
		t.Errorf("expiresAt should be in the future, got %v", expiresAt)
	}

	got, err := c.Verify(token)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if got != actor {
		t.Errorf("Verify() = %+v, want %+v", got, actor)
	}
}

func TestSessionCodec_Expired(t *testing.T) {
	c := newTestCodec(t)
	c.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	token, _, err := c.Issue(Actor{ID: "u", TenantID: "t", Role: rbac.RoleUser, IsActive: true})
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	c.now = time.Now
	_, err = c.Verify(token)
	if !apperrors.IsAuthentication(err) {
		t.Fatalf("Verify() error = %v, want authentication error", err)
	}
	if !strings.Contains(err.Error(), "expired") {
		t.Errorf("error should mention expiry, got %q", err.Error())
	}
}

func TestSessionCodec_Rejects(t *testing.T) {
	c := newTestCodec(t)

	other, err := NewSessionCodec("ffffffffffffffffffffffffffffffff", "estatehub-test", time.Hour)
	if err != nil {
		t.Fatalf("NewSessionCodec() error = %v", err)
	}
	foreign, _, err := other.Issue(Actor{ID: "u", TenantID: "t", Role: rbac.RoleUser})
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	wrongIssuer, err := NewSessionCodec(testSecret, "someone-else", time.Hour)
	if err != nil {
		t.Fatalf("NewSessionCodec() error = %v", err)
	}
	wrongIss, _, err := wrongIssuer.Issue(Actor{ID: "u", TenantID: "t", Role: rbac.RoleUser})
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	noneToken := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{TenantID: "t"})
	unsigned, err := noneToken.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("SignedString() error = %v", err)
	}

	noTenant, _, err := c.Issue(Actor{ID: "u", Role: rbac.RoleUser})
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	tests := []struct {
		name  string
		token string
	}{
		{name: "empty", token: ""},
		{name: "garbage", token: "not-a-jwt"},
		{name: "wrong secret", token: foreign},
		{name: "wrong issuer", token: wrongIss},
		{name: "alg none", token: unsigned},
		{name: "missing tenant", token: noTenant},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Verify(tt.token)
			if !apperrors.IsAuthentication(err) {
				t.Errorf("Verify() error = %v, want authentication error", err)
			}
		})
	}
}

func TestPasswordHasher(t *testing.T) {
	h := NewPasswordHasher(4)

	hash, err := h.Hash("correct horse battery")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	if hash == "correct horse battery" {
		t.Fatal("hash must not equal the password")
	}

	if err := h.Verify(hash, "correct horse battery"); err != nil {
		t.Errorf("Verify() error = %v", err)
	}
	if err := h.Verify(hash, "wrong password"); err != ErrPasswordMismatch {
		t.Errorf("Verify() error = %v, want ErrPasswordMismatch", err)
	}
	if err := h.Verify("", "anything"); err != ErrPasswordMismatch {
		t.Errorf("Verify() with empty hash error = %v, want ErrPasswordMismatch", err)
	}
}

func TestPasswordHasher_TooShort(t *testing.T) {
	h := NewPasswordHasher(0)
	_, err := h.Hash("short")
	if !apperrors.IsValidation(err) {
		t.Errorf("Hash() error = %v, want validation error", err)
	}
}

func TestActor_HasRole(t *testing.T) {
	a := Actor{Role: rbac.RoleManager}
	if !a.HasRole(rbac.RoleAgent) {
		t.Error("manager should satisfy agent minimum")
	}
	if a.HasRole(rbac.RoleTenantAdmin) {
		t.Error("manager should not satisfy tenant admin minimum")
	}
	if a.Level() != 4 {
		t.Errorf("Level() = %d, want 4", a.Level())
	}
}
