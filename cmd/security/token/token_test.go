package token

import (
	"strings"
	"testing"
	"time"

	"pazar/cmd/identity"
)

func testIssuer(t *testing.T) *Issuer {
	t.Helper()

	cfg := DefaultConfig()
	cfg.AccessSecret = []byte("access-secret-0123456789-0123456789")
	cfg.RefreshSecret = []byte("refresh-secret-0123456789-0123456789")

	iss, err := NewIssuer(cfg)
	if err != nil {
		t.Fatalf("NewIssuer: %v", err)
	}
	return iss
}

func TestIssueAndVerifyAccess(t *testing.T) {
	iss := testIssuer(t)
	now := time.Now().UTC()

	tok, exp, err := iss.IssueAccess("01JAAAAAAAAAAAAAAAAAAAAAAA", []identity.Role{identity.RoleSeller}, now)
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	if !exp.Equal(now.Add(15 * time.Minute)) {
		t.Fatalf("unexpected exp: %v", exp)
	}

	claims, err := iss.VerifyAccess(tok, now.Add(time.Second))
	if err != nil {
		t.Fatalf("VerifyAccess: %v", err)
	}
	if claims.Subject != "01JAAAAAAAAAAAAAAAAAAAAAAA" {
		t.Fatalf("unexpected subject: %q", claims.Subject)
	}
	if len(claims.Roles) != 1 || claims.Roles[0] != identity.RoleSeller {
		t.Fatalf("unexpected roles: %v", claims.Roles)
	}
	if claims.ID != "" {
		t.Fatalf("access tokens must not carry a jti")
	}
}

func TestIssueRefresh_FreshJTIPerIssuance(t *testing.T) {
	iss := testIssuer(t)
	now := time.Now().UTC()

	tok1, jti1, _, err := iss.IssueRefresh("u1", []identity.Role{identity.RoleClient}, now)
	if err != nil {
		t.Fatalf("IssueRefresh: %v", err)
	}
	tok2, jti2, _, err := iss.IssueRefresh("u1", []identity.Role{identity.RoleClient}, now)
	if err != nil {
		t.Fatalf("IssueRefresh: %v", err)
	}

	if jti1 == "" || jti1 == jti2 {
		t.Fatalf("expected distinct fresh jtis, got %q and %q", jti1, jti2)
	}

	claims, err := iss.VerifyRefresh(tok1, now)
	if err != nil {
		t.Fatalf("VerifyRefresh: %v", err)
	}
	if claims.ID != jti1 {
		t.Fatalf("signed jti %q disagrees with returned jti %q", claims.ID, jti1)
	}
	if _, err := iss.VerifyRefresh(tok2, now); err != nil {
		t.Fatalf("VerifyRefresh second token: %v", err)
	}
}

func TestVerify_ExpiredToken(t *testing.T) {
	iss := testIssuer(t)
	now := time.Now().UTC()

	tok, _, err := iss.IssueAccess("u1", nil, now)
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}

	if _, err := iss.VerifyAccess(tok, now.Add(16*time.Minute)); err != ErrExpiredToken {
		t.Fatalf("expected ErrExpiredToken, got %v", err)
	}
}

func TestVerify_CrossClassSecretsRejected(t *testing.T) {
	iss := testIssuer(t)
	now := time.Now().UTC()

	access, _, err := iss.IssueAccess("u1", nil, now)
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	refresh, _, _, err := iss.IssueRefresh("u1", nil, now)
	if err != nil {
		t.Fatalf("IssueRefresh: %v", err)
	}

	if _, err := iss.VerifyRefresh(access, now); err != ErrInvalidToken {
		t.Fatalf("access token must not verify as refresh, got %v", err)
	}
	if _, err := iss.VerifyAccess(refresh, now); err != ErrInvalidToken {
		t.Fatalf("refresh token must not verify as access, got %v", err)
	}
}

func TestVerify_TamperedToken(t *testing.T) {
	iss := testIssuer(t)
	now := time.Now().UTC()

	tok, _, err := iss.IssueAccess("u1", nil, now)
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}

	parts := strings.Split(tok, ".")
	tampered := parts[0] + "." + parts[1] + "." + strings.Repeat("A", len(parts[2]))

	if _, err := iss.VerifyAccess(tampered, now); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestNewIssuer_SecretPolicy(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AccessSecret = []byte("short")
	cfg.RefreshSecret = []byte("refresh-secret-0123456789-0123456789")

	if _, err := NewIssuer(cfg); err != ErrSecretTooShort {
		t.Fatalf("expected ErrSecretTooShort, got %v", err)
	}

	cfg.AccessSecret = nil
	if _, err := NewIssuer(cfg); err != ErrSecretMissing {
		t.Fatalf("expected ErrSecretMissing, got %v", err)
	}
}

func TestLoadConfigFromEnv_SharedSecretFallback(t *testing.T) {
	t.Setenv("PAZAR_JWT_SECRET", "shared-secret-0123456789-0123456789")
	t.Setenv("PAZAR_JWT_ACCESS_SECRET", "")
	t.Setenv("PAZAR_JWT_REFRESH_SECRET", "")

	cfg, err := LoadConfigFromEnv()
	if err != nil {
		t.Fatalf("LoadConfigFromEnv: %v", err)
	}
	if string(cfg.AccessSecret) != "shared-secret-0123456789-0123456789" {
		t.Fatalf("access secret fallback not applied")
	}
	if string(cfg.RefreshSecret) != "shared-secret-0123456789-0123456789" {
		t.Fatalf("refresh secret fallback not applied")
	}
}

func TestLoadConfigFromEnv_MissingSecrets(t *testing.T) {
	t.Setenv("PAZAR_JWT_SECRET", "")
	t.Setenv("PAZAR_JWT_ACCESS_SECRET", "")
	t.Setenv("PAZAR_JWT_REFRESH_SECRET", "")

	if _, err := LoadConfigFromEnv(); err != ErrSecretMissing {
		t.Fatalf("expected ErrSecretMissing, got %v", err)
	}
}
