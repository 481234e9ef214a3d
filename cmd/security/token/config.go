package token

import (
	"os"
	"strings"
	"time"
)

// minSecretBytes is the floor for HS256 signing secrets. We measure bytes
// (not runes) because the secret is used as raw key material.
const minSecretBytes = 32

// Config controls signing secrets and lifetimes for both token classes.
type Config struct {
	// Issuer is the value set in the "iss" claim.
	Issuer string

	// AccessSecret signs access tokens; RefreshSecret signs refresh tokens.
	// When PAZAR_JWT_REFRESH_SECRET is not configured, both fall back to the
	// shared PAZAR_JWT_SECRET. The fallback is a deployment convenience, not
	// a recommendation.
	AccessSecret  []byte
	RefreshSecret []byte

	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// DefaultConfig returns lifetimes only; secrets always come from the
// environment.
func DefaultConfig() Config {
	return Config{
		Issuer:     "pazar",
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 14 * 24 * time.Hour,
	}
}

// LoadConfigFromEnv loads token configuration.
//
// Secrets (at least one required):
//   - PAZAR_JWT_ACCESS_SECRET
//   - PAZAR_JWT_REFRESH_SECRET
//   - PAZAR_JWT_SECRET (shared fallback for whichever dedicated secret is absent)
//
// Optional:
//   - PAZAR_JWT_ISSUER
//   - PAZAR_JWT_ACCESS_TTL  (Go duration)
//   - PAZAR_JWT_REFRESH_TTL (Go duration)
//
// Returns ErrSecretMissing/ErrSecretTooShort on unusable secrets; short
// secrets fail startup instead of silently weakening signing.
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	if v := strings.TrimSpace(os.Getenv("PAZAR_JWT_ISSUER")); v != "" {
		cfg.Issuer = v
	}
	if v := strings.TrimSpace(os.Getenv("PAZAR_JWT_ACCESS_TTL")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, ErrInvalidToken
		}
		cfg.AccessTTL = d
	}
	if v := strings.TrimSpace(os.Getenv("PAZAR_JWT_REFRESH_TTL")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, ErrInvalidToken
		}
		cfg.RefreshTTL = d
	}

	shared := strings.TrimSpace(os.Getenv("PAZAR_JWT_SECRET"))
	access := strings.TrimSpace(os.Getenv("PAZAR_JWT_ACCESS_SECRET"))
	refresh := strings.TrimSpace(os.Getenv("PAZAR_JWT_REFRESH_SECRET"))

	if access == "" {
		access = shared
	}
	if refresh == "" {
		refresh = shared
	}

	for _, s := range []string{access, refresh} {
		if s == "" {
			return Config{}, ErrSecretMissing
		}
		if len(s) < minSecretBytes {
			return Config{}, ErrSecretTooShort
		}
	}

	cfg.AccessSecret = []byte(access)
	cfg.RefreshSecret = []byte(refresh)
	return cfg, nil
}
