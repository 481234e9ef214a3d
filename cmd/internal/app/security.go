package app

import (
	"errors"

	"pazar/cmd/security/token"
)

// ValidateSecurityConfig loads and validates token signing configuration.
//
// Fail-fast is the point: starting up with a missing or weak signing secret
// and quietly serving unverifiable sessions is worse than refusing to boot.
func ValidateSecurityConfig() (token.Config, error) {
	cfg, err := token.LoadConfigFromEnv()
	if err != nil {
		switch {
		case errors.Is(err, token.ErrSecretMissing):
			return token.Config{}, errors.New("security policy: PAZAR_JWT_SECRET (or PAZAR_JWT_ACCESS_SECRET and PAZAR_JWT_REFRESH_SECRET) must be set")
		case errors.Is(err, token.ErrSecretTooShort):
			return token.Config{}, errors.New("security policy: JWT signing secrets must be at least 32 bytes")
		default:
			return token.Config{}, err
		}
	}
	return cfg, nil
}
