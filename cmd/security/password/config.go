package password

import (
	"os"
	"strconv"
	"strings"
)

// Argon2idParams controls Argon2id hashing cost.
// MemoryKiB is in KiB as required by argon2.IDKey.
type Argon2idParams struct {
	MemoryKiB   uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// Policy bounds accepted input length. Characters are counted as runes.
type Policy struct {
	MinLength int
	MaxLength int
}

// Config is the single configuration surface for this package.
type Config struct {
	Params Argon2idParams
	Policy Policy
}

// DefaultParams are the interactive-login Argon2id costs.
func DefaultParams() Argon2idParams {
	return Argon2idParams{
		MemoryKiB:   64 * 1024, // 64 MiB
		Iterations:  3,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	}
}

// DefaultConfig returns the preset for user passwords.
func DefaultConfig() Config {
	return Config{
		Params: DefaultParams(),
		Policy: Policy{MinLength: 6, MaxLength: 128},
	}
}

// RefreshHashConfig returns the preset for hashing refresh tokens at rest.
//
// The input is a signed token with full entropy, not a human secret, so the
// memory cost is lower and the length policy admits JWT-sized strings.
// Keep this preset separate from the password preset; the two must never
// share tuning.
func RefreshHashConfig() Config {
	return Config{
		Params: Argon2idParams{
			MemoryKiB:   19 * 1024, // 19 MiB
			Iterations:  2,
			Parallelism: 1,
			SaltLength:  16,
			KeyLength:   32,
		},
		Policy: Policy{MinLength: 16, MaxLength: 4096},
	}
}

// LoadConfigFromEnv returns the password preset with optional cost
// overrides:
//
//   - PAZAR_PWHASH_MEMORY_KIB
//   - PAZAR_PWHASH_ITERATIONS
//   - PAZAR_PWHASH_PARALLELISM
//   - PAZAR_PWHASH_MIN_LENGTH
//
// Invalid or out-of-range values fall back to the default. Tuning is
// clamped so a typo cannot silently disable the memory-hardness.
func LoadConfigFromEnv() Config {
	cfg := DefaultConfig()

	if v := envUint32("PAZAR_PWHASH_MEMORY_KIB"); v >= 8*1024 && v <= 1024*1024 {
		cfg.Params.MemoryKiB = v
	}
	if v := envUint32("PAZAR_PWHASH_ITERATIONS"); v >= 1 && v <= 16 {
		cfg.Params.Iterations = v
	}
	if v := envUint32("PAZAR_PWHASH_PARALLELISM"); v >= 1 && v <= 8 {
		cfg.Params.Parallelism = uint8(v)
	}
	if v := envUint32("PAZAR_PWHASH_MIN_LENGTH"); v >= 6 && v <= 64 {
		cfg.Policy.MinLength = int(v)
	}

	return cfg
}

func envUint32(key string) uint32 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0
	}
	n, err := strconv.ParseUint(v, 10, 32)
	if err != nil {
		return 0
	}
	return uint32(n)
}
