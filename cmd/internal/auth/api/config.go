package authapi

import (
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config controls auth API behavior and cookie security defaults.
type Config struct {
	AccessCookieName  string
	RefreshCookieName string
	CSRFCookieName    string
	CSRFHeaderName    string
	CSRFTTL           time.Duration

	CookieDomain   string
	CookiePath     string
	CookieSecure   bool
	CookieSameSite http.SameSite

	TrustProxy   bool
	MaxBodyBytes int64

	// Login throttling. The IP window caps failures per source address;
	// the lockout tiers apply progressively per target account.
	LoginIPMax    int
	LoginIPWindow time.Duration

	LockoutShortThreshold  int
	LockoutShortDuration   time.Duration
	LockoutLongThreshold   int
	LockoutLongDuration    time.Duration
	LockoutSevereThreshold int
	LockoutSevereDuration  time.Duration
}

// LoadConfigFromEnv loads auth API config from environment variables with
// safe defaults. Cookies default to Secure + SameSite=None (cross-site SPA
// frontends); disabling Secure for local dev downgrades SameSite to Lax,
// since browsers reject SameSite=None without Secure.
func LoadConfigFromEnv() Config {
	cfg := Config{
		AccessCookieName:  "access_token",
		RefreshCookieName: "refresh_token",
		CSRFCookieName:    "csrf_token",
		CSRFHeaderName:    "X-CSRF-Token",
		CSRFTTL:           envDuration("PAZAR_AUTH_CSRF_TTL", time.Hour),

		CookieDomain:   strings.TrimSpace(os.Getenv("PAZAR_AUTH_COOKIE_DOMAIN")),
		CookiePath:     "/",
		CookieSecure:   envBool("PAZAR_AUTH_COOKIE_SECURE", true),
		CookieSameSite: http.SameSiteNoneMode,

		TrustProxy:   envBool("PAZAR_AUTH_TRUST_PROXY", false),
		MaxBodyBytes: envInt64("PAZAR_AUTH_MAX_BODY_BYTES", 1<<20), // 1 MiB

		LoginIPMax:    int(envInt64("PAZAR_AUTH_LOGIN_IP_MAX", 20)),
		LoginIPWindow: envDuration("PAZAR_AUTH_LOGIN_IP_WINDOW", 5*time.Minute),

		LockoutShortThreshold:  int(envInt64("PAZAR_AUTH_LOCKOUT_SHORT_THRESHOLD", 5)),
		LockoutShortDuration:   envDuration("PAZAR_AUTH_LOCKOUT_SHORT_DURATION", 5*time.Minute),
		LockoutLongThreshold:   int(envInt64("PAZAR_AUTH_LOCKOUT_LONG_THRESHOLD", 10)),
		LockoutLongDuration:    envDuration("PAZAR_AUTH_LOCKOUT_LONG_DURATION", 30*time.Minute),
		LockoutSevereThreshold: int(envInt64("PAZAR_AUTH_LOCKOUT_SEVERE_THRESHOLD", 20)),
		LockoutSevereDuration:  envDuration("PAZAR_AUTH_LOCKOUT_SEVERE_DURATION", 2*time.Hour),
	}

	if !cfg.CookieSecure {
		cfg.CookieSameSite = http.SameSiteLaxMode
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 1 << 20
	}
	if cfg.CSRFTTL <= 0 {
		cfg.CSRFTTL = time.Hour
	}

	return cfg
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envInt64(key string, def int64) int64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func envDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
