package app

import "time"

// Config contains all runtime configuration loaded from environment variables.
type Config struct {
	HTTPAddr  string
	LogLevel  string
	LogPretty bool

	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int

	DatabaseURL string
	DBMaxConns  int32
	DBMinConns  int32

	// MigrateOnStart runs the embedded goose migrations before serving.
	MigrateOnStart bool

	CORSAllowedOrigins   []string
	CORSAllowCredentials bool
	CORSMaxAgeSeconds    int

	// If true, /readyz returns 503 while the database is unreachable.
	ReadinessRequireDB bool
}

// LoadConfig loads Config from environment variables with defaults.
func LoadConfig() Config {
	return Config{
		HTTPAddr:  EnvString("PAZAR_HTTP_ADDR", "0.0.0.0:8080"),
		LogLevel:  EnvString("PAZAR_LOG_LEVEL", "info"),
		LogPretty: EnvBool("PAZAR_LOG_PRETTY", false),

		ReadHeaderTimeout: EnvDuration("PAZAR_HTTP_READ_HEADER_TIMEOUT", 5*time.Second),
		ReadTimeout:       EnvDuration("PAZAR_HTTP_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:      EnvDuration("PAZAR_HTTP_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:       EnvDuration("PAZAR_HTTP_IDLE_TIMEOUT", 60*time.Second),

		MaxHeaderBytes: EnvInt("PAZAR_HTTP_MAX_HEADER_BYTES", 1<<20),

		DatabaseURL: EnvString("PAZAR_DATABASE_URL", ""),
		DBMaxConns:  EnvInt32("PAZAR_DB_MAX_CONNS", 10),
		DBMinConns:  EnvInt32("PAZAR_DB_MIN_CONNS", 0),

		MigrateOnStart: EnvBool("PAZAR_DB_MIGRATE", true),

		CORSAllowedOrigins:   EnvStringSlice("PAZAR_CORS_ALLOWED_ORIGINS", nil),
		CORSAllowCredentials: EnvBool("PAZAR_CORS_ALLOW_CREDENTIALS", true),
		CORSMaxAgeSeconds:    EnvInt("PAZAR_CORS_MAX_AGE_SECONDS", 600),

		ReadinessRequireDB: EnvBool("PAZAR_READINESS_REQUIRE_DB", true),
	}
}
