package config // package config loads application configuration from environment variables

import (
	"os" // os provides access to environment variables
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  The types reflect how the values are used in
// the application: strings for identifiers and secrets, ints for durations and costs.
type Config struct {
	Env            string // application environment (e.g. "dev", "prod")
	Port           string // HTTP port to listen on
	DBUser         string // database username
	DBPass         string // database password (optional)
	DBHost         string // database host address
	DBPort         string // database port number
	DBName         string // database name
	JWTSecret      string // secret used to sign JWTs
	JWTAlgorithm   string // HMAC algorithm name (HS256, HS384, HS512)
	AccessTTLMin   int    // access token time‑to‑live in minutes
	RefreshTTLDays int    // refresh token time‑to‑live in days
	EmailTTLDays   int    // email verification / password reset token time-to-live in days
	BcryptCost     int    // bcrypt cost for password hashing
	PublicBaseURL  string // base URL placed into links inside outgoing mail
	MigrateOnStart bool   // run embedded goose migrations before serving
}

// Load reads configuration values from environment variables and returns a
// Config.  A .env file in the working directory is read first when present;
// variables already set in the environment win.  Required variables are
// enforced by must() and missing values cause the program to exit with a
// fatal log message.
func Load() Config {
	_ = godotenv.Load()
	return Config{
		Env:            must("APP_ENV"),  // environment (dev/test/prod)
		Port:           must("APP_PORT"), // port to bind the HTTP server
		DBUser:         must("DB_USER"),
		DBPass:         os.Getenv("DB_PASS"), // empty allowed
		DBHost:         must("DB_HOST"),
		DBPort:         must("DB_PORT"),
		DBName:         must("DB_NAME"),
		JWTSecret:      must("JWT_SECRET"),
		JWTAlgorithm:   envStr("JWT_ALGORITHM", "HS256"),
		AccessTTLMin:   envInt("ACCESS_TOKEN_TTL_MIN", 15),
		RefreshTTLDays: envInt("REFRESH_TOKEN_TTL_DAYS", 7),
		EmailTTLDays:   envInt("EMAIL_TOKEN_TTL_DAYS", 7),
		BcryptCost:     envInt("BCRYPT_COST", 10),
		PublicBaseURL:  envStr("PUBLIC_BASE_URL", "http://localhost:8080"),
		MigrateOnStart: envBool("DB_MIGRATE_ON_START", true),
	}
}

// AccessTTL returns the access token lifetime as a duration.
func (c Config) AccessTTL() time.Duration { return time.Duration(c.AccessTTLMin) * time.Minute }

// RefreshTTL returns the refresh token lifetime as a duration.
func (c Config) RefreshTTL() time.Duration {
	return time.Duration(c.RefreshTTLDays) * 24 * time.Hour
}

// EmailTTL returns the lifetime of tokens sent by mail.
func (c Config) EmailTTL() time.Duration { return time.Duration(c.EmailTTLDays) * 24 * time.Hour }
