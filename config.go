package accounts

import (
	"os"
	"strconv"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/joho/godotenv"
)

// Config holds process-wide settings, loaded once at startup.
type Config struct {
	Env  string
	Port string

	DatabaseURL  string
	DatabaseName string

	JWTSecret          string
	JWTExpiresIn       time.Duration
	JWTCookieExpiresIn int // days

	EmailHost     string
	EmailPort     int
	EmailUsername string
	EmailPassword string
	EmailFrom     string
}

// LoadConfig reads .env if present, then the environment. The signing
// secret has no default; starting without one is a configuration error.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Env:                getEnv("NODE_ENV", "development"),
		Port:               getEnv("PORT", "3000"),
		DatabaseURL:        getEnv("DATABASE_URL", "mongodb://localhost:27017"),
		DatabaseName:       getEnv("DATABASE_NAME", "accounts"),
		JWTSecret:          os.Getenv("JWT_SECRET"),
		JWTCookieExpiresIn: getEnvInt("JWT_COOKIE_EXPIRES_IN", 90),
		EmailHost:          getEnv("EMAIL_HOST", "localhost"),
		EmailPort:          getEnvInt("EMAIL_PORT", 587),
		EmailUsername:      os.Getenv("EMAIL_USERNAME"),
		EmailPassword:      os.Getenv("EMAIL_PASSWORD"),
		EmailFrom:          getEnv("EMAIL_FROM", "Accounts <hello@example.io>"),
	}

	if cfg.JWTSecret == "" {
		return nil, goerrors.New("JWT_SECRET environment variable is not defined", goerrors.CategoryOperation)
	}

	// Session tokens default to 90 days.
	expires := getEnv("JWT_EXPIRES_IN", "2160h")
	ttl, err := time.ParseDuration(expires)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryOperation, "invalid JWT_EXPIRES_IN duration").
			WithMetadata(map[string]any{"value": expires})
	}
	cfg.JWTExpiresIn = ttl

	return cfg, nil
}

// IsDevelopment reports whether the process runs in development mode,
// which surfaces full error detail to clients.
func (c *Config) IsDevelopment() bool {
	return c.Env != "production"
}

// CookieDuration converts the configured cookie lifetime in days.
func (c *Config) CookieDuration() time.Duration {
	return time.Duration(c.JWTCookieExpiresIn) * 24 * time.Hour
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
