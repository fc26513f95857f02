package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// parseEnv overlays configuration from environment variables. A .env file in
// the working directory is loaded first when present; real environment
// variables win over .env values (godotenv.Load never overrides).
func parseEnv(config *Config) {
	_ = godotenv.Load()

	envString(&config.EndpointAddrHTTP, "HTTP_ADDR")
	envString(&config.DatabaseDSN, "DATABASE_DSN")
	envString(&config.AllowedOrigins, "ALLOWED_ORIGINS")

	envString(&config.SessionJWTKey, "SESSION_JWT_KEY")
	envDuration(&config.SessionJWTTTL, "SESSION_JWT_TTL")
	envString(&config.SessionJWTIssuer, "SESSION_JWT_ISSUER")
	envString(&config.SessionJWTAudience, "SESSION_JWT_AUDIENCE")

	envUint32(&config.PasswordMemoryKiB, "PASSWORD_MEMORY_KIB")
	envUint32(&config.PasswordTime, "PASSWORD_TIME")
	envUint8(&config.PasswordParallelism, "PASSWORD_PARALLELISM")

	envDuration(&config.InactivityTimeout, "SESSION_INACTIVITY_TIMEOUT")
	envDuration(&config.ActivityCheckInterval, "SESSION_ACTIVITY_CHECK_INTERVAL")
	envDuration(&config.FreshnessWindow, "SESSION_FRESHNESS_WINDOW")
	envFloat(&config.CleanupProbability, "SESSION_CLEANUP_PROBABILITY")

	envString(&config.SessionCookieName, "SESSION_COOKIE_NAME")
	envString(&config.SessionJWTCookieName, "SESSION_JWT_COOKIE_NAME")
	envDuration(&config.SessionCookieMaxAge, "SESSION_COOKIE_MAX_AGE")
	envBool(&config.SecureCookies, "SECURE_COOKIES")
}

func envString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func envDuration(dst *time.Duration, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}

func envUint32(dst *uint32, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.ParseUint(v, 10, 32); err == nil {
			*dst = uint32(n)
		}
	}
}

func envUint8(dst *uint8, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.ParseUint(v, 10, 8); err == nil {
			*dst = uint8(n)
		}
	}
}

func envFloat(dst *float64, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func envBool(dst *bool, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}
