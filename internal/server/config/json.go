package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dkazakov/seqtrack/internal/flagx"
	"github.com/dkazakov/seqtrack/internal/timex"
)

// JsonConfig mirrors Config for JSON unmarshalling; duration fields accept
// either "90s"-style strings or integer nanoseconds via timex.Duration.
// Zero values are skipped when copying so a sparse file only overrides what
// it names.
type JsonConfig struct {
	EndpointAddrHTTP string `json:"endpoint_addr_http"`
	DatabaseDSN      string `json:"database_dsn"`
	AllowedOrigins   string `json:"allowed_origins"`

	SessionJWTKey      string         `json:"session_jwt_key"`
	SessionJWTTTL      timex.Duration `json:"session_jwt_ttl"`
	SessionJWTIssuer   string         `json:"session_jwt_issuer"`
	SessionJWTAudience string         `json:"session_jwt_audience"`

	PasswordMemoryKiB   uint32 `json:"password_memory_kib"`
	PasswordTime        uint32 `json:"password_time"`
	PasswordParallelism uint8  `json:"password_parallelism"`

	InactivityTimeout     timex.Duration `json:"inactivity_timeout"`
	ActivityCheckInterval timex.Duration `json:"activity_check_interval"`
	FreshnessWindow       timex.Duration `json:"freshness_window"`
	CleanupProbability    float64        `json:"cleanup_probability"`

	SessionCookieName    string         `json:"session_cookie_name"`
	SessionJWTCookieName string         `json:"session_jwt_cookie_name"`
	SessionCookieMaxAge  timex.Duration `json:"session_cookie_max_age"`
	SecureCookies        *bool          `json:"secure_cookies"`
}

// parseJson loads configuration values from the JSON file named by the
// -c/-config flags, when present. Read or parse failures panic: a config
// file that was asked for but cannot be used is a startup error.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.AllowedOrigins, c.AllowedOrigins)
	setString(&config.SessionJWTKey, c.SessionJWTKey)
	setDuration(&config.SessionJWTTTL, c.SessionJWTTTL)
	setString(&config.SessionJWTIssuer, c.SessionJWTIssuer)
	setString(&config.SessionJWTAudience, c.SessionJWTAudience)
	if c.PasswordMemoryKiB > 0 {
		config.PasswordMemoryKiB = c.PasswordMemoryKiB
	}
	if c.PasswordTime > 0 {
		config.PasswordTime = c.PasswordTime
	}
	if c.PasswordParallelism > 0 {
		config.PasswordParallelism = c.PasswordParallelism
	}
	setDuration(&config.InactivityTimeout, c.InactivityTimeout)
	setDuration(&config.ActivityCheckInterval, c.ActivityCheckInterval)
	setDuration(&config.FreshnessWindow, c.FreshnessWindow)
	if c.CleanupProbability > 0 {
		config.CleanupProbability = c.CleanupProbability
	}
	setString(&config.SessionCookieName, c.SessionCookieName)
	setString(&config.SessionJWTCookieName, c.SessionJWTCookieName)
	setDuration(&config.SessionCookieMaxAge, c.SessionCookieMaxAge)
	if c.SecureCookies != nil {
		config.SecureCookies = *c.SecureCookies
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v timex.Duration) {
	if v.Duration > 0 {
		*dst = v.Duration
	}
}
