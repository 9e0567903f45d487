package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures environment driven configuration for the cohort scheduler.
type Config struct {
	SQLiteDSN               string
	CredentialKey           string
	Timezone                string
	PreflightCacheTTL       time.Duration
	PreflightCacheSize      int
	SessionsPerResourceHint int
}

// Load parses configuration values from the current process environment.
//
// Optional fields fall back to defaults; required and malformed values are
// accumulated so the operator sees every problem in one pass.
func Load() (Config, error) {
	cfg := Config{
		SQLiteDSN:               "file:cohortsched.db?_foreign_keys=on",
		Timezone:                "UTC",
		PreflightCacheTTL:       30 * time.Second,
		PreflightCacheSize:      128,
		SessionsPerResourceHint: 4,
	}

	missing := make([]string, 0, 1)
	invalid := make([]string, 0, 2)

	if dsn := strings.TrimSpace(os.Getenv("COHORT_SQLITE_DSN")); dsn != "" {
		cfg.SQLiteDSN = dsn
	}

	if key := strings.TrimSpace(os.Getenv("COHORT_CREDENTIAL_KEY")); key == "" {
		missing = append(missing, "COHORT_CREDENTIAL_KEY")
	} else {
		cfg.CredentialKey = key
	}

	if tz := strings.TrimSpace(os.Getenv("COHORT_TIMEZONE")); tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			invalid = append(invalid, "COHORT_TIMEZONE")
		} else {
			cfg.Timezone = tz
		}
	}

	if ttlValue := strings.TrimSpace(os.Getenv("COHORT_PREFLIGHT_CACHE_TTL")); ttlValue != "" {
		ttl, err := time.ParseDuration(ttlValue)
		if err != nil || ttl <= 0 {
			invalid = append(invalid, "COHORT_PREFLIGHT_CACHE_TTL")
		} else {
			cfg.PreflightCacheTTL = ttl
		}
	}

	if sizeValue := strings.TrimSpace(os.Getenv("COHORT_PREFLIGHT_CACHE_SIZE")); sizeValue != "" {
		size, err := strconv.Atoi(sizeValue)
		if err != nil || size <= 0 {
			invalid = append(invalid, "COHORT_PREFLIGHT_CACHE_SIZE")
		} else {
			cfg.PreflightCacheSize = size
		}
	}

	if hintValue := strings.TrimSpace(os.Getenv("COHORT_SESSIONS_PER_RESOURCE_HINT")); hintValue != "" {
		hint, err := strconv.Atoi(hintValue)
		if err != nil || hint <= 0 {
			invalid = append(invalid, "COHORT_SESSIONS_PER_RESOURCE_HINT")
		} else {
			cfg.SessionsPerResourceHint = hint
		}
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("required environment variables are not set: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("environment variables have invalid values: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}

// Location resolves the configured timezone. Load already validated it.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
