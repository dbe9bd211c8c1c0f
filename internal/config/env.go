package config

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"

	appLog "hourcal/internal/log"
)

// Environment variables that override file settings. Secrets belong here
// rather than in the YAML file.
const (
	EnvListen      = "HOURCAL_LISTEN"
	EnvDatabase    = "HOURCAL_DATABASE"
	EnvLogLevel    = "HOURCAL_LOG_LEVEL"
	EnvGoogleToken = "HOURCAL_GOOGLE_TOKEN"
	EnvGoogleCal   = "HOURCAL_GOOGLE_CALENDAR"
	EnvAuthUser    = "HOURCAL_AUTH_USER"
	EnvAuthPass    = "HOURCAL_AUTH_PASSWORD"
	EnvLookback    = "HOURCAL_LOOKBACK_DAYS"
)

// ApplyEnv loads a .env file from dir (if present; existing process
// variables win) and applies HOURCAL_* overrides to cfg.
func ApplyEnv(cfg *Config, dir string) {
	envPath := filepath.Join(dir, ".env")
	if _, err := os.Stat(envPath); err == nil {
		if err := godotenv.Load(envPath); err != nil {
			appLog.Error("failed to load .env", err, "path", envPath)
		}
	}

	if v := os.Getenv(EnvListen); v != "" {
		cfg.Listen = v
	}
	if v := os.Getenv(EnvDatabase); v != "" {
		cfg.DatabasePath = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv(EnvLookback); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.LookbackDays = n
		}
	}

	token := os.Getenv(EnvGoogleToken)
	calendar := os.Getenv(EnvGoogleCal)
	if token != "" || calendar != "" {
		if cfg.Google == nil {
			cfg.Google = &GoogleConfig{CalendarID: "primary"}
		}
		if token != "" {
			cfg.Google.AccessToken = token
		}
		if calendar != "" {
			cfg.Google.CalendarID = calendar
		}
	}

	user, pass := os.Getenv(EnvAuthUser), os.Getenv(EnvAuthPass)
	if user != "" && pass != "" {
		cfg.BasicAuth = &BasicAuthConfig{Username: user, Password: pass}
	}
}
