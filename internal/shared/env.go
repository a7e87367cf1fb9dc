package shared

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variables that override config.toml values.
const (
	EnvAPIURL       = "HALX_API_URL"
	EnvToken        = "HALX_TOKEN"
	EnvClientID     = "HALX_CLIENT_ID"
	EnvClientSecret = "HALX_CLIENT_SECRET"
	EnvIssuer       = "HALX_ISSUER"
	EnvDatabasePath = "HALX_DATABASE_PATH"
	EnvLogLevel     = "HALX_LOG_LEVEL"
	EnvWebPort      = "HALX_WEB_PORT"

	// EnvConfigPath selects the config file; it is read before the file itself.
	EnvConfigPath = "HALX_CONFIG"
)

// LoadEnvFiles loads .env style files into the process environment.
// Missing files are ignored; variables already set win.
func LoadEnvFiles(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}

	existing := make([]string, 0, len(paths))
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		}
	}

	if len(existing) == 0 {
		return nil
	}
	return godotenv.Load(existing...)
}

// ApplyEnv overwrites config fields with any HALX_* variables present in the environment.
func ApplyEnv(config *Config) {
	if config == nil {
		return
	}

	if v := lookup(EnvAPIURL); v != "" {
		config.API.BaseURL = v
	}
	if v := lookup(EnvToken); v != "" {
		config.Credentials.Token = v
	}
	if v := lookup(EnvClientID); v != "" {
		config.Credentials.OIDC.ClientID = v
	}
	if v := lookup(EnvClientSecret); v != "" {
		config.Credentials.OIDC.ClientSecret = v
	}
	if v := lookup(EnvIssuer); v != "" {
		config.Credentials.OIDC.Issuer = v
	}
	if v := lookup(EnvDatabasePath); v != "" {
		config.Database.Path = v
	}
	if v := lookup(EnvLogLevel); v != "" {
		config.Logging.Level = v
	}
	if v := lookup(EnvWebPort); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			config.Web.Port = port
		}
	}
}

func lookup(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}
