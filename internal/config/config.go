// Package config reads process configuration from the environment.
//
// A .env file in the working directory is loaded first when present; real
// environment variables win over values from the file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/nasermirzaei89/env"
)

const (
	DefaultPort     = "8080"
	DefaultDBPath   = "data/fieldfinder.db"
	DefaultAPIURL   = "http://localhost:8080"
	DefaultTokenTTL = 24 * time.Hour
)

// ServerConfig configures cmd/server.
type ServerConfig struct {
	Port        string
	DBPath      string
	JWTSecret   string
	TokenTTL    time.Duration
	AdminEmails []string
	LogLevel    slog.Level
}

// ClientConfig configures cmd/fieldfinder.
type ClientConfig struct {
	APIURL    string
	TokenFile string
	LogLevel  slog.Level
}

// LoadDotEnv loads .env from the working directory. A missing file is fine.
func LoadDotEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}
	return nil
}

// LoadServer reads ServerConfig. JWT_SECRET is required.
func LoadServer() (ServerConfig, error) {
	if err := LoadDotEnv(); err != nil {
		return ServerConfig{}, err
	}

	cfg := ServerConfig{
		Port:        stringOr("PORT", DefaultPort),
		DBPath:      stringOr("DB_PATH", DefaultDBPath),
		JWTSecret:   env.GetString("JWT_SECRET", ""),
		AdminEmails: env.GetStringSlice("ADMIN_EMAILS", []string{}),
		LogLevel:    LogLevelFromEnv(),
	}

	if cfg.JWTSecret == "" {
		return ServerConfig{}, errors.New("JWT_SECRET is required")
	}

	ttl, err := parseDuration(env.GetString("TOKEN_TTL", ""), DefaultTokenTTL)
	if err != nil {
		return ServerConfig{}, fmt.Errorf("TOKEN_TTL: %w", err)
	}
	cfg.TokenTTL = ttl

	return cfg, nil
}

// LoadClient reads ClientConfig. The token file defaults to
// $XDG_CONFIG_HOME/fieldfinder/token.json (or the OS equivalent).
func LoadClient() (ClientConfig, error) {
	if err := LoadDotEnv(); err != nil {
		return ClientConfig{}, err
	}

	cfg := ClientConfig{
		APIURL:    strings.TrimRight(stringOr("FIELDFINDER_API_URL", DefaultAPIURL), "/"),
		TokenFile: env.GetString("FIELDFINDER_TOKEN_FILE", ""),
		LogLevel:  LogLevelFromEnv(),
	}

	u, err := url.Parse(cfg.APIURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ClientConfig{}, fmt.Errorf("FIELDFINDER_API_URL %q is not an http(s) URL", cfg.APIURL)
	}

	if cfg.TokenFile == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return ClientConfig{}, fmt.Errorf("locating config dir: %w", err)
		}
		cfg.TokenFile = filepath.Join(dir, "fieldfinder", "token.json")
	}

	return cfg, nil
}

// LogLevelFromEnv maps LOG_LEVEL (debug|info|warn|error) to a slog level.
// Unknown values fall back to info.
func LogLevelFromEnv() slog.Level {
	levelStr := stringOr("LOG_LEVEL", "info")
	switch strings.ToLower(levelStr) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		slog.Warn("unknown log level, defaulting to info", "level", levelStr)
		return slog.LevelInfo
	}
}

// stringOr treats a variable that is set but empty the same as an unset one.
func stringOr(key, def string) string {
	if v := strings.TrimSpace(env.GetString(key, def)); v != "" {
		return v
	}
	return def
}

func parseDuration(s string, def time.Duration) (time.Duration, error) {
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("must be positive, got %s", d)
	}
	return d, nil
}
