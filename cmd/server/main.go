// Command server runs the FieldFinder REST API.
//
// Configuration comes from the environment (or a .env file):
//
//	PORT          listen port, default 8080
//	DB_PATH       SQLite file, default data/fieldfinder.db
//	JWT_SECRET    HMAC key for access tokens (required, 16+ characters)
//	TOKEN_TTL     token lifetime, e.g. 12h (default 24h)
//	ADMIN_EMAILS  comma-separated emails that sign up as ADMIN
//	LOG_LEVEL     debug | info | warn | error
package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/sakif/fieldfinder/internal/config"
	"github.com/sakif/fieldfinder/internal/server"
)

func main() {
	cfg, err := config.LoadServer()
	if err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))

	if cfg.DBPath != ":memory:" {
		dbDir := filepath.Dir(cfg.DBPath)
		if err := os.MkdirAll(dbDir, 0o755); err != nil {
			logger.Error("failed to create database directory",
				slog.String("dir", dbDir),
				slog.String("error", err.Error()),
			)
			os.Exit(1)
		}
	}

	if len(cfg.AdminEmails) == 0 {
		logger.Warn("ADMIN_EMAILS not set, nobody can approve fields")
	}

	srv, err := server.New(context.Background(), server.Config{
		Port:        cfg.Port,
		DBPath:      cfg.DBPath,
		JWTSecret:   cfg.JWTSecret,
		TokenTTL:    cfg.TokenTTL,
		AdminEmails: cfg.AdminEmails,
	}, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
