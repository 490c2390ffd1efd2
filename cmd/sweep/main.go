// One-shot expiry sweep for cron-style maintenance: removes every teacher
// session idle past the configured window, with its transcript entries and
// student rows.
package main

import (
	"context"
	"log"

	"go.uber.org/zap"

	"github.com/speechrelay/api/internal/app"
	"github.com/speechrelay/api/internal/config"
	"github.com/speechrelay/api/internal/database"
	"github.com/speechrelay/api/internal/store"
)

func main() {
	cfg := config.Load()
	logger := app.NewLogger(cfg.Environment)
	defer logger.Sync()

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	sessionStore := store.New(db, logger)
	removed, err := sessionStore.SweepExpired(context.Background(), cfg.SessionExpiry)
	if err != nil {
		logger.Fatal("sweep failed", zap.Error(err))
	}

	logger.Info("sweep complete",
		zap.Int64("removed", removed),
		zap.Duration("expiry", cfg.SessionExpiry))
}
