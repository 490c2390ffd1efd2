package database

import (
	"strings"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/speechrelay/api/internal/config"
	"github.com/speechrelay/api/internal/model"
)

// Connect opens the session database. A postgres:// DSN selects the postgres
// driver; anything else is treated as a sqlite file path, which is the
// default for single-host deployments.
func Connect(cfg *config.Config) (*gorm.DB, error) {
	gormCfg := &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	}

	if strings.HasPrefix(cfg.DatabaseURL, "postgres://") || strings.HasPrefix(cfg.DatabaseURL, "postgresql://") {
		return gorm.Open(postgres.Open(cfg.DatabaseURL), gormCfg)
	}

	db, err := gorm.Open(sqlite.Open(cfg.DatabaseURL), gormCfg)
	if err != nil {
		return nil, err
	}

	// sqlite serializes writers anyway; a single pooled connection avoids
	// SQLITE_BUSY under concurrent callers.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	return db, nil
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.TeacherSession{},
		&model.StudentSession{},
		&model.TranscriptEntry{},
	)
}
