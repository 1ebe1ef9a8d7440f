package main

import (
	"fmt"
	"os"

	"gorm.io/gorm"

	"worktrack/pkg/config"
	"worktrack/pkg/schema"
	"worktrack/pkg/store"
)

var db *gorm.DB

func initDB(c *config.Config) error {
	// Control schema migrations with env DB_AUTO_MIGRATE (default true).
	if c.DBAutoMigrate {
		if err := runMigrations(c.DBDSN); err != nil {
			return err
		}
	}

	var err error
	if db, err = store.Open(c); err != nil {
		return err
	}
	ensureUploadBase(c.UploadBase)
	return nil
}

func runMigrations(dsn string) error {
	if err := schema.Up(dsn); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// ensureUploadBase creates the base uploads directory.
func ensureUploadBase(base string) {
	if err := os.MkdirAll(base, 0755); err != nil {
		logger.Warn("Failed to create upload base dir", "dir", base, "error", err)
	}
}
