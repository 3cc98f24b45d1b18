package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/tutorx/internal/shared"
)

// Setup creates config.toml from the embedded template when missing and reports the database location.
//
// The database itself is created and migrated by [Runner.bootstrap] before any command runs.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	configPath := r.configPath
	if configPath == "" {
		configPath = "config.toml"
	}

	if _, err := os.Stat(configPath); errors.Is(err, os.ErrNotExist) {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			return fmt.Errorf("failed to create config file: %w", err)
		}
		r.writePlain("✓ Created %s\n", configPath)
	} else {
		r.writePlain("✓ Using existing %s\n", configPath)
	}

	db := r.db
	if db == nil {
		var err error
		if db, err = shared.NewDatabase(r.config.Database.Path); err != nil {
			return fmt.Errorf("failed to create database: %w", err)
		}
		defer db.Close()

		r.logger.Info("running database migrations")
		if err := shared.RunMigrations(db); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	version, err := shared.SchemaVersion(db)
	if err != nil {
		return err
	}

	r.logger.Infof("setup complete for database: %v", r.config.Database.Path)
	r.writePlain("✓ Database ready at %s (schema v%d)\n", shared.ExpandPath(r.config.Database.Path), version)
	r.writePlainln("Next steps:")
	r.writePlain("1. Point api.base_url in %s at the backend (now %s)\n", configPath, r.config.API.BaseURL)
	return r.writePlain("2. Run 'tutorx login' to sign in with GitHub\n")
}
