package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/roll-call/internal/config"
	"github.com/kozaktomas/roll-call/internal/database"
	"github.com/kozaktomas/roll-call/internal/database/mariadb"
	"github.com/kozaktomas/roll-call/internal/database/postgres"
)

var rootCmd = &cobra.Command{
	Use:   "roll-call",
	Short: "Camera-driven attendance tracking",
	Long: `Roll Call is a face-recognition attendance engine. It collects face
samples per subject, trains a classifier, and turns live camera
recognitions into deduplicated attendance records per class and day.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}

// openStore connects to the configured backend: MariaDB when MYSQL_DSN is
// set, PostgreSQL otherwise.
func openStore(cfg *config.Config) (database.Store, error) {
	if cfg.Database.MySQLDSN != "" {
		store, err := mariadb.Open(&cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to MariaDB: %w", err)
		}
		return store, nil
	}

	if cfg.Database.URL == "" {
		return nil, errors.New("DATABASE_URL or MYSQL_DSN environment variable is required")
	}
	store, err := postgres.Open(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	return store, nil
}
