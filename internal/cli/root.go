// Package cli implements the affentanz command line.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pepperonas/Affentanz/internal/config"
	"github.com/pepperonas/Affentanz/internal/db"
	"github.com/pepperonas/Affentanz/internal/logging"
)

var (
	cfgFile        string
	logLevel       string
	dbPath         string
	jsonOutput     bool
	jsonlOutput    bool
	noProgress     bool
	nonInteractive bool
	assumeYes      bool

	appConfig *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "affentanz",
	Short: "Desktop workflow automation",
	Long: `Affentanz plays back recorded desktop workflows: mouse clicks and drags,
key combinations, typed text, fixed waits and waits for a color or text to
appear on screen.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig()
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default $XDG_CONFIG_HOME/affentanz/config.yaml)")
	flags.StringVar(&logLevel, "log-level", "", "override logging level (trace, debug, info, warn, error)")
	flags.StringVar(&dbPath, "db", "", "override database path")
	flags.BoolVar(&jsonOutput, "json", false, "output JSON")
	flags.BoolVar(&jsonlOutput, "jsonl", false, "output JSON lines")
	flags.BoolVar(&noProgress, "no-progress", false, "disable progress output")
	flags.BoolVar(&nonInteractive, "non-interactive", false, "never prompt; use defaults")
	flags.BoolVarP(&assumeYes, "yes", "y", false, "answer yes to confirmations")
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func initConfig() error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if dbPath != "" {
		cfg.Database.Path = dbPath
	}
	logging.Init(cfg.Logging)
	appConfig = cfg
	return nil
}

// GetConfig returns the loaded configuration, or nil before initialization.
func GetConfig() *config.Config {
	return appConfig
}

func currentConfig() *config.Config {
	if cfg := GetConfig(); cfg != nil {
		return cfg
	}
	return config.DefaultConfig()
}

func openDatabase(ctx context.Context) (*db.DB, error) {
	database, err := db.Open(currentConfig().Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := database.Migrate(ctx); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return database, nil
}

func projectDir() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	return dir
}
