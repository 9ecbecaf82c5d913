package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"jordanella.com/mtg-scanner-go/internal/app"
	"jordanella.com/mtg-scanner-go/internal/config"
)

const defaultConfigPath = "scanner.ini"

// globalFlags are shared by every subcommand
type globalFlags struct {
	configPath string
	simulate   bool
	eventLog   bool
	database   string
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	cmd := &cobra.Command{
		Use:   "cardscanner",
		Short: "Scan Magic: The Gathering cards with a camera and track your collection",
		Long: `cardscanner streams a camera, finds the card in frame, captures a corrected
still and identifies it against the Scryfall catalog. Identified cards can be
added to a local collection.

Settings come from an INI file (default scanner.ini), a .env file and
SCANNER_* environment variables.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&flags.configPath, "config", "c", defaultConfigPath, "Path to the INI settings file")
	pf.BoolVar(&flags.simulate, "simulate", false, "Use a synthetic camera instead of real devices")
	pf.BoolVar(&flags.eventLog, "event-log", false, "Write every scanner event to the log directory")
	pf.StringVar(&flags.database, "db", "", "Override the collection database path")

	cmd.AddCommand(
		newGUICmd(flags),
		newServeCmd(flags),
		newCamerasCmd(flags),
		newSearchCmd(flags),
		newCollectionCmd(flags),
		newScanCmd(flags),
		newConfigCmd(flags),
	)

	return cmd
}

// loadConfig reads settings and applies command-line overrides
func (f *globalFlags) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if f.database != "" {
		cfg.DatabasePath = f.database
	}
	return cfg, nil
}

// openApp builds the application; callers must Close it
func (f *globalFlags) openApp() (*app.App, error) {
	cfg, err := f.loadConfig()
	if err != nil {
		return nil, err
	}

	if dir := filepath.Dir(cfg.DatabasePath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	return app.New(cfg, app.Options{
		Simulate: f.simulate,
		EventLog: f.eventLog,
	})
}
