package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"jordanella.com/mtg-scanner-go/internal/config"
)

func newConfigCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create the settings file",
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a settings file with default values",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(flags.configPath); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", flags.configPath)
			}
			if err := config.SaveToINI(config.NewDefaultConfig(), flags.configPath); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", flags.configPath)
			return nil
		},
	}
	initCmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing file")

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective settings after environment overrides",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.loadConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "camera.device        = %q\n", cfg.Device)
			fmt.Fprintf(out, "camera.resolution    = %s\n", cfg.Resolution)
			fmt.Fprintf(out, "camera.refreshHz     = %d\n", cfg.RefreshHz)
			fmt.Fprintf(out, "capture.corrections  = %+v\n", cfg.Corrections())
			fmt.Fprintf(out, "capture.jpegQuality  = %d\n", cfg.JPEGQuality)
			fmt.Fprintf(out, "overlay.style        = %s\n", cfg.OverlayStyle)
			fmt.Fprintf(out, "catalog.baseURL      = %s\n", cfg.CatalogBaseURL)
			fmt.Fprintf(out, "recognition.delay    = %s\n", cfg.RecognitionDelay())
			fmt.Fprintf(out, "storage.database     = %s\n", cfg.DatabasePath)
			fmt.Fprintf(out, "server.listen        = %s\n", cfg.ListenAddr)
			fmt.Fprintf(out, "logging.level        = %s\n", cfg.Level())
			return nil
		},
	}

	cmd.AddCommand(initCmd, showCmd)
	return cmd
}
