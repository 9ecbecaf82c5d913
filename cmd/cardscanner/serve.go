package main

import (
	"github.com/spf13/cobra"

	"jordanella.com/mtg-scanner-go/internal/server"
)

func newServeCmd(flags *globalFlags) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the scanner HTTP API",
		Long: `Starts the scanner HTTP API and websocket event stream.

Clients drive the camera through /api/scanner, identify uploads with
/api/recognize and follow live events on /ws/events.`,
		Example: `  # Listen on the configured address
  cardscanner serve

  # Synthetic camera on a custom port
  cardscanner serve --simulate --addr :9000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := flags.openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if addr == "" {
				addr = a.Config.ListenAddr
			}

			srv := server.New(a, a.Logger.Named("Server"))
			defer srv.Close()

			a.Health.Start()
			go a.LoadCatalog(cmd.Context())
			return srv.ListenAndServe(cmd.Context(), addr)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "Address to listen on (default from config)")

	return cmd
}
