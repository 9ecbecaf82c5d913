package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newCamerasCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "cameras",
		Short: "List video input devices",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := flags.openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			devices, err := a.Scanner.DetectCameras(cmd.Context())
			if err != nil {
				return err
			}
			if len(devices) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No cameras found")
				return nil
			}

			selected := a.Scanner.Options().DeviceID
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "\tDEVICE ID\tLABEL")
			for _, d := range devices {
				mark := ""
				if d.DeviceID == selected {
					mark = "*"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", mark, d.DeviceID, d.Label)
			}
			return w.Flush()
		},
	}
}
