package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"jordanella.com/mtg-scanner-go/internal/recognition"
	"jordanella.com/mtg-scanner-go/internal/vision"
)

func newScanCmd(flags *globalFlags) *cobra.Command {
	var (
		imagePath string
		add       bool
		save      string
	)

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Identify a card from an image file",
		Long: `Runs an image through the same corrections and card detection as the live
camera, then identifies the card.`,
		Example: `  cardscanner scan --image photo.jpg
  cardscanner scan --image photo.png --add --save corrected.jpg`,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(imagePath)
			if err != nil {
				return fmt.Errorf("failed to read image: %w", err)
			}

			a, err := flags.openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			a.LoadCatalog(cmd.Context())
			capture, match, err := a.RecognizeUpload(cmd.Context(), data)
			if capture == nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Capture %s: %dx%d, %s\n", capture.ID, capture.Width, capture.Height, describeBounds(capture.Bounds))

			if save != "" {
				if werr := os.WriteFile(save, capture.Image, 0o644); werr != nil {
					return fmt.Errorf("failed to save capture: %w", werr)
				}
				fmt.Fprintf(out, "Saved corrected image to %s\n", save)
			}

			if err != nil {
				return fmt.Errorf("%s", recognition.UserMessage(err))
			}
			fmt.Fprintf(out, "Identified %s (%d%% confidence, %s)\n", match.Card.Name, match.Confidence, match.Method)

			if add {
				_, qty, err := a.AddToCollection(match.Card.ID)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Added to collection (now %d)\n", qty)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&imagePath, "image", "i", "", "Image file to identify (JPEG, PNG or GIF)")
	cmd.Flags().BoolVar(&add, "add", false, "Add the identified card to the collection")
	cmd.Flags().StringVar(&save, "save", "", "Write the corrected JPEG to this path")
	_ = cmd.MarkFlagRequired("image")

	return cmd
}

func describeBounds(b *vision.CardBounds) string {
	if b == nil {
		return "no card outline found"
	}
	return fmt.Sprintf("card at %d,%d (%dx%d)", b.X, b.Y, b.Width, b.Height)
}
