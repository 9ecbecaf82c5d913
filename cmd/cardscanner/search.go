package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"jordanella.com/mtg-scanner-go/internal/cards"
)

func newSearchCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Search Scryfall for cards",
		Long: `Searches Scryfall using its query syntax. When Scryfall cannot be
reached the loaded card database is matched by name, type and rules text.`,
		Example: `  cardscanner search "lightning bolt"
  cardscanner search "t:planeswalker c:u"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := flags.openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			a.LoadCatalog(cmd.Context())
			results, err := a.Search(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			if len(results) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No cards found")
				return nil
			}
			return printCards(cmd.OutOrStdout(), results)
		},
	}
}

func printCards(out io.Writer, list []cards.Card) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tMANA\tTYPE\tRARITY\tPRICE\tID")
	for _, c := range list {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t$%.2f\t%s\n", c.Name, c.ManaCost, c.Type, c.Rarity, c.Price, c.ID)
	}
	return w.Flush()
}
