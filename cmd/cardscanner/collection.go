package main

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"jordanella.com/mtg-scanner-go/internal/app"
	"jordanella.com/mtg-scanner-go/internal/cards"
)

func newCollectionCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "collection",
		Short: "Manage your card collection",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "Show owned cards and totals",
			RunE: func(cmd *cobra.Command, args []string) error {
				a, err := flags.openApp()
				if err != nil {
					return err
				}
				defer a.Close()

				owned, err := a.Collection.List()
				if err != nil {
					return err
				}
				totals, err := a.Collection.Totals()
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if len(owned) == 0 {
					fmt.Fprintln(out, "Your collection is empty")
					return nil
				}

				w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "QTY\tNAME\tTYPE\tPRICE\tVALUE\tADDED")
				for _, c := range owned {
					fmt.Fprintf(w, "%d\t%s\t%s\t$%.2f\t$%.2f\t%s\n",
						c.Quantity, c.Name, c.TypeLine, c.Price, c.Value(), c.DateAdded.Format("2006-01-02"))
				}
				if err := w.Flush(); err != nil {
					return err
				}
				fmt.Fprintf(out, "\n%d unique, %d total cards, value $%.2f\n", totals.UniqueCards, totals.TotalCards, totals.TotalValue)
				return nil
			},
		},
		&cobra.Command{
			Use:   "add <card id or name>",
			Short: "Add one copy of a card",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				a, err := flags.openApp()
				if err != nil {
					return err
				}
				defer a.Close()

				card, err := resolveCard(cmd.Context(), a, strings.Join(args, " "))
				if err != nil {
					return err
				}
				_, qty, err := a.AddToCollection(card.ID)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added %s (now %d)\n", card.Name, qty)
				return nil
			},
		},
		&cobra.Command{
			Use:   "remove <card id or name>",
			Short: "Remove a card and every copy of it",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				a, err := flags.openApp()
				if err != nil {
					return err
				}
				defer a.Close()

				ref := strings.Join(args, " ")
				owned, err := a.Collection.List()
				if err != nil {
					return err
				}
				for _, c := range owned {
					if c.CardID == ref || strings.EqualFold(c.Name, ref) {
						if err := a.Collection.Remove(c.CardID); err != nil {
							return err
						}
						fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", c.Name)
						return nil
					}
				}
				return fmt.Errorf("%q is not in your collection", ref)
			},
		},
	)

	return cmd
}

// resolveCard finds a card by catalog id, then by exact name, then by first search hit
func resolveCard(ctx context.Context, a *app.App, ref string) (cards.Card, error) {
	a.LoadCatalog(ctx)
	if c, ok := a.Catalog.Get(ref); ok {
		return c, nil
	}

	results, err := a.Search(ctx, ref)
	if err != nil {
		return cards.Card{}, err
	}
	for _, c := range results {
		if strings.EqualFold(c.Name, ref) {
			return c, nil
		}
	}
	if len(results) > 0 {
		return results[0], nil
	}
	return cards.Card{}, fmt.Errorf("no card matches %q", ref)
}
