// Package cmd - calculation history commands
package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"vat-cost/adapters/storage"
	"vat-cost/core/determinism"
)

var (
	historyLimit  int
	historyFormat string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Browse saved calculations",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved calculations, newest first",
	Args:  cobra.NoArgs,
	RunE:  runHistoryList,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a saved calculation",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyDiffCmd = &cobra.Command{
	Use:   "diff <old-id> <new-id>",
	Short: "Compare the totals of two saved calculations",
	Args:  cobra.ExactArgs(2),
	RunE:  runHistoryDiff,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyDiffCmd)

	historyListCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "maximum number of calculations")
	historyShowCmd.Flags().StringVarP(&historyFormat, "format", "f", "", "output format (cli, json)")
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	calcs, err := store.List(context.Background(), &storage.ListFilter{Limit: historyLimit})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(calcs) == 0 {
		fmt.Fprintln(out, "No saved calculations.")
		return nil
	}
	for _, c := range calcs {
		countries := make([]string, len(c.Breakdowns))
		for i, b := range c.Breakdowns {
			countries[i] = b.CountryCode
		}
		fmt.Fprintf(out, "%s  %s  %-8s %v  %s\n",
			c.ID,
			c.CreatedAt.Format("2006-01-02 15:04"),
			c.ServiceType,
			countries,
			determinism.NewMoney(c.Total, c.Currency),
		)
	}
	return nil
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	f, err := formatter(historyFormat)
	if err != nil {
		return err
	}
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	calc, err := store.Get(context.Background(), args[0])
	if err != nil {
		return err
	}
	return f.Render(cmd.OutOrStdout(), calc)
}

func runHistoryDiff(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	cmp, err := store.Compare(context.Background(), args[0], args[1])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "old   %s  %s\n", cmp.OldID, cmp.OldTotal.StringFixed(2))
	fmt.Fprintf(out, "new   %s  %s\n", cmp.NewID, cmp.NewTotal.StringFixed(2))
	sign := ""
	if cmp.Delta.IsPositive() {
		sign = "+"
	}
	fmt.Fprintf(out, "delta %s%s (%s%s%%)\n", sign, cmp.Delta.StringFixed(2), sign, cmp.DeltaPercent.StringFixed(2))
	if cmp.SameInputs {
		fmt.Fprintln(out, "inputs identical: the difference comes from catalog changes")
	}
	return nil
}
