// Package cmd - catalog commands
package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"vat-cost/core/catalog"
	"vat-cost/internal/config"
	"vat-cost/internal/errors"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect and validate the pricing catalog",
}

var catalogValidateCmd = &cobra.Command{
	Use:   "validate [path...]",
	Short: "Validate catalog files",
	Long: `Parse and validate catalog files or directories of *.hcl files.

Every problem is reported at once: unknown countries, duplicate ids,
bad effective windows, invalid parameters and expressions that do not parse.
Defaults to the configured catalog path.`,
	RunE: runCatalogValidate,
}

var catalogCountriesCmd = &cobra.Command{
	Use:   "countries",
	Short: "List the countries in the catalog",
	Args:  cobra.NoArgs,
	RunE:  runCatalogCountries,
}

func init() {
	rootCmd.AddCommand(catalogCmd)
	catalogCmd.AddCommand(catalogValidateCmd)
	catalogCmd.AddCommand(catalogCountriesCmd)
}

func runCatalogValidate(cmd *cobra.Command, args []string) error {
	paths := args
	if len(paths) == 0 {
		paths = []string{config.Get().Catalog.Path}
	}

	out := cmd.OutOrStdout()
	snap, err := catalog.LoadHCL(paths...)
	if err != nil {
		problems := multierr.Errors(causeOf(err))
		if len(problems) == 0 {
			problems = []error{err}
		}
		fmt.Fprintf(out, "✗ catalog invalid (%d problems)\n", len(problems))
		for _, p := range problems {
			fmt.Fprintf(out, "  - %v\n", p)
		}
		return fmt.Errorf("catalog validation failed")
	}

	countries, services, rules := snap.Stats()
	fmt.Fprintf(out, "✓ catalog valid: %d countries, %d services, %d rules\n", countries, services, rules)
	return nil
}

func runCatalogCountries(cmd *cobra.Command, args []string) error {
	_, snap, err := loadEngine()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%-4s %-24s %8s  %-8s %s\n", "CODE", "NAME", "VAT %", "STATUS", "FREQUENCIES")
	for _, c := range snap.Countries() {
		status := "active"
		if !c.Active {
			status = "inactive"
		}
		freqs := make([]string, len(c.FilingFrequencies))
		for i, f := range c.FilingFrequencies {
			freqs[i] = string(f)
		}
		fmt.Fprintf(out, "%-4s %-24s %8s  %-8s %s\n",
			c.Code, truncateName(c.Name, 24), c.StandardVATRate.StringFixed(2), status, strings.Join(freqs, ","))
	}
	return nil
}

// causeOf unwraps a domain error to the aggregated validation problems
func causeOf(err error) error {
	var de *errors.Error
	if errors.As(err, &de) && de.Cause != nil {
		return de.Cause
	}
	return err
}

func truncateName(s string, n int) string {
	if len([]rune(s)) <= n {
		return s
	}
	return string([]rune(s)[:n-3]) + "..."
}
