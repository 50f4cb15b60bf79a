// Package cmd - quote command
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"vat-cost/core/catalog"
	"vat-cost/core/types"
	"vat-cost/internal/logging"
)

var (
	quoteService   string
	quoteVolume    int
	quoteFrequency string
	quoteCountries []string
	quoteAddons    []string
	quoteAsOf      string
	quoteFormat    string
	quoteSave      bool
)

// quoteCmd prices one request
var quoteCmd = &cobra.Command{
	Use:   "quote",
	Short: "Quote VAT filing for one or more countries",
	Long: `Price a VAT filing service across the requested countries.

Countries are priced concurrently; the breakdown keeps request order.
Any country that cannot be priced fails the whole quote.

Examples:
  vat-cost quote --countries GB
  vat-cost quote --service complex --volume 2500 --frequency quarterly --countries GB,DE,FR
  vat-cost quote --countries FR --addons fiscalRep --as-of 2025-01-01 --save`,
	Args: cobra.NoArgs,
	RunE: runQuote,
}

func init() {
	rootCmd.AddCommand(quoteCmd)
	addRequestFlags(quoteCmd)
	quoteCmd.Flags().StringVarP(&quoteFormat, "format", "f", "", "output format (cli, json)")
	quoteCmd.Flags().BoolVar(&quoteSave, "save", false, "store the calculation in history")
	quoteCmd.MarkFlagRequired("countries")
}

// addRequestFlags registers the flags that describe a pricing request
func addRequestFlags(c *cobra.Command) {
	c.Flags().StringVarP(&quoteService, "service", "s", "standard", "service type (basic, standard, complex)")
	c.Flags().IntVar(&quoteVolume, "volume", 1, "transactions per period")
	c.Flags().StringVar(&quoteFrequency, "frequency", "monthly", "filing frequency (monthly, quarterly, biannually, annually)")
	c.Flags().StringSliceVarP(&quoteCountries, "countries", "c", nil, "comma-separated ISO country codes")
	c.Flags().StringSliceVar(&quoteAddons, "addons", nil, "comma-separated additional services")
	c.Flags().StringVar(&quoteAsOf, "as-of", "", "price with the rules effective on this date (YYYY-MM-DD)")
}

// requestFromFlags builds a calculation context from the request flags
func requestFromFlags() (types.CalculationContext, error) {
	service, err := types.ParseServiceType(quoteService)
	if err != nil {
		return types.CalculationContext{}, err
	}
	freq, err := types.ParseFilingFrequency(quoteFrequency)
	if err != nil {
		return types.CalculationContext{}, err
	}
	asOf, err := catalog.ParseAsOf(quoteAsOf)
	if err != nil {
		return types.CalculationContext{}, fmt.Errorf("invalid --as-of: %w", err)
	}
	return types.CalculationContext{
		ServiceType:        service,
		TransactionVolume:  quoteVolume,
		FilingFrequency:    freq,
		CountryCodes:       quoteCountries,
		AdditionalServices: quoteAddons,
		AsOf:               asOf,
	}, nil
}

func runQuote(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	req, err := requestFromFlags()
	if err != nil {
		return err
	}
	f, err := formatter(quoteFormat)
	if err != nil {
		return err
	}

	eng, _, err := loadEngine()
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}

	calc, err := eng.Calculate(ctx, req)
	if err != nil {
		return err
	}

	if quoteSave {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()
		if err := store.Save(ctx, calc); err != nil {
			return fmt.Errorf("failed to save calculation: %w", err)
		}
		logging.Info("calculation saved", zap.String("id", calc.ID))
	}

	return f.Render(cmd.OutOrStdout(), calc)
}
