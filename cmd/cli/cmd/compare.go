// Package cmd - compare command
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"vat-cost/core/catalog"
	"vat-cost/core/engine"
	"vat-cost/core/types"
)

var compareFormat string

// compareCmd prices several named scenarios side by side
var compareCmd = &cobra.Command{
	Use:   "compare <scenarios.json>",
	Short: "Compare named pricing scenarios",
	Long: `Price every scenario in a JSON file and show the totals side by side.

File format:
  {
    "scenarios": [
      {"name": "uk-only", "service_type": "standard", "transaction_volume": 500,
       "filing_frequency": "monthly", "country_codes": ["GB"]},
      {"name": "eu-three", "service_type": "standard", "transaction_volume": 500,
       "filing_frequency": "monthly", "country_codes": ["DE", "FR", "NL"],
       "additional_services": ["fiscalRep"], "as_of": "2025-01-01"}
    ]
  }`,
	Args: cobra.ExactArgs(1),
	RunE: runCompare,
}

func init() {
	rootCmd.AddCommand(compareCmd)
	compareCmd.Flags().StringVarP(&compareFormat, "format", "f", "", "output format (cli, json)")
}

type scenarioFile struct {
	Scenarios []scenarioEntry `json:"scenarios"`
}

type scenarioEntry struct {
	Name               string   `json:"name"`
	ServiceType        string   `json:"service_type"`
	TransactionVolume  int      `json:"transaction_volume"`
	FilingFrequency    string   `json:"filing_frequency"`
	CountryCodes       []string `json:"country_codes"`
	AdditionalServices []string `json:"additional_services"`
	AsOf               string   `json:"as_of"`
}

// readScenarios decodes a scenario file into engine scenarios
func readScenarios(path string) ([]engine.Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenarios: %w", err)
	}

	var file scenarioFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse scenarios: %w", err)
	}

	out := make([]engine.Scenario, 0, len(file.Scenarios))
	for _, s := range file.Scenarios {
		service, err := types.ParseServiceType(s.ServiceType)
		if err != nil {
			return nil, fmt.Errorf("scenario %q: %w", s.Name, err)
		}
		freq, err := types.ParseFilingFrequency(s.FilingFrequency)
		if err != nil {
			return nil, fmt.Errorf("scenario %q: %w", s.Name, err)
		}
		asOf, err := catalog.ParseAsOf(s.AsOf)
		if err != nil {
			return nil, fmt.Errorf("scenario %q: invalid as_of: %w", s.Name, err)
		}
		out = append(out, engine.Scenario{
			Name: s.Name,
			Request: types.CalculationContext{
				ServiceType:        service,
				TransactionVolume:  s.TransactionVolume,
				FilingFrequency:    freq,
				CountryCodes:       s.CountryCodes,
				AdditionalServices: s.AdditionalServices,
				AsOf:               asOf,
			},
		})
	}
	return out, nil
}

func runCompare(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	scenarios, err := readScenarios(args[0])
	if err != nil {
		return err
	}
	f, err := formatter(compareFormat)
	if err != nil {
		return err
	}

	eng, _, err := loadEngine()
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}

	cmp, err := eng.Compare(ctx, scenarios)
	if err != nil {
		return err
	}
	return f.RenderComparison(cmd.OutOrStdout(), cmp)
}
