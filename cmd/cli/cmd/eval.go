// Package cmd - eval command
package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"vat-cost/core/expression"
	"vat-cost/core/types"
)

var (
	evalParams  []string
	evalCountry string
)

// evalCmd evaluates a rule expression for authoring and debugging
var evalCmd = &cobra.Command{
	Use:   "eval <expression>",
	Short: "Evaluate a rule expression",
	Long: `Evaluate an expression the way a catalog rule would.

Without --country the expression sees only the --param bindings. A param is
name=value (type inferred) or name:type=value with type one of string,
number, boolean, date.

With --country the expression sees the built-in variables a rule for that
country would see (basePrice, compoundedBase, standardVatRate, ...), computed
from the request flags.

Examples:
  vat-cost eval "volume > 1000 ? 50 : 0" --param volume=1500
  vat-cost eval "code == 'GB'" --param code:string=GB
  vat-cost eval "basePrice * standardVatRate / 100" --country DE --service basic`,
	Args: cobra.ExactArgs(1),
	RunE: runEval,
}

func init() {
	rootCmd.AddCommand(evalCmd)
	evalCmd.Flags().StringArrayVarP(&evalParams, "param", "p", nil, "variable binding name[:type]=value (repeatable)")
	evalCmd.Flags().StringVar(&evalCountry, "country", "", "evaluate with the built-in variables of this country")
	evalCmd.Flags().StringVarP(&quoteService, "service", "s", "standard", "service type for --country")
	evalCmd.Flags().IntVar(&quoteVolume, "volume", 1, "transactions per period for --country")
	evalCmd.Flags().StringVar(&quoteFrequency, "frequency", "monthly", "filing frequency for --country")
	evalCmd.Flags().StringSliceVar(&quoteAddons, "addons", nil, "additional services for --country")
	evalCmd.Flags().StringVar(&quoteAsOf, "as-of", "", "as-of date for --country")
}

func runEval(cmd *cobra.Command, args []string) error {
	src := args[0]

	if evalCountry != "" {
		if len(evalParams) > 0 {
			return fmt.Errorf("--param cannot be combined with --country")
		}
		return evalForCountry(cmd, src)
	}

	env := expression.NewEnv()
	for _, raw := range evalParams {
		name, v, err := parseParam(raw)
		if err != nil {
			return err
		}
		env.Set(name, v)
	}

	v, err := expression.Evaluate(src, env)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), v.String())
	return nil
}

func evalForCountry(cmd *cobra.Command, src string) error {
	quoteCountries = []string{strings.ToUpper(evalCountry)}
	req, err := requestFromFlags()
	if err != nil {
		return err
	}

	eng, _, err := loadEngine()
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}
	normalized, err := eng.Normalize(req)
	if err != nil {
		return err
	}

	v, err := eng.Calculator().Preview(normalized.CountryCodes[0], &normalized, src)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), v.String())
	return nil
}

// parseParam parses name=value or name:type=value
func parseParam(raw string) (string, expression.Value, error) {
	key, value, ok := strings.Cut(raw, "=")
	if !ok {
		return "", expression.Value{}, fmt.Errorf("invalid --param %q: expected name=value", raw)
	}
	name, dataType, typed := strings.Cut(strings.TrimSpace(key), ":")
	if name == "" {
		return "", expression.Value{}, fmt.Errorf("invalid --param %q: empty name", raw)
	}

	if typed {
		if !types.DataType(dataType).IsValid() {
			return "", expression.Value{}, fmt.Errorf("invalid --param %q: unknown type %q", raw, dataType)
		}
		v, err := expression.Coerce(value, dataType)
		if err != nil {
			return "", expression.Value{}, fmt.Errorf("invalid --param %q: %w", raw, err)
		}
		return name, v, nil
	}

	for _, dt := range []types.DataType{types.DataTypeNumber, types.DataTypeBoolean, types.DataTypeDate} {
		if v, err := expression.Coerce(value, string(dt)); err == nil {
			return name, v, nil
		}
	}
	return name, expression.String(value), nil
}
