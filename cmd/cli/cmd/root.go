// Package cmd provides the CLI commands for vat-cost.
package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"vat-cost/adapters/storage"
	"vat-cost/core/catalog"
	"vat-cost/core/engine"
	"vat-cost/core/output"
	"vat-cost/internal/config"
	"vat-cost/internal/logging"
)

// Version is set at build time
var Version = "0.1.0"

var (
	cfgFile     string
	catalogPath string
	verbose     bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "vat-cost",
	Short: "Quote VAT filing services across countries",
	Long: `vat-cost prices VAT filing services for one or more countries.

Each country starts from the service base price and applies its own
effective rules (VAT rate, thresholds, complexity, special requirements)
from a versioned HCL catalog. Volume and multi-country discounts are
applied to the combined subtotal.

Examples:
  vat-cost quote --service standard --volume 1500 --countries GB,DE,FR
  vat-cost quote --countries GB --addons fiscalRep --format json
  vat-cost compare scenarios.json
  vat-cost catalog validate ./catalog
  vat-cost eval "basePrice * standardVatRate / 100" --country DE`,
	SilenceUsage: true,
}

// Execute runs the CLI
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.vat-cost/config.json)")
	rootCmd.PersistentFlags().StringVar(&catalogPath, "catalog", "", "catalog file or directory (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")

	rootCmd.AddCommand(versionCmd)
}

func initConfig() {
	path := cfgFile
	if path == "" {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, ".vat-cost", "config.json")
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.LoadEnv(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading environment: %v\n", err)
		os.Exit(1)
	}
	if catalogPath != "" {
		cfg.Catalog.Path = catalogPath
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid config: %v\n", err)
		os.Exit(1)
	}
	config.Set(cfg)

	if verbose {
		cfg.Logging.Level = "debug"
	}
	if err := logging.Initialize(cfg.Logging); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logging: %v\n", err)
	}
}

// loadEngine builds an engine over the configured catalog
func loadEngine() (*engine.Engine, *catalog.Snapshot, error) {
	cfg := config.Get()
	snap, err := catalog.LoadHCL(cfg.Catalog.Path)
	if err != nil {
		return nil, nil, err
	}
	return engine.New(snap, cfg.Engine(), logging.Logger), snap, nil
}

// openStore opens the calculation history database
func openStore() (storage.Store, error) {
	cfg := config.Get()
	if !cfg.Storage.Enabled {
		return nil, fmt.Errorf("calculation history is disabled (storage.enabled=false)")
	}
	return storage.Open(storage.BackendSQLite, cfg.Storage.Path)
}

func formatter(format string) (output.Formatter, error) {
	cfg := config.Get()
	if format == "" {
		format = cfg.Output.DefaultFormat
	}
	return output.NewRegistry(cfg.Pricing.RoundingPlaces).Get(format)
}

// versionCmd prints version information
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "vat-cost version %s\n", Version)
	},
}
