// Package main is the entry point for the vat-cost CLI.
package main

import (
	"os"

	"vat-cost/cmd/cli/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
