// Command wbctl computes irrigation plans offline from YAML plan requests
// that carry their own inputs.
//
// Usage:
//
//	wbctl plan field.yaml
//	wbctl solve field.yaml --target 250
//	wbctl windows
package main

import (
	"io"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}

// options are the flags shared by every subcommand.
type options struct {
	json  bool
	units string
}

func newRootCmd(out io.Writer) *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:          "wbctl",
		Short:        "Seasonal irrigation water budget calculator",
		SilenceUsage: true,
	}
	rootCmd.SetOut(out)
	rootCmd.PersistentFlags().BoolVar(&opts.json, "json", false, "print the full report as JSON")
	rootCmd.PersistentFlags().StringVar(&opts.units, "units", "", "override the request's unit system (metric or imperial)")

	rootCmd.AddCommand(planCmd(opts))
	rootCmd.AddCommand(solveCmd(opts))
	rootCmd.AddCommand(windowsCmd(opts))
	return rootCmd
}
