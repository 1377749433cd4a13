package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configOutput string

func init() {
	cmd := newConfigCmd()
	cmd.Flags().StringVarP(&configOutput, "output", "o", "", "Write the configuration here instead of stdout")
	rootCmd.AddCommand(cmd)
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long: `The config command prints the configuration heapctl would run with: the
built-in defaults, overlaid with the file named by --config. The output is
valid TOML and can seed a new configuration file.

Example:
  heapctl config -o heapctl.toml
  heapctl config --config heapctl.toml --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfig(configOutput)
		},
	}
}

func runConfig(output string) error {
	if output != "" {
		if err := cfg.Write(output); err != nil {
			return fmt.Errorf("failed to write configuration: %w", err)
		}
		printVerbose("Wrote configuration to %s\n", output)
		return nil
	}
	if jsonOut {
		return printJSON(cfg)
	}
	return cfg.Encode(os.Stdout)
}
