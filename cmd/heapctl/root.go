package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/joshuapare/heapkit/internal/config"
	"github.com/joshuapare/heapkit/internal/logger"
)

var (
	// Global flags
	verbose    bool
	quiet      bool
	jsonOut    bool
	configPath string
	logLevel   string

	// cfg is loaded in PersistentPreRunE before any subcommand runs.
	cfg = config.Default()

	// printer groups digits in human-readable output.
	printer = message.NewPrinter(language.English)
)

var rootCmd = &cobra.Command{
	Use:   "heapctl",
	Short: "Replay allocator traces and inspect heap images",
	Long: `heapctl drives the boundary-tag heap allocator: it replays malloc-lab
style traces with payload integrity checks, generates random traces, and
validates heap images written by earlier runs.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setup()
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return logger.Close()
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().
		BoolVarP(&quiet, "quiet", "q", false, "Suppress all output except errors")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "TOML configuration file")
	rootCmd.PersistentFlags().
		StringVar(&logLevel, "log-level", "", "Enable logging to stderr at this level (debug, info, warn, error)")
}

// setup loads the configuration file and initializes logging.
func setup() error {
	c, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if logLevel != "" {
		c.Log.Enabled = true
		c.Log.Level = logLevel
	}
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	lopts, err := c.LoggerOptions()
	if err != nil {
		return err
	}
	if err := logger.Init(lopts); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	switch {
	case c.Source != "":
		logger.Info("loaded configuration", "path", c.Source)
	case configPath != "":
		logger.Warn("config file not found, using defaults", "path", configPath)
	}
	cfg = c
	return nil
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		printError("%v\n", err)
		os.Exit(1)
	}
}

// Helper functions for output

// printInfo prints an info message if not in quiet mode
func printInfo(format string, args ...interface{}) {
	if !quiet {
		printer.Fprintf(os.Stdout, format, args...)
	}
}

// printError prints an error message
func printError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format, args...)
}

// printVerbose prints a verbose message if verbose mode is enabled
func printVerbose(format string, args ...interface{}) {
	if verbose && !quiet {
		printer.Fprintf(os.Stdout, format, args...)
	}
}

// printJSON outputs data as JSON
func printJSON(v interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
