package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/joshuapare/heapkit/internal/trace"
)

var (
	genOpts   = trace.DefaultGenerateOptions()
	genOutput string
)

func init() {
	cmd := newGenCmd()
	cmd.Flags().Uint64Var(&genOpts.Seed, "seed", genOpts.Seed, "Random seed")
	cmd.Flags().IntVar(&genOpts.Ops, "ops", genOpts.Ops, "Operations before the closing releases")
	cmd.Flags().IntVar(&genOpts.MaxSize, "max-size", genOpts.MaxSize, "Largest request size in bytes")
	cmd.Flags().IntVar(&genOpts.FreePct, "free-pct", genOpts.FreePct, "Percent of ops that release a block")
	cmd.Flags().IntVar(&genOpts.ReallocPct, "realloc-pct", genOpts.ReallocPct, "Percent of ops that resize a block")
	cmd.Flags().StringVarP(&genOutput, "output", "o", "", "Write the trace here instead of stdout")
	rootCmd.AddCommand(cmd)
}

func newGenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "gen",
		Short: "Generate a random trace",
		Long: `The gen command writes a random trace in the replay format. The same
seed and options always produce the same trace, and every block is released
by the end.

Example:
  heapctl gen --seed 7 --ops 5000 -o random7.rep
  heapctl gen --max-size 64 --realloc-pct 40 | heapctl replay /dev/stdin`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGen(genOpts, genOutput)
		},
	}
}

func runGen(opts trace.GenerateOptions, output string) error {
	if opts.Ops < 0 || opts.MaxSize <= 0 {
		return fmt.Errorf("ops must be >= 0 and max-size > 0")
	}
	if opts.FreePct < 0 || opts.ReallocPct < 0 || opts.FreePct+opts.ReallocPct > 100 {
		return fmt.Errorf("free-pct and realloc-pct must be non-negative and sum to at most 100")
	}

	tr := trace.Generate(opts)

	var w io.Writer = os.Stdout
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("failed to create output: %w", err)
		}
		defer f.Close()
		w = f
	}
	if _, err := tr.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write trace: %w", err)
	}
	if output != "" {
		printVerbose("Wrote %d ops over %d ids to %s\n", len(tr.Ops), tr.NumIDs, output)
	}
	return nil
}
