package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joshuapare/heapkit/heap/verify"
	"github.com/joshuapare/heapkit/internal/mmfile"
)

func init() {
	rootCmd.AddCommand(newCheckCmd())
}

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <image>...",
		Short: "Validate heap images",
		Long: `The check command maps each heap image read-only and validates every
heap invariant: prologue and epilogue sentinels, 16-byte alignment, matching
header and footer tags, no two adjacent free blocks, and blocks that tile the
image exactly.

Example:
  heapctl replay short1.rep --image heap.img
  heapctl check heap.img
  heapctl check heap.img --json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(args)
		},
	}
}

type checkResult struct {
	File    string          `json:"file"`
	Valid   bool            `json:"valid"`
	Summary *verify.Summary `json:"summary,omitempty"`
	Error   string          `json:"error,omitempty"`
}

func runCheck(paths []string) error {
	var results []checkResult
	var failed error

	for _, path := range paths {
		res := checkResult{File: path}
		sum, err := checkImage(path)
		if err == nil {
			res.Valid = true
			res.Summary = &sum
		} else {
			res.Error = err.Error()
			failed = errors.Join(failed, fmt.Errorf("%s: %w", path, err))
		}
		results = append(results, res)
	}

	if jsonOut {
		if err := printJSON(results); err != nil {
			return err
		}
		return failed
	}

	for _, r := range results {
		if !r.Valid {
			printInfo("%s: ✗ INVALID\n  %s\n", r.File, r.Error)
			continue
		}
		s := r.Summary
		printInfo("%s: ✓ VALID\n", r.File)
		printInfo("  heap size     %d bytes\n", s.HeapSize)
		printInfo("  blocks        %d (%d allocated, %d free)\n", s.Blocks, s.AllocBlocks, s.FreeBlocks)
		printInfo("  allocated     %d bytes (%d requested)\n", s.AllocBytes, s.RequestedBytes)
		printInfo("  free          %d bytes (largest %d)\n", s.FreeBytes, s.LargestFree)
		printInfo("  utilization   %.1f%%\n", 100*s.Utilization())
	}
	return failed
}

func checkImage(path string) (verify.Summary, error) {
	printVerbose("Mapping image: %s\n", path)
	data, cleanup, err := mmfile.Map(path)
	if err != nil {
		return verify.Summary{}, err
	}
	defer cleanup()

	return verify.Summarize(data)
}
