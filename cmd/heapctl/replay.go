package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/joshuapare/heapkit/heap/alloc"
	"github.com/joshuapare/heapkit/heap/dirty"
	"github.com/joshuapare/heapkit/internal/config"
	"github.com/joshuapare/heapkit/internal/logger"
	"github.com/joshuapare/heapkit/internal/metrics"
	"github.com/joshuapare/heapkit/internal/trace"
)

var (
	replayAllocator  string
	replayFit        string
	replayArena      string
	replayLimit      int
	replayChunk      int
	replayDebug      bool
	replayCheckEvery int
	replayImage      string
	replayMetrics    bool
)

func init() {
	cmd := newReplayCmd()
	cmd.Flags().StringVar(&replayAllocator, "allocator", "", "Allocator: implicit or naive")
	cmd.Flags().StringVar(&replayFit, "fit", "", "Fit policy: first or best")
	cmd.Flags().StringVar(&replayArena, "arena", "", "Arena: mem or mmap")
	cmd.Flags().IntVar(&replayLimit, "limit", 0, "Arena limit in bytes")
	cmd.Flags().IntVar(&replayChunk, "chunk", 0, "Minimum heap growth in bytes")
	cmd.Flags().BoolVar(&replayDebug, "debug", false, "Track live pointers and report bad releases")
	cmd.Flags().IntVar(&replayCheckEvery, "check-every", 0, "Run the heap checker every N ops")
	cmd.Flags().StringVar(&replayImage, "image", "", "Write the final heap image to this file (single trace only)")
	cmd.Flags().BoolVar(&replayMetrics, "metrics", false, "Print allocator metrics in Prometheus text format")
	rootCmd.AddCommand(cmd)
}

func newReplayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay <trace>...",
		Short: "Replay traces and report utilization and throughput",
		Long: `The replay command runs each trace against a fresh heap, fills every
payload with a pattern, and verifies the pattern's checksum whenever a block is
resized or released. It reports utilization (peak live bytes over final heap
size) and throughput for each trace, then the averages.

Flags override values from the configuration file.

Example:
  heapctl replay traces/*.rep
  heapctl replay short1.rep --fit best --check-every 1
  heapctl replay short1.rep --allocator naive --json
  heapctl replay short1.rep --image heap.img --metrics`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := replayConfig(cmd)
			if err != nil {
				return err
			}
			return runReplay(cmd.Context(), c, args)
		},
	}
	return cmd
}

// replayConfig layers changed flags over the loaded configuration.
func replayConfig(cmd *cobra.Command) (*config.Config, error) {
	c := *cfg
	flags := cmd.Flags()
	if flags.Changed("allocator") {
		c.Allocator = replayAllocator
	}
	if flags.Changed("fit") {
		c.Fit = replayFit
	}
	if flags.Changed("arena") {
		c.Arena.Kind = replayArena
	}
	if flags.Changed("limit") {
		c.Arena.Limit = replayLimit
	}
	if flags.Changed("chunk") {
		c.ChunkSize = replayChunk
	}
	if flags.Changed("debug") {
		c.Debug = replayDebug
	}
	if flags.Changed("check-every") {
		c.CheckEvery = replayCheckEvery
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// replayReport is one trace's outcome.
type replayReport struct {
	Trace       string      `json:"trace"`
	Allocator   string      `json:"allocator"`
	Fit         string      `json:"fit,omitempty"`
	Ops         int         `json:"ops"`
	Weight      int         `json:"weight"`
	HeapSize    int         `json:"heap_size"`
	PeakLive    int64       `json:"peak_live"`
	Utilization float64     `json:"utilization"`
	Seconds     float64     `json:"seconds"`
	Throughput  float64     `json:"ops_per_sec"`
	Stats       alloc.Stats `json:"stats"`
	Error       string      `json:"error,omitempty"`
}

func runReplay(ctx context.Context, c *config.Config, paths []string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if replayImage != "" && len(paths) != 1 {
		return errors.New("--image needs exactly one trace")
	}

	reg := prometheus.NewRegistry()
	var reports []replayReport
	var failed error

	for _, path := range paths {
		rep, err := replayOne(ctx, c, path, reg)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			rep.Error = err.Error()
			failed = errors.Join(failed, fmt.Errorf("%s: %w", path, err))
		}
		reports = append(reports, rep)
	}

	if jsonOut {
		if err := printJSON(reports); err != nil {
			return err
		}
	} else {
		printReports(reports)
	}

	if replayMetrics {
		if err := metrics.Write(os.Stdout, reg); err != nil {
			return fmt.Errorf("failed to write metrics: %w", err)
		}
	}
	return failed
}

func replayOne(ctx context.Context, c *config.Config, path string, reg *prometheus.Registry) (replayReport, error) {
	rep := replayReport{Trace: filepath.Base(path), Allocator: c.Allocator}
	if c.Allocator != string(alloc.KindNaive) {
		rep.Fit = c.Fit
	}

	printVerbose("Loading trace: %s\n", path)
	tr, err := trace.ParseFile(path)
	if err != nil {
		return rep, err
	}
	rep.Ops, rep.Weight = len(tr.Ops), tr.Weight

	ar, err := c.NewArena()
	if err != nil {
		return rep, err
	}
	defer ar.Close()

	opts, err := c.AllocOptions(logger.L.With("trace", rep.Trace))
	if err != nil {
		return rep, err
	}
	kind, err := alloc.ParseKind(c.Allocator)
	if err != nil {
		return rep, err
	}
	var dt *dirty.Tracker
	if replayImage != "" {
		if kind != alloc.KindImplicit {
			return rep, fmt.Errorf("--image needs the %s allocator, got %s", alloc.KindImplicit, kind)
		}
		dt = dirty.NewTracker()
		opts.Dirty = dt
	}
	a, err := alloc.New(kind, ar, opts)
	if err != nil {
		return rep, err
	}

	if replayMetrics {
		col := metrics.NewCollector(a, prometheus.Labels{"trace": rep.Trace, "allocator": c.Allocator})
		if err := reg.Register(col); err != nil {
			return rep, fmt.Errorf("failed to register metrics: %w", err)
		}
	}

	res, err := trace.Replay(ctx, a, tr, trace.Options{CheckEvery: c.CheckEvery, Logger: logger.L})
	if err != nil {
		rep.Stats = a.Stats()
		return rep, err
	}
	rep.HeapSize = res.HeapSize
	rep.PeakLive = res.PeakLive
	rep.Utilization = res.Utilization()
	rep.Seconds = res.Elapsed.Seconds()
	rep.Throughput = res.Throughput()
	rep.Stats = res.Stats

	if dt != nil {
		if err := writeImage(ctx, replayImage, dt, ar.Bytes()); err != nil {
			return rep, err
		}
		printVerbose("Wrote heap image: %s (%d bytes)\n", replayImage, len(ar.Bytes()))
	}
	return rep, nil
}

// writeImage flushes the pages the allocator touched to path.
func writeImage(ctx context.Context, path string, dt *dirty.Tracker, data []byte) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create image: %w", err)
	}
	if err := dt.Flush(ctx, f, data); err != nil {
		f.Close()
		return fmt.Errorf("failed to write image: %w", err)
	}
	return f.Close()
}

func printReports(reports []replayReport) {
	printInfo("%-20s %-9s %-6s %10s %12s %12s %7s %14s\n",
		"trace", "allocator", "fit", "ops", "heap", "peak live", "util", "ops/sec")

	var util, secs float64
	var ops, ok int
	for _, r := range reports {
		if r.Error != "" {
			printInfo("%-20s %-9s %-6s FAILED: %s\n", r.Trace, r.Allocator, r.Fit, r.Error)
			continue
		}
		printInfo("%-20s %-9s %-6s %10d %12d %12d %6.1f%% %14.0f\n",
			r.Trace, r.Allocator, r.Fit, r.Ops, r.HeapSize, r.PeakLive, 100*r.Utilization, r.Throughput)
		printVerbose("  grows=%d splits=%d coalesces=%d probes=%d in-place=%d moved=%d\n",
			r.Stats.GrowCalls, r.Stats.SplitCount,
			r.Stats.CoalesceForward+r.Stats.CoalesceBackward+r.Stats.CoalesceBoth,
			r.Stats.FitProbes, r.Stats.ReallocInPlace, r.Stats.ReallocMoved)
		util += r.Utilization
		secs += r.Seconds
		ops += r.Ops
		ok++
	}

	if ok > 1 {
		tput := 0.0
		if secs > 0 {
			tput = float64(ops) / secs
		}
		printInfo("%-20s %-9s %-6s %10d %12s %12s %6.1f%% %14.0f\n",
			"total", "", "", ops, "", "", 100*util/float64(ok), tput)
	}
}
