package alloc

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/joshuapare/heapkit/internal/format"
)

// Runtime debug flag for allocation logging - controlled by HEAP_LOG_ALLOC env var.
var logAlloc = os.Getenv("HEAP_LOG_ALLOC") != ""

// Fit selects the free-block search policy.
type Fit uint8

const (
	// FirstFit takes the lowest-addressed free block that is large enough.
	FirstFit Fit = iota
	// BestFit takes the smallest free block that is large enough, lowest address on ties.
	BestFit
)

func (f Fit) String() string {
	switch f {
	case FirstFit:
		return "first"
	case BestFit:
		return "best"
	default:
		return fmt.Sprintf("Fit(%d)", uint8(f))
	}
}

// ParseFit maps "first" or "best" to a Fit.
func ParseFit(s string) (Fit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "first", "first-fit":
		return FirstFit, nil
	case "best", "best-fit":
		return BestFit, nil
	default:
		return FirstFit, fmt.Errorf("alloc: unknown fit policy %q", s)
	}
}

// Options configures an allocator. The zero value is usable.
type Options struct {
	// ChunkSize is the minimum number of bytes requested from the arena when
	// the heap grows. Rounded up to 16; zero means format.DefaultChunkSize.
	ChunkSize int

	// Fit selects the free-block search policy (Implicit only).
	Fit Fit

	// Debug keeps a live-pointer set so bad releases are refused and
	// reported by Check.
	Debug bool

	// Dirty receives every byte range the allocator writes. May be nil.
	Dirty DirtyTracker

	// Logger receives growth and refusal events. Nil means discard, unless
	// HEAP_LOG_ALLOC is set, in which case debug output goes to stderr.
	Logger *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.ChunkSize <= 0 {
		o.ChunkSize = format.DefaultChunkSize
	}
	if o.ChunkSize > format.MaxBlockSize-format.AlignmentMask {
		o.ChunkSize = format.MaxBlockSize - format.AlignmentMask
	}
	o.ChunkSize = format.Align16(o.ChunkSize)
	if o.Logger == nil {
		o.Logger = defaultLogger()
	}
	return o
}

func defaultLogger() *slog.Logger {
	if logAlloc {
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})).
			With("component", "alloc")
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
