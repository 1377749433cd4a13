package main

import (
	"bytes"
	"os"
	"testing"

	"github.com/spf13/pflag"
)

// captureOutput captures stdout while running a function
func captureOutput(t *testing.T, fn func() error) (string, error) {
	t.Helper()
	return capture(t, &os.Stdout, fn)
}

// captureStderr captures stderr while running a function
func captureStderr(t *testing.T, fn func() error) (string, error) {
	t.Helper()
	return capture(t, &os.Stderr, fn)
}

func capture(t *testing.T, target **os.File, fn func() error) (string, error) {
	t.Helper()

	orig := *target
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("failed to create pipe: %v", err)
	}
	*target = w

	// Drain concurrently so large outputs cannot fill the pipe.
	done := make(chan *bytes.Buffer)
	go func() {
		var buf bytes.Buffer
		_, _ = buf.ReadFrom(r)
		done <- &buf
	}()

	fnErr := fn()

	w.Close()
	*target = orig
	return (<-done).String(), fnErr
}

// resetFlags restores every global flag to its default.
func resetFlags(t *testing.T) {
	t.Helper()
	reset := func() {
		verbose, quiet, jsonOut = false, false, false
		configPath, logLevel = "", ""
		replayAllocator, replayFit, replayArena = "", "", ""
		replayLimit, replayChunk, replayCheckEvery = 0, 0, 0
		replayDebug, replayMetrics = false, false
		replayImage = ""
		configOutput = ""
		rootCmd.SetArgs(nil)
		restore := func(f *pflag.Flag) {
			_ = f.Value.Set(f.DefValue)
			f.Changed = false
		}
		rootCmd.PersistentFlags().VisitAll(restore)
		for _, c := range rootCmd.Commands() {
			c.Flags().VisitAll(restore)
		}
	}
	reset()
	t.Cleanup(reset)
}
