// Package config loads heapctl settings from TOML.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/joshuapare/heapkit/heap/alloc"
	"github.com/joshuapare/heapkit/heap/arena"
	"github.com/joshuapare/heapkit/internal/format"
	"github.com/joshuapare/heapkit/internal/logger"
)

// ArenaConfiguration selects the backing region.
type ArenaConfiguration struct {
	Kind  string `toml:"kind"`  // "mem" or "mmap"
	Limit int    `toml:"limit"` // Maximum arena bytes
}

// LogConfiguration controls structured logging.
type LogConfiguration struct {
	Enabled bool   `toml:"enabled"`
	Level   string `toml:"level"` // debug, info, warn, error
	Dir     string `toml:"dir"`   // Daily log files here; empty logs to stderr
	JSON    bool   `toml:"json"`
}

// Config is the full heapctl configuration.
type Config struct {
	Allocator  string             `toml:"allocator"`   // "implicit" or "naive"
	Fit        string             `toml:"fit"`         // "first" or "best"
	ChunkSize  int                `toml:"chunk_size"`  // Minimum growth in bytes
	Debug      bool               `toml:"debug"`       // Live-pointer tracking
	CheckEvery int                `toml:"check_every"` // Run Check every N trace ops; 0 = only at the end
	Arena      ArenaConfiguration `toml:"arena"`
	Log        LogConfiguration   `toml:"log"`

	// Source is the file Load decoded, or empty when only defaults apply.
	Source string `toml:"-"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Allocator: string(alloc.KindImplicit),
		Fit:       alloc.FirstFit.String(),
		ChunkSize: format.DefaultChunkSize,
		Arena: ArenaConfiguration{
			Kind:  string(arena.KindMem),
			Limit: arena.DefaultLimit,
		},
		Log: LogConfiguration{Level: "info"},
	}
}

// Load decodes path over Default(). A missing file is not an error: the
// defaults are returned as-is with an empty Source. An empty path skips the
// file entirely.
func Load(path string) (*Config, error) {
	c := Default()
	if path == "" {
		return c, nil
	}
	md, err := toml.DecodeFile(path, c)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown config key %q", undecoded[0].String())
	}
	c.Source = path
	return c, nil
}

// Validate rejects values no component accepts.
func (c *Config) Validate() error {
	if _, err := alloc.ParseKind(c.Allocator); err != nil {
		return err
	}
	if _, err := alloc.ParseFit(c.Fit); err != nil {
		return err
	}
	if c.ChunkSize < 0 {
		return fmt.Errorf("chunk_size must be >= 0, got %d", c.ChunkSize)
	}
	if c.CheckEvery < 0 {
		return fmt.Errorf("check_every must be >= 0, got %d", c.CheckEvery)
	}
	if _, err := arena.ParseKind(c.Arena.Kind); err != nil {
		return err
	}
	if c.Arena.Limit < format.InitialSize {
		return fmt.Errorf("arena.limit must be >= %d, got %d", format.InitialSize, c.Arena.Limit)
	}
	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}

// AllocOptions builds allocator options. log may be nil.
func (c *Config) AllocOptions(log *slog.Logger) (alloc.Options, error) {
	fit, err := alloc.ParseFit(c.Fit)
	if err != nil {
		return alloc.Options{}, err
	}
	return alloc.Options{
		ChunkSize: c.ChunkSize,
		Fit:       fit,
		Debug:     c.Debug,
		Logger:    log,
	}, nil
}

// NewArena creates the configured arena.
func (c *Config) NewArena() (arena.Arena, error) {
	kind, err := arena.ParseKind(c.Arena.Kind)
	if err != nil {
		return nil, err
	}
	return arena.New(kind, c.Arena.Limit)
}

// LoggerOptions maps the log section onto logger.Options.
func (c *Config) LoggerOptions() (logger.Options, error) {
	lvl, err := logger.ParseLevel(c.Log.Level)
	if err != nil {
		return logger.Options{}, err
	}
	return logger.Options{
		Enabled: c.Log.Enabled,
		Dir:     c.Log.Dir,
		Level:   lvl,
		JSON:    c.Log.JSON,
	}, nil
}

// Encode writes c as TOML.
func (c *Config) Encode(w io.Writer) error {
	return toml.NewEncoder(w).Encode(c)
}

// Write encodes c as TOML to path.
func (c *Config) Write(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := c.Encode(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
