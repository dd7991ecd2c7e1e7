// Package cli implements the kinetic command-line interface.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/kinetic/pkg/buildinfo"
	"github.com/matzehuels/kinetic/pkg/cache"
	"github.com/matzehuels/kinetic/pkg/pipeline"
	"github.com/matzehuels/kinetic/pkg/scene"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "kinetic"

	// redisEnv selects the Redis cache backend when --redis is not given.
	redisEnv = "KINETIC_REDIS_URL"

	// defaultInspectAddr is where serve exposes the inspector.
	defaultInspectAddr = "127.0.0.1:7070"
)

// Log levels accepted by New.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// redisURL is bound to the persistent --redis flag.
	redisURL string
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           appName,
		Short:         "Kinetic runs reactive animation graphs",
		Long:          `Kinetic is a runtime for declarative animation dataflow graphs. Scenes describe nodes, their wiring to views and a frame-indexed script; kinetic plays them headless, serves them live with an HTTP inspector, and exports the graph with Graphviz.`,
		Version:       buildinfo.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	var verbose bool
	root.PersistentPreRun = func(*cobra.Command, []string) {
		if verbose {
			c.SetLogLevel(LogDebug)
		}
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	root.PersistentFlags().StringVar(&c.redisURL, "redis", os.Getenv(redisEnv), "Redis URL for the cache (default $"+redisEnv+", else a file cache)")

	root.AddCommand(c.runCommand())
	root.AddCommand(c.validateCommand())
	root.AddCommand(c.graphCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.watchCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner(ctx context.Context, noCache bool) (*pipeline.Runner, error) {
	store, err := c.newCache(ctx, noCache)
	if err != nil {
		return nil, err
	}
	// Results depend on evaluation semantics, so entries never cross versions.
	keyer := cache.NewScopedKeyer(cache.NewDefaultKeyer(), buildinfo.Version+":")
	return pipeline.NewRunner(store, keyer, c.Logger), nil
}

// newCache picks the cache backend: none, Redis when a URL is configured,
// otherwise a file cache under cacheDir.
func (c *CLI) newCache(ctx context.Context, noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	if c.redisURL != "" {
		rc, err := cache.NewRedisCache(ctx, cache.RedisConfig{URL: c.redisURL})
		if err != nil {
			return nil, fmt.Errorf("open redis cache: %w", err)
		}
		return rc, nil
	}
	dir, err := cacheDir()
	if err != nil {
		c.Logger.Warn("no cache directory, caching disabled", "error", err)
		return cache.NewNullCache(), nil
	}
	return cache.NewFileCache(dir)
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/kinetic/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// basePath derives the base output path from the output and input file paths.
// If output is empty, it strips the extension from input.
// If output has a format extension (.svg, .dot, etc.), it strips that extension.
func basePath(output, input string) string {
	if output == "" {
		return strings.TrimSuffix(input, filepath.Ext(input))
	}
	ext := filepath.Ext(output)
	if pipeline.ValidFormats[strings.TrimPrefix(ext, ".")] {
		return strings.TrimSuffix(output, ext)
	}
	return output
}

// =============================================================================
// Options Helpers
// =============================================================================

// parseFormats parses a comma-separated format string into a slice.
func parseFormats(s string) []string {
	if s == "" {
		return []string{pipeline.FormatSVG}
	}
	return strings.Split(s, ",")
}

// loadScene reads and validates a scene file.
func (c *CLI) loadScene(path string) (*scene.Scene, error) {
	s, err := scene.Load(path)
	if err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	c.Logger.Debug("scene loaded", "scene", s.Name, "nodes", len(s.Nodes), "frames", s.Frames, "hash", s.Hash()[:12])
	return s, nil
}
