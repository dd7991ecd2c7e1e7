package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/kinetic/pkg/pipeline"
)

// graphCommand creates the graph command for exporting a scene's graph.
func (c *CLI) graphCommand() *cobra.Command {
	var (
		formatsStr string
		output     string
		noCache    bool
	)
	opts := pipeline.RenderOptions{RankDir: "TB", Scale: 2}

	cmd := &cobra.Command{
		Use:   "graph [scene]",
		Short: "Export a scene's node graph as DOT, SVG, PNG, PDF or JSON",
		Long: `Export a scene's node graph as DOT, SVG, PNG, PDF or JSON.

The scene is played up to --frame and the graph is drawn as it stands then:
nodes with their kinds (and values with --values), dependency edges, the
views Props nodes drive and the events Event nodes handle. JSON exports the
raw snapshot.

SVG is laid out with Graphviz. PNG and PDF additionally need rsvg-convert.
Results are cached locally for faster subsequent runs.`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeScenes,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Formats = parseFormats(formatsStr)
			if err := pipeline.ValidateFormats(opts.Formats); err != nil {
				return err
			}
			return c.runGraph(cmd.Context(), args[0], opts, output, noCache)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (single format) or base path (multiple)")
	cmd.Flags().StringVarP(&formatsStr, "format", "f", "", "output format(s): svg (default), dot, png, pdf, json (comma-separated)")
	cmd.Flags().IntVar(&opts.Frame, "frame", 0, "play frames up to and including this one before exporting")
	cmd.Flags().StringVar(&opts.RankDir, "rankdir", opts.RankDir, "graph direction: TB, LR, BT, RL")
	cmd.Flags().BoolVar(&opts.ShowValues, "values", false, "show cached values in node labels")
	cmd.Flags().Float64Var(&opts.Scale, "scale", opts.Scale, "PNG scale factor")
	cmd.Flags().BoolVar(&opts.Refresh, "refresh", false, "ignore cached artifacts")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")

	return cmd
}

// runGraph loads the scene, renders the requested formats and writes them.
func (c *CLI) runGraph(ctx context.Context, input string, opts pipeline.RenderOptions, output string, noCache bool) error {
	s, err := c.loadScene(input)
	if err != nil {
		return err
	}

	runner, err := c.newRunner(ctx, noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	spinner := newSpinner(ctx, os.Stderr, fmt.Sprintf("Rendering %s at frame %d...", s.Name, opts.Frame))
	spinner.Start()

	artifacts, cacheHit, err := runner.RenderGraphWithCacheInfo(ctx, s, opts)
	if err != nil {
		if spinner.Canceled() {
			spinner.Stop()
			return ctx.Err()
		}
		spinner.Fail("Export failed")
		return fmt.Errorf("graph: %w", err)
	}
	spinner.Stop()

	paths, err := writeArtifacts(artifacts, opts.Formats, input, output)
	if err != nil {
		return err
	}

	printSuccess("Graph exported")
	for _, p := range paths {
		printFile(p)
	}
	printStatusLine([]string{fmt.Sprintf("%d nodes", len(s.Nodes)), fmt.Sprintf("frame %d", opts.Frame)}, cacheHit)
	return nil
}

// writeArtifacts writes one file per format. A single format goes to output
// as given; several formats share the base path with per-format extensions.
func writeArtifacts(artifacts map[string][]byte, formats []string, input, output string) ([]string, error) {
	var paths []string
	for _, format := range formats {
		path := basePath(output, input) + "." + format
		if len(formats) == 1 && output != "" {
			path = output
		}
		if err := os.WriteFile(path, artifacts[format], 0o644); err != nil {
			return paths, fmt.Errorf("write output %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
