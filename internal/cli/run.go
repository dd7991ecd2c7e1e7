package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/kinetic/pkg/pipeline"
)

// runCommand creates the run command for headless playback.
func (c *CLI) runCommand() *cobra.Command {
	var (
		opts    pipeline.PlayOptions
		noCache bool
		asJSON  bool
		output  string
	)

	cmd := &cobra.Command{
		Use:   "run [scene]",
		Short: "Play a scene headless and print what each frame delivered",
		Long: `Play a scene headless and print what each frame delivered.

The scene's setup commands are applied on frame 0 and its script on the
frames it names. Every host callback (native attribute updates, props
changes, events, calls, getValue answers and rejected commands) is printed
with its frame. Frames that delivered nothing are skipped.

Playbacks are deterministic, so results are cached by scene content and
frame count unless --realtime is set.`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeScenes,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runRun(cmd.Context(), args[0], opts, noCache, asJSON, output)
		},
	}

	cmd.Flags().IntVarP(&opts.Frames, "frames", "n", 0, "number of frames to play (default: the scene's frame count)")
	cmd.Flags().BoolVar(&opts.Realtime, "realtime", false, "pace frames at the scene's frame interval")
	cmd.Flags().BoolVar(&opts.Refresh, "refresh", false, "ignore cached results")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the JSON result to a file")

	return cmd
}

// runRun loads the scene, plays it and prints the frame log.
func (c *CLI) runRun(ctx context.Context, input string, opts pipeline.PlayOptions, noCache, asJSON bool, output string) error {
	s, err := c.loadScene(input)
	if err != nil {
		return err
	}

	runner, err := c.newRunner(ctx, noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	prog := newProgress(c.Logger)
	spinner := newSpinner(ctx, os.Stderr, fmt.Sprintf("Playing %s...", s.Name))
	if !opts.Realtime {
		spinner.Start()
	}
	result, err := runner.Play(ctx, s, opts)
	spinner.Stop()
	if err != nil {
		return err
	}
	prog.done(fmt.Sprintf("Played %d frames of %s", result.Stats.Frames, s.Name))

	if asJSON || output != "" {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("encode result: %w", err)
		}
		if output == "" {
			fmt.Println(string(data))
			return nil
		}
		if err := os.WriteFile(output, data, 0o644); err != nil {
			return fmt.Errorf("write output %s: %w", output, err)
		}
		printSuccess("Playback complete")
		printFile(output)
		printPlayStats(result.Stats, result.CacheHit)
		return nil
	}

	printKeyValue("scene", s.Name)
	printKeyValue("run", result.RunID)
	printNewline()
	for _, f := range result.Frames {
		printFrame(f)
	}
	if len(result.Frames) == 0 {
		printInfo("No host callbacks")
	}
	printNewline()
	printPlayStats(result.Stats, result.CacheHit)
	if result.Stats.Rejected > 0 {
		printWarning("%d command(s) were rejected", result.Stats.Rejected)
	}
	return nil
}
