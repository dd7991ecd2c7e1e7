package cli

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"

	"github.com/matzehuels/kinetic/pkg/scene"
)

// validateCommand creates the validate command.
func (c *CLI) validateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [scene...]",
		Short: "Check scene files without playing them",
		Long: `Check scene files without playing them.

Each scene is decoded strictly, then its setup and every scripted frame are
applied to a scratch engine. All problems are reported, not just the first.`,
		Args:              cobra.MinimumNArgs(1),
		ValidArgsFunction: completeScenes,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runValidate(args)
		},
	}
}

func (c *CLI) runValidate(paths []string) error {
	var result *multierror.Error
	for _, path := range paths {
		s, err := scene.Load(path)
		if err == nil {
			err = s.Validate()
		}
		if err != nil {
			printError("%s", path)
			printDetail("%v", err)
			result = multierror.Append(result, fmt.Errorf("%s: %w", path, err))
			continue
		}
		printSuccess("%s", path)
		printDetail("%s · %d nodes · %d frames · %d scripted", s.Name, len(s.Nodes), s.Frames, len(s.Script))
		c.Logger.Debug("scene valid", "path", path, "hash", s.Hash())
	}
	if result != nil {
		return fmt.Errorf("%d of %d scene(s) invalid", len(result.Errors), len(paths))
	}
	return nil
}
