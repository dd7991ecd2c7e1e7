package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// completionCommand prints a shell completion script on stdout.
func (c *CLI) completionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate a shell completion script for kinetic.

Scene arguments complete to .toml, .yaml and .yml files.

  bash        source <(kinetic completion bash)
  zsh         kinetic completion zsh > "${fpath[1]}/_kinetic"
  fish        kinetic completion fish > ~/.config/fish/completions/kinetic.fish
  powershell  kinetic completion powershell | Out-String | Invoke-Expression

Start a new shell after installing the script.`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, out := cmd.Root(), cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return root.GenBashCompletionV2(out, true)
			case "zsh":
				return root.GenZshCompletion(out)
			case "fish":
				return root.GenFishCompletion(out, true)
			case "powershell":
				return root.GenPowerShellCompletionWithDesc(out)
			}
			return fmt.Errorf("unsupported shell %q", args[0])
		},
	}
}

// completeScenes restricts file completion to scene files. It is installed as
// ValidArgsFunction on commands taking scene paths.
func completeScenes(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return []string{"toml", "yaml", "yml"}, cobra.ShellCompDirectiveFilterFileExt
}
