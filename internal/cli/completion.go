package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/gitdeps/pkg/manifest"
)

// completionCommand creates the completion command for generating shell completions.
func (c *CLI) completionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate a shell completion script for gitdeps and write it to stdout.

  $ source <(gitdeps completion bash)
  $ gitdeps completion zsh > "${fpath[1]}/_gitdeps"
  $ gitdeps completion fish > ~/.config/fish/completions/gitdeps.fish
  PS> gitdeps completion powershell | Out-String | Invoke-Expression

Besides commands and flags, the scripts complete manifest files for
--manifest and the repositories of the current project for "refs".`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := cmd.Root()
			switch args[0] {
			case "bash":
				return root.GenBashCompletionV2(c.stdout, true)
			case "zsh":
				return root.GenZshCompletion(c.stdout)
			case "fish":
				return root.GenFishCompletion(c.stdout, true)
			default:
				return root.GenPowerShellCompletionWithDesc(c.stdout)
			}
		},
	}
}

// manifestExtensions are the file extensions --manifest completes to.
var manifestExtensions = []string{"json", "toml", "yaml", "yml"}

func completeManifest(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return manifestExtensions, cobra.ShellCompDirectiveFilterFileExt
}

// completeRepositories offers the repositories declared by the manifest of
// the working directory as the first argument of "refs".
func completeRepositories(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	wd, err := os.Getwd()
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return manifestRepositories(wd), cobra.ShellCompDirectiveNoFileComp
}

// manifestRepositories lists the repositories of the manifest found from dir,
// or nil when there is none.
func manifestRepositories(dir string) []string {
	path, err := manifest.Find(dir)
	if err != nil {
		return nil
	}
	m, err := manifest.Load(path)
	if err != nil {
		return nil
	}
	repos := make([]string, 0, len(m.Entries))
	for _, e := range m.Entries {
		repos = append(repos, e.Repository)
	}
	return repos
}
