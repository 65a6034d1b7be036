package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/gitdeps/pkg/repo"
	"github.com/matzehuels/gitdeps/pkg/version"
)

// refsCommand creates the refs diagnostics command.
func (c *CLI) refsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "refs <repository> [specifier]",
		Short: "List the refs of a repository and show how a specifier resolves",
		Example: `  gitdeps refs acme/widgets
  gitdeps refs acme/widgets "^1.2.0"
  gitdeps refs git://example.com/tools/lib.git main`,
		Args:              cobra.RangeArgs(1, 2),
		ValidArgsFunction: completeRepositories,
		RunE: func(cmd *cobra.Command, args []string) error {
			var spec string
			if len(args) == 2 {
				spec = args[1]
			}
			return c.runRefs(cmd, args[0], spec, len(args) == 2)
		},
	}
}

func (c *CLI) runRefs(cmd *cobra.Command, rawRepo, spec string, resolve bool) error {
	e, err := c.newEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	r, err := repo.Parse(rawRepo, e.cfg.HostedHosts)
	if err != nil {
		return err
	}

	set, err := e.resolver.Refs(cmd.Context(), r)
	if err != nil {
		return err
	}
	for _, ref := range set {
		fmt.Fprintln(c.stdout, ref)
	}

	printKeyValue(c.stderr, "repository", r.URL)
	printKeyValue(c.stderr, "backend", r.Kind.String())
	printKeyValue(c.stderr, "refs", fmt.Sprint(len(set)))
	if !resolve {
		return nil
	}

	treeish, _, err := e.fetcher.Resolve(cmd.Context(), r, spec)
	if err != nil {
		return err
	}
	kind := "treeish"
	if version.IsRange(spec) {
		kind = "range"
	}
	printKeyValue(c.stderr, kind, spec)
	printKeyValue(c.stderr, "resolves to", StyleHighlight.Render(treeish))
	return nil
}
