package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/matzehuels/gitdeps/pkg/manifest"
	"github.com/matzehuels/gitdeps/pkg/pipeline"
)

// installCommand creates the install command, also run by the bare root command.
func (c *CLI) installCommand() *cobra.Command {
	var (
		manifestPath  string
		componentsDir string
		force         bool
	)

	cmd := &cobra.Command{
		Use:   "install",
		Short: "Install the git dependencies of the current project",
		Long: `Install the git dependencies declared by the project manifest.

The manifest is found by searching the working directory and its parents for
gitdeps.toml, gitdeps.yaml or package.json (key "gitCloneDependencies").
Each dependency is unpacked into <project>/components/<name> and reported as
"<name>@<treeish> <dest>".`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runInstall(cmd, manifestPath, componentsDir, force)
		},
	}

	cmd.Flags().StringVarP(&manifestPath, "manifest", "m", "", "manifest file (default: search upward from the working directory)")
	cmd.Flags().StringVar(&componentsDir, "components-dir", "", "install directory, relative to the project (overrides components_dir)")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "reinstall dependencies that are up to date")
	_ = cmd.RegisterFlagCompletionFunc("manifest", completeManifest)
	return cmd
}

func (c *CLI) runInstall(cmd *cobra.Command, manifestPath, componentsDir string, force bool) error {
	ctx := cmd.Context()

	e, err := c.newEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	if manifestPath == "" {
		wd, err := os.Getwd()
		if err != nil {
			return err
		}
		if manifestPath, err = manifest.Find(wd); err != nil {
			return err
		}
	}
	m, err := manifest.Load(manifestPath)
	if err != nil {
		return err
	}
	c.Logger.Debug("loaded manifest", "path", m.Path, "type", m.Type, "entries", len(m.Entries))

	if len(m.Entries) == 0 {
		printInfo(c.stderr, "No git dependencies declared in %s", m.Path)
		return nil
	}

	if componentsDir == "" {
		componentsDir = e.cfg.ComponentsDir
	}
	deps, err := m.Dependencies(componentsDir, e.cfg.HostedHosts)
	if err != nil {
		return err
	}

	runner := pipeline.NewRunner(e.resolver, e.fetcher, c.Logger)
	runner.Force = force
	runner.Concurrency = e.cfg.Concurrency

	prog := newProgress(c.Logger)
	results, err := runner.Run(ctx, deps)
	c.report(m.Dir(), results)
	if err != nil {
		return err
	}

	var installed, cached int
	for _, r := range results {
		if !r.Skipped {
			installed++
		}
		if r.Cached {
			cached++
		}
	}
	prog.done(fmt.Sprintf("Processed %d dependencies", len(results)))
	if cached > 0 {
		printSuccess(c.stderr, "%d installed (%d from cache), %d up to date", installed, cached, len(results)-installed)
	} else {
		printSuccess(c.stderr, "%d installed, %d up to date", installed, len(results)-installed)
	}
	return nil
}

// report prints one "<name>@<treeish> <dest>" line per result, with dest
// relative to the project directory.
func (c *CLI) report(projectDir string, results []pipeline.Result) {
	for _, r := range results {
		dest := r.Dest
		if rel, err := filepath.Rel(projectDir, r.Dest); err == nil {
			dest = rel
		}
		fmt.Fprintf(c.stdout, "%s@%s %s\n", r.Name, r.Treeish, filepath.ToSlash(dest))
	}
}
