package cli

import (
	"fmt"

	"github.com/anchore/clio"
	"github.com/anchore/fangs"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/wagoodman/go-partybus"

	"github.com/go-mason/mason/pkg/brick"
	"github.com/go-mason/mason/pkg/mason"
)

func generateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "generate BRICK TARGET_DIR",
		Short: "Generate a project from a brick",
		Long: `Generate resolves BRICK (a path, a "git:" reference, or a registry name)
and renders its templates into TARGET_DIR, applying the configured
collision policy to any file that already exists there.`,
		Example: `  # generate from a local brick directory
  mason generate ./bricks/greeter ./out

  # generate from a registry brick pinned to a semver range
  mason generate greeter@^0.1.0 ./out --vars-file vars.yaml

  # generate from a git-hosted brick
  mason generate git:https://github.com/acme/bricks@main#greeter ./out`,
		Args:              cobra.ExactArgs(2),
		ValidArgsFunction: completeCachedBrickNames,
		RunE:              runGenerate,
	}
}

// completeCachedBrickNames offers the names of already-cached bricks as
// completions for BRICK, the same "hack to load the config" the
// teacher's phasesValidArgsFunction uses to get at masonConfig before
// cobra has otherwise bound flags for this invocation.
func completeCachedBrickNames(cmd *cobra.Command, args []string, _ string) ([]cobra.Completion, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	_ = fangs.Load(clioSetupConfig(clio.Identification{Name: "mason"}).FangsConfig, cmd, masonConfig)

	fs := afero.NewOsFs()
	entries, err := afero.ReadDir(fs, masonConfig.CacheRoot+"/bricks")
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}

	var completions []cobra.Completion
	for _, entry := range entries {
		if entry.IsDir() {
			completions = append(completions, cobra.CompletionWithDesc(entry.Name(), "cached brick"))
		}
	}
	return completions, cobra.ShellCompDirectiveNoFileComp
}

func runGenerate(cmd *cobra.Command, args []string) error {
	ref, err := parseRef(args[0])
	if err != nil {
		return err
	}
	targetDir := args[1]

	fs := afero.NewOsFs()
	vars, err := loadVars(fs, masonConfig.VarsFile)
	if err != nil {
		return err
	}

	m := mason.New(fs, masonConfig.coreConfig(), masonRegistryClient(), nil, masonLogger())

	app.EventBus.Publish(partybus.Event{
		Type:   EventTypeResolving,
		Source: map[string]string{"ref": ref.CacheKeyHint()},
	})

	report, err := m.Generate(cmd.Context(), ref, targetDir, vars)
	if err != nil {
		if be, ok := err.(*brick.Error); ok {
			return fmt.Errorf("%s: %w", be.Kind, be)
		}
		return err
	}

	app.EventBus.Publish(partybus.Event{
		Type:  EventTypeGenerateReport,
		Value: report,
	})

	return nil
}
