package cli

import (
	"github.com/anchore/clio"
	"github.com/spf13/cobra"
)

func rootCommand(appID clio.Identification) *cobra.Command {
	cmd := &cobra.Command{
		Use:   appID.Name,
		Short: "Mason generates projects from reusable, templated bricks.",
		Long: `Mason is a code-scaffolding toolchain: it resolves a "brick" - a
directory, git reference, or registry package of templated files - and
renders it into a target directory against a set of variables.

A brick's files may reference variables with a logic-less template
language (sections, inverted sections, partials, and case-transform
lambdas like pascalCase or snakeCase), and may ship pre/post-generation
hook scripts that run in a sandboxed subprocess before and after the
files are written.`,
		Example: `  # generate from a local brick directory
  mason generate ./bricks/greeter ./out

  # list the case-transform lambdas every brick can reference
  mason lambdas

  # evict cached bricks older than a week
  mason cache clear --older-than 168h`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	return cmd
}
