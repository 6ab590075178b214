package cli

import (
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/go-mason/mason/pkg/mason"
)

// cacheCommand is the "mason cache" parent; "clear" is its only
// subcommand today, but the nesting leaves room for a future
// "cache list"/"cache info" sibling without reshuffling the CLI.
func cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or evict the on-disk brick cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	cmd.AddCommand(cacheClearCommand())
	return cmd
}

func cacheClearCommand() *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Evict cached bricks older than a duration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m := mason.New(afero.NewOsFs(), masonConfig.coreConfig(), masonRegistryClient(), nil, masonLogger())
			removed, err := m.ClearCache(olderThan)
			if err != nil {
				return err
			}
			app.Logger.WithFields("removed", len(removed)).Info("Cleared brick cache")
			return nil
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 0, "only evict entries not modified within this duration")
	return cmd
}
