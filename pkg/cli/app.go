package cli

import (
	"io"
	"os"

	"github.com/anchore/clio"
	"github.com/anchore/go-logger"
	"github.com/anchore/go-logger/adapter/discard"
	"github.com/wagoodman/go-partybus"

	"github.com/go-mason/mason/pkg/contract"
	"github.com/go-mason/mason/pkg/registryclient"
)

// app holds the collaborators every command needs once clio has
// finished loading config: the event bus the UI subscribes to, and the
// logger every package-level New(...) call takes. It plays the role
// the teacher's package-level `mason *masonry.Mason` var does, just
// scoped to the smaller set of cross-cutting collaborators this core
// actually needs.
var app = &appState{
	Logger: discard.New(),
}

type appState struct {
	EventBus *partybus.Bus
	Logger   logger.Logger
}

func masonLogger() logger.Logger {
	return app.Logger
}

func masonRegistryClient() contract.RegistryClient {
	return registryclient.New()
}

func Application(id clio.Identification) clio.Application {
	clioApp := clio.New(*clioSetupConfig(id))

	rootCmd := clioApp.SetupRootCommand(rootCommand(id), masonConfig)
	rootCmd.AddCommand(
		clioApp.SetupCommand(generateCommand(), masonConfig),
		clioApp.SetupCommand(cacheCommand(), masonConfig),
		clioApp.SetupCommand(lambdasCommand(), masonConfig),
		clio.VersionCommand(id),
		clio.ConfigCommand(clioApp, &clio.ConfigCommandConfig{
			IncludeLocationsSubcommand: true,
			LoadConfig:                 true,
			ReplaceHomeDirWithTilde:    true,
		}),
	)

	return clioApp
}

func clioSetupConfig(id clio.Identification) *clio.SetupConfig {
	return clio.NewSetupConfig(id).
		WithGlobalConfigFlag().
		WithGlobalLoggingFlags().
		WithConfigInRootHelp().
		WithUIConstructor(
			func(cfg clio.Config) (*clio.UICollection, error) {
				var output io.Writer
				if cfg.Log.Verbosity > 0 {
					// in case of verbose output, we'll use the logs instead of the UI
					output = io.Discard
				} else {
					output = os.Stdout
				}
				return clio.NewUICollection(&UI{
					Output: output,
				}), nil
			},
		).
		WithInitializers(func(state *clio.State) error {
			// at this point, the state is ready, but masonConfig is not yet loaded
			masonConfig.state = state
			app.EventBus = state.Bus
			app.Logger = state.Logger
			return nil
		})
}
