package cli

import (
	"fmt"
	"time"

	"github.com/anchore/clio"

	"github.com/go-mason/mason/pkg/brick"
	"github.com/go-mason/mason/pkg/mason"
)

var masonConfig = &MasonConfig{
	CacheRoot:    ".mason/cache",
	OnConflict:   string(brick.OnConflictPrompt),
	AllowNetwork: true,
	HookTimeout:  30 * time.Second,
}

var _ interface {
	clio.FlagAdder
	clio.PostLoader
	clio.FieldDescriber
} = (*MasonConfig)(nil)

// MasonConfig is the fangs-bound configuration surface for the CLI;
// coreConfig translates it into the core's mason.Config (spec.md §6:
// "passed in as a struct, never read from environment").
type MasonConfig struct {
	CacheRoot    string        `mapstructure:"cache-root"`
	OnConflict   string        `mapstructure:"on-conflict"`
	AllowNetwork bool          `mapstructure:"allow-network"`
	HookTimeout  time.Duration `mapstructure:"hook-timeout"`

	VarsFile string `mapstructure:"vars-file"`

	state *clio.State `mapstructure:"-"` //nolint:unused // populated by WithInitializers, read by future PostLoad rules
}

func (c *MasonConfig) AddFlags(flags clio.FlagSet) {
	flags.StringVarP(&c.CacheRoot, "cache-root", "", "Directory bricks are cached under")
	flags.StringVarP(&c.OnConflict, "on-conflict", "", "Collision policy for existing files: prompt, overwrite, skip, append")
	flags.BoolVarP(&c.AllowNetwork, "allow-network", "", "Allow resolving git/registry bricks over the network")
	flags.StringVarP(&c.VarsFile, "vars-file", "v", "YAML file of variables to pass to the brick")
}

func (c *MasonConfig) DescribeFields(d clio.FieldDescriptionSet) {
	d.Add(&c.OnConflict, "Default resolution for a file that already exists at the generated destination.")
	d.Add(&c.HookTimeout, "Maximum duration a single pre/post-generation hook may run.")
}

func (c *MasonConfig) PostLoad() error {
	switch brick.OnConflict(c.OnConflict) {
	case brick.OnConflictPrompt, brick.OnConflictOverwrite, brick.OnConflictSkip, brick.OnConflictAppend:
	default:
		return fmt.Errorf("invalid --on-conflict value %q", c.OnConflict)
	}
	return nil
}

func (c *MasonConfig) coreConfig() mason.Config {
	return mason.Config{
		CacheRoot: c.CacheRoot,
		CollisionPolicy: brick.CollisionPolicy{
			OnConflict:           brick.OnConflict(c.OnConflict),
			FileConflictResolver: promptFileConflictResolver,
		},
		HookTimeout:  c.HookTimeout,
		AllowNetwork: c.AllowNetwork,
	}
}
