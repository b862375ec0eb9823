package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"
)

// NewLoadCommand creates the load command.
func NewLoadCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "load [fixtures]",
		Short: "Create the records of a fixtures file",
		Long: `Create every record of a fixtures file in the configured store.
Without an argument the fixtures file named in the config is used.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := rootOpts.formatter(cmd)

			path := ""
			if rootOpts.config != nil {
				path = rootOpts.config.Fixtures
			}
			if len(args) == 1 {
				path = args[0]
			}
			if path == "" {
				return formatter.Error(ExitCommandError, "loading fixtures", fmt.Errorf("no fixtures file given"))
			}

			env, err := rootOpts.openForLoad()
			if err != nil {
				return err
			}
			defer env.Close()

			counts, err := env.Load(path)
			if err != nil {
				return formatter.Error(ExitFailure, "loading fixtures", err)
			}

			names := make([]string, 0, len(counts))
			for name := range counts {
				names = append(names, name)
			}
			slices.Sort(names)
			lines := make([]string, 0, len(names))
			for _, name := range names {
				lines = append(lines, fmt.Sprintf("loaded %d %s record(s)", counts[name], name))
			}
			return formatter.Success(counts, lines...)
		},
	}
}

// openForLoad opens the store without the automatic fixture seeding of
// the memory driver, so that load does not create the records twice.
func (o *RootOptions) openForLoad() (*Environment, error) {
	if o.config == nil {
		return o.environment()
	}
	cfg := *o.config
	cfg.Fixtures = ""
	env, err := Open(&cfg)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "opening store", err)
	}
	return env, nil
}
