package cli

import (
	"strconv"

	"github.com/spf13/cobra"
)

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "query <model> <template> [args...]",
		Short: "List the records matching a query",
		Long: `Run a query against a model. Each ? in the template is replaced by
the next argument: integers as numbers, null as null, anything else as a
quoted string.`,
		Example: `  drepo -c drepo.yaml query person "age > ? and city = ?" 21 Paris`,
		Args:    cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := rootOpts.formatter(cmd)
			env, err := rootOpts.environment()
			if err != nil {
				return err
			}
			defer env.Close()

			r, err := env.Repository(args[0])
			if err != nil {
				return formatter.Error(ExitCommandError, "unknown model", err)
			}
			where := append([]any{args[1]}, parseArgs(args[2:])...)
			entities, err := r.Where(where...)
			if err != nil {
				return formatter.Error(ExitFailure, "running query", err)
			}
			return formatter.Success(entityData(entities), entityLines(r, entities)...)
		},
	}
}

// parseArgs turns command line values into query arguments.
func parseArgs(args []string) []any {
	values := make([]any, len(args))
	for i, arg := range args {
		switch n, err := strconv.ParseInt(arg, 10, 64); {
		case err == nil:
			values[i] = n
		case arg == "null":
			values[i] = nil
		default:
			values[i] = arg
		}
	}
	return values
}
