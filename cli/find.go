package cli

import (
	"github.com/spf13/cobra"

	"github.com/guyvdb/drepo/store"
)

// NewFindCommand creates the find command.
func NewFindCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "find <model> <id> [id...]",
		Short: "Print records by id",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := rootOpts.formatter(cmd)

			ids := make([]int64, 0, len(args)-1)
			for _, arg := range args[1:] {
				id, err := store.ParseId(arg)
				if err != nil {
					return formatter.Error(ExitCommandError, "parsing id", err)
				}
				ids = append(ids, id)
			}

			env, err := rootOpts.environment()
			if err != nil {
				return err
			}
			defer env.Close()

			r, err := env.Repository(args[0])
			if err != nil {
				return formatter.Error(ExitCommandError, "unknown model", err)
			}
			entities, err := r.FindMany(ids...)
			if err != nil {
				return formatter.Error(ExitFailure, "finding records", err)
			}
			return formatter.Success(entityData(entities), entityLines(r, entities)...)
		},
	}
}
