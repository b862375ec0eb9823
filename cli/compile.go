package cli

import (
	"github.com/spf13/cobra"

	"github.com/guyvdb/drepo/query"
)

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "compile <template> [args...]",
		Short: "Print the predicate tree of a query",
		Long: `Interpolate the arguments into the query template and print the
compiled predicate tree. No store is opened.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := rootOpts.formatter(cmd)
			raw := query.Interpolate(args[0], parseArgs(args[1:])...)
			n, err := query.Compile(raw)
			if err != nil {
				return formatter.Error(ExitFailure, "compiling query", err)
			}
			return formatter.Success(map[string]any{"query": raw, "tree": treeData(n)}, treeLines(n, 0)...)
		},
	}
}
