package cli

import (
	"github.com/spf13/cobra"

	"submod.dev/submod/internal/engine"
	"submod.dev/submod/internal/runtime"
)

// newAddCmd creates the add command
func newAddCmd() *cobra.Command {
	var (
		name       string
		branch     string
		noCheckout bool
	)

	cmd := &cobra.Command{
		Use:   "add <path> [url]",
		Short: "Register a new submodule and clone it into place",
		Long: `Add records a submodule in .gitmodules and the index and clones it if it
is not already checked out. When the url is omitted, a repository must
already exist at the path and the url of its first remote is recorded.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := runtime.NewContext()
			if err != nil {
				return err
			}

			url := ""
			if len(args) > 1 {
				url = args[1]
			}

			rec, err := engine.Add(cmd.Context(), ctx.Repo, engine.AddOptions{
				Name:       name,
				Path:       args[0],
				URL:        url,
				Branch:     branch,
				NoCheckout: noCheckout,
			})
			if err != nil {
				return err
			}

			ctx.Splog.Info("added submodule %s", rec.Name())
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Logical name of the submodule; defaults to the path.")
	cmd.Flags().StringVarP(&branch, "branch", "b", "", "Branch to track and check out.")
	cmd.Flags().BoolVar(&noCheckout, "no-checkout", false, "Clone without populating the working tree.")

	return cmd
}
