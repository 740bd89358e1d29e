package cli

import (
	"github.com/spf13/cobra"

	"submod.dev/submod/internal/output"
	"submod.dev/submod/internal/runtime"
	"submod.dev/submod/internal/submodule"
)

// newListCmd creates the list command
func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the configured submodules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := runtime.NewContext()
			if err != nil {
				return err
			}

			snap, err := submodule.LoadHead(ctx.Repo)
			if err != nil {
				return err
			}

			for _, name := range snap.Names() {
				rec := snap.Get(name)
				path, err := rec.Path()
				if err != nil {
					return err
				}
				url, err := rec.URL()
				if err != nil {
					return err
				}
				branch, err := rec.BranchName()
				if err != nil {
					return err
				}

				state := "missing"
				if rec.ModuleExists() {
					state = "checked out"
				}

				ctx.Splog.Info("%s %s (%s) %s",
					name,
					output.Dim(rec.PinnedCommit().String()[:8]),
					branch,
					output.Dim(path+" <- "+url+" ["+state+"]"),
				)
			}

			return nil
		},
	}

	return cmd
}
