package cli

import (
	"github.com/spf13/cobra"

	"submod.dev/submod/internal/engine"
	"submod.dev/submod/internal/runtime"
)

// newUpdateCmd creates the update command
func newUpdateCmd() *cobra.Command {
	var (
		previousCommit      string
		recursive           bool
		init                bool
		remote              bool
		forceRemove         bool
		forceRemoveChildren bool
	)

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Reconcile the submodule tree with the recorded state and check out target commits",
		Long: `Update diffs the submodule set recorded at a previous commit against the
current working configuration, applies moves, remote url migrations and
branch changes, and checks out each submodule's target commit.

The previous commit defaults to ORIG_HEAD, then to the parent of HEAD.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := runtime.NewContext()
			if err != nil {
				return err
			}

			coordinator := engine.NewCoordinator(ctx.Repo, ctx.Splog)
			return coordinator.Update(cmd.Context(), engine.UpdateOptions{
				PreviousCommit:      previousCommit,
				Recursive:           recursive,
				Init:                init,
				ToLatestRevision:    remote,
				ForceRemove:         forceRemove,
				ForceRemoveChildren: forceRemoveChildren,
			})
		},
	}

	cmd.Flags().StringVar(&previousCommit, "previous-commit", "", "Commit to diff the current submodule set against.")
	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "Descend into nested submodules, depth-first.")
	cmd.Flags().BoolVar(&init, "init", false, "Clone missing modules into place.")
	cmd.Flags().BoolVar(&remote, "remote", false, "Check out the tip of each tracking branch instead of the pinned commit.")
	cmd.Flags().BoolVar(&forceRemove, "force-remove", false, "Delete removed submodules even when dirty or unpushed.")
	cmd.Flags().BoolVar(&forceRemoveChildren, "force-remove-children", false, "Apply force to nested submodules of removed ones.")

	return cmd
}
