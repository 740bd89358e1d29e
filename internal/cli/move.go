package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"submod.dev/submod/internal/engine"
	"submod.dev/submod/internal/runtime"
	"submod.dev/submod/internal/submodule"
)

// newMoveCmd creates the move command
func newMoveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "move <name> <new-path>",
		Short: "Relocate a submodule's checkout and update its recorded path",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := runtime.NewContext()
			if err != nil {
				return err
			}

			snap, err := submodule.LoadHead(ctx.Repo)
			if err != nil {
				return err
			}

			rec := snap.Get(args[0])
			if rec == nil {
				return fmt.Errorf("no submodule named %s", args[0])
			}

			mover := engine.NewMover(ctx.Repo)
			return mover.Move(rec, args[1], engine.MoveOptions{
				Module:        true,
				Configuration: true,
			})
		},
	}

	return cmd
}
