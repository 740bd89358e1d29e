package cli

import (
	"fmt"
	"os"

	"github.com/AlecAivazis/survey/v2"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"submod.dev/submod/internal/engine"
	"submod.dev/submod/internal/runtime"
	"submod.dev/submod/internal/submodule"
)

// newRemoveCmd creates the remove command
func newRemoveCmd() *cobra.Command {
	var (
		force         bool
		forceChildren bool
		keepModule    bool
		keepConfig    bool
		dryRun        bool
		yes           bool
	)

	cmd := &cobra.Command{
		Use:   "remove <name>",
		Short: "Remove a submodule's checkout and configuration",
		Long: `Remove deletes a submodule's checkout and its configuration. Without
--force the module must be clean and all of its commits must be contained
in a remote branch; nested submodules are removed first.`,
		Args: cobra.ExactArgs(1),
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

			if !yes && !dryRun && isatty.IsTerminal(os.Stdin.Fd()) {
				confirmed := false
				prompt := &survey.Confirm{
					Message: fmt.Sprintf("Remove submodule %s?", rec.Name()),
				}
				if err := survey.AskOne(prompt, &confirmed); err != nil {
					return err
				}
				if !confirmed {
					return nil
				}
			}

			remover := engine.NewRemover(ctx.Repo, ctx.Splog)
			return remover.Remove(cmd.Context(), rec, engine.RemoveOptions{
				Module:        !keepModule,
				Configuration: !keepConfig,
				Force:         force,
				ForceChildren: forceChildren,
				DryRun:        dryRun,
			})
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Delete even when the module is dirty or has unpushed commits.")
	cmd.Flags().BoolVar(&forceChildren, "force-children", false, "Apply force to nested submodules as well.")
	cmd.Flags().BoolVar(&keepModule, "keep-module", false, "Keep the checkout on disk; only drop the configuration.")
	cmd.Flags().BoolVar(&keepConfig, "keep-config", false, "Keep the configuration; only delete the checkout.")
	cmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "Run every safety check without deleting anything.")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt.")

	return cmd
}
