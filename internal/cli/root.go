// Package cli wires the submod commands to the engines.
package cli

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root cobra command
func NewRootCmd(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "submod",
		Short: "Submod keeps a tree of nested repositories consistent with the state recorded in the parent",
		Long: `Submod reconciles the submodules recorded in a repository's .gitmodules
against the actual on-disk checkouts: it clones missing modules, moves
relocated ones, migrates changed remote urls while preserving remote
identity, rewires tracking branches, and removes submodules that are no
longer configured.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.AddCommand(newUpdateCmd())
	rootCmd.AddCommand(newAddCmd())
	rootCmd.AddCommand(newRemoveCmd())
	rootCmd.AddCommand(newMoveCmd())
	rootCmd.AddCommand(newListCmd())

	return rootCmd
}
