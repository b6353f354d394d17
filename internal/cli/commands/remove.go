package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewRemoveCommand creates the rm command.
func NewRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <path>",
		Short: "Remove a node and its subtree",
		Long: `Remove a node and everything under it. Expressions referencing the
removed node keep their text; the references simply stop resolving.`,
		Example: `  tabular rm Sales/Margin`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			n, err := resolveNode(cmdCtx.Sess, args[0])
			if err != nil {
				return err
			}
			path := n.Path()

			if err := cmdCtx.Sess.RemoveNode(n.ID()); err != nil {
				return err
			}
			if err := cmdCtx.Save(); err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", path)
			return nil
		},
	}
}
