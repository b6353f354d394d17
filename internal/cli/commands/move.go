package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/tabular/internal/session"
)

// NewMoveCommand creates the move command.
func NewMoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "move <path> <new-parent-path>",
		Short: "Move a node under a new parent",
		Long: `Move a column or measure to another table. Expressions that qualify
the node with its old table are rewritten to its new location;
unqualified references stay as written.`,
		Example: `  tabular move Sales/Total Archive`,
		Args:    cobra.ExactArgs(2),
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
			parent, err := resolveNode(cmdCtx.Sess, args[1])
			if err != nil {
				return err
			}

			rewritten := 0
			cmdCtx.Sess.Subscribe(func(e session.Event) {
				if e.Op == session.OpSetExpression {
					rewritten++
				}
			})

			if err := cmdCtx.Sess.Move(n.ID(), parent.ID()); err != nil {
				return err
			}
			if err := cmdCtx.Save(); err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Moved to %s", n.Path())
			if rewritten > 0 {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), " (rewrote %d dependent expressions)", rewritten)
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout())
			return nil
		},
	}
}
