package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/tabular/internal/session"
)

// NewRenameCommand creates the rename command.
func NewRenameCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "rename <path> <new-name>",
		Short: "Rename a node and rewrite its dependents",
		Long: `Rename a table, column or measure. Every expression referencing the
node is rewritten in place; string literals and comments that happen to
contain the old name are never touched.`,
		Example: `  tabular rename Sales/Total "Total Sales"`,
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

			rewritten := 0
			cmdCtx.Sess.Subscribe(func(e session.Event) {
				if e.Op == session.OpSetExpression {
					rewritten++
				}
			})

			if err := cmdCtx.Sess.Rename(n.ID(), args[1]); err != nil {
				return err
			}
			if err := cmdCtx.Save(); err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Renamed to %s", n.Path())
			if rewritten > 0 {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), " (rewrote %d dependent expressions)", rewritten)
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout())
			return nil
		},
	}
}
