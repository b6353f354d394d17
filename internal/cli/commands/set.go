package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewSetCommand creates the set command.
func NewSetCommand() *cobra.Command {
	var description string

	cmd := &cobra.Command{
		Use:   "set <path> [expression]",
		Short: "Set a node's expression or description",
		Long: `Set the formula expression of a measure or calculated column.
Expressions that do not tokenize are stored anyway, flagged with an
error marker, and contribute no dependency edges until fixed.

With --description the node's description is set instead; any node kind
accepts one.`,
		Example: `  tabular set Sales/Total "SUM('Sales'[Amount])"
  tabular set Sales --description "Fact table"`,
		Args: cobra.RangeArgs(1, 2),
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

			if cmd.Flags().Changed("description") {
				if err := cmdCtx.Sess.SetDescription(n.ID(), description); err != nil {
					return err
				}
				if err := cmdCtx.Save(); err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Set description on %s\n", n.Path())
				return nil
			}

			if len(args) < 2 {
				return fmt.Errorf("an expression argument or --description is required")
			}
			if err := cmdCtx.Sess.SetExpression(n.ID(), args[1]); err != nil {
				return err
			}
			if err := cmdCtx.Save(); err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Set expression on %s\n", n.Path())
			if mark := n.ExpressionError(); mark != "" {
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Warning: expression stored with error: %s\n", mark)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&description, "description", "", "Set the node's description instead of an expression")
	return cmd
}
