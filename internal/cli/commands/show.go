package commands

import (
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/tabular/internal/model"
	"github.com/leapstack-labs/tabular/internal/session"
)

// NewShowCommand creates the show command.
func NewShowCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show [path]",
		Short: "Show the model tree",
		Long: `Show the model's nodes, optionally restricted to one subtree.

Paths are slash-separated and root-relative, e.g. "Sales" or
"Sales/Total". Matching is case-insensitive.`,
		Example: `  # Show the whole model
  tabular show

  # Show one table as CSV
  tabular show Sales -o csv`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			root := cmdCtx.Sess.Graph().Root()
			if len(args) > 0 {
				root, err = resolveNode(cmdCtx.Sess, args[0])
				if err != nil {
					return err
				}
			}

			rows := collectNodeRows(cmdCtx.Sess, root)
			header := []string{"Path", "Kind", "Data Type", "Expression", "Error", "Description"}
			return renderRows(cmd.OutOrStdout(), cmdCtx.Cfg.Output, header, rows)
		},
	}
	return cmd
}

func collectNodeRows(sess *session.Session, root *model.Node) [][]string {
	var rows [][]string
	var visit func(n *model.Node)
	visit = func(n *model.Node) {
		dataType := n.DataType()
		if n.Kind() == model.KindColumn && n.ColumnType() == model.ColumnCalculated {
			dataType = "calculated"
		}
		rows = append(rows, []string{
			n.Path(), string(n.Kind()), dataType,
			n.Expression(), n.ExpressionError(), n.Description(),
		})
		for _, c := range n.Children() {
			visit(c)
		}
	}
	visit(root)
	return rows
}
