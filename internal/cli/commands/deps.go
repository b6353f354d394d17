package commands

import (
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/tabular/internal/model"
)

// NewDepsCommand creates the deps command.
func NewDepsCommand() *cobra.Command {
	var reverse bool

	cmd := &cobra.Command{
		Use:   "deps <path>",
		Short: "Show what references a node",
		Long: `Show the nodes whose expressions reference the given node, i.e. the
expressions a rename or move of it would rewrite. With --references the
direction flips: show what the node's own expression references.`,
		Example: `  # Who depends on the Total measure?
  tabular deps Sales/Total

  # What does Total itself reference?
  tabular deps Sales/Total --references`,
		Args: cobra.ExactArgs(1),
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

			var nodes []*model.Node
			if reverse {
				ids, err := cmdCtx.Sess.References(n.ID())
				if err != nil {
					return err
				}
				for _, id := range ids {
					if ref, ok := cmdCtx.Sess.Graph().Get(id); ok {
						nodes = append(nodes, ref)
					}
				}
			} else {
				nodes, err = cmdCtx.Sess.Dependents(n.ID())
				if err != nil {
					return err
				}
			}

			rows := make([][]string, 0, len(nodes))
			for _, d := range nodes {
				rows = append(rows, []string{d.Path(), string(d.Kind()), d.Expression()})
			}
			header := []string{"Path", "Kind", "Expression"}
			return renderRows(cmd.OutOrStdout(), cmdCtx.Cfg.Output, header, rows)
		},
	}

	cmd.Flags().BoolVar(&reverse, "references", false, "Show what the node references instead of its dependents")
	return cmd
}
