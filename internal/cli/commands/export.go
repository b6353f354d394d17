package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/tabular/internal/model"
)

// exportNode mirrors one model node in the YAML export.
type exportNode struct {
	Name            string        `yaml:"name"`
	Kind            string        `yaml:"kind"`
	DataType        string        `yaml:"data_type,omitempty"`
	Calculated      bool          `yaml:"calculated,omitempty"`
	Expression      string        `yaml:"expression,omitempty"`
	ExpressionError string        `yaml:"expression_error,omitempty"`
	Description     string        `yaml:"description,omitempty"`
	Children        []*exportNode `yaml:"children,omitempty"`
}

// NewExportCommand creates the export command.
func NewExportCommand() *cobra.Command {
	var outFile string

	cmd := &cobra.Command{
		Use:   "export [path]",
		Short: "Export the model as YAML",
		Long: `Export the model tree (or one subtree) as YAML, for review or for
checking the model into version control alongside the database.`,
		Example: `  tabular export
  tabular export Sales --file sales.yaml`,
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

			var w io.Writer = cmd.OutOrStdout()
			if outFile != "" {
				f, err := os.Create(outFile)
				if err != nil {
					return fmt.Errorf("failed to create %s: %w", outFile, err)
				}
				defer f.Close()
				w = f
			}

			enc := yaml.NewEncoder(w)
			enc.SetIndent(2)
			defer enc.Close()
			return enc.Encode(toExportNode(root))
		},
	}

	cmd.Flags().StringVar(&outFile, "file", "", "Write to a file instead of stdout")
	return cmd
}

func toExportNode(n *model.Node) *exportNode {
	e := &exportNode{
		Name:            n.Name(),
		Kind:            string(n.Kind()),
		DataType:        n.DataType(),
		Calculated:      n.Kind() == model.KindColumn && n.ColumnType() == model.ColumnCalculated,
		Expression:      n.Expression(),
		ExpressionError: n.ExpressionError(),
		Description:     n.Description(),
	}
	for _, c := range n.Children() {
		e.Children = append(e.Children, toExportNode(c))
	}
	return e
}
