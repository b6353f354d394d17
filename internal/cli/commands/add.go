package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/tabular/internal/model"
)

// NewAddCommand creates the add command and its kind subcommands.
func NewAddCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a table, column or measure",
	}
	cmd.AddCommand(newAddTableCommand())
	cmd.AddCommand(newAddColumnCommand())
	cmd.AddCommand(newAddMeasureCommand())
	cmd.AddCommand(newAddCalculatedCommand())
	return cmd
}

func newAddTableCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "table <name>",
		Short:   "Add a table to the model",
		Example: `  tabular add table Sales`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			n, err := cmdCtx.Sess.AddTable(args[0])
			if err != nil {
				return err
			}
			if err := cmdCtx.Save(); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Added table %s\n", n.Path())
			return nil
		},
	}
}

func newAddColumnCommand() *cobra.Command {
	var dataType string

	cmd := &cobra.Command{
		Use:     "column <table-path> <name>",
		Short:   "Add a data column to a table",
		Example: `  tabular add column Sales Amount --type decimal`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			table, err := resolveNode(cmdCtx.Sess, args[0])
			if err != nil {
				return err
			}
			n, err := cmdCtx.Sess.AddColumn(table.ID(), args[1], dataType)
			if err != nil {
				return err
			}
			if err := cmdCtx.Save(); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Added column %s\n", n.Path())
			return nil
		},
	}

	cmd.Flags().StringVar(&dataType, "type", "string", "Column data type")
	return cmd
}

func newAddMeasureCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "measure <table-path> <name> <expression>",
		Short:   "Add a measure to a table",
		Example: `  tabular add measure Sales Total "SUM('Sales'[Amount])"`,
		Args:    cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAddExpressionNode(cmd, args, model.KindMeasure)
		},
	}
}

func newAddCalculatedCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "calculated <table-path> <name> <expression>",
		Short:   "Add a calculated column to a table",
		Example: `  tabular add calculated Sales Margin "[Amount] * 0.2"`,
		Args:    cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAddExpressionNode(cmd, args, model.KindColumn)
		},
	}
}

func runAddExpressionNode(cmd *cobra.Command, args []string, kind model.Kind) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	table, err := resolveNode(cmdCtx.Sess, args[0])
	if err != nil {
		return err
	}

	var n *model.Node
	if kind == model.KindMeasure {
		n, err = cmdCtx.Sess.AddMeasure(table.ID(), args[1], args[2])
	} else {
		n, err = cmdCtx.Sess.AddCalculatedColumn(table.ID(), args[1], args[2])
	}
	if err != nil {
		return err
	}
	if err := cmdCtx.Save(); err != nil {
		return err
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Added %s %s\n", n.Kind(), n.Path())
	if mark := n.ExpressionError(); mark != "" {
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Warning: expression stored with error: %s\n", mark)
	}
	return nil
}
