package commands

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/tabular/internal/session"
)

// NewREPLCommand creates the repl command.
func NewREPLCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Edit the model interactively",
		Long: `Open an interactive editing session on the model. Edits accumulate in
memory with full undo/redo; 'save' writes the current state back to the
database. Type 'help' inside the session for the command list.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()
			return runREPL(cmd, cmdCtx)
		},
	}
}

type replState struct {
	ctx   *CommandContext
	dirty bool
	batch int
}

func runREPL(cmd *cobra.Command, cmdCtx *CommandContext) error {
	historyFile := filepath.Join(filepath.Dir(cmdCtx.Cfg.ModelPath), ".tabular_history")

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "tabular> ",
		HistoryFile:     historyFile,
		AutoComplete:    replCompleter(),
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize REPL: %w", err)
	}
	defer func() { _ = rl.Close() }()

	out := cmd.OutOrStdout()
	errOut := cmd.ErrOrStderr()

	st := &replState{ctx: cmdCtx}
	cmdCtx.Sess.Subscribe(func(e session.Event) {
		switch e.Op {
		case session.OpUndo, session.OpRedo:
			st.dirty = true
			_, _ = fmt.Fprintf(out, "%s: %s\n", e.Op, e.Label)
		default:
			st.dirty = true
		}
	})

	_, _ = fmt.Fprintf(out, "Tabular model session (%s)\n", cmdCtx.Cfg.ModelPath)
	_, _ = fmt.Fprintln(out, "Type 'help' for commands, 'quit' to exit")
	_, _ = fmt.Fprintln(out)

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		quit, err := st.eval(out, line)
		if err != nil {
			_, _ = fmt.Fprintf(errOut, "Error: %v\n", err)
		}
		if quit {
			break
		}
	}

	if st.dirty {
		_, _ = fmt.Fprintln(errOut, "Warning: unsaved changes discarded (use 'save' before quitting)")
	}
	return nil
}

// eval executes one REPL line. The second return value reports a quit.
func (st *replState) eval(out io.Writer, line string) (bool, error) {
	args, err := splitArgs(line)
	if err != nil {
		return false, err
	}
	sess := st.ctx.Sess

	switch strings.ToLower(args[0]) {
	case "quit", "exit":
		return true, nil

	case "help":
		printREPLHelp(out)
		return false, nil

	case "show":
		path := ""
		if len(args) > 1 {
			path = args[1]
		}
		root := sess.Graph().Root()
		if path != "" {
			if root, err = resolveNode(sess, path); err != nil {
				return false, err
			}
		}
		header := []string{"Path", "Kind", "Data Type", "Expression", "Error", "Description"}
		renderTable(out, header, collectNodeRows(sess, root))
		return false, nil

	case "deps":
		if len(args) != 2 {
			return false, fmt.Errorf("usage: deps <path>")
		}
		n, err := resolveNode(sess, args[1])
		if err != nil {
			return false, err
		}
		deps, err := sess.Dependents(n.ID())
		if err != nil {
			return false, err
		}
		rows := make([][]string, 0, len(deps))
		for _, d := range deps {
			rows = append(rows, []string{d.Path(), string(d.Kind()), d.Expression()})
		}
		renderTable(out, []string{"Path", "Kind", "Expression"}, rows)
		return false, nil

	case "add":
		return false, st.evalAdd(out, args[1:])

	case "rename":
		if len(args) != 3 {
			return false, fmt.Errorf("usage: rename <path> <new-name>")
		}
		n, err := resolveNode(sess, args[1])
		if err != nil {
			return false, err
		}
		if err := sess.Rename(n.ID(), args[2]); err != nil {
			return false, err
		}
		_, _ = fmt.Fprintf(out, "Renamed to %s\n", n.Path())
		return false, nil

	case "set":
		if len(args) != 3 {
			return false, fmt.Errorf("usage: set <path> <expression>")
		}
		n, err := resolveNode(sess, args[1])
		if err != nil {
			return false, err
		}
		if err := sess.SetExpression(n.ID(), args[2]); err != nil {
			return false, err
		}
		if mark := n.ExpressionError(); mark != "" {
			_, _ = fmt.Fprintf(out, "Stored with error: %s\n", mark)
		}
		return false, nil

	case "describe":
		if len(args) != 3 {
			return false, fmt.Errorf("usage: describe <path> <text>")
		}
		n, err := resolveNode(sess, args[1])
		if err != nil {
			return false, err
		}
		return false, sess.SetDescription(n.ID(), args[2])

	case "move":
		if len(args) != 3 {
			return false, fmt.Errorf("usage: move <path> <new-parent-path>")
		}
		n, err := resolveNode(sess, args[1])
		if err != nil {
			return false, err
		}
		parent, err := resolveNode(sess, args[2])
		if err != nil {
			return false, err
		}
		if err := sess.Move(n.ID(), parent.ID()); err != nil {
			return false, err
		}
		_, _ = fmt.Fprintf(out, "Moved to %s\n", n.Path())
		return false, nil

	case "rm":
		if len(args) != 2 {
			return false, fmt.Errorf("usage: rm <path>")
		}
		n, err := resolveNode(sess, args[1])
		if err != nil {
			return false, err
		}
		path := n.Path()
		if err := sess.RemoveNode(n.ID()); err != nil {
			return false, err
		}
		_, _ = fmt.Fprintf(out, "Removed %s\n", path)
		return false, nil

	case "begin":
		label := "batch"
		if len(args) > 1 {
			label = strings.Join(args[1:], " ")
		}
		sess.BeginBatch(label)
		st.batch++
		return false, nil

	case "end":
		if st.batch == 0 {
			return false, fmt.Errorf("no open batch")
		}
		sess.EndBatch()
		st.batch--
		return false, nil

	case "undo":
		if st.batch > 0 {
			return false, fmt.Errorf("cannot undo inside an open batch")
		}
		if !sess.Undo() {
			_, _ = fmt.Fprintln(out, "Nothing to undo")
		}
		return false, nil

	case "redo":
		if st.batch > 0 {
			return false, fmt.Errorf("cannot redo inside an open batch")
		}
		if !sess.Redo() {
			_, _ = fmt.Fprintln(out, "Nothing to redo")
		}
		return false, nil

	case "history":
		_, _ = fmt.Fprintf(out, "undo depth: %d", sess.UndoDepth())
		if label, ok := sess.PeekUndo(); ok {
			_, _ = fmt.Fprintf(out, " (next undo: %s)", label)
		}
		if label, ok := sess.PeekRedo(); ok {
			_, _ = fmt.Fprintf(out, " (next redo: %s)", label)
		}
		_, _ = fmt.Fprintln(out)
		return false, nil

	case "save":
		if st.batch > 0 {
			return false, fmt.Errorf("cannot save inside an open batch")
		}
		if err := st.ctx.Save(); err != nil {
			return false, err
		}
		st.dirty = false
		_, _ = fmt.Fprintf(out, "Saved to %s\n", st.ctx.Cfg.ModelPath)
		return false, nil

	default:
		return false, fmt.Errorf("unknown command %q (try 'help')", args[0])
	}
}

func (st *replState) evalAdd(out io.Writer, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: add table|column|measure|calculated ...")
	}
	sess := st.ctx.Sess

	switch strings.ToLower(args[0]) {
	case "table":
		n, err := sess.AddTable(args[1])
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(out, "Added table %s\n", n.Path())
		return nil

	case "column":
		if len(args) < 3 {
			return fmt.Errorf("usage: add column <table-path> <name> [data-type]")
		}
		table, err := resolveNode(sess, args[1])
		if err != nil {
			return err
		}
		dataType := "string"
		if len(args) > 3 {
			dataType = args[3]
		}
		n, err := sess.AddColumn(table.ID(), args[2], dataType)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(out, "Added column %s\n", n.Path())
		return nil

	case "measure", "calculated":
		if len(args) != 4 {
			return fmt.Errorf("usage: add %s <table-path> <name> <expression>", args[0])
		}
		table, err := resolveNode(sess, args[1])
		if err != nil {
			return err
		}
		add := sess.AddMeasure
		if strings.EqualFold(args[0], "calculated") {
			add = sess.AddCalculatedColumn
		}
		n, err := add(table.ID(), args[2], args[3])
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(out, "Added %s\n", n.Path())
		if mark := n.ExpressionError(); mark != "" {
			_, _ = fmt.Fprintf(out, "Stored with error: %s\n", mark)
		}
		return nil

	default:
		return fmt.Errorf("unknown kind %q", args[0])
	}
}

func replCompleter() readline.AutoCompleter {
	return readline.NewPrefixCompleter(
		readline.PcItem("show"),
		readline.PcItem("deps"),
		readline.PcItem("add",
			readline.PcItem("table"),
			readline.PcItem("column"),
			readline.PcItem("measure"),
			readline.PcItem("calculated"),
		),
		readline.PcItem("rename"),
		readline.PcItem("set"),
		readline.PcItem("describe"),
		readline.PcItem("move"),
		readline.PcItem("rm"),
		readline.PcItem("begin"),
		readline.PcItem("end"),
		readline.PcItem("undo"),
		readline.PcItem("redo"),
		readline.PcItem("history"),
		readline.PcItem("save"),
		readline.PcItem("help"),
		readline.PcItem("quit"),
	)
}

func printREPLHelp(w io.Writer) {
	_, _ = fmt.Fprint(w, `Commands:
  show [path]                            Show the model tree
  deps <path>                            Show dependents of a node
  add table <name>                       Add a table
  add column <table> <name> [type]       Add a data column
  add measure <table> <name> <expr>      Add a measure
  add calculated <table> <name> <expr>   Add a calculated column
  rename <path> <new-name>               Rename (rewrites dependents)
  set <path> <expr>                      Set an expression
  describe <path> <text>                 Set a description
  move <path> <new-parent>               Move a node (rewrites dependents)
  rm <path>                              Remove a subtree
  begin [label] / end                    Group edits into one undo step
  undo / redo / history                  Walk the edit history
  save                                   Write the model to disk
  quit                                   Exit (unsaved edits are discarded)
`)
}

// splitArgs splits a REPL line into fields, honoring double quotes so
// names and expressions may contain spaces.
func splitArgs(line string) ([]string, error) {
	var args []string
	var cur strings.Builder
	inQuote := false
	hasCur := false

	for i := 0; i < len(line); i++ {
		ch := line[i]
		switch {
		case ch == '"':
			inQuote = !inQuote
			hasCur = true
		case ch == ' ' || ch == '\t':
			if inQuote {
				cur.WriteByte(ch)
			} else if hasCur {
				args = append(args, cur.String())
				cur.Reset()
				hasCur = false
			}
		default:
			cur.WriteByte(ch)
			hasCur = true
		}
	}
	if inQuote {
		return nil, fmt.Errorf("unterminated quote")
	}
	if hasCur {
		args = append(args, cur.String())
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("empty command")
	}
	return args, nil
}
