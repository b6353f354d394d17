// Package session exposes the editing boundary of one model: validated
// mutation entry points, batch control, undo/redo and dependency queries.
// Every collaborator — CLI, REPL, deserializer — goes through this
// surface; there is no privileged bypass. The session owns its graph,
// undo manager and dependency index exclusively and is single-threaded:
// every cascade completes synchronously inside the call that started it.
package session

import (
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/tabular/internal/deps"
	"github.com/leapstack-labs/tabular/internal/model"
	"github.com/leapstack-labs/tabular/internal/undo"
)

// Op identifies the kind of change an Event reports.
type Op string

// Change operations.
const (
	OpAdd           Op = "add"
	OpRemove        Op = "remove"
	OpRename        Op = "rename"
	OpMove          Op = "move"
	OpSetExpression Op = "set-expression"
	OpSetProperty   Op = "set-property"
	OpUndo          Op = "undo"
	OpRedo          Op = "redo"
)

// Event is a change notification emitted after a mutation commits.
type Event struct {
	Op     Op
	NodeID string
	Label  string
}

// Options configures a new session.
type Options struct {
	// ModelName names the root node. Defaults to "Model".
	ModelName string
	// Logger receives structured session logs. Defaults to slog.Default.
	Logger *slog.Logger
	// UndoLimit bounds the undo stack; 0 means unbounded.
	UndoLimit int
}

// Session is one editing session over one model.
type Session struct {
	logger *slog.Logger
	graph  *model.Graph
	undo   *undo.Manager
	index  *deps.Index

	listeners []func(Event)
}

// New creates a session with an empty model.
func New(opts Options) *Session {
	if opts.ModelName == "" {
		opts.ModelName = "Model"
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	g := model.NewGraph(opts.ModelName)
	return &Session{
		logger: logger,
		graph:  g,
		undo:   undo.NewManager(logger, opts.UndoLimit),
		index:  deps.New(g),
	}
}

// NewFromGraph wraps a restored graph in a fresh session. The dependency
// index is rebuilt node by node; expressions that no longer tokenize keep
// their stored text, get an error marker and contribute no edges. History
// starts empty: a load is not an undoable edit.
func NewFromGraph(g *model.Graph, opts Options) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Session{
		logger: logger,
		graph:  g,
		undo:   undo.NewManager(logger, opts.UndoLimit),
		index:  deps.New(g),
	}
	s.indexSubtree(g.Root())
	return s
}

// Graph returns the session's object graph for read access.
func (s *Session) Graph() *model.Graph { return s.graph }

// Subscribe registers a change listener. Listeners run synchronously on
// the mutating call stack.
func (s *Session) Subscribe(fn func(Event)) {
	s.listeners = append(s.listeners, fn)
}

// BeginBatch opens an undo batch; all edits until the matching EndBatch
// commit as one transaction.
func (s *Session) BeginBatch(label string) { s.undo.BeginBatch(label) }

// EndBatch closes the current batch level.
func (s *Session) EndBatch() { s.undo.EndBatch() }

// CanUndo reports whether an Undo would replay anything.
func (s *Session) CanUndo() bool { return s.undo.CanUndo() }

// CanRedo reports whether a Redo would replay anything.
func (s *Session) CanRedo() bool { return s.undo.CanRedo() }

// UndoDepth returns the number of committed undo transactions.
func (s *Session) UndoDepth() int { return s.undo.UndoDepth() }

// PeekUndo returns the label of the transaction Undo would replay.
func (s *Session) PeekUndo() (string, bool) { return s.undo.PeekUndo() }

// PeekRedo returns the label of the transaction Redo would replay.
func (s *Session) PeekRedo() (string, bool) { return s.undo.PeekRedo() }

// Undo inverts the most recent transaction. No-op on an empty stack.
func (s *Session) Undo() bool {
	label, ok := s.undo.PeekUndo()
	if !ok {
		return false
	}
	s.undo.Undo()
	s.reindexAll()
	s.logger.Info("undo", "label", label)
	s.notify(Event{Op: OpUndo, Label: label})
	return true
}

// Redo reapplies the most recently undone transaction. No-op on an empty
// stack.
func (s *Session) Redo() bool {
	label, ok := s.undo.PeekRedo()
	if !ok {
		return false
	}
	s.undo.Redo()
	s.reindexAll()
	s.logger.Info("redo", "label", label)
	s.notify(Event{Op: OpRedo, Label: label})
	return true
}

// ClearHistory discards both stacks. Only for session resets such as
// completing a model load.
func (s *Session) ClearHistory() { s.undo.Clear() }

// Dependents returns the formula-bearing nodes referencing the given node.
func (s *Session) Dependents(id string) ([]*model.Node, error) {
	if _, ok := s.graph.Get(id); !ok {
		return nil, &model.NotFoundError{ID: id}
	}
	return s.index.Dependents(id), nil
}

// References returns the ids of nodes the given node's expression references.
func (s *Session) References(id string) ([]string, error) {
	if _, ok := s.graph.Get(id); !ok {
		return nil, &model.NotFoundError{ID: id}
	}
	return s.index.References(id), nil
}

// AddTable creates a table under the model root.
func (s *Session) AddTable(name string) (*model.Node, error) {
	t := model.NewNode(model.KindTable, name)
	if err := s.AddNode(s.graph.Root().ID(), t, -1); err != nil {
		return nil, err
	}
	return t, nil
}

// AddColumn creates a data column in a table.
func (s *Session) AddColumn(tableID, name, dataType string) (*model.Node, error) {
	c := model.NewNode(model.KindColumn, name)
	c.SetColumnType(model.ColumnData)
	c.SetDataType(dataType)
	if err := s.AddNode(tableID, c, -1); err != nil {
		return nil, err
	}
	return c, nil
}

// AddCalculatedColumn creates a calculated column with an expression.
func (s *Session) AddCalculatedColumn(tableID, name, expr string) (*model.Node, error) {
	c := model.NewNode(model.KindColumn, name)
	c.SetColumnType(model.ColumnCalculated)
	if err := s.addWithExpression(tableID, c, expr); err != nil {
		return nil, err
	}
	return c, nil
}

// AddMeasure creates a measure with an expression.
func (s *Session) AddMeasure(tableID, name, expr string) (*model.Node, error) {
	m := model.NewNode(model.KindMeasure, name)
	if err := s.addWithExpression(tableID, m, expr); err != nil {
		return nil, err
	}
	return m, nil
}

// addWithExpression batches node creation with its initial expression so
// a single Undo removes both.
func (s *Session) addWithExpression(parentID string, n *model.Node, expr string) error {
	s.BeginBatch(fmt.Sprintf("add %s %s", n.Kind(), n.Name()))
	defer s.EndBatch()
	if err := s.AddNode(parentID, n, -1); err != nil {
		return err
	}
	if expr != "" {
		if err := s.SetExpression(n.ID(), expr); err != nil {
			return err
		}
	}
	return nil
}

// AddNode attaches a detached node (or subtree) under a parent; pos -1
// appends. Generic entry point behind the typed Add helpers, and the one
// the deserializer replays loads through.
func (s *Session) AddNode(parentID string, n *model.Node, pos int) error {
	s.guard()
	if err := s.graph.AddNode(parentID, n, pos); err != nil {
		return err
	}
	parent, _ := s.graph.Get(parentID)
	actualPos := indexOf(parent.Children(), n)
	s.indexSubtree(n)
	s.undo.Add(&addNodeAction{s: s, parentID: parentID, node: n, pos: actualPos})
	s.logger.Debug("added node", "kind", n.Kind(), "path", n.Path())
	s.notify(Event{Op: OpAdd, NodeID: n.ID()})
	return nil
}

// RemoveNode detaches a node and its subtree. References held by other
// expressions are left dangling in their text; no fixup runs on removal.
func (s *Session) RemoveNode(id string) error {
	s.guard()
	n, parentID, pos, err := s.graph.RemoveNode(id)
	if err != nil {
		return err
	}
	s.dropSubtreeSources(n)
	s.undo.Add(&removeNodeAction{s: s, parentID: parentID, node: n, pos: pos})
	s.logger.Debug("removed node", "kind", n.Kind(), "name", n.Name())
	s.notify(Event{Op: OpRemove, NodeID: id})
	return nil
}

// Rename changes a node's display name. When the node is a reference
// target, every dependent expression is rewritten inside the same
// transaction, so one Undo reverts the rename and its cascade atomically.
// A validation failure rejects the whole operation with no side effect.
func (s *Session) Rename(id, newName string) error {
	s.guard()
	n, ok := s.graph.Get(id)
	if !ok {
		return &model.NotFoundError{ID: id}
	}
	if newName == n.Name() {
		return nil
	}

	s.BeginBatch(fmt.Sprintf("rename %s %s", n.Kind(), n.Name()))
	defer s.EndBatch()

	oldName, err := s.graph.Rename(id, newName)
	if err != nil {
		return err // empty batch: nothing recorded
	}
	s.undo.Add(&renameAction{s: s, nodeID: id, oldName: oldName, newName: newName})
	s.logger.Info("renamed node", "kind", n.Kind(), "from", oldName, "to", newName)
	s.notify(Event{Op: OpRename, NodeID: id})

	if n.IsReferenceTarget() {
		s.fixupRename(n)
	}
	return nil
}

// Move re-parents a node. Dependent expressions qualifying the node with
// its old table are rewritten to its new canonical location inside the
// same transaction.
func (s *Session) Move(id, newParentID string) error {
	s.guard()
	n, ok := s.graph.Get(id)
	if !ok {
		return &model.NotFoundError{ID: id}
	}
	if n.Parent() != nil && n.Parent().ID() == newParentID {
		return nil
	}

	s.BeginBatch(fmt.Sprintf("move %s %s", n.Kind(), n.Name()))
	defer s.EndBatch()

	oldParentID, oldPos, err := s.graph.Move(id, newParentID, -1)
	if err != nil {
		return err
	}
	newParent, _ := s.graph.Get(newParentID)
	s.undo.Add(&moveNodeAction{
		s:           s,
		nodeID:      id,
		oldParentID: oldParentID,
		oldPos:      oldPos,
		newParentID: newParentID,
		newPos:      indexOf(newParent.Children(), n),
	})
	s.logger.Info("moved node", "kind", n.Kind(), "name", n.Name(), "to", newParent.Name())
	s.notify(Event{Op: OpMove, NodeID: id})

	if n.IsReferenceTarget() {
		s.fixupMove(n)
	}
	return nil
}

// SetExpression replaces a node's formula text. The dependency index is
// rebuilt for the node; text the tokenizer rejects is still stored, with
// an error marker and no reference edges.
func (s *Session) SetExpression(id, expr string) error {
	s.guard()
	n, ok := s.graph.Get(id)
	if !ok {
		return &model.NotFoundError{ID: id}
	}
	oldMark := n.ExpressionError()
	oldExpr, err := s.graph.SetExpression(id, expr)
	if err != nil {
		return err
	}
	if err := s.index.OnExpressionChanged(n); err != nil {
		_, _ = s.graph.SetExpressionError(id, err.Error())
		s.logger.Warn("expression does not tokenize", "path", n.Path(), "err", err)
	}
	s.undo.Add(&setExpressionAction{
		s:       s,
		nodeID:  id,
		oldExpr: oldExpr,
		newExpr: expr,
		oldMark: oldMark,
		newMark: n.ExpressionError(),
	})
	s.notify(Event{Op: OpSetExpression, NodeID: id})
	return nil
}

// SetDescription replaces a node's description.
func (s *Session) SetDescription(id, desc string) error {
	s.guard()
	old, err := s.graph.SetDescription(id, desc)
	if err != nil {
		return err
	}
	if old == desc {
		return nil
	}
	s.undo.Add(&setDescriptionAction{s: s, nodeID: id, old: old, new: desc})
	s.notify(Event{Op: OpSetProperty, NodeID: id})
	return nil
}

// guard rejects mutation entry during replay. Replaying a transaction
// must never re-enter the recording surface; doing so is an internal
// invariant violation, not a user error.
func (s *Session) guard() {
	if s.undo.InReplay() {
		panic("session: mutation entry point called during undo/redo replay")
	}
}

// indexSubtree (re)indexes every expression holder in a subtree.
// Expressions that fail to tokenize get an error marker and no edges.
func (s *Session) indexSubtree(n *model.Node) {
	forEachNode(n, func(d *model.Node) {
		if !d.HasExpression() || d.Expression() == "" {
			return
		}
		if err := s.index.OnExpressionChanged(d); err != nil {
			_, _ = s.graph.SetExpressionError(d.ID(), err.Error())
			s.logger.Warn("expression does not tokenize", "path", d.Path(), "err", err)
		}
	})
}

// reindexAll re-derives every edge in the index. A replayed transaction
// mutates names, structure and expressions in reverse order of the
// original edits, so resolution done mid-replay can be stale; one sweep
// after the replay restores coherence. Expressions that do not tokenize
// keep their recorded markers and simply contribute no edges.
func (s *Session) reindexAll() {
	s.graph.Walk(func(n *model.Node) {
		if !n.HasExpression() || n.Expression() == "" {
			return
		}
		_ = s.index.OnExpressionChanged(n)
	})
}

// dropSubtreeSources drops the outgoing edges of every node in a removed
// subtree. Incoming edges stay: see deps.DropSource.
func (s *Session) dropSubtreeSources(n *model.Node) {
	forEachNode(n, func(d *model.Node) { s.index.DropSource(d.ID()) })
}

func (s *Session) notify(e Event) {
	for _, fn := range s.listeners {
		fn(e)
	}
}

func forEachNode(n *model.Node, fn func(*model.Node)) {
	fn(n)
	for _, c := range n.Children() {
		forEachNode(c, fn)
	}
}

func indexOf(children []*model.Node, n *model.Node) int {
	for i, c := range children {
		if c == n {
			return i
		}
	}
	return -1
}
