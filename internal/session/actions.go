package session

import (
	"fmt"

	"github.com/leapstack-labs/tabular/internal/model"
)

// The concrete undo actions. Each is created after its mutation was
// validated and applied, holds ids plus old/new values only, and is
// never mutated again. Apply and Revert mutate the graph directly —
// replay does not go back through the session entry points — and keep
// the dependency index in step.

type renameAction struct {
	s       *Session
	nodeID  string
	oldName string
	newName string
}

func (a *renameAction) Apply() error {
	_, err := a.s.graph.Rename(a.nodeID, a.newName)
	return err
}

func (a *renameAction) Revert() error {
	_, err := a.s.graph.Rename(a.nodeID, a.oldName)
	return err
}

func (a *renameAction) String() string {
	return fmt.Sprintf("rename %q -> %q", a.oldName, a.newName)
}

type moveNodeAction struct {
	s           *Session
	nodeID      string
	oldParentID string
	oldPos      int
	newParentID string
	newPos      int
}

func (a *moveNodeAction) Apply() error {
	_, _, err := a.s.graph.Move(a.nodeID, a.newParentID, a.newPos)
	return err
}

func (a *moveNodeAction) Revert() error {
	_, _, err := a.s.graph.Move(a.nodeID, a.oldParentID, a.oldPos)
	return err
}

func (a *moveNodeAction) String() string {
	return fmt.Sprintf("move node %s", a.nodeID)
}

type addNodeAction struct {
	s        *Session
	parentID string
	node     *model.Node
	pos      int
}

func (a *addNodeAction) Apply() error {
	if err := a.s.graph.AddNode(a.parentID, a.node, a.pos); err != nil {
		return err
	}
	a.s.indexSubtree(a.node)
	return nil
}

func (a *addNodeAction) Revert() error {
	if _, _, _, err := a.s.graph.RemoveNode(a.node.ID()); err != nil {
		return err
	}
	a.s.dropSubtreeSources(a.node)
	return nil
}

func (a *addNodeAction) String() string {
	return fmt.Sprintf("add %s %s", a.node.Kind(), a.node.Name())
}

type removeNodeAction struct {
	s        *Session
	parentID string
	node     *model.Node
	pos      int
}

func (a *removeNodeAction) Apply() error {
	if _, _, _, err := a.s.graph.RemoveNode(a.node.ID()); err != nil {
		return err
	}
	a.s.dropSubtreeSources(a.node)
	return nil
}

func (a *removeNodeAction) Revert() error {
	if err := a.s.graph.AddNode(a.parentID, a.node, a.pos); err != nil {
		return err
	}
	a.s.indexSubtree(a.node)
	return nil
}

func (a *removeNodeAction) String() string {
	return fmt.Sprintf("remove %s %s", a.node.Kind(), a.node.Name())
}

type setExpressionAction struct {
	s       *Session
	nodeID  string
	oldExpr string
	newExpr string
	oldMark string
	newMark string
}

func (a *setExpressionAction) apply(expr, mark string) error {
	if _, err := a.s.graph.SetExpression(a.nodeID, expr); err != nil {
		return err
	}
	if _, err := a.s.graph.SetExpressionError(a.nodeID, mark); err != nil {
		return err
	}
	n, ok := a.s.graph.Get(a.nodeID)
	if !ok {
		return &model.NotFoundError{ID: a.nodeID}
	}
	// A tokenize failure here was already observed when the action was
	// recorded; the marker above carries it.
	_ = a.s.index.OnExpressionChanged(n)
	return nil
}

func (a *setExpressionAction) Apply() error  { return a.apply(a.newExpr, a.newMark) }
func (a *setExpressionAction) Revert() error { return a.apply(a.oldExpr, a.oldMark) }

func (a *setExpressionAction) String() string {
	return fmt.Sprintf("set expression on %s", a.nodeID)
}

type setErrorMarkAction struct {
	s      *Session
	nodeID string
	old    string
	new    string
}

func (a *setErrorMarkAction) Apply() error {
	_, err := a.s.graph.SetExpressionError(a.nodeID, a.new)
	return err
}

func (a *setErrorMarkAction) Revert() error {
	_, err := a.s.graph.SetExpressionError(a.nodeID, a.old)
	return err
}

func (a *setErrorMarkAction) String() string {
	return fmt.Sprintf("mark expression error on %s", a.nodeID)
}

type setDescriptionAction struct {
	s      *Session
	nodeID string
	old    string
	new    string
}

func (a *setDescriptionAction) Apply() error {
	_, err := a.s.graph.SetDescription(a.nodeID, a.new)
	return err
}

func (a *setDescriptionAction) Revert() error {
	_, err := a.s.graph.SetDescription(a.nodeID, a.old)
	return err
}

func (a *setDescriptionAction) String() string {
	return fmt.Sprintf("set description on %s", a.nodeID)
}
