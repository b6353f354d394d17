// Package state persists a model tree to SQLite and restores it. A save
// is a full snapshot of the node table; edit history is deliberately not
// persisted, so a reopened model starts with empty undo/redo stacks.
package state

import (
	"github.com/leapstack-labs/tabular/internal/model"
)

// Store is the persistence surface the CLI and REPL work against.
type Store interface {
	// SaveModel replaces the persisted snapshot with the graph's current state.
	SaveModel(g *model.Graph) error

	// LoadModel reconstructs the persisted graph. Returns a NotFoundError
	// from the model package when no snapshot has been saved.
	LoadModel() (*model.Graph, error)

	Close() error
}

// NodeRow is one persisted node. Fields mirror the nodes table; empty
// strings stand in for absent optional values.
type NodeRow struct {
	ID              string
	ParentID        string
	Kind            string
	Name            string
	Position        int
	ColumnType      string
	DataType        string
	Expression      string
	ExpressionError string
	Description     string
	FromColumnID    string
	ToColumnID      string
}

// rowFromNode flattens a node for insertion. The position is the node's
// index among its siblings at save time.
func rowFromNode(n *model.Node, position int) NodeRow {
	row := NodeRow{
		ID:              n.ID(),
		Kind:            string(n.Kind()),
		Name:            n.Name(),
		Position:        position,
		DataType:        n.DataType(),
		Expression:      n.Expression(),
		ExpressionError: n.ExpressionError(),
		Description:     n.Description(),
	}
	if p := n.Parent(); p != nil {
		row.ParentID = p.ID()
	}
	if n.Kind() == model.KindColumn {
		row.ColumnType = string(n.ColumnType())
	}
	if n.Kind() == model.KindRelationship {
		row.FromColumnID, row.ToColumnID = n.RelationshipEndpoints()
	}
	return row
}

// nodeFromRow rebuilds a detached node carrying the row's persisted state.
// Expression text is excluded here: expressions are applied after the node
// is attached, so the graph can validate the holder kind.
func nodeFromRow(row NodeRow) *model.Node {
	n := model.NewNodeWithID(row.ID, model.Kind(row.Kind), row.Name)
	if row.ColumnType != "" {
		n.SetColumnType(model.ColumnType(row.ColumnType))
	}
	if row.DataType != "" {
		n.SetDataType(row.DataType)
	}
	if row.FromColumnID != "" || row.ToColumnID != "" {
		n.SetRelationshipEndpoints(row.FromColumnID, row.ToColumnID)
	}
	return n
}
