// Package model implements the object graph of a tabular model: typed
// nodes with stable identity, a mutable tree, and validated primitive
// writes. The graph is the authoritative store for node properties;
// undo recording and reference fixups are layered on top by the session.
package model

import "github.com/google/uuid"

// Kind is the semantic type of a node.
type Kind string

// Node kinds.
const (
	KindModel        Kind = "model"
	KindTable        Kind = "table"
	KindColumn       Kind = "column"
	KindMeasure      Kind = "measure"
	KindRelationship Kind = "relationship"
	KindHierarchy    Kind = "hierarchy"
	KindPerspective  Kind = "perspective"
	KindRole         Kind = "role"
	KindAnnotation   Kind = "annotation"
)

// ColumnType distinguishes stored from computed columns.
type ColumnType string

const (
	// ColumnData is a column populated from source data.
	ColumnData ColumnType = "data"
	// ColumnCalculated is a column computed from a formula expression.
	ColumnCalculated ColumnType = "calculated"
)

// Node is one object in the model tree. Identity (ID) is immutable and
// assigned at creation; everything edges and undo actions record refers
// to nodes by ID, never by name.
type Node struct {
	id   string
	kind Kind

	name     string
	parent   *Node
	children []*Node

	// Kind-specific properties.
	expression      string
	expressionError string
	columnType      ColumnType
	dataType        string
	description     string

	// Relationship endpoints, by column id.
	fromColumnID string
	toColumnID   string
}

// NewNode creates a detached node with a fresh id.
func NewNode(kind Kind, name string) *Node {
	return &Node{
		id:   uuid.New().String(),
		kind: kind,
		name: name,
	}
}

// NewNodeWithID creates a detached node with a caller-supplied id.
// Used when restoring a persisted model, where ids must survive reloads.
func NewNodeWithID(id string, kind Kind, name string) *Node {
	return &Node{
		id:   id,
		kind: kind,
		name: name,
	}
}

// ID returns the stable identity of the node.
func (n *Node) ID() string { return n.id }

// Kind returns the node kind.
func (n *Node) Kind() Kind { return n.kind }

// Name returns the current display name.
func (n *Node) Name() string { return n.name }

// Parent returns the containing node, or nil for the model root.
func (n *Node) Parent() *Node { return n.parent }

// Children returns the ordered child list. Callers must not mutate it.
func (n *Node) Children() []*Node { return n.children }

// Expression returns the formula text, empty for nodes that carry none.
func (n *Node) Expression() string { return n.expression }

// ExpressionError returns the error marker left by a failed reference
// fixup, empty when the expression is clean.
func (n *Node) ExpressionError() string { return n.expressionError }

// ColumnType returns the column variant; meaningful only for columns.
func (n *Node) ColumnType() ColumnType { return n.columnType }

// DataType returns the declared data type; meaningful only for columns.
func (n *Node) DataType() string { return n.dataType }

// Description returns the free-form description.
func (n *Node) Description() string { return n.description }

// RelationshipEndpoints returns the from/to column ids of a relationship.
func (n *Node) RelationshipEndpoints() (fromColumnID, toColumnID string) {
	return n.fromColumnID, n.toColumnID
}

// SetColumnType sets the column variant on a detached column node.
func (n *Node) SetColumnType(t ColumnType) { n.columnType = t }

// SetDataType sets the declared data type on a detached column node.
func (n *Node) SetDataType(t string) { n.dataType = t }

// SetRelationshipEndpoints sets the column ids a relationship joins.
func (n *Node) SetRelationshipEndpoints(fromColumnID, toColumnID string) {
	n.fromColumnID = fromColumnID
	n.toColumnID = toColumnID
}

// HasExpression reports whether this node kind carries formula text:
// measures and calculated columns.
func (n *Node) HasExpression() bool {
	switch n.kind {
	case KindMeasure:
		return true
	case KindColumn:
		return n.columnType == ColumnCalculated
	default:
		return false
	}
}

// IsReferenceTarget reports whether this node's name can appear inside
// another object's formula text.
func (n *Node) IsReferenceTarget() bool {
	switch n.kind {
	case KindTable, KindColumn, KindMeasure:
		return true
	default:
		return false
	}
}

// Table returns the enclosing table, or nil when the node is not inside one.
func (n *Node) Table() *Node {
	for p := n; p != nil; p = p.parent {
		if p.kind == KindTable {
			return p
		}
	}
	return nil
}

// Path returns the human-readable location of the node, e.g.
// Model/Sales/Total Sales. Used for logging and deterministic ordering.
func (n *Node) Path() string {
	if n.parent == nil {
		return n.name
	}
	return n.parent.Path() + "/" + n.name
}

// childIndex returns the position of c among n's children, or -1.
func (n *Node) childIndex(c *Node) int {
	for i, child := range n.children {
		if child == c {
			return i
		}
	}
	return -1
}
