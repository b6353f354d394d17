package model

import "strings"

// legalParents maps each node kind to the kinds that may contain it.
// Annotations may hang off any node.
var legalParents = map[Kind][]Kind{
	KindTable:        {KindModel},
	KindColumn:       {KindTable},
	KindMeasure:      {KindTable},
	KindHierarchy:    {KindTable},
	KindRelationship: {KindModel},
	KindPerspective:  {KindModel},
	KindRole:         {KindModel},
}

// Graph owns the model tree and validates every primitive write before
// applying it. A rejected write returns a typed error and leaves the
// graph untouched. The graph records nothing: undo bookkeeping and
// cascaded fixups are the session's concern.
type Graph struct {
	root *Node
	byID map[string]*Node
}

// NewGraph creates a graph holding a single model root node.
func NewGraph(modelName string) *Graph {
	root := NewNode(KindModel, modelName)
	return &Graph{
		root: root,
		byID: map[string]*Node{root.id: root},
	}
}

// NewGraphWithRoot wraps an existing detached model node as the root, so
// a restored model keeps its persisted root id. The node must be a model
// root without children; subtrees are attached through AddNode.
func NewGraphWithRoot(root *Node) (*Graph, error) {
	if root.kind != KindModel {
		return nil, &InvalidValueError{Property: "kind", Reason: "root must be a " + string(KindModel)}
	}
	if len(root.children) > 0 || root.parent != nil {
		return nil, &InvalidValueError{Property: "root", Reason: "must be detached and childless"}
	}
	return &Graph{
		root: root,
		byID: map[string]*Node{root.id: root},
	}, nil
}

// Root returns the model root node.
func (g *Graph) Root() *Node { return g.root }

// Get returns the node with the given id.
func (g *Graph) Get(id string) (*Node, bool) {
	n, ok := g.byID[id]
	return n, ok
}

// Len returns the number of nodes in the graph, root included.
func (g *Graph) Len() int { return len(g.byID) }

// Tables returns the model's tables in child order.
func (g *Graph) Tables() []*Node {
	var tables []*Node
	for _, c := range g.root.children {
		if c.kind == KindTable {
			tables = append(tables, c)
		}
	}
	return tables
}

// Walk visits every node depth-first, parents before children.
func (g *Graph) Walk(fn func(*Node)) {
	var visit func(n *Node)
	visit = func(n *Node) {
		fn(n)
		for _, c := range n.children {
			visit(c)
		}
	}
	visit(g.root)
}

// AddNode attaches a detached node (and any children it carries) under
// the given parent at position pos; pos -1 appends. The write is
// validated first: kind legality, sibling-name uniqueness, id collisions.
func (g *Graph) AddNode(parentID string, n *Node, pos int) error {
	parent, ok := g.byID[parentID]
	if !ok {
		return &NotFoundError{ID: parentID}
	}
	if n.name == "" {
		return &InvalidValueError{Property: "name", Reason: "must not be empty"}
	}
	if !kindAllowedUnder(n.kind, parent.kind) {
		return &InvalidMoveError{
			Node:   n.name,
			Target: parent.name,
			Reason: "a " + string(n.kind) + " cannot live under a " + string(parent.kind),
		}
	}
	if sib := findSibling(parent, n.kind, n.name, nil); sib != nil {
		return &NameConflictError{Kind: n.kind, Name: n.name, Parent: parent.name}
	}
	var collision error
	walkDetached(n, func(d *Node) {
		if _, exists := g.byID[d.id]; exists && collision == nil {
			collision = &InvalidValueError{Property: "id", Reason: "id " + d.id + " already present"}
		}
	})
	if collision != nil {
		return collision
	}

	n.parent = parent
	if pos < 0 || pos > len(parent.children) {
		pos = len(parent.children)
	}
	parent.children = append(parent.children, nil)
	copy(parent.children[pos+1:], parent.children[pos:])
	parent.children[pos] = n

	walkDetached(n, func(d *Node) { g.byID[d.id] = d })
	return nil
}

// RemoveNode detaches the node (with its subtree) from the graph and
// returns its previous parent id and position so the removal can be
// inverted. The model root cannot be removed.
func (g *Graph) RemoveNode(id string) (node *Node, parentID string, pos int, err error) {
	n, ok := g.byID[id]
	if !ok {
		return nil, "", 0, &NotFoundError{ID: id}
	}
	if n == g.root {
		return nil, "", 0, &InvalidMoveError{Node: n.name, Target: "", Reason: "the model root cannot be removed"}
	}

	parent := n.parent
	pos = parent.childIndex(n)
	parent.children = append(parent.children[:pos], parent.children[pos+1:]...)
	n.parent = nil

	walkDetached(n, func(d *Node) { delete(g.byID, d.id) })
	return n, parent.id, pos, nil
}

// Rename validates and applies a name change, returning the old name.
func (g *Graph) Rename(id, newName string) (oldName string, err error) {
	n, ok := g.byID[id]
	if !ok {
		return "", &NotFoundError{ID: id}
	}
	if newName == "" {
		return "", &InvalidValueError{Property: "name", Reason: "must not be empty"}
	}
	if n.parent != nil {
		if sib := findSibling(n.parent, n.kind, newName, n); sib != nil {
			return "", &NameConflictError{Kind: n.kind, Name: newName, Parent: n.parent.name}
		}
	}
	oldName = n.name
	n.name = newName
	return oldName, nil
}

// Move validates and applies a re-parenting, returning the old parent id
// and position. pos -1 appends.
func (g *Graph) Move(id, newParentID string, pos int) (oldParentID string, oldPos int, err error) {
	n, ok := g.byID[id]
	if !ok {
		return "", 0, &NotFoundError{ID: id}
	}
	if n == g.root {
		return "", 0, &InvalidMoveError{Node: n.name, Target: "", Reason: "the model root cannot be moved"}
	}
	target, ok := g.byID[newParentID]
	if !ok {
		return "", 0, &NotFoundError{ID: newParentID}
	}
	if !kindAllowedUnder(n.kind, target.kind) {
		return "", 0, &InvalidMoveError{
			Node:   n.name,
			Target: target.name,
			Reason: "a " + string(n.kind) + " cannot live under a " + string(target.kind),
		}
	}
	for p := target; p != nil; p = p.parent {
		if p == n {
			return "", 0, &InvalidMoveError{Node: n.name, Target: target.name, Reason: "target is inside the moved subtree"}
		}
	}
	if sib := findSibling(target, n.kind, n.name, n); sib != nil {
		return "", 0, &NameConflictError{Kind: n.kind, Name: n.name, Parent: target.name}
	}

	oldParent := n.parent
	oldPos = oldParent.childIndex(n)
	oldParent.children = append(oldParent.children[:oldPos], oldParent.children[oldPos+1:]...)

	if pos < 0 || pos > len(target.children) {
		pos = len(target.children)
	}
	target.children = append(target.children, nil)
	copy(target.children[pos+1:], target.children[pos:])
	target.children[pos] = n
	n.parent = target

	return oldParent.id, oldPos, nil
}

// SetExpression applies new formula text, returning the old text. Setting
// an expression clears any error marker. Rejected for kinds that carry no
// expression.
func (g *Graph) SetExpression(id, expr string) (oldExpr string, err error) {
	n, ok := g.byID[id]
	if !ok {
		return "", &NotFoundError{ID: id}
	}
	if !n.HasExpression() {
		return "", &InvalidValueError{Property: "expression", Reason: string(n.kind) + " does not carry an expression"}
	}
	oldExpr = n.expression
	n.expression = expr
	n.expressionError = ""
	return oldExpr, nil
}

// SetExpressionError sets or clears the fixup error marker, returning the
// previous marker.
func (g *Graph) SetExpressionError(id, msg string) (old string, err error) {
	n, ok := g.byID[id]
	if !ok {
		return "", &NotFoundError{ID: id}
	}
	old = n.expressionError
	n.expressionError = msg
	return old, nil
}

// SetDescription applies a description change, returning the old text.
func (g *Graph) SetDescription(id, desc string) (old string, err error) {
	n, ok := g.byID[id]
	if !ok {
		return "", &NotFoundError{ID: id}
	}
	old = n.description
	n.description = desc
	return old, nil
}

// FindTable resolves a table by name, case-insensitively, scanning the
// model's tables in child order.
func (g *Graph) FindTable(name string) (*Node, bool) {
	for _, t := range g.Tables() {
		if strings.EqualFold(t.name, name) {
			return t, true
		}
	}
	return nil, false
}

// FindMember resolves a column or measure by name within a table,
// case-insensitively. Measures shadow columns on a name tie.
func FindMember(table *Node, name string) (*Node, bool) {
	var column *Node
	for _, c := range table.children {
		if !strings.EqualFold(c.name, name) {
			continue
		}
		switch c.kind {
		case KindMeasure:
			return c, true
		case KindColumn:
			if column == nil {
				column = c
			}
		}
	}
	if column != nil {
		return column, true
	}
	return nil, false
}

// kindAllowedUnder reports whether child nodes of kind k may live under a
// parent of kind p.
func kindAllowedUnder(k, p Kind) bool {
	if k == KindAnnotation {
		return true
	}
	for _, allowed := range legalParents[k] {
		if allowed == p {
			return true
		}
	}
	return false
}

// findSibling returns a child of parent with the same kind and a
// case-insensitively equal name, ignoring skip.
func findSibling(parent *Node, kind Kind, name string, skip *Node) *Node {
	for _, c := range parent.children {
		if c == skip {
			continue
		}
		if c.kind == kind && strings.EqualFold(c.name, name) {
			return c
		}
	}
	return nil
}

// walkDetached visits a detached subtree depth-first.
func walkDetached(n *Node, fn func(*Node)) {
	fn(n)
	for _, c := range n.children {
		walkDetached(c, fn)
	}
}
