// Package deps maintains the dependency index of a model: for every
// formula-bearing node, the set of nodes its expression references, with
// the text spans the references occupy. The index is syntactic only;
// reference cycles are valid data and pass through untouched.
package deps

import (
	"sort"

	"github.com/leapstack-labs/tabular/internal/model"
	"github.com/leapstack-labs/tabular/pkg/formula"
)

// RefSpan records where one reference to a target occurs inside a source
// expression and which part of the token carries the target's name.
type RefSpan struct {
	// Span covers the whole reference token.
	Span formula.Span
	// TableSpan covers the table part (quotes or bare identifier
	// included) when the token has one.
	TableSpan formula.Span
	// NameSpan covers the bracketed member part when the token has one.
	NameSpan formula.Span
	// ViaTable is true when the target is named by the table part of the
	// token, false when it is named by the bracketed member part.
	ViaTable bool
}

// Edge is the set of reference occurrences from one source expression to
// one target node.
type Edge struct {
	Source string
	Target string
	Spans  []RefSpan
}

// Index maps expression-bearing nodes to the nodes they reference. Edges
// are keyed by node id on both sides, so renames never invalidate the
// index itself, only the dependent expressions' text.
type Index struct {
	graph *model.Graph

	// outgoing: source id -> target id -> edge
	outgoing map[string]map[string]*Edge
	// incoming: target id -> source id -> edge
	incoming map[string]map[string]*Edge
}

// New creates an empty index over the graph.
func New(g *model.Graph) *Index {
	return &Index{
		graph:    g,
		outgoing: make(map[string]map[string]*Edge),
		incoming: make(map[string]map[string]*Edge),
	}
}

// OnExpressionChanged re-derives all outgoing edges of the node from its
// current expression text. The previous edge set is discarded wholesale:
// resolution depends on current names, so even spans unchanged across the
// edit are resolved afresh. A tokenize failure leaves the node with no
// outgoing edges and is returned to the caller.
func (ix *Index) OnExpressionChanged(n *model.Node) error {
	ix.dropOutgoing(n.ID())

	if !n.HasExpression() || n.Expression() == "" {
		return nil
	}

	toks, err := formula.Tokenize(n.Expression())
	if err != nil {
		return err
	}

	for _, tok := range toks {
		if !tok.Kind.IsReference() {
			continue
		}
		ix.recordToken(n, tok)
	}
	return nil
}

// recordToken resolves one reference token and records the resulting
// edge occurrences. Unresolvable references produce no edge.
func (ix *Index) recordToken(src *model.Node, tok formula.Token) {
	switch tok.Kind {
	case formula.KindTableRef:
		if table, ok := ix.graph.FindTable(tok.Table); ok {
			ix.addSpan(src.ID(), table.ID(), RefSpan{
				Span:      tok.Span,
				TableSpan: tok.TableSpan,
				ViaTable:  true,
			})
		}

	case formula.KindQualifiedRef:
		table, ok := ix.graph.FindTable(tok.Table)
		if !ok {
			return
		}
		ix.addSpan(src.ID(), table.ID(), RefSpan{
			Span:      tok.Span,
			TableSpan: tok.TableSpan,
			NameSpan:  tok.NameSpan,
			ViaTable:  true,
		})
		if member, ok := model.FindMember(table, tok.Name); ok {
			ix.addSpan(src.ID(), member.ID(), RefSpan{
				Span:      tok.Span,
				TableSpan: tok.TableSpan,
				NameSpan:  tok.NameSpan,
			})
		}

	case formula.KindBracketedRef:
		if member, ok := ix.resolveUnqualified(tok.Name); ok {
			ix.addSpan(src.ID(), member.ID(), RefSpan{
				Span:     tok.Span,
				NameSpan: tok.NameSpan,
			})
		}
	}
}

// resolveUnqualified resolves a bare [Name] against the whole model.
// Policy: tables are scanned in sorted name order; within the scan,
// measures are preferred over columns; the first match wins.
func (ix *Index) resolveUnqualified(name string) (*model.Node, bool) {
	tables := ix.graph.Tables()
	sort.Slice(tables, func(i, j int) bool { return tables[i].Name() < tables[j].Name() })

	var column *model.Node
	for _, t := range tables {
		member, ok := model.FindMember(t, name)
		if !ok {
			continue
		}
		if member.Kind() == model.KindMeasure {
			return member, true
		}
		if column == nil {
			column = member
		}
	}
	if column != nil {
		return column, true
	}
	return nil, false
}

// DropSource drops the node's outgoing edges. Called when a node leaves
// the graph: its expression leaves with it, but edges into it are kept,
// since the dependents' text still names it and must survive an undo of
// the removal. Dependents skips sources no longer present in the graph.
func (ix *Index) DropSource(id string) {
	ix.dropOutgoing(id)
}

// Dependents returns the formula-bearing nodes with an edge into the
// target, sorted by path (ties broken by id) for deterministic cascades.
func (ix *Index) Dependents(targetID string) []*model.Node {
	sources := ix.incoming[targetID]
	if len(sources) == 0 {
		return nil
	}
	nodes := make([]*model.Node, 0, len(sources))
	for src := range sources {
		if n, ok := ix.graph.Get(src); ok {
			nodes = append(nodes, n)
		}
	}
	sort.Slice(nodes, func(i, j int) bool {
		pi, pj := nodes[i].Path(), nodes[j].Path()
		if pi != pj {
			return pi < pj
		}
		return nodes[i].ID() < nodes[j].ID()
	})
	return nodes
}

// EdgeBetween returns the recorded occurrences of references from source
// to target.
func (ix *Index) EdgeBetween(sourceID, targetID string) (*Edge, bool) {
	e, ok := ix.outgoing[sourceID][targetID]
	return e, ok
}

// References returns the ids of the nodes the source currently references,
// sorted for deterministic output.
func (ix *Index) References(sourceID string) []string {
	targets := ix.outgoing[sourceID]
	if len(targets) == 0 {
		return nil
	}
	ids := make([]string, 0, len(targets))
	for t := range targets {
		ids = append(ids, t)
	}
	sort.Strings(ids)
	return ids
}

// Rebuild re-derives the whole index from the graph. Used after loading a
// model. The first tokenize failure aborts and is returned.
func (ix *Index) Rebuild() error {
	ix.outgoing = make(map[string]map[string]*Edge)
	ix.incoming = make(map[string]map[string]*Edge)

	var firstErr error
	ix.graph.Walk(func(n *model.Node) {
		if firstErr != nil || !n.HasExpression() {
			return
		}
		if err := ix.OnExpressionChanged(n); err != nil {
			firstErr = err
		}
	})
	return firstErr
}

func (ix *Index) addSpan(src, target string, span RefSpan) {
	edges := ix.outgoing[src]
	if edges == nil {
		edges = make(map[string]*Edge)
		ix.outgoing[src] = edges
	}
	e := edges[target]
	if e == nil {
		e = &Edge{Source: src, Target: target}
		edges[target] = e

		in := ix.incoming[target]
		if in == nil {
			in = make(map[string]*Edge)
			ix.incoming[target] = in
		}
		in[src] = e
	}
	e.Spans = append(e.Spans, span)
}

func (ix *Index) dropOutgoing(src string) {
	for target := range ix.outgoing[src] {
		delete(ix.incoming[target], src)
		if len(ix.incoming[target]) == 0 {
			delete(ix.incoming, target)
		}
	}
	delete(ix.outgoing, src)
}
