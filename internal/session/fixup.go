package session

import (
	"fmt"
	"sort"

	"github.com/leapstack-labs/tabular/internal/deps"
	"github.com/leapstack-labs/tabular/internal/model"
	"github.com/leapstack-labs/tabular/pkg/formula"
)

// The fixup engine. When a reference target is renamed or relocated, the
// expressions naming it are rewritten span by span, using the spans the
// dependency index recorded — never a substring search, so text inside
// string literals or comments that happens to match is untouched. Each
// rewrite flows through SetExpression and lands in the same transaction
// as the triggering rename or move.
//
// Ordering policy: dependents are processed in path order (ties broken
// by id), and the spans of one expression are spliced right to left so
// earlier offsets stay valid.

// fixupRename rewrites dependents after target's name changed. For a
// table, the table part of each referencing token is replaced with the
// quoted new name; for a column or measure, the bracketed member part.
func (s *Session) fixupRename(target *model.Node) {
	var text string
	var part func(rs deps.RefSpan) (formula.Span, bool)

	if target.Kind() == model.KindTable {
		text = model.QuoteTable(target.Name())
		part = func(rs deps.RefSpan) (formula.Span, bool) {
			if rs.ViaTable && rs.TableSpan.Valid() {
				return rs.TableSpan, true
			}
			return formula.Span{}, false
		}
	} else {
		text = model.BracketName(target.Name())
		part = func(rs deps.RefSpan) (formula.Span, bool) {
			if !rs.ViaTable && rs.NameSpan.Valid() {
				return rs.NameSpan, true
			}
			return formula.Span{}, false
		}
	}
	s.rewriteDependents(target, part, text)
}

// fixupMove rewrites dependents after a column or measure changed table.
// Only table-qualified references need rewriting: an unqualified [Name]
// does not encode the location and stays valid as written.
func (s *Session) fixupMove(target *model.Node) {
	if target.Kind() == model.KindTable {
		return
	}
	text := model.CanonicalRef(target)
	s.rewriteDependents(target, func(rs deps.RefSpan) (formula.Span, bool) {
		if !rs.ViaTable && rs.TableSpan.Valid() {
			return rs.Span, true
		}
		return formula.Span{}, false
	}, text)
}

// rewriteDependents rewrites, for every dependent of target, the spans
// selected by part with the replacement text.
func (s *Session) rewriteDependents(target *model.Node, part func(deps.RefSpan) (formula.Span, bool), text string) {
	for _, dep := range s.index.Dependents(target.ID()) {
		edge, ok := s.index.EdgeBetween(dep.ID(), target.ID())
		if !ok {
			continue
		}
		var spans []formula.Span
		for _, rs := range edge.Spans {
			if sp, selected := part(rs); selected {
				spans = append(spans, sp)
			}
		}
		if len(spans) == 0 {
			continue
		}
		s.applyFixup(dep, spliceSpans(dep.Expression(), spans, text))
	}
}

// applyFixup writes one rewritten expression through the normal mutation
// path. If the rewritten text does not tokenize, the dependent keeps its
// old text and gets an error marker instead — a visible inconsistency is
// preferred over blocking the rename or leaving the batch half-applied.
func (s *Session) applyFixup(dep *model.Node, newExpr string) {
	if _, err := formula.Tokenize(newExpr); err != nil {
		oldMark := dep.ExpressionError()
		mark := fmt.Sprintf("reference fixup failed: %v", err)
		_, _ = s.graph.SetExpressionError(dep.ID(), mark)
		s.undo.Add(&setErrorMarkAction{s: s, nodeID: dep.ID(), old: oldMark, new: mark})
		s.logger.Warn("fixup skipped: rewritten expression does not tokenize",
			"path", dep.Path(), "err", err)
		return
	}
	if err := s.SetExpression(dep.ID(), newExpr); err != nil {
		// dep is a known expression holder; this write cannot fail
		// validation. Anything else is stack corruption.
		panic(fmt.Sprintf("session: fixup write failed: %v", err))
	}
	s.logger.Debug("rewrote dependent expression", "path", dep.Path())
}

// spliceSpans replaces each span with repl, working right to left.
func spliceSpans(text string, spans []formula.Span, repl string) string {
	sorted := make([]formula.Span, len(spans))
	copy(sorted, spans)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start > sorted[j].Start })

	for _, sp := range sorted {
		if sp.Start < 0 || sp.End > len(text) || sp.Start > sp.End {
			panic(fmt.Sprintf("session: fixup span [%d,%d) out of range for expression of length %d",
				sp.Start, sp.End, len(text)))
		}
		text = text[:sp.Start] + repl + text[sp.End:]
	}
	return text
}
