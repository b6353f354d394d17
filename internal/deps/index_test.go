package deps

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/tabular/internal/model"
)

// fixture builds a Sales table with an Amount column and returns the
// graph, index and table.
func fixture(t *testing.T) (*model.Graph, *Index, *model.Node) {
	t.Helper()
	g := model.NewGraph("Model")
	sales := model.NewNode(model.KindTable, "Sales")
	require.NoError(t, g.AddNode(g.Root().ID(), sales, -1))
	amount := model.NewNode(model.KindColumn, "Amount")
	require.NoError(t, g.AddNode(sales.ID(), amount, -1))
	return g, New(g), sales
}

func addMeasure(t *testing.T, g *model.Graph, ix *Index, table *model.Node, name, expr string) *model.Node {
	t.Helper()
	m := model.NewNode(model.KindMeasure, name)
	require.NoError(t, g.AddNode(table.ID(), m, -1))
	_, err := g.SetExpression(m.ID(), expr)
	require.NoError(t, err)
	require.NoError(t, ix.OnExpressionChanged(m))
	return m
}

func TestIndex_Dependents(t *testing.T) {
	g, ix, sales := fixture(t)

	m1 := addMeasure(t, g, ix, sales, "M1", "1")
	m2 := addMeasure(t, g, ix, sales, "M2", "[M1] + 1")

	deps := ix.Dependents(m1.ID())
	require.Len(t, deps, 1)
	assert.Equal(t, m2.ID(), deps[0].ID())

	assert.Empty(t, ix.Dependents(m2.ID()))
}

func TestIndex_QualifiedReferenceHitsTableAndMember(t *testing.T) {
	g, ix, sales := fixture(t)
	amount, ok := model.FindMember(sales, "Amount")
	require.True(t, ok)

	m := addMeasure(t, g, ix, sales, "Total", "SUM('Sales'[Amount])")

	assert.Len(t, ix.Dependents(sales.ID()), 1, "qualified ref depends on the table")
	assert.Len(t, ix.Dependents(amount.ID()), 1, "qualified ref depends on the column")

	edge, ok := ix.EdgeBetween(m.ID(), amount.ID())
	require.True(t, ok)
	require.Len(t, edge.Spans, 1)
	assert.False(t, edge.Spans[0].ViaTable)
	assert.Equal(t, "[Amount]", m.Expression()[edge.Spans[0].NameSpan.Start:edge.Spans[0].NameSpan.End])
}

func TestIndex_ResolutionIsCaseInsensitive(t *testing.T) {
	g, ix, sales := fixture(t)

	m1 := addMeasure(t, g, ix, sales, "Total", "1")
	addMeasure(t, g, ix, sales, "Double", "[total] * 2")

	assert.Len(t, ix.Dependents(m1.ID()), 1)
}

func TestIndex_EdgesReplacedOnChange(t *testing.T) {
	g, ix, sales := fixture(t)

	m1 := addMeasure(t, g, ix, sales, "M1", "1")
	m2 := addMeasure(t, g, ix, sales, "M2", "2")
	m3 := addMeasure(t, g, ix, sales, "M3", "[M1]")

	require.Len(t, ix.Dependents(m1.ID()), 1)

	// Repoint M3 at M2; the stale edge to M1 must disappear.
	_, err := g.SetExpression(m3.ID(), "[M2]")
	require.NoError(t, err)
	require.NoError(t, ix.OnExpressionChanged(m3))

	assert.Empty(t, ix.Dependents(m1.ID()))
	assert.Len(t, ix.Dependents(m2.ID()), 1)
	assert.Equal(t, []string{m2.ID()}, ix.References(m3.ID()))
}

func TestIndex_StringLiteralsAndCommentsAreNotEdges(t *testing.T) {
	g, ix, sales := fixture(t)

	m1 := addMeasure(t, g, ix, sales, "M1", "1")
	addMeasure(t, g, ix, sales, "M2", `"[M1]" & "x" // [M1]`)

	assert.Empty(t, ix.Dependents(m1.ID()))
}

func TestIndex_CyclesAreValidData(t *testing.T) {
	g, ix, sales := fixture(t)

	a := addMeasure(t, g, ix, sales, "A", "[B]")
	b := addMeasure(t, g, ix, sales, "B", "[A]")

	// B did not exist when A was indexed; re-index A now that it does.
	require.NoError(t, ix.OnExpressionChanged(a))

	assert.Len(t, ix.Dependents(a.ID()), 1)
	assert.Len(t, ix.Dependents(b.ID()), 1)
}

func TestIndex_UnresolvedReferenceHasNoEdge(t *testing.T) {
	g, ix, sales := fixture(t)

	m := addMeasure(t, g, ix, sales, "M", "[DoesNotExist] + 'NoTable'[X]")
	assert.Empty(t, ix.References(m.ID()))
}

func TestIndex_MeasureShadowsColumnOnUnqualifiedRef(t *testing.T) {
	g, ix, sales := fixture(t)
	amount, _ := model.FindMember(sales, "Amount")

	// A measure named Amount in a second table shadows the Sales column.
	costs := model.NewNode(model.KindTable, "Costs")
	require.NoError(t, g.AddNode(g.Root().ID(), costs, -1))
	shadow := addMeasure(t, g, ix, costs, "Amount", "1")

	m := addMeasure(t, g, ix, sales, "M", "[Amount]")

	assert.Equal(t, []string{shadow.ID()}, ix.References(m.ID()))
	assert.Empty(t, ix.Dependents(amount.ID()))
}

func TestIndex_DropSource(t *testing.T) {
	g, ix, sales := fixture(t)

	m1 := addMeasure(t, g, ix, sales, "M1", "1")
	m2 := addMeasure(t, g, ix, sales, "M2", "[M1]")

	ix.DropSource(m2.ID())
	assert.Empty(t, ix.Dependents(m1.ID()))
	assert.Empty(t, ix.References(m2.ID()))
}

func TestIndex_DependentsSkipDetachedSources(t *testing.T) {
	g, ix, sales := fixture(t)

	m1 := addMeasure(t, g, ix, sales, "M1", "1")
	m2 := addMeasure(t, g, ix, sales, "M2", "[M1]")

	// Removing the dependent from the graph hides it without touching
	// the edge, so an undo of the removal restores the dependency.
	_, _, _, err := g.RemoveNode(m2.ID())
	require.NoError(t, err)
	assert.Empty(t, ix.Dependents(m1.ID()))
}

func TestIndex_Rebuild(t *testing.T) {
	g, ix, sales := fixture(t)

	m1 := addMeasure(t, g, ix, sales, "M1", "1")
	addMeasure(t, g, ix, sales, "M2", "[M1]")

	fresh := New(g)
	require.NoError(t, fresh.Rebuild())
	assert.Len(t, fresh.Dependents(m1.ID()), 1)
}

func TestIndex_TokenizeFailureLeavesNoEdges(t *testing.T) {
	g, ix, sales := fixture(t)

	m1 := addMeasure(t, g, ix, sales, "M1", "1")
	m2 := addMeasure(t, g, ix, sales, "M2", "[M1]")
	require.Len(t, ix.Dependents(m1.ID()), 1)

	_, err := g.SetExpression(m2.ID(), "[M1")
	require.NoError(t, err)
	require.Error(t, ix.OnExpressionChanged(m2))

	assert.Empty(t, ix.Dependents(m1.ID()), "failed tokenize drops stale edges rather than keeping them")
}
