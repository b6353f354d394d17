package state

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/tabular/internal/model"
)

func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store := NewSQLiteStore()
	if err := store.Open(":memory:"); err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

// buildModel assembles a small model with one table, a column, a
// calculated column and two measures, one of them carrying a marker.
func buildModel(t *testing.T) *model.Graph {
	t.Helper()
	g := model.NewGraph("Contoso")

	sales := model.NewNode(model.KindTable, "Sales")
	if err := g.AddNode(g.Root().ID(), sales, -1); err != nil {
		t.Fatalf("failed to add table: %v", err)
	}

	amount := model.NewNode(model.KindColumn, "Amount")
	amount.SetColumnType(model.ColumnData)
	amount.SetDataType("decimal")
	if err := g.AddNode(sales.ID(), amount, -1); err != nil {
		t.Fatalf("failed to add column: %v", err)
	}

	margin := model.NewNode(model.KindColumn, "Margin")
	margin.SetColumnType(model.ColumnCalculated)
	if err := g.AddNode(sales.ID(), margin, -1); err != nil {
		t.Fatalf("failed to add calculated column: %v", err)
	}
	if _, err := g.SetExpression(margin.ID(), "[Amount] * 0.2"); err != nil {
		t.Fatalf("failed to set expression: %v", err)
	}

	total := model.NewNode(model.KindMeasure, "Total")
	if err := g.AddNode(sales.ID(), total, -1); err != nil {
		t.Fatalf("failed to add measure: %v", err)
	}
	if _, err := g.SetExpression(total.ID(), "SUM('Sales'[Amount])"); err != nil {
		t.Fatalf("failed to set expression: %v", err)
	}
	if _, err := g.SetDescription(total.ID(), "headline number"); err != nil {
		t.Fatalf("failed to set description: %v", err)
	}

	broken := model.NewNode(model.KindMeasure, "Broken")
	if err := g.AddNode(sales.ID(), broken, -1); err != nil {
		t.Fatalf("failed to add measure: %v", err)
	}
	if _, err := g.SetExpression(broken.ID(), "[Total"); err != nil {
		t.Fatalf("failed to set expression: %v", err)
	}
	if _, err := g.SetExpressionError(broken.ID(), "unterminated reference"); err != nil {
		t.Fatalf("failed to set error marker: %v", err)
	}

	return g
}

func TestSQLiteStore_OpenClose(t *testing.T) {
	store := NewSQLiteStore()

	if err := store.Open(":memory:"); err != nil {
		t.Fatalf("failed to open in-memory store: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("failed to close store: %v", err)
	}
}

func TestSQLiteStore_MigrationVersion(t *testing.T) {
	store := setupTestStore(t)

	version, err := store.GetMigrationVersion()
	if err != nil {
		t.Fatalf("failed to get migration version: %v", err)
	}
	if version < 1 {
		t.Errorf("expected migration version >= 1, got %d", version)
	}
}

func TestSQLiteStore_LoadWithoutSnapshot(t *testing.T) {
	store := setupTestStore(t)

	_, err := store.LoadModel()
	var notFound *model.NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError on empty store, got %v", err)
	}
}

func TestSQLiteStore_SaveLoadRoundTrip(t *testing.T) {
	store := setupTestStore(t)
	g := buildModel(t)

	if err := store.SaveModel(g); err != nil {
		t.Fatalf("failed to save model: %v", err)
	}

	loaded, err := store.LoadModel()
	if err != nil {
		t.Fatalf("failed to load model: %v", err)
	}

	if loaded.Root().ID() != g.Root().ID() {
		t.Errorf("root id changed: %s -> %s", g.Root().ID(), loaded.Root().ID())
	}
	if loaded.Root().Name() != "Contoso" {
		t.Errorf("root name = %q, want Contoso", loaded.Root().Name())
	}
	if loaded.Len() != g.Len() {
		t.Fatalf("node count = %d, want %d", loaded.Len(), g.Len())
	}

	g.Walk(func(want *model.Node) {
		got, ok := loaded.Get(want.ID())
		if !ok {
			t.Errorf("node %s (%s) missing after load", want.Name(), want.ID())
			return
		}
		if got.Kind() != want.Kind() || got.Name() != want.Name() {
			t.Errorf("node %s = %s %q, want %s %q", want.ID(), got.Kind(), got.Name(), want.Kind(), want.Name())
		}
		if got.Expression() != want.Expression() {
			t.Errorf("node %s expression = %q, want %q", want.Name(), got.Expression(), want.Expression())
		}
		if got.ExpressionError() != want.ExpressionError() {
			t.Errorf("node %s marker = %q, want %q", want.Name(), got.ExpressionError(), want.ExpressionError())
		}
		if got.Description() != want.Description() {
			t.Errorf("node %s description = %q, want %q", want.Name(), got.Description(), want.Description())
		}
		if got.DataType() != want.DataType() || got.ColumnType() != want.ColumnType() {
			t.Errorf("node %s column attributes differ", want.Name())
		}
		if got.Path() != want.Path() {
			t.Errorf("node %s path = %q, want %q", want.Name(), got.Path(), want.Path())
		}
	})
}

func TestSQLiteStore_ChildOrderSurvivesRoundTrip(t *testing.T) {
	store := setupTestStore(t)

	g := model.NewGraph("Model")
	table := model.NewNode(model.KindTable, "T")
	if err := g.AddNode(g.Root().ID(), table, -1); err != nil {
		t.Fatalf("failed to add table: %v", err)
	}
	names := []string{"C", "A", "B"}
	for _, name := range names {
		if err := g.AddNode(table.ID(), model.NewNode(model.KindColumn, name), -1); err != nil {
			t.Fatalf("failed to add column %s: %v", name, err)
		}
	}

	if err := store.SaveModel(g); err != nil {
		t.Fatalf("failed to save model: %v", err)
	}
	loaded, err := store.LoadModel()
	if err != nil {
		t.Fatalf("failed to load model: %v", err)
	}

	loadedTable, ok := loaded.Get(table.ID())
	if !ok {
		t.Fatal("table missing after load")
	}
	for i, c := range loadedTable.Children() {
		if c.Name() != names[i] {
			t.Errorf("child %d = %q, want %q", i, c.Name(), names[i])
		}
	}
}

func TestSQLiteStore_SaveReplacesPreviousSnapshot(t *testing.T) {
	store := setupTestStore(t)

	first := model.NewGraph("First")
	if err := store.SaveModel(first); err != nil {
		t.Fatalf("failed to save first model: %v", err)
	}

	second := buildModel(t)
	if err := store.SaveModel(second); err != nil {
		t.Fatalf("failed to save second model: %v", err)
	}

	loaded, err := store.LoadModel()
	if err != nil {
		t.Fatalf("failed to load model: %v", err)
	}
	if loaded.Root().Name() != "Contoso" {
		t.Errorf("root name = %q, want Contoso", loaded.Root().Name())
	}
	if _, ok := loaded.Get(first.Root().ID()); ok {
		t.Error("first snapshot's root survived the second save")
	}
}

func TestSQLiteStore_FileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.db")

	store := NewSQLiteStore()
	if err := store.Open(path); err != nil {
		t.Fatalf("failed to open file store: %v", err)
	}
	g := buildModel(t)
	if err := store.SaveModel(g); err != nil {
		t.Fatalf("failed to save model: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("failed to close store: %v", err)
	}

	reopened := NewSQLiteStore()
	if err := reopened.Open(path); err != nil {
		t.Fatalf("failed to reopen file store: %v", err)
	}
	defer reopened.Close()

	loaded, err := reopened.LoadModel()
	if err != nil {
		t.Fatalf("failed to load model: %v", err)
	}
	if loaded.Len() != g.Len() {
		t.Errorf("node count = %d, want %d", loaded.Len(), g.Len())
	}
}
