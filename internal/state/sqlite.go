package state

import (
	"database/sql"
	"fmt"
	"sort"

	_ "modernc.org/sqlite" // SQLite driver (pure Go)

	"github.com/leapstack-labs/tabular/internal/model"
)

// SQLiteStore implements Store on a SQLite database file.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore creates a new SQLite store instance.
func NewSQLiteStore() *SQLiteStore {
	return &SQLiteStore{}
}

// Open opens the database and brings the schema up to date.
// Use ":memory:" for an in-memory database.
func (s *SQLiteStore) Open(path string) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("failed to open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return fmt.Errorf("failed to ping sqlite database: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s.db = db
	s.path = path

	if err := s.Migrate(); err != nil {
		db.Close()
		s.db = nil
		return err
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SaveModel replaces the persisted snapshot with the graph's current state.
// The swap is transactional: a failed save leaves the previous snapshot.
func (s *SQLiteStore) SaveModel(g *model.Graph) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM nodes`); err != nil {
		return fmt.Errorf("failed to clear previous snapshot: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO nodes
		(id, parent_id, kind, name, position, column_type, data_type,
		 expression, expression_error, description, from_column_id, to_column_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	// Pre-order insertion keeps the parent_id foreign key satisfiable.
	var insert func(n *model.Node, position int) error
	insert = func(n *model.Node, position int) error {
		row := rowFromNode(n, position)
		parentID := sql.NullString{String: row.ParentID, Valid: row.ParentID != ""}
		if _, err := stmt.Exec(
			row.ID, parentID, row.Kind, row.Name, row.Position,
			row.ColumnType, row.DataType, row.Expression, row.ExpressionError,
			row.Description, row.FromColumnID, row.ToColumnID,
		); err != nil {
			return fmt.Errorf("failed to insert node %s: %w", row.ID, err)
		}
		for i, c := range n.Children() {
			if err := insert(c, i); err != nil {
				return err
			}
		}
		return nil
	}
	if err := insert(g.Root(), 0); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit snapshot: %w", err)
	}
	return nil
}

// LoadModel reconstructs the persisted graph from the nodes table.
func (s *SQLiteStore) LoadModel() (*model.Graph, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.queryNodes()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &model.NotFoundError{ID: "model root"}
	}

	var root NodeRow
	children := make(map[string][]NodeRow)
	found := false
	for _, row := range rows {
		if row.ParentID == "" {
			root = row
			found = true
			continue
		}
		children[row.ParentID] = append(children[row.ParentID], row)
	}
	if !found {
		return nil, fmt.Errorf("snapshot has no root node")
	}
	for _, siblings := range children {
		sort.Slice(siblings, func(i, j int) bool { return siblings[i].Position < siblings[j].Position })
	}

	g, err := model.NewGraphWithRoot(nodeFromRow(root))
	if err != nil {
		return nil, fmt.Errorf("failed to restore root: %w", err)
	}

	var attach func(parent NodeRow) error
	attach = func(parent NodeRow) error {
		for _, row := range children[parent.ID] {
			if err := g.AddNode(parent.ID, nodeFromRow(row), -1); err != nil {
				return fmt.Errorf("failed to restore node %s: %w", row.ID, err)
			}
			if err := attach(row); err != nil {
				return err
			}
		}
		return nil
	}
	if err := attach(root); err != nil {
		return nil, err
	}

	// Expressions and descriptions are applied once the tree is in place.
	for _, row := range rows {
		if row.Expression != "" {
			if _, err := g.SetExpression(row.ID, row.Expression); err != nil {
				return nil, fmt.Errorf("failed to restore expression on %s: %w", row.ID, err)
			}
		}
		if row.ExpressionError != "" {
			if _, err := g.SetExpressionError(row.ID, row.ExpressionError); err != nil {
				return nil, fmt.Errorf("failed to restore error marker on %s: %w", row.ID, err)
			}
		}
		if row.Description != "" {
			if _, err := g.SetDescription(row.ID, row.Description); err != nil {
				return nil, fmt.Errorf("failed to restore description on %s: %w", row.ID, err)
			}
		}
	}
	return g, nil
}

func (s *SQLiteStore) queryNodes() ([]NodeRow, error) {
	result, err := s.db.Query(`SELECT id, parent_id, kind, name, position,
		column_type, data_type, expression, expression_error, description,
		from_column_id, to_column_id FROM nodes`)
	if err != nil {
		return nil, fmt.Errorf("failed to query nodes: %w", err)
	}
	defer result.Close()

	var rows []NodeRow
	for result.Next() {
		var row NodeRow
		var parentID sql.NullString
		if err := result.Scan(
			&row.ID, &parentID, &row.Kind, &row.Name, &row.Position,
			&row.ColumnType, &row.DataType, &row.Expression, &row.ExpressionError,
			&row.Description, &row.FromColumnID, &row.ToColumnID,
		); err != nil {
			return nil, fmt.Errorf("failed to scan node row: %w", err)
		}
		row.ParentID = parentID.String
		rows = append(rows, row)
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("failed to read node rows: %w", err)
	}
	return rows, nil
}
