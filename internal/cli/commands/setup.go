package commands

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/tabular/internal/config"
	"github.com/leapstack-labs/tabular/internal/model"
	"github.com/leapstack-labs/tabular/internal/session"
	"github.com/leapstack-labs/tabular/internal/state"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg    *config.Config
	Logger *slog.Logger
	Store  *state.SQLiteStore
	Sess   *session.Session
}

// NewCommandContext opens the model database and loads the model into a
// session. Returns the context and a cleanup function that must be called
// (typically via defer).
func NewCommandContext(cmd *cobra.Command) (*CommandContext, func(), error) {
	cfg := getConfig()
	logger := config.GetLogger(cmd.Context())

	store := state.NewSQLiteStore()
	if err := store.Open(cfg.ModelPath); err != nil {
		return nil, nil, err
	}

	g, err := store.LoadModel()
	if err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("no model at %s (run 'tabular init' first): %w", cfg.ModelPath, err)
	}

	sess := session.NewFromGraph(g, session.Options{
		Logger:    logger,
		UndoLimit: cfg.UndoLimit,
	})

	cleanup := func() { _ = store.Close() }
	return &CommandContext{Cfg: cfg, Logger: logger, Store: store, Sess: sess}, cleanup, nil
}

// Save writes the session's current graph back to the store.
func (c *CommandContext) Save() error {
	if err := c.Store.SaveModel(c.Sess.Graph()); err != nil {
		return fmt.Errorf("failed to save model: %w", err)
	}
	return nil
}

// getConfig returns the current configuration, falling back to defaults
// when no load has happened (direct command construction in tests).
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}
	return &config.Config{
		ModelPath: envOr("TABULAR_MODEL_PATH", config.DefaultModelPath),
		ModelName: envOr("TABULAR_MODEL_NAME", config.DefaultModelName),
		LogLevel:  config.DefaultLogLevel,
		Output:    config.DefaultOutput,
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// resolveNode finds a node by its slash-separated, root-relative path,
// e.g. "Sales/Total". Matching is case-insensitive, like the name
// uniqueness rule. A single "/" names the model root.
func resolveNode(sess *session.Session, path string) (*model.Node, error) {
	n := sess.Graph().Root()
	if path == "/" || path == "" {
		return n, nil
	}
	for _, part := range strings.Split(strings.Trim(path, "/"), "/") {
		var next *model.Node
		for _, c := range n.Children() {
			if strings.EqualFold(c.Name(), part) {
				next = c
				break
			}
		}
		if next == nil {
			return nil, fmt.Errorf("no node %q under %s", part, n.Path())
		}
		n = next
	}
	return n, nil
}
