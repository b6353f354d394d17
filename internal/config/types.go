// Package config loads tool configuration for tabular. Values are
// layered, lowest to highest precedence: built-in defaults, a
// tabular.yaml file, TABULAR_* environment variables, CLI flags.
package config

// Default configuration values.
const (
	DefaultModelPath = "model.db"
	DefaultModelName = "Model"
	DefaultUndoLimit = 0 // unbounded
	DefaultLogLevel  = "warn"
	DefaultOutput    = "table"
)

// Config holds the resolved tool configuration.
type Config struct {
	// ModelPath is the SQLite file holding the model snapshot.
	ModelPath string `koanf:"model_path"`

	// ModelName names the root node when initializing a new model.
	ModelName string `koanf:"model_name"`

	// UndoLimit bounds the undo stack in the REPL; 0 means unbounded.
	UndoLimit int `koanf:"undo_limit"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Output selects the render format: table, csv or yaml.
	Output string `koanf:"output"`

	// Verbose forces debug logging regardless of LogLevel.
	Verbose bool `koanf:"verbose"`
}
