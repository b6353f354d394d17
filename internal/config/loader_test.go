package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	assert.Equal(t, DefaultModelPath, cfg.ModelPath)
	assert.Equal(t, DefaultModelName, cfg.ModelName)
	assert.Equal(t, DefaultUndoLimit, cfg.UndoLimit)
	assert.Equal(t, DefaultLogLevel, cfg.LogLevel)
	assert.Equal(t, DefaultOutput, cfg.Output)
	assert.False(t, cfg.Verbose)
}

func TestLoadConfig_FileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tabular.yaml")
	content := "model_path: contoso.db\nmodel_name: Contoso\nundo_limit: 50\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadConfig(path, nil)
	require.NoError(t, err)

	assert.Equal(t, "contoso.db", cfg.ModelPath)
	assert.Equal(t, "Contoso", cfg.ModelName)
	assert.Equal(t, 50, cfg.UndoLimit)
	assert.Equal(t, DefaultOutput, cfg.Output, "keys absent from the file keep their defaults")
	assert.Equal(t, path, GetConfigFileUsed())
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tabular.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log_level: info\n"), 0o644))

	t.Setenv("TABULAR_LOG_LEVEL", "debug")

	cfg, err := LoadConfig(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadConfig_FlagsOverrideEnv(t *testing.T) {
	t.Setenv("TABULAR_OUTPUT", "csv")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("output", "", "")
	flags.String("model", "", "")
	flags.Bool("verbose", false, "")
	require.NoError(t, flags.Parse([]string{"--output", "yaml", "--model", "other.db"}))

	cfg, err := LoadConfig("", flags)
	require.NoError(t, err)

	assert.Equal(t, "yaml", cfg.Output)
	assert.Equal(t, "other.db", cfg.ModelPath, "--model maps to the model_path key")
	assert.False(t, cfg.Verbose, "unchanged flags do not override")
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	assert.Error(t, err)
}

func TestConfig_LogLevelValue(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want slog.Level
	}{
		{"default", Config{LogLevel: "warn"}, slog.LevelWarn},
		{"debug", Config{LogLevel: "debug"}, slog.LevelDebug},
		{"info", Config{LogLevel: "info"}, slog.LevelInfo},
		{"error", Config{LogLevel: "error"}, slog.LevelError},
		{"unknown falls back to warn", Config{LogLevel: "chatty"}, slog.LevelWarn},
		{"verbose wins", Config{LogLevel: "error", Verbose: true}, slog.LevelDebug},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cfg.LogLevelValue())
		})
	}
}
