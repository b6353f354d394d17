package cli

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runCommand executes one CLI invocation against the model at path.
func runCommand(t *testing.T, modelPath string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs(append(args, "--model", modelPath))
	err := cmd.Execute()
	return out.String(), err
}

func TestRootCmd_EditWorkflow(t *testing.T) {
	modelPath := filepath.Join(t.TempDir(), "model.db")

	out, err := runCommand(t, modelPath, "init", "--name", "Contoso")
	require.NoError(t, err)
	assert.Contains(t, out, "Contoso")

	_, err = runCommand(t, modelPath, "add", "table", "Sales")
	require.NoError(t, err)
	_, err = runCommand(t, modelPath, "add", "column", "Sales", "Amount", "--type", "decimal")
	require.NoError(t, err)
	_, err = runCommand(t, modelPath, "add", "measure", "Sales", "M1", "1")
	require.NoError(t, err)
	_, err = runCommand(t, modelPath, "add", "measure", "Sales", "M2", "[M1] + 1")
	require.NoError(t, err)

	// The rename must cascade into M2's stored expression.
	out, err = runCommand(t, modelPath, "rename", "Sales/M1", "Base")
	require.NoError(t, err)
	assert.Contains(t, out, "rewrote 1 dependent expression")

	out, err = runCommand(t, modelPath, "show", "Sales")
	require.NoError(t, err)
	assert.Contains(t, out, "[Base] + 1")
	assert.NotContains(t, out, "[M1]")

	out, err = runCommand(t, modelPath, "deps", "Sales/Base")
	require.NoError(t, err)
	assert.Contains(t, out, "Contoso/Sales/M2")

	out, err = runCommand(t, modelPath, "export")
	require.NoError(t, err)
	assert.Contains(t, out, "name: Contoso")
	assert.Contains(t, out, "kind: measure")
}

func TestRootCmd_RejectedEditLeavesModelUntouched(t *testing.T) {
	modelPath := filepath.Join(t.TempDir(), "model.db")

	_, err := runCommand(t, modelPath, "init")
	require.NoError(t, err)
	_, err = runCommand(t, modelPath, "add", "table", "Sales")
	require.NoError(t, err)
	_, err = runCommand(t, modelPath, "add", "measure", "Sales", "M1", "1")
	require.NoError(t, err)
	_, err = runCommand(t, modelPath, "add", "measure", "Sales", "M2", "2")
	require.NoError(t, err)

	_, err = runCommand(t, modelPath, "rename", "Sales/M1", "M2")
	require.Error(t, err, "renaming onto a sibling name is a conflict")

	out, err := runCommand(t, modelPath, "show", "Sales/M1")
	require.NoError(t, err)
	assert.Contains(t, out, "M1")
}

func TestRootCmd_InitRefusesToOverwrite(t *testing.T) {
	modelPath := filepath.Join(t.TempDir(), "model.db")

	_, err := runCommand(t, modelPath, "init")
	require.NoError(t, err)

	_, err = runCommand(t, modelPath, "init")
	require.Error(t, err)

	_, err = runCommand(t, modelPath, "init", "--force")
	require.NoError(t, err)
}

func TestRootCmd_CommandsRequireModel(t *testing.T) {
	modelPath := filepath.Join(t.TempDir(), "missing.db")

	_, err := runCommand(t, modelPath, "show")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tabular init")
}
