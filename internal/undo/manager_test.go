package undo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/tabular/internal/testutil"
)

// counterAction increments a shared counter on Apply and decrements it on
// Revert, so tests can observe replay order and effect.
type counterAction struct {
	counter *int
	log     *[]string
	name    string
}

func (a *counterAction) Apply() error {
	*a.counter++
	*a.log = append(*a.log, "apply:"+a.name)
	return nil
}

func (a *counterAction) Revert() error {
	*a.counter--
	*a.log = append(*a.log, "revert:"+a.name)
	return nil
}

func (a *counterAction) String() string { return a.name }

func newTestManager(t *testing.T) (*Manager, *int, *[]string) {
	t.Helper()
	counter := 0
	log := []string{}
	return NewManager(testutil.NewTestLogger(t), 0), &counter, &log
}

func TestManager_SingleActionCommit(t *testing.T) {
	m, counter, log := newTestManager(t)

	a := &counterAction{counter: counter, log: log, name: "a"}
	*counter = 1 // the mutation was already applied when Add is called
	m.Add(a)

	assert.Equal(t, 1, m.UndoDepth())
	assert.True(t, m.CanUndo())
	assert.False(t, m.CanRedo())

	require.True(t, m.Undo())
	assert.Equal(t, 0, *counter)
	assert.Equal(t, 0, m.UndoDepth())
	assert.Equal(t, 1, m.RedoDepth())

	require.True(t, m.Redo())
	assert.Equal(t, 1, *counter)
	assert.Equal(t, 1, m.UndoDepth())
	assert.Equal(t, 0, m.RedoDepth())
}

func TestManager_BatchCoalescing(t *testing.T) {
	m, counter, log := newTestManager(t)

	m.BeginBatch("three edits")
	for _, name := range []string{"a", "b", "c"} {
		*counter++
		m.Add(&counterAction{counter: counter, log: log, name: name})
	}
	m.EndBatch()

	require.Equal(t, 1, m.UndoDepth(), "K edits in one batch produce one transaction")
	label, ok := m.PeekUndo()
	require.True(t, ok)
	assert.Equal(t, "three edits", label)

	*log = nil
	require.True(t, m.Undo())
	assert.Equal(t, 0, *counter)
	assert.Equal(t, []string{"revert:c", "revert:b", "revert:a"}, *log,
		"undo replays inverses in reverse order")

	*log = nil
	require.True(t, m.Redo())
	assert.Equal(t, 3, *counter)
	assert.Equal(t, []string{"apply:a", "apply:b", "apply:c"}, *log,
		"redo replays forward in original order")
}

func TestManager_NestedBatches(t *testing.T) {
	m, counter, log := newTestManager(t)

	m.BeginBatch("outer")
	*counter++
	m.Add(&counterAction{counter: counter, log: log, name: "a"})

	m.BeginBatch("inner")
	*counter++
	m.Add(&counterAction{counter: counter, log: log, name: "b"})
	m.EndBatch()

	assert.Equal(t, 0, m.UndoDepth(), "inner EndBatch must not commit")
	m.EndBatch()

	require.Equal(t, 1, m.UndoDepth())
	label, _ := m.PeekUndo()
	assert.Equal(t, "outer", label, "outermost label wins")

	m.Undo()
	assert.Equal(t, 0, *counter)
}

func TestManager_EmptyBatchCommitsNothing(t *testing.T) {
	m, _, _ := newTestManager(t)

	m.BeginBatch("nothing happened")
	m.EndBatch()

	assert.Equal(t, 0, m.UndoDepth())
	assert.Equal(t, StateIdle, m.State())
}

func TestManager_FreshEditDiscardsRedo(t *testing.T) {
	m, counter, log := newTestManager(t)

	*counter = 1
	m.Add(&counterAction{counter: counter, log: log, name: "a"})
	require.True(t, m.Undo())
	require.True(t, m.CanRedo())

	*counter = 1
	m.Add(&counterAction{counter: counter, log: log, name: "b"})

	assert.False(t, m.CanRedo(), "a fresh edit after undo discards the redo branch")
	assert.Equal(t, 1, m.UndoDepth())
}

func TestManager_EmptyStacksAreNoOps(t *testing.T) {
	m, _, _ := newTestManager(t)

	assert.False(t, m.Undo())
	assert.False(t, m.Redo())
	assert.Equal(t, StateIdle, m.State())
}

func TestManager_UndoRedoRoundTrip(t *testing.T) {
	m, counter, log := newTestManager(t)

	for range 5 {
		*counter++
		m.Add(&counterAction{counter: counter, log: log, name: "edit"})
	}

	// Unwind everything, replay everything.
	for m.Undo() {
	}
	assert.Equal(t, 0, *counter)
	for m.Redo() {
	}
	assert.Equal(t, 5, *counter)
	assert.Equal(t, 5, m.UndoDepth())
}

func TestManager_Limit(t *testing.T) {
	m := NewManager(testutil.NewTestLogger(t), 2)
	counter := 0
	log := []string{}

	for range 3 {
		counter++
		m.Add(&counterAction{counter: &counter, log: &log, name: "edit"})
	}

	assert.Equal(t, 2, m.UndoDepth(), "oldest transaction is evicted at the limit")
}

func TestManager_ReplayGuards(t *testing.T) {
	m, counter, log := newTestManager(t)

	recorder := &recordDuringRevert{m: m, counter: counter, log: log}
	*counter = 1
	m.Add(recorder)

	assert.Panics(t, func() { m.Undo() }, "Add during replay is a fatal invariant violation")
}

// recordDuringRevert simulates a side effect that tries to re-record
// while its own transaction is being undone.
type recordDuringRevert struct {
	m       *Manager
	counter *int
	log     *[]string
}

func (a *recordDuringRevert) Apply() error { return nil }

func (a *recordDuringRevert) Revert() error {
	a.m.Add(&counterAction{counter: a.counter, log: a.log, name: "sneaky"})
	return nil
}

func (a *recordDuringRevert) String() string { return "recordDuringRevert" }

func TestManager_BatchMisusePanics(t *testing.T) {
	m, _, _ := newTestManager(t)
	assert.Panics(t, func() { m.EndBatch() })
}

func TestManager_Clear(t *testing.T) {
	m, counter, log := newTestManager(t)

	*counter = 1
	m.Add(&counterAction{counter: counter, log: log, name: "a"})
	require.True(t, m.Undo())

	m.Clear()
	assert.False(t, m.CanUndo())
	assert.False(t, m.CanRedo())
}
