// Package undo records model mutations as transactions and replays them
// backwards and forwards. It knows nothing about the object graph: every
// mutation is an opaque Action that can apply itself and invert itself.
package undo

import (
	"fmt"
	"log/slog"
)

// State is the manager's replay state.
type State int

const (
	// StateIdle means no batch is open and nothing is replaying.
	StateIdle State = iota
	// StateRecording means a batch is open and accepting actions.
	StateRecording
	// StateUndoing means a transaction is being inverted.
	StateUndoing
	// StateRedoing means a transaction is being reapplied.
	StateRedoing
)

// String returns a readable name for the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	case StateUndoing:
		return "undoing"
	case StateRedoing:
		return "redoing"
	default:
		return "unknown"
	}
}

// Action is one primitive, invertible mutation. Actions are created when
// a mutation commits and never mutated afterwards; the transaction that
// holds them owns them exclusively.
//
// Apply and Revert may fail only when the model is not in the state the
// action recorded, which is an internal invariant violation: the manager
// panics rather than leaving a transaction half-replayed.
type Action interface {
	Apply() error
	Revert() error
	String() string
}

// Transaction is the undo granularity unit: one or more actions committed
// together under a label.
type Transaction struct {
	Label   string
	actions []Action
}

// Len returns the number of actions in the transaction.
func (t *Transaction) Len() int { return len(t.actions) }

// Manager owns the undo and redo stacks of one editing session. It is
// created at session start and torn down with the session; it is not a
// process-wide singleton and supports no cross-session sharing.
type Manager struct {
	logger *slog.Logger

	state   State
	depth   int
	pending *Transaction

	undoStack []*Transaction
	redoStack []*Transaction

	// limit bounds the undo stack; 0 means unbounded. The oldest
	// transaction is evicted when the limit is exceeded.
	limit int
}

// NewManager creates an empty manager.
func NewManager(logger *slog.Logger, limit int) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{logger: logger, limit: limit}
}

// State returns the current replay state.
func (m *Manager) State() State { return m.state }

// InReplay reports whether a transaction is currently being undone or
// redone. Secondary side effects (recording, fixups) must not run then.
func (m *Manager) InReplay() bool {
	return m.state == StateUndoing || m.state == StateRedoing
}

// CanUndo reports whether the undo stack is non-empty.
func (m *Manager) CanUndo() bool { return len(m.undoStack) > 0 }

// CanRedo reports whether the redo stack is non-empty.
func (m *Manager) CanRedo() bool { return len(m.redoStack) > 0 }

// UndoDepth returns the number of committed undo transactions.
func (m *Manager) UndoDepth() int { return len(m.undoStack) }

// RedoDepth returns the number of undone transactions awaiting redo.
func (m *Manager) RedoDepth() int { return len(m.redoStack) }

// PeekUndo returns the label of the transaction Undo would replay.
func (m *Manager) PeekUndo() (string, bool) {
	if len(m.undoStack) == 0 {
		return "", false
	}
	return m.undoStack[len(m.undoStack)-1].Label, true
}

// PeekRedo returns the label of the transaction Redo would replay.
func (m *Manager) PeekRedo() (string, bool) {
	if len(m.redoStack) == 0 {
		return "", false
	}
	return m.redoStack[len(m.redoStack)-1].Label, true
}

// BeginBatch opens (or nests into) a batch. The outermost label wins.
func (m *Manager) BeginBatch(label string) {
	if m.InReplay() {
		panic("undo: BeginBatch during replay")
	}
	m.depth++
	if m.depth == 1 {
		m.pending = &Transaction{Label: label}
		m.state = StateRecording
	}
}

// EndBatch closes one nesting level. At depth zero the pending
// transaction is committed onto the undo stack; committing a non-empty
// transaction discards the redo branch. An empty batch commits nothing.
func (m *Manager) EndBatch() {
	if m.depth == 0 {
		panic("undo: EndBatch without matching BeginBatch")
	}
	m.depth--
	if m.depth > 0 {
		return
	}
	tx := m.pending
	m.pending = nil
	m.state = StateIdle
	if tx == nil || len(tx.actions) == 0 {
		return
	}
	m.commit(tx)
}

// Add records an already-applied action. Outside a batch it commits as a
// single-action transaction immediately. Recording during replay would
// corrupt the stacks and is a fatal invariant violation.
func (m *Manager) Add(a Action) {
	if m.InReplay() {
		panic("undo: Add during replay")
	}
	if m.pending != nil {
		m.pending.actions = append(m.pending.actions, a)
		return
	}
	m.commit(&Transaction{Label: a.String(), actions: []Action{a}})
}

// commit pushes a transaction onto the undo stack and discards the redo
// branch.
func (m *Manager) commit(tx *Transaction) {
	m.undoStack = append(m.undoStack, tx)
	if m.limit > 0 && len(m.undoStack) > m.limit {
		evicted := len(m.undoStack) - m.limit
		m.undoStack = append([]*Transaction{}, m.undoStack[evicted:]...)
	}
	if len(m.redoStack) > 0 {
		m.logger.Debug("discarding redo branch", "transactions", len(m.redoStack))
		m.redoStack = nil
	}
	m.logger.Debug("committed transaction", "label", tx.Label, "actions", len(tx.actions))
}

// Undo inverts the most recent transaction, action by action in reverse
// order, and moves it to the redo stack. An empty stack is a no-op.
func (m *Manager) Undo() bool {
	if m.state != StateIdle {
		panic(fmt.Sprintf("undo: Undo while %s", m.state))
	}
	if len(m.undoStack) == 0 {
		return false
	}
	tx := m.undoStack[len(m.undoStack)-1]
	m.undoStack = m.undoStack[:len(m.undoStack)-1]

	m.state = StateUndoing
	defer func() { m.state = StateIdle }()

	for i := len(tx.actions) - 1; i >= 0; i-- {
		if err := tx.actions[i].Revert(); err != nil {
			panic(fmt.Sprintf("undo: revert of %q failed: %v", tx.actions[i], err))
		}
	}
	m.redoStack = append(m.redoStack, tx)
	m.logger.Debug("undid transaction", "label", tx.Label, "actions", len(tx.actions))
	return true
}

// Redo reapplies the most recently undone transaction, action by action
// in original order, and moves it back to the undo stack. An empty stack
// is a no-op.
func (m *Manager) Redo() bool {
	if m.state != StateIdle {
		panic(fmt.Sprintf("undo: Redo while %s", m.state))
	}
	if len(m.redoStack) == 0 {
		return false
	}
	tx := m.redoStack[len(m.redoStack)-1]
	m.redoStack = m.redoStack[:len(m.redoStack)-1]

	m.state = StateRedoing
	defer func() { m.state = StateIdle }()

	for _, a := range tx.actions {
		if err := a.Apply(); err != nil {
			panic(fmt.Sprintf("undo: redo of %q failed: %v", a, err))
		}
	}
	m.undoStack = append(m.undoStack, tx)
	m.logger.Debug("redid transaction", "label", tx.Label, "actions", len(tx.actions))
	return true
}

// Clear empties both stacks. Used only at session reset (for example
// after loading a model), never implicitly.
func (m *Manager) Clear() {
	if m.state != StateIdle || m.depth != 0 {
		panic("undo: Clear inside an open batch or replay")
	}
	m.undoStack = nil
	m.redoStack = nil
}
