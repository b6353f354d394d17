package model

import "fmt"

// NameConflictError reports a rejected write that would give two siblings
// of the same kind the same name.
type NameConflictError struct {
	Kind   Kind
	Name   string
	Parent string
}

func (e *NameConflictError) Error() string {
	return fmt.Sprintf("name conflict: %s %q already exists under %q", e.Kind, e.Name, e.Parent)
}

// InvalidValueError reports a property value rejected before mutation.
type InvalidValueError struct {
	Property string
	Reason   string
}

func (e *InvalidValueError) Error() string {
	return fmt.Sprintf("invalid value for %s: %s", e.Property, e.Reason)
}

// InvalidMoveError reports a structural relocation rejected before mutation.
type InvalidMoveError struct {
	Node   string
	Target string
	Reason string
}

func (e *InvalidMoveError) Error() string {
	return fmt.Sprintf("cannot move %q under %q: %s", e.Node, e.Target, e.Reason)
}

// NotFoundError reports a lookup of an id the graph does not contain.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("node not found: %s", e.ID)
}
