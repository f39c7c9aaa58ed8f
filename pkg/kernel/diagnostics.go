package kernel

import (
	"errors"
	"fmt"
)

// InterpretError is the structured diagnostic returned when a formula
// cannot be turned into a tell or ask for a given component (spec §7,
// error kind 1). It never mutates state.
type InterpretError struct {
	Component string
	Message   string
	Formula   F
}

func (e *InterpretError) Error() string {
	return fmt.Sprintf("%s: %s (in %s)", e.Component, e.Message, e.Formula)
}

func newInterpretError(component, message string, f F) error {
	return &InterpretError{Component: component, Message: message, Formula: f}
}

// Sentinel errors for contract violations (spec §7, error kind 2).
// These signal implementer mistakes, not recoverable runtime conditions;
// callers that hit them have violated a documented precondition.
var (
	// ErrUnstartedBranch is returned by Branch.Current when the cursor
	// has not been advanced past -1, or is out of range.
	ErrUnstartedBranch = errors.New("kernel: Current called on an unstarted or out-of-range Branch")

	// ErrBranchExhausted is returned by Branch.Next when has_next is false.
	ErrBranchExhausted = errors.New("kernel: Next called on an exhausted Branch")

	// ErrNotSingleton is returned by SearchTree.Snapshot when the tree is
	// not in the Singleton (root) state.
	ErrNotSingleton = errors.New("kernel: Snapshot called outside Singleton state")

	// ErrMultiObjective is the panic value of BAB.Tell when an
	// objective has already been set.
	ErrMultiObjective = errors.New("kernel: multi-objective optimization is not supported")

	// ErrNotProjectable is returned by SearchTree.Project on a multi-node
	// (Internal) tree, per the Non-goal on arbitrary projection from
	// non-singleton states.
	ErrNotProjectable = errors.New("kernel: project is only defined on Empty or Singleton search trees")
)
