// Package kernel implements a compositional constraint-solving core: a
// stack of abstract domains that cooperate to explore and prune a search
// space. The stack, leaves first, is Store (base variable -> interval
// mapping plus propagators), Tables (extensional constraints), Split
// (variable/value ordering), SearchTree (depth-first traversal) and BAB
// (branch-and-bound). Each domain narrows the one beneath it through a
// tell interface; Store and Tables also expose an indexable,
// fixed-point-safe set of refinements (NumRefinements/Refine).
package kernel

import "fmt"

// AType tags which domain in the stack a variable or formula belongs to.
// Two AVars are equal only if both their AType and index match.
type AType int32

// UntypedAType marks a variable or formula that has not been assigned to
// any particular domain; it is routed to whichever domain in the stack
// recognises it first.
const UntypedAType AType = -1

// AVar is an opaque abstract variable identifier: a (domain-tag, index)
// pair. It carries no value itself; Project(AVar) on a domain is what
// yields a Universe.
type AVar struct {
	aty AType
	vid int
}

// UntypedVar returns the sentinel AVar used before a variable has been
// assigned to a domain.
func UntypedVar() AVar {
	return AVar{aty: UntypedAType, vid: -1}
}

// NewAVar builds an AVar for domain aty at index vid.
func NewAVar(aty AType, vid int) AVar {
	return AVar{aty: aty, vid: vid}
}

// AType returns the variable's domain tag.
func (v AVar) AType() AType { return v.aty }

// VID returns the variable's index within its domain.
func (v AVar) VID() int { return v.vid }

// IsUntyped reports whether v is the untyped sentinel.
func (v AVar) IsUntyped() bool { return v.aty == UntypedAType }

// Equal reports whether v and other name the same variable.
func (v AVar) Equal(other AVar) bool {
	return v.aty == other.aty && v.vid == other.vid
}

// String implements fmt.Stringer.
func (v AVar) String() string {
	if v.IsUntyped() {
		return "_"
	}
	return fmt.Sprintf("v%d.%d", v.aty, v.vid)
}
