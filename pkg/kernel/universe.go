package kernel

import (
	"fmt"
	"math"
)

// negInf and posInf stand in for unbounded interval endpoints. They play
// the role of Bot's lb/ub: "no information yet" about a variable.
const (
	negInf = math.MinInt32
	posInf = math.MaxInt32
)

// Universe is the lattice value attached to a variable in a Store: a
// closed integer interval. Bot (negInf, posInf) means "unconstrained";
// Top (any lb > ub) means "infeasible" — the reversed convention noted
// in the glossary, where top is the more refined, not the more general,
// element.
//
// PreserveBot and PreserveTop are both true for Interval: a bot (fully
// unbounded) or top (already infeasible) variable offers no finite
// bound to split on, so Split.make_branch must refuse to branch on it.
type Universe struct {
	lb, ub int
}

// Bot returns the fully unconstrained interval.
func Bot() Universe { return Universe{lb: negInf, ub: posInf} }

// Top returns a canonical infeasible interval.
func Top() Universe { return Universe{lb: 1, ub: 0} }

// NewUniverse builds the interval [lb, ub], collapsing to Top if lb > ub.
func NewUniverse(lb, ub int) Universe {
	if lb > ub {
		return Top()
	}
	return Universe{lb: lb, ub: ub}
}

// Singleton builds the interval containing exactly v.
func Singleton(v int) Universe { return Universe{lb: v, ub: v} }

func (u Universe) IsBot() bool { return u.lb == negInf && u.ub == posInf }

func (u Universe) IsTop() bool { return u.lb > u.ub }

// IsSingleton reports whether u contains exactly one value.
func (u Universe) IsSingleton() bool { return !u.IsTop() && u.lb == u.ub }

// LB returns the lower bound. Callers must not call LB on Top.
func (u Universe) LB() int { return u.lb }

// UB returns the upper bound. Callers must not call UB on Top.
func (u Universe) UB() int { return u.ub }

// SingletonValue returns the single contained value; it panics if u is
// not a singleton, mirroring the contract-violation style the teacher
// uses for caller misuse (FDVariable.Value()).
func (u Universe) SingletonValue() int {
	if !u.IsSingleton() {
		panic("kernel: SingletonValue called on a non-singleton universe")
	}
	return u.lb
}

// Width returns the number of integers in the interval, 0 for Top.
func (u Universe) Width() int {
	if u.IsTop() {
		return 0
	}
	if u.IsBot() {
		return posInf
	}
	return u.ub - u.lb + 1
}

// Median returns floor((lb+ub)/2), the split point used by the SPLIT and
// REVERSE_SPLIT value orders.
func (u Universe) Median() int {
	return u.lb + (u.ub-u.lb)/2
}

// Meet computes the greatest lower bound: interval intersection.
func (u Universe) Meet(o Universe) Universe {
	return NewUniverse(max(u.lb, o.lb), min(u.ub, o.ub))
}

// Join computes the least upper bound: interval envelope. Joining with
// Top is the identity; joining with Bot yields Bot.
func (u Universe) Join(o Universe) Universe {
	if u.IsTop() {
		return o
	}
	if o.IsTop() {
		return u
	}
	return Universe{lb: min(u.lb, o.lb), ub: max(u.ub, o.ub)}
}

// Entails reports whether u is already at least as precise as query —
// u ⊑ query, i.e. Meet(u, query) == u. Used by Tables to test whether a
// row's ask cell is already satisfied by the current domain.
func (u Universe) Entails(query Universe) bool {
	return u.Meet(query) == u
}

// PreserveBot reports that a bot interval (unbounded) cannot be further
// split — there is no finite lb/ub to branch on.
func (u Universe) PreserveBot() bool { return true }

// PreserveTop reports that a top interval (already infeasible) cannot
// be further split.
func (u Universe) PreserveTop() bool { return true }

// Deinterpret turns u back into a constant formula: its value when u is
// a singleton, its median otherwise. Tables.Deinterpret uses it to
// rebuild the constants of surviving row cells.
func (u Universe) Deinterpret() F {
	if u.IsSingleton() {
		return Z(u.lb)
	}
	return Z(u.Median())
}

// String implements fmt.Stringer, matching the range-notation style the
// teacher's BitSetDomain.String uses for compact domain printing.
func (u Universe) String() string {
	switch {
	case u.IsTop():
		return "top"
	case u.IsBot():
		return "bot"
	case u.IsSingleton():
		return fmt.Sprintf("%d", u.lb)
	default:
		return fmt.Sprintf("[%d..%d]", u.lb, u.ub)
	}
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
