package kernel

import "fmt"

// LinearSum enforces Σ coeffs[i]*vars[i] = total using bounds-consistent
// propagation, ported from sum.go's LinearSum to operate over Universe
// intervals instead of BitSetDomain. Coefficients may be positive,
// negative or zero; signs are handled the same way sum.go's SumMin/SumMax
// derivation does.
type LinearSum struct {
	vars   []AVar
	coeffs []int
	total  AVar
}

// NewLinearSum constructs a LinearSum constraint. Mirrors NewLinearSum's
// validation in sum.go (non-empty, matching arity).
func NewLinearSum(vars []AVar, coeffs []int, total AVar) (*LinearSum, error) {
	if len(vars) == 0 {
		return nil, fmt.Errorf("NewLinearSum: vars cannot be empty")
	}
	if len(vars) != len(coeffs) {
		return nil, fmt.Errorf("NewLinearSum: len(vars) != len(coeffs)")
	}
	vcopy := make([]AVar, len(vars))
	copy(vcopy, vars)
	ccopy := make([]int, len(coeffs))
	copy(ccopy, coeffs)
	return &LinearSum{vars: vcopy, coeffs: ccopy, total: total}, nil
}

// Vars implements Propagator.
func (s *LinearSum) Vars() []AVar {
	out := make([]AVar, 0, len(s.vars)+1)
	out = append(out, s.vars...)
	return append(out, s.total)
}

// String implements Propagator.
func (s *LinearSum) String() string {
	return fmt.Sprintf("LinearSum(%d terms -> %s)", len(s.vars), s.total)
}

// Propagate implements Propagator: it tightens total to [sumMin, sumMax]
// and each term to the interval admitted by the other terms' bounds.
func (s *LinearSum) Propagate(st *Store) (bool, error) {
	changed := false

	sumMin, sumMax := 0, 0
	doms := make([]Universe, len(s.vars))
	for i, v := range s.vars {
		u := st.Project(v)
		if u.IsTop() {
			return changed, nil
		}
		doms[i] = u
		if s.coeffs[i] >= 0 {
			sumMin += s.coeffs[i] * u.LB()
			sumMax += s.coeffs[i] * u.UB()
		} else {
			sumMin += s.coeffs[i] * u.UB()
			sumMax += s.coeffs[i] * u.LB()
		}
	}

	if st.Tell(StoreTell{X: s.total, U: NewUniverse(sumMin, sumMax)}) {
		changed = true
	}
	totalU := st.Project(s.total)
	if totalU.IsTop() {
		return changed, nil
	}

	for i, v := range s.vars {
		a := s.coeffs[i]
		if a == 0 {
			continue
		}
		otherMin, otherMax := 0, 0
		for j := range s.vars {
			if j == i {
				continue
			}
			c := s.coeffs[j]
			if c >= 0 {
				otherMin += c * doms[j].LB()
				otherMax += c * doms[j].UB()
			} else {
				otherMin += c * doms[j].UB()
				otherMax += c * doms[j].LB()
			}
		}
		// a*x[i] must lie in [total.lb - otherMax, total.ub - otherMin].
		lo := totalU.LB() - otherMax
		hi := totalU.UB() - otherMin
		var newU Universe
		if a > 0 {
			newU = NewUniverse(ceilDiv(lo, a), floorDiv(hi, a))
		} else {
			newU = NewUniverse(ceilDiv(hi, a), floorDiv(lo, a))
		}
		if st.Tell(StoreTell{X: v, U: newU}) {
			changed = true
		}
		if st.IsTop() {
			return changed, nil
		}
	}
	return changed, nil
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func ceilDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) == (b < 0)) {
		q++
	}
	return q
}

// AllDifferent enforces pairwise inequality of a set of singleton-bound
// variables using a simple bound-and-check scan, ported from
// propagation.go's AllDifferent validation style (this kernel does not
// need Regin's full GAC algorithm to exercise the spec's scenarios; a
// bounds-aware value-exclusion pass is the smallest propagator that is
// sound and fixed-point-safe).
type AllDifferent struct {
	vars []AVar
}

// NewAllDifferent constructs an AllDifferent constraint over vars.
func NewAllDifferent(vars []AVar) (*AllDifferent, error) {
	if len(vars) == 0 {
		return nil, fmt.Errorf("AllDifferent requires at least one variable")
	}
	vcopy := make([]AVar, len(vars))
	copy(vcopy, vars)
	return &AllDifferent{vars: vcopy}, nil
}

// Vars implements Propagator.
func (a *AllDifferent) Vars() []AVar { return a.vars }

// String implements Propagator.
func (a *AllDifferent) String() string {
	return fmt.Sprintf("AllDifferent(%d vars)", len(a.vars))
}

// Propagate removes any singleton's value from every other variable's
// domain.
func (a *AllDifferent) Propagate(st *Store) (bool, error) {
	changed := false
	for _, v := range a.vars {
		u := st.Project(v)
		if !u.IsSingleton() {
			continue
		}
		val := u.SingletonValue()
		for _, other := range a.vars {
			if other.Equal(v) {
				continue
			}
			ou := st.Project(other)
			if ou.IsSingleton() || ou.IsTop() {
				continue
			}
			if val == ou.LB() {
				if st.Tell(StoreTell{X: other, U: NewUniverse(ou.LB()+1, ou.UB())}) {
					changed = true
				}
			} else if val == ou.UB() {
				if st.Tell(StoreTell{X: other, U: NewUniverse(ou.LB(), ou.UB()-1)}) {
					changed = true
				}
			}
		}
	}
	return changed, nil
}
