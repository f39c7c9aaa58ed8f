package kernel

// BABMode names the three states BAB's state machine moves through.
type BABMode int

const (
	Satisfy BABMode = iota
	Minimize
	Maximize
)

func (m BABMode) String() string {
	switch m {
	case Satisfy:
		return "satisfy"
	case Minimize:
		return "minimize"
	case Maximize:
		return "maximize"
	default:
		return "?mode"
	}
}

// BABTell is BAB's tell-delta: either a one-shot objective declaration
// or a tell forwarded to the wrapped SearchTree.
type BABTell struct {
	isObjective bool
	objective   AVar
	mode        BABMode
	subTell     SearchTreeTell
	// noop marks a tell that carries nothing to apply (a constant
	// objective argument); Tell ignores it.
	noop bool
	// Warning is set when a minimize/maximize predicate was given a
	// constant argument (treated as satisfaction, per spec.md §4.4).
	Warning string
}

// BAB wraps a SearchTree to perform branch-and-bound: it detects
// solutions, records the best one found, and posts a bound-tightening
// constraint after each improvement. Ported from lala/bab.hpp; the
// incumbent/cutoff bookkeeping is cross-grounded in optimize.go's
// SolveOptimalWithOptions (bestSol/bestVal/haveIncumbent and the
// applyCutoff closure, whose RemoveAtOrAbove/RemoveAtOrBelow pair is the
// FD-bitset analogue of the F.Seq(LT|GT, ...) bound formula built here).
type BAB struct {
	sub       *SearchTree
	best      *Store
	objective AVar
	mode      BABMode

	solutionsFound int
}

// NewBAB wraps sub in SATISFY mode. best must be an independent Store
// with the same variable layout as sub's — never the live search store
// itself (§5: best is never shared with the live search).
func NewBAB(sub *SearchTree, best *Store) *BAB {
	return &BAB{sub: sub, best: best, mode: Satisfy, objective: UntypedVar()}
}

// Mode returns the current state: SATISFY, MINIMIZE or MAXIMIZE.
func (b *BAB) Mode() BABMode { return b.mode }

// SolutionsFound returns how many candidate solutions have been recorded.
func (b *BAB) SolutionsFound() int { return b.solutionsFound }

// Optimum returns the current incumbent store directly, beyond the
// narrower Extract contract — convenient for reporting the best
// objective value found so far without a full extraction round-trip.
func (b *BAB) Optimum() *Store { return b.best }

// InterpretTell recognises minimize(v)/maximize(v); anything else is
// forwarded to the wrapped SearchTree. A constant argument to
// minimize/maximize is not an error: it is reported via Warning and
// treated as plain satisfaction (spec.md §4.4).
func (b *BAB) InterpretTell(f F, env *Env) (BABTell, error) {
	if f.IsESeq() && (f.ESeqName() == "minimize" || f.ESeqName() == "maximize") {
		args := f.Args()
		if len(args) != 1 {
			return BABTell{}, newInterpretError("BAB", "minimize/maximize expects exactly one argument", f)
		}
		if args[0].IsZ() {
			return BABTell{noop: true, Warning: "optimization predicate given a constant argument; treated as satisfaction"}, nil
		}
		v, ok := ResolveVar(args[0], env)
		if !ok {
			return BABTell{}, newInterpretError("BAB", "optimization predicates expect a variable to optimize", f)
		}
		mode := Minimize
		if f.ESeqName() == "maximize" {
			mode = Maximize
		}
		return BABTell{isObjective: true, objective: v, mode: mode}, nil
	}
	t, err := b.sub.InterpretTell(f, env)
	if err != nil {
		return BABTell{}, err
	}
	return BABTell{subTell: t}, nil
}

// Tell applies t. Setting the objective a second time is a contract
// violation (multi-objective optimization is not supported) and panics
// with ErrMultiObjective, matching bab.hpp's assert(x.is_untyped()).
func (b *BAB) Tell(t BABTell) bool {
	if t.noop {
		return false
	}
	if t.isObjective {
		if b.mode != Satisfy {
			panic(ErrMultiObjective)
		}
		b.objective = t.objective
		b.mode = t.mode
		return true
	}
	return b.sub.Tell(t.subTell)
}

// postBound posts objective <op> best.bound as a tell against the
// wrapped SearchTree, where op is LT when minimising and GT when
// maximising, and the bound is best's current lb/ub for the objective.
func (b *BAB) postBound() {
	u := b.best.Project(b.objective)
	if u.IsTop() {
		return
	}
	var op Op
	var k int
	if b.mode == Minimize {
		op, k = OpLt, u.LB()
	} else {
		op, k = OpGt, u.UB()
	}
	f := Seq(op, AVarF(b.objective), Z(k))
	t, err := b.sub.InterpretTell(f, b.sub.Env())
	if err != nil {
		return
	}
	b.sub.Tell(t)
}

// Refine performs one branch-and-bound step: if the wrapped SearchTree's
// current node is extractable, it is copied into best and, when
// optimising, a tightening bound is posted. It does not itself advance
// the SearchTree's traversal — the external fixed-point driver is
// expected to call SearchTree.Refine and BAB.Refine alternately, per the
// control-flow description in spec.md §2.
func (b *BAB) Refine() bool {
	if b.sub.IsTop() {
		return false
	}
	if !b.sub.IsExtractable() {
		return false
	}
	if !b.sub.Extract(b.best) {
		return false
	}
	b.solutionsFound++
	if b.mode != Satisfy {
		b.postBound()
	}
	return true
}

// IsExtractable reports whether a solution has been recorded and the
// search has concluded (the wrapped tree reached top) with a complete
// incumbent.
func (b *BAB) IsExtractable() bool {
	return b.solutionsFound > 0 && b.sub.IsTop() && b.best.IsExtractable()
}

// Extract copies the incumbent into target.
func (b *BAB) Extract(target *Store) bool {
	if !b.IsExtractable() {
		return false
	}
	return b.best.Extract(target)
}

// CompareBound reports whether s1 is a strict improvement over s2 under
// the current optimisation direction (dual semantics: minimising
// compares lb, maximising compares ub).
func (b *BAB) CompareBound(s1, s2 *Store) bool {
	u1 := s1.Project(b.objective)
	u2 := s2.Project(b.objective)
	switch b.mode {
	case Minimize:
		return u1.LB() < u2.LB()
	case Maximize:
		return u1.UB() > u2.UB()
	default:
		return false
	}
}
