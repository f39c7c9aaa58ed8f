package kernel

// VariableOrder selects which unassigned variable Split picks next.
type VariableOrder int

const (
	InputOrder VariableOrder = iota
	FirstFail
	AntiFirstFail
	Smallest
	Largest
)

func (v VariableOrder) String() string {
	switch v {
	case InputOrder:
		return "input_order"
	case FirstFail:
		return "first_fail"
	case AntiFirstFail:
		return "anti_first_fail"
	case Smallest:
		return "smallest"
	case Largest:
		return "largest"
	default:
		return "?var_order"
	}
}

// VariableOrderOfString maps the external literal to its enum value.
func VariableOrderOfString(s string) (VariableOrder, bool) {
	switch s {
	case "input_order":
		return InputOrder, true
	case "first_fail":
		return FirstFail, true
	case "anti_first_fail":
		return AntiFirstFail, true
	case "smallest":
		return Smallest, true
	case "largest":
		return Largest, true
	default:
		return 0, false
	}
}

// ValueOrder selects how Split cuts the chosen variable's domain.
type ValueOrder int

const (
	ValMin ValueOrder = iota
	ValMax
	ValMedian
	ValSplit
	ValReverseSplit
)

func (v ValueOrder) String() string {
	switch v {
	case ValMin:
		return "indomain_min"
	case ValMax:
		return "indomain_max"
	case ValMedian:
		return "indomain_median"
	case ValSplit:
		return "indomain_split"
	case ValReverseSplit:
		return "indomain_reverse_split"
	default:
		return "?val_order"
	}
}

// ValueOrderOfString maps the external literal to its enum value.
func ValueOrderOfString(s string) (ValueOrder, bool) {
	switch s {
	case "indomain_min":
		return ValMin, true
	case "indomain_max":
		return ValMax, true
	case "indomain_median":
		return ValMedian, true
	case "indomain_split":
		return ValSplit, true
	case "indomain_reverse_split":
		return ValReverseSplit, true
	default:
		return 0, false
	}
}

// StrategyType records one entry of Split's strategy queue: which
// variable and value order to apply, and which variables it covers
// (empty means "every variable currently in the store").
type StrategyType struct {
	VarOrder VariableOrder
	ValOrder ValueOrder
	Vars     []AVar
}

// SplitSnapshot is Split's opaque rollback mark.
type SplitSnapshot struct {
	numStrategies   int
	currentStrategy int
	nextVarIdx      int
}

// Split picks the next unassigned variable and a value cut, producing a
// two-child Branch, per lala/split_strategy.hpp. It holds an ordered
// queue of StrategyTypes and narrows that queue front-to-back as
// variables become singleton.
type Split struct {
	sub             *Store
	strategies      []StrategyType
	currentStrategy int
	nextVarIdx      int
}

// NewSplit builds a Split strategy over sub with an empty strategy queue.
func NewSplit(sub *Store) *Split {
	return &Split{sub: sub}
}

// InterpretTell recognises search(<var-order>, <val-order>, v1, ..., vn)
// and returns the corresponding StrategyType. A non-empty warning string
// is returned (with a nil error) when an "indomain_median" operand was
// downgraded to indomain_split, per the design note preserving that
// downgrade from the later source.
func (s *Split) InterpretTell(f F, env *Env) (StrategyType, string, error) {
	if !f.IsESeq() || f.ESeqName() != "search" {
		return StrategyType{}, "", newInterpretError("Split", "expected search(var_order, val_order, vars...)", f)
	}
	args := f.Args()
	if len(args) < 2 {
		return StrategyType{}, "", newInterpretError("Split", "search requires a variable order and a value order", f)
	}
	voF, vaF := args[0], args[1]
	if !voF.IsESeq() || len(voF.Args()) != 0 {
		return StrategyType{}, "", newInterpretError("Split", "variable order must be a bare name", f)
	}
	if !vaF.IsESeq() || len(vaF.Args()) != 0 {
		return StrategyType{}, "", newInterpretError("Split", "value order must be a bare name", f)
	}
	vo, ok := VariableOrderOfString(voF.ESeqName())
	if !ok {
		return StrategyType{}, "", newInterpretError("Split", "unsupported variable order: "+voF.ESeqName(), f)
	}
	valName := vaF.ESeqName()
	warning := ""
	if valName == "indomain_median" {
		valName = "indomain_split"
		warning = "indomain_median is not supported since we use interval domains; replaced by indomain_split"
	}
	va, ok := ValueOrderOfString(valName)
	if !ok {
		return StrategyType{}, "", newInterpretError("Split", "unsupported value order: "+vaF.ESeqName(), f)
	}

	var vars []AVar
	for _, operand := range args[2:] {
		switch {
		case operand.IsLVar():
			v, ok := env.Resolve(operand.LVarName())
			if !ok {
				return StrategyType{}, "", newInterpretError("Split", "unresolved variable: "+operand.LVarName(), f)
			}
			vars = append(vars, v)
		case operand.IsAVar():
			vars = append(vars, operand.AVarValue())
		default:
			if operand.NumVars() > 0 {
				return StrategyType{}, "", newInterpretError("Split", "search only supports variables or constants as operands", f)
			}
			// Pure constant operand: silently ignored, matching
			// split_strategy.hpp's interpret_tell.
		}
	}
	return StrategyType{VarOrder: vo, ValOrder: va, Vars: vars}, warning, nil
}

// Tell appends strat to the strategy queue and reports true (the queue
// always grows; strategies are FIFO-consumed, never merged).
func (s *Split) Tell(strat StrategyType) bool {
	s.strategies = append(s.strategies, strat)
	return true
}

// Snapshot captures the current strategy-queue length and cursors.
func (s *Split) Snapshot() SplitSnapshot {
	return SplitSnapshot{
		numStrategies:   len(s.strategies),
		currentStrategy: s.currentStrategy,
		nextVarIdx:      s.nextVarIdx,
	}
}

// Restore truncates the strategy queue to snap's length and resets both
// cursors to the position they held at snapshot time.
func (s *Split) Restore(snap SplitSnapshot) {
	if snap.numStrategies < len(s.strategies) {
		s.strategies = s.strategies[:snap.numStrategies]
	}
	s.currentStrategy = snap.currentStrategy
	s.nextVarIdx = snap.nextVarIdx
}

func (s *Split) activeVars(strat StrategyType) []AVar {
	if len(strat.Vars) > 0 {
		return strat.Vars
	}
	vars := make([]AVar, s.sub.NumVars())
	for i := range vars {
		vars[i] = s.sub.VarAt(i)
	}
	return vars
}

// moveToNextUnassignedVar advances (currentStrategy, nextVarIdx) past
// every already-singleton variable, rolling over to the next strategy
// when the current one is exhausted.
func (s *Split) moveToNextUnassignedVar() {
	for s.currentStrategy < len(s.strategies) {
		vars := s.activeVars(s.strategies[s.currentStrategy])
		for s.nextVarIdx < len(vars) {
			if !s.sub.Project(vars[s.nextVarIdx]).IsSingleton() {
				return
			}
			s.nextVarIdx++
		}
		s.currentStrategy++
		s.nextVarIdx = 0
	}
}

// foldSelect scans vars[start:] for the minimal score, among variables
// that are not already singleton, breaking ties in favour of the
// first-seen index — exactly var_map_fold_left's "meet only returns true
// on strict improvement" tie-break.
func foldSelect(sub *Store, vars []AVar, start int, score func(Universe) int) AVar {
	best := vars[start]
	bestScore := score(sub.Project(vars[start]))
	for i := start + 1; i < len(vars); i++ {
		u := sub.Project(vars[i])
		if u.IsSingleton() {
			continue
		}
		if sc := score(u); sc < bestScore {
			bestScore = sc
			best = vars[i]
		}
	}
	return best
}

// selectVar picks the next branching variable according to the current
// strategy's VarOrder. ANTI_FIRST_FAIL and LARGEST are dualized (scored
// by negation) per the later, authoritative split_strategy.hpp — the
// spec's Open Question resolution.
func (s *Split) selectVar() AVar {
	strat := s.strategies[s.currentStrategy]
	vars := s.activeVars(strat)
	switch strat.VarOrder {
	case InputOrder:
		return vars[s.nextVarIdx]
	case FirstFail:
		return foldSelect(s.sub, vars, s.nextVarIdx, func(u Universe) int { return u.Width() })
	case AntiFirstFail:
		return foldSelect(s.sub, vars, s.nextVarIdx, func(u Universe) int { return -u.Width() })
	case Smallest:
		return foldSelect(s.sub, vars, s.nextVarIdx, func(u Universe) int { return u.LB() })
	case Largest:
		return foldSelect(s.sub, vars, s.nextVarIdx, func(u Universe) int { return -u.UB() })
	default:
		return vars[s.nextVarIdx]
	}
}

// makeBranch builds the two-child branch x<left>k / x<right>k. If either
// interpretation fails and (left, right) isn't already the canonical
// (LEQ, GT) pair, it retries once with that fallback; otherwise it
// returns an empty, warned branch.
func (s *Split) makeBranch(x AVar, left, right Op, k int) Branch {
	u := s.sub.Project(x)
	if (u.IsTop() && u.PreserveTop()) || (u.IsBot() && u.PreserveBot()) {
		b := EmptyBranch()
		b.Warning = "cannot branch on variable " + x.String() + ": unbounded or already infeasible"
		return b
	}
	leftF := Seq(left, AVarF(x), Z(k))
	rightF := Seq(right, AVarF(x), Z(k))
	leftTell, errL := s.sub.InterpretTell(leftF, s.sub.Env())
	rightTell, errR := s.sub.InterpretTell(rightF, s.sub.Env())
	if errL == nil && errR == nil {
		return NewBranch(leftTell, rightTell)
	}
	if !(left == OpLeq && right == OpGt) {
		return s.makeBranch(x, OpLeq, OpGt, s.sub.Project(x).Median())
	}
	b := EmptyBranch()
	b.Warning = "unable to construct a branch for variable " + x.String()
	return b
}

// Split returns the next branch: an empty branch if the subdomain is
// bot, no strategy remains, or the chosen variable cannot be split.
func (s *Split) Split() Branch {
	if s.sub.IsBot() {
		return EmptyBranch()
	}
	s.moveToNextUnassignedVar()
	if s.currentStrategy >= len(s.strategies) {
		return EmptyBranch()
	}
	strat := s.strategies[s.currentStrategy]
	x := s.selectVar()
	u := s.sub.Project(x)

	var left, right Op
	var k int
	warning := ""
	switch strat.ValOrder {
	case ValMin:
		left, right, k = OpEq, OpGt, u.LB()
	case ValMax:
		left, right, k = OpEq, OpLt, u.UB()
	case ValSplit:
		left, right, k = OpLeq, OpGt, u.Median()
	case ValReverseSplit:
		left, right, k = OpGt, OpLeq, u.Median()
	case ValMedian:
		left, right, k = OpLeq, OpGt, u.Median()
		warning = "indomain_median is not supported since we use interval domains; replaced by indomain_split"
	default:
		left, right, k = OpLeq, OpGt, u.Median()
	}

	b := s.makeBranch(x, left, right, k)
	if warning != "" && b.Warning == "" {
		b.Warning = warning
	}
	return b
}
