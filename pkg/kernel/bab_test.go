package kernel

import (
	"errors"
	"testing"
)

func buildBABTree(lb, ub, n int) (*SearchTree, *BAB, []AVar) {
	s := NewStore(0)
	vars := make([]AVar, n)
	for i := range vars {
		vars[i] = s.AddVar("", lb, ub)
	}
	split := NewSplit(s)
	split.Tell(StrategyType{VarOrder: InputOrder, ValOrder: ValMin, Vars: vars})
	st := NewSearchTree(s, split)
	best := s.Clone()
	return st, NewBAB(st, best), vars
}

func TestBABInterpretTellMinimize(t *testing.T) {
	st, bab, vars := buildBABTree(0, 2, 1)
	tell, err := bab.InterpretTell(ESeq("minimize", AVarF(vars[0])), st.Env())
	if err != nil {
		t.Fatalf("InterpretTell() error = %v", err)
	}
	bab.Tell(tell)
	if bab.Mode() != Minimize {
		t.Errorf("Mode() = %v, want Minimize", bab.Mode())
	}
}

func TestBABInterpretTellConstantIsWarning(t *testing.T) {
	st, bab, _ := buildBABTree(0, 2, 1)
	tell, err := bab.InterpretTell(ESeq("minimize", Z(3)), st.Env())
	if err != nil {
		t.Fatalf("InterpretTell() error = %v", err)
	}
	if tell.Warning == "" {
		t.Error("minimize(constant) should be reported as a warning")
	}
	bab.Tell(tell)
	if bab.Mode() != Satisfy {
		t.Errorf("minimize(constant) should be treated as satisfaction, got mode %v", bab.Mode())
	}
}

func TestBABMultiObjectivePanics(t *testing.T) {
	st, bab, vars := buildBABTree(0, 2, 2)
	tell, _ := bab.InterpretTell(ESeq("minimize", AVarF(vars[0])), st.Env())
	bab.Tell(tell)

	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("setting a second objective should panic")
		}
		if err, ok := r.(error); !ok || !errors.Is(err, ErrMultiObjective) {
			t.Errorf("panic value = %v, want ErrMultiObjective", r)
		}
	}()
	tell2, _ := bab.InterpretTell(ESeq("maximize", AVarF(vars[1])), st.Env())
	bab.Tell(tell2)
}

func TestBABUnconstrainedMinimisation(t *testing.T) {
	st, bab, vars := buildBABTree(0, 2, 3)
	c := vars[2]
	tell, _ := bab.InterpretTell(ESeq("minimize", AVarF(c)), st.Env())
	bab.Tell(tell)

	iterations := 0
	for !st.IsTop() {
		bab.Refine()
		if bab.SolutionsFound() > 0 {
			break
		}
		st.Refine()
		iterations++
	}
	if bab.SolutionsFound() == 0 {
		t.Fatal("expected BAB to record at least one solution")
	}
	if got := bab.Optimum().Project(c); got.LB() != 0 {
		t.Errorf("Optimum().Project(c) = %s, want lb 0 for the minimum", got)
	}
}

func TestBABConstrainedMinimisation(t *testing.T) {
	s := NewStore(0)
	a := s.AddVar("a", 0, 2)
	b := s.AddVar("b", 0, 2)
	c := s.AddVar("c", 0, 2)
	sum, _ := NewLinearSum([]AVar{a, b}, []int{1, 1}, c)
	s.AddPropagator(sum)
	split := NewSplit(s)
	split.Tell(StrategyType{VarOrder: InputOrder, ValOrder: ValMin, Vars: []AVar{a, b, c}})
	st := NewSearchTree(s, split)
	best := s.Clone()
	bab := NewBAB(st, best)
	tell, _ := bab.InterpretTell(ESeq("minimize", AVarF(c)), st.Env())
	bab.Tell(tell)

	for !st.IsTop() {
		s.FixedPoint()
		bab.Refine()
		st.Refine()
	}
	opt := bab.Optimum()
	if opt.Project(a).SingletonValue() != 0 || opt.Project(b).SingletonValue() != 0 || opt.Project(c).SingletonValue() != 0 {
		t.Errorf("best = (%s,%s,%s), want (0,0,0)", opt.Project(a), opt.Project(b), opt.Project(c))
	}
}

func TestBABConstrainedMaximisation(t *testing.T) {
	s := NewStore(0)
	a := s.AddVar("a", 0, 2)
	b := s.AddVar("b", 0, 2)
	c := s.AddVar("c", 0, 2)
	sum, _ := NewLinearSum([]AVar{a, b}, []int{1, 1}, c)
	s.AddPropagator(sum)
	split := NewSplit(s)
	split.Tell(StrategyType{VarOrder: InputOrder, ValOrder: ValMin, Vars: []AVar{a, b, c}})
	st := NewSearchTree(s, split)
	best := s.Clone()
	bab := NewBAB(st, best)
	tell, _ := bab.InterpretTell(ESeq("maximize", AVarF(c)), st.Env())
	bab.Tell(tell)

	for !st.IsTop() {
		s.FixedPoint()
		bab.Refine()
		st.Refine()
	}
	opt := bab.Optimum()
	if opt.Project(c).SingletonValue() != 2 {
		t.Errorf("best c = %s, want 2", opt.Project(c))
	}
}

func TestBABMonotonicImprovement(t *testing.T) {
	s := NewStore(0)
	a := s.AddVar("a", 0, 2)
	b := s.AddVar("b", 0, 2)
	c := s.AddVar("c", 0, 2)
	sum, _ := NewLinearSum([]AVar{a, b}, []int{1, 1}, c)
	s.AddPropagator(sum)
	split := NewSplit(s)
	split.Tell(StrategyType{VarOrder: InputOrder, ValOrder: ValMin, Vars: []AVar{a, b, c}})
	st := NewSearchTree(s, split)
	best := s.Clone()
	bab := NewBAB(st, best)
	tell, _ := bab.InterpretTell(ESeq("minimize", AVarF(c)), st.Env())
	bab.Tell(tell)

	prevLB := -1
	for !st.IsTop() {
		s.FixedPoint()
		if bab.Refine() {
			lb := bab.Optimum().Project(c).LB()
			if prevLB != -1 && lb > prevLB {
				t.Errorf("new best c=%d regressed past previous best c=%d", lb, prevLB)
			}
			prevLB = lb
		}
		st.Refine()
	}
}
