package kernel

import "testing"

func TestStoreTellNarrows(t *testing.T) {
	s := NewStore(0)
	x := s.AddVar("x", 0, 10)

	if !s.Tell(StoreTell{X: x, U: NewUniverse(3, 7)}) {
		t.Fatal("Tell should report a change")
	}
	got := s.Project(x)
	if got.LB() != 3 || got.UB() != 7 {
		t.Errorf("Project(x) = %s, want [3,7]", got)
	}
	if s.Tell(StoreTell{X: x, U: NewUniverse(0, 10)}) {
		t.Error("telling a wider universe should not change anything")
	}
}

func TestStoreTellNeverWidens(t *testing.T) {
	s := NewStore(0)
	x := s.AddVar("x", 0, 10)
	s.Tell(StoreTell{X: x, U: Singleton(4)})
	s.Tell(StoreTell{X: x, U: NewUniverse(0, 10)})
	if got := s.Project(x); !got.IsSingleton() || got.SingletonValue() != 4 {
		t.Errorf("Tell must be monotone; got %s, want 4", got)
	}
}

func TestStoreInterpretTellComparisons(t *testing.T) {
	s := NewStore(0)
	x := s.AddVar("x", 0, 10)
	env := s.Env()

	tests := []struct {
		name   string
		f      F
		wantLB int
		wantUB int
	}{
		{"eq", Seq(OpEq, AVarF(x), Z(4)), 4, 4},
		{"lt", Seq(OpLt, AVarF(x), Z(4)), negInf, 3},
		{"gt", Seq(OpGt, AVarF(x), Z(4)), 5, posInf},
		{"leq", Seq(OpLeq, AVarF(x), Z(4)), negInf, 4},
		{"geq", Seq(OpGeq, AVarF(x), Z(4)), 4, posInf},
		{"swapped", Seq(OpLt, Z(4), AVarF(x)), 5, posInf},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tell, err := s.InterpretTell(tt.f, env)
			if err != nil {
				t.Fatalf("InterpretTell() error = %v", err)
			}
			if tell.U.LB() != tt.wantLB || tell.U.UB() != tt.wantUB {
				t.Errorf("InterpretTell() = [%d,%d], want [%d,%d]", tell.U.LB(), tell.U.UB(), tt.wantLB, tt.wantUB)
			}
		})
	}
}

func TestStoreInterpretTellRejectsAnd(t *testing.T) {
	s := NewStore(0)
	x := s.AddVar("x", 0, 10)
	f := Seq(OpAnd, Seq(OpEq, AVarF(x), Z(1)), Seq(OpEq, AVarF(x), Z(1)))
	if _, err := s.InterpretTell(f, s.Env()); err == nil {
		t.Error("InterpretTell should reject AND; callers must use TellAll")
	}
}

func TestStoreTellAllFlattensAnd(t *testing.T) {
	s := NewStore(0)
	x := s.AddVar("x", 0, 10)
	y := s.AddVar("y", 0, 10)
	f := Seq(OpAnd,
		Seq(OpGeq, AVarF(x), Z(2)),
		Seq(OpLeq, AVarF(x), Z(8)),
		Seq(OpEq, AVarF(y), Z(5)),
	)
	changed, err := s.TellAll(f, s.Env())
	if err != nil {
		t.Fatalf("TellAll() error = %v", err)
	}
	if !changed {
		t.Error("TellAll should report a change")
	}
	if got := s.Project(x); got.LB() != 2 || got.UB() != 8 {
		t.Errorf("Project(x) = %s, want [2,8]", got)
	}
	if got := s.Project(y); got.SingletonValue() != 5 {
		t.Errorf("Project(y) = %s, want 5", got)
	}
}

func TestStoreIsBotIsTop(t *testing.T) {
	s := NewStore(0)
	x := s.AddVar("x", negInf, posInf)
	if !s.IsBot() {
		t.Error("a fresh store with only unbounded variables should be bot")
	}
	s.Tell(StoreTell{X: x, U: NewUniverse(5, 3)})
	if !s.IsTop() {
		t.Error("telling an infeasible universe should make the store top")
	}
}

func TestStoreIsExtractable(t *testing.T) {
	s := NewStore(0)
	x := s.AddVar("x", 0, 10)
	y := s.AddVar("y", 0, 10)
	if s.IsExtractable() {
		t.Error("a store with non-singleton variables should not be extractable")
	}
	s.Tell(StoreTell{X: x, U: Singleton(1)})
	s.Tell(StoreTell{X: y, U: Singleton(2)})
	if !s.IsExtractable() {
		t.Error("a store with every variable singleton should be extractable")
	}
}

func TestStoreSnapshotRestoreRoundTrip(t *testing.T) {
	s := NewStore(0)
	x := s.AddVar("x", 0, 10)
	y := s.AddVar("y", 0, 10)

	snap := s.Snapshot()
	s.Tell(StoreTell{X: x, U: Singleton(3)})
	s.Tell(StoreTell{X: y, U: NewUniverse(4, 6)})
	s.Restore(snap)

	if got := s.Project(x); got.LB() != 0 || got.UB() != 10 {
		t.Errorf("Project(x) after restore = %s, want [0,10]", got)
	}
	if got := s.Project(y); got.LB() != 0 || got.UB() != 10 {
		t.Errorf("Project(y) after restore = %s, want [0,10]", got)
	}
}

func TestStoreExtractDoesNotAlias(t *testing.T) {
	s := NewStore(0)
	x := s.AddVar("x", 0, 10)
	s.Tell(StoreTell{X: x, U: Singleton(7)})

	target := s.Clone()
	defer target.Release()
	target.vars[0] = NewUniverse(0, 10)

	if !s.Extract(target) {
		t.Fatal("Extract should succeed from an extractable store")
	}
	if got := target.Project(x); got.SingletonValue() != 7 {
		t.Errorf("Extract() target = %s, want 7", got)
	}
	target.vars[0] = NewUniverse(0, 10)
	if got := s.Project(x); got.SingletonValue() != 7 {
		t.Errorf("Extract should not have aliased s's storage: s = %s", got)
	}
}

func TestStoreFixedPointAndRefine(t *testing.T) {
	s := NewStore(0)
	a := s.AddVar("a", 0, 5)
	b := s.AddVar("b", 0, 5)
	c := s.AddVar("c", 0, 5)
	sum, err := NewLinearSum([]AVar{a, b}, []int{1, 1}, c)
	if err != nil {
		t.Fatalf("NewLinearSum() error = %v", err)
	}
	s.AddPropagator(sum)
	if s.NumRefinements() != 1 {
		t.Fatalf("NumRefinements() = %d, want 1", s.NumRefinements())
	}

	s.Tell(StoreTell{X: a, U: Singleton(2)})
	s.Tell(StoreTell{X: b, U: Singleton(3)})
	if err := s.FixedPoint(); err != nil {
		t.Fatalf("FixedPoint() error = %v", err)
	}
	if got := s.Project(c); !got.IsSingleton() || got.SingletonValue() != 5 {
		t.Errorf("Project(c) = %s, want 5", got)
	}
}
