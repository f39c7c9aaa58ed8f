package kernel

import (
	"strings"
	"testing"
)

func TestInterpretErrorMessage(t *testing.T) {
	f := Seq(OpEq, LVar("x"), Z(1))
	err := newInterpretError("Store", "expected a binary comparison", f)
	msg := err.Error()
	if !strings.Contains(msg, "Store") || !strings.Contains(msg, "expected a binary comparison") {
		t.Errorf("Error() = %q, want it to mention the component and message", msg)
	}
}

func TestInterpretErrorDoesNotMutateState(t *testing.T) {
	store := NewStore(0)
	v := store.AddVar("x", 0, 5)
	before := store.Project(v)

	if _, err := store.InterpretTell(Z(1), store.Env()); err == nil {
		t.Fatal("interpreting a bare constant should fail")
	}
	if after := store.Project(v); after != before {
		t.Errorf("a failed InterpretTell must not mutate state: before=%s after=%s", before, after)
	}
}
