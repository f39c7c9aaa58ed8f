package kernel

import "testing"

func TestEnvDeclareResolve(t *testing.T) {
	env := NewEnv()
	v := NewAVar(0, 2)
	env.Declare("x", v)

	got, ok := env.Resolve("x")
	if !ok || !got.Equal(v) {
		t.Errorf("Resolve(\"x\") = (%v, %v), want (%v, true)", got, ok, v)
	}
	if _, ok := env.Resolve("y"); ok {
		t.Error("Resolve of an undeclared name should fail")
	}
}

func TestEnvRedeclareRebinds(t *testing.T) {
	env := NewEnv()
	v1 := NewAVar(0, 1)
	v2 := NewAVar(0, 2)
	env.Declare("x", v1)
	env.Declare("x", v2)

	got, _ := env.Resolve("x")
	if !got.Equal(v2) {
		t.Errorf("Resolve(\"x\") = %v, want %v (rebound)", got, v2)
	}
}

func TestResolveVar(t *testing.T) {
	env := NewEnv()
	v := NewAVar(0, 5)
	env.Declare("z", v)

	if got, ok := ResolveVar(AVarF(v), env); !ok || !got.Equal(v) {
		t.Errorf("ResolveVar(AVarF) = (%v, %v), want (%v, true)", got, ok, v)
	}
	if got, ok := ResolveVar(LVar("z"), env); !ok || !got.Equal(v) {
		t.Errorf("ResolveVar(LVar) = (%v, %v), want (%v, true)", got, ok, v)
	}
	if _, ok := ResolveVar(Z(3), env); ok {
		t.Error("ResolveVar on a constant should fail")
	}
	if _, ok := ResolveVar(LVar("undeclared"), env); ok {
		t.Error("ResolveVar on an undeclared logical variable should fail")
	}
}
