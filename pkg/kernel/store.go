package kernel

import (
	"fmt"
	"sync"
)

// Propagator is a single constraint participating in the store's
// fixed-point narrowing. It stands in for the out-of-scope "propagator
// completion domain" collaborator, concretely instantiated so this
// kernel can be exercised and tested end-to-end. Propagate reports
// whether it narrowed any variable; it returns an error only when it
// detects the store has become inconsistent for a reason worth
// reporting distinctly (callers usually just check store.IsTop()
// afterwards instead).
type Propagator interface {
	// Vars returns the variables this propagator reads or narrows.
	Vars() []AVar
	// Propagate narrows s and reports whether anything changed.
	Propagate(s *Store) (bool, error)
	// String describes the propagator for debugging.
	String() string
}

// trailEntry records the prior value of a variable so Restore can undo
// a Tell in O(1) without deep-copying the whole store. This generalizes
// solver.go's parent-pointer SolverState chain into an explicit
// append-only undo log, per the design note asking for "a trail-based
// delta, not a deep copy".
type trailEntry struct {
	vid  int
	prev Universe
}

// Store maps abstract variables of a single AType to interval universes,
// plus the propagators that narrow them. It is the base store / primitive
// -universe stand-in spec.md declares out of scope but which must exist
// concretely for Split, SearchTree, BAB and Tables to sit on top of.
type Store struct {
	aty         AType
	vars        []Universe
	names       []string
	trail       []trailEntry
	propagators []Propagator
	env         *Env

	// pool reuses Universe-slice backing arrays across Clone calls, the
	// same role domain.go's sync.Pool plays for BitSetDomain allocation.
	pool *sync.Pool

	// tellMu guards Tell's read-meet-write-trail sequence and Project's
	// read against the one legitimately concurrent caller this kernel
	// has: Tables.Refine, dispatched across a worker pool by
	// internal/parallel.WorkerPool. Every other component tells and
	// projects sequentially and pays the cost of an uncontended lock;
	// this does not reintroduce the sync.RWMutex-around-sequential-state
	// pattern the ambient stack notes deliberately avoids, since
	// SearchTree/Split/BAB never touch the same store from more than one
	// goroutine at a time.
	tellMu sync.RWMutex
}

// NewStore creates an empty store tagged aty.
func NewStore(aty AType) *Store {
	return &Store{
		aty: aty,
		env: NewEnv(),
		pool: &sync.Pool{
			New: func() any { return make([]Universe, 0, 8) },
		},
	}
}

// AddVar declares a new variable with initial bounds [lb, ub] and an
// optional name for Env resolution (pass "" to skip declaring a name).
func (s *Store) AddVar(name string, lb, ub int) AVar {
	vid := len(s.vars)
	s.vars = append(s.vars, NewUniverse(lb, ub))
	s.names = append(s.names, name)
	v := NewAVar(s.aty, vid)
	if name != "" {
		s.env.Declare(name, v)
	}
	return v
}

// Env returns the store's variable-name environment.
func (s *Store) Env() *Env { return s.env }

// AddPropagator registers p to participate in fixed-point refinement.
func (s *Store) AddPropagator(p Propagator) {
	s.propagators = append(s.propagators, p)
}

// Project returns the current universe of x. Out-of-range variables
// (belonging to a different store) report Top, matching the contract
// that project is "defined everywhere".
func (s *Store) Project(x AVar) Universe {
	if x.aty != s.aty || x.vid < 0 || x.vid >= len(s.vars) {
		return Top()
	}
	s.tellMu.RLock()
	defer s.tellMu.RUnlock()
	return s.vars[x.vid]
}

// StoreTell is the tell-delta type for Store: narrow variable X to U.
type StoreTell struct {
	X AVar
	U Universe
}

// Tell narrows x to the meet of its current universe and t.U. It returns
// whether anything changed. Tell is monotone: it never widens a variable.
func (s *Store) Tell(t StoreTell) bool {
	if t.X.aty != s.aty || t.X.vid < 0 || t.X.vid >= len(s.vars) {
		return false
	}
	s.tellMu.Lock()
	defer s.tellMu.Unlock()
	cur := s.vars[t.X.vid]
	next := cur.Meet(t.U)
	if next == cur {
		return false
	}
	s.trail = append(s.trail, trailEntry{vid: t.X.vid, prev: cur})
	s.vars[t.X.vid] = next
	return true
}

// InterpretTell turns a formula into a StoreTell. It recognises binary
// comparisons between a variable and an integer constant (EQ, LT, GT,
// LEQ, GEQ). NEQ has no single-interval tell and is rejected with an
// error; AND is rejected too, since a StoreTell narrows one variable —
// TellAll flattens an AND and interprets and applies each leaf in turn.
func (s *Store) InterpretTell(f F, env *Env) (StoreTell, error) {
	if f.IsSeq() && f.SeqOp() == OpAnd {
		return StoreTell{}, newInterpretError("Store", "AND must be flattened by the caller via TellAll", f)
	}
	if !f.IsSeq() {
		return StoreTell{}, newInterpretError("Store", "expected a binary comparison", f)
	}
	args := f.Args()
	if len(args) != 2 {
		return StoreTell{}, newInterpretError("Store", "expected a binary comparison", f)
	}
	x, k, swapped, ok := splitVarConst(args[0], args[1], env)
	if !ok {
		return StoreTell{}, newInterpretError("Store", "expected one variable and one integer constant", f)
	}
	op := f.SeqOp()
	if swapped {
		op = mirrorOp(op)
	}
	u, err := universeForComparison(op, k)
	if err != nil {
		return StoreTell{}, newInterpretError("Store", err.Error(), f)
	}
	return StoreTell{X: x, U: u}, nil
}

// splitVarConst resolves (lhs, rhs) into (variable, constant, swapped)
// where swapped is true if the variable appeared on the right.
func splitVarConst(lhs, rhs F, env *Env) (AVar, int, bool, bool) {
	if v, ok := ResolveVar(lhs, env); ok && rhs.IsZ() {
		return v, rhs.ZValue(), false, true
	}
	if v, ok := ResolveVar(rhs, env); ok && lhs.IsZ() {
		return v, lhs.ZValue(), true, true
	}
	return AVar{}, 0, false, false
}

func mirrorOp(op Op) Op {
	switch op {
	case OpLt:
		return OpGt
	case OpGt:
		return OpLt
	case OpLeq:
		return OpGeq
	case OpGeq:
		return OpLeq
	default:
		return op
	}
}

func universeForComparison(op Op, k int) (Universe, error) {
	switch op {
	case OpEq:
		return Singleton(k), nil
	case OpLt:
		return NewUniverse(negInf, k-1), nil
	case OpGt:
		return NewUniverse(k+1, posInf), nil
	case OpLeq:
		return NewUniverse(negInf, k), nil
	case OpGeq:
		return NewUniverse(k, posInf), nil
	case OpNeq:
		return Top(), fmt.Errorf("NEQ cannot be expressed as a single interval tell")
	default:
		return Top(), fmt.Errorf("unsupported comparison operator %s", op)
	}
}

// TellAll flattens f under AND (if any) and interprets+applies each leaf
// comparison in order, short-circuiting once the store becomes Top.
func (s *Store) TellAll(f F, env *Env) (bool, error) {
	changed := false
	for _, leaf := range flattenAnd(f) {
		t, err := s.InterpretTell(leaf, env)
		if err != nil {
			return changed, err
		}
		if s.Tell(t) {
			changed = true
		}
		if s.IsTop() {
			break
		}
	}
	return changed, nil
}

func flattenAnd(f F) []F {
	if f.IsSeq() && f.SeqOp() == OpAnd {
		var out []F
		for _, a := range f.Args() {
			out = append(out, flattenAnd(a)...)
		}
		return out
	}
	return []F{f}
}

// InterpretAsk turns a formula into a query universe: the interval that
// must hold for the formula to be entailed. Reuses the same comparison
// table as InterpretTell, except for NEQ, which InterpretTell rejects:
// for NEQ it returns Singleton(k), the excluded value, which the
// formula is entailed by being disjoint from rather than contained in.
func (s *Store) InterpretAsk(f F, env *Env) (Universe, error) {
	if !f.IsSeq() || len(f.Args()) != 2 {
		return Top(), newInterpretError("Store", "expected a binary comparison", f)
	}
	x, k, swapped, ok := splitVarConst(f.Args()[0], f.Args()[1], env)
	_ = x
	if !ok {
		return Top(), newInterpretError("Store", "expected one variable and one integer constant", f)
	}
	op := f.SeqOp()
	if swapped {
		op = mirrorOp(op)
	}
	if op == OpNeq {
		return Singleton(k), nil
	}
	u, err := universeForComparison(op, k)
	if err != nil {
		return Top(), newInterpretError("Store", err.Error(), f)
	}
	return u, nil
}

// IsBot reports whether every variable is still fully unconstrained.
func (s *Store) IsBot() bool {
	for _, u := range s.vars {
		if !u.IsBot() {
			return false
		}
	}
	return true
}

// IsTop reports whether any variable has become infeasible.
func (s *Store) IsTop() bool {
	for _, u := range s.vars {
		if u.IsTop() {
			return true
		}
	}
	return false
}

// IsExtractable reports whether every variable is currently a singleton
// — a concrete solution can be read out.
func (s *Store) IsExtractable() bool {
	if s.IsTop() {
		return false
	}
	for _, u := range s.vars {
		if !u.IsSingleton() {
			return false
		}
	}
	return true
}

// Extract copies s's values into target, provided s IsExtractable and
// both stores declare the same number of variables. It never shares
// storage with s: target receives a fresh copy, matching the contract
// that BAB's `best` is never aliased with the live search.
func (s *Store) Extract(target *Store) bool {
	if !s.IsExtractable() || len(target.vars) != len(s.vars) {
		return false
	}
	copy(target.vars, s.vars)
	return true
}

// StoreSnapshot is an opaque mark into the trail; Restore rewinds to it.
type StoreSnapshot struct {
	mark int
}

// Snapshot returns a cheap mark of the current trail position.
func (s *Store) Snapshot() StoreSnapshot {
	return StoreSnapshot{mark: len(s.trail)}
}

// Restore undoes every Tell recorded since snap was taken.
func (s *Store) Restore(snap StoreSnapshot) {
	for len(s.trail) > snap.mark {
		last := s.trail[len(s.trail)-1]
		s.vars[last.vid] = last.prev
		s.trail = s.trail[:len(s.trail)-1]
	}
}

// Clone returns an independent copy of s, including its variables but
// not its trail (the clone starts with an empty undo log of its own),
// used by callers to build the independent `best` store handed to
// NewBAB and scratch targets for Extract.
func (s *Store) Clone() *Store {
	vs := s.pool.Get().([]Universe)
	vs = vs[:0]
	vs = append(vs, s.vars...)
	names := make([]string, len(s.names))
	copy(names, s.names)
	c := &Store{
		aty:         s.aty,
		vars:        vs,
		names:       names,
		propagators: s.propagators,
		env:         s.env,
		pool:        s.pool,
	}
	return c
}

// Release returns a cloned store's backing array to the pool. Stores
// obtained directly from NewStore should not be Released.
func (s *Store) Release() {
	if s.pool != nil && s.vars != nil {
		s.pool.Put(s.vars[:0])
		s.vars = nil
	}
}

// NumRefinements returns the number of registered propagators; each is
// independently addressable for an external fixed-point driver.
func (s *Store) NumRefinements() int { return len(s.propagators) }

// Refine runs propagator i once and reports whether it narrowed anything.
func (s *Store) Refine(i int) (bool, error) {
	if i < 0 || i >= len(s.propagators) {
		return false, fmt.Errorf("Store.Refine: index %d out of range", i)
	}
	return s.propagators[i].Propagate(s)
}

// FixedPoint runs every propagator repeatedly until none reports a
// change or the store becomes Top. It is the external fixed-point
// iterator spec.md treats as a collaborator, given a trivial concrete
// implementation so the end-to-end scenarios are runnable.
func (s *Store) FixedPoint() error {
	for {
		changed := false
		for i := range s.propagators {
			c, err := s.Refine(i)
			if err != nil {
				return err
			}
			changed = changed || c
			if s.IsTop() {
				return nil
			}
		}
		if !changed {
			return nil
		}
	}
}

// NumVars reports the number of variables declared in the store.
func (s *Store) NumVars() int { return len(s.vars) }

// VarAt returns the AVar at index i.
func (s *Store) VarAt(i int) AVar { return NewAVar(s.aty, i) }

// String implements fmt.Stringer.
func (s *Store) String() string {
	out := "{"
	for i, u := range s.vars {
		if i > 0 {
			out += ", "
		}
		name := s.names[i]
		if name == "" {
			name = fmt.Sprintf("v%d", i)
		}
		out += fmt.Sprintf("%s=%s", name, u)
	}
	return out + "}"
}
