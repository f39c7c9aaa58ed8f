// Package main demonstrates the kernel constraint-solving stack end to
// end against the six scenarios its design is built around: plain
// enumeration, constrained enumeration, minimisation, maximisation and
// table propagation.
package main

import (
	"context"
	"fmt"

	"github.com/gitrdm/latkernel/internal/parallel"
	"github.com/gitrdm/latkernel/pkg/kernel"
)

func main() {
	fmt.Println("=== Kernel Constraint Solver Demo ===")
	fmt.Println()

	unconstrainedEnumeration()
	constrainedEnumeration()
	unconstrainedMinimisation()
	constrainedMinimisation()
	constrainedMaximisation()
	tablePropagation()
}

// buildABC wires a fresh store with a, b, c ∈ [0,2] and an
// input_order/indomain_min search strategy over all three, the common
// setup for scenarios 1 to 5.
func buildABC() (*kernel.Store, *kernel.Split, *kernel.SearchTree, kernel.AVar, kernel.AVar, kernel.AVar) {
	store := kernel.NewStore(0)
	a := store.AddVar("a", 0, 2)
	b := store.AddVar("b", 0, 2)
	c := store.AddVar("c", 0, 2)

	split := kernel.NewSplit(store)
	strat := kernel.StrategyType{VarOrder: kernel.InputOrder, ValOrder: kernel.ValMin, Vars: []kernel.AVar{a, b, c}}
	split.Tell(strat)

	st := kernel.NewSearchTree(store, split)
	return store, split, st, a, b, c
}

// enumerate drives st to exhaustion, calling onSolution once per
// extractable node visited, and reports the number of refine calls made.
func enumerate(st *kernel.SearchTree, scratch *kernel.Store, onSolution func(*kernel.Store)) int {
	iterations := 0
	for !st.IsTop() {
		if st.IsExtractable() {
			st.Extract(scratch)
			onSolution(scratch)
		}
		st.Refine()
		iterations++
	}
	return iterations
}

func unconstrainedEnumeration() {
	fmt.Println("1. Unconstrained enumeration (a,b,c ∈ [0,2]):")
	store, _, st, a, b, c := buildABC()
	scratch := store.Clone()
	defer scratch.Release()

	count := 0
	iters := enumerate(st, scratch, func(s *kernel.Store) {
		count++
		fmt.Printf("   (%d,%d,%d)\n", s.Project(a).LB(), s.Project(b).LB(), s.Project(c).LB())
	})
	fmt.Printf("   -> %d solutions in %d refine iterations\n\n", count, iters)
}

func constrainedEnumeration() {
	fmt.Println("2. Constrained enumeration (a+b=c):")
	store, _, st, a, b, c := buildABC()
	sum, err := kernel.NewLinearSum([]kernel.AVar{a, b}, []int{1, 1}, c)
	if err != nil {
		fmt.Println("   error:", err)
		return
	}
	store.AddPropagator(sum)
	scratch := store.Clone()
	defer scratch.Release()

	count := 0
	iterations := 0
	for !st.IsTop() {
		store.FixedPoint()
		if st.IsExtractable() {
			st.Extract(scratch)
			count++
			fmt.Printf("   (%d,%d,%d)\n", scratch.Project(a).LB(), scratch.Project(b).LB(), scratch.Project(c).LB())
		}
		st.Refine()
		iterations++
	}
	fmt.Printf("   -> %d solutions in %d refine iterations\n\n", count, iterations)
}

func unconstrainedMinimisation() {
	fmt.Println("3. Unconstrained minimisation (minimize c):")
	store, _, st, _, _, c := buildABC()
	best := store.Clone()
	defer best.Release()
	bab := kernel.NewBAB(st, best)
	tell, err := bab.InterpretTell(kernel.ESeq("minimize", kernel.AVarF(c)), st.Env())
	if err != nil {
		fmt.Println("   error:", err)
		return
	}
	bab.Tell(tell)

	iterations := 0
	for !st.IsTop() {
		if bab.Refine() {
			fmt.Printf("   best so far: %s\n", bab.Optimum())
		}
		st.Refine()
		iterations++
	}
	fmt.Printf("   -> best = %s after %d iterations\n\n", bab.Optimum(), iterations)
}

func constrainedMinimisation() {
	fmt.Println("4. Constrained minimisation (a+b=c, minimize c):")
	store, _, st, a, b, c := buildABC()
	sum, _ := kernel.NewLinearSum([]kernel.AVar{a, b}, []int{1, 1}, c)
	store.AddPropagator(sum)
	best := store.Clone()
	defer best.Release()
	bab := kernel.NewBAB(st, best)
	tell, _ := bab.InterpretTell(kernel.ESeq("minimize", kernel.AVarF(c)), st.Env())
	bab.Tell(tell)

	iterations := 0
	for !st.IsTop() {
		store.FixedPoint()
		bab.Refine()
		st.Refine()
		iterations++
	}
	fmt.Printf("   -> best = %s after %d iterations\n\n", bab.Optimum(), iterations)
}

func constrainedMaximisation() {
	fmt.Println("5. Constrained maximisation (a+b=c, maximize c):")
	store, _, st, a, b, c := buildABC()
	sum, _ := kernel.NewLinearSum([]kernel.AVar{a, b}, []int{1, 1}, c)
	store.AddPropagator(sum)
	best := store.Clone()
	defer best.Release()
	bab := kernel.NewBAB(st, best)
	tell, _ := bab.InterpretTell(kernel.ESeq("maximize", kernel.AVarF(c)), st.Env())
	bab.Tell(tell)

	iterations := 0
	for !st.IsTop() {
		store.FixedPoint()
		bab.Refine()
		st.Refine()
		iterations++
	}
	fmt.Printf("   -> best = %s after %d iterations\n\n", bab.Optimum(), iterations)
}

func tablePropagation() {
	fmt.Println("6. Table propagation (x,y,z ∈ [1,3], table {(1,1,1),(2,2,2),(3,3,3)}):")
	store := kernel.NewStore(0)
	x := store.AddVar("x", 1, 3)
	y := store.AddVar("y", 1, 3)
	z := store.AddVar("z", 1, 3)

	tables := kernel.NewTables(store)
	if err := tables.AddTable([]kernel.AVar{x, y, z}, [][]int{{1, 1, 1}, {2, 2, 2}, {3, 3, 3}}); err != nil {
		fmt.Println("   error:", err)
		return
	}

	store.Tell(kernel.StoreTell{X: y, U: kernel.NewUniverse(1, 2)})
	tables.FixedPoint()
	fmt.Printf("   after y ∈ [1,2]: x=%s y=%s z=%s\n", store.Project(x), store.Project(y), store.Project(z))

	// The second sweep is dispatched across a worker pool instead of run
	// on the calling goroutine, demonstrating that crefine/lrefine are
	// genuinely index-addressable and not just sequentially convenient.
	pool := parallel.NewWorkerPool(0)
	defer pool.Shutdown()
	store.Tell(kernel.StoreTell{X: z, U: kernel.Singleton(2)})
	if err := tables.FixedPointParallel(context.Background(), pool); err != nil {
		fmt.Println("   error:", err)
		return
	}
	fmt.Printf("   after z = 2: x=%s y=%s z=%s, extractable=%v\n\n", store.Project(x), store.Project(y), store.Project(z), tables.IsExtractable())
}
