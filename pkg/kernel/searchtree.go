package kernel

import "fmt"

// rootSnapshot is taken exactly once, the instant the traversal leaves
// the root node, and refreshed every time root-deferred tells are
// applied on backtrack.
type rootSnapshot struct {
	store StoreSnapshot
	split SplitSnapshot
}

// frame is one entry of the traversal path: a branch together with its
// own cursor (carried inside Branch itself).
type frame struct {
	branch Branch
}

// SearchTreeTell is SearchTree's tell-delta: either a sub-domain
// StoreTell or a Split StrategyType, routed by InterpretTell.
type SearchTreeTell struct {
	isSplit       bool
	storeTell     StoreTell
	splitStrategy StrategyType
	// Warning carries a diagnostic surfaced by Split while interpreting
	// this tell (e.g. the indomain_median downgrade).
	Warning string
}

// SearchTree manages depth-first traversal of the search space rooted at
// sub, using split to generate branches. Ported from the state machine
// in lala/search_tree.hpp; the explicit path slice plays the role
// solver.go's iterative searchFrame stack plays for FD value
// enumeration, generalized here to branch-cursor frames.
//
// State is one of:
//   - Empty (top): exhausted == true. Terminal.
//   - Singleton (root): !exhausted && len(path) == 0.
//   - Internal: !exhausted && len(path) > 0.
type SearchTree struct {
	sub   *Store
	split *Split

	path      []frame
	root      *rootSnapshot
	exhausted bool

	rootDeferredSub   []StoreTell
	rootDeferredSplit []StrategyType
}

// NewSearchTree builds a SearchTree in the Singleton (root) state.
func NewSearchTree(sub *Store, split *Split) *SearchTree {
	return &SearchTree{sub: sub, split: split}
}

// IsTop reports the Empty state: the traversal is exhausted.
func (st *SearchTree) IsTop() bool { return st.exhausted }

// IsBot reports the Singleton state with a bot subdomain.
func (st *SearchTree) IsBot() bool {
	return !st.exhausted && len(st.path) == 0 && st.sub.IsBot()
}

// Depth returns the current path length.
func (st *SearchTree) Depth() int { return len(st.path) }

// Env exposes the underlying store's variable environment, used by BAB
// to build bound-posting formulas against the same name resolution the
// rest of the stack uses.
func (st *SearchTree) Env() *Env { return st.sub.Env() }

// InterpretTell dispatches search(...) to Split and everything else to
// the subdomain. It is an error to call this on an exhausted tree.
func (st *SearchTree) InterpretTell(f F, env *Env) (SearchTreeTell, error) {
	if st.exhausted {
		return SearchTreeTell{}, newInterpretError("SearchTree", "cannot interpret a tell against an exhausted search tree", f)
	}
	if f.IsESeq() && f.ESeqName() == "search" {
		strat, warn, err := st.split.InterpretTell(f, env)
		if err != nil {
			return SearchTreeTell{}, err
		}
		return SearchTreeTell{isSplit: true, splitStrategy: strat, Warning: warn}, nil
	}
	t, err := st.sub.InterpretTell(f, env)
	if err != nil {
		return SearchTreeTell{}, err
	}
	return SearchTreeTell{storeTell: t}, nil
}

// Tell narrows the current node with t. If the tree is Internal, t is
// also appended to the root-deferred queue so it reaches the root on
// the next backtrack (§5: root-deferred tells are applied atomically on
// backtrack, before replay).
func (st *SearchTree) Tell(t SearchTreeTell) bool {
	if st.exhausted {
		return false
	}
	var changed bool
	if t.isSplit {
		changed = st.split.Tell(t.splitStrategy)
	} else {
		changed = st.sub.Tell(t.storeTell)
	}
	if len(st.path) > 0 {
		if t.isSplit {
			st.rootDeferredSplit = append(st.rootDeferredSplit, t.splitStrategy)
		} else {
			st.rootDeferredSub = append(st.rootDeferredSub, t.storeTell)
		}
	}
	return changed
}

// SearchTreeSnapshot is the pair {sub-snapshot, split-snapshot}; valid
// only when taken in the Singleton state.
type SearchTreeSnapshot struct {
	store StoreSnapshot
	split SplitSnapshot
}

// Snapshot returns a rollback point. It is only valid in the Singleton
// state (ErrNotSingleton otherwise).
func (st *SearchTree) Snapshot() (SearchTreeSnapshot, error) {
	if st.exhausted || len(st.path) != 0 {
		return SearchTreeSnapshot{}, ErrNotSingleton
	}
	return SearchTreeSnapshot{store: st.sub.Snapshot(), split: st.split.Snapshot()}, nil
}

// Restore resets the tree to snap: clears the path and deferred queues
// and re-snapshots the new root.
func (st *SearchTree) Restore(snap SearchTreeSnapshot) {
	st.sub.Restore(snap.store)
	st.split.Restore(snap.split)
	st.path = nil
	st.rootDeferredSub = nil
	st.rootDeferredSplit = nil
	st.exhausted = false
	st.root = &rootSnapshot{store: st.sub.Snapshot(), split: st.split.Snapshot()}
}

// push appends branch to the path, taking the root snapshot first if we
// are leaving the root. Returns pruned == true for an empty branch.
func (st *SearchTree) push(b Branch) bool {
	if b.Size() == 0 {
		return true
	}
	if len(st.path) == 0 {
		st.root = &rootSnapshot{store: st.sub.Snapshot(), split: st.split.Snapshot()}
	}
	st.path = append(st.path, frame{branch: b})
	return false
}

func (st *SearchTree) applyChild(child any) {
	switch c := child.(type) {
	case StoreTell:
		st.sub.Tell(c)
	case StrategyType:
		st.split.Tell(c)
	}
}

// commitLeft applies the first child of the frame just pushed.
func (st *SearchTree) commitLeft() {
	top := &st.path[len(st.path)-1]
	child, err := top.branch.Next()
	if err != nil {
		return
	}
	st.applyChild(child)
}

// backtrack pops exhausted frames, then restores a/split to the root
// snapshot and applies any root-deferred tells (clearing the queues and
// re-snapshotting root), or marks the tree Empty if the path drained.
func (st *SearchTree) backtrack() {
	for len(st.path) > 0 && !st.path[len(st.path)-1].branch.HasNext() {
		st.path = st.path[:len(st.path)-1]
	}
	if len(st.path) > 0 {
		st.sub.Restore(st.root.store)
		st.split.Restore(st.root.split)
		st.tellRoot()
	} else {
		st.exhausted = true
	}
}

// tellRoot applies the root-deferred queues to the (just-restored) root
// and re-snapshots it. A no-op when both queues are empty.
func (st *SearchTree) tellRoot() {
	if len(st.rootDeferredSub) == 0 && len(st.rootDeferredSplit) == 0 {
		return
	}
	for _, t := range st.rootDeferredSub {
		st.sub.Tell(t)
	}
	for _, s := range st.rootDeferredSplit {
		st.split.Tell(s)
	}
	st.rootDeferredSub = nil
	st.rootDeferredSplit = nil
	st.root = &rootSnapshot{store: st.sub.Snapshot(), split: st.split.Snapshot()}
}

// commitRight advances the top frame's cursor and replays every frame's
// current child onto a, root to leaf.
func (st *SearchTree) commitRight() {
	if len(st.path) == 0 {
		return
	}
	top := &st.path[len(st.path)-1]
	if _, err := top.branch.Next(); err != nil {
		return
	}
	st.replay()
}

func (st *SearchTree) replay() {
	for i := range st.path {
		child, err := st.path[i].branch.Current()
		if err != nil {
			continue
		}
		st.applyChild(child)
	}
}

// pop implements the commit_left / backtrack+commit_right branch of refine.
func (st *SearchTree) pop(pruned bool) {
	if !pruned {
		st.commitLeft()
	} else {
		st.backtrack()
		st.commitRight()
	}
}

// Refine advances the traversal by exactly one node: split -> push ->
// pop -> (commit_left | backtrack+commit_right). It reports whether the
// tree made progress; it is a no-op returning false once Empty.
func (st *SearchTree) Refine() bool {
	if st.exhausted {
		return false
	}
	branch := st.split.Split()
	pruned := st.push(branch)
	st.pop(pruned)
	return true
}

// Project delegates to the subdomain in Empty (top(U)) or Singleton
// (a.project(x)) states; any Internal (multi-node) state is a contract
// violation, per the Non-goal on arbitrary projection from non-singleton
// states.
func (st *SearchTree) Project(x AVar) (Universe, error) {
	if st.exhausted {
		return Top(), nil
	}
	if len(st.path) == 0 {
		return st.sub.Project(x), nil
	}
	return Top(), ErrNotProjectable
}

// IsExtractable reports whether the current node is a concrete solution.
func (st *SearchTree) IsExtractable() bool {
	return !st.exhausted && st.sub.IsExtractable()
}

// Extract copies the current node's values into target if extractable.
// target is a plain Store (not another SearchTree): per §5, BAB's `best`
// is an independent Store copy, never a shared SearchTree.
func (st *SearchTree) Extract(target *Store) bool {
	if st.exhausted {
		return false
	}
	return st.sub.Extract(target)
}

// String implements fmt.Stringer.
func (st *SearchTree) String() string {
	if st.exhausted {
		return "SearchTree(top)"
	}
	return fmt.Sprintf("SearchTree(depth=%d, a=%s)", len(st.path), st.sub.String())
}
