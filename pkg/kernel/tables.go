package kernel

import (
	"context"
	"fmt"
	"math/bits"
	"sync/atomic"

	"github.com/gitrdm/latkernel/internal/parallel"
)

// rowBitset is a word-packed set of row indices, the same packing
// discipline domain.go's BitSetDomain uses for value sets, specialised
// here to track which rows of a table have been eliminated. Once set, a
// bit never clears: elimination is monotone.
type rowBitset struct {
	words []uint64
	n     int
}

func newRowBitset(n int) rowBitset {
	return rowBitset{words: make([]uint64, (n+63)/64), n: n}
}

// Set and Test use atomic word access so concurrent lrefine/crefine
// calls dispatched by FixedPointParallel never lose or tear a bit.
func (b *rowBitset) Set(i int) {
	addr := &b.words[i/64]
	mask := uint64(1) << uint(i%64)
	for {
		old := atomic.LoadUint64(addr)
		if old&mask != 0 || atomic.CompareAndSwapUint64(addr, old, old|mask) {
			return
		}
	}
}

func (b rowBitset) Test(i int) bool { return atomic.LoadUint64(&b.words[i/64])&(1<<uint(i%64)) != 0 }

// Count returns the number of set bits.
func (b rowBitset) Count() int {
	c := 0
	for _, w := range b.words {
		c += bits.OnesCount64(w)
	}
	return c
}

// tableData is one registered table: an ordered list of header variables
// (the columns) and, for each row, a tell universe and an ask universe
// per column. tell and ask coincide for the plain integer-tuple rows
// AddTable builds, but are kept as separate slices (rather than one
// shared slice) because addTableCells accepts them independently —
// a richer caller could register a row whose ask requirement is looser
// than what it tells, exactly the dual interpretation spec.md's design
// note insists on keeping distinct.
type tableData struct {
	headers  []AVar
	tellRows [][]Universe
	askRows  [][]Universe
}

// TablesTell is Tables' tell-delta: a whole new table, parsed out of an
// or(and(atom, ...), ...) formula by InterpretTell.
type TablesTell struct {
	headers  []AVar
	tellRows [][]Universe
	askRows  [][]Universe
}

// Tables is the extensional (OR-of-AND) constraint domain: each
// registered table restricts its header variables to one of a finite
// list of row tuples. Ported from lala/table.hpp; eliminated_rows,
// crefine and lrefine are its row-elimination GAC algorithm, generalized
// here from table.hpp's generic universe_type to this kernel's Universe
// interval type.
type Tables struct {
	sub *Store

	tables     []tableData
	eliminated []rowBitset

	// crefineTableIdx/crefineColIdx give Refine's indexable dispatch a
	// flat, explicitly-paired column list: crefine operation i narrows
	// column crefineColIdx[i] of table crefineTableIdx[i]. table.hpp
	// instead recovers the column via arithmetic against a single
	// crefine_to_table slice; two parallel slices are simpler to reason
	// about in Go and avoid relying on modular arithmetic over table
	// boundaries that only makes sense in the templated original.
	crefineTableIdx []int
	crefineColIdx   []int

	// tableToLrefine[t] is the cumulative number of lrefine operations
	// (rows * columns) contributed by tables[0:t]; tableToLrefine has
	// len(tables)+1 entries; the last is the grand total.
	tableToLrefine []int
}

// NewTables builds an empty Tables domain over sub.
func NewTables(sub *Store) *Tables {
	return &Tables{sub: sub, tableToLrefine: []int{0}}
}

// AddTable registers a table directly from concrete integer tuples: rows
// is a slice of rows, each exactly len(headers) wide. Both the tell and
// ask universe of each cell are the singleton containing that value.
func (t *Tables) AddTable(headers []AVar, rows [][]int) error {
	if len(headers) == 0 {
		return fmt.Errorf("Tables.AddTable: headers cannot be empty")
	}
	if len(rows) == 0 {
		return fmt.Errorf("Tables.AddTable: rows cannot be empty")
	}
	tellRows := make([][]Universe, len(rows))
	askRows := make([][]Universe, len(rows))
	for r, row := range rows {
		if len(row) != len(headers) {
			return fmt.Errorf("Tables.AddTable: row %d has %d values, want %d", r, len(row), len(headers))
		}
		tellRows[r] = make([]Universe, len(row))
		askRows[r] = make([]Universe, len(row))
		for c, v := range row {
			tellRows[r][c] = Singleton(v)
			askRows[r][c] = Singleton(v)
		}
	}
	return t.addTableCells(headers, tellRows, askRows)
}

func (t *Tables) addTableCells(headers []AVar, tellRows, askRows [][]Universe) error {
	hcopy := make([]AVar, len(headers))
	copy(hcopy, headers)
	tIdx := len(t.tables)
	t.tables = append(t.tables, tableData{headers: hcopy, tellRows: tellRows, askRows: askRows})
	t.eliminated = append(t.eliminated, newRowBitset(len(tellRows)))
	for c := range headers {
		t.crefineTableIdx = append(t.crefineTableIdx, tIdx)
		t.crefineColIdx = append(t.crefineColIdx, c)
	}
	cellCount := len(tellRows) * len(headers)
	t.tableToLrefine = append(t.tableToLrefine, t.tableToLrefine[len(t.tableToLrefine)-1]+cellCount)
	return nil
}

// InterpretTell recognises or(and(atom, ...), ...), where every row's
// atoms compare the same ordered list of variables to constants, and
// returns the TablesTell that would register it as a new table.
func (t *Tables) InterpretTell(f F, env *Env) (TablesTell, error) {
	if !f.IsSeq() || f.SeqOp() != OpOr {
		return TablesTell{}, newInterpretError("Tables", "expected or(and(...), ...)", f)
	}
	rows := f.Args()
	if len(rows) == 0 {
		return TablesTell{}, newInterpretError("Tables", "or(...) must have at least one row", f)
	}
	var headers []AVar
	tellRows := make([][]Universe, 0, len(rows))
	askRows := make([][]Universe, 0, len(rows))
	for _, row := range rows {
		if !row.IsSeq() || row.SeqOp() != OpAnd {
			return TablesTell{}, newInterpretError("Tables", "each table row must be and(atom, ...)", f)
		}
		atoms := row.Args()
		if len(headers) > 0 && len(atoms) != len(headers) {
			return TablesTell{}, newInterpretError("Tables", "every row must have the same number of columns", f)
		}
		rowTell := make([]Universe, len(atoms))
		rowAsk := make([]Universe, len(atoms))
		for i, atom := range atoms {
			if !atom.IsSeq() || len(atom.Args()) != 2 {
				return TablesTell{}, newInterpretError("Tables", "each table atom must be a binary comparison", f)
			}
			x, k, swapped, ok := splitVarConst(atom.Args()[0], atom.Args()[1], env)
			if !ok {
				return TablesTell{}, newInterpretError("Tables", "table atoms must compare a variable to a constant", f)
			}
			op := atom.SeqOp()
			if swapped {
				op = mirrorOp(op)
			}
			u, err := universeForComparison(op, k)
			if err != nil {
				return TablesTell{}, newInterpretError("Tables", err.Error(), f)
			}
			if len(headers) <= i {
				headers = append(headers, x)
			} else if !headers[i].Equal(x) {
				return TablesTell{}, newInterpretError("Tables", "all rows must reference the same columns in the same order", f)
			}
			rowTell[i] = u
			rowAsk[i] = u
		}
		tellRows = append(tellRows, rowTell)
		askRows = append(askRows, rowAsk)
	}
	return TablesTell{headers: headers, tellRows: tellRows, askRows: askRows}, nil
}

// Tell registers tt as a new table. It reports true unless tt is the
// zero value (no headers), which Tell treats as a no-op.
func (t *Tables) Tell(tt TablesTell) bool {
	if len(tt.headers) == 0 {
		return false
	}
	t.addTableCells(tt.headers, tt.tellRows, tt.askRows)
	return true
}

// crefine narrows column col of table tableIdx to the envelope of every
// surviving row's tell cell in that column, dtell'd onto the store. This
// mirrors table.hpp's crefine, which accumulates via dtell (the dual
// lattice's tell): in this kernel's primal-interval terms that dual
// accumulation is exactly Join, since the surviving rows' candidate
// values must be soundly over-approximated, not intersected, before
// being handed to Store.Tell (which itself performs the real
// narrowing meet).
func (t *Tables) crefine(tableIdx, col int) (bool, error) {
	td := &t.tables[tableIdx]
	elim := t.eliminated[tableIdx]
	u := Top()
	for r := range td.tellRows {
		if elim.Test(r) {
			continue
		}
		u = u.Join(td.tellRows[r][col])
	}
	return t.sub.Tell(StoreTell{X: td.headers[col], U: u}), nil
}

// lrefine eliminates row in table tableIdx when its ask cell for col is
// disjoint from the column's current domain — Meet(ask, current).IsTop()
// — i.e. the row can no longer be satisfied. Eliminated rows never
// reactivate, per table.hpp's monotone eliminated_rows.
func (t *Tables) lrefine(tableIdx, row, col int) (bool, error) {
	elim := &t.eliminated[tableIdx]
	if elim.Test(row) {
		return false, nil
	}
	td := &t.tables[tableIdx]
	cur := t.sub.Project(td.headers[col])
	if td.askRows[row][col].Meet(cur).IsTop() {
		elim.Set(row)
		return true, nil
	}
	return false, nil
}

// NumRefinements returns the total number of indexable refinement steps:
// one crefine per (table, column) pair, followed by one lrefine per
// (table, row, column) cell.
func (t *Tables) NumRefinements() int {
	return len(t.crefineTableIdx) + t.tableToLrefine[len(t.tableToLrefine)-1]
}

// Refine runs refinement step i, dispatching to crefine or lrefine by
// index range, exactly as table.hpp's refine(i) does via
// crefine_to_table / table_to_lrefine.
func (t *Tables) Refine(i int) (bool, error) {
	nc := len(t.crefineTableIdx)
	if i < nc {
		return t.crefine(t.crefineTableIdx[i], t.crefineColIdx[i])
	}
	j := i - nc
	tIdx := 0
	for tIdx < len(t.tables)-1 && t.tableToLrefine[tIdx+1] <= j {
		tIdx++
	}
	local := j - t.tableToLrefine[tIdx]
	numCols := len(t.tables[tIdx].headers)
	row := local / numCols
	col := local % numCols
	return t.lrefine(tIdx, row, col)
}

// FixedPoint runs every crefine/lrefine step repeatedly until none
// reports a change or the underlying store becomes Top, the external
// fixed-point iterator spec.md treats as a collaborator, given a
// trivial concrete implementation here as it is for Store.
func (t *Tables) FixedPoint() error {
	for {
		changed := false
		for i := 0; i < t.NumRefinements(); i++ {
			c, err := t.Refine(i)
			if err != nil {
				return err
			}
			changed = changed || c
			if t.sub.IsTop() {
				return nil
			}
		}
		if !changed {
			return nil
		}
	}
}

// FixedPointParallel is the dispatched-across-workers counterpart to
// FixedPoint: each sweep submits every crefine/lrefine index to pool
// and waits for the whole sweep before checking convergence, instead
// of refining indices one at a time on the calling goroutine. It is the
// concrete realisation of spec.md's aside that "Tables's refinements
// are index-addressable and could be dispatched across workers" — the
// fixed-point *loop* stays sequential (each sweep must see the previous
// sweep's narrowing before deciding whether to run another), only the
// work *within* a sweep is parallelised.
func (t *Tables) FixedPointParallel(ctx context.Context, pool *parallel.WorkerPool) error {
	for {
		changed, err := pool.RefineAll(ctx, t)
		if err != nil {
			return err
		}
		if t.sub.IsTop() {
			return nil
		}
		if !changed {
			return nil
		}
	}
}

// IsBot reports whether the underlying store is bot (no table can make
// a bot store anything but bot; tables only narrow).
func (t *Tables) IsBot() bool { return t.sub.IsBot() }

// IsTop reports whether the underlying store is top, or any table has
// had every one of its rows eliminated (i.e. become unsatisfiable).
func (t *Tables) IsTop() bool {
	if t.sub.IsTop() {
		return true
	}
	for i := range t.tables {
		if t.eliminated[i].Count() == len(t.tables[i].tellRows) {
			return true
		}
	}
	return false
}

// IsExtractable reports whether, for every table, at least one
// surviving row is fully entailed by the current store — every column's
// current domain already satisfies that row's ask cell.
func (t *Tables) IsExtractable() bool {
	if t.sub.IsTop() {
		return false
	}
	for ti := range t.tables {
		td := &t.tables[ti]
		found := false
		for r := range td.tellRows {
			if t.eliminated[ti].Test(r) {
				continue
			}
			rowOK := true
			for c := range td.headers {
				if !t.sub.Project(td.headers[c]).Entails(td.askRows[r][c]) {
					rowOK = false
					break
				}
			}
			if rowOK {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Extract copies the underlying store into target, provided every
// table's entailment condition holds.
func (t *Tables) Extract(target *Store) bool {
	if !t.IsExtractable() {
		return false
	}
	return t.sub.Extract(target)
}

// Deinterpret reconstructs an or(and(...), ...) formula describing every
// surviving row of every table, omitting cells already entailed by the
// current store — a supplemented feature absent from the distilled
// spec, grounded on table.hpp's deinterpret, which exists for exactly
// this diagnostic purpose.
func (t *Tables) Deinterpret() F {
	var orArgs []F
	for ti := range t.tables {
		td := &t.tables[ti]
		for r := range td.tellRows {
			if t.eliminated[ti].Test(r) {
				continue
			}
			var andArgs []F
			for c := range td.headers {
				cur := t.sub.Project(td.headers[c])
				if cur.Entails(td.askRows[r][c]) {
					continue
				}
				andArgs = append(andArgs, Seq(OpEq, AVarF(td.headers[c]), td.askRows[r][c].Deinterpret()))
			}
			// A row with every cell already entailed still contributes a
			// (trivially true) disjunct and() — it is a live, satisfying
			// row, not one to be dropped from the reconstruction.
			orArgs = append(orArgs, Seq(OpAnd, andArgs...))
		}
	}
	return Seq(OpOr, orArgs...)
}

// NumTables reports how many tables have been registered.
func (t *Tables) NumTables() int { return len(t.tables) }

// String implements fmt.Stringer.
func (t *Tables) String() string {
	out := fmt.Sprintf("Tables(%d tables", len(t.tables))
	for i := range t.tables {
		out += fmt.Sprintf(", t%d: %d/%d rows live", i, len(t.tables[i].tellRows)-t.eliminated[i].Count(), len(t.tables[i].tellRows))
	}
	return out + ")"
}
