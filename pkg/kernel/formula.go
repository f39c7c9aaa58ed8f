package kernel

import (
	"fmt"
	"strings"
)

// Op names the operators a Seq formula can carry.
type Op int

const (
	OpAnd Op = iota
	OpOr
	OpEq
	OpLt
	OpGt
	OpLeq
	OpGeq
	OpNeq
	OpMinimize
	OpMaximize
)

func (o Op) String() string {
	switch o {
	case OpAnd:
		return "and"
	case OpOr:
		return "or"
	case OpEq:
		return "="
	case OpLt:
		return "<"
	case OpGt:
		return ">"
	case OpLeq:
		return "<="
	case OpGeq:
		return ">="
	case OpNeq:
		return "!="
	case OpMinimize:
		return "minimize"
	case OpMaximize:
		return "maximize"
	default:
		return "?op"
	}
}

// tag discriminates the variants of F. F is a flat tagged variant rather
// than an interface-per-variant sum type (spec design note: avoid
// virtual dispatch), in contrast to the teacher's Term/Var/Atom/Pair
// interface hierarchy.
type tag int

const (
	tagLVar tag = iota
	tagAVar
	tagZ
	tagSeq
	tagESeq
)

// F is an immutable formula value: a logical variable reference, an
// abstract variable reference, an integer constant, an n-ary sequence
// tagged with an operator, or an extended sequence tagged with a name
// (e.g. "search(...)").
type F struct {
	t    tag
	name string // LVar name, or ESeq name
	avar AVar
	z    int
	op   Op
	args []F
}

// LVar builds a reference to a not-yet-resolved logical variable name.
func LVar(name string) F { return F{t: tagLVar, name: name} }

// AVarF builds a reference to an already-resolved abstract variable.
func AVarF(v AVar) F { return F{t: tagAVar, avar: v} }

// Z builds an integer constant formula.
func Z(v int) F { return F{t: tagZ, z: v} }

// Seq builds an n-ary sequence under operator op.
func Seq(op Op, args ...F) F { return F{t: tagSeq, op: op, args: args} }

// ESeq builds an extended (named) sequence, e.g. search(...).
func ESeq(name string, args ...F) F { return F{t: tagESeq, name: name, args: args} }

func (f F) IsLVar() bool { return f.t == tagLVar }
func (f F) IsAVar() bool { return f.t == tagAVar }
func (f F) IsZ() bool    { return f.t == tagZ }
func (f F) IsSeq() bool  { return f.t == tagSeq }
func (f F) IsESeq() bool { return f.t == tagESeq }

// LVarName returns the logical variable name; valid only when IsLVar.
func (f F) LVarName() string { return f.name }

// AVarValue returns the abstract variable; valid only when IsAVar.
func (f F) AVarValue() AVar { return f.avar }

// ZValue returns the integer constant; valid only when IsZ.
func (f F) ZValue() int { return f.z }

// SeqOp returns the operator; valid only when IsSeq.
func (f F) SeqOp() Op { return f.op }

// ESeqName returns the extended-sequence name; valid only when IsESeq.
func (f F) ESeqName() string { return f.name }

// Args returns the formula's children; valid for Seq and ESeq, nil
// otherwise.
func (f F) Args() []F { return f.args }

// NumVars reports how many LVar/AVar leaves appear transitively in f,
// used by Split.interpret_tell to reject non-constant strategy operands.
func (f F) NumVars() int {
	switch {
	case f.IsLVar(), f.IsAVar():
		return 1
	case f.IsSeq(), f.IsESeq():
		n := 0
		for _, a := range f.args {
			n += a.NumVars()
		}
		return n
	default:
		return 0
	}
}

// String implements fmt.Stringer.
func (f F) String() string {
	switch f.t {
	case tagLVar:
		return f.name
	case tagAVar:
		return f.avar.String()
	case tagZ:
		return fmt.Sprintf("%d", f.z)
	case tagSeq:
		parts := make([]string, len(f.args))
		for i, a := range f.args {
			parts[i] = a.String()
		}
		return fmt.Sprintf("%s(%s)", f.op, strings.Join(parts, ", "))
	case tagESeq:
		parts := make([]string, len(f.args))
		for i, a := range f.args {
			parts[i] = a.String()
		}
		return fmt.Sprintf("%s(%s)", f.name, strings.Join(parts, ", "))
	default:
		return "?F"
	}
}
