package ir

import (
	"strconv"

	"github.com/nikandfor/hacked/hfmt"
)

type (
	// Operand is an immutable value expression.
	// Operands are values: cloning an instruction never shares
	// mutable state with the original.
	Operand interface {
		CloneForInlining(info CloneInfo) Operand
		String() string

		operand()
	}

	Variable interface {
		Operand

		variable()
	}

	Fixnum int64
	Str    string
	Nil    struct{}
	Self   struct{}

	SymbolRef struct {
		Sym Symbol
	}

	// LocalVariable is a named variable Depth scopes out from its user.
	LocalVariable struct {
		Name  string
		Depth int
	}

	TemporaryVariable struct {
		ID int
	}
)

func (x Fixnum) CloneForInlining(CloneInfo) Operand    { return x }
func (x Str) CloneForInlining(CloneInfo) Operand       { return x }
func (x Nil) CloneForInlining(CloneInfo) Operand       { return x }
func (x Self) CloneForInlining(CloneInfo) Operand      { return x }
func (x SymbolRef) CloneForInlining(CloneInfo) Operand { return x }

func (x LocalVariable) CloneForInlining(info CloneInfo) Operand     { return info.Substitute(x) }
func (x TemporaryVariable) CloneForInlining(info CloneInfo) Operand { return info.Substitute(x) }

func (x Fixnum) String() string    { return strconv.FormatInt(int64(x), 10) }
func (x Str) String() string       { return strconv.Quote(string(x)) }
func (x Nil) String() string       { return "nil" }
func (x Self) String() string      { return "%self" }
func (x SymbolRef) String() string { return ":" + x.Sym.String() }

func (x LocalVariable) String() string {
	if x.Depth == 0 {
		return x.Name
	}

	return string(hfmt.Appendf(nil, "%s(%d)", x.Name, x.Depth))
}

func (x TemporaryVariable) String() string {
	return "%v_" + strconv.Itoa(x.ID)
}

func (Fixnum) operand()            {}
func (Str) operand()               {}
func (Nil) operand()               {}
func (Self) operand()              {}
func (SymbolRef) operand()         {}
func (LocalVariable) operand()     {}
func (TemporaryVariable) operand() {}

func (LocalVariable) variable()     {}
func (TemporaryVariable) variable() {}

func cloneOperands(l []Operand, info CloneInfo) []Operand {
	if l == nil {
		return nil
	}

	r := make([]Operand, len(l))

	for i, x := range l {
		r[i] = x.CloneForInlining(info)
	}

	return r
}
