package ir

import (
	"github.com/nikandfor/hacked/hfmt"
	"tlog.app/go/loc"
	"tlog.app/go/tlog"
)

type (
	// Builder appends instructions to one scope.
	// Misuse is a programming error and panics with *InternalError.
	Builder struct {
		u *Unit
		s *Scope
	}
)

func (u *Unit) NewScript(name string) *Scope {
	return u.newScope(ScopeScript, u.Symbols.Intern(name), NoScope)
}

func (u *Unit) NewMethod(name string, parent ScopeID) *Scope {
	return u.newScope(ScopeMethod, u.Symbols.Intern(name), parent)
}

func (u *Unit) NewClosure(parent ScopeID) *Scope {
	p := u.Scope(parent)
	if p == nil {
		panic(&InternalError{Reason: "closure without a parent scope"})
	}

	name := hfmt.Appendf(nil, "%s_CLOSURE_%d", p.Name, len(u.Scopes))

	return u.newScope(ScopeClosure, u.Symbols.Intern(string(name)), parent)
}

func (u *Unit) newScope(kind ScopeKind, name Symbol, parent ScopeID) *Scope {
	if parent != NoScope && u.Scope(parent) == nil {
		panic(&InternalError{Reason: "unknown parent scope " + parent.String()})
	}

	s := u.addScope(kind, name, parent)

	tlog.V("scope").Printw("new scope", "id", s.ID, "kind", kind, "name", name, "parent", parent, "from", loc.Callers(2, 2))

	return s
}

func NewBuilder(u *Unit, s *Scope) *Builder {
	return &Builder{u: u, s: s}
}

func (b *Builder) Scope() *Scope { return b.s }

func (b *Builder) Add(x Instr) Instr {
	if err := Validate(x); err != nil {
		panic(err)
	}

	b.s.Instrs = append(b.s.Instrs, x)

	return x
}

func (b *Builder) Symbol(name string) Symbol { return b.u.Symbols.Intern(name) }

func (b *Builder) Temp() TemporaryVariable { return b.s.NewTemp() }

func (b *Builder) Local(name string, depth int) LocalVariable {
	return LocalVariable{Name: name, Depth: depth}
}

// Param declares a positional parameter of the scope.
func (b *Builder) Param(name string) LocalVariable {
	v := LocalVariable{Name: name}
	b.s.Params = append(b.s.Params, v)

	return v
}

func (b *Builder) NewLabel() Label { return b.s.NewLabel() }

func (b *Builder) Mark(l Label) *LabelInstr {
	return b.Add(NewLabelInstr(l)).(*LabelInstr)
}

func (b *Builder) Jump(l Label) *Jump {
	return b.Add(NewJump(l)).(*Jump)
}

func (b *Builder) Copy(res Variable, src Operand) *Copy {
	return b.Add(NewCopy(res, src)).(*Copy)
}

func (b *Builder) Call(res Variable, target ScopeID, args ...Operand) *Call {
	if b.u.Scope(target) == nil {
		panic(&InternalError{Op: OpCall, Reason: "unknown target " + target.String()})
	}

	return b.Add(NewCall(res, target, args...)).(*Call)
}

func (b *Builder) Return(v Operand) *Return {
	return b.Add(NewReturn(v)).(*Return)
}

// NonlocalReturn returns v from the method enclosing the current closure.
func (b *Builder) NonlocalReturn(v Operand) *NonlocalReturn {
	if !b.s.IsClosure() {
		panic(&InternalError{Op: OpNonlocalReturn, Reason: "non-local return in " + b.s.Kind.String() + " " + b.s.Name.String()})
	}

	var name Symbol
	if m := b.u.Scope(b.u.NearestMethod(b.s.ID)); m != nil {
		name = m.Name
	}

	return b.Add(NewNonlocalReturn(v, name)).(*NonlocalReturn)
}
