package ir

import "github.com/nikandfor/hacked/hfmt"

type (
	ScopeID   int
	ScopeKind uint8
	Label     int

	// Scope is a node of the unit's scope tree.
	// Parent is a handle into the same Unit, not a pointer.
	Scope struct {
		ID     ScopeID
		Kind   ScopeKind
		Name   Symbol
		Parent ScopeID

		Params []Variable
		Flags  FlagSet
		Instrs []Instr

		nextTemp  int
		nextLabel int
	}

	// Unit is a compilation unit: an arena of scopes sharing one symbol table.
	// A unit is transformed by one goroutine at a time.
	Unit struct {
		Name    string
		Symbols *Symbols
		Scopes  []*Scope
	}
)

const (
	ScopeScript ScopeKind = iota + 1
	ScopeMethod
	ScopeClosure
)

const NoScope ScopeID = -1

func NewUnit(name string) *Unit {
	return &Unit{
		Name:    name,
		Symbols: NewSymbols(),
	}
}

func (k ScopeKind) Valid() bool { return k >= ScopeScript && k <= ScopeClosure }

func (k ScopeKind) String() string {
	switch k {
	case ScopeScript:
		return "script"
	case ScopeMethod:
		return "method"
	case ScopeClosure:
		return "closure"
	default:
		return "unknown"
	}
}

func (id ScopeID) String() string {
	return string(hfmt.Appendf(nil, "scope#%d", int(id)))
}

func (l Label) String() string {
	return string(hfmt.Appendf(nil, "L%d", int(l)))
}

// Scope returns the scope for id or nil if id is not in the unit.
func (u *Unit) Scope(id ScopeID) *Scope {
	if id < 0 || int(id) >= len(u.Scopes) {
		return nil
	}

	return u.Scopes[id]
}

func (u *Unit) addScope(kind ScopeKind, name Symbol, parent ScopeID) *Scope {
	s := &Scope{
		ID:     ScopeID(len(u.Scopes)),
		Kind:   kind,
		Name:   name,
		Parent: parent,
	}

	u.Scopes = append(u.Scopes, s)

	return s
}

// Distance returns the number of parent hops from inner up to outer.
// A scope is at distance 0 from itself.
func (u *Unit) Distance(inner, outer ScopeID) (int, bool) {
	d := 0

	for id := inner; id != NoScope; d++ {
		if id == outer {
			return d, true
		}

		s := u.Scope(id)
		if s == nil {
			break
		}

		id = s.Parent
	}

	return 0, false
}

// IsScopeContainedBy reports whether inner is outer or is lexically nested in it.
func (u *Unit) IsScopeContainedBy(inner, outer ScopeID) bool {
	_, ok := u.Distance(inner, outer)
	return ok
}

// NearestMethod returns the closest enclosing scope that is not a closure.
func (u *Unit) NearestMethod(id ScopeID) ScopeID {
	for id != NoScope {
		s := u.Scope(id)
		if s == nil {
			break
		}

		if s.Kind != ScopeClosure {
			return id
		}

		id = s.Parent
	}

	return NoScope
}

func (u *Unit) InstrCount() (n int) {
	for _, s := range u.Scopes {
		n += len(s.Instrs)
	}

	return n
}

func (s *Scope) IsClosure() bool { return s.Kind == ScopeClosure }

func (s *Scope) IsMethod() bool { return s.Kind == ScopeMethod }

func (s *Scope) NewTemp() TemporaryVariable {
	v := TemporaryVariable{ID: s.nextTemp}
	s.nextTemp++

	return v
}

func (s *Scope) NewLabel() Label {
	l := Label(s.nextLabel)
	s.nextLabel++

	return l
}
