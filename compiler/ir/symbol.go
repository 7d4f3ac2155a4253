package ir

import "tlog.app/go/tlog/tlwire"

type (
	// Symbol is an interned name.
	// Symbols from the same table compare equal with == iff their names are equal.
	Symbol struct {
		name *string
	}

	Symbols struct {
		m map[string]*string
	}
)

func NewSymbols() *Symbols {
	return &Symbols{m: make(map[string]*string)}
}

func (t *Symbols) Intern(name string) Symbol {
	if t.m == nil {
		t.m = make(map[string]*string)
	}

	if p, ok := t.m[name]; ok {
		return Symbol{name: p}
	}

	p := &name
	t.m[name] = p

	return Symbol{name: p}
}

func (t *Symbols) Len() int { return len(t.m) }

func (s Symbol) IsZero() bool { return s.name == nil }

func (s Symbol) String() string {
	if s.name == nil {
		return ""
	}

	return *s.name
}

func (s Symbol) TlogAppend(b []byte) []byte {
	var e tlwire.LowEncoder

	if s.name == nil {
		return e.AppendNil(b)
	}

	return e.AppendString(b, *s.name)
}
