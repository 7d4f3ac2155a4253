package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"tlog.app/go/tlog/tlwire"
)

func roundTrip(t *testing.T, x Instr) Instr {
	t.Helper()

	e := NewEncoder(nil)
	e.EncodeInstr(x)

	u := NewUnit("decoded")
	d := NewDecoder(u, e.Bytes())

	y, err := d.DecodeInstr()
	require.NoError(t, err)
	assert.False(t, d.More(), "decoder must consume exactly what was written")

	return y
}

func TestInstrRoundTrip(t *testing.T) {
	u := NewUnit("test")
	foo := u.Symbols.Intern("foo")

	for _, x := range []Instr{
		NewCopy(LocalVariable{Name: "a"}, Fixnum(-42)),
		NewCopy(TemporaryVariable{ID: 3}, Str("hello")),
		NewCopy(LocalVariable{Name: "b", Depth: 2}, Self{}),
		NewLabelInstr(7),
		NewJump(300),
		NewCall(nil, 2),
		NewCall(TemporaryVariable{ID: 1}, 5, Fixnum(1), Nil{}, LocalVariable{Name: "x", Depth: 1}),
		NewReturn(Fixnum(1 << 40)),
		NewReturn(Nil{}),
	} {
		y := roundTrip(t, x)

		assert.Equal(t, x, y, "%v", x.Op())
	}

	y := roundTrip(t, NewCopy(TemporaryVariable{ID: 0}, SymbolRef{Sym: foo}))
	assert.Equal(t, ":foo", y.(*Copy).Source.String())
}

func TestSymbolRoundTrip(t *testing.T) {
	u := NewUnit("test")

	x := roundTrip(t, NewNonlocalReturn(Fixnum(1), Symbol{})).(*NonlocalReturn)
	assert.True(t, x.MethodName.IsZero())
	assert.Equal(t, Symbol{}, x.MethodName)

	y := roundTrip(t, NewNonlocalReturn(Fixnum(1), u.Symbols.Intern(""))).(*NonlocalReturn)
	assert.False(t, y.MethodName.IsZero(), "empty name is not the zero symbol")
	assert.Equal(t, "", y.MethodName.String())

	z := roundTrip(t, NewCopy(TemporaryVariable{ID: 0}, SymbolRef{})).(*Copy)
	assert.Equal(t, SymbolRef{}, z.Source)
}

func TestNonlocalReturnRoundTrip(t *testing.T) {
	u := NewUnit("test")

	for _, v := range []Operand{
		Fixnum(5),
		Str(""),
		LocalVariable{Name: "result", Depth: 1},
		TemporaryVariable{ID: 12},
	} {
		x := NewNonlocalReturn(v, u.Symbols.Intern("foo"))

		y := roundTrip(t, x)

		r, ok := y.(*NonlocalReturn)
		require.True(t, ok, "got %T", y)

		assert.Equal(t, OpNonlocalReturn, r.Op())
		assert.Equal(t, v, r.ReturnValue())
		assert.Equal(t, "foo", r.MethodName.String())
	}
}

func TestNonlocalReturnEncodingOrder(t *testing.T) {
	u := NewUnit("test")

	e := NewEncoder(nil)
	NewNonlocalReturn(Fixnum(5), u.Symbols.Intern("foo")).Encode(e)

	d := NewDecoder(u, e.Bytes())

	v, err := d.DecodeOperand()
	require.NoError(t, err)
	assert.Equal(t, Fixnum(5), v)

	s, err := d.DecodeSymbol()
	require.NoError(t, err)
	assert.Equal(t, u.Symbols.Intern("foo"), s)

	assert.False(t, d.More())
}

func TestDecodeTruncated(t *testing.T) {
	u := NewUnit("test")

	e := NewEncoder(nil)
	e.EncodeInstr(NewNonlocalReturn(Str("a long enough string value"), u.Symbols.Intern("method_name")))
	e.EncodeInstr(NewCall(TemporaryVariable{ID: 1}, 3, Fixnum(100000), LocalVariable{Name: "x"}))

	full := e.Bytes()

	for l := 0; l < len(full); l++ {
		d := NewDecoder(u, full[:l])

		_, err := d.DecodeInstr()
		if err == nil {
			_, err = d.DecodeInstr()
		}

		assert.ErrorIs(t, err, ErrCorrupt, "prefix %d", l)
		assert.NotErrorIs(t, err, ErrInternal, "prefix %d", l)
	}
}

func TestDecodeUnknownOperation(t *testing.T) {
	e := NewEncoder(nil)
	e.b = e.AppendTag(e.b, tlwire.Array, -1)
	e.EncodeInt(99)
	e.b = e.AppendBreak(e.b)

	_, err := NewDecoder(NewUnit(""), e.Bytes()).DecodeInstr()
	assert.ErrorIs(t, err, ErrCorrupt)

	var derr *DecodeError
	require.ErrorAs(t, err, &derr)
	assert.Contains(t, derr.Reason, "unknown operation 99")
}

func TestDecodeExtraFields(t *testing.T) {
	e := NewEncoder(nil)
	e.b = e.AppendTag(e.b, tlwire.Array, -1)
	e.EncodeOperation(OpReturn)
	e.EncodeOperand(Fixnum(1))
	e.EncodeOperand(Fixnum(2))
	e.b = e.AppendBreak(e.b)

	_, err := NewDecoder(NewUnit(""), e.Bytes()).DecodeInstr()
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestDecodeWrongOperandKind(t *testing.T) {
	e := NewEncoder(nil)
	e.b = e.AppendTag(e.b, tlwire.Array, -1)
	e.EncodeOperation(OpCopy)
	e.EncodeOperand(Fixnum(1))
	e.EncodeOperand(Fixnum(2))
	e.b = e.AppendBreak(e.b)

	_, err := NewDecoder(NewUnit(""), e.Bytes()).DecodeInstr()
	assert.ErrorIs(t, err, ErrCorrupt, "copy result must be a variable")

	e.Reset()
	e.b = e.AppendSemantic(e.b, 3)
	e.b = e.AppendInt(e.b, 1)

	_, err = NewDecoder(NewUnit(""), e.Bytes()).DecodeOperand()
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestUnitRoundTrip(t *testing.T) {
	ts := newTestScopes()

	mb := NewBuilder(ts.u, ts.m)
	a := mb.Param("a")
	r := mb.Temp()
	mb.Call(r, ts.c.ID, a)
	mb.Return(r)

	cb := NewBuilder(ts.u, ts.c)
	l := cb.NewLabel()
	cb.Mark(l)
	cb.NonlocalReturn(LocalVariable{Name: "a", Depth: 1})
	cb.Jump(l)

	ts.c.Flags.Add(HasNonlocalReturns)
	ts.m.Flags.Add(CanReceiveNonlocalReturns)
	ts.m.Flags.Add(HasCalls)

	data := EncodeUnit(nil, ts.u)

	u, err := DecodeUnit(data)
	require.NoError(t, err)

	assert.Equal(t, "test", u.Name)
	require.Len(t, u.Scopes, len(ts.u.Scopes))

	for i, s := range ts.u.Scopes {
		q := u.Scopes[i]

		assert.Equal(t, s.ID, q.ID)
		assert.Equal(t, s.Kind, q.Kind)
		assert.Equal(t, s.Name.String(), q.Name.String())
		assert.Equal(t, s.Parent, q.Parent)
		assert.Equal(t, s.Params, q.Params)
		assert.True(t, s.Flags.Equal(q.Flags), "%v %v", s.Flags, q.Flags)
		assert.Len(t, q.Instrs, len(s.Instrs))
	}

	assert.Equal(t, data, EncodeUnit(nil, u), "re-encoding is byte for byte")

	assert.Equal(t, ts.m.NewTemp(), u.Scopes[ts.m.ID].NewTemp(), "temp counter persisted")
	assert.Equal(t, ts.c.NewLabel(), u.Scopes[ts.c.ID].NewLabel(), "label counter persisted")
}

func TestDecodeUnitErrors(t *testing.T) {
	ts := newTestScopes()
	NewBuilder(ts.u, ts.c).NonlocalReturn(Fixnum(5))

	data := EncodeUnit(nil, ts.u)

	_, err := DecodeUnit(append(data[:len(data):len(data)], 0))
	assert.ErrorIs(t, err, ErrCorrupt, "trailing data")

	e := NewEncoder(nil)
	e.b = e.AppendArray(e.b, 3)
	e.EncodeInt(FormatVersion + 1)
	e.EncodeString("x")
	e.b = e.AppendArray(e.b, 0)

	_, err = DecodeUnit(e.Bytes())
	assert.ErrorIs(t, err, ErrCorrupt, "version")

	for l := 0; l < len(data); l++ {
		_, err = DecodeUnit(data[:l])
		assert.ErrorIs(t, err, ErrCorrupt, "prefix %d", l)
	}

	_, err = DecodeUnit([]byte("garbage that is not a unit"))
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestDecodeUnitCounters(t *testing.T) {
	for _, tc := range []struct {
		name  string
		setup func(ts *testScopes)
	}{
		{"negative temp counter", func(ts *testScopes) { ts.m.nextTemp = -13 }},
		{"negative label counter", func(ts *testScopes) { ts.c.nextLabel = -1 }},
		{"temp in use", func(ts *testScopes) {
			NewBuilder(ts.u, ts.m).Copy(TemporaryVariable{ID: 3}, Fixnum(1))
		}},
		{"temp operand in use", func(ts *testScopes) {
			ts.m.NewTemp()
			NewBuilder(ts.u, ts.m).Return(TemporaryVariable{ID: 1})
		}},
		{"call result in use", func(ts *testScopes) {
			NewBuilder(ts.u, ts.m).Call(TemporaryVariable{ID: 0}, ts.c.ID)
		}},
		{"label in use", func(ts *testScopes) {
			NewBuilder(ts.u, ts.c).Mark(0)
		}},
		{"jump target in use", func(ts *testScopes) {
			b := NewBuilder(ts.u, ts.c)
			b.NewLabel()
			b.Jump(1)
		}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			ts := newTestScopes()
			tc.setup(ts)

			_, err := DecodeUnit(EncodeUnit(nil, ts.u))
			assert.ErrorIs(t, err, ErrCorrupt)
		})
	}

	ts := newTestScopes()
	b := NewBuilder(ts.u, ts.m)
	b.Copy(b.Temp(), Fixnum(1))
	b.Mark(b.NewLabel())

	_, err := DecodeUnit(EncodeUnit(nil, ts.u))
	assert.NoError(t, err)
}
