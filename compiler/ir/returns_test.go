package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type (
	testScopes struct {
		u *Unit

		m, c, n, nc *Scope
	}

	unknownCloneInfo struct {
		SimpleCloneInfo
	}
)

// newTestScopes builds method m with closure c, and an unrelated
// method n with its own closure nc.
func newTestScopes() *testScopes {
	u := NewUnit("test")
	top := u.NewScript("main")

	m := u.NewMethod("foo", top.ID)
	c := u.NewClosure(m.ID)
	n := u.NewMethod("bar", top.ID)
	nc := u.NewClosure(n.ID)

	return &testScopes{u: u, m: m, c: c, n: n, nc: nc}
}

func TestReturnComputeScopeFlags(t *testing.T) {
	ts := newTestScopes()

	x := NewBuilder(ts.u, ts.m).Return(Fixnum(1))

	assert.False(t, x.ComputeScopeFlags(ts.m))
	assert.Equal(t, 0, ts.m.Flags.Len())
}

func TestNonlocalReturnComputeScopeFlags(t *testing.T) {
	ts := newTestScopes()

	x := NewBuilder(ts.u, ts.c).NonlocalReturn(Fixnum(1))

	assert.True(t, x.ComputeScopeFlags(ts.c))
	assert.True(t, ts.c.Flags.Has(HasNonlocalReturns))

	assert.False(t, x.ComputeScopeFlags(ts.c), "flag already present")
	assert.Equal(t, 1, ts.c.Flags.Len())
}

func TestNonlocalReturnMethodName(t *testing.T) {
	ts := newTestScopes()

	inner := ts.u.NewClosure(ts.c.ID)
	x := NewBuilder(ts.u, inner).NonlocalReturn(Nil{})

	assert.Equal(t, "foo", x.MethodName.String())
	assert.Equal(t, []string{"name: foo"}, x.NonOperandArgs())
	assert.Equal(t, OpNonlocalReturn, x.Op())
}

func TestNonlocalReturnOutsideClosurePanics(t *testing.T) {
	ts := newTestScopes()

	assert.Panics(t, func() {
		NewBuilder(ts.u, ts.m).NonlocalReturn(Fixnum(1))
	})
}

func TestNonlocalReturnSimpleClone(t *testing.T) {
	ts := newTestScopes()

	a := LocalVariable{Name: "a"}
	x := NewBuilder(ts.u, ts.c).NonlocalReturn(a)

	info := NewSimpleCloneInfo()
	info.Vars[a] = Fixnum(7)

	y, err := x.Clone(info)
	require.NoError(t, err)

	r, ok := y.(*NonlocalReturn)
	require.True(t, ok, "got %T", y)

	assert.NotSame(t, x, r)
	assert.Equal(t, OpNonlocalReturn, r.Op())
	assert.Equal(t, x.MethodName, r.MethodName)
	assert.Equal(t, Fixnum(7), r.ReturnValue())
	assert.Equal(t, a, x.ReturnValue(), "source untouched")
}

func TestNonlocalReturnInlineIntoDefiningMethod(t *testing.T) {
	ts := newTestScopes()

	x := NewBuilder(ts.u, ts.c).NonlocalReturn(Fixnum(5))

	info := NewInlineCloneInfo(ts.u, ts.m.ID, ts.c.ID, TemporaryVariable{ID: 0})

	y, err := x.Clone(info)
	require.NoError(t, err)

	r, ok := y.(*Return)
	require.True(t, ok, "got %T", y)
	assert.Equal(t, Fixnum(5), r.ReturnValue())
}

func TestNonlocalReturnInlineNestedClosureIntoDefiningMethod(t *testing.T) {
	ts := newTestScopes()

	inner := ts.u.NewClosure(ts.c.ID)
	x := NewBuilder(ts.u, inner).NonlocalReturn(LocalVariable{Name: "a", Depth: 2})

	y, err := x.Clone(NewInlineCloneInfo(ts.u, ts.m.ID, inner.ID, nil))
	require.NoError(t, err)

	r, ok := y.(*Return)
	require.True(t, ok, "got %T", y)
	assert.Equal(t, LocalVariable{Name: "a"}, r.ReturnValue(), "rebased onto the host")
}

func TestNonlocalReturnInlineIntoOtherMethod(t *testing.T) {
	ts := newTestScopes()

	x := NewBuilder(ts.u, ts.c).NonlocalReturn(Fixnum(5))
	res := ts.n.NewTemp()

	y, err := x.Clone(NewInlineCloneInfo(ts.u, ts.n.ID, ts.c.ID, res))
	require.NoError(t, err)

	cp, ok := y.(*Copy)
	require.True(t, ok, "got %T", y)
	assert.Equal(t, res, cp.Result)
	assert.Equal(t, Fixnum(5), cp.Source)
}

func TestNonlocalReturnInlineIntoOtherMethodDiscarded(t *testing.T) {
	ts := newTestScopes()

	x := NewBuilder(ts.u, ts.c).NonlocalReturn(Fixnum(5))

	y, err := x.Clone(NewInlineCloneInfo(ts.u, ts.n.ID, ts.c.ID, nil))
	require.NoError(t, err)
	assert.Nil(t, y)
}

func TestNonlocalReturnInlineIntoClosure(t *testing.T) {
	ts := newTestScopes()

	v := LocalVariable{Name: "v"}
	x := NewBuilder(ts.u, ts.c).NonlocalReturn(v)

	info := NewInlineCloneInfo(ts.u, ts.nc.ID, ts.c.ID, nil)

	y, err := x.Clone(info)
	require.NoError(t, err)

	r, ok := y.(*NonlocalReturn)
	require.True(t, ok, "got %T", y)
	assert.Equal(t, "foo", r.MethodName.String())
	assert.Equal(t, TemporaryVariable{ID: 0}, r.ReturnValue(), "closure local renamed into host")

	y2, err := x.Clone(info)
	require.NoError(t, err)
	assert.Equal(t, r.ReturnValue(), y2.(*NonlocalReturn).ReturnValue(), "renaming is stable")
}

func TestNonlocalReturnInlineIntoEnclosingOtherMethod(t *testing.T) {
	u := NewUnit("test")
	outer := u.NewMethod("outer", NoScope)
	inner := u.NewMethod("inner", outer.ID)
	c := u.NewClosure(inner.ID)

	x := NewBuilder(u, c).NonlocalReturn(Fixnum(5))
	assert.Equal(t, "inner", x.MethodName.String())

	res := outer.NewTemp()

	y, err := x.Clone(NewInlineCloneInfo(u, outer.ID, c.ID, res))
	require.NoError(t, err)
	assert.Equal(t, NewCopy(res, Fixnum(5)), y, "returns from inner, not from outer")

	y, err = x.Clone(NewInlineCloneInfo(u, outer.ID, c.ID, nil))
	require.NoError(t, err)
	assert.Nil(t, y)

	y, err = x.Clone(NewInlineCloneInfo(u, inner.ID, c.ID, res))
	require.NoError(t, err)
	assert.Equal(t, NewReturn(Fixnum(5)), y)
}

func TestNonlocalReturnInlineIntoScript(t *testing.T) {
	ts := newTestScopes()

	x := NewBuilder(ts.u, ts.c).NonlocalReturn(Fixnum(5))

	y, err := x.Clone(NewInlineCloneInfo(ts.u, 0, ts.c.ID, TemporaryVariable{ID: 0}))
	require.NoError(t, err)
	assert.Equal(t, NewNonlocalReturn(Fixnum(5), x.MethodName), y)
}

func TestNonlocalReturnInlineNotClosure(t *testing.T) {
	ts := newTestScopes()

	x := NewBuilder(ts.u, ts.c).NonlocalReturn(Fixnum(5))

	info := NewInlineCloneInfo(ts.u, ts.m.ID, ts.c.ID, nil)
	info.IsClosure = false

	y, err := x.Clone(info)
	assert.Nil(t, y)
	assert.ErrorIs(t, err, ErrInternal)
	assert.NotErrorIs(t, err, ErrCorrupt)
}

func TestNonlocalReturnUnsupportedCloneInfo(t *testing.T) {
	ts := newTestScopes()

	x := NewBuilder(ts.u, ts.c).NonlocalReturn(Fixnum(5))

	y, err := x.Clone(&unknownCloneInfo{})
	assert.Nil(t, y)
	assert.ErrorIs(t, err, ErrInternal)
}

func TestReturnClone(t *testing.T) {
	ts := newTestScopes()

	a := LocalVariable{Name: "a"}
	x := NewReturn(a)

	y, err := x.Clone(&SimpleCloneInfo{Vars: map[Variable]Operand{a: Str("s")}})
	require.NoError(t, err)
	assert.Equal(t, NewReturn(Str("s")), y)

	res := ts.n.NewTemp()

	y, err = x.Clone(NewInlineCloneInfo(ts.u, ts.n.ID, ts.m.ID, res))
	require.NoError(t, err)

	cp, ok := y.(*Copy)
	require.True(t, ok, "got %T", y)
	assert.Equal(t, res, cp.Result)
	assert.IsType(t, TemporaryVariable{}, cp.Source)

	y, err = x.Clone(NewInlineCloneInfo(ts.u, ts.n.ID, ts.m.ID, nil))
	require.NoError(t, err)
	assert.Nil(t, y)

	_, err = x.Clone(&unknownCloneInfo{})
	assert.ErrorIs(t, err, ErrInternal)
}

func TestReturnCloneClosureYield(t *testing.T) {
	ts := newTestScopes()

	x := NewReturn(Fixnum(3))

	info := NewInlineCloneInfo(ts.u, ts.m.ID, ts.c.ID, TemporaryVariable{ID: 10})
	info.YieldResult = TemporaryVariable{ID: 11}

	y, err := x.Clone(info)
	require.NoError(t, err)
	assert.Equal(t, NewCopy(TemporaryVariable{ID: 11}, Fixnum(3)), y)
}

func TestReturnScenario(t *testing.T) {
	ts := newTestScopes()

	x := NewBuilder(ts.u, ts.c).NonlocalReturn(Fixnum(5))
	assert.Equal(t, "foo", x.MethodName.String())

	y, err := x.Clone(NewInlineCloneInfo(ts.u, ts.m.ID, ts.c.ID, nil))
	require.NoError(t, err)
	assert.Equal(t, NewReturn(Fixnum(5)), y)

	r := ts.n.NewTemp()

	y, err = x.Clone(NewInlineCloneInfo(ts.u, ts.n.ID, ts.c.ID, r))
	require.NoError(t, err)
	assert.Equal(t, NewCopy(r, Fixnum(5)), y)

	y, err = x.Clone(NewInlineCloneInfo(ts.u, ts.n.ID, ts.c.ID, nil))
	require.NoError(t, err)
	assert.Nil(t, y)
}
