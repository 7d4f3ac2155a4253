package opt

import (
	"context"

	"nikand.dev/go/heap"
	"tlog.app/go/errors"
	"tlog.app/go/loc"
	"tlog.app/go/tlog"
	"tlog.app/go/tlog/tlwire"

	"github.com/slowlang/dynir/compiler/ir"
)

type (
	// Inliner splices small callees into their call sites.
	Inliner struct {
		MaxInstrs int
		MaxRounds int
	}

	site struct {
		host ir.ScopeID
		call *ir.Call
		size int
	}

	sites struct {
		heap.Heap[site]
	}
)

const (
	DefaultMaxInstrs = 64
	DefaultMaxRounds = 4
)

func NewInliner() *Inliner {
	return &Inliner{
		MaxInstrs: DefaultMaxInstrs,
		MaxRounds: DefaultMaxRounds,
	}
}

// Run inlines call sites round by round, smallest callee first,
// then recomputes scope flags. It returns the number of inlined calls.
func (in *Inliner) Run(ctx context.Context, u *ir.Unit) (n int, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "opt: inline", "unit", u.Name, "max_instrs", in.MaxInstrs)
	defer tr.Finish("err", &err, "inlined", &n)

	for round := 0; round < in.MaxRounds; round++ {
		q := in.collect(u)

		tr.V("inline_rounds").Printw("inline round", "round", round, "candidates", q.Len())

		if q.Len() == 0 {
			break
		}

		done := 0

		for q.Len() != 0 {
			c := q.Pop()

			if indexOf(u.Scope(c.host).Instrs, c.call) < 0 {
				continue
			}

			err = InlineCall(ctx, u, c.host, c.call)
			if err != nil {
				return n, errors.Wrap(err, "inline %v into %v", c.call.Target, c.host)
			}

			done++
		}

		n += done

		if done == 0 {
			break
		}
	}

	before := SnapshotFlags(u)

	ResetFlags(u)

	_, err = ComputeFlags(ctx, u)
	if err != nil {
		return n, errors.Wrap(err, "flags")
	}

	if ch := FlagsChanged(u, before); len(ch) != 0 {
		tr.Printw("scope flags changed", "scopes", ch)
	}

	return n, nil
}

func (in *Inliner) collect(u *ir.Unit) *sites {
	q := &sites{Heap: heap.Heap[site]{Less: sitesLess}}

	for _, s := range u.Scopes {
		for _, x := range s.Instrs {
			c, ok := x.(*ir.Call)
			if !ok {
				continue
			}

			callee := u.Scope(c.Target)

			if !CanInline(u, s.ID, c.Target) || len(callee.Instrs) > in.MaxInstrs {
				continue
			}

			q.Push(site{host: s.ID, call: c, size: len(callee.Instrs)})
		}
	}

	return q
}

func sitesLess(d []site, i, j int) bool {
	if d[i].size != d[j].size {
		return d[i].size < d[j].size
	}

	return d[i].host < d[j].host
}

// CanInline reports whether callee can be spliced into host.
// Recursive calls and callees defining closures are rejected,
// and so are closures reaching outer variables that would not be visible from the host.
func CanInline(u *ir.Unit, host, callee ir.ScopeID) bool {
	cs := u.Scope(callee)
	if cs == nil || u.Scope(host) == nil {
		return false
	}

	if u.IsScopeContainedBy(host, callee) {
		return false
	}

	for _, s := range u.Scopes {
		if s.Parent == callee {
			return false
		}
	}

	for _, x := range cs.Instrs {
		if c, ok := x.(*ir.Call); ok && c.Target == callee {
			return false
		}
	}

	if !cs.IsClosure() {
		return true
	}

	d, contained := u.Distance(callee, host)

	for _, x := range cs.Instrs {
		for _, o := range refs(x) {
			v, ok := o.(ir.LocalVariable)
			if !ok || v.Depth == 0 {
				continue
			}

			// must resolve in the host or outside of it
			if !contained || v.Depth < d {
				return false
			}
		}
	}

	return true
}

// InlineCall replaces call in host with the body of its target.
//
// Arguments are copied into the renamed parameters, the body is cloned,
// every return-derived step that no longer leaves the host is followed
// by a jump to a fresh exit label.
// The host's instruction list is replaced as a whole; the callee is untouched.
func InlineCall(ctx context.Context, u *ir.Unit, host ir.ScopeID, call *ir.Call) (err error) {
	hs := u.Scope(host)
	if hs == nil {
		return &ir.InternalError{Op: ir.OpCall, Reason: "unknown host " + host.String()}
	}

	idx := indexOf(hs.Instrs, call)
	if idx < 0 {
		return &ir.InternalError{Op: ir.OpCall, Reason: "call is not in host " + host.String()}
	}

	callee := u.Scope(call.Target)
	if callee == nil {
		return &ir.InternalError{Op: ir.OpCall, Reason: "unknown target " + call.Target.String()}
	}

	tlog.SpanFromContext(ctx).V("inline").Printw("inline call", "host", host, "callee", callee.ID, "kind", callee.Kind, "at", idx, "from", loc.Caller(1))

	info := ir.NewInlineCloneInfo(u, host, callee.ID, call.Result)
	if info.IsClosure {
		info.YieldResult = call.Result
	}

	exit := hs.NewLabel()

	out := make([]ir.Instr, 0, len(hs.Instrs)+len(callee.Instrs)+len(callee.Params)+2)
	out = append(out, hs.Instrs[:idx]...)

	for i, p := range callee.Params {
		var arg ir.Operand = ir.Nil{}
		if i < len(call.Args) {
			arg = call.Args[i]
		}

		out = append(out, ir.NewCopy(info.RenameVariable(p), arg))
	}

	for i, x := range callee.Instrs {
		y, err := x.Clone(info)
		if err != nil {
			return errors.Wrap(err, "clone instr %d of %v", i, callee.ID)
		}

		if y != nil {
			out = append(out, y)
		}

		if x.Op().IsReturn() && (y == nil || !y.Op().IsReturn()) {
			out = append(out, ir.NewJump(exit))
		}
	}

	out = append(out, ir.NewLabelInstr(exit))
	out = append(out, hs.Instrs[idx+1:]...)

	hs.Instrs = out

	return nil
}

// refs returns operands and result variables of x.
func refs(x ir.Instr) []ir.Operand {
	l := x.Operands()

	switch x := x.(type) {
	case *ir.Copy:
		l = append(l[:len(l):len(l)], x.Result)
	case *ir.Call:
		if x.Result != nil {
			l = append(l[:len(l):len(l)], x.Result)
		}
	}

	return l
}

func indexOf(l []ir.Instr, x ir.Instr) int {
	for i, y := range l {
		if y == x {
			return i
		}
	}

	return -1
}

func (s site) TlogAppend(b []byte) []byte {
	var e tlwire.Encoder

	b = e.AppendMap(b, 3)

	b = e.AppendKeyInt(b, "host", int(s.host))
	b = e.AppendKeyInt(b, "target", int(s.call.Target))
	b = e.AppendKeyInt(b, "size", s.size)

	return b
}
