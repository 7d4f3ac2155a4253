package opt

import (
	"context"

	"tlog.app/go/tlog"

	"github.com/slowlang/dynir/compiler/ir"
)

// ComputeFlags runs every instruction's flag computation in program order
// and propagates CanReceiveNonlocalReturns outwards until nothing changes.
// It reports whether any scope gained a flag.
func ComputeFlags(ctx context.Context, u *ir.Unit) (changed bool, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "opt: compute flags", "unit", u.Name)
	defer tr.Finish("err", &err, "changed", &changed)

	for _, s := range u.Scopes {
		for _, x := range s.Instrs {
			if x.ComputeScopeFlags(s) {
				changed = true
			}
		}
	}

	for round := 0; ; round++ {
		more := false

		for _, s := range u.Scopes {
			if !s.IsClosure() {
				continue
			}

			if !s.Flags.Has(ir.HasNonlocalReturns) && !s.Flags.Has(ir.CanReceiveNonlocalReturns) {
				continue
			}

			if propagateReceive(u, s) {
				more = true
			}
		}

		if tr.If("flags_rounds") {
			tr.Printw("propagate round", "round", round, "more", more)
		}

		if !more {
			break
		}

		changed = true
	}

	if tr.If("dump_flags") {
		for _, s := range u.Scopes {
			tr.Printw("scope flags", "scope", s.ID, "name", s.Name, "flags", s.Flags)
		}
	}

	return changed, nil
}

// propagateReceive marks every scope a non-local return from s passes
// through, up to and including the nearest enclosing non-closure scope.
func propagateReceive(u *ir.Unit, s *ir.Scope) (changed bool) {
	for id := s.Parent; id != ir.NoScope; {
		p := u.Scope(id)
		if p == nil {
			break
		}

		if p.Flags.Add(ir.CanReceiveNonlocalReturns) {
			changed = true
		}

		if !p.IsClosure() {
			break
		}

		id = p.Parent
	}

	return changed
}

// ResetFlags clears the flags of every scope before a fresh flags pass.
func ResetFlags(u *ir.Unit) {
	for _, s := range u.Scopes {
		s.Flags.Reset()
	}
}

// SnapshotFlags copies the flags of every scope.
func SnapshotFlags(u *ir.Unit) []ir.FlagSet {
	l := make([]ir.FlagSet, len(u.Scopes))

	for i, s := range u.Scopes {
		l[i] = s.Flags.Copy()
	}

	return l
}

// FlagsChanged lists scopes whose flags differ from the snapshot.
// Scopes added after the snapshot are listed too.
func FlagsChanged(u *ir.Unit, before []ir.FlagSet) (l []ir.ScopeID) {
	for i, s := range u.Scopes {
		if i >= len(before) || !s.Flags.Equal(before[i]) {
			l = append(l, s.ID)
		}
	}

	return l
}
