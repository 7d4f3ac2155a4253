package opt

import (
	"tlog.app/go/errors"

	"github.com/slowlang/dynir/compiler/ir"
)

// CloneInstrs clones every instruction of l with info.
// Instructions without a counterpart in the clone are dropped.
// The source list is not modified.
func CloneInstrs(l []ir.Instr, info ir.CloneInfo) ([]ir.Instr, error) {
	r := make([]ir.Instr, 0, len(l))

	for i, x := range l {
		y, err := x.Clone(info)
		if err != nil {
			return nil, errors.Wrap(err, "instr %d (%v)", i, x.Op())
		}

		if y == nil {
			continue
		}

		r = append(r, y)
	}

	return r, nil
}

// Duplicate appends a copy of s's body to itself with fresh labels,
// as a loop unroller does. Variables keep their names.
func Duplicate(s *ir.Scope) error {
	info := ir.NewSimpleCloneInfo()

	for _, x := range s.Instrs {
		if l, ok := x.(*ir.LabelInstr); ok {
			info.Labels[l.Label] = s.NewLabel()
		}
	}

	body, err := CloneInstrs(s.Instrs, info)
	if err != nil {
		return errors.Wrap(err, "scope %v", s.ID)
	}

	s.Instrs = append(s.Instrs[:len(s.Instrs):len(s.Instrs)], body...)

	return nil
}
