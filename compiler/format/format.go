package format

import (
	"context"

	"github.com/nikandfor/hacked/hfmt"
	"tlog.app/go/errors"

	"github.com/slowlang/dynir/compiler/ir"
)

type (
	printer struct {
		b []byte
	}
)

func Format(ctx context.Context, b []byte, x any) ([]byte, error) {
	return format(ctx, b, x, 0)
}

func format(ctx context.Context, b []byte, x any, d int) ([]byte, error) {
	switch x := x.(type) {
	case *ir.Unit:
		return formatUnit(ctx, b, x, d)
	case ir.Instr:
		return Instr(b, x), nil
	default:
		return nil, errors.New("unsupported type: %T", x)
	}
}

func formatUnit(ctx context.Context, b []byte, u *ir.Unit, d int) (_ []byte, err error) {
	b = app(b, d, "unit %q\n", u.Name)

	for _, s := range u.Scopes {
		b = append(b, '\n')

		b, err = formatScope(ctx, b, u, s, d)
		if err != nil {
			return nil, errors.Wrap(err, "scope %v", s.ID)
		}
	}

	return b, nil
}

func formatScope(ctx context.Context, b []byte, u *ir.Unit, s *ir.Scope, d int) ([]byte, error) {
	b = app(b, d, "%v %v %v(", s.ID, s.Kind, s.Name)

	for i, p := range s.Params {
		if i != 0 {
			b = append(b, ", "...)
		}

		b = append(b, p.String()...)
	}

	b = append(b, ')')

	if s.Parent != ir.NoScope {
		b = app(b, 0, " in %v", s.Parent)
	}

	if s.Flags.Len() != 0 {
		b = app(b, 0, " %v", s.Flags)
	}

	b = append(b, " {\n"...)

	for i, x := range s.Instrs {
		if x == nil {
			return nil, errors.New("nil instruction at %d", i)
		}

		if x.Op() == ir.OpLabel {
			b = app(b, d, "")
		} else {
			b = app(b, d+1, "")
		}

		b = Instr(b, x)
		b = append(b, '\n')
	}

	b = app(b, d, "}\n")

	return b, nil
}

// Instr appends a one-line rendering of x.
func Instr(b []byte, x ir.Instr) []byte {
	p := printer{b: b}

	x.Visit(&p)

	return p.b
}

func (p *printer) Copy(x *ir.Copy) {
	p.b = app(p.b, 0, "%v = ", x.Result)
	p.generic(x)
}

func (p *printer) LabelInstr(x *ir.LabelInstr) {
	p.b = app(p.b, 0, "%v:", x.Label)
}

func (p *printer) Jump(x *ir.Jump) {
	p.generic(x)
}

func (p *printer) Call(x *ir.Call) {
	if x.Result != nil {
		p.b = app(p.b, 0, "%v = ", x.Result)
	}

	p.generic(x)
}

func (p *printer) Return(x *ir.Return) {
	p.generic(x)
}

func (p *printer) NonlocalReturn(x *ir.NonlocalReturn) {
	p.generic(x)
}

func (p *printer) generic(x ir.Instr) {
	p.b = append(p.b, x.Op().String()...)
	p.b = append(p.b, '(')

	for i, o := range x.Operands() {
		if i != 0 {
			p.b = append(p.b, ", "...)
		}

		p.b = append(p.b, o.String()...)
	}

	p.b = append(p.b, ')')

	if args := x.NonOperandArgs(); len(args) != 0 {
		p.b = append(p.b, " ["...)

		for i, a := range args {
			if i != 0 {
				p.b = append(p.b, ", "...)
			}

			p.b = append(p.b, a...)
		}

		p.b = append(p.b, ']')
	}
}

func app(b []byte, d int, f string, args ...any) []byte {
	const tabs = "\t\t\t\t\t\t\t\t\t\t\t\t\t\t\t"
	b = append(b, tabs[:d]...)
	b = hfmt.Appendf(b, f, args...)
	return b
}
