package ir

import (
	"github.com/nikandfor/hacked/hfmt"
	"tlog.app/go/tlog/tlwire"
)

type (
	// Decoder reads items written by Encoder.
	// Symbols are interned into the destination unit.
	// Malformed input yields *DecodeError, never a panic.
	Decoder struct {
		tlwire.LowDecoder

		u *Unit
		p []byte
		i int
	}
)

const breakByte = tlwire.Special | 31

func NewDecoder(u *Unit, p []byte) *Decoder {
	return &Decoder{u: u, p: p}
}

func (d *Decoder) Offset() int { return d.i }

func (d *Decoder) More() bool { return d.i < len(d.p) }

func (d *Decoder) errorf(f string, args ...any) error {
	return &DecodeError{Off: d.i, Reason: string(hfmt.Appendf(nil, f, args...))}
}

func (d *Decoder) guard(err *error) {
	p := recover()
	if p == nil {
		return
	}

	*err = d.errorf("truncated item")
}

// peek returns the tag of the next item without consuming it.
func (d *Decoder) peek() (tag byte, sub int64, next int, err error) {
	if d.i >= len(d.p) {
		return 0, 0, d.i, d.errorf("unexpected end of stream")
	}

	defer d.guard(&err)

	tag, sub, next = d.Tag(d.p, d.i)
	if next > len(d.p) {
		return 0, 0, d.i, d.errorf("truncated item header")
	}

	return tag, sub, next, nil
}

func (d *Decoder) isNil() bool {
	return d.i < len(d.p) && d.p[d.i] == tlwire.Special|tlwire.Nil
}

func (d *Decoder) isBreak() bool {
	return d.i < len(d.p) && d.p[d.i] == breakByte
}

func (d *Decoder) DecodeInt() (v int, err error) {
	tag, _, _, err := d.peek()
	if err != nil {
		return 0, err
	}

	if tag != tlwire.Int && tag != tlwire.Neg {
		return 0, d.errorf("expected integer, got tag %#x", tag)
	}

	defer d.guard(&err)

	x, i := d.Signed(d.p, d.i)
	d.i = i

	return int(x), nil
}

func (d *Decoder) decodeInt64() (v int64, err error) {
	tag, _, _, err := d.peek()
	if err != nil {
		return 0, err
	}

	if tag != tlwire.Int && tag != tlwire.Neg {
		return 0, d.errorf("expected integer, got tag %#x", tag)
	}

	defer d.guard(&err)

	v, d.i = d.Signed(d.p, d.i)

	return v, nil
}

func (d *Decoder) DecodeString() (s string, err error) {
	tag, sub, next, err := d.peek()
	if err != nil {
		return "", err
	}

	if tag != tlwire.String {
		return "", d.errorf("expected string, got tag %#x", tag)
	}

	if sub < 0 || next+int(sub) > len(d.p) {
		return "", d.errorf("truncated string")
	}

	defer d.guard(&err)

	v, i := d.Bytes(d.p, d.i)
	d.i = i

	return string(v), nil
}

func (d *Decoder) decodeNil() error {
	if !d.isNil() {
		return d.errorf("expected nil")
	}

	d.i++

	return nil
}

func (d *Decoder) decodeArray() (n int, err error) {
	tag, sub, next, err := d.peek()
	if err != nil {
		return 0, err
	}

	if tag != tlwire.Array {
		return 0, d.errorf("expected array, got tag %#x", tag)
	}

	d.i = next

	return int(sub), nil
}

func (d *Decoder) decodeBreak() error {
	if !d.isBreak() {
		return d.errorf("expected end of item")
	}

	d.i++

	return nil
}

func (d *Decoder) DecodeLabel() (Label, error) {
	v, err := d.DecodeInt()
	if err != nil {
		return 0, err
	}

	if v < 0 {
		return 0, d.errorf("negative label %d", v)
	}

	return Label(v), nil
}

func (d *Decoder) DecodeScopeID() (ScopeID, error) {
	v, err := d.DecodeInt()
	if err != nil {
		return 0, err
	}

	if v < int(NoScope) {
		return 0, d.errorf("bad scope id %d", v)
	}

	return ScopeID(v), nil
}

func (d *Decoder) DecodeSymbol() (Symbol, error) {
	if d.isNil() {
		d.i++
		return Symbol{}, nil
	}

	s, err := d.DecodeString()
	if err != nil {
		return Symbol{}, err
	}

	return d.u.Symbols.Intern(s), nil
}

func (d *Decoder) DecodeOperand() (x Operand, err error) {
	tag, sub, next, err := d.peek()
	if err != nil {
		return nil, err
	}

	if tag != tlwire.Semantic {
		return nil, d.errorf("expected operand, got tag %#x", tag)
	}

	st := d.i
	d.i = next

	switch sub {
	case operandFixnum:
		v, err := d.decodeInt64()
		if err != nil {
			return nil, err
		}

		return Fixnum(v), nil
	case operandStr:
		s, err := d.DecodeString()
		if err != nil {
			return nil, err
		}

		return Str(s), nil
	case operandNil:
		return Nil{}, d.decodeNil()
	case operandSelf:
		return Self{}, d.decodeNil()
	case operandSymbol:
		s, err := d.DecodeSymbol()
		if err != nil {
			return nil, err
		}

		return SymbolRef{Sym: s}, nil
	case operandLocal:
		n, err := d.decodeArray()
		if err != nil {
			return nil, err
		}

		if n != 2 {
			return nil, d.errorf("local variable: %d fields", n)
		}

		name, err := d.DecodeString()
		if err != nil {
			return nil, err
		}

		depth, err := d.DecodeInt()
		if err != nil {
			return nil, err
		}

		if depth < 0 {
			return nil, d.errorf("negative variable depth %d", depth)
		}

		return LocalVariable{Name: name, Depth: depth}, nil
	case operandTemp:
		id, err := d.DecodeInt()
		if err != nil {
			return nil, err
		}

		if id < 0 {
			return nil, d.errorf("negative temporary %d", id)
		}

		return TemporaryVariable{ID: id}, nil
	default:
		d.i = st

		return nil, d.errorf("unknown operand kind %d", sub)
	}
}

func (d *Decoder) DecodeVariable() (Variable, error) {
	st := d.i

	x, err := d.DecodeOperand()
	if err != nil {
		return nil, err
	}

	v, ok := x.(Variable)
	if !ok {
		d.i = st
		return nil, d.errorf("expected variable, got %v", x)
	}

	return v, nil
}

func (d *Decoder) DecodeOptionalVariable() (Variable, error) {
	if d.isNil() {
		d.i++
		return nil, nil
	}

	return d.DecodeVariable()
}

func (d *Decoder) DecodeOperands() ([]Operand, error) {
	n, err := d.decodeArray()
	if err != nil {
		return nil, err
	}

	if n < 0 || n > len(d.p)-d.i {
		return nil, d.errorf("bad operand count %d", n)
	}

	if n == 0 {
		return nil, nil
	}

	l := make([]Operand, n)

	for j := range l {
		l[j], err = d.DecodeOperand()
		if err != nil {
			return nil, err
		}
	}

	return l, nil
}

// DecodeInstr reads one instruction written by Encoder.EncodeInstr.
// The operation selects the variant decoder, which must consume
// exactly the fields the variant encoder wrote.
func (d *Decoder) DecodeInstr() (x Instr, err error) {
	n, err := d.decodeArray()
	if err != nil {
		return nil, err
	}

	if n != -1 {
		return nil, d.errorf("instruction frame: unexpected length %d", n)
	}

	opv, err := d.DecodeInt()
	if err != nil {
		return nil, err
	}

	op := Operation(opv)

	switch op {
	case OpCopy:
		x, err = DecodeCopy(d)
	case OpLabel:
		x, err = DecodeLabelInstr(d)
	case OpJump:
		x, err = DecodeJump(d)
	case OpCall:
		x, err = DecodeCall(d)
	case OpReturn:
		x, err = DecodeReturn(d)
	case OpNonlocalReturn:
		x, err = DecodeNonlocalReturn(d)
	default:
		return nil, d.errorf("unknown operation %d", opv)
	}

	if err != nil {
		return nil, err
	}

	if err = d.decodeBreak(); err != nil {
		return nil, err
	}

	if err = Validate(x); err != nil {
		return nil, d.errorf("%v", err)
	}

	return x, nil
}

func (d *Decoder) DecodeInstrs() ([]Instr, error) {
	n, err := d.decodeArray()
	if err != nil {
		return nil, err
	}

	if n < 0 || n > len(d.p)-d.i {
		return nil, d.errorf("bad instruction count %d", n)
	}

	l := make([]Instr, 0, n)

	for j := 0; j < n; j++ {
		x, err := d.DecodeInstr()
		if err != nil {
			return nil, err
		}

		l = append(l, x)
	}

	return l, nil
}
