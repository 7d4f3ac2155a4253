package ir

import "tlog.app/go/tlog/tlwire"

type (
	// Encoder appends IR items to a byte buffer in tlwire format.
	// Every item is self-describing, so a stream can be skipped
	// and validated without knowing the instruction set.
	Encoder struct {
		tlwire.Encoder

		b []byte
	}
)

// Operand kinds are written as tlwire semantic tags in front of the payload.
const (
	operandFixnum = 64 + iota
	operandStr
	operandNil
	operandSelf
	operandSymbol
	operandLocal
	operandTemp
)

func NewEncoder(b []byte) *Encoder {
	return &Encoder{b: b}
}

func (e *Encoder) Bytes() []byte { return e.b }

func (e *Encoder) Reset() { e.b = e.b[:0] }

func (e *Encoder) EncodeInt(v int) {
	e.b = e.AppendInt(e.b, v)
}

func (e *Encoder) EncodeString(s string) {
	e.b = e.AppendString(e.b, s)
}

func (e *Encoder) EncodeLabel(l Label) { e.EncodeInt(int(l)) }

func (e *Encoder) EncodeScopeID(id ScopeID) { e.EncodeInt(int(id)) }

func (e *Encoder) EncodeOperation(op Operation) { e.EncodeInt(int(op)) }

// EncodeSymbol writes the symbol name. The zero Symbol is written as nil
// so it stays distinct from an interned empty name.
func (e *Encoder) EncodeSymbol(s Symbol) {
	if s.IsZero() {
		e.b = e.AppendNil(e.b)
		return
	}

	e.EncodeString(s.String())
}

func (e *Encoder) EncodeOperand(x Operand) {
	switch x := x.(type) {
	case Fixnum:
		e.b = e.AppendSemantic(e.b, operandFixnum)
		e.b = e.AppendInt64(e.b, int64(x))
	case Str:
		e.b = e.AppendSemantic(e.b, operandStr)
		e.b = e.AppendString(e.b, string(x))
	case Nil:
		e.b = e.AppendSemantic(e.b, operandNil)
		e.b = e.AppendNil(e.b)
	case Self:
		e.b = e.AppendSemantic(e.b, operandSelf)
		e.b = e.AppendNil(e.b)
	case SymbolRef:
		e.b = e.AppendSemantic(e.b, operandSymbol)
		e.EncodeSymbol(x.Sym)
	case LocalVariable:
		e.b = e.AppendSemantic(e.b, operandLocal)
		e.b = e.AppendArray(e.b, 2)
		e.b = e.AppendString(e.b, x.Name)
		e.b = e.AppendInt(e.b, x.Depth)
	case TemporaryVariable:
		e.b = e.AppendSemantic(e.b, operandTemp)
		e.b = e.AppendInt(e.b, x.ID)
	default:
		panic(&InternalError{Reason: "encode: unsupported operand type"})
	}
}

func (e *Encoder) EncodeOptionalVariable(v Variable) {
	if v == nil {
		e.b = e.AppendNil(e.b)
		return
	}

	e.EncodeOperand(v)
}

func (e *Encoder) EncodeOperands(l []Operand) {
	e.b = e.AppendArray(e.b, len(l))

	for _, x := range l {
		e.EncodeOperand(x)
	}
}

// EncodeInstr writes the operation followed by the instruction's own fields,
// framed so the decoder can check it consumed exactly what was written.
func (e *Encoder) EncodeInstr(x Instr) {
	e.b = e.AppendTag(e.b, tlwire.Array, -1)
	e.EncodeOperation(x.Op())
	x.Encode(e)
	e.b = e.AppendBreak(e.b)
}

func (e *Encoder) EncodeInstrs(l []Instr) {
	e.b = e.AppendArray(e.b, len(l))

	for _, x := range l {
		e.EncodeInstr(x)
	}
}
