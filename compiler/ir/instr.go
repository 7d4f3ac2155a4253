package ir

import "github.com/nikandfor/hacked/hfmt"

type (
	// Instr is one operation of a scope's instruction list.
	// Instructions are never modified by cloning: Clone allocates a new one
	// or returns nil if the instruction contributes nothing to the clone.
	Instr interface {
		Op() Operation
		Operands() []Operand

		// NonOperandArgs renders auxiliary fields for debug dumps.
		NonOperandArgs() []string

		// ComputeScopeFlags records the flags this instruction implies
		// on its owning scope. It returns true iff it added a flag
		// that was not set before.
		ComputeScopeFlags(s *Scope) bool

		Clone(info CloneInfo) (Instr, error)

		// Encode writes the instruction fields. The operation itself
		// is written by the enclosing list encoder.
		Encode(e *Encoder)

		Visit(v Visitor)
	}

	Copy struct {
		Result Variable
		Source Operand
	}

	LabelInstr struct {
		Label Label
	}

	Jump struct {
		Target Label
	}

	// Call invokes Target. Result is nil if the value is discarded.
	Call struct {
		Result Variable
		Target ScopeID
		Args   []Operand
	}
)

// Validate checks the operand count against the operation's declared arity.
func Validate(x Instr) error {
	op := x.Op()

	if !op.Valid() {
		return &InternalError{Reason: string(hfmt.Appendf(nil, "invalid operation %d", int(op)))}
	}

	ops := x.Operands()

	for _, o := range ops {
		if o == nil {
			return &InternalError{Op: op, Reason: "nil operand"}
		}
	}

	if a := op.Info().Arity; a >= 0 && len(ops) != a {
		return &InternalError{Op: op, Reason: string(hfmt.Appendf(nil, "%d operands, want %d", len(ops), a))}
	}

	return nil
}

func NewCopy(res Variable, src Operand) *Copy {
	if res == nil || src == nil {
		panic(&InternalError{Op: OpCopy, Reason: "nil operand"})
	}

	return &Copy{Result: res, Source: src}
}

func (x *Copy) Op() Operation                 { return OpCopy }
func (x *Copy) Operands() []Operand           { return []Operand{x.Source} }
func (x *Copy) NonOperandArgs() []string      { return nil }
func (x *Copy) ComputeScopeFlags(*Scope) bool { return false }

func (x *Copy) Clone(info CloneInfo) (Instr, error) {
	switch info.(type) {
	case *SimpleCloneInfo, *InlineCloneInfo:
		return NewCopy(info.RenameVariable(x.Result), x.Source.CloneForInlining(info)), nil
	default:
		return nil, unsupportedClone(x.Op(), info)
	}
}

func (x *Copy) Encode(e *Encoder) {
	e.EncodeOperand(x.Result)
	e.EncodeOperand(x.Source)
}

func DecodeCopy(d *Decoder) (Instr, error) {
	res, err := d.DecodeVariable()
	if err != nil {
		return nil, err
	}

	src, err := d.DecodeOperand()
	if err != nil {
		return nil, err
	}

	return NewCopy(res, src), nil
}

func (x *Copy) Visit(v Visitor) { v.Copy(x) }

func NewLabelInstr(l Label) *LabelInstr { return &LabelInstr{Label: l} }

func (x *LabelInstr) Op() Operation                 { return OpLabel }
func (x *LabelInstr) Operands() []Operand           { return nil }
func (x *LabelInstr) NonOperandArgs() []string      { return []string{x.Label.String()} }
func (x *LabelInstr) ComputeScopeFlags(*Scope) bool { return false }

func (x *LabelInstr) Clone(info CloneInfo) (Instr, error) {
	switch info.(type) {
	case *SimpleCloneInfo, *InlineCloneInfo:
		return NewLabelInstr(info.RenameLabel(x.Label)), nil
	default:
		return nil, unsupportedClone(x.Op(), info)
	}
}

func (x *LabelInstr) Encode(e *Encoder) { e.EncodeLabel(x.Label) }

func DecodeLabelInstr(d *Decoder) (Instr, error) {
	l, err := d.DecodeLabel()
	if err != nil {
		return nil, err
	}

	return NewLabelInstr(l), nil
}

func (x *LabelInstr) Visit(v Visitor) { v.LabelInstr(x) }

func NewJump(l Label) *Jump { return &Jump{Target: l} }

func (x *Jump) Op() Operation                 { return OpJump }
func (x *Jump) Operands() []Operand           { return nil }
func (x *Jump) NonOperandArgs() []string      { return []string{x.Target.String()} }
func (x *Jump) ComputeScopeFlags(*Scope) bool { return false }

func (x *Jump) Clone(info CloneInfo) (Instr, error) {
	switch info.(type) {
	case *SimpleCloneInfo, *InlineCloneInfo:
		return NewJump(info.RenameLabel(x.Target)), nil
	default:
		return nil, unsupportedClone(x.Op(), info)
	}
}

func (x *Jump) Encode(e *Encoder) { e.EncodeLabel(x.Target) }

func DecodeJump(d *Decoder) (Instr, error) {
	l, err := d.DecodeLabel()
	if err != nil {
		return nil, err
	}

	return NewJump(l), nil
}

func (x *Jump) Visit(v Visitor) { v.Jump(x) }

func NewCall(res Variable, target ScopeID, args ...Operand) *Call {
	for _, a := range args {
		if a == nil {
			panic(&InternalError{Op: OpCall, Reason: "nil argument"})
		}
	}

	return &Call{Result: res, Target: target, Args: args}
}

func (x *Call) Op() Operation       { return OpCall }
func (x *Call) Operands() []Operand { return x.Args }

func (x *Call) NonOperandArgs() []string {
	return []string{"target: " + x.Target.String()}
}

func (x *Call) ComputeScopeFlags(s *Scope) bool {
	return s.Flags.Add(HasCalls)
}

func (x *Call) Clone(info CloneInfo) (Instr, error) {
	switch info.(type) {
	case *SimpleCloneInfo, *InlineCloneInfo:
	default:
		return nil, unsupportedClone(x.Op(), info)
	}

	var res Variable
	if x.Result != nil {
		res = info.RenameVariable(x.Result)
	}

	return NewCall(res, x.Target, cloneOperands(x.Args, info)...), nil
}

func (x *Call) Encode(e *Encoder) {
	e.EncodeOptionalVariable(x.Result)
	e.EncodeScopeID(x.Target)
	e.EncodeOperands(x.Args)
}

func DecodeCall(d *Decoder) (Instr, error) {
	res, err := d.DecodeOptionalVariable()
	if err != nil {
		return nil, err
	}

	target, err := d.DecodeScopeID()
	if err != nil {
		return nil, err
	}

	args, err := d.DecodeOperands()
	if err != nil {
		return nil, err
	}

	return NewCall(res, target, args...), nil
}

func (x *Call) Visit(v Visitor) { v.Call(x) }
