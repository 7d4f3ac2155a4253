package ir

type (
	returnBase struct {
		value Operand
	}

	// Return produces a value as the result of the innermost scope.
	Return struct {
		returnBase
	}

	// NonlocalReturn returns from the lexically enclosing method,
	// crossing one or more closure boundaries.
	// It only occurs inside closures.
	NonlocalReturn struct {
		returnBase

		// MethodName names the target method. It is a debugging aid only:
		// the target is determined by scope nesting.
		MethodName Symbol
	}
)

func (x *returnBase) ReturnValue() Operand { return x.value }

func (x *returnBase) Operands() []Operand { return []Operand{x.value} }

func (x *returnBase) Encode(e *Encoder) {
	e.EncodeOperand(x.value)
}

func newReturnBase(op Operation, v Operand) returnBase {
	if v == nil {
		panic(&InternalError{Op: op, Reason: "nil return value"})
	}

	return returnBase{value: v}
}

func NewReturn(v Operand) *Return {
	return &Return{returnBase: newReturnBase(OpReturn, v)}
}

func (x *Return) Op() Operation { return OpReturn }

func (x *Return) NonOperandArgs() []string { return nil }

func (x *Return) ComputeScopeFlags(*Scope) bool { return false }

// Clone under inlining turns the return into a copy to the call result.
// The inliner adds the jump to the exit.
func (x *Return) Clone(info CloneInfo) (Instr, error) {
	switch info := info.(type) {
	case *SimpleCloneInfo:
		return NewReturn(x.value.CloneForInlining(info)), nil
	case *InlineCloneInfo:
		v := info.ResultVariable()
		if v == nil {
			return nil, nil
		}

		return NewCopy(v, x.value.CloneForInlining(info)), nil
	default:
		return nil, unsupportedClone(x.Op(), info)
	}
}

func DecodeReturn(d *Decoder) (Instr, error) {
	v, err := d.DecodeOperand()
	if err != nil {
		return nil, err
	}

	return NewReturn(v), nil
}

func (x *Return) Visit(v Visitor) { v.Return(x) }

func NewNonlocalReturn(v Operand, methodName Symbol) *NonlocalReturn {
	return &NonlocalReturn{
		returnBase: newReturnBase(OpNonlocalReturn, v),
		MethodName: methodName,
	}
}

func (x *NonlocalReturn) Op() Operation { return OpNonlocalReturn }

func (x *NonlocalReturn) NonOperandArgs() []string {
	return []string{"name: " + x.MethodName.String()}
}

func (x *NonlocalReturn) ComputeScopeFlags(s *Scope) bool {
	return s.Flags.Add(HasNonlocalReturns)
}

// Clone rewrites the return for the clone context:
//
//	simple clone                       -> same non-local return
//	inline into a non-closure context  -> internal error
//	inline into the target method      -> plain return, nothing left to unwind
//	inline into another method         -> copy to the call result, dropped if there is none
//	inline into a closure              -> same non-local return
func (x *NonlocalReturn) Clone(info CloneInfo) (Instr, error) {
	switch info := info.(type) {
	case *SimpleCloneInfo:
		return NewNonlocalReturn(x.value.CloneForInlining(info), x.MethodName), nil
	case *InlineCloneInfo:
		if !info.IsClosure {
			return nil, &InternalError{Op: x.Op(), Reason: "non-local return outside a closure"}
		}

		if !info.HostIsMethod() {
			return NewNonlocalReturn(x.value.CloneForInlining(info), x.MethodName), nil
		}

		if info.InlinedReturnsToHost() {
			return NewReturn(x.value.CloneForInlining(info)), nil
		}

		if info.CallResult == nil {
			return nil, nil
		}

		return NewCopy(info.CallResult, x.value.CloneForInlining(info)), nil
	default:
		return nil, unsupportedClone(x.Op(), info)
	}
}

func (x *NonlocalReturn) Encode(e *Encoder) {
	x.returnBase.Encode(e)
	e.EncodeSymbol(x.MethodName)
}

func DecodeNonlocalReturn(d *Decoder) (Instr, error) {
	v, err := d.DecodeOperand()
	if err != nil {
		return nil, err
	}

	name, err := d.DecodeSymbol()
	if err != nil {
		return nil, err
	}

	return NewNonlocalReturn(v, name), nil
}

func (x *NonlocalReturn) Visit(v Visitor) { v.NonlocalReturn(x) }
