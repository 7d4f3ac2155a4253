package ir

// Visitor has one method per instruction variant.
// Instr.Visit calls the method named for the instruction.
type Visitor interface {
	Copy(x *Copy)
	LabelInstr(x *LabelInstr)
	Jump(x *Jump)
	Call(x *Call)
	Return(x *Return)
	NonlocalReturn(x *NonlocalReturn)
}
