package ir

import "github.com/nikandfor/hacked/hfmt"

type (
	// Operation identifies the kind of an instruction.
	// It never changes for an instruction's lifetime.
	Operation uint8

	OperationInfo struct {
		Name  string
		Arity int // number of operands, -1 means variable
	}
)

const (
	_ Operation = iota

	OpCopy
	OpLabel
	OpJump
	OpCall
	OpReturn
	OpNonlocalReturn

	numOperations
)

var operations = [numOperations]OperationInfo{
	OpCopy:           {"copy", 1},
	OpLabel:          {"label", 0},
	OpJump:           {"jump", 0},
	OpCall:           {"call", -1},
	OpReturn:         {"return", 1},
	OpNonlocalReturn: {"nonlocal_return", 1},
}

func (op Operation) Valid() bool {
	return op > 0 && op < numOperations
}

func (op Operation) Info() OperationInfo {
	if !op.Valid() {
		return OperationInfo{Name: string(hfmt.Appendf(nil, "op_%d", int(op))), Arity: -1}
	}

	return operations[op]
}

func (op Operation) String() string {
	return op.Info().Name
}

// IsReturn reports whether op transfers control out of its scope.
func (op Operation) IsReturn() bool {
	return op == OpReturn || op == OpNonlocalReturn
}

func (op Operation) FixedArity() bool {
	return op.Info().Arity >= 0
}
