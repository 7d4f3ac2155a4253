package ir

import (
	"github.com/nikandfor/hacked/hfmt"
	"tlog.app/go/errors"
)

type (
	// InternalError is a compiler defect: the IR was built or
	// transformed in a way no instruction is prepared for.
	// The compilation unit must be abandoned.
	InternalError struct {
		Op     Operation
		Reason string
	}

	// DecodeError means the persisted stream is truncated or corrupt.
	// It is recoverable by discarding the artifact and recompiling.
	DecodeError struct {
		Off    int
		Reason string
	}
)

var (
	ErrInternal = errors.New("internal compiler error")
	ErrCorrupt  = errors.New("corrupt ir stream")
)

func (e *InternalError) Error() string {
	if e.Op == 0 {
		return "internal compiler error: " + e.Reason
	}

	return "internal compiler error: " + e.Op.String() + ": " + e.Reason
}

func (e *InternalError) Is(target error) bool { return target == ErrInternal }

func (e *DecodeError) Error() string {
	return string(hfmt.Appendf(nil, "corrupt ir stream at offset %d: %s", e.Off, e.Reason))
}

func (e *DecodeError) Is(target error) bool { return target == ErrCorrupt }

func unsupportedClone(op Operation, info CloneInfo) error {
	return &InternalError{
		Op:     op,
		Reason: string(hfmt.Appendf(nil, "unsupported clone context %T", info)),
	}
}
