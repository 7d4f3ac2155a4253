package ir

import (
	"strings"

	"github.com/slowlang/dynir/compiler/set"
)

type (
	// Flag is a property of a scope computed by the flags pass
	// and consumed by later passes.
	Flag int

	FlagSet struct {
		bits set.Bits[Flag]
	}
)

const (
	// HasNonlocalReturns marks a closure containing a return that
	// escapes to the enclosing method. The runtime needs an unwinding
	// marker for it.
	HasNonlocalReturns Flag = iota
	// CanReceiveNonlocalReturns marks scopes a non-local return may unwind through or land in.
	CanReceiveNonlocalReturns
	HasCalls

	numFlags
)

var flagNames = [numFlags]string{
	HasNonlocalReturns:        "HAS_NONLOCAL_RETURNS",
	CanReceiveNonlocalReturns: "CAN_RECEIVE_NONLOCAL_RETURNS",
	HasCalls:                  "HAS_CALLS",
}

func (f Flag) Valid() bool { return f >= 0 && f < numFlags }

func (f Flag) String() string {
	if !f.Valid() {
		return "UNKNOWN_FLAG"
	}

	return flagNames[f]
}

// Add sets f and reports whether it was not set before.
func (s *FlagSet) Add(f Flag) bool { return s.bits.Add(f) }

func (s FlagSet) Has(f Flag) bool { return s.bits.Has(f) }

func (s *FlagSet) Reset() { s.bits.Reset() }

func (s FlagSet) Len() int { return s.bits.Len() }

func (s FlagSet) Flags() []Flag { return s.bits.Keys() }

func (s FlagSet) Equal(x FlagSet) bool { return s.bits.Equal(x.bits) }

// Copy returns a snapshot unaffected by later changes to s.
func (s FlagSet) Copy() FlagSet { return FlagSet{bits: s.bits.Copy()} }

func (s FlagSet) String() string {
	var b strings.Builder

	b.WriteByte('[')

	for i, f := range s.Flags() {
		if i != 0 {
			b.WriteByte(' ')
		}

		b.WriteString(f.String())
	}

	b.WriteByte(']')

	return b.String()
}

func (s FlagSet) TlogAppend(b []byte) []byte {
	return s.bits.TlogAppend(b)
}
