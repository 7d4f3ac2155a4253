package ir

type (
	// CloneInfo describes why instructions are being cloned
	// and carries the substitution context.
	// The set of variants is closed: SimpleCloneInfo and InlineCloneInfo.
	CloneInfo interface {
		// Substitute returns the operand that replaces v in the clone.
		Substitute(v Variable) Operand
		// RenameVariable returns the variable that replaces v where a variable is required.
		RenameVariable(v Variable) Variable
		RenameLabel(l Label) Label

		cloneInfo()
	}

	// SimpleCloneInfo duplicates instructions within the same scope,
	// as loop unrolling or ensure-body duplication do.
	// Unmapped variables and labels stay as they are.
	SimpleCloneInfo struct {
		Vars   map[Variable]Operand
		Labels map[Label]Label
	}

	// InlineCloneInfo splices the instructions of Inlined into Host.
	InlineCloneInfo struct {
		Unit    *Unit
		Host    ScopeID
		Inlined ScopeID

		IsClosure bool

		// CallResult receives the value of the inlined call. Nil if the value is discarded.
		CallResult Variable
		// YieldResult receives the value of an inlined closure body. Nil falls back to CallResult.
		YieldResult Variable

		vars   map[Variable]Variable
		labels map[Label]Label
	}
)

func NewSimpleCloneInfo() *SimpleCloneInfo {
	return &SimpleCloneInfo{
		Vars:   make(map[Variable]Operand),
		Labels: make(map[Label]Label),
	}
}

func (si *SimpleCloneInfo) Substitute(v Variable) Operand {
	if x, ok := si.Vars[v]; ok {
		return x
	}

	return v
}

func (si *SimpleCloneInfo) RenameVariable(v Variable) Variable {
	if x, ok := si.Vars[v].(Variable); ok {
		return x
	}

	return v
}

func (si *SimpleCloneInfo) RenameLabel(l Label) Label {
	if x, ok := si.Labels[l]; ok {
		return x
	}

	return l
}

func NewInlineCloneInfo(u *Unit, host, inlined ScopeID, callResult Variable) *InlineCloneInfo {
	ii := &InlineCloneInfo{
		Unit:       u,
		Host:       host,
		Inlined:    inlined,
		CallResult: callResult,
	}

	if s := u.Scope(inlined); s != nil {
		ii.IsClosure = s.IsClosure()
	}

	return ii
}

func (ii *InlineCloneInfo) HostScope() *Scope { return ii.Unit.Scope(ii.Host) }

func (ii *InlineCloneInfo) ScopeBeingInlined() *Scope { return ii.Unit.Scope(ii.Inlined) }

func (ii *InlineCloneInfo) HostIsMethod() bool {
	s := ii.HostScope()

	return s != nil && s.IsMethod()
}

// InlinedReturnsToHost reports whether the host is the method
// a non-local return of the inlined closure leaves.
func (ii *InlineCloneInfo) InlinedReturnsToHost() bool {
	return ii.Unit.NearestMethod(ii.Inlined) == ii.Host
}

// ResultVariable is where a plain return of the inlined body stores its value.
func (ii *InlineCloneInfo) ResultVariable() Variable {
	if ii.IsClosure && ii.YieldResult != nil {
		return ii.YieldResult
	}

	return ii.CallResult
}

func (ii *InlineCloneInfo) Substitute(v Variable) Operand {
	return ii.RenameVariable(v)
}

// RenameVariable maps variables of the inlined scope to host variables.
// Own locals and temporaries become fresh host temporaries, the same ones every time.
// Outer locals of a closure defined inside the host are re-based onto the host.
func (ii *InlineCloneInfo) RenameVariable(v Variable) Variable {
	if x, ok := ii.vars[v]; ok {
		return x
	}

	var r Variable

	switch v := v.(type) {
	case LocalVariable:
		if v.Depth != 0 {
			d, ok := ii.Unit.Distance(ii.Inlined, ii.Host)
			if !ok || v.Depth < d {
				return v
			}

			return LocalVariable{Name: v.Name, Depth: v.Depth - d}
		}

		r = ii.HostScope().NewTemp()
	case TemporaryVariable:
		r = ii.HostScope().NewTemp()
	default:
		return v
	}

	if ii.vars == nil {
		ii.vars = make(map[Variable]Variable)
	}

	ii.vars[v] = r

	return r
}

func (ii *InlineCloneInfo) RenameLabel(l Label) Label {
	if x, ok := ii.labels[l]; ok {
		return x
	}

	if ii.labels == nil {
		ii.labels = make(map[Label]Label)
	}

	r := ii.HostScope().NewLabel()
	ii.labels[l] = r

	return r
}

func (*SimpleCloneInfo) cloneInfo() {}
func (*InlineCloneInfo) cloneInfo() {}
