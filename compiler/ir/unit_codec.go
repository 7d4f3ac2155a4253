package ir

// FormatVersion is bumped whenever the persisted layout changes.
// Streams with another version are rejected as corrupt.
const FormatVersion = 1

// EncodeUnit appends the whole unit to b.
//
// Layout: array of version, unit name and scopes.
// Each scope is written as id, kind, name, parent, temp and label counters,
// params, flags and the instruction list.
func EncodeUnit(b []byte, u *Unit) []byte {
	e := NewEncoder(b)

	e.b = e.AppendArray(e.b, 3)
	e.EncodeInt(FormatVersion)
	e.EncodeString(u.Name)

	e.b = e.AppendArray(e.b, len(u.Scopes))

	for _, s := range u.Scopes {
		e.encodeScope(s)
	}

	return e.Bytes()
}

func (e *Encoder) encodeScope(s *Scope) {
	e.EncodeScopeID(s.ID)
	e.EncodeInt(int(s.Kind))
	e.EncodeSymbol(s.Name)
	e.EncodeScopeID(s.Parent)
	e.EncodeInt(s.nextTemp)
	e.EncodeInt(s.nextLabel)

	e.b = e.AppendArray(e.b, len(s.Params))
	for _, p := range s.Params {
		e.EncodeOperand(p)
	}

	flags := s.Flags.Flags()

	e.b = e.AppendArray(e.b, len(flags))
	for _, f := range flags {
		e.EncodeInt(int(f))
	}

	e.EncodeInstrs(s.Instrs)
}

// DecodeUnit reads a unit written by EncodeUnit.
// Any error is a *DecodeError and matches ErrCorrupt.
func DecodeUnit(p []byte) (*Unit, error) {
	u := NewUnit("")
	d := NewDecoder(u, p)

	n, err := d.decodeArray()
	if err != nil {
		return nil, err
	}

	if n != 3 {
		return nil, d.errorf("unit header: %d fields", n)
	}

	ver, err := d.DecodeInt()
	if err != nil {
		return nil, err
	}

	if ver != FormatVersion {
		return nil, d.errorf("format version %d, want %d", ver, FormatVersion)
	}

	u.Name, err = d.DecodeString()
	if err != nil {
		return nil, err
	}

	n, err = d.decodeArray()
	if err != nil {
		return nil, err
	}

	if n < 0 || n > len(p)-d.i {
		return nil, d.errorf("bad scope count %d", n)
	}

	for j := 0; j < n; j++ {
		s, err := d.decodeScope()
		if err != nil {
			return nil, err
		}

		if s.ID != ScopeID(j) {
			return nil, d.errorf("scope id %d at position %d", s.ID, j)
		}

		u.Scopes = append(u.Scopes, s)
	}

	for _, s := range u.Scopes {
		// parents are created before their children, which also rules out cycles
		if s.Parent != NoScope && (s.Parent >= s.ID || u.Scope(s.Parent) == nil) {
			return nil, d.errorf("scope %d: bad parent %d", s.ID, s.Parent)
		}
	}

	if d.More() {
		return nil, d.errorf("trailing data")
	}

	return u, nil
}

func (d *Decoder) decodeScope() (s *Scope, err error) {
	s = &Scope{}

	if s.ID, err = d.DecodeScopeID(); err != nil {
		return nil, err
	}

	kind, err := d.DecodeInt()
	if err != nil {
		return nil, err
	}

	s.Kind = ScopeKind(kind)
	if !s.Kind.Valid() {
		return nil, d.errorf("scope %d: bad kind %d", s.ID, kind)
	}

	if s.Name, err = d.DecodeSymbol(); err != nil {
		return nil, err
	}

	if s.Parent, err = d.DecodeScopeID(); err != nil {
		return nil, err
	}

	if s.nextTemp, err = d.DecodeInt(); err != nil {
		return nil, err
	}

	if s.nextLabel, err = d.DecodeInt(); err != nil {
		return nil, err
	}

	if s.nextTemp < 0 || s.nextLabel < 0 {
		return nil, d.errorf("scope %d: negative counter", s.ID)
	}

	n, err := d.decodeArray()
	if err != nil {
		return nil, err
	}

	if n < 0 || n > len(d.p)-d.i {
		return nil, d.errorf("scope %d: bad param count %d", s.ID, n)
	}

	for j := 0; j < n; j++ {
		v, err := d.DecodeVariable()
		if err != nil {
			return nil, err
		}

		s.Params = append(s.Params, v)
	}

	n, err = d.decodeArray()
	if err != nil {
		return nil, err
	}

	if n < 0 || n > len(d.p)-d.i {
		return nil, d.errorf("scope %d: bad flag count %d", s.ID, n)
	}

	for j := 0; j < n; j++ {
		f, err := d.DecodeInt()
		if err != nil {
			return nil, err
		}

		if !Flag(f).Valid() {
			return nil, d.errorf("scope %d: unknown flag %d", s.ID, f)
		}

		s.Flags.Add(Flag(f))
	}

	if s.Instrs, err = d.DecodeInstrs(); err != nil {
		return nil, err
	}

	temps, labels := usedCounters(s.Instrs)

	if s.nextTemp < temps {
		return nil, d.errorf("scope %d: temp counter %d, %d in use", s.ID, s.nextTemp, temps)
	}

	if s.nextLabel < labels {
		return nil, d.errorf("scope %d: label counter %d, %d in use", s.ID, s.nextLabel, labels)
	}

	return s, nil
}

// usedCounters returns the lowest temp and label counters
// that do not hand out anything l already uses.
func usedCounters(l []Instr) (temps, labels int) {
	temp := func(o Operand) {
		if v, ok := o.(TemporaryVariable); ok && v.ID >= temps {
			temps = v.ID + 1
		}
	}

	label := func(x Label) {
		if int(x) >= labels {
			labels = int(x) + 1
		}
	}

	for _, x := range l {
		for _, o := range x.Operands() {
			temp(o)
		}

		switch x := x.(type) {
		case *Copy:
			temp(x.Result)
		case *Call:
			if x.Result != nil {
				temp(x.Result)
			}
		case *LabelInstr:
			label(x.Label)
		case *Jump:
			label(x.Target)
		}
	}

	return temps, labels
}
