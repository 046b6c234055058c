package logic

// Verdict is the outcome of evaluating a menu item condition.
type Verdict int

const (
	// Visible means the condition was empty or evaluated to true.
	Visible Verdict = iota
	// Hidden means the condition evaluated to false.
	Hidden
	// Errored means the condition could not be parsed or evaluated.
	// Filtering treats it like Hidden.
	Errored
)

// String returns the lower-case name of the verdict.
func (v Verdict) String() string {
	switch v {
	case Visible:
		return "visible"
	case Hidden:
		return "hidden"
	case Errored:
		return "errored"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler so verdicts serialize by name.
func (v Verdict) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}
