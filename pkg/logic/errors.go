package logic

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies why a condition produced an Errored verdict.
type Kind int

const (
	// KindNone is returned by KindOf for errors that did not come from this package.
	KindNone Kind = iota
	// ParseError means the condition is not syntactically valid.
	ParseError
	// EvaluationError covers undefined symbols, type mismatches and
	// failures raised by predicates.
	EvaluationError
	// ResourceExhaustion means the condition exceeded a length, depth,
	// step or time limit.
	ResourceExhaustion
)

func (k Kind) String() string {
	switch k {
	case ParseError:
		return "parse"
	case EvaluationError:
		return "evaluation"
	case ResourceExhaustion:
		return "exhausted"
	default:
		return "none"
	}
}

var (
	// ErrParse matches any *Error of kind ParseError.
	ErrParse = errors.New("logic: parse error")
	// ErrEvaluation matches any *Error of kind EvaluationError.
	ErrEvaluation = errors.New("logic: evaluation error")
	// ErrExhausted matches any *Error of kind ResourceExhaustion.
	ErrExhausted = errors.New("logic: resource budget exhausted")
)

// Error describes a failed condition. Pos is the byte offset in the
// condition where the problem was found, or -1 when not applicable.
type Error struct {
	Kind Kind
	Pos  int
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("logic: ")
	b.WriteString(e.Kind.String())
	b.WriteString(" error")
	if e.Pos >= 0 {
		fmt.Fprintf(&b, " at %d", e.Pos)
	}
	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap returns the underlying cause, typically a predicate error.
func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is the sentinel for e's kind.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrParse:
		return e.Kind == ParseError
	case ErrEvaluation:
		return e.Kind == EvaluationError
	case ErrExhausted:
		return e.Kind == ResourceExhaustion
	}
	return false
}

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var le *Error
	if errors.As(err, &le) {
		return le.Kind
	}
	return KindNone
}

func parseErr(pos int, format string, args ...any) *Error {
	return &Error{Kind: ParseError, Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

func evalErr(pos int, format string, args ...any) *Error {
	return &Error{Kind: EvaluationError, Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

func exhaustedErr(pos int, format string, args ...any) *Error {
	return &Error{Kind: ResourceExhaustion, Pos: pos, Msg: fmt.Sprintf(format, args...)}
}
