// Package logic evaluates menu item visibility conditions.
//
// A condition is a small boolean expression such as
//
//	is_logged_in() && (has_role("editor") || is_page("/drafts"))
//
// evaluated against a Context of named values and functions. The grammar
// supports literals (strings, numbers, true, false, null), identifiers,
// function calls, the comparisons == != < <= > >=, and the logical
// operators && || ! (or the keywords and, or, not). Nothing else can run.
//
// Every failure is contained: Evaluate reports Errored together with a
// *Error instead of panicking, and evaluation is bounded by Limits.
package logic

import (
	"fmt"
	"strings"
	"time"
)

const (
	// DefaultMaxLength is the longest condition accepted, in bytes.
	DefaultMaxLength = 4096

	// DefaultMaxDepth bounds nesting of parentheses and negations.
	DefaultMaxDepth = 64

	// DefaultMaxSteps bounds the number of evaluated nodes.
	DefaultMaxSteps = 10000

	// DefaultMaxDuration bounds wall time spent in one evaluation.
	DefaultMaxDuration = 50 * time.Millisecond
)

// Limits bounds the cost of compiling and evaluating a condition.
// Zero fields take the package defaults.
type Limits struct {
	MaxLength   int
	MaxDepth    int
	MaxSteps    int
	MaxDuration time.Duration
}

// DefaultLimits returns the limits used when none are configured.
func DefaultLimits() Limits {
	return Limits{
		MaxLength:   DefaultMaxLength,
		MaxDepth:    DefaultMaxDepth,
		MaxSteps:    DefaultMaxSteps,
		MaxDuration: DefaultMaxDuration,
	}
}

func (l Limits) withDefaults() Limits {
	d := DefaultLimits()
	if l.MaxLength <= 0 {
		l.MaxLength = d.MaxLength
	}
	if l.MaxDepth <= 0 {
		l.MaxDepth = d.MaxDepth
	}
	if l.MaxSteps <= 0 {
		l.MaxSteps = d.MaxSteps
	}
	if l.MaxDuration <= 0 {
		l.MaxDuration = d.MaxDuration
	}
	return l
}

// Program is a compiled condition. It is immutable and safe for
// concurrent use.
type Program struct {
	source string
	root   node
	limits Limits
}

// Compile parses condition under the given limits. A blank condition
// compiles to a program that always returns true.
func Compile(condition string, limits Limits) (*Program, error) {
	limits = limits.withDefaults()
	if len(condition) > limits.MaxLength {
		return nil, exhaustedErr(-1, "condition is %d bytes, limit is %d", len(condition), limits.MaxLength)
	}

	p := &Program{source: condition, limits: limits}
	if strings.TrimSpace(condition) == "" {
		p.root = &literalNode{value: true}
		return p, nil
	}

	root, err := parse(condition, limits.MaxDepth)
	if err != nil {
		return nil, err
	}
	p.root = root
	return p, nil
}

// Validate reports whether condition compiles under the default limits.
func Validate(condition string) error {
	_, err := Compile(condition, Limits{})
	return err
}

// String returns the source condition.
func (p *Program) String() string { return p.source }

// Eval runs the program against ctx. The result must be a bool.
func (p *Program) Eval(ctx Context) (bool, error) {
	s := &state{
		ctx:      ctx,
		maxSteps: p.limits.MaxSteps,
		deadline: time.Now().Add(p.limits.MaxDuration),
	}
	v, err := p.root.eval(s)
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	if !ok {
		return false, evalErr(-1, "condition must evaluate to bool, got %s", typeName(v))
	}
	return b, nil
}

// Compiler compiles a condition under some fixed limits. *Evaluator
// implements it.
type Compiler interface {
	Compile(condition string) (*Program, error)
}

// Evaluator turns conditions into verdicts. The zero value is not usable;
// construct with New. An Evaluator holds no per-request state and is safe
// for concurrent use.
type Evaluator struct {
	limits Limits
	cache  *Cache
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithLimits sets the compile and evaluation limits.
func WithLimits(l Limits) Option {
	return func(e *Evaluator) { e.limits = l.withDefaults() }
}

// WithCache shares compiled programs across evaluations. A cache must
// only be used by evaluators configured with the same limits.
func WithCache(c *Cache) Option {
	return func(e *Evaluator) { e.cache = c }
}

// New creates an Evaluator.
func New(opts ...Option) *Evaluator {
	e := &Evaluator{limits: DefaultLimits()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Limits returns the evaluator's effective limits.
func (e *Evaluator) Limits() Limits { return e.limits }

// Compile parses condition, consulting the cache when one is configured.
func (e *Evaluator) Compile(condition string) (*Program, error) {
	if e.cache == nil {
		return Compile(condition, e.limits)
	}
	return e.cache.get(condition, func() (*Program, error) {
		return Compile(condition, e.limits)
	})
}

// Evaluate returns the verdict for condition against ctx. The error is
// non-nil exactly when the verdict is Errored, and is always an *Error.
func (e *Evaluator) Evaluate(condition string, ctx Context) (v Verdict, err error) {
	if strings.TrimSpace(condition) == "" {
		return Visible, nil
	}

	defer func() {
		if r := recover(); r != nil {
			v = Errored
			err = &Error{Kind: EvaluationError, Pos: -1, Msg: fmt.Sprintf("internal failure: %v", r)}
		}
	}()

	prog, err := e.Compile(condition)
	if err != nil {
		return Errored, err
	}
	ok, err := prog.Eval(ctx)
	if err != nil {
		return Errored, err
	}
	if !ok {
		return Hidden, nil
	}
	return Visible, nil
}
