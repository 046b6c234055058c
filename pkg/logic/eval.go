package logic

import (
	"cmp"
	"fmt"
	"time"
)

// state carries the per-evaluation budget; it is never shared between
// evaluations.
type state struct {
	ctx      Context
	steps    int
	maxSteps int
	deadline time.Time
}

// deadline checks are amortized over this many steps
const clockEvery = 64

func (s *state) step(pos int) error {
	s.steps++
	if s.maxSteps > 0 && s.steps > s.maxSteps {
		return exhaustedErr(pos, "evaluation exceeded %d steps", s.maxSteps)
	}
	if !s.deadline.IsZero() && s.steps%clockEvery == 0 && time.Now().After(s.deadline) {
		return exhaustedErr(pos, "evaluation exceeded its time budget")
	}
	return nil
}

type literalNode struct {
	value any
}

func (n *literalNode) eval(*state) (any, error) {
	return n.value, nil
}

type identNode struct {
	name string
	pos  int
}

func (n *identNode) eval(s *state) (any, error) {
	if err := s.step(n.pos); err != nil {
		return nil, err
	}
	if v, ok := s.ctx.value(n.name); ok {
		return normalize(v), nil
	}
	// bare predicate names are shorthand for a call without arguments
	if fn, ok := s.ctx.fn(n.name); ok {
		return invoke(n.name, n.pos, fn, nil)
	}
	return nil, evalErr(n.pos, "undefined symbol %q", n.name)
}

type callNode struct {
	name string
	args []node
	pos  int
}

func (n *callNode) eval(s *state) (any, error) {
	if err := s.step(n.pos); err != nil {
		return nil, err
	}
	fn, ok := s.ctx.fn(n.name)
	if !ok {
		// facts supplied as values may be called like predicates
		if len(n.args) == 0 {
			if v, ok := s.ctx.value(n.name); ok {
				return normalize(v), nil
			}
		}
		return nil, evalErr(n.pos, "undefined function %q", n.name)
	}
	args := make([]any, 0, len(n.args))
	for _, a := range n.args {
		v, err := a.eval(s)
		if err != nil {
			return nil, err
		}
		args = append(args, v)
	}
	return invoke(n.name, n.pos, fn, args)
}

func invoke(name string, pos int, fn Func, args []any) (out any, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = &Error{Kind: EvaluationError, Pos: pos, Msg: fmt.Sprintf("%s() panicked: %v", name, r)}
		}
	}()

	v, callErr := fn(args...)
	if callErr != nil {
		return nil, &Error{Kind: EvaluationError, Pos: pos, Msg: name + "()", Err: callErr}
	}
	return normalize(v), nil
}

type notNode struct {
	inner node
	pos   int
}

func (n *notNode) eval(s *state) (any, error) {
	if err := s.step(n.pos); err != nil {
		return nil, err
	}
	v, err := evalBool(s, n.inner, "not", n.pos)
	if err != nil {
		return nil, err
	}
	return !v, nil
}

type andNode struct {
	left, right node
	pos         int
}

func (n *andNode) eval(s *state) (any, error) {
	if err := s.step(n.pos); err != nil {
		return nil, err
	}
	ok, err := evalBool(s, n.left, "and", n.pos)
	if err != nil || !ok {
		return false, err
	}
	return evalBool(s, n.right, "and", n.pos)
}

type orNode struct {
	left, right node
	pos         int
}

func (n *orNode) eval(s *state) (any, error) {
	if err := s.step(n.pos); err != nil {
		return nil, err
	}
	ok, err := evalBool(s, n.left, "or", n.pos)
	if err != nil || ok {
		return ok, err
	}
	return evalBool(s, n.right, "or", n.pos)
}

func evalBool(s *state, n node, op string, pos int) (bool, error) {
	v, err := n.eval(s)
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	if !ok {
		return false, evalErr(pos, "operator %s expects bool, got %s", op, typeName(v))
	}
	return b, nil
}

type compareNode struct {
	op          tokenKind
	opText      string
	left, right node
	pos         int
}

func (n *compareNode) eval(s *state) (any, error) {
	if err := s.step(n.pos); err != nil {
		return nil, err
	}
	l, err := n.left.eval(s)
	if err != nil {
		return nil, err
	}
	r, err := n.right.eval(s)
	if err != nil {
		return nil, err
	}

	switch n.op {
	case tokEq, tokNeq:
		eq, ok := equal(l, r)
		if !ok {
			return nil, n.mismatch(l, r)
		}
		return eq == (n.op == tokEq), nil
	}

	var c int
	switch lv := l.(type) {
	case float64:
		rv, ok := r.(float64)
		if !ok {
			return nil, n.mismatch(l, r)
		}
		c = cmp.Compare(lv, rv)
	case string:
		rv, ok := r.(string)
		if !ok {
			return nil, n.mismatch(l, r)
		}
		c = cmp.Compare(lv, rv)
	default:
		return nil, n.mismatch(l, r)
	}

	switch n.op {
	case tokLt:
		return c < 0, nil
	case tokLte:
		return c <= 0, nil
	case tokGt:
		return c > 0, nil
	default:
		return c >= 0, nil
	}
}

func (n *compareNode) mismatch(l, r any) error {
	return evalErr(n.pos, "cannot compare %s %s %s", typeName(l), n.opText, typeName(r))
}

// equal reports whether l and r are equal; ok is false when the operand
// types cannot be compared.
func equal(l, r any) (eq, ok bool) {
	if l == nil || r == nil {
		return l == nil && r == nil, true
	}
	switch lv := l.(type) {
	case bool:
		rv, ok := r.(bool)
		return ok && lv == rv, ok
	case float64:
		rv, ok := r.(float64)
		return ok && lv == rv, ok
	case string:
		rv, ok := r.(string)
		return ok && lv == rv, ok
	}
	return false, false
}

// normalize folds Go numeric kinds into float64 so conditions see a single
// number type.
func normalize(v any) any {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int8:
		return float64(n)
	case int16:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case uint:
		return float64(n)
	case uint8:
		return float64(n)
	case uint16:
		return float64(n)
	case uint32:
		return float64(n)
	case uint64:
		return float64(n)
	case float32:
		return float64(n)
	case []byte:
		return string(n)
	}
	return v
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "bool"
	case float64:
		return "number"
	case string:
		return "string"
	default:
		return fmt.Sprintf("%T", v)
	}
}
