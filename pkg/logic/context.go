package logic

import (
	"strings"
)

// Func is a named predicate or accessor callable from a condition, such as
// is_logged_in() or has_role("editor"). Implementations must only read
// request state.
type Func func(args ...any) (any, error)

// Context is the read-only set of values and functions a condition may
// reference. Callers build a fresh Context for every render.
type Context struct {
	Values map[string]any
	Funcs  map[string]Func
}

// Const returns a Func that ignores its arguments and returns v.
func Const(v any) Func {
	return func(...any) (any, error) { return v, nil }
}

func (c Context) value(name string) (any, bool) {
	if len(c.Values) == 0 || name == "" {
		return nil, false
	}

	// dotted keys win over traversal, e.g. "query.page"
	if v, ok := c.Values[name]; ok {
		return v, true
	}

	var current any = c.Values
	for _, part := range strings.Split(name, ".") {
		if part == "" {
			return nil, false
		}
		switch typed := current.(type) {
		case map[string]any:
			next, ok := typed[part]
			if !ok {
				return nil, false
			}
			current = next
		case map[string]string:
			next, ok := typed[part]
			if !ok {
				return nil, false
			}
			current = next
		default:
			return nil, false
		}
	}
	return current, true
}

func (c Context) fn(name string) (Func, bool) {
	if len(c.Funcs) == 0 {
		return nil, false
	}
	f, ok := c.Funcs[name]
	return f, ok && f != nil
}
