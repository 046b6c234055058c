// Package store persists raw menu item conditions keyed by item ID.
//
// Conditions are stored verbatim. Setting an empty condition removes it,
// and a condition that does not compile is refused so a broken edit never
// replaces a working one.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/mchmarny/menulogic/pkg/logic"
	"github.com/mchmarny/menulogic/pkg/menu"
)

var (
	// ErrNotFound is returned by Get when an item has no stored condition.
	ErrNotFound = errors.New("store: condition not found")

	// ErrInvalidID is returned for blank item IDs.
	ErrInvalidID = errors.New("store: item id must not be empty")
)

// Store reads and writes item conditions.
type Store interface {
	Get(ctx context.Context, id string) (string, error)
	Set(ctx context.Context, id, condition string) error
	Delete(ctx context.Context, id string) error
	All(ctx context.Context) (map[string]string, error)
}

// Option configures a store.
type Option func(*options)

type options struct {
	compiler logic.Compiler
}

// WithCompiler validates writes with c, so the store refuses exactly what
// the serving evaluator would. Without it the default limits apply.
func WithCompiler(c logic.Compiler) Option {
	return func(o *options) {
		o.compiler = c
	}
}

func newOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// check validates a write and reports whether it should be a delete.
func (o options) check(id, condition string) (remove bool, err error) {
	if strings.TrimSpace(id) == "" {
		return false, ErrInvalidID
	}
	if strings.TrimSpace(condition) == "" {
		return true, nil
	}
	if o.compiler != nil {
		_, err = o.compiler.Compile(condition)
	} else {
		err = logic.Validate(condition)
	}
	if err != nil {
		return false, fmt.Errorf("store: refusing condition for item %s: %w", id, err)
	}
	return false, nil
}

// Overlay returns copies of items carrying the conditions held by s.
func Overlay(ctx context.Context, s Store, items []menu.Item) ([]menu.Item, error) {
	conds, err := s.All(ctx)
	if err != nil {
		return nil, err
	}
	return menu.WithConditions(items, conds), nil
}

// Memory is an in-process Store, safe for concurrent use.
type Memory struct {
	opts  options
	mu    sync.RWMutex
	conds map[string]string
}

// NewMemory returns an empty Memory store.
func NewMemory(opts ...Option) *Memory {
	return &Memory{opts: newOptions(opts), conds: make(map[string]string)}
}

func (m *Memory) Get(_ context.Context, id string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.conds[id]
	if !ok {
		return "", ErrNotFound
	}
	return c, nil
}

func (m *Memory) Set(ctx context.Context, id, condition string) error {
	remove, err := m.opts.check(id, condition)
	if err != nil {
		return err
	}
	if remove {
		return m.Delete(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conds[id] = condition
	return nil
}

func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.conds, id)
	return nil
}

func (m *Memory) All(context.Context) (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]string, len(m.conds))
	for k, v := range m.conds {
		out[k] = v
	}
	return out, nil
}

// Ready implements server.ReadinessChecker.
func (m *Memory) Ready(context.Context) error { return nil }
