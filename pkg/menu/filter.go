package menu

import (
	"errors"
	"fmt"

	"github.com/mchmarny/menulogic/pkg/logic"
)

// ErrCycle is the cause reported for items whose parent chain loops back
// on itself and therefore never reaches the top level.
var ErrCycle = errors.New("menu: item is part of a parent cycle")

// VerdictFunc returns the verdict for a single item.
type VerdictFunc func(Item) (logic.Verdict, error)

// Report describes an item that was left out of the filtered menu.
type Report struct {
	ID    string `json:"id"`
	Title string `json:"title,omitempty"`

	// Verdict is the item's own verdict. Items removed only because an
	// ancestor was removed carry their own verdict too, usually Visible.
	Verdict logic.Verdict `json:"verdict"`

	// ByAncestor is the ID of the nearest ancestor removed by its own
	// verdict, if any.
	ByAncestor string `json:"by_ancestor,omitempty"`

	// Err is the cause of an Errored verdict.
	Err error `json:"-"`
}

// Message returns a human-readable description of the failure.
func (r Report) Message() string {
	if r.Err == nil {
		if r.ByAncestor != "" {
			return fmt.Sprintf("hidden by ancestor %q", r.ByAncestor)
		}
		return r.Verdict.String()
	}
	if r.Title != "" {
		return fmt.Sprintf("Error in %q menu logic: %v", r.Title, r.Err)
	}
	return fmt.Sprintf("Error in menu item %s logic: %v", r.ID, r.Err)
}

// Result is the output of Filter.
type Result struct {
	// Items are the surviving items in input order.
	Items []Item

	// Reports has one entry per removed item, in input order.
	Reports []Report
}

// Errors returns the reports of items whose verdict was Errored.
func (r Result) Errors() []Report {
	var out []Report
	for _, rep := range r.Reports {
		if rep.Verdict == logic.Errored {
			out = append(out, rep)
		}
	}
	return out
}

type resolution uint8

const (
	unresolved resolution = iota
	visiting
	kept
	removed
	cyclic
)

type pass struct {
	items    []Item
	self     []logic.Verdict
	errs     []error
	index    map[string]int
	state    []resolution
	ancestor []string
}

// Filter removes every item whose own verdict is not Visible, together with
// all of its descendants, and returns the survivors in input order.
//
// Items may appear in any order; a child listed before its parent is
// handled the same as one listed after it. A ParentID that names no item
// in the list is treated as top-level. When IDs repeat, children attach to
// the first item with that ID. Every item's verdict is computed exactly
// once, in input order, whether or not an ancestor is removed. The input
// slice and its items are not modified.
func Filter(items []Item, verdictOf VerdictFunc) Result {
	n := len(items)
	p := &pass{
		items:    items,
		self:     make([]logic.Verdict, n),
		errs:     make([]error, n),
		index:    make(map[string]int, n),
		state:    make([]resolution, n),
		ancestor: make([]string, n),
	}

	for i, item := range items {
		v, err := logic.Visible, error(nil)
		if verdictOf != nil {
			v, err = verdictOf(item)
		}
		if err != nil {
			v = logic.Errored
		}
		p.self[i], p.errs[i] = v, err
		if _, dup := p.index[item.ID]; !dup {
			p.index[item.ID] = i
		}
	}

	res := Result{Items: make([]Item, 0, n)}
	for i := range items {
		p.resolve(i)
		if p.state[i] == kept {
			res.Items = append(res.Items, items[i])
			continue
		}
		res.Reports = append(res.Reports, p.report(i))
	}
	return res
}

func (p *pass) parent(i int) (int, bool) {
	// parents missing from the list, "0" included, are top-level
	item := p.items[i]
	if item.ParentID == TopLevel {
		return 0, false
	}
	j, ok := p.index[item.ParentID]
	return j, ok
}

// resolve walks up from start until it reaches the top level, an already
// resolved item or a cycle, then settles every item on the path from the
// top down.
func (p *pass) resolve(start int) {
	var path []int
	top := -1
	for i := start; ; {
		if p.state[i] != unresolved {
			top = i
			break
		}
		p.state[i] = visiting
		path = append(path, i)
		j, ok := p.parent(i)
		if !ok {
			break
		}
		i = j
	}

	if top >= 0 && p.state[top] == visiting {
		at := 0
		for path[at] != top {
			at++
		}
		for _, c := range path[at:] {
			p.state[c] = cyclic
		}
		path = path[:at]
	}

	for k := len(path) - 1; k >= 0; k-- {
		c := path[k]
		j, hasParent := p.parent(c)
		if hasParent && p.state[j] != kept {
			p.ancestor[c] = p.blame(j)
		}
		switch {
		case p.self[c] != logic.Visible:
			p.state[c] = removed
		case hasParent && p.state[j] != kept:
			p.state[c] = removed
		default:
			p.state[c] = kept
		}
	}
}

// blame returns the ID of the nearest removed ancestor at or above j that
// was removed on its own account.
func (p *pass) blame(j int) string {
	if p.state[j] == cyclic || p.self[j] != logic.Visible || p.ancestor[j] == "" {
		return p.items[j].ID
	}
	return p.ancestor[j]
}

func (p *pass) report(i int) Report {
	r := Report{
		ID:         p.items[i].ID,
		Title:      p.items[i].Title,
		Verdict:    p.self[i],
		ByAncestor: p.ancestor[i],
		Err:        p.errs[i],
	}
	if p.state[i] == cyclic && r.Verdict == logic.Visible {
		r.Verdict = logic.Errored
		r.Err = ErrCycle
	}
	return r
}
