package menu

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/mchmarny/menulogic/pkg/logic"
)

func ids(items []Item) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, item.ID)
	}
	return out
}

func evaluate(ctx logic.Context) VerdictFunc {
	ev := logic.New()
	return func(item Item) (logic.Verdict, error) {
		return ev.Evaluate(item.Logic, ctx)
	}
}

func TestFilterScenarios(t *testing.T) {
	t.Parallel()

	loggedOut := logic.Context{Funcs: map[string]logic.Func{
		"is_logged_in": logic.Const(false),
	}}

	tests := []struct {
		name  string
		items []Item
		ctx   logic.Context
		want  []string
	}{
		{
			name: "parent and child visible",
			items: []Item{
				{ID: "A"},
				{ID: "B", ParentID: "A"},
			},
			want: []string{"A", "B"},
		},
		{
			name: "hidden parent cascades to child with empty condition",
			items: []Item{
				{ID: "A", Logic: "false"},
				{ID: "B", ParentID: "A"},
			},
			want: []string{},
		},
		{
			name: "predicate false hides item",
			items: []Item{
				{ID: "A", Logic: "is_logged_in()"},
				{ID: "B"},
			},
			ctx:  loggedOut,
			want: []string{"B"},
		},
		{
			name: "malformed condition hides item",
			items: []Item{
				{ID: "A", Title: "Account", Logic: "1 +"},
				{ID: "B"},
			},
			want: []string{"B"},
		},
		{
			name: "independent siblings",
			items: []Item{
				{ID: "A", Logic: "true"},
				{ID: "B", Logic: "false"},
				{ID: "C", Logic: "true"},
			},
			want: []string{"A", "C"},
		},
		{
			name: "cascade through several levels",
			items: []Item{
				{ID: "A"},
				{ID: "B", ParentID: "A", Logic: "false"},
				{ID: "C", ParentID: "B"},
				{ID: "D", ParentID: "C", Logic: "true"},
				{ID: "E", ParentID: "A"},
			},
			want: []string{"A", "E"},
		},
		{
			name: "child listed before hidden parent",
			items: []Item{
				{ID: "C", ParentID: "B"},
				{ID: "D", ParentID: "C"},
				{ID: "B", Logic: "false"},
				{ID: "X"},
			},
			want: []string{"X"},
		},
		{
			name: "child listed before visible parent",
			items: []Item{
				{ID: "C", ParentID: "B"},
				{ID: "B"},
			},
			want: []string{"C", "B"},
		},
		{
			name: "errored child of visible parent",
			items: []Item{
				{ID: "A"},
				{ID: "B", ParentID: "A", Logic: "missing()"},
				{ID: "C", ParentID: "A"},
			},
			want: []string{"A", "C"},
		},
		{
			name: "orphan is top-level",
			items: []Item{
				{ID: "A", ParentID: "gone"},
			},
			want: []string{"A"},
		},
		{
			name: "legacy zero parent is top-level",
			items: []Item{
				{ID: "A", ParentID: "0"},
				{ID: "B", ParentID: "A"},
			},
			want: []string{"A", "B"},
		},
		{
			name: "cycle is removed with its subtree",
			items: []Item{
				{ID: "A", ParentID: "B"},
				{ID: "B", ParentID: "A"},
				{ID: "C", ParentID: "A"},
				{ID: "D"},
			},
			want: []string{"D"},
		},
		{
			name: "self parent",
			items: []Item{
				{ID: "A", ParentID: "A"},
				{ID: "B"},
			},
			want: []string{"B"},
		},
		{
			name:  "empty input",
			items: nil,
			want:  []string{},
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got := Filter(tc.items, evaluate(tc.ctx))
			if diff := cmp.Diff(tc.want, ids(got.Items)); diff != "" {
				t.Fatalf("Filter() items mismatch (-want +got):\n%s", diff)
			}
			if len(got.Items)+len(got.Reports) != len(tc.items) {
				t.Fatalf("got %d items and %d reports for %d inputs", len(got.Items), len(got.Reports), len(tc.items))
			}
		})
	}
}

func TestFilterReports(t *testing.T) {
	t.Parallel()

	items := []Item{
		{ID: "A", Title: "Account", Logic: "false"},
		{ID: "B", Title: "Billing", ParentID: "A"},
		{ID: "C", Title: "Card", ParentID: "B", Logic: "1 +"},
		{ID: "D", Title: "Docs"},
		{ID: "E", ParentID: "F"},
		{ID: "F", ParentID: "E"},
	}

	got := Filter(items, evaluate(logic.Context{}))

	want := []Report{
		{ID: "A", Title: "Account", Verdict: logic.Hidden},
		{ID: "B", Title: "Billing", Verdict: logic.Visible, ByAncestor: "A"},
		{ID: "C", Title: "Card", Verdict: logic.Errored, ByAncestor: "A"},
		{ID: "E", Verdict: logic.Errored, Err: ErrCycle},
		{ID: "F", Verdict: logic.Errored, Err: ErrCycle},
	}
	if diff := cmp.Diff(want, got.Reports, cmpopts.IgnoreFields(Report{}, "Err")); diff != "" {
		t.Fatalf("reports mismatch (-want +got):\n%s", diff)
	}

	if !errors.Is(got.Reports[2].Err, logic.ErrParse) {
		t.Fatalf("report C error = %v, want parse error", got.Reports[2].Err)
	}
	if !errors.Is(got.Reports[3].Err, ErrCycle) {
		t.Fatalf("report E error = %v, want ErrCycle", got.Reports[3].Err)
	}

	var errIDs []string
	for _, r := range got.Errors() {
		errIDs = append(errIDs, r.ID)
	}
	if diff := cmp.Diff([]string{"C", "E", "F"}, errIDs); diff != "" {
		t.Fatalf("Errors() mismatch (-want +got):\n%s", diff)
	}

	msg := got.Reports[2].Message()
	if !strings.Contains(msg, `"Card"`) || !strings.Contains(msg, "unexpected character") {
		t.Fatalf("Message() = %q, want title and cause", msg)
	}
}

func TestFilterEvaluatesEveryItemOnceInOrder(t *testing.T) {
	t.Parallel()

	items := []Item{
		{ID: "C", ParentID: "A"},
		{ID: "A", Logic: "false"},
		{ID: "B", ParentID: "A"},
		{ID: "A", Title: "duplicate"},
	}

	var seen []string
	Filter(items, func(item Item) (logic.Verdict, error) {
		seen = append(seen, item.ID)
		if item.Logic == "false" {
			return logic.Hidden, nil
		}
		return logic.Visible, nil
	})

	if diff := cmp.Diff([]string{"C", "A", "B", "A"}, seen); diff != "" {
		t.Fatalf("evaluation order mismatch (-want +got):\n%s", diff)
	}
}

func TestFilterDuplicateIDsAttachToFirst(t *testing.T) {
	t.Parallel()

	items := []Item{
		{ID: "A", Logic: "false"},
		{ID: "A"},
		{ID: "B", ParentID: "A"},
	}

	got := Filter(items, evaluate(logic.Context{}))
	if diff := cmp.Diff([]string{"A"}, ids(got.Items)); diff != "" {
		t.Fatalf("Filter() items mismatch (-want +got):\n%s", diff)
	}
	if got.Items[0].Logic != "" {
		t.Fatalf("kept the wrong duplicate: %+v", got.Items[0])
	}
}

func TestFilterErrorForcesErrored(t *testing.T) {
	t.Parallel()

	items := []Item{{ID: "A"}}
	got := Filter(items, func(Item) (logic.Verdict, error) {
		return logic.Visible, errors.New("lookup failed")
	})
	if len(got.Items) != 0 || len(got.Reports) != 1 || got.Reports[0].Verdict != logic.Errored {
		t.Fatalf("Filter() = %+v, want a single errored report", got)
	}
}

func TestFilterNilVerdictFuncKeepsAll(t *testing.T) {
	t.Parallel()

	items := []Item{{ID: "A", Logic: "false"}, {ID: "B", ParentID: "A"}}
	got := Filter(items, nil)
	if diff := cmp.Diff([]string{"A", "B"}, ids(got.Items)); diff != "" {
		t.Fatalf("Filter() items mismatch (-want +got):\n%s", diff)
	}
}

func TestFilterIsIdempotentAndDoesNotMutate(t *testing.T) {
	t.Parallel()

	items := []Item{
		{ID: "A", Title: "Home", URL: "/", Attributes: map[string]string{"icon": "house"}},
		{ID: "B", ParentID: "A", Logic: "is_admin()"},
		{ID: "C", ParentID: "B"},
		{ID: "D", ParentID: "A", Logic: "!is_admin()"},
	}
	orig := make([]Item, len(items))
	copy(orig, items)

	ctx := logic.Context{Funcs: map[string]logic.Func{"is_admin": logic.Const(false)}}
	first := Filter(items, evaluate(ctx))
	second := Filter(items, evaluate(ctx))

	if diff := cmp.Diff(first.Items, second.Items); diff != "" {
		t.Fatalf("second pass differs (-first +second):\n%s", diff)
	}
	if diff := cmp.Diff(orig, items); diff != "" {
		t.Fatalf("input mutated (-orig +now):\n%s", diff)
	}
	if diff := cmp.Diff([]Item{orig[0], orig[3]}, first.Items); diff != "" {
		t.Fatalf("payload not passed through (-want +got):\n%s", diff)
	}

	// feeding the output back in changes nothing
	third := Filter(first.Items, evaluate(ctx))
	if diff := cmp.Diff(first.Items, third.Items); diff != "" {
		t.Fatalf("refiltering output differs (-first +third):\n%s", diff)
	}
}

func TestFilterCascadeProperty(t *testing.T) {
	t.Parallel()

	// a random-looking but fixed forest; every hidden node must take its
	// whole subtree with it regardless of the descendants' own conditions
	items := []Item{
		{ID: "n7", ParentID: "n3"},
		{ID: "n1"},
		{ID: "n2", ParentID: "n1", Logic: "false"},
		{ID: "n3", ParentID: "n1"},
		{ID: "n4", ParentID: "n2", Logic: "true"},
		{ID: "n5", ParentID: "n4"},
		{ID: "n6", ParentID: "n3", Logic: "false"},
		{ID: "n8", ParentID: "n6", Logic: "true"},
		{ID: "n9", ParentID: "n8"},
		{ID: "n10", ParentID: "n7", Logic: "1 +"},
		{ID: "n11", ParentID: "n10"},
	}

	got := Filter(items, evaluate(logic.Context{}))
	out := make(map[string]bool)
	for _, item := range got.Items {
		out[item.ID] = true
	}

	parent := make(map[string]string)
	for _, item := range items {
		parent[item.ID] = item.ParentID
	}
	for _, item := range items {
		for a := parent[item.ID]; a != ""; a = parent[a] {
			if !out[a] && out[item.ID] {
				t.Fatalf("%s survived although ancestor %s was removed", item.ID, a)
			}
		}
	}

	if diff := cmp.Diff([]string{"n7", "n1", "n3"}, ids(got.Items)); diff != "" {
		t.Fatalf("Filter() items mismatch (-want +got):\n%s", diff)
	}
}

func TestFilterLegacyTopLevelParent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		items []Item
		want  []string
	}{
		{
			name: "zero parent without an item zero is top-level",
			items: []Item{
				{ID: "home", ParentID: "0"},
				{ID: "docs", ParentID: "home"},
			},
			want: []string{"home", "docs"},
		},
		{
			name: "hidden item zero hides its children",
			items: []Item{
				{ID: "0", Logic: "false"},
				{ID: "payroll", ParentID: "0"},
			},
			want: []string{},
		},
		{
			name: "child listed before hidden item zero",
			items: []Item{
				{ID: "payroll", ParentID: "0"},
				{ID: "0", Logic: "false"},
				{ID: "home"},
			},
			want: []string{"home"},
		},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := Filter(tc.items, evaluate(logic.Context{}))
			if diff := cmp.Diff(tc.want, ids(got.Items)); diff != "" {
				t.Fatalf("Filter() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
