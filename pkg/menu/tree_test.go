package menu

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestTree(t *testing.T) {
	t.Parallel()

	items := []Item{
		{ID: "b1", ParentID: "b", Title: "B1"},
		{ID: "a", Title: "A"},
		{ID: "b", Title: "B"},
		{ID: "a1", ParentID: "a", Title: "A1"},
		{ID: "a2", ParentID: "a", Title: "A2"},
		{ID: "a1x", ParentID: "a1", Title: "A1x"},
		{ID: "o", ParentID: "filtered-out", Title: "Orphan"},
	}

	want := []Node{
		{Item: items[1], Children: []Node{
			{Item: items[3], Children: []Node{{Item: items[5]}}},
			{Item: items[4]},
		}},
		{Item: items[2], Children: []Node{{Item: items[0]}}},
		{Item: items[6]},
	}

	if diff := cmp.Diff(want, Tree(items)); diff != "" {
		t.Fatalf("Tree() mismatch (-want +got):\n%s", diff)
	}
}

func TestTreeEmpty(t *testing.T) {
	t.Parallel()

	got := Tree(nil)
	if got == nil || len(got) != 0 {
		t.Fatalf("Tree(nil) = %#v, want empty non-nil slice", got)
	}
}

func TestTreeNestsUnderItemZero(t *testing.T) {
	t.Parallel()

	items := []Item{
		{ID: "0", Title: "Root"},
		{ID: "a", ParentID: "0", Title: "A"},
		{ID: "b", ParentID: "0", Title: "B"},
	}
	want := []Node{{Item: items[0], Children: []Node{{Item: items[1]}, {Item: items[2]}}}}
	if diff := cmp.Diff(want, Tree(items)); diff != "" {
		t.Fatalf("Tree() mismatch (-want +got):\n%s", diff)
	}
}
