package menu

// Node is an item with its visible children, used for nested JSON output.
type Node struct {
	Item
	Children []Node `json:"children,omitempty"`
}

// Tree nests a filtered item list. Roots are items that are top-level or
// whose parent is not in the list; children keep their input order.
// Items on a parent cycle are never reached, which is why Tree expects
// the output of Filter.
func Tree(items []Item) []Node {
	index := make(map[string]int, len(items))
	for i, item := range items {
		if _, dup := index[item.ID]; !dup {
			index[item.ID] = i
		}
	}

	children := make(map[int][]int, len(items))
	var roots []int
	for i, item := range items {
		j, ok := index[item.ParentID]
		if item.ParentID == TopLevel || !ok || j == i {
			roots = append(roots, i)
			continue
		}
		children[j] = append(children[j], i)
	}

	seen := make([]bool, len(items))
	var build func(i int) Node
	build = func(i int) Node {
		seen[i] = true
		n := Node{Item: items[i]}
		for _, c := range children[i] {
			if seen[c] {
				continue
			}
			n.Children = append(n.Children, build(c))
		}
		return n
	}

	out := make([]Node, 0, len(roots))
	for _, r := range roots {
		out = append(out, build(r))
	}
	return out
}
