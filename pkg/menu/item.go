package menu

// TopLevel is the parent ID of items at the root of the menu.
const TopLevel = ""

// legacyTopLevel is the parent value menus exported from post-based
// stores use for root items. It only means top-level while no item in
// the menu has that ID.
const legacyTopLevel = "0"

// Item is one node of a flat, parent-linked navigation menu.
type Item struct {
	// ID uniquely identifies the item within its menu and is stable across renders.
	ID string `json:"id" yaml:"id"`

	// ParentID is the ID of the parent item, or TopLevel.
	ParentID string `json:"parent,omitempty" yaml:"parent,omitempty"`

	// Title is the display title of the item.
	Title string `json:"title" yaml:"title"`

	// URL is the link target of the item.
	URL string `json:"url,omitempty" yaml:"url,omitempty"`

	// Description is an optional description of the item.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// Logic is the raw visibility condition. Empty means always visible.
	// It is never serialized to viewers.
	Logic string `json:"-" yaml:"logic,omitempty"`

	// Attributes carries renderer-specific data through untouched.
	Attributes map[string]string `json:"attributes,omitempty" yaml:"attributes,omitempty"`
}

// IsTopLevel reports whether the item names no parent on its own. Filter
// and Tree resolve parents against the menu, so an item whose parent is
// "0" still nests under an item with ID "0" when there is one.
func (i Item) IsTopLevel() bool {
	return i.ParentID == TopLevel || i.ParentID == legacyTopLevel
}

// WithConditions returns a copy of items where every item with an entry in
// conditions takes that entry as its Logic. Stored conditions win over the
// ones carried by the definition.
func WithConditions(items []Item, conditions map[string]string) []Item {
	out := make([]Item, len(items))
	copy(out, items)
	if len(conditions) == 0 {
		return out
	}
	for i := range out {
		if cond, ok := conditions[out[i].ID]; ok {
			out[i].Logic = cond
		}
	}
	return out
}
