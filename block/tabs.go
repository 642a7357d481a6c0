package block

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/google/uuid"
)

var tabsSchema = Schema{
	"tabs":       KindStringList,
	"active_tab": KindInt,
}

// Tabs is a container block. It exclusively owns the blocks listed under each
// of its tabs: a block is reachable either from the document top level or from
// exactly one tab of one Tabs block.
type Tabs struct {
	base
	children map[string][]Block
	tabIDs   map[string]string
}

// NewTabs creates tab block with single default tab.
func NewTabs(names ...string) *Tabs {
	if len(names) == 0 {
		names = []string{"Tab 1"}
	}
	t := &Tabs{
		base: newBase(TypeTabs, tabsSchema, map[string]any{
			"tabs":       []string{},
			"active_tab": 0,
		}),
		children: make(map[string][]Block),
		tabIDs:   make(map[string]string),
	}
	for _, n := range names {
		_ = t.AddTab(n)
	}
	return t
}

func (t *Tabs) TabNames() []string { return append([]string{}, t.list("tabs")...) }
func (t *Tabs) ActiveTab() int     { return t.num("active_tab") }

// TabID returns persistent identifier of the named tab.
func (t *Tabs) TabID(name string) string { return t.tabIDs[name] }

func (t *Tabs) hasTab(name string) bool {
	return slices.Contains(t.list("tabs"), name)
}

// AddTab appends new empty tab.
func (t *Tabs) AddTab(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: empty tab name", ErrInvalidValue)
	}
	if t.hasTab(name) {
		return fmt.Errorf("%w: %q", ErrTabExists, name)
	}
	t.content["tabs"] = append(t.TabNames(), name)
	t.children[name] = []Block{}
	t.tabIDs[name] = uuid.NewString()
	return nil
}

// RemoveTab drops the tab together with its children and id. The last tab
// cannot be removed.
func (t *Tabs) RemoveTab(name string) error {
	names := t.TabNames()
	idx := slices.Index(names, name)
	if idx < 0 {
		return fmt.Errorf("%w: %q", ErrTabNotFound, name)
	}
	if len(names) == 1 {
		return ErrLastTab
	}
	names = slices.Delete(names, idx, idx+1)
	t.content["tabs"] = names
	delete(t.children, name)
	delete(t.tabIDs, name)

	active := t.ActiveTab()
	if idx < active {
		active--
	}
	t.content["active_tab"] = clampIndex(active, len(names))
	return nil
}

// RenameTab moves children and id to the new name in one step.
func (t *Tabs) RenameTab(oldName, newName string) error {
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return fmt.Errorf("%w: empty tab name", ErrInvalidValue)
	}
	names := t.TabNames()
	idx := slices.Index(names, oldName)
	if idx < 0 {
		return fmt.Errorf("%w: %q", ErrTabNotFound, oldName)
	}
	if oldName == newName {
		return nil
	}
	if t.hasTab(newName) {
		return fmt.Errorf("%w: %q", ErrTabExists, newName)
	}

	children, id := t.children[oldName], t.tabIDs[oldName]
	names[idx] = newName
	t.children[newName], t.tabIDs[newName] = children, id
	delete(t.children, oldName)
	delete(t.tabIDs, oldName)
	t.content["tabs"] = names
	return nil
}

// SetActiveTab selects tab by index, out of range values are clamped.
func (t *Tabs) SetActiveTab(i int) {
	t.content["active_tab"] = clampIndex(i, len(t.list("tabs")))
}

// Children returns blocks of the named tab ordered by position.
func (t *Tabs) Children(name string) []Block {
	return Document(t.children[name]).Sorted()
}

// AddChild appends block to the named tab. Callers moving blocks must remove
// them from their previous owner first, see Document.MoveToTab. Block already
// owned somewhere in this tab tree or containing t is rejected.
func (t *Tabs) AddChild(name string, b Block) error {
	if !t.hasTab(name) {
		return fmt.Errorf("%w: %q", ErrTabNotFound, name)
	}
	if contains(t, b.ID()) {
		return fmt.Errorf("%w: %q", ErrAlreadyOwned, b.ID())
	}
	if contains(b, t.ID()) {
		return fmt.Errorf("%w: tab block cannot contain itself", ErrInvalidValue)
	}
	pos := 0
	for _, c := range t.children[name] {
		pos = max(pos, c.Position()+1)
	}
	b.SetPosition(pos)
	t.children[name] = append(t.children[name], b)
	return nil
}

// RemoveChild detaches block from the named tab and returns it.
func (t *Tabs) RemoveChild(name, id string) (Block, bool) {
	list := t.children[name]
	for i, c := range list {
		if c.ID() == id {
			t.children[name] = slices.Delete(list, i, i+1)
			return c, true
		}
	}
	return nil, false
}

// MoveChild moves block between two tabs of the same Tabs block.
func (t *Tabs) MoveChild(id, from, to string) error {
	if !t.hasTab(to) {
		return fmt.Errorf("%w: %q", ErrTabNotFound, to)
	}
	b, ok := t.RemoveChild(from, id)
	if !ok {
		return fmt.Errorf("%w: %q in tab %q", ErrBlockNotFound, id, from)
	}
	if err := t.AddChild(to, b); err != nil {
		t.children[from] = append(t.children[from], b)
		return err
	}
	return nil
}

// contains reports whether block with id is root or anywhere below it.
func contains(root Block, id string) bool {
	for b := range (Document{root}).All() {
		if b.ID() == id {
			return true
		}
	}
	return false
}

// Update keeps tab structure consistent when tabs or active_tab are set
// directly, e.g. by property editor or deserializer.
func (t *Tabs) Update(key string, value any) error {
	if err := t.base.Update(key, value); err != nil {
		return err
	}
	switch key {
	case "tabs", "active_tab":
		t.Validate()
	}
	return nil
}

// Validate repairs structural invariants and reports what has been fixed.
// Repairs are always possible so this never fails.
func (t *Tabs) Validate() []string {
	var repairs []string

	seen := make(map[string]bool)
	names := make([]string, 0, len(t.list("tabs")))
	for _, n := range t.list("tabs") {
		n = strings.TrimSpace(n)
		if n == "" || seen[n] {
			repairs = append(repairs, fmt.Sprintf("dropped invalid or duplicate tab name %q", n))
			continue
		}
		seen[n] = true
		names = append(names, n)
	}
	if len(names) == 0 {
		names = append(names, "Tab 1")
		seen["Tab 1"] = true
		repairs = append(repairs, "added default tab")
	}
	t.content["tabs"] = names

	for _, n := range names {
		if _, ok := t.children[n]; !ok {
			t.children[n] = []Block{}
			repairs = append(repairs, fmt.Sprintf("created missing child group for tab %q", n))
		}
		if t.tabIDs[n] == "" {
			t.tabIDs[n] = uuid.NewString()
			repairs = append(repairs, fmt.Sprintf("created missing id for tab %q", n))
		}
	}
	for _, n := range slices.Sorted(maps.Keys(t.children)) {
		if !seen[n] {
			delete(t.children, n)
			repairs = append(repairs, fmt.Sprintf("removed orphaned child group %q", n))
		}
	}
	for _, n := range slices.Sorted(maps.Keys(t.tabIDs)) {
		if !seen[n] {
			delete(t.tabIDs, n)
			repairs = append(repairs, fmt.Sprintf("removed orphaned tab id %q", n))
		}
	}

	if active := t.num("active_tab"); active != clampIndex(active, len(names)) {
		t.content["active_tab"] = clampIndex(active, len(names))
		repairs = append(repairs, "clamped active tab")
	}
	return repairs
}

// Clone deep copies the block together with every owned child.
func (t *Tabs) Clone() Block {
	c := &Tabs{
		base:     t.base.clone(),
		children: make(map[string][]Block, len(t.children)),
		tabIDs:   maps.Clone(t.tabIDs),
	}
	for name, list := range t.children {
		cl := make([]Block, len(list))
		for i, b := range list {
			cl[i] = b.Clone()
		}
		c.children[name] = cl
	}
	return c
}

// Render produces tab selector buttons and a pane for every tab. Inactive
// panes are present but hidden, switching happens client side.
func (t *Tabs) Render() string {
	names := t.TabNames()
	active := clampIndex(t.ActiveTab(), len(names))

	var sb strings.Builder
	sb.WriteString(`<div class="tabs"` + t.styleAttr() + ">")
	sb.WriteString(`<div class="tab-buttons" id="block-` + esc(t.id) + `" role="tablist">`)
	for i, n := range names {
		sb.WriteString(fmt.Sprintf(`<button type="button" class="%s" role="tab" data-tab-index="%d">%s</button>`,
			activeClass("tab-button", i == active), i, esc(n)))
	}
	sb.WriteString("</div>")
	for i, n := range names {
		sb.WriteString(fmt.Sprintf(`<div class="%s" role="tabpanel" data-tab-index="%d" data-tab-id="%s">`,
			activeClass("tab-content", i == active), i, esc(t.tabIDs[n])))
		WriteSectionGroups(&sb, t.Children(n))
		sb.WriteString("</div>")
	}
	sb.WriteString("</div>")
	return sb.String()
}

func activeClass(class string, active bool) string {
	if active {
		return class + " active"
	}
	return class
}

func clampIndex(i, n int) int {
	if i >= n {
		i = n - 1
	}
	return max(i, 0)
}
