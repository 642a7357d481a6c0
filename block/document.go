package block

import (
	"cmp"
	"fmt"
	"iter"
	"slices"
)

// Document is ordered list of top level blocks, some of which may be Tabs
// owning further nested blocks.
type Document []Block

// Sorted returns a copy ordered by position, ties keep list order.
func (d Document) Sorted() []Block {
	out := slices.Clone([]Block(d))
	slices.SortStableFunc(out, func(a, b Block) int {
		return cmp.Compare(a.Position(), b.Position())
	})
	return out
}

// All walks every block depth first. Tab children are visited in tab order
// right after their owner.
func (d Document) All() iter.Seq[Block] {
	return func(yield func(Block) bool) {
		walk(d, yield)
	}
}

func walk(blocks []Block, yield func(Block) bool) bool {
	for _, b := range blocks {
		if !yield(b) {
			return false
		}
		if t, ok := b.(*Tabs); ok {
			for _, name := range t.TabNames() {
				if !walk(t.children[name], yield) {
					return false
				}
			}
		}
	}
	return true
}

// Find returns block with the given id anywhere in the tree.
func (d Document) Find(id string) (Block, bool) {
	for b := range d.All() {
		if b.ID() == id {
			return b, true
		}
	}
	return nil, false
}

// Add appends block at the end of the document.
func (d *Document) Add(b Block) {
	pos := 0
	for _, c := range *d {
		pos = max(pos, c.Position()+1)
	}
	b.SetPosition(pos)
	*d = append(*d, b)
}

// Remove detaches top level block.
func (d *Document) Remove(id string) (Block, bool) {
	for i, b := range *d {
		if b.ID() == id {
			*d = slices.Delete(*d, i, i+1)
			return b, true
		}
	}
	return nil, false
}

// MoveToTab moves top level block into a tab. Block is never listed in both
// places.
func (d *Document) MoveToTab(id string, t *Tabs, tab string) error {
	if !t.hasTab(tab) {
		return fmt.Errorf("%w: %q", ErrTabNotFound, tab)
	}
	i := slices.IndexFunc(*d, func(b Block) bool { return b.ID() == id })
	if i < 0 {
		return fmt.Errorf("%w: %q", ErrBlockNotFound, id)
	}
	b := (*d)[i]
	if contains(b, t.ID()) {
		return fmt.Errorf("%w: tab block cannot contain itself", ErrInvalidValue)
	}
	if _, ok := d.Find(t.ID()); !ok {
		return fmt.Errorf("%w: tab block %q is not part of the document", ErrBlockNotFound, t.ID())
	}
	*d = slices.Delete(*d, i, i+1)
	if err := t.AddChild(tab, b); err != nil {
		*d = slices.Insert(*d, i, b)
		return err
	}
	return nil
}

// MoveFromTab moves child of a tab to the document top level.
func (d *Document) MoveFromTab(t *Tabs, tab, id string) error {
	b, ok := t.RemoveChild(tab, id)
	if !ok {
		return fmt.Errorf("%w: %q in tab %q", ErrBlockNotFound, id, tab)
	}
	d.Add(b)
	return nil
}

// Validate repairs every Tabs block in the tree, returns repairs made.
func (d Document) Validate() []string {
	var repairs []string
	for b := range d.All() {
		if t, ok := b.(*Tabs); ok {
			for _, r := range t.Validate() {
				repairs = append(repairs, t.ID()+": "+r)
			}
		}
	}
	return repairs
}

// Clone deep copies the whole tree.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	out := make(Document, len(d))
	for i, b := range d {
		out[i] = b.Clone()
	}
	return out
}
