package block

import (
	"fmt"
	"maps"
	"slices"
)

// Factory produces default initialized block.
type Factory func() Block

var registry = map[Type]Factory{
	TypeHeader:       func() Block { return NewHeader() },
	TypeText:         func() Block { return NewText() },
	TypeTable:        func() Block { return NewTable() },
	TypeMedia:        func() Block { return NewMedia() },
	TypeImage:        func() Block { return NewImage() },
	TypeVideo:        func() Block { return NewVideo() },
	TypeDisclaimer:   func() Block { return NewDisclaimer() },
	TypeSectionTitle: func() Block { return NewSectionTitle() },
	TypeFooter:       func() Block { return NewFooter() },
	TypeTabs:         func() Block { return NewTabs() },
}

// compile time checks
var (
	_ Block = (*Header)(nil)
	_ Block = (*Text)(nil)
	_ Block = (*Table)(nil)
	_ Block = (*Media)(nil)
	_ Block = (*Image)(nil)
	_ Block = (*Video)(nil)
	_ Block = (*Disclaimer)(nil)
	_ Block = (*SectionTitle)(nil)
	_ Block = (*Footer)(nil)
	_ Block = (*Tabs)(nil)
)

// New creates default initialized block of the requested type.
func New(t Type) (Block, error) {
	f, ok := registry[t]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, t)
	}
	return f(), nil
}

// Types returns all registered block types sorted by name.
func Types() []Type {
	return slices.Sorted(maps.Keys(registry))
}
