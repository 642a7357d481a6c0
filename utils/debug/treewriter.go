// Package debug renders document structure for troubleshooting reports.
package debug

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"blockdoc/block"
)

// outline accumulates indented lines, two spaces per level.
type outline struct {
	sb strings.Builder
}

func (o *outline) line(depth int, format string, args ...any) {
	o.sb.WriteString(strings.Repeat("  ", depth))
	fmt.Fprintf(&o.sb, format, args...)
	o.sb.WriteByte('\n')
}

// field writes key with quoted value so that multi-line text stays on one line.
func (o *outline) field(depth int, key string, value any) {
	switch v := value.(type) {
	case string:
		if v != "" {
			value = strconv.Quote(v)
		}
	case []string:
		value = len(v)
	}
	o.line(depth, "%s: %v", key, value)
}

// DumpDocument returns indented outline of the block tree: every block with
// its content fields in key order, tab children under their tab.
func DumpDocument(doc block.Document) string {
	var o outline
	o.line(0, "document: %d top-level blocks", len(doc))
	o.blocks(1, doc.Sorted())
	return o.sb.String()
}

func (o *outline) blocks(depth int, blocks []block.Block) {
	for _, b := range blocks {
		o.line(depth, "[%d] %s %s (%s)", b.Position(), b.Type(), b.ID(), b.DisplayName())
		content := b.Content()
		for _, key := range slices.Sorted(maps.Keys(content)) {
			o.field(depth+1, key, content[key])
		}
		if refs := b.MediaReferences(); len(refs) > 0 {
			o.line(depth+1, "media: %d reference(s)", len(refs))
		}
		t, ok := b.(*block.Tabs)
		if !ok {
			continue
		}
		for _, name := range t.TabNames() {
			o.field(depth+1, "tab", name)
			o.blocks(depth+2, t.Children(name))
		}
	}
}
