package block

import (
	"fmt"
	"strings"
)

// IsStandalone reports whether blocks of type t are rendered outside of
// numbered cards.
func IsStandalone(t Type) bool {
	return t == TypeDisclaimer || t == TypeSectionTitle
}

// GroupSections splits ordered blocks into section groups. Every section title
// starts a new group and becomes its first element; other blocks join the most
// recent group.
func GroupSections(blocks []Block) [][]Block {
	var groups [][]Block
	for _, b := range blocks {
		if b.Type() == TypeSectionTitle || len(groups) == 0 {
			groups = append(groups, []Block{b})
			continue
		}
		groups[len(groups)-1] = append(groups[len(groups)-1], b)
	}
	return groups
}

// WriteSectionGroups renders blocks grouped into sections. Within a group
// standalone blocks break card runs and card numbering restarts at 1 for
// every run.
func WriteSectionGroups(sb *strings.Builder, blocks []Block) {
	for _, group := range GroupSections(blocks) {
		sb.WriteString(`<section class="section-group">`)
		var run []Block
		for _, b := range group {
			if IsStandalone(b.Type()) {
				WriteCards(sb, run)
				run = run[:0]
				sb.WriteString(b.Render())
				continue
			}
			run = append(run, b)
		}
		WriteCards(sb, run)
		sb.WriteString("</section>")
	}
}

// WriteCards renders blocks as one numbered card run starting at 1.
func WriteCards(sb *strings.Builder, blocks []Block) {
	if len(blocks) == 0 {
		return
	}
	sb.WriteString(`<div class="card-group">`)
	for i, b := range blocks {
		sb.WriteString(fmt.Sprintf(`<div class="card"><div class="card-number">%d</div><div class="card-body">`, i+1))
		sb.WriteString(b.Render())
		sb.WriteString("</div></div>")
	}
	sb.WriteString("</div>")
}
