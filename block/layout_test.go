package block

import (
	"strings"
	"testing"
)

func TestGroupSections(t *testing.T) {
	blocks := []Block{
		NewDisclaimer(),
		NewSectionTitleWith("A"),
		NewTextWith("one"),
		NewMedia(),
		NewSectionTitleWith("B"),
		NewTextWith("two"),
	}
	groups := GroupSections(blocks)

	wantLens := []int{1, 3, 2}
	if len(groups) != len(wantLens) {
		t.Fatalf("GroupSections() = %d groups, want %d", len(groups), len(wantLens))
	}
	for i, n := range wantLens {
		if len(groups[i]) != n {
			t.Errorf("group %d has %d blocks, want %d", i, len(groups[i]), n)
		}
	}
	if groups[1][0].Type() != TypeSectionTitle || groups[2][0].Type() != TypeSectionTitle {
		t.Error("section title is not first element of its group")
	}
}

func TestWriteSectionGroups_CardNumbering(t *testing.T) {
	blocks := []Block{
		NewDisclaimer(),
		NewSectionTitleWith("A"),
		NewTextWith("one"),
		NewMedia(),
		NewSectionTitleWith("B"),
		NewTextWith("two"),
	}
	var sb strings.Builder
	WriteSectionGroups(&sb, blocks)
	out := sb.String()

	if n := strings.Count(out, `<div class="card-group">`); n != 2 {
		t.Errorf("card groups = %d, want 2", n)
	}
	if n := strings.Count(out, `<div class="card-number">1</div>`); n != 2 {
		t.Errorf("cards numbered 1 = %d, want 2", n)
	}
	if n := strings.Count(out, `<div class="card-number">2</div>`); n != 1 {
		t.Errorf("cards numbered 2 = %d, want 1", n)
	}
	if strings.Contains(out, `<div class="card-number">3</div>`) {
		t.Error("numbering did not reset between sections")
	}

	// disclaimer renders before any card and outside of one
	disc := strings.Index(out, `class="disclaimer`)
	firstCard := strings.Index(out, `<div class="card">`)
	if disc < 0 || firstCard < 0 || disc > firstCard {
		t.Errorf("disclaimer not standalone ahead of cards: %d vs %d", disc, firstCard)
	}
	a := strings.Index(out, ">A</h2>")
	b := strings.Index(out, ">B</h2>")
	if a < 0 || b < 0 || a > b {
		t.Fatalf("section titles missing or out of order")
	}
	if strings.Count(out[a:b], `<div class="card">`) != 2 || strings.Count(out[b:], `<div class="card">`) != 1 {
		t.Error("cards attached to the wrong section")
	}
}

func TestWriteSectionGroups_StandaloneBreaksRun(t *testing.T) {
	blocks := []Block{NewTextWith("a"), NewDisclaimer(), NewTextWith("b")}
	var sb strings.Builder
	WriteSectionGroups(&sb, blocks)
	out := sb.String()
	if n := strings.Count(out, `<div class="card-number">1</div>`); n != 2 {
		t.Errorf("cards numbered 1 = %d, want 2 (run restarted after disclaimer)", n)
	}
}

func TestWriteCards_Empty(t *testing.T) {
	var sb strings.Builder
	WriteCards(&sb, nil)
	if sb.Len() != 0 {
		t.Errorf("WriteCards(nil) wrote %q", sb.String())
	}
}
