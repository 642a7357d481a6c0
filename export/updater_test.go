package export

import (
	"path/filepath"
	"slices"
	"testing"

	"go.uber.org/zap/zaptest"

	"blockdoc/block"
	"blockdoc/utils/paths"
)

func TestUpdater_CopyForExportIsolation(t *testing.T) {
	doc := imageDoc(t, "/pics/a.png", "/pics/b.png")
	u := NewUpdater(zaptest.NewLogger(t))

	work := u.CopyForExport(doc)
	mapping := map[string]string{
		paths.Normalize("/pics/a.png"): "data:image/png;base64,AAAA",
		paths.Normalize("/pics/b.png"): "data:image/png;base64,BBBB",
	}
	if n := u.ApplyMediaMapping(work, mapping); n != 2 {
		t.Fatalf("ApplyMediaMapping() = %d, want 2", n)
	}

	for b := range doc.All() {
		for _, v := range b.MediaValues() {
			if paths.IsURI(v) {
				t.Errorf("original document changed: %q", v)
			}
		}
	}
}

func TestUpdater_ApplyIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.png")
	doc := imageDoc(t, a, a)
	u := NewUpdater(nil)
	mapping := map[string]string{paths.Normalize(a): "Assets/a.png"}

	if n := u.ApplyMediaMapping(doc, mapping); n != 2 {
		t.Fatalf("first ApplyMediaMapping() = %d", n)
	}
	first, err := block.Marshal(doc)
	if err != nil {
		t.Fatal(err)
	}
	if n := u.ApplyMediaMapping(doc, mapping); n != 0 {
		t.Errorf("second ApplyMediaMapping() = %d, want 0", n)
	}
	second, err := block.Marshal(doc)
	if err != nil {
		t.Fatal(err)
	}
	if string(first) != string(second) {
		t.Error("second application changed document")
	}
}

func TestUpdater_ValidateMediaUpdates(t *testing.T) {
	doc := imageDoc(t, "/pics/a.png", "/pics/b10.png", "/pics/b9.png")
	ext := block.NewImage()
	mustUpdate(t, ext, "path", "https://example.com/x.png")
	doc.Add(ext)

	u := NewUpdater(zaptest.NewLogger(t))
	mapping := map[string]string{paths.Normalize("/pics/a.png"): "data:image/png;base64,AAAA"}
	u.ApplyMediaMapping(doc, mapping)

	rpt := u.ValidateMediaUpdates(doc, mapping)
	if !slices.Equal(rpt.Found, []string{"data:image/png;base64,AAAA"}) {
		t.Errorf("Found = %v", rpt.Found)
	}
	want := []string{paths.Normalize("/pics/b9.png"), paths.Normalize("/pics/b10.png")}
	if !slices.Equal(rpt.Missing, want) {
		t.Errorf("Missing = %v, want %v", rpt.Missing, want)
	}
}
