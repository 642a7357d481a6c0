package block

import (
	"errors"
	"path/filepath"
	"reflect"
	"slices"
	"testing"
)

// buildNestedDocument returns a tree with a Tabs block holding one empty tab and
// one tab with two children, one of which is a nested Tabs block.
func buildNestedDocument(t *testing.T) Document {
	t.Helper()

	h := NewHeader()
	if err := h.Update("title", "SOP"); err != nil {
		t.Fatal(err)
	}

	inner := NewTabs("Inner")
	if err := inner.AddChild("Inner", NewTextWith("deep")); err != nil {
		t.Fatal(err)
	}

	outer := NewTabs("Empty", "Full")
	if err := outer.AddChild("Full", NewTextWith("step one")); err != nil {
		t.Fatal(err)
	}
	if err := outer.AddChild("Full", inner); err != nil {
		t.Fatal(err)
	}
	outer.SetActiveTab(1)
	outer.SetCustomStyle("margin-top", "2em")

	f := NewFooter()
	if err := f.Update("org", "Acme"); err != nil {
		t.Fatal(err)
	}

	var doc Document
	doc.Add(h)
	doc.Add(outer)
	doc.Add(f)
	return doc
}

func assertEquivalent(t *testing.T, a, b []Block) {
	t.Helper()
	if len(a) != len(b) {
		t.Fatalf("length mismatch %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i].ID() != b[i].ID() || a[i].Type() != b[i].Type() || a[i].Position() != b[i].Position() {
			t.Fatalf("block %d header mismatch: %s/%s vs %s/%s", i, a[i].Type(), a[i].ID(), b[i].Type(), b[i].ID())
		}
		if !reflect.DeepEqual(a[i].Content(), b[i].Content()) {
			t.Fatalf("block %d content mismatch:\n%#v\n%#v", i, a[i].Content(), b[i].Content())
		}
		if !reflect.DeepEqual(a[i].CustomStyles(), b[i].CustomStyles()) {
			t.Fatalf("block %d styles mismatch", i)
		}
		ta, okA := a[i].(*Tabs)
		tb, okB := b[i].(*Tabs)
		if okA != okB {
			t.Fatalf("block %d tab kind mismatch", i)
		}
		if !okA {
			continue
		}
		if !slices.Equal(ta.TabNames(), tb.TabNames()) {
			t.Fatalf("tab names mismatch %v vs %v", ta.TabNames(), tb.TabNames())
		}
		for _, n := range ta.TabNames() {
			if ta.TabID(n) != tb.TabID(n) {
				t.Fatalf("tab id mismatch for %q", n)
			}
			assertEquivalent(t, ta.Children(n), tb.Children(n))
		}
	}
}

func TestRoundTrip_JSON(t *testing.T) {
	doc := buildNestedDocument(t)
	data, err := Marshal(doc)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	got, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	assertEquivalent(t, doc, got)
}

func TestRoundTrip_YAMLFile(t *testing.T) {
	doc := buildNestedDocument(t)
	path := filepath.Join(t.TempDir(), "project.yaml")
	if err := SaveDocument(path, doc); err != nil {
		t.Fatalf("SaveDocument() error = %v", err)
	}
	got, err := LoadDocument(path)
	if err != nil {
		t.Fatalf("LoadDocument() error = %v", err)
	}
	assertEquivalent(t, doc, got)
}

func TestUnmarshal_UnknownType(t *testing.T) {
	_, err := Unmarshal([]byte(`[{"id":"1","type":"bogus","position":0,"content":{}}]`))
	if err == nil {
		t.Fatal("expected error for unknown type")
	}
}

func TestLoadDocument_MissingFile(t *testing.T) {
	if _, err := LoadDocument(filepath.Join(t.TempDir(), "none.json")); err == nil {
		t.Fatal("expected error")
	}
}

func TestClone_Isolation(t *testing.T) {
	doc := buildNestedDocument(t)
	cp := doc.Clone()

	for b := range cp.All() {
		switch b.Type() {
		case TypeText:
			if err := b.Update("text", "changed"); err != nil {
				t.Fatal(err)
			}
		case TypeHeader:
			if err := b.Update("logo_path", "/new/logo.png"); err != nil {
				t.Fatal(err)
			}
		}
	}
	outer := cp[1].(*Tabs)
	if err := outer.AddChild("Empty", NewText()); err != nil {
		t.Fatal(err)
	}

	for b := range doc.All() {
		switch b.Type() {
		case TypeText:
			if b.Get("text") == "changed" {
				t.Errorf("original text block %s mutated through copy", b.ID())
			}
		case TypeHeader:
			if b.Get("logo_path") != "" {
				t.Error("original header mutated through copy")
			}
		}
	}
	if n := len(doc[1].(*Tabs).Children("Empty")); n != 0 {
		t.Errorf("original tab gained %d children through copy", n)
	}
}

func TestDocument_AllVisitsNested(t *testing.T) {
	doc := buildNestedDocument(t)
	var types []Type
	for b := range doc.All() {
		types = append(types, b.Type())
	}
	want := []Type{TypeHeader, TypeTabs, TypeText, TypeTabs, TypeText, TypeFooter}
	if !slices.Equal(types, want) {
		t.Errorf("All() order = %v, want %v", types, want)
	}
}

func TestDocument_MoveSemantics(t *testing.T) {
	var doc Document
	tb := NewTabs("A")
	txt := NewText()
	doc.Add(tb)
	doc.Add(txt)

	if err := doc.MoveToTab(txt.ID(), tb, "A"); err != nil {
		t.Fatalf("MoveToTab() error = %v", err)
	}
	if len(doc) != 1 {
		t.Fatalf("document still lists moved block: %d blocks", len(doc))
	}
	count := 0
	for b := range doc.All() {
		if b.ID() == txt.ID() {
			count++
		}
	}
	if count != 1 {
		t.Errorf("moved block reachable %d times", count)
	}

	if err := doc.MoveFromTab(tb, "A", txt.ID()); err != nil {
		t.Fatalf("MoveFromTab() error = %v", err)
	}
	if len(tb.Children("A")) != 0 || len(doc) != 2 {
		t.Error("block not moved back to top level")
	}
	if err := doc.MoveToTab(tb.ID(), tb, "A"); err == nil {
		t.Error("tab block moved into itself")
	}
}

func TestDocument_MoveToTabKeepsSingleTree(t *testing.T) {
	var doc Document
	outer := NewTabs("A")
	inner := NewTabs("X")
	if err := outer.AddChild("A", inner); err != nil {
		t.Fatalf("AddChild() error = %v", err)
	}
	doc.Add(outer)

	if err := doc.MoveToTab(outer.ID(), inner, "X"); !errors.Is(err, ErrInvalidValue) {
		t.Fatalf("MoveToTab() into own descendant error = %v, want ErrInvalidValue", err)
	}
	if len(doc) != 1 || doc[0] != outer {
		t.Fatalf("rejected move changed document: %d blocks", len(doc))
	}
	count := 0
	for range doc.All() {
		count++
	}
	if count != 2 {
		t.Errorf("blocks reachable after rejected move = %d, want 2", count)
	}

	stray := NewTabs("S")
	txt := NewText()
	doc.Add(txt)
	if err := doc.MoveToTab(txt.ID(), stray, "S"); !errors.Is(err, ErrBlockNotFound) {
		t.Errorf("MoveToTab() into detached tab block error = %v, want ErrBlockNotFound", err)
	}
	if _, ok := doc.Find(txt.ID()); !ok || len(stray.Children("S")) != 0 {
		t.Error("block moved into tab block outside of document")
	}

	if err := doc.MoveToTab(txt.ID(), inner, "X"); err != nil {
		t.Fatalf("MoveToTab() into nested tab error = %v", err)
	}
	if len(doc) != 1 || len(inner.Children("X")) != 1 {
		t.Error("block not moved into nested tab")
	}
}
