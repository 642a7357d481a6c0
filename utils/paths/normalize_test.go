package paths

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestClean(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{`  "/tmp/a b.png" `, "/tmp/a b.png"},
		{`'C:\img.png'`, `C:\img.png`},
		{"plain.png", "plain.png"},
		{`"'nested.png'"`, "nested.png"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Clean(tt.in); got != tt.want {
			t.Errorf("Clean(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalize_ExistingFileDifferentSpellings(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}
	file := filepath.Join(dir, "img.png")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	a := Normalize(file)
	b := Normalize(`"` + filepath.Join(dir, "sub", "..", "img.png") + `"`)
	if a != b {
		t.Fatalf("Normalize spellings differ: %q vs %q", a, b)
	}
	if strings.Contains(a, `\`) {
		t.Errorf("Normalize(%q) = %q, expected forward slashes", file, a)
	}
	if !filepath.IsAbs(filepath.FromSlash(a)) {
		t.Errorf("Normalize(%q) = %q, expected absolute path", file, a)
	}
}

func TestNormalize_MissingFileUnchanged(t *testing.T) {
	if got := Normalize(" 'does/not/exist.png' "); got != "does/not/exist.png" {
		t.Errorf("Normalize() = %q, want cleaned input", got)
	}
}

func TestIsURI(t *testing.T) {
	for _, v := range []string{"data:image/png;base64,AAA", "file:///tmp/x", "HTTP://host/x", "https://x"} {
		if !IsURI(v) {
			t.Errorf("IsURI(%q) = false", v)
		}
	}
	for _, v := range []string{"/tmp/x.png", "img.png", "ftp.png"} {
		if IsURI(v) {
			t.Errorf("IsURI(%q) = true", v)
		}
	}
}

func TestFileURIRoundTrip(t *testing.T) {
	uri := FileURI("/home/user/pic.png")
	if uri != "file:///home/user/pic.png" {
		t.Fatalf("FileURI() = %q", uri)
	}
	p, ok := FromFileURI(uri)
	if !ok || filepath.ToSlash(p) != "/home/user/pic.png" {
		t.Errorf("FromFileURI() = %q, %v", p, ok)
	}
	if _, ok := FromFileURI("https://x"); ok {
		t.Error("FromFileURI() accepted non file uri")
	}
}

func TestLooksLikeBase64(t *testing.T) {
	if !LooksLikeBase64("data:image/png;base64,iVBORw0KGgo=") {
		t.Error("data url not detected")
	}
	if !LooksLikeBase64(strings.Repeat("QUJD", 64)) {
		t.Error("raw payload not detected")
	}
	if LooksLikeBase64("/home/user/pictures/photo.png") {
		t.Error("ordinary path detected as base64")
	}
}
