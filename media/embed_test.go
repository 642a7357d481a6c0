package media

import (
	"bytes"
	"context"
	"errors"
	"image"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"go.uber.org/zap/zaptest"

	"blockdoc/config"
)

func TestEmbed_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	data := pngBytes(t, 8, 8)
	p := writeFile(t, filepath.Join(dir, "pic.png"), data)

	e := NewEmbedder(nil, zaptest.NewLogger(t))
	url, err := e.Embed(p)
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if !strings.HasPrefix(url, "data:image/png;base64,") {
		t.Errorf("Embed() = %.40q", url)
	}

	got, mimeType, err := DecodeDataURL(url)
	if err != nil {
		t.Fatalf("DecodeDataURL() error = %v", err)
	}
	if mimeType != "image/png" || !bytes.Equal(got, data) {
		t.Errorf("DecodeDataURL() = %s, %d bytes", mimeType, len(got))
	}
}

func TestEmbed_Errors(t *testing.T) {
	dir := t.TempDir()
	txt := writeFile(t, filepath.Join(dir, "a.txt"), []byte("x"))
	e := NewEmbedder(nil, nil)

	if _, err := e.Embed(filepath.Join(dir, "none.png")); !errors.Is(err, ErrFileNotFound) {
		t.Errorf("missing file error = %v", err)
	}
	if _, err := e.Embed(txt); !errors.Is(err, ErrUnsupportedType) {
		t.Errorf("unsupported error = %v", err)
	}
	if err := os.Mkdir(filepath.Join(dir, "dir.png"), 0o755); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Embed(filepath.Join(dir, "dir.png")); !errors.Is(err, ErrUnreadable) {
		t.Errorf("directory error = %v", err)
	}
}

func TestEmbed_CacheByResolvedPath(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	p := writeFile(t, filepath.Join(dir, "pic.png"), pngBytes(t, 2, 2))

	e := NewEmbedder(nil, nil)
	a, err := e.Embed(p)
	if err != nil {
		t.Fatal(err)
	}
	// change content, cached value must be returned for any spelling
	writeFile(t, p, pngBytes(t, 3, 3))
	b, err := e.Embed("./pic.png")
	if err != nil {
		t.Fatal(err)
	}
	if a != b || e.CacheSize() != 1 {
		t.Errorf("cache miss: size %d", e.CacheSize())
	}

	e.ClearCache()
	c, err := e.Embed(p)
	if err != nil {
		t.Fatal(err)
	}
	if c == a {
		t.Error("ClearCache() did not drop cached value")
	}
}

func TestEmbedBatch_BestEffort(t *testing.T) {
	dir := t.TempDir()
	files := []string{
		writeFile(t, filepath.Join(dir, "1.png"), pngBytes(t, 1, 1)),
		writeFile(t, filepath.Join(dir, "2.png"), pngBytes(t, 2, 2)),
		filepath.Join(dir, "missing.png"),
		writeFile(t, filepath.Join(dir, "3.gif"), []byte("GIF89a")),
	}

	e := NewEmbedder(&config.MediaConfig{Workers: 3}, zaptest.NewLogger(t))
	var calls atomic.Int32
	lastTotal := 0
	out, err := e.EmbedBatch(context.Background(), files, func(done, total int, _ string) {
		calls.Add(1)
		lastTotal = total
	})
	if err != nil {
		t.Fatalf("EmbedBatch() error = %v", err)
	}
	if len(out) != len(files) {
		t.Fatalf("EmbedBatch() returned %d entries, want %d", len(out), len(files))
	}
	if out[files[2]] != "" {
		t.Error("failed file has non empty result")
	}
	for _, f := range []string{files[0], files[1], files[3]} {
		if out[f] == "" {
			t.Errorf("%s not embedded", f)
		}
	}
	if int(calls.Load()) != len(files) || lastTotal != len(files) {
		t.Errorf("progress called %d times, total %d", calls.Load(), lastTotal)
	}
}

func TestEmbedBatch_Cancelled(t *testing.T) {
	dir := t.TempDir()
	files := []string{writeFile(t, filepath.Join(dir, "1.png"), pngBytes(t, 1, 1))}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := NewEmbedder(nil, nil)
	if _, err := e.EmbedBatch(ctx, files, nil); !errors.Is(err, context.Canceled) {
		t.Errorf("EmbedBatch() error = %v, want context.Canceled", err)
	}
}

func TestEmbed_Downscale(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, filepath.Join(dir, "wide.png"), pngBytes(t, 400, 100))

	e := NewEmbedder(&config.MediaConfig{MaxImageWidth: 100}, zaptest.NewLogger(t))
	url, err := e.Embed(p)
	if err != nil {
		t.Fatal(err)
	}
	data, _, err := DecodeDataURL(url)
	if err != nil {
		t.Fatal(err)
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("embedded image does not decode: %v", err)
	}
	if cfg.Width != 100 || cfg.Height != 25 {
		t.Errorf("embedded image is %dx%d, want 100x25", cfg.Width, cfg.Height)
	}
}

func TestDecodeDataURL_Errors(t *testing.T) {
	for _, s := range []string{
		"image/png;base64,AAAA",
		"data:image/png;base64",
		"data:text/plain,hello",
		"data:image/png;base64,!!!",
	} {
		if _, _, err := DecodeDataURL(s); !errors.Is(err, ErrInvalidDataURL) {
			t.Errorf("DecodeDataURL(%q) error = %v", s, err)
		}
	}
}

func TestCopyAssets_Collisions(t *testing.T) {
	src := t.TempDir()
	out := t.TempDir()
	a := writeFile(t, filepath.Join(src, "one", "My Picture.PNG"), pngBytes(t, 1, 1))
	b := writeFile(t, filepath.Join(src, "two", "My Picture.png"), pngBytes(t, 2, 2))
	missing := filepath.Join(src, "gone.png")

	res, err := CopyAssets(context.Background(), []string{a, b, missing}, out, "Assets", nil, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("CopyAssets() error = %v", err)
	}
	mapping := res.Mapping
	if len(res.Created) != 2 {
		t.Errorf("Created = %v", res.Created)
	}
	if mapping[a] != "Assets/my-picture.png" || mapping[b] != "Assets/my-picture-1.png" {
		t.Errorf("mapping = %v", mapping)
	}
	if _, ok := mapping[missing]; ok {
		t.Error("missing file mapped")
	}
	for _, name := range []string{"my-picture.png", "my-picture-1.png"} {
		if _, err := os.Stat(filepath.Join(out, "Assets", name)); err != nil {
			t.Errorf("asset %s not copied: %v", name, err)
		}
	}
}

func TestCopyAssets_SharedDestination(t *testing.T) {
	src := t.TempDir()
	out := t.TempDir()
	first := writeFile(t, filepath.Join(src, "a", "logo.png"), []byte("AAAA"))
	second := writeFile(t, filepath.Join(src, "b", "logo.png"), []byte("BBBB"))
	log := zaptest.NewLogger(t)

	one, err := CopyAssets(context.Background(), []string{first}, out, "Assets", nil, log)
	if err != nil {
		t.Fatalf("CopyAssets() first project error = %v", err)
	}
	two, err := CopyAssets(context.Background(), []string{second}, out, "Assets", nil, log)
	if err != nil {
		t.Fatalf("CopyAssets() second project error = %v", err)
	}
	if one.Mapping[first] != "Assets/logo.png" || two.Mapping[second] != "Assets/logo-1.png" {
		t.Errorf("mappings = %v, %v", one.Mapping, two.Mapping)
	}
	for name, want := range map[string]string{"logo.png": "AAAA", "logo-1.png": "BBBB"} {
		got, err := os.ReadFile(filepath.Join(out, "Assets", name))
		if err != nil || string(got) != want {
			t.Errorf("%s = %q (%v), want %q", name, got, err, want)
		}
	}

	// exporting first project again reuses its file
	again, err := CopyAssets(context.Background(), []string{first}, out, "Assets", nil, log)
	if err != nil {
		t.Fatalf("CopyAssets() repeated error = %v", err)
	}
	if again.Mapping[first] != "Assets/logo.png" || len(again.Created) != 0 {
		t.Errorf("repeated export mapping = %v, created = %v", again.Mapping, again.Created)
	}
}

func TestAssetCopy_Rollback(t *testing.T) {
	src := t.TempDir()
	out := t.TempDir()
	a := writeFile(t, filepath.Join(src, "a.png"), []byte("AAAA"))
	b := writeFile(t, filepath.Join(src, "b.png"), []byte("BBBB"))
	log := zaptest.NewLogger(t)

	kept, err := CopyAssets(context.Background(), []string{a}, out, "Assets", nil, log)
	if err != nil {
		t.Fatalf("CopyAssets() error = %v", err)
	}
	res, err := CopyAssets(context.Background(), []string{a, b}, out, "Assets", nil, log)
	if err != nil {
		t.Fatalf("CopyAssets() error = %v", err)
	}
	if err := res.Rollback(); err != nil {
		t.Fatalf("Rollback() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(out, "Assets", "b.png")); !os.IsNotExist(err) {
		t.Errorf("created asset left after rollback: %v", err)
	}
	if _, err := os.Stat(filepath.Join(out, "Assets", "a.png")); err != nil {
		t.Errorf("reused asset removed by rollback: %v", err)
	}

	// last copy gone, directory goes too
	for _, p := range kept.Created {
		if err := os.Remove(p); err != nil {
			t.Fatal(err)
		}
	}
	single, err := CopyAssets(context.Background(), []string{b}, out, "Assets", nil, log)
	if err != nil {
		t.Fatalf("CopyAssets() error = %v", err)
	}
	if err := single.Rollback(); err != nil {
		t.Fatalf("Rollback() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(out, "Assets")); !os.IsNotExist(err) {
		t.Errorf("empty assets directory left after rollback: %v", err)
	}
}
